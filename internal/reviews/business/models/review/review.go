package review

import (
	"strconv"
	"strings"
)

// NullMarker -- сентинел для отсутствующих значений на границе хранилища.
// Таблица не умеет хранить NULL, поэтому пустые поля кодируются этой строкой
// при записи и декодируются обратно при чтении. Внутри движка отсутствующее
// поле -- это просто отсутствующий ключ в Review.
const NullMarker = "null"

// Field -- имя одной из канонических колонок таблицы отзывов.
type Field string

const (
	FieldCustomer           Field = "customer"
	FieldStore              Field = "store"
	FieldAppID              Field = "app_id"
	FieldReviewID           Field = "review_id"
	FieldDate               Field = "date"
	FieldTitle              Field = "title"
	FieldBody               Field = "body"
	FieldRating             Field = "rating"
	FieldAuthor             Field = "author"
	FieldTerritory          Field = "territory"
	FieldLanguage           Field = "language"
	FieldDevice             Field = "device"
	FieldAppVersionCode     Field = "app_version_code"
	FieldAppVersionName     Field = "app_version_name"
	FieldOSVersion          Field = "os_version"
	FieldThumbsUp           Field = "thumbs_up"
	FieldThumbsDown         Field = "thumbs_down"
	FieldReplyDate          Field = "reply_date"
	FieldReplyBody          Field = "reply_body"
	FieldDeviceProduct      Field = "device_product"
	FieldDeviceManufacturer Field = "device_manufacturer"
	FieldScreenWidth        Field = "screen_width"
	FieldScreenHeight       Field = "screen_height"
	FieldScreenDensity      Field = "screen_density"
	FieldNativePlatform     Field = "native_platform"
	FieldGlEsVersion        Field = "gl_es_version"
	FieldCPUMake            Field = "cpu_make"
	FieldCPUModel           Field = "cpu_model"
	FieldRAMMb              Field = "ram_mb"
	FieldMisc               Field = "misc"
	FieldReviewLink         Field = "review_link"
)

// Идентификаторы магазинов в колонке store.
const (
	StoreGooglePlay = "google-play"
	StoreAppStore   = "app-store"
)

// Headers -- канонический порядок колонок. Набор закрытый: сюда входит каждое
// объявленное поле и ничего кроме них.
var Headers = []Field{
	FieldCustomer,
	FieldStore,
	FieldAppID,
	FieldReviewID,
	FieldDate,
	FieldTitle,
	FieldBody,
	FieldRating,
	FieldAuthor,
	FieldTerritory,
	FieldLanguage,
	FieldDevice,
	FieldAppVersionCode,
	FieldAppVersionName,
	FieldOSVersion,
	FieldThumbsUp,
	FieldThumbsDown,
	FieldReplyDate,
	FieldReplyBody,
	FieldDeviceProduct,
	FieldDeviceManufacturer,
	FieldScreenWidth,
	FieldScreenHeight,
	FieldScreenDensity,
	FieldNativePlatform,
	FieldGlEsVersion,
	FieldCPUMake,
	FieldCPUModel,
	FieldRAMMb,
	FieldMisc,
	FieldReviewLink,
}

var knownFields = func() map[Field]struct{} {
	m := make(map[Field]struct{}, len(Headers))
	for _, f := range Headers {
		m[f] = struct{}{}
	}
	return m
}()

// HeaderStrings возвращает канонические заголовки как срез строк.
func HeaderStrings() []string {
	out := make([]string, len(Headers))
	for i, f := range Headers {
		out[i] = string(f)
	}
	return out
}

// Review -- нормализованный отзыв: отображение канонических полей в значения.
// Отсутствующий ключ означает null. После построения не мутируется.
type Review map[Field]string

// ID возвращает идентификатор отзыва или пустую строку, если его нет.
func (r Review) ID() string {
	return r[FieldReviewID]
}

// Equal -- структурное равенство по содержимому полей, порядок вставки
// значения не имеет.
func (r Review) Equal(other Review) bool {
	if len(r) != len(other) {
		return false
	}
	for f, v := range r {
		if ov, ok := other[f]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Key возвращает детерминированный ключ идентичности: review_id, если он есть,
// иначе каноническую сериализацию всего значения. Используется для проверки
// принадлежности множеству при сверке.
func (r Review) Key() string {
	if id := r.ID(); id != "" {
		return "id:" + id
	}
	var sb strings.Builder
	sb.WriteString("row:")
	for _, f := range Headers {
		if v, ok := r[f]; ok {
			sb.WriteString(string(f))
			sb.WriteByte('=')
			sb.WriteString(strconv.Quote(v))
			sb.WriteByte(';')
		}
	}
	return sb.String()
}

// ToRow проецирует отзыв на переданный порядок заголовков хранилища. Null-поля
// кодируются как NullMarker. Второй результат -- непустые поля, для которых в
// заголовках не нашлось колонки: их значения при записи будут потеряны, и
// вызывающая сторона обязана об этом предупредить в логе.
func ToRow(r Review, headers []string) ([]string, []Field) {
	values := make([]string, len(headers))
	present := make(map[Field]struct{}, len(headers))
	for i, h := range headers {
		f := Field(h)
		present[f] = struct{}{}
		if v, ok := r[f]; ok {
			values[i] = v
		} else {
			values[i] = NullMarker
		}
	}

	var missing []Field
	for _, f := range Headers {
		if _, ok := r[f]; !ok {
			continue
		}
		if _, ok := present[f]; !ok {
			missing = append(missing, f)
		}
	}
	return values, missing
}

// FromRow восстанавливает отзыв из сырой строки хранилища. Заголовки вне
// канонического набора игнорируются, NullMarker превращается в отсутствие
// поля. Для любого набора заголовков, покрывающего непустые поля r,
// FromRow(h, ToRow(r, h)) == r.
func FromRow(headers, values []string) Review {
	r := make(Review, len(headers))
	for i, h := range headers {
		if i >= len(values) {
			break
		}
		f := Field(h)
		if _, ok := knownFields[f]; !ok {
			continue
		}
		if values[i] == NullMarker {
			continue
		}
		r[f] = values[i]
	}
	return r
}
