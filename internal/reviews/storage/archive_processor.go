package storage

import (
	"encoding/csv"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"reviewsync_api/internal/reviews/business/dto/responses"
)

// Имена колонок архивного выгруза. Маппинг по именам, не по позициям: состав
// колонок у выгрузов разных лет плавал.
const (
	colPackageName    = "Package Name"
	colAppVersionCode = "App Version Code"
	colAppVersionName = "App Version Name"
	colLanguage       = "Reviewer Language"
	colDevice         = "Device"
	colSubmitDate     = "Review Submit Date and Time"
	colStarRating     = "Star Rating"
	colTitle          = "Review Title"
	colText           = "Review Text"
	colReplyDate      = "Developer Reply Date and Time"
	colReplyText      = "Developer Reply Text"
	colReviewLink     = "Review Link"
)

// ParseArchiveCSV читает архивный CSV-выгруз, декодируя из UTF-16LE (формат
// выгрузов), и возвращает строки отзывов. Строки без единого значения
// пропускаются.
func ParseArchiveCSV(reader io.Reader) ([]responses.ArchivedReview, error) {
	decoder := transform.NewReader(reader, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder())
	csvReader := csv.NewReader(decoder)
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv read error: %w", err)
	}
	if len(allRows) == 0 {
		return nil, fmt.Errorf("csv data is empty")
	}

	columnMap := make(map[string]int)
	for i, col := range allRows[0] {
		columnMap[col] = i
	}
	if _, ok := columnMap[colPackageName]; !ok {
		return nil, fmt.Errorf("csv header is missing column %q", colPackageName)
	}

	cell := func(row []string, col string) string {
		idx, ok := columnMap[col]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	var reviews []responses.ArchivedReview
	for _, row := range allRows[1:] {
		r := responses.ArchivedReview{
			PackageName:    cell(row, colPackageName),
			AppVersionCode: cell(row, colAppVersionCode),
			AppVersionName: cell(row, colAppVersionName),
			Language:       cell(row, colLanguage),
			Device:         cell(row, colDevice),
			SubmittedAt:    cell(row, colSubmitDate),
			StarRating:     cell(row, colStarRating),
			Title:          cell(row, colTitle),
			Text:           cell(row, colText),
			ReplyDate:      cell(row, colReplyDate),
			ReplyText:      cell(row, colReplyText),
			ReviewLink:     cell(row, colReviewLink),
		}
		if r == (responses.ArchivedReview{}) {
			continue
		}
		reviews = append(reviews, r)
	}
	return reviews, nil
}
