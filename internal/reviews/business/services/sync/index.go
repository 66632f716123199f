package sync

import (
	"time"

	"reviewsync_api/internal/reviews/business/models/review"
)

// PairKey -- пара (клиент, магазин), по которой секционируется индекс.
type PairKey struct {
	Customer string
	Store    string
}

// PairIndex -- срез известного состояния хранилища для одной пары: множество
// непустых review_id, структурные ключи строк без id и максимальная известная
// дата отзыва. Дата используется только как подсказка для ограничения
// пагинации, на корректность сверки она не влияет.
type PairIndex struct {
	IDs        map[string]struct{}
	RowKeys    map[string]struct{}
	LatestDate time.Time
}

func newPairIndex() *PairIndex {
	return &PairIndex{
		IDs:     make(map[string]struct{}),
		RowKeys: make(map[string]struct{}),
	}
}

// ExistingIndex строится один раз за прогон из всех сохранённых строк и после
// этого не мутируется, поэтому безопасен для конкурентного чтения юнитами.
type ExistingIndex map[PairKey]*PairIndex

// BuildIndex декодирует сохранённые строки и раскладывает их по парам
// (клиент, магазин). Строки, из которых не восстановились ни клиент, ни
// магазин, пропускаются.
func BuildIndex(headers []string, rows [][]string) ExistingIndex {
	idx := make(ExistingIndex)
	for _, raw := range rows {
		r := review.FromRow(headers, raw)
		if len(r) == 0 {
			continue
		}
		key := PairKey{Customer: r[review.FieldCustomer], Store: r[review.FieldStore]}
		pair := idx[key]
		if pair == nil {
			pair = newPairIndex()
			idx[key] = pair
		}
		if id := r.ID(); id != "" {
			pair.IDs[id] = struct{}{}
		} else {
			pair.RowKeys[r.Key()] = struct{}{}
		}
		if t, ok := parseReviewDate(r[review.FieldDate]); ok && t.After(pair.LatestDate) {
			pair.LatestDate = t
		}
	}
	return idx
}

// Pair возвращает индекс пары; для неизвестной пары -- пустой индекс, чтобы
// вызывающей стороне не приходилось проверять nil.
func (idx ExistingIndex) Pair(customer, store string) *PairIndex {
	if pair, ok := idx[PairKey{Customer: customer, Store: store}]; ok {
		return pair
	}
	return newPairIndex()
}

var reviewDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
}

func parseReviewDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range reviewDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
