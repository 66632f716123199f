package get

import "context"

// Page -- одна страница источника: записи и токен продолжения. Пустой
// NextToken означает, что страниц больше нет.
type Page[T any] struct {
	Records   []T
	NextToken string
}

// FetchFunc получает одну страницу по токену; пустой токен -- первая страница.
type FetchFunc[T any] func(ctx context.Context, pageToken string) (Page[T], error)

// ContinueFunc решает по последней полученной странице, стоит ли запрашивать
// следующую. Это только оптимизация числа запросов: записи остановившей цикл
// страницы всё равно попадают в результат, а отсев уже известных записей
// остаётся за сверкой.
type ContinueFunc[T any] func(last Page[T]) bool

// DrainPages итеративно выкачивает источник до исчерпания токенов или до
// отказа предиката на последней странице. Накапливает все полученные записи,
// включая страницу, остановившую цикл. Без предиката выкачивается вся история.
// Аккаунты с десятками тысяч отзывов -- норма, поэтому только цикл, никакой
// рекурсии.
func DrainPages[T any](ctx context.Context, fetch FetchFunc[T], shouldContinue ContinueFunc[T]) ([]T, error) {
	var records []T
	token := ""
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		page, err := fetch(ctx, token)
		if err != nil {
			return nil, err
		}
		records = append(records, page.Records...)

		if page.NextToken == "" {
			return records, nil
		}
		if shouldContinue != nil && !shouldContinue(page) {
			return records, nil
		}
		token = page.NextToken
	}
}
