package sync

import "reviewsync_api/internal/reviews/business/models/review"

// Reconcile отбирает из кандидатов одной пары (клиент, магазин) действительно
// новые отзывы. Кандидаты с непустым review_id отсеиваются по множеству
// известных id и дедуплицируются между собой по id (страницы пагинации могут
// перекрываться); кандидаты без id сравниваются структурно -- с сохранёнными
// строками без id и друг с другом. В обоих случаях остаётся первое вхождение,
// результат -- подпоследовательность входа в исходном порядке.
//
// Пустой индекс пропускает всех уникальных кандидатов. Совпадение id двух
// кандидатов в одной пачке -- дубликат, не ошибка. Коллизии id между разными
// магазинами считаются невозможными за счёт неймспейсинга источников; здесь
// это допущение не проверяется.
func Reconcile(candidates []review.Review, existing *PairIndex) []review.Review {
	if len(candidates) == 0 {
		return nil
	}

	seenIDs := make(map[string]struct{})
	seenKeys := make(map[string]struct{})
	var fresh []review.Review

	for _, candidate := range candidates {
		if id := candidate.ID(); id != "" {
			if existing != nil {
				if _, known := existing.IDs[id]; known {
					continue
				}
			}
			if _, dup := seenIDs[id]; dup {
				continue
			}
			seenIDs[id] = struct{}{}
			fresh = append(fresh, candidate)
			continue
		}

		key := candidate.Key()
		if existing != nil {
			if _, known := existing.RowKeys[key]; known {
				continue
			}
		}
		if _, dup := seenKeys[key]; dup {
			continue
		}
		seenKeys[key] = struct{}{}
		fresh = append(fresh, candidate)
	}

	return fresh
}
