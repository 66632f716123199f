package responses

import "time"

// Ответ App Store Connect customerReviews.
type CustomerReviewsResponse struct {
	Data  []AppStoreReview `json:"data"`
	Links PagedLinks       `json:"links"`
}

// PagedLinks.Next содержит полный URL следующей страницы и используется как
// токен пагинации.
type PagedLinks struct {
	Next string `json:"next"`
}

// AppStoreReview -- нативная форма отзыва второго магазина. Без вложенных
// комментариев: плоская структура, маппится в каноническую строку поле в поле.
type AppStoreReview struct {
	ID         string                   `json:"id"`
	Attributes AppStoreReviewAttributes `json:"attributes"`
}

type AppStoreReviewAttributes struct {
	Rating           int       `json:"rating"`
	Title            string    `json:"title"`
	Body             string    `json:"body"`
	ReviewerNickname string    `json:"reviewerNickname"`
	CreatedDate      time.Time `json:"createdDate"`
	Territory        string    `json:"territory"`
}
