package responses

// ArchivedReview -- строка месячного CSV-выгруза отзывов Google Play.
// Отдельной колонки с review_id в выгрузе нет, но он восстановим из
// query-параметра reviewId в колонке со ссылкой на отзыв.
type ArchivedReview struct {
	PackageName    string
	AppVersionCode string
	AppVersionName string
	Language       string
	Device         string
	SubmittedAt    string
	StarRating     string
	Title          string
	Text           string
	ReplyDate      string
	ReplyText      string
	ReviewLink     string
}
