package responses

// Ответ androidpublisher reviews.list.
type PlayReviewsResponse struct {
	Reviews         []PlayReview    `json:"reviews"`
	TokenPagination TokenPagination `json:"tokenPagination"`
}

type TokenPagination struct {
	NextPageToken string `json:"nextPageToken"`
}

// PlayReview -- сырой отзыв Google Play. Содержимое разнесено по вложенным
// комментариям: пользовательские правки и ответы разработчика приходят одним
// списком, и выбор актуальной пары -- забота нормализатора.
type PlayReview struct {
	ReviewID   string        `json:"reviewId"`
	AuthorName string        `json:"authorName"`
	Comments   []PlayComment `json:"comments"`
}

type PlayComment struct {
	UserComment      *UserComment      `json:"userComment,omitempty"`
	DeveloperComment *DeveloperComment `json:"developerComment,omitempty"`
}

type UserComment struct {
	Text             string          `json:"text"`
	LastModified     PlayTimestamp   `json:"lastModified"`
	StarRating       int             `json:"starRating"`
	ReviewerLanguage string          `json:"reviewerLanguage"`
	Device           string          `json:"device"`
	AndroidOsVersion int             `json:"androidOsVersion"`
	AppVersionCode   int             `json:"appVersionCode"`
	AppVersionName   string          `json:"appVersionName"`
	ThumbsUpCount    int             `json:"thumbsUpCount"`
	ThumbsDownCount  int             `json:"thumbsDownCount"`
	DeviceMetadata   *DeviceMetadata `json:"deviceMetadata,omitempty"`
}

type DeveloperComment struct {
	Text         string        `json:"text"`
	LastModified PlayTimestamp `json:"lastModified"`
}

// PlayTimestamp -- момент времени в формате API: секунды приходят строкой.
type PlayTimestamp struct {
	Seconds int64 `json:"seconds,string"`
	Nanos   int   `json:"nanos"`
}

// Before сравнивает пары (seconds, nanos) лексикографически.
func (t PlayTimestamp) Before(other PlayTimestamp) bool {
	if t.Seconds != other.Seconds {
		return t.Seconds < other.Seconds
	}
	return t.Nanos < other.Nanos
}

func (t PlayTimestamp) IsZero() bool {
	return t.Seconds == 0 && t.Nanos == 0
}

type DeviceMetadata struct {
	ProductName      string `json:"productName"`
	Manufacturer     string `json:"manufacturer"`
	ScreenWidthPx    int    `json:"screenWidthPx"`
	ScreenHeightPx   int    `json:"screenHeightPx"`
	ScreenDensityDpi int    `json:"screenDensityDpi"`
	NativePlatform   string `json:"nativePlatform"`
	GlEsVersion      int    `json:"glEsVersion"`
	CpuModel         string `json:"cpuModel"`
	CpuMake          string `json:"cpuMake"`
	RamMb            int    `json:"ramMb"`
}
