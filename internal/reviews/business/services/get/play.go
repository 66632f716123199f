package get

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"reviewsync_api/internal/reviews/business/dto/responses"
	"reviewsync_api/internal/reviews/business/services"
)

const playReviewsURL = "https://androidpublisher.googleapis.com/androidpublisher/v3/applications"

const playPageSize = 100

// PlayReviewsClient ходит в androidpublisher reviews.list. Одна страница за
// вызов; пагинация токенами отдаётся наружу, драйверу страниц.
type PlayReviewsClient struct {
	baseURL string
	auth    services.AuthEngine
	client  *http.Client
	limiter *rate.Limiter
}

func NewPlayReviewsClient(auth services.AuthEngine, limiter *rate.Limiter) *PlayReviewsClient {
	return &PlayReviewsClient{
		baseURL: playReviewsURL,
		auth:    auth,
		client:  &http.Client{Timeout: 60 * time.Second},
		limiter: limiter,
	}
}

// SetBaseURL переопределяет адрес API. Нужен тестам и прокси.
func (c *PlayReviewsClient) SetBaseURL(base string) *PlayReviewsClient {
	if base != "" {
		c.baseURL = base
	}
	return c
}

func (c *PlayReviewsClient) FetchPage(ctx context.Context, packageName, pageToken string) (Page[responses.PlayReview], error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Page[responses.PlayReview]{}, fmt.Errorf("rate limiter error: %w", err)
		}
	}

	query := url.Values{}
	query.Set("maxResults", fmt.Sprintf("%d", playPageSize))
	if pageToken != "" {
		query.Set("token", pageToken)
	}
	endpoint := fmt.Sprintf("%s/%s/reviews?%s", c.baseURL, url.PathEscape(packageName), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Page[responses.PlayReview]{}, err
	}
	if c.auth != nil {
		if err := c.auth.SetAuth(req); err != nil {
			return Page[responses.PlayReview]{}, fmt.Errorf("authorizing play request: %w", err)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Page[responses.PlayReview]{}, fmt.Errorf("fetching play reviews for %s: %w", packageName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page[responses.PlayReview]{}, fmt.Errorf("fetching play reviews for %s: unexpected status code: %s", packageName, resp.Status)
	}

	var decoded responses.PlayReviewsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Page[responses.PlayReview]{}, fmt.Errorf("decoding play reviews response: %w", err)
	}

	return Page[responses.PlayReview]{
		Records:   decoded.Reviews,
		NextToken: decoded.TokenPagination.NextPageToken,
	}, nil
}
