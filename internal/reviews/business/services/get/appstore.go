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

const appStoreReviewsURL = "https://api.appstoreconnect.apple.com/v1/apps"

const appStorePageSize = 200

// AppStoreReviewsClient ходит в App Store Connect customerReviews. Токеном
// следующей страницы служит полный URL из links.next.
type AppStoreReviewsClient struct {
	baseURL string
	auth    services.AuthEngine
	client  *http.Client
	limiter *rate.Limiter
}

func NewAppStoreReviewsClient(auth services.AuthEngine, limiter *rate.Limiter) *AppStoreReviewsClient {
	return &AppStoreReviewsClient{
		baseURL: appStoreReviewsURL,
		auth:    auth,
		client:  &http.Client{Timeout: 60 * time.Second},
		limiter: limiter,
	}
}

func (c *AppStoreReviewsClient) SetBaseURL(base string) *AppStoreReviewsClient {
	if base != "" {
		c.baseURL = base
	}
	return c
}

func (c *AppStoreReviewsClient) FetchPage(ctx context.Context, appID, pageToken string) (Page[responses.AppStoreReview], error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Page[responses.AppStoreReview]{}, fmt.Errorf("rate limiter error: %w", err)
		}
	}

	endpoint := pageToken
	if endpoint == "" {
		query := url.Values{}
		query.Set("limit", fmt.Sprintf("%d", appStorePageSize))
		query.Set("sort", "-createdDate")
		endpoint = fmt.Sprintf("%s/%s/customerReviews?%s", c.baseURL, url.PathEscape(appID), query.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Page[responses.AppStoreReview]{}, err
	}
	if c.auth != nil {
		if err := c.auth.SetAuth(req); err != nil {
			return Page[responses.AppStoreReview]{}, fmt.Errorf("authorizing appstore request: %w", err)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Page[responses.AppStoreReview]{}, fmt.Errorf("fetching appstore reviews for %s: %w", appID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page[responses.AppStoreReview]{}, fmt.Errorf("fetching appstore reviews for %s: unexpected status code: %s", appID, resp.Status)
	}

	var decoded responses.CustomerReviewsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Page[responses.AppStoreReview]{}, fmt.Errorf("decoding appstore reviews response: %w", err)
	}

	return Page[responses.AppStoreReview]{
		Records:   decoded.Data,
		NextToken: decoded.Links.Next,
	}, nil
}
