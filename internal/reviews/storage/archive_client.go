package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reviewsync_api/internal/reviews/business/dto/responses"
	"reviewsync_api/internal/reviews/business/services"
	"reviewsync_api/pkg/logger"
)

const storageAPIURL = "https://storage.googleapis.com/storage/v1/b"

// ArchiveClient достаёт месячные CSV-выгрузы отзывов из бакета. Выгрузы лежат
// под reviews/reviews_<package>_YYYYMM.csv; клиент перечисляет объекты по
// префиксу, скачивает каждый и отдаёт разобранные строки.
type ArchiveClient struct {
	baseURL string
	auth    services.AuthEngine
	client  *http.Client
	log     logger.Logger
}

func NewArchiveClient(auth services.AuthEngine, _log logger.Logger) *ArchiveClient {
	return &ArchiveClient{
		baseURL: storageAPIURL,
		auth:    auth,
		client:  &http.Client{Timeout: 120 * time.Second},
		log:     _log,
	}
}

func (c *ArchiveClient) SetBaseURL(base string) *ArchiveClient {
	if base != "" {
		c.baseURL = base
	}
	return c
}

// FetchReviews скачивает и разбирает все архивные выгрузы пакета из бакета.
// Ошибка скачивания или разбора любого файла поднимается наверх как отказ
// юнита: частично прочитанный архив хуже, чем повтор на следующем прогоне.
func (c *ArchiveClient) FetchReviews(ctx context.Context, bucket, packageName string) ([]responses.ArchivedReview, error) {
	bucket = strings.TrimPrefix(bucket, "gs://")
	prefix := fmt.Sprintf("reviews/reviews_%s_", packageName)

	names, err := c.listObjects(ctx, bucket, prefix)
	if err != nil {
		return nil, err
	}
	c.log.Log("found %d archive objects in %s with prefix %s", len(names), bucket, prefix)

	var all []responses.ArchivedReview
	for _, name := range names {
		body, err := c.download(ctx, bucket, name)
		if err != nil {
			return nil, err
		}
		parsed, err := ParseArchiveCSV(body)
		body.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing archive %s: %w", name, err)
		}
		all = append(all, parsed...)
	}
	return all, nil
}

func (c *ArchiveClient) listObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	var names []string
	pageToken := ""
	for {
		query := url.Values{}
		query.Set("prefix", prefix)
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}
		endpoint := fmt.Sprintf("%s/%s/o?%s", c.baseURL, url.PathEscape(bucket), query.Encode())

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		if c.auth != nil {
			if err := c.auth.SetAuth(req); err != nil {
				return nil, fmt.Errorf("authorizing bucket listing: %w", err)
			}
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("listing bucket %s: %w", bucket, err)
		}

		var decoded struct {
			Items []struct {
				Name string `json:"name"`
			} `json:"items"`
			NextPageToken string `json:"nextPageToken"`
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("listing bucket %s: unexpected status code: %s", bucket, resp.Status)
		}
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("decoding bucket listing: %w", err)
		}
		resp.Body.Close()

		for _, item := range decoded.Items {
			if strings.HasSuffix(item.Name, ".csv") {
				names = append(names, item.Name)
			}
		}
		if decoded.NextPageToken == "" {
			return names, nil
		}
		pageToken = decoded.NextPageToken
	}
}

func (c *ArchiveClient) download(ctx context.Context, bucket, name string) (io.ReadCloser, error) {
	endpoint := fmt.Sprintf("%s/%s/o/%s?alt=media", c.baseURL, url.PathEscape(bucket), url.QueryEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.auth != nil {
		if err := c.auth.SetAuth(req); err != nil {
			return nil, fmt.Errorf("authorizing archive download: %w", err)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", name, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("downloading %s: unexpected status code: %s", name, resp.Status)
	}
	return resp.Body, nil
}
