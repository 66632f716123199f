package sync

import (
	"bytes"
	"context"
	"fmt"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewsync_api/internal/reviews/business/dto/responses"
	"reviewsync_api/internal/reviews/business/models/review"
	"reviewsync_api/internal/reviews/business/services/get"
	"reviewsync_api/pkg/logger"
)

type fakeTable struct {
	mu       gosync.Mutex
	headers  []string
	rows     [][]string
	appended [][]string

	readErr   error
	appendErr error
}

func newFakeTable(existing ...review.Review) *fakeTable {
	t := &fakeTable{headers: review.HeaderStrings()}
	for _, r := range existing {
		row, _ := review.ToRow(r, t.headers)
		t.rows = append(t.rows, row)
	}
	return t
}

func (t *fakeTable) ReadAll(ctx context.Context, table string) ([]string, [][]string, error) {
	if t.readErr != nil {
		return nil, nil, t.readErr
	}
	return t.headers, t.rows, nil
}

func (t *fakeTable) Append(ctx context.Context, table string, rows [][]string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.appendErr != nil {
		return t.appendErr
	}
	t.appended = append(t.appended, rows...)
	return nil
}

func (t *fakeTable) appendedReviews() []review.Review {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]review.Review, 0, len(t.appended))
	for _, row := range t.appended {
		out = append(out, review.FromRow(t.headers, row))
	}
	return out
}

type fakePlaySource struct {
	mu    gosync.Mutex
	pages map[string][]get.Page[responses.PlayReview]
	calls map[string]int
	errs  map[string]error
	panic bool
}

func newFakePlaySource() *fakePlaySource {
	return &fakePlaySource{
		pages: make(map[string][]get.Page[responses.PlayReview]),
		calls: make(map[string]int),
		errs:  make(map[string]error),
	}
}

func (s *fakePlaySource) FetchPage(ctx context.Context, packageName, pageToken string) (get.Page[responses.PlayReview], error) {
	if s.panic {
		panic("play source exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[packageName]; err != nil {
		return get.Page[responses.PlayReview]{}, err
	}
	n := s.calls[packageName]
	s.calls[packageName] = n + 1
	pages := s.pages[packageName]
	if n >= len(pages) {
		return get.Page[responses.PlayReview]{}, nil
	}
	return pages[n], nil
}

type fakeAppStoreSource struct {
	reviews map[string][]responses.AppStoreReview
	errs    map[string]error
}

func (s *fakeAppStoreSource) FetchPage(ctx context.Context, appID, pageToken string) (get.Page[responses.AppStoreReview], error) {
	if err := s.errs[appID]; err != nil {
		return get.Page[responses.AppStoreReview]{}, err
	}
	return get.Page[responses.AppStoreReview]{Records: s.reviews[appID]}, nil
}

type fakeArchiveSource struct {
	reviews map[string][]responses.ArchivedReview
	errs    map[string]error
}

func (s *fakeArchiveSource) FetchReviews(ctx context.Context, bucket, packageName string) ([]responses.ArchivedReview, error) {
	if err := s.errs[bucket]; err != nil {
		return nil, err
	}
	return s.reviews[bucket], nil
}

func testLogger() logger.Logger {
	return logger.NewLogger(nil, "[test]")
}

func playReview(id string, seconds int64) responses.PlayReview {
	return responses.PlayReview{
		ReviewID: id,
		Comments: []responses.PlayComment{{UserComment: &responses.UserComment{
			Text:         "body of " + id,
			LastModified: responses.PlayTimestamp{Seconds: seconds},
			StarRating:   5,
		}}},
	}
}

func appStoreReview(id string) responses.AppStoreReview {
	return responses.AppStoreReview{
		ID: id,
		Attributes: responses.AppStoreReviewAttributes{
			Rating:      4,
			Body:        "ios body " + id,
			CreatedDate: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
			Territory:   "DEU",
		},
	}
}

func TestRun_EmptyStoreReportsEverythingNew(t *testing.T) {
	table := newFakeTable()
	play := newFakePlaySource()
	play.pages["com.acme.app"] = []get.Page[responses.PlayReview]{
		{Records: []responses.PlayReview{playReview("1", 1000), playReview("2", 2000)}},
	}

	svc := NewSyncService("reviews", table, play, nil, nil, testLogger())
	summary, err := svc.Run(context.Background(), []Customer{{Name: "acme", PlayPackage: "com.acme.app"}})
	require.NoError(t, err)

	assert.Empty(t, summary.Failures)
	require.Len(t, summary.NewReviews, 2)
	assert.Len(t, table.appendedReviews(), 2)
}

func TestRun_KnownIDsAreNotReappended(t *testing.T) {
	existing := review.Review{
		review.FieldCustomer: "acme",
		review.FieldStore:    review.StoreGooglePlay,
		review.FieldAppID:    "com.acme.app",
		review.FieldReviewID: "1",
	}
	table := newFakeTable(existing)

	play := newFakePlaySource()
	play.pages["com.acme.app"] = []get.Page[responses.PlayReview]{
		{Records: []responses.PlayReview{playReview("1", 1000), playReview("2", 2000)}},
	}

	svc := NewSyncService("reviews", table, play, nil, nil, testLogger())
	summary, err := svc.Run(context.Background(), []Customer{{Name: "acme", PlayPackage: "com.acme.app"}})
	require.NoError(t, err)

	require.Len(t, summary.NewReviews, 1)
	assert.Equal(t, "2", summary.NewReviews[0].ID())
	require.Len(t, table.appendedReviews(), 1)
	assert.Equal(t, "2", table.appendedReviews()[0].ID())
}

func TestRun_FailingUnitDoesNotAbortSiblings(t *testing.T) {
	table := newFakeTable()

	play := newFakePlaySource()
	play.errs["com.acme.app"] = fmt.Errorf("quota exceeded")

	appstore := &fakeAppStoreSource{
		reviews: map[string][]responses.AppStoreReview{"555": {appStoreReview("as:1")}},
	}

	svc := NewSyncService("reviews", table, play, appstore, nil, testLogger())
	summary, err := svc.Run(context.Background(), []Customer{
		{Name: "acme", PlayPackage: "com.acme.app"},
		{Name: "globex", AppStoreAppID: "555"},
	})
	require.NoError(t, err)

	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "acme", summary.Failures[0].Customer)
	assert.Equal(t, SourcePlay, summary.Failures[0].Source)
	assert.ErrorContains(t, summary.Failures[0].Err, "quota exceeded")

	require.Len(t, summary.NewReviews, 1)
	assert.Equal(t, "as:1", summary.NewReviews[0].ID())
}

func TestRun_PanicInSourceIsIsolated(t *testing.T) {
	table := newFakeTable()
	play := newFakePlaySource()
	play.panic = true

	svc := NewSyncService("reviews", table, play, nil, nil, testLogger())
	summary, err := svc.Run(context.Background(), []Customer{{Name: "acme", PlayPackage: "com.acme.app"}})
	require.NoError(t, err)

	require.Len(t, summary.Failures, 1)
	assert.ErrorContains(t, summary.Failures[0].Err, "unit panic")
	assert.Empty(t, summary.NewReviews)
}

func TestRun_AppendFailureIsIsolatedToUnit(t *testing.T) {
	table := newFakeTable()
	table.appendErr = fmt.Errorf("table quota exhausted")

	play := newFakePlaySource()
	play.pages["com.acme.app"] = []get.Page[responses.PlayReview]{
		{Records: []responses.PlayReview{playReview("1", 1000)}},
	}

	svc := NewSyncService("reviews", table, play, nil, nil, testLogger())
	summary, err := svc.Run(context.Background(), []Customer{{Name: "acme", PlayPackage: "com.acme.app"}})
	require.NoError(t, err)

	require.Len(t, summary.Failures, 1)
	assert.ErrorContains(t, summary.Failures[0].Err, "table quota exhausted")
	assert.Empty(t, summary.NewReviews)
}

func TestRun_UnconfiguredSourcesAreOmitted(t *testing.T) {
	table := newFakeTable()
	play := newFakePlaySource()
	play.pages["com.acme.app"] = []get.Page[responses.PlayReview]{
		{Records: []responses.PlayReview{playReview("1", 1000)}},
	}

	// у клиента нет appstore и нет архива: это не отказы, юнитов просто нет
	svc := NewSyncService("reviews", table, play, nil, nil, testLogger())
	summary, err := svc.Run(context.Background(), []Customer{{Name: "acme", PlayPackage: "com.acme.app"}})
	require.NoError(t, err)

	assert.Empty(t, summary.Failures)
	assert.Len(t, summary.NewReviews, 1)
}

func TestRun_NoUnitsAtAll(t *testing.T) {
	table := newFakeTable()
	svc := NewSyncService("reviews", table, nil, nil, nil, testLogger())

	summary, err := svc.Run(context.Background(), []Customer{{Name: "acme"}})
	require.NoError(t, err)
	assert.Empty(t, summary.Failures)
	assert.Empty(t, summary.NewReviews)
}

func TestRun_ReadAllFailureIsFatal(t *testing.T) {
	table := newFakeTable()
	table.readErr = fmt.Errorf("store unavailable")

	svc := NewSyncService("reviews", table, newFakePlaySource(), nil, nil, testLogger())
	_, err := svc.Run(context.Background(), []Customer{{Name: "acme", PlayPackage: "com.acme.app"}})
	assert.ErrorContains(t, err, "store unavailable")
}

func TestRun_ArchiveUnit(t *testing.T) {
	table := newFakeTable()
	archive := &fakeArchiveSource{
		reviews: map[string][]responses.ArchivedReview{
			"acme-reports": {
				{
					PackageName: "com.acme.app",
					Text:        "ancient review",
					SubmittedAt: "2015-02-01T00:00:00Z",
					ReviewLink:  "https://play.google.com/store/apps/details?id=com.acme.app&reviewId=gp%3A9",
				},
			},
		},
	}
	play := newFakePlaySource()

	svc := NewSyncService("reviews", table, play, nil, archive, testLogger())
	summary, err := svc.Run(context.Background(), []Customer{
		{Name: "acme", PlayPackage: "com.acme.app", ArchiveBucket: "acme-reports"},
	})
	require.NoError(t, err)

	require.Empty(t, summary.Failures)
	require.Len(t, summary.NewReviews, 1)
	assert.Equal(t, "gp:9", summary.NewReviews[0].ID())
}

func TestRun_WarnsWhenTableMissesCanonicalColumns(t *testing.T) {
	var logOutput bytes.Buffer
	table := &fakeTable{headers: []string{"customer", "store", "app_id", "review_id"}}

	play := newFakePlaySource()
	play.pages["com.acme.app"] = []get.Page[responses.PlayReview]{
		{Records: []responses.PlayReview{playReview("1", 1000)}},
	}

	svc := NewSyncService("reviews", table, play, nil, nil, logger.NewLogger(&logOutput, "[test]"))
	summary, err := svc.Run(context.Background(), []Customer{{Name: "acme", PlayPackage: "com.acme.app"}})
	require.NoError(t, err, "a lossy table layout must warn, not fail the run")

	logged := logOutput.String()
	assert.Contains(t, logged, "no columns for canonical fields")
	assert.Contains(t, logged, string(review.FieldBody))

	// прогон при этом завершается и пишет то, что таблица вмещает
	assert.Empty(t, summary.Failures)
	require.Len(t, summary.NewReviews, 1)
	require.Len(t, table.appended, 1)
	assert.Len(t, table.appended[0], 4)
}

func TestRun_PlayPaginationBoundedByLatestDate(t *testing.T) {
	known := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	existing := review.Review{
		review.FieldCustomer: "acme",
		review.FieldStore:    review.StoreGooglePlay,
		review.FieldAppID:    "com.acme.app",
		review.FieldReviewID: "old",
		review.FieldDate:     known.Format(time.RFC3339),
	}
	table := newFakeTable(existing)

	play := newFakePlaySource()
	play.pages["com.acme.app"] = []get.Page[responses.PlayReview]{
		// страница старее последней известной даты, но с токеном продолжения
		{Records: []responses.PlayReview{playReview("new", known.Add(-time.Hour).Unix())}, NextToken: "more"},
		{Records: []responses.PlayReview{playReview("never-fetched", known.Add(-2 * time.Hour).Unix())}},
	}

	svc := NewSyncService("reviews", table, play, nil, nil, testLogger())
	summary, err := svc.Run(context.Background(), []Customer{{Name: "acme", PlayPackage: "com.acme.app"}})
	require.NoError(t, err)

	// предикат остановил цикл после первой страницы, но её записи обработаны
	assert.Equal(t, 1, play.calls["com.acme.app"])
	require.Len(t, summary.NewReviews, 1)
	assert.Equal(t, "new", summary.NewReviews[0].ID())
}
