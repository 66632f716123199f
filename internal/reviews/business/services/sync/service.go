package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"reviewsync_api/internal/reviews/business/dto/responses"
	"reviewsync_api/internal/reviews/business/models/review"
	"reviewsync_api/internal/reviews/business/services/get"
	"reviewsync_api/internal/reviews/business/services/normalize"
	"reviewsync_api/metrics"
	"reviewsync_api/pkg/logger"
)

// Source -- вид источника одного юнита синхронизации.
type Source string

const (
	SourcePlay        Source = "play"
	SourcePlayArchive Source = "play-archive"
	SourceAppStore    Source = "appstore"
)

// ReviewTable -- хранилище отзывов: таблица с заголовками и строками,
// дописываемая в конец. Сериализация конкурентных дозаписей -- забота
// реализации хранилища, движок явных блокировок не берёт.
type ReviewTable interface {
	ReadAll(ctx context.Context, table string) (headers []string, rows [][]string, err error)
	Append(ctx context.Context, table string, rows [][]string) error
}

// PlaySource отдаёт одну страницу живого API Google Play.
type PlaySource interface {
	FetchPage(ctx context.Context, packageName, pageToken string) (get.Page[responses.PlayReview], error)
}

// AppStoreSource отдаёт одну страницу App Store Connect.
type AppStoreSource interface {
	FetchPage(ctx context.Context, appID, pageToken string) (get.Page[responses.AppStoreReview], error)
}

// ArchiveSource отдаёт разобранные строки архивных CSV-выгрузов из бакета.
type ArchiveSource interface {
	FetchReviews(ctx context.Context, bucket, packageName string) ([]responses.ArchivedReview, error)
}

// Customer -- клиент и его настроенные источники. Пустое поле означает, что
// соответствующего юнита у клиента нет; это не ошибка, юнит просто не
// запускается.
type Customer struct {
	Name          string
	PlayPackage   string
	ArchiveBucket string
	AppStoreAppID string
}

// UnitFailure -- изолированная ошибка одного юнита (клиент, источник).
type UnitFailure struct {
	Customer string
	Source   Source
	Err      error
}

// Summary -- агрегированный итог прогона: все новые отзывы всех успешных
// юнитов и список отказов. Передаётся репортеру как есть.
type Summary struct {
	RunID      string
	StartedAt  time.Time
	NewReviews []review.Review
	Failures   []UnitFailure
}

type unit struct {
	customer Customer
	source   Source
}

type unitResult struct {
	customer string
	source   Source
	fetched  int
	rows     []review.Review
	err      error
}

// SyncService -- оркестратор: один прогон это загрузка индекса известных
// отзывов, веер юнитов по парам (клиент, источник) и агрегация результатов.
type SyncService struct {
	table    string
	store    ReviewTable
	play     PlaySource
	appstore AppStoreSource
	archive  ArchiveSource
	log      logger.Logger
}

func NewSyncService(table string, store ReviewTable, play PlaySource, appstore AppStoreSource, archive ArchiveSource, _log logger.Logger) *SyncService {
	return &SyncService{
		table:    table,
		store:    store,
		play:     play,
		appstore: appstore,
		archive:  archive,
		log:      _log,
	}
}

// Run выполняет один прогон синхронизации для всех клиентов. Юниты стартуют
// вместе и джойнятся до репортинга; отказ юнита не отменяет соседей. Ошибка
// возврата -- только отказ до веера (например, не загрузился индекс).
func (s *SyncService) Run(ctx context.Context, customers []Customer) (*Summary, error) {
	summary := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	s.log.Log("sync run %s started for %d customers", summary.RunID, len(customers))

	headers, rows, err := s.store.ReadAll(ctx, s.table)
	if err != nil {
		return nil, fmt.Errorf("loading persisted reviews from %s: %w", s.table, err)
	}
	if len(headers) == 0 {
		s.log.Log("WARN: table %s has no headers, falling back to canonical column order", s.table)
		headers = review.HeaderStrings()
	}
	s.warnMissingColumns(headers)

	index := BuildIndex(headers, rows)
	s.log.Log("existing index built: %d rows across %d (customer, store) pairs", len(rows), len(index))

	units := buildUnits(customers)
	if len(units) == 0 {
		s.log.Log("no units configured, nothing to do")
		return summary, nil
	}

	var runStats metrics.SyncMetrics
	results := make(chan unitResult, len(units))
	var wg gosync.WaitGroup
	for _, u := range units {
		wg.Add(1)
		go func(u unit) {
			defer wg.Done()
			results <- s.runUnit(ctx, u, headers, index)
		}(u)
	}
	wg.Wait()
	close(results)

	for res := range results {
		if res.err != nil {
			runStats.UnitsFailed.Add(1)
			metrics.RecordUnit(string(res.source), false)
			s.log.Log("unit %s/%s failed: %v", res.customer, res.source, res.err)
			summary.Failures = append(summary.Failures, UnitFailure{
				Customer: res.customer,
				Source:   res.source,
				Err:      res.err,
			})
			continue
		}
		runStats.UnitsOK.Add(1)
		runStats.ReviewsFetched.Add(int64(res.fetched))
		runStats.ReviewsNew.Add(int64(len(res.rows)))
		metrics.RecordUnit(string(res.source), true)
		summary.NewReviews = append(summary.NewReviews, res.rows...)
	}

	s.log.Log("sync run %s finished: %d units ok, %d failed, %d fetched, %d new reviews",
		summary.RunID, runStats.UnitsOK.Load(), runStats.UnitsFailed.Load(),
		runStats.ReviewsFetched.Load(), runStats.ReviewsNew.Load())
	return summary, nil
}

// warnMissingColumns один раз за прогон предупреждает о канонических полях,
// для которых в таблице нет колонки: их значения будут теряться при каждой
// записи. Только предупреждение, прогон продолжается.
func (s *SyncService) warnMissingColumns(headers []string) {
	present := make(map[review.Field]struct{}, len(headers))
	for _, h := range headers {
		present[review.Field(h)] = struct{}{}
	}
	var missing []review.Field
	for _, f := range review.Headers {
		if _, ok := present[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		s.log.Log("WARN: table %s has no columns for canonical fields %v, their values will be lost on append",
			s.table, missing)
	}
}

func buildUnits(customers []Customer) []unit {
	var units []unit
	for _, c := range customers {
		if c.PlayPackage != "" {
			units = append(units, unit{customer: c, source: SourcePlay})
		}
		if c.ArchiveBucket != "" && c.PlayPackage != "" {
			units = append(units, unit{customer: c, source: SourcePlayArchive})
		}
		if c.AppStoreAppID != "" {
			units = append(units, unit{customer: c, source: SourceAppStore})
		}
	}
	return units
}

// runUnit -- граница отказа одного юнита: наружу уходит только unitResult,
// паника превращается в ошибку.
func (s *SyncService) runUnit(ctx context.Context, u unit, headers []string, index ExistingIndex) (res unitResult) {
	res = unitResult{customer: u.customer.Name, source: u.source}
	defer func() {
		if r := recover(); r != nil {
			res.rows = nil
			res.err = fmt.Errorf("unit panic: %v", r)
		}
	}()

	ulog := s.log.WithPrefix(fmt.Sprintf("[%s/%s]", u.customer.Name, u.source))

	candidates, store, err := s.fetchCandidates(ctx, u, index, ulog)
	if err != nil {
		res.err = err
		return res
	}

	res.fetched = len(candidates)
	pair := index.Pair(u.customer.Name, store)
	fresh := Reconcile(candidates, pair)
	ulog.Log("fetched %d candidates, %d new after reconcile", len(candidates), len(fresh))
	if len(fresh) == 0 {
		return res
	}

	encoded := make([][]string, len(fresh))
	warned := false
	for i, r := range fresh {
		row, missing := review.ToRow(r, headers)
		if len(missing) > 0 && !warned {
			ulog.Log("WARN: table %s is missing columns %v, their values will be lost", s.table, missing)
			warned = true
		}
		encoded[i] = row
	}

	if err := s.store.Append(ctx, s.table, encoded); err != nil {
		res.err = fmt.Errorf("appending %d reviews: %w", len(encoded), err)
		return res
	}
	metrics.RecordAppended(store, len(fresh))

	res.rows = fresh
	return res
}

func (s *SyncService) fetchCandidates(ctx context.Context, u unit, index ExistingIndex, ulog logger.Logger) ([]review.Review, string, error) {
	switch u.source {
	case SourcePlay:
		if s.play == nil {
			return nil, review.StoreGooglePlay, fmt.Errorf("play source is not configured")
		}
		pair := index.Pair(u.customer.Name, review.StoreGooglePlay)
		raw, err := get.DrainPages(ctx,
			func(ctx context.Context, token string) (get.Page[responses.PlayReview], error) {
				page, err := s.play.FetchPage(ctx, u.customer.PlayPackage, token)
				if err == nil {
					metrics.RecordPage(string(SourcePlay))
				}
				return page, err
			},
			playContinue(pair.LatestDate),
		)
		if err != nil {
			return nil, review.StoreGooglePlay, fmt.Errorf("fetching play reviews: %w", err)
		}
		candidates := make([]review.Review, 0, len(raw))
		for _, r := range raw {
			candidates = append(candidates, normalize.FromPlayReview(u.customer.Name, u.customer.PlayPackage, r))
		}
		return candidates, review.StoreGooglePlay, nil

	case SourcePlayArchive:
		if s.archive == nil {
			return nil, review.StoreGooglePlay, fmt.Errorf("archive source is not configured")
		}
		raw, err := s.archive.FetchReviews(ctx, u.customer.ArchiveBucket, u.customer.PlayPackage)
		if err != nil {
			return nil, review.StoreGooglePlay, fmt.Errorf("fetching archived reviews: %w", err)
		}
		candidates := make([]review.Review, 0, len(raw))
		for _, r := range raw {
			candidates = append(candidates, normalize.FromArchiveRow(u.customer.Name, r))
		}
		return candidates, review.StoreGooglePlay, nil

	case SourceAppStore:
		if s.appstore == nil {
			return nil, review.StoreAppStore, fmt.Errorf("appstore source is not configured")
		}
		raw, err := get.DrainPages(ctx,
			func(ctx context.Context, token string) (get.Page[responses.AppStoreReview], error) {
				page, err := s.appstore.FetchPage(ctx, u.customer.AppStoreAppID, token)
				if err == nil {
					metrics.RecordPage(string(SourceAppStore))
				}
				return page, err
			},
			nil, // полная история: живой фид второго магазина и так короткий
		)
		if err != nil {
			return nil, review.StoreAppStore, fmt.Errorf("fetching appstore reviews: %w", err)
		}
		candidates := make([]review.Review, 0, len(raw))
		for _, r := range raw {
			candidates = append(candidates, normalize.FromAppStoreReview(u.customer.Name, u.customer.AppStoreAppID, r))
		}
		return candidates, review.StoreAppStore, nil
	}
	return nil, "", fmt.Errorf("unknown source %q", u.source)
}

// playContinue ограничивает число запросов к живому API: качаем, пока самая
// старая запись страницы новее последней известной даты. Это только экономия
// вызовов -- граница может содержать уже виденные отзывы, их отсеет сверка.
// Предполагается, что API отдаёт страницы по убыванию даты; если это не так,
// предикат может недокачать историю.
func playContinue(latest time.Time) get.ContinueFunc[responses.PlayReview] {
	if latest.IsZero() {
		return nil // хранилище пары пусто, качаем всю историю
	}
	return func(page get.Page[responses.PlayReview]) bool {
		oldest := time.Time{}
		for _, r := range page.Records {
			if t, ok := normalize.PlayReviewDate(r); ok {
				if oldest.IsZero() || t.Before(oldest) {
					oldest = t
				}
			}
		}
		if oldest.IsZero() {
			// на странице нет датированных записей, границу не определить
			return true
		}
		return oldest.After(latest)
	}
}
