package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/time/rate"

	"reviewsync_api/config"
	"reviewsync_api/internal/reviews/business/services"
	"reviewsync_api/internal/reviews/business/services/get"
	"reviewsync_api/internal/reviews/business/services/sync"
	"reviewsync_api/internal/reviews/storage"
	"reviewsync_api/migrations/infrastructure"
	"reviewsync_api/migrations/stores"
	"reviewsync_api/pkg/dbconnect"
	"reviewsync_api/pkg/dbconnect/migration"
	"reviewsync_api/pkg/logger"
)

const (
	playScope        = "https://www.googleapis.com/auth/androidpublisher"
	gcsReadOnlyScope = "https://www.googleapis.com/auth/devstorage.read_only"

	defaultPlayRatePerMinute     = 50
	defaultAppStoreRatePerMinute = 30

	reviewsSchema = "reviews"
)

// SyncServer собирает зависимости одного прогона синхронизации: подключение к
// базе, миграции, авторизацию источников и сам оркестратор.
type SyncServer struct {
	dbconnect.Database
	cfg    *config.AppConfig
	table  string
	log    logger.Logger
	writer io.Writer
}

func NewSyncServer(connector dbconnect.Database, cfg *config.AppConfig, table string, writer io.Writer) *SyncServer {
	_log := logger.NewLogger(writer, "[SyncServer]")
	return &SyncServer{Database: connector, cfg: cfg, table: table, log: _log, writer: writer}
}

// Run выполняет один прогон и возвращает агрегированный итог. Ошибка здесь --
// отказ до старта юнитов (конфигурация, база, индекс); отказы самих юнитов
// изолированы и приходят внутри Summary.
func (s *SyncServer) Run(ctx context.Context) (*sync.Summary, error) {
	db, err := s.Connect()
	if err != nil {
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}

	migrationApply := []migration.MigrationInterface{
		&infrastructure.CreateMigrationsRegistry{},
		&stores.CreateReviewsSchema{},
		&stores.CreateReviewsTable{},
	}
	for _, _migration := range migrationApply {
		if err := _migration.UpMigration(db); err != nil {
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}
	s.log.Log("review table migrations applied")

	customers := toSyncCustomers(s.cfg.Customers)
	if err := s.checkCredentials(customers); err != nil {
		return nil, err
	}

	var playSource sync.PlaySource
	var archiveSource sync.ArchiveSource
	if s.cfg.Play.CredentialsFile != "" {
		playAuth, err := services.NewServiceAccountAuth(s.cfg.Play.CredentialsFile, playScope)
		if err != nil {
			return nil, fmt.Errorf("configuring play auth: %w", err)
		}
		playSource = get.NewPlayReviewsClient(playAuth, perMinuteLimiter(s.cfg.Play.RateLimitPerMinute, defaultPlayRatePerMinute))

		archiveAuth, err := services.NewServiceAccountAuth(s.cfg.Play.CredentialsFile, gcsReadOnlyScope)
		if err != nil {
			return nil, fmt.Errorf("configuring archive auth: %w", err)
		}
		archiveSource = storage.NewArchiveClient(archiveAuth, s.log.WithPrefix("[archive]"))
	}

	var appstoreSource sync.AppStoreSource
	if s.cfg.AppStore.KeyFile != "" {
		appstoreAuth, err := services.NewAppStoreTokenAuth(s.cfg.AppStore.KeyID, s.cfg.AppStore.IssuerID, s.cfg.AppStore.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("configuring appstore auth: %w", err)
		}
		appstoreSource = get.NewAppStoreReviewsClient(appstoreAuth, perMinuteLimiter(s.cfg.AppStore.RateLimitPerMinute, defaultAppStoreRatePerMinute))
	}

	repository := storage.NewReviewRepository(db, reviewsSchema)
	syncService := sync.NewSyncService(s.table, repository, playSource, appstoreSource, archiveSource, s.log)

	return syncService.Run(ctx, customers)
}

// checkCredentials валидирует соответствие источников и ключей до старта
// юнитов: дырявая конфигурация -- фатальная ошибка, а не отказ юнита.
func (s *SyncServer) checkCredentials(customers []sync.Customer) error {
	for _, c := range customers {
		if c.PlayPackage != "" && s.cfg.Play.CredentialsFile == "" {
			return fmt.Errorf("customer %s has a play source but play.credentials_file is not set", c.Name)
		}
		if c.AppStoreAppID != "" && s.cfg.AppStore.KeyFile == "" {
			return fmt.Errorf("customer %s has an appstore source but appstore.key_file is not set", c.Name)
		}
	}
	return nil
}

func toSyncCustomers(configured []config.CustomerSync) []sync.Customer {
	customers := make([]sync.Customer, 0, len(configured))
	for _, c := range configured {
		customer := sync.Customer{Name: c.Name}
		if c.Play != nil {
			customer.PlayPackage = c.Play.PackageName
			customer.ArchiveBucket = c.Play.ArchiveBucket
		}
		if c.AppStore != nil {
			customer.AppStoreAppID = c.AppStore.AppID
		}
		customers = append(customers, customer)
	}
	return customers
}

func perMinuteLimiter(perMinute, fallback int) *rate.Limiter {
	if perMinute <= 0 {
		perMinute = fallback
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}
