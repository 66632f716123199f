package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"reviewsync_api/config"
	"reviewsync_api/pkg/business/service"
)

const connectAttempts = 10
const dbMaxOpenConns = 20
const connectRetryDelay = 5 * time.Second

type PostgresDatabase struct {
	config.DatabaseConfig
	db *sql.DB
	mu sync.Mutex // Для защиты доступа к db
}

func NewPgConnector(dbConfig config.DatabaseConfig) *PostgresDatabase {
	return &PostgresDatabase{DatabaseConfig: dbConfig}
}

// Connect открывает соединение с повторами: подключение к базе идемпотентно,
// поэтому обёрнуто в service.Retry.
func (pg *PostgresDatabase) Connect() (*sql.DB, error) {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	if pg.db != nil {
		return pg.db, nil
	}

	conStr := pg.GetConnectionString()
	err := service.Retry(context.Background(), connectAttempts, connectRetryDelay, func(ctx context.Context) error {
		db, err := sql.Open("postgres", conStr)
		if err != nil {
			log.Printf("Failed to open Postgres connection: %v", err)
			return err
		}
		db.SetMaxOpenConns(dbMaxOpenConns)

		if err := db.PingContext(ctx); err != nil {
			log.Printf("Failed to ping Postgres db: %v", err)
			db.Close()
			return err
		}

		pg.db = db
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Successfully connected to Postgres")
	return pg.db, nil
}

func (pg *PostgresDatabase) Ping() error {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	if pg.db == nil {
		return fmt.Errorf("database connection is not established")
	}

	if err := pg.db.Ping(); err != nil {
		pg.db.Close()
		pg.db = nil
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}
