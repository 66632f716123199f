package stores

import (
	"database/sql"
	"fmt"
	"log"

	"reviewsync_api/migrations/infrastructure"
)

type CreateReviewsSchema struct{}

func (m *CreateReviewsSchema) UpMigration(db *sql.DB) error {
	query := `
	CREATE SCHEMA IF NOT EXISTS reviews;`
	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create schema reviews: %w", err)
	}
	return nil
}

// CreateReviewsTable создаёт таблицу отзывов: по колонке на каждое каноническое
// поле, всё текстом. Отсутствующие значения хранятся null-сентинелом, который
// кодирует модель, поэтому NOT NULL здесь уместен.
type CreateReviewsTable struct{}

func (m *CreateReviewsTable) UpMigration(db *sql.DB) error {
	if ok, err := infrastructure.CheckAndSkipMigration(db, "reviews.reviews"); err != nil {
		return err
	} else if ok {
		return nil
	}
	query := `
	CREATE TABLE IF NOT EXISTS reviews.reviews (
		customer TEXT NOT NULL,
		store TEXT NOT NULL,
		app_id TEXT NOT NULL,
		review_id TEXT NOT NULL,
		date TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		rating TEXT NOT NULL,
		author TEXT NOT NULL,
		territory TEXT NOT NULL,
		language TEXT NOT NULL,
		device TEXT NOT NULL,
		app_version_code TEXT NOT NULL,
		app_version_name TEXT NOT NULL,
		os_version TEXT NOT NULL,
		thumbs_up TEXT NOT NULL,
		thumbs_down TEXT NOT NULL,
		reply_date TEXT NOT NULL,
		reply_body TEXT NOT NULL,
		device_product TEXT NOT NULL,
		device_manufacturer TEXT NOT NULL,
		screen_width TEXT NOT NULL,
		screen_height TEXT NOT NULL,
		screen_density TEXT NOT NULL,
		native_platform TEXT NOT NULL,
		gl_es_version TEXT NOT NULL,
		cpu_make TEXT NOT NULL,
		cpu_model TEXT NOT NULL,
		ram_mb TEXT NOT NULL,
		misc TEXT NOT NULL,
		review_link TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS reviews_pair_idx ON reviews.reviews (customer, store);`
	if err := infrastructure.ExecuteAndMarkMigration(db, query, "reviews.reviews"); err != nil {
		return err
	}
	log.Println("Migration 'reviews.reviews' completed successfully.")
	return nil
}
