package infrastructure

import (
	"database/sql"
	"fmt"
	"log"
)

// CreateMigrationsRegistry создаёт схему и таблицу учёта применённых миграций.
// Применяется первой.
type CreateMigrationsRegistry struct{}

func (m *CreateMigrationsRegistry) UpMigration(db *sql.DB) error {
	query := `
	CREATE SCHEMA IF NOT EXISTS migrations;
	CREATE TABLE IF NOT EXISTS migrations.migrations (
		name VARCHAR(255) PRIMARY KEY,
		time TIMESTAMP NOT NULL
	);`
	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create migrations registry: %w", err)
	}
	log.Println("Migrations registry is ready.")
	return nil
}

// CheckAndSkipMigration возвращает true, если миграция уже применялась.
func CheckAndSkipMigration(db *sql.DB, migrationName string) (bool, error) {
	var migrationExists bool
	err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM migrations.migrations WHERE name = $1)", migrationName).Scan(&migrationExists)
	if err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	if migrationExists {
		log.Printf("Migration '%s' already completed. Skipping.", migrationName)
	}
	return migrationExists, nil
}

// ExecuteAndMarkMigration применяет запрос и отмечает миграцию выполненной.
func ExecuteAndMarkMigration(db *sql.DB, query, migrationName string) error {
	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to apply migration '%s': %w", migrationName, err)
	}
	_, err = db.Exec("INSERT INTO migrations.migrations (name, time) VALUES ($1, current_timestamp)", migrationName)
	if err != nil {
		return fmt.Errorf("failed to mark migration '%s' as complete: %w", migrationName, err)
	}
	return nil
}
