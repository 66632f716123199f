package migration

import "database/sql"

// MigrationInterface -- одна идемпотентная миграция схемы отзывов; уже
// применённая миграция пропускается через реестр.
type MigrationInterface interface {
	UpMigration(*sql.DB) error
}
