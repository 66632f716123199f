package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ReviewRepository работает с таблицей отзывов как с безтиповым набором
// (заголовки, строки): порядок колонок диктует сама таблица, а не движок.
// Все значения читаются и пишутся как текст; null-сентинел кодирует и
// декодирует модель, сюда он приходит готовой строкой.
type ReviewRepository struct {
	db     *sql.DB
	schema string
}

func NewReviewRepository(db *sql.DB, schema string) *ReviewRepository {
	return &ReviewRepository{db: db, schema: schema}
}

// ReadAll возвращает заголовки таблицы в её собственном порядке колонок и все
// строки как текст. Для несуществующей таблицы -- пустые заголовки без ошибки:
// решать, что с этим делать, будет вызывающая сторона.
func (r *ReviewRepository) ReadAll(ctx context.Context, table string) ([]string, [][]string, error) {
	headers, err := r.tableColumns(ctx, table)
	if err != nil {
		return nil, nil, err
	}
	if len(headers) == 0 {
		return nil, nil, nil
	}

	quoted := make([]string, len(headers))
	for i, h := range headers {
		quoted[i] = pq.QuoteIdentifier(h)
	}
	query := fmt.Sprintf("SELECT %s FROM %s.%s",
		strings.Join(quoted, ", "), pq.QuoteIdentifier(r.schema), pq.QuoteIdentifier(table))

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s.%s: %w", r.schema, table, err)
	}
	defer rows.Close()

	var result [][]string
	for rows.Next() {
		values := make([]sql.NullString, len(headers))
		scanTargets := make([]interface{}, len(headers))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, nil, fmt.Errorf("scanning review row: %w", err)
		}
		row := make([]string, len(headers))
		for i, v := range values {
			if v.Valid {
				row[i] = v.String
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating review rows: %w", err)
	}

	return headers, result, nil
}

// Append дописывает строки в конец таблицы одной транзакцией: конкурентные
// юниты добавляют непересекающиеся пачки, и частично записанная пачка нам не
// нужна. Строки должны соответствовать порядку заголовков из ReadAll.
func (r *ReviewRepository) Append(ctx context.Context, table string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	headers, err := r.tableColumns(ctx, table)
	if err != nil {
		return err
	}
	if len(headers) == 0 {
		return fmt.Errorf("table %s.%s does not exist", r.schema, table)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting append transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyInSchema(r.schema, table, headers...))
	if err != nil {
		return fmt.Errorf("preparing append statement: %w", err)
	}

	for _, row := range rows {
		if len(row) != len(headers) {
			stmt.Close()
			return fmt.Errorf("row has %d values, table %s.%s has %d columns", len(row), r.schema, table, len(headers))
		}
		args := make([]interface{}, len(row))
		for i, v := range row {
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			stmt.Close()
			return fmt.Errorf("buffering review row: %w", err)
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("flushing append: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("closing append statement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing append: %w", err)
	}
	return nil
}

func (r *ReviewRepository) tableColumns(ctx context.Context, table string) ([]string, error) {
	query := `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`

	rows, err := r.db.QueryContext(ctx, query, r.schema, table)
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s.%s: %w", r.schema, table, err)
	}
	defer rows.Close()

	var headers []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning column name: %w", err)
		}
		headers = append(headers, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating columns: %w", err)
	}
	return headers, nil
}
