package service

import (
	"context"
	"fmt"
	"time"
)

// Retry -- ограниченный повтор идемпотентной операции с фиксированной паузой.
// Основной конвейер синхронизации его не использует: корректность там
// обеспечивается повторным прогоном целиком. Примитив предназначен для
// идемпотентных операций, где повтор безопасен (подключение к базе, fetch).
func Retry(ctx context.Context, attempts int, interval time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		return fmt.Errorf("retry: attempts must be positive, got %d", attempts)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
