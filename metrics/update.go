package metrics

import "sync/atomic"

// SyncMetrics -- счётчики одного прогона синхронизации.
type SyncMetrics struct {
	UnitsOK        atomic.Int64
	UnitsFailed    atomic.Int64
	ReviewsFetched atomic.Int64
	ReviewsNew     atomic.Int64
}
