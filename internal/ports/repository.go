package ports

import (
	"context"

	"pnlmonitor/internal/domain"
)

// TradeHistoryRepository defines the interface for the persistence
// collaborator. The engine treats it as an opaque key-value store keyed by
// trading day (YYYY-MM-DD); the concrete storage format is the adapter's
// business.
type TradeHistoryRepository interface {
	// LoadAll retrieves the full trade history, keyed by trading day.
	LoadAll(ctx context.Context) (map[string][]*domain.Execution, error)
	// SaveDay replaces the stored executions for one trading day.
	SaveDay(ctx context.Context, day string, execs []*domain.Execution) error
	// Close releases the underlying storage.
	Close() error
}
