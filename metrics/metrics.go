package metrics

import (
	"context"
	"time"
)

// Metrics is a point-in-time view of the record store.
type Metrics struct {
	// Records is the number of captured webhooks currently stored
	Records int64 `json:"records"`

	// Timestamp when metrics were collected
	Timestamp time.Time `json:"timestamp"`
}

// Collector defines the interface for collecting metrics from the record store.
type Collector interface {
	// Collect gathers current metrics from the system
	Collect(ctx context.Context) (Metrics, error)

	// GetRecordCount returns the number of stored webhooks
	GetRecordCount(ctx context.Context) (int64, error)
}
