package metrics

import (
	"context"
	"fmt"
	"time"
)

// Counter is the part of the record store the collector needs.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// StoreCollector implements the Collector interface on top of any record store
type StoreCollector struct {
	store Counter
}

// NewStoreCollector creates a new store-backed metrics collector
func NewStoreCollector(store Counter) *StoreCollector {
	return &StoreCollector{
		store: store,
	}
}

// Collect gathers all metrics from the store
func (c *StoreCollector) Collect(ctx context.Context) (Metrics, error) {
	records, err := c.GetRecordCount(ctx)
	if err != nil {
		return Metrics{}, err
	}

	return Metrics{
		Records:   records,
		Timestamp: time.Now(),
	}, nil
}

// GetRecordCount returns the number of stored webhooks
func (c *StoreCollector) GetRecordCount(ctx context.Context) (int64, error) {
	n, err := c.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}
