package repositories

import (
	"context"
	"time"
)

// DashboardCache is a best-effort byte cache for serialized dashboard stats.
type DashboardCache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
