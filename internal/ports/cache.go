package ports

import (
	"context"
	"time"
)

// Cache stores short-lived reference lookups, such as customer SLA records,
// keyed by string. A miss is found=false with a nil error. ttl <= 0 keeps the
// entry until it is deleted.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
