// Package kv is the key-value storage abstraction every stateful component
// sits on. Backends provide get/set/delete and a single-key compare-and-swap;
// Collection layers typed JSON records and read-modify-write on top.
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/presswire-api/internal/domain"
)

// ErrNotFound is returned by every backend when a key is absent or expired.
var ErrNotFound = fmt.Errorf("kv: key not found: %w", domain.ErrNotFound)

// Store is implemented by the memory, DynamoDB and Redis backends.
// A ttl of zero means the key never expires.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// CompareAndSwap writes next only if the stored value equals prev.
	// A nil prev means the key must not exist. Reports whether the write happened.
	CompareAndSwap(ctx context.Context, key string, prev, next []byte, ttl time.Duration) (bool, error)
	// Scan returns every live key with the given prefix.
	Scan(ctx context.Context, prefix string) (map[string][]byte, error)
}

// IsNotFound reports whether err means the key was absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
