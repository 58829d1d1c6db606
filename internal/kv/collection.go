package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/presswire-api/internal/domain"
)

const maxMutateAttempts = 8

// ErrAbort can be returned from a Mutate callback to stop without writing
// and without an error surfacing to the caller.
var ErrAbort = fmt.Errorf("kv: mutation aborted")

// Collection stores JSON-encoded records of type T under a key prefix.
type Collection[T any] struct {
	store  Store
	prefix string
	ttl    time.Duration
}

// NewCollection binds a typed view over store. Every write uses ttl as
// the backend retention period.
func NewCollection[T any](store Store, prefix string, ttl time.Duration) *Collection[T] {
	return &Collection[T]{store: store, prefix: prefix + ":", ttl: ttl}
}

func (c *Collection[T]) key(id string) string { return c.prefix + id }

// Get loads the record stored under id.
func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	raw, err := c.store.Get(ctx, c.key(id))
	if err != nil {
		return nil, err
	}
	return c.decode(raw)
}

// Put overwrites the record stored under id.
func (c *Collection[T]) Put(ctx context.Context, id string, v *T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", c.prefix, err)
	}
	return c.store.Set(ctx, c.key(id), raw, c.ttl)
}

// Create stores v only if id is unused.
func (c *Collection[T]) Create(ctx context.Context, id string, v *T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", c.prefix, err)
	}
	ok, err := c.store.CompareAndSwap(ctx, c.key(id), nil, raw, c.ttl)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s%s already exists: %w", c.prefix, id, domain.ErrConflict)
	}
	return nil
}

// Delete removes id. Deleting a missing key is not an error.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.store.Delete(ctx, c.key(id))
}

// Mutate applies fn to the current record and writes the result back with
// compare-and-swap, retrying on concurrent modification. If fn returns an
// error nothing is written; ErrAbort is swallowed and the unmodified record
// returned.
func (c *Collection[T]) Mutate(ctx context.Context, id string, fn func(*T) error) (*T, error) {
	key := c.key(id)
	for attempt := 0; attempt < maxMutateAttempts; attempt++ {
		prev, err := c.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		v, err := c.decode(prev)
		if err != nil {
			return nil, err
		}
		if err := fn(v); err != nil {
			if err == ErrAbort {
				return v, nil
			}
			return nil, err
		}
		next, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", c.prefix, err)
		}
		ok, err := c.store.CompareAndSwap(ctx, key, prev, next, c.ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%s%s modified concurrently: %w", c.prefix, id, domain.ErrConflict)
}

// List returns every record in the collection keyed by id.
func (c *Collection[T]) List(ctx context.Context) (map[string]*T, error) {
	raws, err := c.store.Scan(ctx, c.prefix)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*T, len(raws))
	for k, raw := range raws {
		v, err := c.decode(raw)
		if err != nil {
			return nil, err
		}
		out[strings.TrimPrefix(k, c.prefix)] = v
	}
	return out, nil
}

func (c *Collection[T]) decode(raw []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", c.prefix, err)
	}
	return &v, nil
}
