package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/presswire-api/internal/domain"
)

type timeoutStore struct {
	next    Store
	timeout time.Duration
}

// WithTimeout bounds every call on s by d. A call that runs out of time
// returns an error wrapping domain.ErrUnavailable. d <= 0 returns s unchanged.
func WithTimeout(s Store, d time.Duration) Store {
	if d <= 0 {
		return s
	}
	return &timeoutStore{next: s, timeout: d}
}

func (t *timeoutStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, t.timeout)
}

func timedOut(op string, err error) error {
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("kv %s: %v: %w", op, err, domain.ErrUnavailable)
	}
	return err
}

func (t *timeoutStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	v, err := t.next.Get(ctx, key)
	return v, timedOut("get", err)
}

func (t *timeoutStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	return timedOut("set", t.next.Set(ctx, key, value, ttl))
}

func (t *timeoutStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	return timedOut("delete", t.next.Delete(ctx, key))
}

func (t *timeoutStore) CompareAndSwap(ctx context.Context, key string, prev, next []byte, ttl time.Duration) (bool, error) {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	ok, err := t.next.CompareAndSwap(ctx, key, prev, next, ttl)
	return ok, timedOut("cas", err)
}

func (t *timeoutStore) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	m, err := t.next.Scan(ctx, prefix)
	return m, timedOut("scan", err)
}
