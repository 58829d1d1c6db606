package kv

import (
	"context"
	"testing"
	"time"

	"github.com/presswire-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowStore blocks every Get until the context ends.
type slowStore struct{ *MemoryStore }

func (slowStore) Get(ctx context.Context, _ string) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestWithTimeout_MapsDeadlineToUnavailable(t *testing.T) {
	s := WithTimeout(slowStore{NewMemoryStore()}, 10*time.Millisecond)
	_, err := s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestWithTimeout_PassesThrough(t *testing.T) {
	s := WithTimeout(NewMemoryStore(), time.Second)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	_, err = s.Get(ctx, "missing")
	assert.True(t, IsNotFound(err))
}

func TestWithTimeout_ZeroIsIdentity(t *testing.T) {
	m := NewMemoryStore()
	assert.Same(t, m, WithTimeout(m, 0))
}
