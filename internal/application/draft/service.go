package draft

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/presswire-api/internal/domain"
	"github.com/presswire-api/internal/kv"
	"github.com/presswire-api/internal/pkg/clock"
	"github.com/presswire-api/internal/pkg/id"
	"github.com/presswire-api/internal/pkg/validate"
)

const (
	TTL       = 24 * time.Hour
	retention = TTL + time.Hour
)

type Repository interface {
	Get(ctx context.Context, id string) (*domain.Draft, error)
	Create(ctx context.Context, id string, v *domain.Draft) error
	Delete(ctx context.Context, id string) error
}

// Service parks release input while the customer is at checkout.
type Service interface {
	Store(ctx context.Context, req domain.GenerateRequest) (*domain.Draft, error)
	Get(ctx context.Context, id string) (*domain.Draft, error)
}

type ServiceDeps struct {
	Drafts Repository
	Clock  clock.Func
}

type service struct {
	drafts Repository
	now    clock.Func
}

func NewService(d ServiceDeps) Service {
	return &service{drafts: d.Drafts, now: clock.OrReal(d.Clock)}
}

// NewCollection binds the draft repository to a kv store.
func NewCollection(store kv.Store) *kv.Collection[domain.Draft] {
	return kv.NewCollection[domain.Draft](store, "draft", retention)
}

func (s *service) Store(ctx context.Context, req domain.GenerateRequest) (*domain.Draft, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	now := s.now()
	d := &domain.Draft{
		ID:        id.NewDraftID(),
		Request:   req,
		CreatedAt: now,
		ExpiresAt: now.Add(TTL),
	}
	if err := s.drafts.Create(ctx, d.ID, d); err != nil {
		return nil, fmt.Errorf("store draft: %v: %w", err, domain.ErrUpstream)
	}
	return d, nil
}

func (s *service) Get(ctx context.Context, draftID string) (*domain.Draft, error) {
	if !strings.HasPrefix(draftID, id.DraftPrefix) {
		return nil, fmt.Errorf("draft id must start with %s: %w", id.DraftPrefix, domain.ErrBadRequest)
	}
	d, err := s.drafts.Get(ctx, draftID)
	if kv.IsNotFound(err) {
		return nil, fmt.Errorf("draft not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %v: %w", err, domain.ErrUpstream)
	}
	if s.now().After(d.ExpiresAt) {
		if err := s.drafts.Delete(ctx, draftID); err != nil {
			slog.Warn("failed to delete expired draft", "draft_id", draftID, "err", err)
		}
		return nil, fmt.Errorf("draft expired: %w", domain.ErrNotFound)
	}
	return d, nil
}
