package release

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/presswire-api/internal/config"
	"github.com/presswire-api/internal/domain"
	"github.com/presswire-api/internal/kv"
	"github.com/presswire-api/internal/pkg/clock"
	"github.com/presswire-api/internal/pkg/dispatch"
	"github.com/presswire-api/internal/pkg/metrics"
	pkgtoken "github.com/presswire-api/internal/pkg/token"
)

const (
	EditWindow          = 24 * time.Hour
	ManagementWindow    = 7 * 24 * time.Hour
	DefaultExtendDays   = 30
	MaxExtendDays       = 365
	DefaultUnpublishWhy = "User requested"
)

type Repository interface {
	Get(ctx context.Context, token string) (*domain.Release, error)
	Create(ctx context.Context, token string, v *domain.Release) error
	Mutate(ctx context.Context, token string, fn func(*domain.Release) error) (*domain.Release, error)
}

// Refresher re-renders the public artifact after a release changes.
type Refresher interface {
	Refresh(ctx context.Context, rel *domain.Release) error
}

// PaymentRedeemer turns a payment proof into a consumed payment, and gives
// it back when the extension it paid for could not be applied.
type PaymentRedeemer interface {
	Redeem(ctx context.Context, sessionID string) (*domain.Payment, error)
	Restore(ctx context.Context, redeemed *domain.Payment) error
}

type Dispatcher interface {
	Submit(kind string, job dispatch.Job) bool
}

// Service is the management-token store. Every mutation is a compare-and-swap
// read-modify-write of the single record keyed by the management token.
type Service interface {
	Issue(ctx context.Context, in domain.ReleaseInput) (*domain.Release, error)
	Get(ctx context.Context, token string) (*domain.Release, error)
	View(ctx context.Context, token string) (*domain.PublicRelease, error)
	Edit(ctx context.Context, token string, edit domain.ReleaseEdit) (*domain.Release, error)
	Unpublish(ctx context.Context, token, reason string) (*domain.Release, error)
	Extend(ctx context.Context, token string, days int, paymentProof string) (*domain.Release, error)
}

type ServiceDeps struct {
	Releases   Repository
	Refresher  Refresher
	Payments   PaymentRedeemer
	Dispatcher Dispatcher
	Mode       config.Mode
	Clock      clock.Func
}

type service struct {
	releases   Repository
	refresher  Refresher
	payments   PaymentRedeemer
	dispatcher Dispatcher
	mode       config.Mode
	now        clock.Func
}

func NewService(d ServiceDeps) Service {
	return &service{
		releases:   d.Releases,
		refresher:  d.Refresher,
		payments:   d.Payments,
		dispatcher: d.Dispatcher,
		mode:       d.Mode,
		now:        clock.OrReal(d.Clock),
	}
}

// NewCollection binds the release repository to a kv store. Records never expire.
func NewCollection(store kv.Store) *kv.Collection[domain.Release] {
	return kv.NewCollection[domain.Release](store, "release", 0)
}

// Accessible reports whether the management token still grants access at now.
func Accessible(rel *domain.Release, now time.Time) bool {
	if now.Sub(rel.CreatedAt) <= ManagementWindow {
		return true
	}
	if !rel.Extended {
		return false
	}
	return rel.ExpiresAt == nil || !now.After(*rel.ExpiresAt)
}

// Editable reports whether content may still change at now.
func Editable(rel *domain.Release, now time.Time) bool {
	return now.Sub(rel.CreatedAt) <= EditWindow
}

func (s *service) Issue(ctx context.Context, in domain.ReleaseInput) (*domain.Release, error) {
	tok, err := pkgtoken.NewOpaque()
	if err != nil {
		return nil, err
	}
	rel := &domain.Release{
		ManagementToken: tok,
		Slug:            in.Slug,
		URL:             in.URL,
		Headline:        in.Headline,
		Summary:         in.Summary,
		Content:         in.Content,
		Boilerplate:     in.Boilerplate,
		KeyPoints:       in.KeyPoints,
		Contact:         in.Contact,
		Company:         in.Company,
		VerifiedDomain:  in.VerifiedDomain,
		Package:         in.Package,
		CreatedAt:       s.now(),
		Published:       true,
	}
	if err := s.releases.Create(ctx, tok, rel); err != nil {
		return nil, fmt.Errorf("store management record: %v: %w", err, domain.ErrUpstream)
	}
	return rel, nil
}

func (s *service) Get(ctx context.Context, token string) (*domain.Release, error) {
	if token == "" {
		return nil, domain.ErrTokenMissing
	}
	rel, err := s.releases.Get(ctx, token)
	if kv.IsNotFound(err) {
		return nil, notFound()
	}
	if err != nil {
		return nil, fmt.Errorf("load management record: %v: %w", err, domain.ErrUpstream)
	}
	if !Accessible(rel, s.now()) {
		return nil, notFound()
	}
	return rel, nil
}

// notFound hides whether an expired token ever existed.
func notFound() error {
	return fmt.Errorf("invalid or expired management token: %w", domain.ErrNotFound)
}

func (s *service) View(ctx context.Context, token string) (*domain.PublicRelease, error) {
	rel, err := s.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	return Public(rel, s.now()), nil
}

// Public strips the management token from rel.
func Public(rel *domain.Release, now time.Time) *domain.PublicRelease {
	return &domain.PublicRelease{
		Slug:           rel.Slug,
		URL:            rel.URL,
		Headline:       rel.Headline,
		Summary:        rel.Summary,
		Content:        rel.Content,
		Contact:        rel.Contact,
		Company:        rel.Company,
		VerifiedDomain: rel.VerifiedDomain,
		CreatedAt:      rel.CreatedAt,
		Published:      rel.Published,
		EditCount:      rel.EditCount,
		LastEdited:     rel.LastEdited,
		UnpublishedAt:  rel.UnpublishedAt,
		Extended:       rel.Extended,
		ExpiresAt:      rel.ExpiresAt,
		CanEdit:        Editable(rel, now),
		EditDeadline:   rel.CreatedAt.Add(EditWindow),
	}
}

// mutate runs fn against the live record, re-checking access on every CAS attempt.
func (s *service) mutate(ctx context.Context, action, token string, fn func(*domain.Release, time.Time) error) (*domain.Release, error) {
	if token == "" {
		return nil, domain.ErrTokenMissing
	}
	rel, err := s.releases.Mutate(ctx, token, func(r *domain.Release) error {
		now := s.now()
		if !Accessible(r, now) {
			return notFound()
		}
		return fn(r, now)
	})
	switch {
	case kv.IsNotFound(err):
		err = notFound()
	case err != nil && !isDomainErr(err):
		err = fmt.Errorf("%s: %v: %w", action, err, domain.ErrUpstream)
	}
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	metrics.ManagementActions.WithLabelValues(action, outcome).Inc()
	return rel, err
}

func isDomainErr(err error) bool {
	for _, e := range []error{domain.ErrNotFound, domain.ErrBadRequest, domain.ErrForbidden, domain.ErrPaymentRequired, domain.ErrUnauthorized, domain.ErrConflict} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

func (s *service) Edit(ctx context.Context, token string, edit domain.ReleaseEdit) (*domain.Release, error) {
	if edit.Headline == nil && edit.Summary == nil && edit.Content == nil && edit.Contact == nil {
		return nil, domain.ErrNoValidUpdates
	}
	rel, err := s.mutate(ctx, "edit-pr", token, func(r *domain.Release, now time.Time) error {
		if !Editable(r, now) {
			return domain.ErrEditWindowExpired
		}
		if edit.Headline != nil {
			r.Headline = *edit.Headline
		}
		if edit.Summary != nil {
			r.Summary = *edit.Summary
		}
		if edit.Content != nil {
			r.Content = *edit.Content
		}
		if edit.Contact != nil {
			r.Contact = *edit.Contact
		}
		r.EditCount++
		r.LastEdited = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.refresh(rel)
	return rel, nil
}

func (s *service) Unpublish(ctx context.Context, token, reason string) (*domain.Release, error) {
	if reason == "" {
		reason = DefaultUnpublishWhy
	}
	changed := false
	rel, err := s.mutate(ctx, "unpublish-pr", token, func(r *domain.Release, now time.Time) error {
		if !r.Published {
			return kv.ErrAbort
		}
		r.Published = false
		r.UnpublishedAt = &now
		r.UnpublishReason = reason
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.refresh(rel)
	}
	return rel, nil
}

func (s *service) Extend(ctx context.Context, token string, days int, paymentProof string) (*domain.Release, error) {
	if days == 0 {
		days = DefaultExtendDays
	}
	if days < 0 || days > MaxExtendDays {
		return nil, fmt.Errorf("extension days must be between 1 and %d: %w", MaxExtendDays, domain.ErrBadRequest)
	}
	if _, err := s.Get(ctx, token); err != nil {
		return nil, err
	}
	paid, err := s.checkProof(ctx, paymentProof)
	if err != nil {
		return nil, err
	}
	rel, err := s.mutate(ctx, "extend-pr", token, func(r *domain.Release, now time.Time) error {
		exp := now.Add(time.Duration(days) * 24 * time.Hour)
		r.Extended = true
		r.ExtensionDate = &now
		r.ExpiresAt = &exp
		return nil
	})
	if err != nil && paid != nil {
		s.restoreProof(ctx, paid)
	}
	return rel, err
}

// checkProof requires a payment outside development and test. When a
// redeemer is wired the proof must be a paid, unclaimed checkout session,
// which is returned consumed.
func (s *service) checkProof(ctx context.Context, proof string) (*domain.Payment, error) {
	if proof == "" {
		if s.mode.IsProduction() {
			return nil, domain.ErrPaymentProofMissing
		}
		return nil, nil
	}
	if s.payments == nil {
		return nil, nil
	}
	p, err := s.payments.Redeem(ctx, proof)
	if err != nil {
		return nil, fmt.Errorf("extension payment: %v: %w", err, domain.ErrPaymentRequired)
	}
	return p, nil
}

// restoreProof hands a spent session back after the extension failed.
// A failed restore is logged at error level so an operator can reconcile it.
func (s *service) restoreProof(ctx context.Context, paid *domain.Payment) {
	if err := s.payments.Restore(context.WithoutCancel(ctx), paid); err != nil {
		slog.Error("extension payment spent without extension", "session", paid.SessionID, "err", err)
		return
	}
	slog.Warn("extension failed, payment restored", "session", paid.SessionID)
}

func (s *service) refresh(rel *domain.Release) {
	if s.refresher == nil || s.dispatcher == nil {
		return
	}
	snapshot := *rel
	ok := s.dispatcher.Submit("release-refresh", func(ctx context.Context) error {
		return s.refresher.Refresh(ctx, &snapshot)
	})
	if !ok {
		slog.Warn("release refresh not queued", "slug", rel.Slug)
	}
}
