package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/presswire-api/internal/domain"
	jwtinfra "github.com/presswire-api/internal/infrastructure/jwt"
	stripeinfra "github.com/presswire-api/internal/infrastructure/stripe"
	"github.com/presswire-api/internal/kv"
	"github.com/presswire-api/internal/pkg/clock"
)

// GrantTTL is how long a claimed payment bearer may be presented to the gate.
const (
	GrantTTL  = 5 * time.Minute
	retention = 90 * 24 * time.Hour
)

type Repository interface {
	Create(ctx context.Context, sessionID string, v *domain.Payment) error
	Mutate(ctx context.Context, sessionID string, fn func(*domain.Payment) error) (*domain.Payment, error)
}

type WebhookVerifier interface {
	VerifySignature(payload []byte, signature string) (*stripeinfra.Event, error)
}

type GrantSigner interface {
	Sign(prefix string, c jwtinfra.Claims, issuedAt time.Time) (string, error)
}

type DiscountRedeemer interface {
	Redeem(ctx context.Context, code string) (*domain.DiscountCode, error)
}

// Service records completed checkouts and hands each one out exactly once,
// either as a publish bearer or as proof for a management extension.
type Service interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*domain.WebhookAck, error)
	Claim(ctx context.Context, sessionID string) (*domain.PaymentGrant, error)
	Redeem(ctx context.Context, sessionID string) (*domain.Payment, error)
	Restore(ctx context.Context, redeemed *domain.Payment) error
}

type ServiceDeps struct {
	Payments  Repository
	Verifier  WebhookVerifier
	Signer    GrantSigner
	Discounts DiscountRedeemer
	Timeout   time.Duration
	Clock     clock.Func
}

type service struct {
	payments  Repository
	verifier  WebhookVerifier
	signer    GrantSigner
	discounts DiscountRedeemer
	timeout   time.Duration
	now       clock.Func
}

func NewService(d ServiceDeps) Service {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &service{
		payments:  d.Payments,
		verifier:  d.Verifier,
		signer:    d.Signer,
		discounts: d.Discounts,
		timeout:   timeout,
		now:       clock.OrReal(d.Clock),
	}
}

// NewCollection binds the payment repository to a kv store.
func NewCollection(store kv.Store) *kv.Collection[domain.Payment] {
	return kv.NewCollection[domain.Payment](store, "payment", retention)
}

func (s *service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*domain.WebhookAck, error) {
	ev, err := s.verifier.VerifySignature(payload, signature)
	if err != nil {
		return nil, err
	}
	ack := &domain.WebhookAck{Received: true, Type: ev.Type}
	if ev.Checkout == nil {
		slog.Info("ignoring payment event", "event_id", ev.ID, "type", ev.Type)
		return ack, nil
	}
	cs := ev.Checkout
	if !cs.Paid || cs.SessionID == "" {
		slog.Info("checkout completed without payment", "session_id", cs.SessionID)
		return ack, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	p := &domain.Payment{
		SessionID:    cs.SessionID,
		Email:        cs.Email,
		Package:      cs.Package,
		AmountTotal:  cs.AmountTotal,
		Currency:     cs.Currency,
		DraftID:      cs.DraftID,
		DiscountCode: strings.ToUpper(cs.DiscountCode),
		PaidAt:       s.now(),
	}
	err = s.payments.Create(ctx, cs.SessionID, p)
	if errors.Is(err, domain.ErrConflict) {
		// Provider retries deliver the same session again.
		slog.Info("duplicate checkout delivery", "session_id", cs.SessionID)
		return ack, nil
	}
	if err != nil {
		return nil, fmt.Errorf("record payment: %v: %w", err, domain.ErrUpstream)
	}
	ack.Recorded = true

	if p.DiscountCode != "" && s.discounts != nil {
		if _, err := s.discounts.Redeem(ctx, p.DiscountCode); err != nil {
			slog.Warn("discount redemption failed", "session_id", cs.SessionID, "code", p.DiscountCode, "err", err)
		}
	}
	slog.Info("payment recorded", "session_id", cs.SessionID, "package", p.Package, "amount", p.AmountTotal, "currency", p.Currency)
	return ack, nil
}

func (s *service) Redeem(ctx context.Context, sessionID string) (*domain.Payment, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session id required: %w", domain.ErrBadRequest)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now()
	p, err := s.payments.Mutate(ctx, sessionID, func(p *domain.Payment) error {
		if p.Claimed {
			return fmt.Errorf("payment already claimed: %w", domain.ErrConflict)
		}
		p.Claimed = true
		p.ClaimedAt = &now
		return nil
	})
	switch {
	case kv.IsNotFound(err):
		return nil, fmt.Errorf("no completed payment for session: %w", domain.ErrNotFound)
	case errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("redeem payment: %w", domain.ErrUnavailable)
	}
	return p, err
}

// Restore undoes a Redeem whose follow-up failed. It only clears the claim
// that redeemed made; a session claimed again since is left alone.
func (s *service) Restore(ctx context.Context, redeemed *domain.Payment) error {
	if redeemed == nil || redeemed.ClaimedAt == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.payments.Mutate(ctx, redeemed.SessionID, func(p *domain.Payment) error {
		if !p.Claimed || p.ClaimedAt == nil || !p.ClaimedAt.Equal(*redeemed.ClaimedAt) {
			return kv.ErrAbort
		}
		p.Claimed = false
		p.ClaimedAt = nil
		return nil
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("restore payment: %w", domain.ErrUnavailable)
	}
	return err
}

func (s *service) Claim(ctx context.Context, sessionID string) (*domain.PaymentGrant, error) {
	if s.signer == nil {
		return nil, fmt.Errorf("payment grants not configured: %w", domain.ErrUnavailable)
	}
	p, err := s.Redeem(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	dom := ""
	if at := strings.LastIndex(p.Email, "@"); at >= 0 {
		dom = p.Email[at+1:]
	}
	tok, err := s.signer.Sign(jwtinfra.PaymentPrefix, jwtinfra.Claims{
		Kind:      domain.GrantPaymentVerified,
		Email:     p.Email,
		Domain:    dom,
		SessionID: p.SessionID,
	}, s.now())
	if err != nil {
		return nil, err
	}
	return &domain.PaymentGrant{
		Token:     tok,
		ExpiresIn: int(GrantTTL.Seconds()),
		Email:     p.Email,
		Package:   p.Package,
		DraftID:   p.DraftID,
	}, nil
}
