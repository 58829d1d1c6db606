package publish

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/presswire-api/internal/config"
	"github.com/presswire-api/internal/domain"
	jwtinfra "github.com/presswire-api/internal/infrastructure/jwt"
	"github.com/presswire-api/internal/kv"
	"github.com/presswire-api/internal/pkg/clock"
	"github.com/presswire-api/internal/pkg/metrics"
)

const (
	AdminGrantTTL   = time.Hour
	PaymentGrantTTL = 5 * time.Minute

	DemoPrefix = "demo-"
)

type TokenRepository interface {
	Get(ctx context.Context, token string) (*domain.VerificationToken, error)
	Delete(ctx context.Context, token string) error
}

type GrantVerifier interface {
	Verify(tokenStr string) (*jwtinfra.Claims, error)
}

// Service resolves a publish bearer to the identity allowed to publish.
type Service interface {
	Authorize(ctx context.Context, bearer string) (*domain.Identity, error)
	// Consume spends a verification token after its publish succeeded.
	// It is a no-op unless token consumption is enabled.
	Consume(ctx context.Context, bearer string) error
}

type ServiceDeps struct {
	Tokens        TokenRepository
	Grants        GrantVerifier
	Mode          config.Mode
	TrustedSuffix string
	// ConsumeTokens deletes a verification token once its publish succeeds.
	ConsumeTokens bool
	Clock         clock.Func
}

type service struct {
	tokens        TokenRepository
	grants        GrantVerifier
	mode          config.Mode
	trustedSuffix string
	consume       bool
	now           clock.Func
}

func NewService(d ServiceDeps) Service {
	return &service{
		tokens:        d.Tokens,
		grants:        d.Grants,
		mode:          d.Mode,
		trustedSuffix: strings.ToLower(d.TrustedSuffix),
		consume:       d.ConsumeTokens,
		now:           clock.OrReal(d.Clock),
	}
}

// BearerFromHeader returns the credential in an "Authorization: Bearer x"
// header value, or "" if the header is absent or malformed.
func BearerFromHeader(h string) string {
	const prefix = "Bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

func (s *service) Authorize(ctx context.Context, bearer string) (*domain.Identity, error) {
	id, err := s.resolve(ctx, bearer)
	if err != nil {
		metrics.GateDecisions.WithLabelValues("denied").Inc()
		return nil, err
	}
	metrics.GateDecisions.WithLabelValues(string(id.GrantKind)).Inc()
	return id, nil
}

func (s *service) resolve(ctx context.Context, bearer string) (*domain.Identity, error) {
	if bearer == "" {
		return nil, domain.ErrTokenMissing
	}
	switch {
	case strings.HasPrefix(bearer, jwtinfra.PaymentPrefix):
		claims, err := s.grant(strings.TrimPrefix(bearer, jwtinfra.PaymentPrefix), domain.GrantPaymentVerified, PaymentGrantTTL)
		if err != nil {
			return nil, err
		}
		return &domain.Identity{
			Email:        claims.Email,
			Domain:       claims.Domain,
			IsTrustedTLD: s.trusted(claims.Domain),
			GrantKind:    domain.GrantPaymentVerified,
		}, nil

	case strings.HasPrefix(bearer, jwtinfra.AdminPrefix):
		if _, err := s.grant(strings.TrimPrefix(bearer, jwtinfra.AdminPrefix), domain.GrantAdminBypass, AdminGrantTTL); err != nil {
			return nil, err
		}
		return &domain.Identity{
			Email:        "admin@presswire.ie",
			Domain:       "presswire.ie",
			IsTrustedTLD: true,
			GrantKind:    domain.GrantAdminBypass,
		}, nil

	case strings.HasPrefix(bearer, DemoPrefix) && !s.mode.IsProduction():
		return &domain.Identity{
			Email:        "demo@company.ie",
			Domain:       "company.ie",
			IsTrustedTLD: true,
			GrantKind:    domain.GrantDemo,
		}, nil
	}
	return s.lookup(ctx, bearer)
}

// grant verifies a signed grant and checks its embedded issuance time
// against the variant's validity window.
func (s *service) grant(raw string, kind domain.GrantKind, ttl time.Duration) (*jwtinfra.Claims, error) {
	if s.grants == nil {
		return nil, domain.ErrTokenNotFound
	}
	claims, err := s.grants.Verify(raw)
	if err != nil || claims.Kind != kind {
		slog.Debug("rejected signed grant", "kind", kind, "err", err)
		return nil, domain.ErrTokenNotFound
	}
	if s.now().Sub(claims.Issued()) > ttl {
		return nil, fmt.Errorf("%s grant: %w", kind, domain.ErrTokenExpired)
	}
	return claims, nil
}

func (s *service) lookup(ctx context.Context, token string) (*domain.Identity, error) {
	vt, err := s.tokens.Get(ctx, token)
	if kv.IsNotFound(err) {
		return nil, domain.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load verification token: %v: %w", err, domain.ErrUpstream)
	}
	if s.now().After(vt.ExpiresAt) {
		s.drop(ctx, token)
		return nil, domain.ErrTokenExpired
	}
	return &domain.Identity{
		Email:        vt.Email,
		Domain:       vt.Domain,
		IsTrustedTLD: vt.IsTrustedTLD,
		GrantKind:    domain.GrantVerificationDerived,
	}, nil
}

func (s *service) Consume(ctx context.Context, bearer string) error {
	if !s.consume || bearer == "" || s.signed(bearer) {
		return nil
	}
	err := s.tokens.Delete(ctx, bearer)
	if err != nil && !kv.IsNotFound(err) {
		return fmt.Errorf("consume verification token: %v: %w", err, domain.ErrUpstream)
	}
	return nil
}

// signed reports whether bearer is a grant or demo credential rather than
// a stored verification token.
func (s *service) signed(bearer string) bool {
	return strings.HasPrefix(bearer, jwtinfra.PaymentPrefix) ||
		strings.HasPrefix(bearer, jwtinfra.AdminPrefix) ||
		(strings.HasPrefix(bearer, DemoPrefix) && !s.mode.IsProduction())
}

func (s *service) drop(ctx context.Context, token string) {
	if err := s.tokens.Delete(ctx, token); err != nil {
		slog.Warn("failed to delete verification token", "err", err)
	}
}

func (s *service) trusted(dom string) bool {
	return s.trustedSuffix != "" && strings.HasSuffix(strings.ToLower(dom), s.trustedSuffix)
}
