package admin

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/presswire-api/internal/domain"
	jwtinfra "github.com/presswire-api/internal/infrastructure/jwt"
	"github.com/presswire-api/internal/pkg/clock"
	"golang.org/x/crypto/bcrypt"
)

// ReleaseGrantTTL matches the gate's admin validity window.
const ReleaseGrantTTL = time.Hour

type GrantSigner interface {
	Sign(prefix string, c jwtinfra.Claims, issuedAt time.Time) (string, error)
}

// Service authenticates the operator secret and mints admin publish grants.
type Service interface {
	Authenticate(secret string) error
	IssueReleaseGrant(ctx context.Context) (*domain.IssuedGrant, error)
}

type ServiceDeps struct {
	// SecretHash is a bcrypt hash of the operator secret. It takes
	// precedence over Secret.
	SecretHash string
	Secret     string
	Signer     GrantSigner
	Clock      clock.Func
}

type service struct {
	hash   []byte
	secret []byte
	signer GrantSigner
	now    clock.Func
}

func NewService(d ServiceDeps) Service {
	s := &service{signer: d.Signer, now: clock.OrReal(d.Clock)}
	if d.SecretHash != "" {
		s.hash = []byte(d.SecretHash)
	} else if d.Secret != "" {
		s.secret = []byte(d.Secret)
	}
	return s
}

// HashSecret returns the bcrypt hash to store in ADMIN_TOKEN_HASH.
func HashSecret(secret string) (string, error) {
	if len(secret) < 16 {
		return "", fmt.Errorf("admin secret must be at least 16 characters: %w", domain.ErrBadRequest)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (s *service) Authenticate(secret string) error {
	if secret == "" {
		return domain.ErrTokenMissing
	}
	switch {
	case s.hash != nil:
		if bcrypt.CompareHashAndPassword(s.hash, []byte(secret)) == nil {
			return nil
		}
	case s.secret != nil:
		if subtle.ConstantTimeCompare(s.secret, []byte(secret)) == 1 {
			return nil
		}
	default:
		return fmt.Errorf("admin access not configured: %w", domain.ErrForbidden)
	}
	return fmt.Errorf("invalid admin token: %w", domain.ErrForbidden)
}

func (s *service) IssueReleaseGrant(_ context.Context) (*domain.IssuedGrant, error) {
	if s.signer == nil {
		return nil, fmt.Errorf("grant signing not configured: %w", domain.ErrUnavailable)
	}
	now := s.now()
	tok, err := s.signer.Sign(jwtinfra.AdminPrefix, jwtinfra.Claims{
		Kind:  domain.GrantAdminBypass,
		Email: "admin@presswire.ie",
	}, now)
	if err != nil {
		return nil, err
	}
	return &domain.IssuedGrant{
		Token:     tok,
		ExpiresAt: now.Add(ReleaseGrantTTL),
		ExpiresIn: "1 hour",
	}, nil
}
