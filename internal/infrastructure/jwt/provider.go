package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/presswire-api/internal/domain"
)

// Bearer prefixes for signed grants. The prefix selects the variant; the
// remainder is an HS256 JWT whose iat is the embedded issuance time.
const (
	AdminPrefix   = "admin-pr-"
	PaymentPrefix = "payment-verified-"
)

// Claims holds the grant payload.
type Claims struct {
	Kind      domain.GrantKind `json:"kind"`
	Email     string           `json:"email,omitempty"`
	Domain    string           `json:"domain,omitempty"`
	SessionID string           `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Issued returns the embedded issuance time, or the zero time if absent.
func (c *Claims) Issued() time.Time {
	if c.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.IssuedAt.Time
}

// Provider signs and verifies HS256 grant tokens.
type Provider struct {
	secret []byte
}

// NewProvider returns a Provider keyed by secret.
func NewProvider(secret string) (*Provider, error) {
	if len(secret) < 32 {
		return nil, errors.New("grant signing secret must be at least 32 bytes")
	}
	return &Provider{secret: []byte(secret)}, nil
}

// Sign mints prefix+jwt for the given claims, stamped with issuedAt.
func (p *Provider) Sign(prefix string, c Claims, issuedAt time.Time) (string, error) {
	c.RegisteredClaims.IssuedAt = jwt.NewNumericDate(issuedAt)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign grant: %w", err)
	}
	return prefix + signed, nil
}

// Verify checks the signature of a grant JWT (without its bearer prefix) and
// returns its claims. Expiry is not checked here: the caller compares the
// embedded issuance time against the variant's validity window.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.RegisteredClaims.IssuedAt == nil {
		return nil, errors.New("grant missing issuance time")
	}
	return claims, nil
}
