package admin

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/presswire-api/internal/domain"
	jwtinfra "github.com/presswire-api/internal/infrastructure/jwt"
	"github.com/presswire-api/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const operatorSecret = "correct-horse-battery-staple"

func TestAuthenticate_Hash(t *testing.T) {
	h, err := bcrypt.GenerateFromPassword([]byte(operatorSecret), bcrypt.MinCost)
	require.NoError(t, err)
	svc := NewService(ServiceDeps{SecretHash: string(h), Secret: "ignored-when-hash-set"})

	assert.NoError(t, svc.Authenticate(operatorSecret))
	assert.ErrorIs(t, svc.Authenticate("ignored-when-hash-set"), domain.ErrForbidden)
	assert.ErrorIs(t, svc.Authenticate(""), domain.ErrTokenMissing)
}

func TestAuthenticate_PlainSecret(t *testing.T) {
	svc := NewService(ServiceDeps{Secret: operatorSecret})
	assert.NoError(t, svc.Authenticate(operatorSecret))
	assert.ErrorIs(t, svc.Authenticate("wrong"), domain.ErrForbidden)
}

func TestAuthenticate_NotConfigured(t *testing.T) {
	svc := NewService(ServiceDeps{})
	assert.ErrorIs(t, svc.Authenticate("anything"), domain.ErrForbidden)
}

func TestHashSecret(t *testing.T) {
	_, err := HashSecret("short")
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	h, err := HashSecret(operatorSecret)
	require.NoError(t, err)
	assert.NoError(t, NewService(ServiceDeps{SecretHash: h}).Authenticate(operatorSecret))
}

func TestIssueReleaseGrant(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	p, err := jwtinfra.NewProvider(strings.Repeat("s", 32))
	require.NoError(t, err)
	svc := NewService(ServiceDeps{Secret: operatorSecret, Signer: p, Clock: clk.Now})

	g, err := svc.IssueReleaseGrant(context.Background())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(g.Token, jwtinfra.AdminPrefix))
	assert.Equal(t, clk.Now().Add(ReleaseGrantTTL), g.ExpiresAt)

	claims, err := p.Verify(strings.TrimPrefix(g.Token, jwtinfra.AdminPrefix))
	require.NoError(t, err)
	assert.Equal(t, domain.GrantAdminBypass, claims.Kind)
}

func TestIssueReleaseGrant_NoSigner(t *testing.T) {
	_, err := NewService(ServiceDeps{Secret: operatorSecret}).IssueReleaseGrant(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}
