package publish

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/presswire-api/internal/application/verification"
	"github.com/presswire-api/internal/config"
	"github.com/presswire-api/internal/domain"
	jwtinfra "github.com/presswire-api/internal/infrastructure/jwt"
	"github.com/presswire-api/internal/kv"
	"github.com/presswire-api/internal/pkg/clock"
	"github.com/presswire-api/internal/pkg/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type nopMailer struct{ sent int }

func (m *nopMailer) Send(context.Context, string, string, string, string) error {
	m.sent++
	return nil
}

type nopMX struct{}

func (nopMX) HasMX(context.Context, string) error { return nil }

type fixture struct {
	clock    *clock.Fake
	tokens   *kv.Collection[domain.VerificationToken]
	provider *jwtinfra.Provider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	p, err := jwtinfra.NewProvider(testSecret)
	require.NoError(t, err)
	return &fixture{
		clock:    clk,
		tokens:   verification.NewTokenCollection(kv.NewMemoryStoreWithClock(clk.Now)),
		provider: p,
	}
}

func (f *fixture) gate(mode config.Mode, consume bool) Service {
	return NewService(ServiceDeps{
		Tokens:        f.tokens,
		Grants:        f.provider,
		Mode:          mode,
		TrustedSuffix: ".ie",
		ConsumeTokens: consume,
		Clock:         f.clock.Now,
	})
}

func (f *fixture) storeToken(t *testing.T, token string) {
	t.Helper()
	now := f.clock.Now()
	require.NoError(t, f.tokens.Put(context.Background(), token, &domain.VerificationToken{
		Token: token, Email: "press@company.ie", Domain: "company.ie", IsTrustedTLD: true,
		IssuedAt: now, ExpiresAt: now.Add(verification.TokenTTL),
	}))
}

func TestBearerFromHeader(t *testing.T) {
	assert.Equal(t, "abc", BearerFromHeader("Bearer abc"))
	assert.Equal(t, "abc", BearerFromHeader("bearer abc"))
	assert.Equal(t, "", BearerFromHeader("Basic abc"))
	assert.Equal(t, "", BearerFromHeader(""))
}

func TestAuthorize_Missing(t *testing.T) {
	f := newFixture(t)
	_, err := f.gate(config.ModeProduction, false).Authorize(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrTokenMissing)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthorize_UnknownOpaqueToken(t *testing.T) {
	f := newFixture(t)
	_, err := f.gate(config.ModeProduction, false).Authorize(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestAuthorize_VerificationTokenReusableUntilExpiry(t *testing.T) {
	f := newFixture(t)
	f.storeToken(t, "tok")
	g := f.gate(config.ModeProduction, false)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		id, err := g.Authorize(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, domain.GrantVerificationDerived, id.GrantKind)
	}

	f.clock.Advance(verification.TokenTTL + time.Second)
	_, err := g.Authorize(ctx, "tok")
	assert.ErrorIs(t, err, domain.ErrTokenExpired)

	_, err = f.tokens.Get(ctx, "tok")
	assert.True(t, kv.IsNotFound(err), "expired token should be deleted")
}

func TestAuthorize_ConsumeTokens(t *testing.T) {
	f := newFixture(t)
	f.storeToken(t, "tok")
	g := f.gate(config.ModeProduction, true)
	ctx := context.Background()

	// Authorizing alone leaves the token usable, so a failed publish can retry.
	_, err := g.Authorize(ctx, "tok")
	require.NoError(t, err)
	_, err = g.Authorize(ctx, "tok")
	require.NoError(t, err)

	require.NoError(t, g.Consume(ctx, "tok"))
	_, err = g.Authorize(ctx, "tok")
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)

	require.NoError(t, g.Consume(ctx, "tok"), "consuming twice is harmless")
}

func TestConsume_DisabledKeepsToken(t *testing.T) {
	f := newFixture(t)
	f.storeToken(t, "tok")
	g := f.gate(config.ModeProduction, false)
	ctx := context.Background()

	require.NoError(t, g.Consume(ctx, "tok"))
	_, err := g.Authorize(ctx, "tok")
	assert.NoError(t, err)
}

func TestConsume_IgnoresSignedGrants(t *testing.T) {
	f := newFixture(t)
	f.storeToken(t, jwtinfra.AdminPrefix+"tok")
	g := f.gate(config.ModeProduction, true)

	require.NoError(t, g.Consume(context.Background(), jwtinfra.AdminPrefix+"tok"))
	_, err := f.tokens.Get(context.Background(), jwtinfra.AdminPrefix+"tok")
	assert.NoError(t, err)
}

func TestAuthorize_AdminGrantWindow(t *testing.T) {
	f := newFixture(t)
	bearer, err := f.provider.Sign(jwtinfra.AdminPrefix, jwtinfra.Claims{Kind: domain.GrantAdminBypass}, f.clock.Now())
	require.NoError(t, err)
	g := f.gate(config.ModeProduction, false)

	f.clock.Advance(AdminGrantTTL)
	id, err := g.Authorize(context.Background(), bearer)
	require.NoError(t, err)
	assert.Equal(t, domain.GrantAdminBypass, id.GrantKind)
	assert.Equal(t, "presswire.ie", id.Domain)

	f.clock.Advance(time.Second)
	_, err = g.Authorize(context.Background(), bearer)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestAuthorize_PaymentGrantWindow(t *testing.T) {
	f := newFixture(t)
	bearer, err := f.provider.Sign(jwtinfra.PaymentPrefix, jwtinfra.Claims{
		Kind: domain.GrantPaymentVerified, Email: "buyer@acme.ie", Domain: "acme.ie", SessionID: "cs_1",
	}, f.clock.Now())
	require.NoError(t, err)
	g := f.gate(config.ModeProduction, false)

	id, err := g.Authorize(context.Background(), bearer)
	require.NoError(t, err)
	assert.Equal(t, domain.Identity{Email: "buyer@acme.ie", Domain: "acme.ie", IsTrustedTLD: true, GrantKind: domain.GrantPaymentVerified}, *id)

	f.clock.Advance(PaymentGrantTTL + time.Second)
	_, err = g.Authorize(context.Background(), bearer)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestAuthorize_GrantKindMustMatchPrefix(t *testing.T) {
	f := newFixture(t)
	signed, err := f.provider.Sign("", jwtinfra.Claims{Kind: domain.GrantAdminBypass}, f.clock.Now())
	require.NoError(t, err)

	_, err = f.gate(config.ModeProduction, false).Authorize(context.Background(), jwtinfra.PaymentPrefix+signed)
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestAuthorize_ForgedGrantRejected(t *testing.T) {
	f := newFixture(t)
	other, err := jwtinfra.NewProvider("ffffffffffffffffffffffffffffffff")
	require.NoError(t, err)
	bearer, err := other.Sign(jwtinfra.AdminPrefix, jwtinfra.Claims{Kind: domain.GrantAdminBypass}, f.clock.Now())
	require.NoError(t, err)

	_, err = f.gate(config.ModeProduction, false).Authorize(context.Background(), bearer)
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestAuthorize_DemoOnlyOutsideProduction(t *testing.T) {
	f := newFixture(t)

	id, err := f.gate(config.ModeDevelopment, false).Authorize(context.Background(), "demo-anything")
	require.NoError(t, err)
	assert.Equal(t, domain.GrantDemo, id.GrantKind)

	_, err = f.gate(config.ModeProduction, false).Authorize(context.Background(), "demo-anything")
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestScenario_TrustedDomainVerificationToPublish(t *testing.T) {
	f := newFixture(t)
	store := kv.NewMemoryStoreWithClock(f.clock.Now)
	f.tokens = verification.NewTokenCollection(store)
	mailer := &nopMailer{}

	issuer := verification.NewService(verification.ServiceDeps{
		Codes:         verification.NewCodeCollection(store),
		Tokens:        f.tokens,
		MX:            nopMX{},
		Mailer:        mailer,
		Dispatcher:    &dispatch.Immediate{},
		Mode:          config.ModeTest,
		Denylist:      config.DefaultDenylistedDomains,
		TrustedSuffix: ".ie",
		Clock:         f.clock.Now,
	})
	ctx := context.Background()

	issued, err := issuer.RequestCode(ctx, "press@company.ie")
	require.NoError(t, err)
	assert.Equal(t, "company.ie", issued.Domain)
	assert.True(t, issued.IsTrustedTLD)
	assert.Equal(t, 1, mailer.sent)

	verified, err := issuer.SubmitCode(ctx, "press@company.ie", issued.Code)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), verified.Token)

	id, err := f.gate(config.ModeTest, false).Authorize(ctx, verified.Token)
	require.NoError(t, err)
	assert.Equal(t, "press@company.ie", id.Email)
	assert.Equal(t, "company.ie", id.Domain)
	assert.Equal(t, domain.GrantVerificationDerived, id.GrantKind)
}
