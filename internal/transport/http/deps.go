package http

import (
	"context"

	"github.com/presswire-api/internal/application/admin"
	"github.com/presswire-api/internal/application/analytics"
	"github.com/presswire-api/internal/application/discount"
	"github.com/presswire-api/internal/application/draft"
	"github.com/presswire-api/internal/application/generate"
	"github.com/presswire-api/internal/application/payment"
	"github.com/presswire-api/internal/application/publish"
	"github.com/presswire-api/internal/application/release"
	"github.com/presswire-api/internal/application/verification"
	"github.com/presswire-api/internal/config"
	"github.com/presswire-api/internal/domain"
	jwtinfra "github.com/presswire-api/internal/infrastructure/jwt"
	"github.com/presswire-api/internal/kv"
	"github.com/presswire-api/internal/pkg/clock"
	"github.com/presswire-api/internal/pkg/dispatch"
)

// Mailer is the minimal interface the router requires from an email backend.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// Notifier is the minimal interface the router requires from an operator channel.
type Notifier interface {
	Notify(ctx context.Context, subject, message string) error
}

// Dispatcher is the minimal interface the router requires from the background queue.
type Dispatcher interface {
	Submit(kind string, job dispatch.Job) bool
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	Store      kv.Store
	MX         verification.MXChecker
	Mailer     Mailer
	Notifier   Notifier
	Content    generate.ContentStore
	LLM        generate.Completer
	Webhooks   payment.WebhookVerifier
	Grants     *jwtinfra.Provider // nil disables admin and payment bearers
	Dispatcher Dispatcher
	Clock      clock.Func
}

// Services is the wired application layer.
type Services struct {
	Verification verification.Service
	Publish      publish.Service
	Releases     release.Service
	Generate     generate.Service
	Analytics    analytics.Service
	Discounts    discount.Service
	Drafts       draft.Service
	Payments     payment.Service
	Admin        admin.Service
}

type refreshFunc func(ctx context.Context, rel *domain.Release) error

func (f refreshFunc) Refresh(ctx context.Context, rel *domain.Release) error { return f(ctx, rel) }

// NewServices builds every service over the shared key-value store.
func NewServices(cfg *config.Config, d *Deps) *Services {
	now := clock.OrReal(d.Clock)

	// Interfaces stay nil rather than holding a nil *Provider.
	var (
		grantVerifier publish.GrantVerifier
		paySigner     payment.GrantSigner
		adminSigner   admin.GrantSigner
	)
	if d.Grants != nil {
		grantVerifier, paySigner, adminSigner = d.Grants, d.Grants, d.Grants
	}

	tokens := verification.NewTokenCollection(d.Store)
	discounts := discount.NewService(discount.ServiceDeps{Codes: discount.NewCollection(d.Store), Clock: now})
	payments := payment.NewService(payment.ServiceDeps{
		Payments:  payment.NewCollection(d.Store),
		Verifier:  d.Webhooks,
		Signer:    paySigner,
		Discounts: discounts,
		Timeout:   cfg.Timeouts.Payment,
		Clock:     now,
	})

	s := &Services{Discounts: discounts, Payments: payments}
	s.Verification = verification.NewService(verification.ServiceDeps{
		Codes:         verification.NewCodeCollection(d.Store),
		Tokens:        tokens,
		MX:            d.MX,
		Mailer:        d.Mailer,
		Dispatcher:    d.Dispatcher,
		Mode:          cfg.Mode,
		Denylist:      cfg.DenylistedDomains,
		TrustedSuffix: cfg.TrustedSuffix,
		Clock:         now,
	})
	s.Publish = publish.NewService(publish.ServiceDeps{
		Tokens:        tokens,
		Grants:        grantVerifier,
		Mode:          cfg.Mode,
		TrustedSuffix: cfg.TrustedSuffix,
		ConsumeTokens: cfg.ConsumeVerificationTokens,
		Clock:         now,
	})
	s.Releases = release.NewService(release.ServiceDeps{
		Releases: release.NewCollection(d.Store),
		Refresher: refreshFunc(func(ctx context.Context, rel *domain.Release) error {
			return s.Generate.Refresh(ctx, rel)
		}),
		Payments:   payments,
		Dispatcher: d.Dispatcher,
		Mode:       cfg.Mode,
		Clock:      now,
	})
	s.Generate = generate.NewService(generate.ServiceDeps{
		LLM:        d.LLM,
		Content:    d.Content,
		Releases:   s.Releases,
		Mailer:     d.Mailer,
		Notifier:   d.Notifier,
		Dispatcher: d.Dispatcher,
		BaseURL:    cfg.PublicBaseURL,
		Clock:      now,
	})
	s.Analytics = analytics.NewService(analytics.ServiceDeps{Views: analytics.NewCollection(d.Store), Clock: now})
	s.Drafts = draft.NewService(draft.ServiceDeps{Drafts: draft.NewCollection(d.Store), Clock: now})
	s.Admin = admin.NewService(admin.ServiceDeps{
		SecretHash: cfg.AdminTokenHash,
		Secret:     cfg.AdminToken,
		Signer:     adminSigner,
		Clock:      now,
	})
	return s
}
