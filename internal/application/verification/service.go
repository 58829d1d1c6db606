package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
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
	CodeTTL  = 10 * time.Minute
	TokenTTL = time.Hour

	// Backend retention outlives the logical expiry so an expired record is
	// still readable and reported as expired rather than missing.
	CodeRetention  = CodeTTL + time.Hour
	TokenRetention = TokenTTL + time.Hour
)

type CodeRepository interface {
	Get(ctx context.Context, email string) (*domain.VerificationCode, error)
	Put(ctx context.Context, email string, v *domain.VerificationCode) error
	Mutate(ctx context.Context, email string, fn func(*domain.VerificationCode) error) (*domain.VerificationCode, error)
}

type TokenRepository interface {
	Create(ctx context.Context, token string, v *domain.VerificationToken) error
}

type MXChecker interface {
	HasMX(ctx context.Context, domain string) error
}

type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

type Dispatcher interface {
	Submit(kind string, job dispatch.Job) bool
}

// Service issues one-time codes to company email addresses and exchanges a
// matching code for a short-lived verification token.
type Service interface {
	RequestCode(ctx context.Context, email string) (*domain.CodeIssued, error)
	SubmitCode(ctx context.Context, email, code string) (*domain.VerifiedIdentity, error)
}

type ServiceDeps struct {
	Codes      CodeRepository
	Tokens     TokenRepository
	MX         MXChecker
	Mailer     Mailer
	Dispatcher Dispatcher
	Mode       config.Mode
	Denylist   []string
	// TrustedSuffix is the reserved country-code suffix, e.g. ".ie".
	TrustedSuffix string
	Clock         clock.Func
}

type service struct {
	codes         CodeRepository
	tokens        TokenRepository
	mx            MXChecker
	mailer        Mailer
	dispatcher    Dispatcher
	mode          config.Mode
	denylist      map[string]struct{}
	trustedSuffix string
	now           clock.Func
}

func NewService(d ServiceDeps) Service {
	deny := make(map[string]struct{}, len(d.Denylist))
	for _, dom := range d.Denylist {
		deny[strings.ToLower(strings.TrimSpace(dom))] = struct{}{}
	}
	return &service{
		codes:         d.Codes,
		tokens:        d.Tokens,
		mx:            d.MX,
		mailer:        d.Mailer,
		dispatcher:    d.Dispatcher,
		mode:          d.Mode,
		denylist:      deny,
		trustedSuffix: strings.ToLower(d.TrustedSuffix),
		now:           clock.OrReal(d.Clock),
	}
}

// normalizeEmail lowercases the address and splits off its domain.
func normalizeEmail(email string) (string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", "", domain.ErrInvalidEmail
	}
	return email, email[at+1:], nil
}

func (s *service) RequestCode(ctx context.Context, rawEmail string) (*domain.CodeIssued, error) {
	email, dom, err := normalizeEmail(rawEmail)
	if err != nil {
		return nil, err
	}
	if _, blocked := s.denylist[dom]; blocked {
		return nil, domain.ErrFreeProviderBlocked
	}

	trusted := s.trustedSuffix != "" && strings.HasSuffix(dom, s.trustedSuffix)
	if trusted && !s.mode.IsProduction() {
		slog.Debug("skipping mx check for trusted domain", "domain", dom, "mode", s.mode)
	} else if err := s.mx.HasMX(ctx, dom); err != nil {
		return nil, err
	}

	code, err := pkgtoken.NewNumericCode()
	if err != nil {
		return nil, err
	}
	now := s.now()
	rec := &domain.VerificationCode{
		Email:        email,
		Code:         code,
		Domain:       dom,
		IsTrustedTLD: trusted,
		IssuedAt:     now,
		ExpiresAt:    now.Add(CodeTTL),
	}
	// Overwrites any prior code for this address.
	if err := s.codes.Put(ctx, email, rec); err != nil {
		return nil, fmt.Errorf("store verification code: %v: %w", err, domain.ErrUpstream)
	}
	metrics.VerificationCodesIssued.Inc()

	s.sendCode(email, code)

	out := &domain.CodeIssued{Domain: dom, IsTrustedTLD: trusted}
	if !s.mode.IsProduction() {
		slog.Info("verification code issued", "email", email, "code", code)
		out.Code = code
	}
	return out, nil
}

func (s *service) sendCode(email, code string) {
	subject := "Your PressWire.ie verification code"
	text := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(CodeTTL.Minutes()))
	html := fmt.Sprintf(`<p>Your verification code is</p><p style="font-size:24px;font-weight:bold;letter-spacing:4px">%s</p><p>It expires in %d minutes.</p>`, code, int(CodeTTL.Minutes()))

	ok := s.dispatcher.Submit("verification-email", func(ctx context.Context) error {
		return s.mailer.Send(ctx, email, subject, html, text)
	})
	if !ok {
		slog.Warn("verification email not queued", "email", email)
	}
}

func (s *service) SubmitCode(ctx context.Context, rawEmail, code string) (*domain.VerifiedIdentity, error) {
	email, _, err := normalizeEmail(rawEmail)
	if err != nil {
		return nil, err
	}
	now := s.now()

	rec, err := s.codes.Mutate(ctx, email, func(v *domain.VerificationCode) error {
		switch {
		case v.Consumed:
			return domain.ErrNoCodeFound
		case now.After(v.ExpiresAt):
			return domain.ErrCodeExpired
		case v.Code != code:
			return domain.ErrCodeMismatch
		}
		v.Consumed = true
		return nil
	})
	switch {
	case kv.IsNotFound(err), errors.Is(err, domain.ErrNoCodeFound):
		metrics.VerificationOutcomes.WithLabelValues("no_code").Inc()
		return nil, domain.ErrNoCodeFound
	case errors.Is(err, domain.ErrCodeExpired):
		metrics.VerificationOutcomes.WithLabelValues("expired").Inc()
		return nil, domain.ErrCodeExpired
	case errors.Is(err, domain.ErrCodeMismatch):
		metrics.VerificationOutcomes.WithLabelValues("mismatch").Inc()
		return nil, domain.ErrCodeMismatch
	case err != nil:
		return nil, fmt.Errorf("consume verification code: %v: %w", err, domain.ErrUpstream)
	}
	// The consumed record stays as a tombstone until CodeRetention lapses.
	// Deleting it here could remove a code issued after the swap.

	tok, err := pkgtoken.NewOpaque()
	if err != nil {
		return nil, err
	}
	vt := &domain.VerificationToken{
		Token:        tok,
		Email:        rec.Email,
		Domain:       rec.Domain,
		IsTrustedTLD: rec.IsTrustedTLD,
		IssuedAt:     now,
		ExpiresAt:    now.Add(TokenTTL),
	}
	if err := s.tokens.Create(ctx, tok, vt); err != nil {
		return nil, fmt.Errorf("store verification token: %v: %w", err, domain.ErrUpstream)
	}
	metrics.VerificationOutcomes.WithLabelValues("verified").Inc()
	return &domain.VerifiedIdentity{Token: tok, Domain: rec.Domain, IsTrustedTLD: rec.IsTrustedTLD}, nil
}

// NewCodeCollection binds the code repository to a kv store.
func NewCodeCollection(store kv.Store) *kv.Collection[domain.VerificationCode] {
	return kv.NewCollection[domain.VerificationCode](store, "vcode", CodeRetention)
}

// NewTokenCollection binds the token repository to a kv store.
func NewTokenCollection(store kv.Store) *kv.Collection[domain.VerificationToken] {
	return kv.NewCollection[domain.VerificationToken](store, "vtoken", TokenRetention)
}
