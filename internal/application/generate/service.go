package generate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/presswire-api/internal/application/release"
	"github.com/presswire-api/internal/domain"
	"github.com/presswire-api/internal/pkg/clock"
	"github.com/presswire-api/internal/pkg/dispatch"
	"github.com/presswire-api/internal/pkg/metrics"
	"github.com/presswire-api/internal/pkg/validate"
)

// Completer produces release copy from a language model.
type Completer interface {
	Enabled() bool
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ContentStore persists public artifacts.
type ContentStore interface {
	PutFile(ctx context.Context, filePath, base64Content, commitMessage string) error
}

type Issuer interface {
	Issue(ctx context.Context, in domain.ReleaseInput) (*domain.Release, error)
}

type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

type Notifier interface {
	Notify(ctx context.Context, subject, message string) error
}

type Dispatcher interface {
	Submit(kind string, job dispatch.Job) bool
}

// Service turns an authorized request into a live release.
type Service interface {
	Generate(ctx context.Context, id domain.Identity, req domain.GenerateRequest) (*domain.Publication, error)
	Refresh(ctx context.Context, rel *domain.Release) error
}

type ServiceDeps struct {
	LLM        Completer
	Content    ContentStore
	Releases   Issuer
	Mailer     Mailer
	Notifier   Notifier
	Dispatcher Dispatcher
	BaseURL    string
	Clock      clock.Func
}

type service struct {
	llm        Completer
	content    ContentStore
	releases   Issuer
	mailer     Mailer
	notifier   Notifier
	dispatcher Dispatcher
	baseURL    string
	now        clock.Func
}

func NewService(d ServiceDeps) Service {
	return &service{
		llm:        d.LLM,
		content:    d.Content,
		releases:   d.Releases,
		mailer:     d.Mailer,
		notifier:   d.Notifier,
		dispatcher: d.Dispatcher,
		baseURL:    strings.TrimRight(d.BaseURL, "/"),
		now:        clock.OrReal(d.Clock),
	}
}

func artifactPath(slug string) string { return "news/" + slug + ".html" }
func mirrorPath(slug string) string   { return "data/prs/" + slug + ".json" }

func (s *service) Generate(ctx context.Context, id domain.Identity, req domain.GenerateRequest) (*domain.Publication, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	req.Package = packageOf(req)
	now := s.now()

	text := s.write(ctx, req, id)
	slug := Slug(req.Company.Name, req.Company.CRONumber, now)
	draft := &domain.Release{
		Slug:           slug,
		URL:            fmt.Sprintf("%s/news/%s.html", s.baseURL, slug),
		Headline:       text.Headline,
		Summary:        text.Summary,
		Content:        text.Content,
		Boilerplate:    text.Boilerplate,
		KeyPoints:      req.KeyPoints,
		Contact:        req.Contact,
		Company:        req.Company,
		VerifiedDomain: id.Domain,
		Package:        req.Package,
		CreatedAt:      now,
		Published:      true,
	}

	if err := s.putArtifact(ctx, draft, "Publish press release: "+text.Headline); err != nil {
		return nil, err
	}

	rel, err := s.releases.Issue(ctx, domain.ReleaseInput{
		Slug:           draft.Slug,
		URL:            draft.URL,
		Headline:       draft.Headline,
		Summary:        draft.Summary,
		Content:        draft.Content,
		Boilerplate:    draft.Boilerplate,
		KeyPoints:      draft.KeyPoints,
		Contact:        draft.Contact,
		Company:        draft.Company,
		VerifiedDomain: draft.VerifiedDomain,
		Package:        draft.Package,
	})
	if err != nil {
		return nil, err
	}

	if err := s.putMirror(ctx, rel, "Store press release data: "+rel.Headline); err != nil {
		slog.Warn("release mirror not written", "slug", rel.Slug, "err", err)
	}
	s.announce(id, rel)
	metrics.ReleasesPublished.WithLabelValues(string(id.GrantKind)).Inc()
	slog.Info("release published", "slug", rel.Slug, "domain", id.Domain, "grant", id.GrantKind)

	return &domain.Publication{
		URL:             rel.URL,
		ManagementURL:   fmt.Sprintf("%s/manage.html?token=%s", s.baseURL, rel.ManagementToken),
		Slug:            rel.Slug,
		Headline:        rel.Headline,
		Summary:         rel.Summary,
		Content:         rel.Content,
		ManagementToken: rel.ManagementToken,
	}, nil
}

// write asks the model for copy and falls back to the template on any failure.
func (s *service) write(ctx context.Context, req domain.GenerateRequest, id domain.Identity) Text {
	if s.llm != nil && s.llm.Enabled() {
		raw, err := s.llm.Complete(ctx, systemPrompt, userPrompt(req, id))
		if err == nil && strings.TrimSpace(raw) != "" {
			return parseCompletion(raw, req)
		}
		slog.Warn("llm generation failed, using template", "company", req.Company.Name, "err", err)
	}
	metrics.GenerationFallbacks.Inc()
	return fallback(req, id, s.now())
}

func (s *service) putArtifact(ctx context.Context, rel *domain.Release, msg string) error {
	page, err := Render(rel, s.baseURL)
	if err != nil {
		return fmt.Errorf("render release: %v: %w", err, domain.ErrUpstream)
	}
	if err := s.content.PutFile(ctx, artifactPath(rel.Slug), base64.StdEncoding.EncodeToString(page), msg); err != nil {
		return fmt.Errorf("save release page: %v: %w", err, domain.ErrUpstream)
	}
	return nil
}

func (s *service) putMirror(ctx context.Context, rel *domain.Release, msg string) error {
	data, err := json.MarshalIndent(release.Public(rel, s.now()), "", "  ")
	if err != nil {
		return err
	}
	return s.content.PutFile(ctx, mirrorPath(rel.Slug), base64.StdEncoding.EncodeToString(data), msg)
}

// Refresh re-renders the page and mirror after an edit or unpublish.
func (s *service) Refresh(ctx context.Context, rel *domain.Release) error {
	verb := "Update"
	if !rel.Published {
		verb = "Unpublish"
	}
	if err := s.putArtifact(ctx, rel, fmt.Sprintf("%s press release: %s", verb, rel.Slug)); err != nil {
		return err
	}
	return s.putMirror(ctx, rel, fmt.Sprintf("%s press release data: %s", verb, rel.Slug))
}

func (s *service) announce(id domain.Identity, rel *domain.Release) {
	if s.dispatcher == nil {
		return
	}
	if s.mailer != nil && id.Email != "" {
		to := id.Email
		subject := "Your press release is live: " + rel.Headline
		text := fmt.Sprintf("Your press release is now live at %s\n\nManage it within the next 7 days at %s/manage.html?token=%s\nEdits are possible for 24 hours after publishing.",
			rel.URL, s.baseURL, rel.ManagementToken)
		body := fmt.Sprintf(`<p>Your press release is now live at <a href="%s">%s</a>.</p><p>Manage it within the next 7 days at <a href="%s/manage.html?token=%s">your management page</a>. Edits are possible for 24 hours after publishing.</p>`,
			rel.URL, rel.URL, s.baseURL, rel.ManagementToken)
		if !s.dispatcher.Submit("release-email", func(ctx context.Context) error {
			return s.mailer.Send(ctx, to, subject, body, text)
		}) {
			slog.Warn("release email not queued", "slug", rel.Slug)
		}
	}
	if s.notifier != nil {
		subject := "New press release: " + rel.Company.Name
		msg := fmt.Sprintf("%s published %q via @%s\n%s", rel.Company.Name, rel.Headline, rel.VerifiedDomain, rel.URL)
		if !s.dispatcher.Submit("release-notify", func(ctx context.Context) error {
			return s.notifier.Notify(ctx, subject, msg)
		}) {
			slog.Warn("release notification not queued", "slug", rel.Slug)
		}
	}
}
