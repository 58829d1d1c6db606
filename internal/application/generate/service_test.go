package generate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/presswire-api/internal/application/release"
	"github.com/presswire-api/internal/domain"
	"github.com/presswire-api/internal/kv"
	"github.com/presswire-api/internal/pkg/clock"
	"github.com/presswire-api/internal/pkg/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type mockLLM struct{ mock.Mock }

func (m *mockLLM) Enabled() bool { return m.Called().Bool(0) }

func (m *mockLLM) Complete(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

type memContent struct {
	mu    sync.Mutex
	files map[string][]byte
	fail  string
}

func (c *memContent) PutFile(_ context.Context, path, b64, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != "" && strings.HasPrefix(path, c.fail) {
		return errors.New("bucket unavailable")
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return err
	}
	if c.files == nil {
		c.files = map[string][]byte{}
	}
	c.files[path] = data
	return nil
}

type sentMail struct{ to, subject string }

type recMailer struct{ sent []sentMail }

func (m *recMailer) Send(_ context.Context, to, subject, _, _ string) error {
	m.sent = append(m.sent, sentMail{to, subject})
	return nil
}

type recNotifier struct{ subjects []string }

func (n *recNotifier) Notify(_ context.Context, subject, _ string) error {
	n.subjects = append(n.subjects, subject)
	return nil
}

// --- helpers ---

type fixture struct {
	svc      Service
	releases release.Service
	llm      *mockLLM
	content  *memContent
	mailer   *recMailer
	notifier *recNotifier
	clock    *clock.Fake
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC))
	f := &fixture{
		llm:      &mockLLM{},
		content:  &memContent{},
		mailer:   &recMailer{},
		notifier: &recNotifier{},
		clock:    clk,
	}
	f.releases = release.NewService(release.ServiceDeps{
		Releases: release.NewCollection(kv.NewMemoryStoreWithClock(clk.Now)),
		Clock:    clk.Now,
	})
	f.svc = NewService(ServiceDeps{
		LLM:        f.llm,
		Content:    f.content,
		Releases:   f.releases,
		Mailer:     f.mailer,
		Notifier:   f.notifier,
		Dispatcher: &dispatch.Immediate{},
		BaseURL:    "https://presswire.ie/",
		Clock:      clk.Now,
	})
	return f
}

var identity = domain.Identity{
	Email:        "press@acme.ie",
	Domain:       "acme.ie",
	IsTrustedTLD: true,
	GrantKind:    domain.GrantVerificationDerived,
}

// --- Generate ---

func TestGenerate_Fallback(t *testing.T) {
	f := newFixture(t)
	f.llm.On("Enabled").Return(false)

	pub, err := f.svc.Generate(context.Background(), identity, request())
	require.NoError(t, err)

	slug := "acme-widgets-ltd-654321-" + "1741082400000"
	assert.Equal(t, slug, pub.Slug)
	assert.Equal(t, "https://presswire.ie/news/"+slug+".html", pub.URL)
	assert.Equal(t, "https://presswire.ie/manage.html?token="+pub.ManagementToken, pub.ManagementURL)
	assert.Equal(t, "Acme opens Cork office", pub.Headline)
	f.llm.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)

	assert.Contains(t, string(f.content.files["news/"+slug+".html"]), "Acme opens Cork office")

	var mirror map[string]any
	require.NoError(t, json.Unmarshal(f.content.files["data/prs/"+slug+".json"], &mirror))
	assert.Equal(t, slug, mirror["slug"])
	assert.NotContains(t, string(f.content.files["data/prs/"+slug+".json"]), pub.ManagementToken)

	rel, err := f.releases.Get(context.Background(), pub.ManagementToken)
	require.NoError(t, err)
	assert.Equal(t, "acme.ie", rel.VerifiedDomain)
	assert.Equal(t, "professional", rel.Package)

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "press@acme.ie", f.mailer.sent[0].to)
	assert.Equal(t, []string{"New press release: Acme Widgets Ltd"}, f.notifier.subjects)
}

func TestGenerate_UsesModelOutput(t *testing.T) {
	f := newFixture(t)
	f.llm.On("Enabled").Return(true)
	f.llm.On("Complete", mock.Anything, systemPrompt, mock.Anything).
		Return(`{"headline":"Model headline","summary":"Model summary","content":"<p>Model body</p>","boilerplate":"About"}`, nil)

	pub, err := f.svc.Generate(context.Background(), identity, request())
	require.NoError(t, err)
	assert.Equal(t, "Model headline", pub.Headline)
	assert.Equal(t, "<p>Model body</p>", pub.Content)
}

func TestGenerate_ModelFailureFallsBack(t *testing.T) {
	f := newFixture(t)
	f.llm.On("Enabled").Return(true)
	f.llm.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", domain.ErrUnavailable)

	pub, err := f.svc.Generate(context.Background(), identity, request())
	require.NoError(t, err)
	assert.Contains(t, pub.Content, "DUBLIN, Ireland - 4 March 2025")
}

func TestGenerate_Validation(t *testing.T) {
	f := newFixture(t)
	req := request()
	req.Contact = ""
	_, err := f.svc.Generate(context.Background(), identity, req)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	assert.Empty(t, f.content.files)
}

func TestGenerate_ArtifactFailureAbortsBeforeIssue(t *testing.T) {
	f := newFixture(t)
	f.llm.On("Enabled").Return(false)
	f.content.fail = "news/"

	_, err := f.svc.Generate(context.Background(), identity, request())
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Empty(t, f.mailer.sent)
	assert.Empty(t, f.notifier.subjects)
}

func TestGenerate_MirrorFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.llm.On("Enabled").Return(false)
	f.content.fail = "data/"

	pub, err := f.svc.Generate(context.Background(), identity, request())
	require.NoError(t, err)
	assert.NotEmpty(t, pub.ManagementToken)
}

// --- Refresh ---

func TestRefresh_RendersWithdrawal(t *testing.T) {
	f := newFixture(t)
	f.llm.On("Enabled").Return(false)
	pub, err := f.svc.Generate(context.Background(), identity, request())
	require.NoError(t, err)

	rel, err := f.releases.Unpublish(context.Background(), pub.ManagementToken, "")
	require.NoError(t, err)
	require.NoError(t, f.svc.Refresh(context.Background(), rel))

	assert.Contains(t, string(f.content.files["news/"+pub.Slug+".html"]), "has been withdrawn")
	var mirror domain.PublicRelease
	require.NoError(t, json.Unmarshal(f.content.files["data/prs/"+pub.Slug+".json"], &mirror))
	assert.False(t, mirror.Published)
}
