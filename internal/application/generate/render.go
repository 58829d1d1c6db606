package generate

import (
	"bytes"
	"embed"
	"html"
	"html/template"
	"strings"
	"time"

	"github.com/presswire-api/internal/domain"
)

//go:embed templates/release.html
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/release.html"))

// page is the data bound to templates/release.html.
type page struct {
	Headline       string
	Summary        string
	Body           template.HTML
	Boilerplate    string
	Contact        string
	CompanyName    string
	CRONumber      string
	Slug           string
	URL            string
	TrackURL       string
	VerifiedDomain string
	PublishDate    string
	Published      bool
	UnpublishDate  string
	LinkedData     map[string]any
	Year           int
}

// allowedTags survive escaping in release bodies. Attributes are never allowed.
var allowedTags = strings.NewReplacer(
	"&lt;p&gt;", "<p>",
	"&lt;/p&gt;", "</p>",
	"&lt;strong&gt;", "<strong>",
	"&lt;/strong&gt;", "</strong>",
	"&lt;em&gt;", "<em>",
	"&lt;/em&gt;", "</em>",
	"&lt;br&gt;", "<br>",
	"&lt;br/&gt;", "<br>",
	"&lt;br /&gt;", "<br>",
)

// sanitizeBody escapes content and restores the small set of formatting tags
// the generator emits. Bodies without paragraphs are split on blank lines.
func sanitizeBody(content string) template.HTML {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	if !strings.Contains(strings.ToLower(content), "<p>") {
		var b strings.Builder
		for _, para := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n\n") {
			if para = strings.TrimSpace(para); para != "" {
				b.WriteString("<p>")
				b.WriteString(strings.ReplaceAll(para, "\n", "<br>"))
				b.WriteString("</p>\n")
			}
		}
		content = b.String()
	}
	return template.HTML(allowedTags.Replace(html.EscapeString(content)))
}

func linkedData(rel *domain.Release) map[string]any {
	return map[string]any{
		"@context":      "https://schema.org",
		"@type":         "NewsArticle",
		"headline":      rel.Headline,
		"description":   rel.Summary,
		"datePublished": rel.CreatedAt.Format(time.RFC3339),
		"url":           rel.URL,
		"author": map[string]any{
			"@type": "Organization",
			"name":  rel.Company.Name,
		},
		"publisher": map[string]any{
			"@type": "Organization",
			"name":  "PressWire.ie",
		},
	}
}

// Render produces the public HTML artifact for rel. An unpublished release
// renders as a withdrawal notice.
func Render(rel *domain.Release, baseURL string) ([]byte, error) {
	p := page{
		Headline:       rel.Headline,
		Summary:        rel.Summary,
		Body:           sanitizeBody(rel.Content),
		Boilerplate:    rel.Boilerplate,
		Contact:        rel.Contact,
		CompanyName:    rel.Company.Name,
		CRONumber:      rel.Company.CRONumber,
		Slug:           rel.Slug,
		URL:            rel.URL,
		TrackURL:       strings.TrimRight(baseURL, "/") + "/v1/analytics/track",
		VerifiedDomain: rel.VerifiedDomain,
		PublishDate:    rel.CreatedAt.Format("2 January 2006"),
		Published:      rel.Published,
		LinkedData:     linkedData(rel),
		Year:           rel.CreatedAt.Year(),
	}
	if rel.UnpublishedAt != nil {
		p.UnpublishDate = rel.UnpublishedAt.Format("2 January 2006")
	}
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
