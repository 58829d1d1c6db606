package generate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/presswire-api/internal/domain"
)

const maxHeadline = 100

// Text is the generated copy for one release.
type Text struct {
	Headline    string `json:"headline"`
	Summary     string `json:"summary"`
	Content     string `json:"content"`
	Boilerplate string `json:"boilerplate"`
}

var packagePrompts = map[string]string{
	"starter":      "Create a basic press release",
	"professional": "Create a professional, SEO-optimized press release with enhanced storytelling",
	"enterprise":   "Create a premium press release with maximum impact, storytelling, and media appeal",
}

const systemPrompt = `You are a professional PR writer for Irish businesses.
Create compelling, newsworthy press releases that follow AP style.
Include Irish market context and local relevance.
Make it authentic and avoid marketing fluff.
Focus on news value and factual information.`

func packageOf(req domain.GenerateRequest) string {
	if _, ok := packagePrompts[req.Package]; ok {
		return req.Package
	}
	return "starter"
}

func userPrompt(req domain.GenerateRequest, id domain.Identity) string {
	trusted := ""
	if id.IsTrustedTLD {
		trusted = "(Irish domain ✓)"
	}
	return fmt.Sprintf(`%s for:

Company: %s (CRO: %s)
Status: %s
Domain: %s %s

Headline: %s
Summary: %s

Key Points to expand:
%s

Contact: %s

Please create a press release with:
1. An attention-grabbing headline (max 100 chars)
2. A compelling lead paragraph
3. Body paragraphs expanding the key points
4. A company boilerplate
5. Contact information

Format as JSON with fields: headline, summary, content, boilerplate`,
		packagePrompts[packageOf(req)],
		req.Company.Name, req.Company.CRONumber, req.Company.Status,
		id.Domain, trusted,
		req.Headline, req.Summary, req.KeyPoints, req.Contact)
}

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// parseCompletion extracts the JSON object from model output. Output without
// one is used as the body text. Blank fields fall back to the request.
func parseCompletion(raw string, req domain.GenerateRequest) Text {
	var t Text
	parsed := false
	if m := jsonObject.FindString(raw); m != "" {
		parsed = json.Unmarshal([]byte(m), &t) == nil
	}
	if !parsed {
		t = Text{Content: raw, Boilerplate: "About " + req.Company.Name}
	}
	if t.Headline == "" {
		t.Headline = req.Headline
	}
	if t.Summary == "" {
		t.Summary = req.Summary
	}
	if t.Content == "" {
		t.Content = req.KeyPoints
	}
	if t.Boilerplate == "" {
		t.Boilerplate = fmt.Sprintf("About %s: %s", req.Company.Name, req.Summary)
	}
	return t
}

var bullet = regexp.MustCompile(`^[•\-*]\s*`)

func keyPointLines(keyPoints string) []string {
	var out []string
	for _, line := range strings.Split(keyPoints, "\n") {
		if p := strings.TrimSpace(bullet.ReplaceAllString(strings.TrimSpace(line), "")); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// fallback builds release copy from the request alone. Text is not escaped
// here; the page renderer escapes everything outside its allowed tags.
func fallback(req domain.GenerateRequest, id domain.Identity, now time.Time) Text {
	var b strings.Builder
	fmt.Fprintf(&b, "<p><strong>DUBLIN, Ireland - %s</strong> - %s</p>\n", now.Format("2 January 2006"), req.Summary)
	for _, p := range keyPointLines(req.KeyPoints) {
		fmt.Fprintf(&b, "<p>%s</p>\n", p)
	}
	fmt.Fprintf(&b, "<p>This announcement represents a significant development for %s and demonstrates the company's continued commitment to growth and innovation in the Irish market.</p>\n", req.Company.Name)
	if id.IsTrustedTLD {
		b.WriteString("<p>As an Irish-registered company, this initiative reinforces our dedication to contributing to the local economy and business ecosystem.</p>\n")
	}
	switch packageOf(req) {
	case "professional":
		b.WriteString("<p><strong>About the Industry:</strong> This development comes at a time of significant growth in the Irish business sector, with companies continuing to innovate and expand their operations.</p>")
	case "enterprise":
		b.WriteString("<p><strong>Market Context:</strong> This announcement positions the company at the forefront of industry developments, reflecting broader trends in digital transformation and business growth across Ireland.</p>")
	}

	status := req.Company.Status
	if status == "" {
		status = "registered"
	}
	boiler := fmt.Sprintf("%s (CRO: %s) is a %s company registered in Ireland.", req.Company.Name, req.Company.CRONumber, strings.ToLower(status))
	if req.Company.Type != "" {
		boiler += fmt.Sprintf(" The company operates as a %s.", req.Company.Type)
	}
	boiler += fmt.Sprintf(" For more information about %s and its services, please contact us using the details provided.", req.Company.Name)

	summary := req.Summary
	if summary == "" {
		summary = fmt.Sprintf("%s announces %s", req.Company.Name, strings.ToLower(req.Headline))
	}
	return Text{
		Headline:    truncate(req.Headline, maxHeadline),
		Summary:     summary,
		Content:     strings.TrimSpace(b.String()),
		Boilerplate: boiler,
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slugPart(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// Slug is <company-name-kebab>-<cro>-<unix-ms>.
func Slug(companyName, cro string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%d", slugPart(companyName), slugPart(cro), now.UnixMilli())
}
