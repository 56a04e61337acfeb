package scraper_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jobmate/internship-crawler/internal/scraper"
)

const acmePage = "https://acme.com/careers"

func extract(t *testing.T, html string) []string {
	t.Helper()
	ex := scraper.NewExtractor(nil, zap.NewNop())
	got, err := ex.Extract(acmePage, html)
	require.NoError(t, err)
	titles := make([]string, 0, len(got))
	for _, p := range got {
		titles = append(titles, p.Title)
	}
	return titles
}

func TestExtract_AcmeScenario(t *testing.T) {
	html := `<html><body>
		<a href="/jobs/se-intern">Software Engineering Intern</a>
		<a href="/jobs/pm">Product Manager</a>
	</body></html>`

	ex := scraper.NewExtractor(nil, zap.NewNop())
	got, err := ex.Extract(acmePage, html)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Software Engineering Intern", got[0].Title)
	assert.Equal(t, "https://acme.com/jobs/se-intern", got[0].URL)
	assert.Equal(t, "href-intern", got[0].Rule)
}

func TestExtract_TitleLengthBoundaries(t *testing.T) {
	pad := func(n int) string { return "Intern" + strings.Repeat("x", n-len("Intern")) }
	cases := []struct {
		length int
		want   bool
	}{
		{6, true},
		{200, true},
		{201, false},
	}
	for _, c := range cases {
		title := pad(c.length)
		html := fmt.Sprintf(`<a href="/jobs/1">%s</a>`, title)
		titles := extract(t, html)
		assert.Equal(t, c.want, len(titles) == 1, "length %d", c.length)
	}

	// The shortest pre-filter keyword has six characters, so the lower
	// bound is checked directly.
	assert.True(t, scraper.ValidTitleLength("abcde"))
	assert.False(t, scraper.ValidTitleLength("abcd"))
	assert.True(t, scraper.ValidTitleLength(strings.Repeat("a", 200)))
	assert.False(t, scraper.ValidTitleLength(strings.Repeat("a", 201)))
}

func TestExtract_PreFilterRejectsNonKeywordTitles(t *testing.T) {
	html := `
		<a href="https://acme.com/jobs/1">Senior Engineer</a>
		<a href="/jobs/2">Data Analyst</a>
		<a href="/jobs/3">Graduate Trainee, Finance</a>
		<a href="/jobs/4">Student Ambassador</a>
		<a href="/jobs/5">Apprentice Technician</a>`
	assert.Equal(t, []string{"Graduate Trainee, Finance", "Student Ambassador", "Apprentice Technician"}, extract(t, html))
}

func TestExtract_PreFilterIsCaseInsensitive(t *testing.T) {
	html := `<a href="/jobs/1">SUMMER INTERNSHIP 2026</a>`
	assert.Equal(t, []string{"SUMMER INTERNSHIP 2026"}, extract(t, html))
}

func TestExtract_DropsUnresolvableURLs(t *testing.T) {
	html := `
		<a href="not-a-url">Intern A</a>
		<a href="jobs/relative">Intern B</a>
		<a href="mailto:jobs@acme.com">Intern C</a>
		<a>Intern D</a>
		<a href="https://boards.example.com/job/9">Intern E</a>`
	// Only anchors matched by a rule are considered; wrap them in a job list.
	html = `<div class="job-list">` + html + `</div>`
	assert.Equal(t, []string{"Intern E"}, extract(t, html))
}

func TestExtract_CollapsesWhitespace(t *testing.T) {
	html := "<a href=\"/jobs/1\">\n   Marketing \t\n  Intern   </a>"
	assert.Equal(t, []string{"Marketing Intern"}, extract(t, html))
}

func TestExtract_DedupesByExactTitleFirstWins(t *testing.T) {
	html := `
		<a href="/jobs/a">Design Intern</a>
		<a href="/jobs/b">Design Intern</a>
		<a href="/jobs/c">design intern</a>`

	ex := scraper.NewExtractor(nil, zap.NewNop())
	got, err := ex.Extract(acmePage, html)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://acme.com/jobs/a", got[0].URL)
	assert.Equal(t, "design intern", got[1].Title)
}

func TestExtract_HeadingWrappedAnchor(t *testing.T) {
	html := `<section><h3><a href="/roles/42">Research Intern</a></h3></section>`
	ex := scraper.NewExtractor(nil, zap.NewNop())
	got, err := ex.Extract(acmePage, html)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "heading-link", got[0].Rule)
}

func TestExtract_CardLocationAndDescription(t *testing.T) {
	html := `<ul>
		<li class="job-card">
			<a href="/jobs/ops">Operations Trainee</a>
			<span class="job-location">Jurong East</span>
			<p>Six month placement with the logistics team.</p>
		</li>
	</ul>`
	ex := scraper.NewExtractor(nil, zap.NewNop())
	got, err := ex.Extract(acmePage, html)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Jurong East", got[0].Location)
	assert.Contains(t, got[0].Description, "placement with the logistics team")
}

func TestExtract_SharedContainerIsNotACard(t *testing.T) {
	html := `<div class="jobs-list">
		<a href="/jobs/analyst">Graduate Analyst</a>
		<span class="location">Tokyo</span>
		<a href="/jobs/se-intern">Software Engineering Intern</a>
	</div>`
	ex := scraper.NewExtractor(nil, zap.NewNop())
	got, err := ex.Extract(acmePage, html)
	require.NoError(t, err)
	require.Len(t, got, 2)

	byTitle := map[string]int{}
	for i, p := range got {
		byTitle[p.Title] = i
		assert.Empty(t, p.Location, p.Title)
		assert.Empty(t, p.Description, p.Title)
	}
	analyst := got[byTitle["Graduate Analyst"]]
	assert.False(t, scraper.IsInternship(analyst.Title, analyst.Description))
	intern := got[byTitle["Software Engineering Intern"]]
	assert.True(t, scraper.IsInternship(intern.Title, intern.Description))
}

func TestExtract_CardsInsideSharedList(t *testing.T) {
	html := `<ul class="jobs-list">
		<li><a href="/jobs/1">Marketing Intern</a> <span class="location">Bugis</span></li>
		<li><a href="/jobs/2">Graduate Engineer</a> <span class="location">Changi</span></li>
	</ul>`
	ex := scraper.NewExtractor(nil, zap.NewNop())
	got, err := ex.Extract(acmePage, html)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Bugis", got[0].Location)
	assert.Equal(t, "Marketing Intern Bugis", got[0].Description)
	assert.Equal(t, "Changi", got[1].Location)
	assert.NotContains(t, got[1].Description, "Intern")
}

func TestExtract_InternClassHint(t *testing.T) {
	html := `<div class="internships"><a href="/p/1">Software Intern</a></div>`
	ex := scraper.NewExtractor(nil, zap.NewNop())
	got, err := ex.Extract(acmePage, html)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "class-intern", got[0].Rule)
	assert.Equal(t, "https://acme.com/p/1", got[0].URL)
}

func TestExtract_NoMatchesIsNotAnError(t *testing.T) {
	assert.Empty(t, extract(t, `<html><body><p>No openings right now.</p></body></html>`))
	assert.Empty(t, extract(t, `<<<not really html`))
}

func TestExtract_CustomRules(t *testing.T) {
	rules := []scraper.SelectorRule{{Name: "only-data-role", Selector: `a[data-role="posting"]`, Confidence: 1}}
	ex := scraper.NewExtractor(rules, zap.NewNop())
	got, err := ex.Extract(acmePage, `
		<a data-role="posting" href="/x/1">Finance Intern</a>
		<a href="/jobs/2">Legal Intern</a>`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Finance Intern", got[0].Title)
	assert.Equal(t, 1.0, got[0].Confidence)
}
