package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"jobmate/internship-crawler/internal/model"
)

const (
	MinTitleLength = 5
	MaxTitleLength = 200

	maxDescriptionLength = 500
)

// titleKeywords is the extraction pre-filter. It only looks at the title and
// runs before, and independently of, the IsInternship rule.
var titleKeywords = []string{"intern", "trainee", "graduate", "student", "apprentice"}

// cardSelector matches containers that may group one posting's fields.
const cardSelector = `li, article, tr, [class*="job"], [class*="card"], [class*="posting"], [class*="opening"], [class*="position"]`

// Extractor turns rendered careers-page HTML into candidate postings.
type Extractor struct {
	rules  []SelectorRule
	logger *zap.Logger
}

// NewExtractor constructs an Extractor. An empty rule list means DefaultRules.
func NewExtractor(rules []SelectorRule, logger *zap.Logger) *Extractor {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Extractor{rules: rules, logger: logger.With(zap.String("component", "extractor"))}
}

// Extract parses html and returns the page's candidates in rule order, then
// document order. Duplicate titles on the same page keep the first occurrence.
// An empty result is not an error.
func (e *Extractor) Extract(pageURL, html string) ([]model.ExtractedPosting, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var (
		out  []model.ExtractedPosting
		seen = make(map[string]struct{})
	)
	for _, rule := range e.rules {
		doc.Find(rule.Selector).Each(func(_ int, a *goquery.Selection) {
			p, ok := e.candidate(pageURL, a)
			if !ok {
				return
			}
			if _, dup := seen[p.Title]; dup {
				return
			}
			seen[p.Title] = struct{}{}
			p.Rule = rule.Name
			p.Confidence = rule.Confidence
			out = append(out, p)
		})
	}

	e.logger.Debug("extracted candidates", zap.String("url", pageURL), zap.Int("count", len(out)))
	return out, nil
}

// candidate applies the per-anchor checks: pre-filter keyword, URL
// resolution and title length.
func (e *Extractor) candidate(pageURL string, a *goquery.Selection) (model.ExtractedPosting, bool) {
	title := CollapseWhitespace(a.Text())
	if title == "" {
		title = CollapseWhitespace(a.AttrOr("aria-label", ""))
	}
	if !HasTitleKeyword(title) {
		return model.ExtractedPosting{}, false
	}

	href, _ := a.Attr("href")
	abs, err := ResolveHref(pageURL, href)
	if err != nil {
		return model.ExtractedPosting{}, false
	}

	if !ValidTitleLength(title) {
		return model.ExtractedPosting{}, false
	}

	p := model.ExtractedPosting{Title: title, URL: abs}
	if card := postingCard(a); card != nil {
		p.Location = CollapseWhitespace(card.Find(`[class*="location"]`).First().Text())
		p.Description = truncate(CollapseWhitespace(card.Text()), maxDescriptionLength)
	}
	return p, true
}

// postingCard returns the nearest cardSelector ancestor of a that links to
// no other posting, or nil. Climbing stops at the first ancestor holding a
// second link, so a list container never lends one posting's text to another.
func postingCard(a *goquery.Selection) *goquery.Selection {
	for n := a.Parent(); n.Length() > 0; n = n.Parent() {
		if n.Find("a[href]").Length() > 1 {
			return nil
		}
		if n.Is(cardSelector) {
			return n
		}
	}
	return nil
}

// HasTitleKeyword reports whether title contains a pre-filter keyword.
func HasTitleKeyword(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range titleKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ValidTitleLength enforces the inclusive 5..200 character bound.
func ValidTitleLength(title string) bool {
	n := len([]rune(title))
	return n >= MinTitleLength && n <= MaxTitleLength
}

// CollapseWhitespace trims s and folds every whitespace run to one space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
