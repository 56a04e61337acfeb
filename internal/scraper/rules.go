package scraper

import (
	"fmt"
	"os"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

// SelectorRule is one structural heuristic for locating posting anchors.
// Rules are applied in order; a candidate keeps the rule that found it first.
type SelectorRule struct {
	Name       string  `yaml:"name"`
	Selector   string  `yaml:"selector"`
	Confidence float64 `yaml:"confidence"`
}

// DefaultRules returns the built-in rule list, broad to narrow.
func DefaultRules() []SelectorRule {
	return []SelectorRule{
		{Name: "href-intern", Selector: `a[href*="intern"]`, Confidence: 0.9},
		{Name: "class-intern", Selector: `[class*="intern"] a, a[class*="intern"]`, Confidence: 0.8},
		{Name: "href-job", Selector: `a[href*="job"]`, Confidence: 0.7},
		{Name: "href-position", Selector: `a[href*="position"]`, Confidence: 0.7},
		{Name: "href-career", Selector: `a[href*="career"]`, Confidence: 0.6},
		{Name: "href-opening", Selector: `a[href*="opening"]`, Confidence: 0.7},
		{Name: "href-listing", Selector: `a[href*="listing"]`, Confidence: 0.6},
		{Name: "href-vacancy", Selector: `a[href*="vacanc"]`, Confidence: 0.7},
		{Name: "class-job", Selector: `[class*="job"] a, a[class*="job"]`, Confidence: 0.6},
		{Name: "class-position", Selector: `[class*="position"] a, a[class*="position"]`, Confidence: 0.6},
		{Name: "class-opening", Selector: `[class*="opening"] a, a[class*="opening"]`, Confidence: 0.6},
		{Name: "class-career", Selector: `[class*="career"] a, a[class*="career"]`, Confidence: 0.5},
		{Name: "class-listing", Selector: `[class*="listing"] a, a[class*="listing"]`, Confidence: 0.5},
		{Name: "class-vacancy", Selector: `[class*="vacanc"] a, a[class*="vacanc"]`, Confidence: 0.6},
		{Name: "heading-link", Selector: `h2 a, h3 a, h4 a`, Confidence: 0.4},
	}
}

type rulesFile struct {
	Rules []SelectorRule `yaml:"rules"`
}

// LoadRules reads an ordered rule list from a YAML file.
func LoadRules(path string) ([]SelectorRule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(raw)
}

// ParseRules decodes and validates a YAML rule list.
func ParseRules(raw []byte) ([]SelectorRule, error) {
	var f rulesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("rules file defines no rules")
	}
	for i, r := range f.Rules {
		if r.Selector == "" {
			return nil, fmt.Errorf("rule %d (%q): selector is required", i, r.Name)
		}
		if _, err := cascadia.Compile(r.Selector); err != nil {
			return nil, fmt.Errorf("rule %d (%q): invalid selector: %w", i, r.Name, err)
		}
		if r.Confidence < 0 || r.Confidence > 1 {
			return nil, fmt.Errorf("rule %d (%q): confidence must be within [0,1], got %v", i, r.Name, r.Confidence)
		}
		if r.Name == "" {
			f.Rules[i].Name = fmt.Sprintf("rule-%d", i)
		}
	}
	return f.Rules, nil
}
