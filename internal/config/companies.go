package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"jobmate/internship-crawler/internal/model"
	"jobmate/internship-crawler/internal/scraper"
)

// companyEntry mirrors one YAML entry. Enabled is a pointer so that an
// omitted key can default to true.
type companyEntry struct {
	Name       string `yaml:"name"`
	Website    string `yaml:"website"`
	CareersURL string `yaml:"careers_url"`
	Industry   string `yaml:"industry"`
	Size       string `yaml:"size"`
	Enabled    *bool  `yaml:"enabled"`
	Render     string `yaml:"render"`
}

// LoadCompanies reads and validates the company directory at path.
func LoadCompanies(path string) ([]model.CompanyTarget, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read company directory: %w", err)
	}
	companies, err := ParseCompanies(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return companies, nil
}

// ParseCompanies decodes a YAML list of companies. Names must be non-empty
// and unique; careers URLs must be absolute http(s) URLs.
func ParseCompanies(raw []byte) ([]model.CompanyTarget, error) {
	var entries []companyEntry
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&entries); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse company directory: %w", err)
	}

	seen := make(map[string]bool, len(entries))
	companies := make([]model.CompanyTarget, 0, len(entries))
	for i, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("company %d: name is required", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("company %q: duplicate name", name)
		}
		seen[name] = true

		if !scraper.IsAbsoluteHTTPURL(e.CareersURL) {
			return nil, fmt.Errorf("company %q: careers_url must be an absolute http(s) URL, got %q", name, e.CareersURL)
		}
		if e.Website != "" && !scraper.IsAbsoluteHTTPURL(e.Website) {
			return nil, fmt.Errorf("company %q: website must be an absolute http(s) URL, got %q", name, e.Website)
		}
		mode, err := model.ParseRenderMode(e.Render)
		if err != nil {
			return nil, fmt.Errorf("company %q: %w", name, err)
		}

		enabled := true
		if e.Enabled != nil {
			enabled = *e.Enabled
		}
		companies = append(companies, model.CompanyTarget{
			Name:       name,
			Website:    e.Website,
			CareersURL: e.CareersURL,
			Industry:   e.Industry,
			Size:       e.Size,
			Enabled:    enabled,
			Render:     mode,
		})
	}
	return companies, nil
}
