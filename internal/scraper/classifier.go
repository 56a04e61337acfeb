// Package scraper implements careers-page fetching, posting extraction,
// internship classification and deduplicated ingestion.
package scraper

import "strings"

// internshipKeywords is the hard admission rule. No company configuration
// can extend or bypass it.
var internshipKeywords = []string{
	"intern",
	"internship",
	"trainee",
	"graduate program",
	"student",
	"co-op",
	"placement",
	"industrial attachment",
}

// IsInternship returns true if any internship keyword appears
// (case-insensitive) anywhere in the combined title + description text.
//
// Called before every insert; a false result discards the posting.
func IsInternship(title, description string) bool {
	combined := strings.ToLower(title + " " + description)
	for _, kw := range internshipKeywords {
		if strings.Contains(combined, kw) {
			return true
		}
	}
	return false
}

// InternshipKeywords returns a copy of the classifier keyword list.
func InternshipKeywords() []string {
	return append([]string(nil), internshipKeywords...)
}
