package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/user/daraz-scraper/models"
)

var priceValuePattern = regexp.MustCompile(`Rs\.\s*[\d,]+(?:\.\d+)?`)

// CollapseSpace trims a string and folds internal whitespace runs, including
// newlines, into single spaces.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizePrice reduces a price blob to its first "Rs. <amount>" occurrence
// when one is present; otherwise it returns the collapsed input unchanged.
func NormalizePrice(s string) string {
	s = CollapseSpace(s)
	if match := priceValuePattern.FindString(s); match != "" {
		return match
	}
	return s
}

// ValidateSummary ensures a parsed card carries the fields downstream rank
// assignment depends on.
func ValidateSummary(s models.SearchSummary) error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("summary missing name")
	}
	if strings.TrimSpace(s.URL) == "" {
		return fmt.Errorf("summary missing url for %s", s.Name)
	}
	if !strings.HasPrefix(s.URL, "http://") && !strings.HasPrefix(s.URL, "https://") {
		return fmt.Errorf("summary url %q is not absolute", s.URL)
	}
	return nil
}
