// Package parser turns marketplace HTML into structured summaries and
// product records. The markup is unstable and unversioned, so every field is
// located by an ordered list of structural hypotheses rather than a single
// selector.
package parser

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// Check reports whether an extracted value is plausible for its field.
type Check func(string) bool

// Strategy is one structural hypothesis for locating a field's value.
type Strategy struct {
	Selector string
	Attr     string // read this attribute instead of the text content
	Check    Check
}

// StrategyList is an ordered, immutable set of hypotheses. Extract tries
// them in order; the first non-empty value passing its check wins.
type StrategyList []Strategy

// Extract runs the list against root. The second return value is false when
// no hypothesis produced a plausible value.
func (sl StrategyList) Extract(root *goquery.Selection) (string, bool) {
	for _, strategy := range sl {
		node := root.Find(strategy.Selector).First()
		if node.Length() == 0 {
			continue
		}

		var value string
		if strategy.Attr != "" {
			value = node.AttrOr(strategy.Attr, "")
		} else {
			value = node.Text()
		}
		value = CollapseSpace(value)
		if value == "" {
			continue
		}
		if strategy.Check != nil && !strategy.Check(value) {
			continue
		}
		return value, true
	}
	return "", false
}

// HasDigit accepts values containing at least one digit. Prices, ratings and
// review counts are meaningless without one.
func HasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// MinLen builds a check rejecting values shorter than n bytes.
func MinLen(n int) Check {
	return func(s string) bool {
		return len(s) >= n
	}
}

// plausibleName rejects values too short to be a product name and values
// that are really a price tag caught by a broad selector.
func plausibleName(s string) bool {
	return len(s) > 3 && !strings.HasPrefix(s, "Rs.")
}
