package parser

import (
	"fmt"
	"strings"
	"testing"
)

const summaryBaseURL = "https://www.daraz.com.np"

type cardFixture struct {
	name  string
	price string
	href  string
}

// buildSearchPage renders cards with the marketplace's primary container
// shape.
func buildSearchPage(cards []cardFixture) string {
	var sb strings.Builder
	sb.WriteString("<html><body><div class='results'>")
	for _, card := range cards {
		sb.WriteString("<div data-qa-locator='product-item'>")
		if card.href != "" {
			fmt.Fprintf(&sb, "<a href=%q>", card.href)
		}
		if card.name != "" {
			fmt.Fprintf(&sb, "<div class='RfADt'>%s</div>", card.name)
		}
		if card.href != "" {
			sb.WriteString("</a>")
		}
		if card.price != "" {
			fmt.Fprintf(&sb, "<span class='ooOxS price'>%s</span>", card.price)
		}
		sb.WriteString("</div>")
	}
	sb.WriteString("</div></body></html>")
	return sb.String()
}

func TestParseSummariesOrderAndFields(t *testing.T) {
	page := buildSearchPage([]cardFixture{
		{name: "Colgate Toothpaste 200g", price: "Rs. 250", href: "/products/colgate-1.html"},
		{name: "Sensodyne Repair 100g", price: "Rs. 410", href: "//www.daraz.com.np/products/sensodyne-2.html"},
		{name: "Close Up Deep Action", price: "Rs. 190", href: "https://www.daraz.com.np/products/closeup-3.html"},
		{name: "Dabur Red Paste", price: "Rs. 165", href: "/products/dabur-4.html"},
		{name: "Himalaya Complete Care", price: "Rs. 320", href: "/products/himalaya-5.html"},
	})

	summaries := ParseSummaries(mustParse(t, page), summaryBaseURL)
	if len(summaries) != 5 {
		t.Fatalf("summaries = %d, want 5", len(summaries))
	}

	wantNames := []string{
		"Colgate Toothpaste 200g",
		"Sensodyne Repair 100g",
		"Close Up Deep Action",
		"Dabur Red Paste",
		"Himalaya Complete Care",
	}
	wantURLs := []string{
		"https://www.daraz.com.np/products/colgate-1.html",
		"https://www.daraz.com.np/products/sensodyne-2.html",
		"https://www.daraz.com.np/products/closeup-3.html",
		"https://www.daraz.com.np/products/dabur-4.html",
		"https://www.daraz.com.np/products/himalaya-5.html",
	}
	for i, summary := range summaries {
		if summary.Name != wantNames[i] {
			t.Errorf("summary[%d].Name = %q, want %q", i, summary.Name, wantNames[i])
		}
		if summary.URL != wantURLs[i] {
			t.Errorf("summary[%d].URL = %q, want %q", i, summary.URL, wantURLs[i])
		}
		if !strings.HasPrefix(summary.Price, "Rs.") {
			t.Errorf("summary[%d].Price = %q, want an Rs. amount", i, summary.Price)
		}
	}
}

func TestParseSummariesSkipsCardsWithoutLink(t *testing.T) {
	page := buildSearchPage([]cardFixture{
		{name: "Colgate Toothpaste 200g", price: "Rs. 250", href: "/products/colgate-1.html"},
		{name: "Orphan Card No Link", price: "Rs. 99"},
		{name: "Dabur Red Paste", price: "Rs. 165", href: "/products/dabur-4.html"},
	})

	summaries := ParseSummaries(mustParse(t, page), summaryBaseURL)
	if len(summaries) != 2 {
		t.Fatalf("summaries = %d, want 2", len(summaries))
	}
	if summaries[0].Name != "Colgate Toothpaste 200g" || summaries[1].Name != "Dabur Red Paste" {
		t.Errorf("unexpected summaries: %+v", summaries)
	}
}

func TestParseSummariesPriceFallbacks(t *testing.T) {
	page := `<html><body>
		<div data-qa-locator='product-item'>
			<a href='/products/regex-1.html'><div class='RfADt'>Regex Price Product</div></a>
			<div class='random-text'>Hot deal Rs. 1,499 this week</div>
		</div>
		<div data-qa-locator='product-item'>
			<a href='/products/none-2.html'><div class='RfADt'>No Price Product</div></a>
		</div>
	</body></html>`

	summaries := ParseSummaries(mustParse(t, page), summaryBaseURL)
	if len(summaries) != 2 {
		t.Fatalf("summaries = %d, want 2", len(summaries))
	}
	if summaries[0].Price != "Rs. 1,499" {
		t.Errorf("regex fallback price = %q, want %q", summaries[0].Price, "Rs. 1,499")
	}
	if summaries[1].Price != PriceUnavailable {
		t.Errorf("missing price = %q, want %q", summaries[1].Price, PriceUnavailable)
	}
}

func TestParseSummariesNameFallsBackToLinkText(t *testing.T) {
	page := `<html><body>
		<div data-qa-locator='product-item'>
			<a href='/products/link-text-1.html'>Anchor Text Product</a>
			<span class='price'>Rs. 500</span>
		</div>
	</body></html>`

	summaries := ParseSummaries(mustParse(t, page), summaryBaseURL)
	if len(summaries) != 1 {
		t.Fatalf("summaries = %d, want 1", len(summaries))
	}
	if summaries[0].Name != "Anchor Text Product" {
		t.Errorf("Name = %q, want link text", summaries[0].Name)
	}
}

func TestDiscoverCardsAnchorFallback(t *testing.T) {
	// No known card container shape anywhere; discovery must fall back to
	// the nearest block ancestor of each product anchor.
	page := `<html><body>
		<section class='listing'>
			<div class='row-one'>
				<a href='/products/first-1.html'>First Product Name</a>
				<a href='/products/first-1.html#reviews'>Reviews</a>
				<span class='price'>Rs. 100</span>
			</div>
			<div class='row-two'>
				<a href='/products/second-2.html'>Second Product Name</a>
				<span class='price'>Rs. 200</span>
			</div>
		</section>
	</body></html>`

	summaries := ParseSummaries(mustParse(t, page), summaryBaseURL)
	if len(summaries) != 2 {
		t.Fatalf("summaries = %d, want 2 (ancestors deduplicated)", len(summaries))
	}
	if summaries[0].URL != "https://www.daraz.com.np/products/first-1.html" {
		t.Errorf("summary[0].URL = %q", summaries[0].URL)
	}
	if summaries[1].Name != "Second Product Name" {
		t.Errorf("summary[1].Name = %q", summaries[1].Name)
	}
}

func TestParseSummariesEmptyPage(t *testing.T) {
	summaries := ParseSummaries(mustParse(t, "<html><body><p>Nothing here</p></body></html>"), summaryBaseURL)
	if len(summaries) != 0 {
		t.Fatalf("summaries = %d, want 0", len(summaries))
	}
}

func TestAbsoluteURL(t *testing.T) {
	tests := []struct {
		name     string
		href     string
		expected string
	}{
		{
			name:     "root relative",
			href:     "/products/item-1.html",
			expected: "https://www.daraz.com.np/products/item-1.html",
		},
		{
			name:     "protocol relative",
			href:     "//www.daraz.com.np/products/item-2.html",
			expected: "https://www.daraz.com.np/products/item-2.html",
		},
		{
			name:     "already absolute",
			href:     "https://www.daraz.com.np/products/item-3.html",
			expected: "https://www.daraz.com.np/products/item-3.html",
		},
		{
			name:     "bare path",
			href:     "products/item-4.html",
			expected: "https://www.daraz.com.np/products/item-4.html",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AbsoluteURL(summaryBaseURL, tt.href); got != tt.expected {
				t.Errorf("AbsoluteURL(%q) = %q, want %q", tt.href, got, tt.expected)
			}
		})
	}
}
