package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/daraz-scraper/models"
	"golang.org/x/net/html"
)

// PriceUnavailable marks a card whose price could not be extracted by any
// hypothesis.
const PriceUnavailable = "Price not available"

// productLinkSelector matches anchors pointing at product-detail pages.
const productLinkSelector = "a[href*='/products/']"

// cardSelectors is the ordered discovery chain for product cards. The
// marketplace alternates between these container shapes across deploys.
var cardSelectors = []string{
	"div[data-qa-locator='product-item']",
	"div.product-item",
	"div[class*='product-item']",
	"div[class*='ProductItem']",
	"div[class*='product-card']",
	"div[class*='ProductCard']",
}

var summaryNameStrategies = StrategyList{
	{Selector: "div.RfADt", Check: plausibleName},
	{Selector: "div[class*='title']", Check: plausibleName},
	{Selector: "div[class*='product-name']", Check: plausibleName},
	{Selector: "div[class*='name']", Check: plausibleName},
	{Selector: "h3", Check: plausibleName},
	{Selector: "h4", Check: plausibleName},
	{Selector: "h5", Check: plausibleName},
	{Selector: "span[class*='title']", Check: plausibleName},
	{Selector: "span[class*='name']", Check: plausibleName},
}

var summaryPriceStrategies = StrategyList{
	{Selector: "span[class*='price']", Check: HasDigit},
	{Selector: "div[class*='price']", Check: HasDigit},
	{Selector: "span[class*='currency']", Check: HasDigit},
	{Selector: "div[class*='currency']", Check: HasDigit},
	{Selector: "span[class*='amount']", Check: HasDigit},
}

var cardPricePattern = regexp.MustCompile(`Rs\.\s*[\d,]+`)

// ParseSummaries extracts the ordered list of product summaries from a
// search-results document. Output order equals document order; that order is
// the authoritative site ranking downstream rank numbers derive from. Cards
// lacking both a product URL and a name are dropped silently.
func ParseSummaries(doc *goquery.Document, baseURL string) []models.SearchSummary {
	cards := discoverCards(doc)

	summaries := make([]models.SearchSummary, 0, len(cards))
	for _, card := range cards {
		link := card.Find(productLinkSelector).First()
		if link.Length() == 0 {
			continue
		}
		href := strings.TrimSpace(link.AttrOr("href", ""))
		if href == "" {
			continue
		}
		productURL := AbsoluteURL(baseURL, href)

		name, ok := summaryNameStrategies.Extract(card)
		if !ok {
			name = CollapseSpace(link.Text())
		}
		if name == "" {
			continue
		}

		price, ok := summaryPriceStrategies.Extract(card)
		if !ok {
			price = cardPricePattern.FindString(card.Text())
		}
		if price == "" {
			price = PriceUnavailable
		}

		summaries = append(summaries, models.SearchSummary{
			Name:  name,
			Price: NormalizePrice(price),
			URL:   productURL,
		})
	}
	return summaries
}

// discoverCards locates product card boundaries. When no known container
// shape matches, every product anchor's nearest block-level ancestor becomes
// the card, deduplicated by node in document order.
func discoverCards(doc *goquery.Document) []*goquery.Selection {
	for _, selector := range cardSelectors {
		found := doc.Find(selector)
		if found.Length() > 0 {
			cards := make([]*goquery.Selection, 0, found.Length())
			found.Each(func(_ int, card *goquery.Selection) {
				cards = append(cards, card)
			})
			return cards
		}
	}

	var cards []*goquery.Selection
	seen := make(map[*html.Node]struct{})
	doc.Find(productLinkSelector).Each(func(_ int, link *goquery.Selection) {
		parent := link.Closest("div, article, section")
		if parent.Length() == 0 {
			return
		}
		node := parent.Get(0)
		if _, dup := seen[node]; dup {
			return
		}
		seen[node] = struct{}{}
		cards = append(cards, parent)
	})
	return cards
}

// AbsoluteURL resolves a card link against the marketplace host. The site
// mixes absolute, root-relative and protocol-relative hrefs.
func AbsoluteURL(baseURL, href string) string {
	base := strings.TrimSuffix(baseURL, "/")
	switch {
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	case strings.HasPrefix(href, "/"):
		return base + href
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		return href
	default:
		return base + "/" + href
	}
}
