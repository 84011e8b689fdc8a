package parser

import (
	"regexp"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/daraz-scraper/models"
)

// sellerNameSelector is the most reliable observed pattern for the seller
// block; the generic chain below it only runs when this one misses.
const sellerNameSelector = "div.seller-name__detail a.seller-name__detail-name"

// detailStrategies maps detail-page field names to their fallback chains.
var detailStrategies = map[string]StrategyList{
	"product_name": {
		{Selector: "h1[class*='pdp-product-name']"},
		{Selector: "h1[class*='product-name']"},
		{Selector: "h1[class*='title']"},
		{Selector: "h1"},
		{Selector: "span[class*='pdp-product-name']"},
		{Selector: "div[class*='product-name']"},
	},
	"price": {
		{Selector: "span[class*='pdp-price']", Check: HasDigit},
		{Selector: "span[class*='current-price']", Check: HasDigit},
		{Selector: "span[class*='price-current']", Check: HasDigit},
		{Selector: "div[class*='price-current']", Check: HasDigit},
		{Selector: "span[class*='currency']", Check: HasDigit},
	},
	"original_price": {
		{Selector: "span[class*='original-price']", Check: HasDigit},
		{Selector: "span[class*='price-original']", Check: HasDigit},
		{Selector: "span[class*='price-before']", Check: HasDigit},
		{Selector: "div[class*='price-original']", Check: HasDigit},
	},
	"discount": {
		{Selector: "span[class*='discount']"},
		{Selector: "div[class*='discount']"},
		{Selector: "span[class*='sale']"},
		{Selector: "div[class*='sale']"},
	},
	"rating": {
		{Selector: "span[class*='rating']", Check: HasDigit},
		{Selector: "div[class*='rating']", Check: HasDigit},
		{Selector: "span[class*='score']", Check: HasDigit},
		{Selector: "div[class*='score']", Check: HasDigit},
	},
	"review_count": {
		{Selector: "span[class*='review']", Check: HasDigit},
		{Selector: "div[class*='review']", Check: HasDigit},
		{Selector: "span[class*='comment']", Check: HasDigit},
		{Selector: "div[class*='comment']", Check: HasDigit},
	},
	"seller_name": {
		{Selector: "a[class*='seller']"},
		{Selector: "div[class*='seller']"},
		{Selector: "span[class*='seller']"},
		{Selector: "a[href*='seller']"},
	},
	"seller_location": {
		{Selector: "div[class*='seller-location']", Check: MinLen(4)},
		{Selector: "span[class*='location']", Check: MinLen(4)},
		{Selector: "div[class*='location']", Check: MinLen(4)},
	},
	"brand": {
		{Selector: "a[class*='brand']"},
		{Selector: "span[class*='brand']"},
		{Selector: "div[class*='brand']"},
	},
	"availability": {
		{Selector: "span[class*='stock']"},
		{Selector: "div[class*='stock']"},
		{Selector: "span[class*='availability']"},
		{Selector: "div[class*='availability']"},
	},
	"description": {
		{Selector: "div[class*='description']"},
		{Selector: "p[class*='description']"},
		{Selector: "div[class*='detail']"},
		{Selector: "div[class*='content']"},
	},
}

// locationPatterns scan free text for administrative regions. This is a
// heuristic last resort below the structural strategies; it can match
// unrelated page text and its results should be treated as best-effort.
var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`([A-Za-z ]+Province)`),
	regexp.MustCompile(`([A-Za-z ]+District)`),
	regexp.MustCompile(`([A-Za-z ]+City)`),
	regexp.MustCompile(`([A-Za-z ]+Nepal)`),
}

// ExtractField runs the registered strategy list for field against root. The
// second return value is false for unknown fields and for fields no
// hypothesis could locate.
func ExtractField(root *goquery.Selection, field string) (string, bool) {
	strategies, ok := detailStrategies[field]
	if !ok {
		return "", false
	}
	return strategies.Extract(root)
}

// ParseDetail extracts a product record from a product-detail document. It
// never fails: a field whose every hypothesis misses is simply left empty.
func ParseDetail(doc *goquery.Document, productURL string) models.ProductRecord {
	root := doc.Selection

	record := models.ProductRecord{
		ProductURL: productURL,
		ScrapedAt:  time.Now(),
	}

	record.ProductName, _ = ExtractField(root, "product_name")
	record.OriginalPrice, _ = ExtractField(root, "original_price")
	record.Discount, _ = ExtractField(root, "discount")
	record.Rating, _ = ExtractField(root, "rating")
	record.ReviewCount, _ = ExtractField(root, "review_count")
	record.Brand, _ = ExtractField(root, "brand")
	record.Availability, _ = ExtractField(root, "availability")
	record.Description, _ = ExtractField(root, "description")

	if price, ok := ExtractField(root, "price"); ok {
		record.Price = NormalizePrice(price)
	}

	if seller := CollapseSpace(doc.Find(sellerNameSelector).First().Text()); seller != "" {
		record.SellerName = seller
	} else {
		record.SellerName, _ = ExtractField(root, "seller_name")
	}

	if location, ok := ExtractField(root, "seller_location"); ok {
		record.SellerLocation = location
	} else {
		record.SellerLocation = locationFromText(doc)
	}

	return record
}

func locationFromText(doc *goquery.Document) string {
	text := doc.Text()
	for _, pattern := range locationPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		location := CollapseSpace(match[1])
		if len(location) > 3 {
			return location
		}
	}
	return ""
}
