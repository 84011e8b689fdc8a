// Package models defines the data structures exchanged by the pipeline.
package models

import "time"

// SearchSummary is the lightweight (name, price, url) tuple parsed from one
// product card on a search-results page. URL is always absolute on the
// marketplace host; normalization happens at parse time.
type SearchSummary struct {
	Name  string `json:"name"`
	Price string `json:"price"`
	URL   string `json:"url"`
}

// ProductRecord is the unit of output: the full set of fields parsed from a
// product's own page, merged with its summary. Rank is the 1-based position
// of the product in the site's presented search order and is set even when
// detail extraction failed.
type ProductRecord struct {
	ProductName    string    `csv:"product_name" json:"product_name"`
	Price          string    `csv:"price" json:"price"`
	OriginalPrice  string    `csv:"original_price" json:"original_price"`
	Discount       string    `csv:"discount" json:"discount"`
	Rating         string    `csv:"rating" json:"rating"`
	ReviewCount    string    `csv:"review_count" json:"review_count"`
	SellerName     string    `csv:"seller_name" json:"seller_name"`
	SellerLocation string    `csv:"seller_location" json:"seller_location"`
	Brand          string    `csv:"brand" json:"brand"`
	Availability   string    `csv:"availability" json:"availability"`
	Description    string    `csv:"description" json:"description"`
	ProductURL     string    `csv:"product_url" json:"product_url"`
	Rank           int       `csv:"rank" json:"rank"`
	ScrapedAt      time.Time `csv:"scraped_at" json:"scraped_at"`
	Error          string    `csv:"error" json:"error,omitempty"`
}

// Degraded reports whether the record carries summary data only because its
// detail fetch or parse failed.
func (r ProductRecord) Degraded() bool {
	return r.Error != ""
}
