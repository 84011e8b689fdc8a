package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/daraz-scraper/models"
)

func sampleRecord() models.ProductRecord {
	return models.ProductRecord{
		ProductName:    "Acer Aspire 5 Gaming Laptop",
		Price:          "Rs. 85,000",
		OriginalPrice:  "Rs. 99,999",
		Discount:       "-15%",
		Rating:         "4.5",
		ReviewCount:    "230",
		SellerName:     "Acme Store",
		SellerLocation: "Bagmati Province",
		Brand:          "Acer",
		Availability:   "In Stock",
		Description:    "Thin and light laptop.",
		ProductURL:     "https://www.daraz.com.np/products/acer-aspire-5.html",
		Rank:           1,
		ScrapedAt:      time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC),
	}
}

func TestCSVWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}

	if err := writer.Write([]models.ProductRecord{sampleRecord()}); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0][0] != "rank" || rows[0][1] != "product_name" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "1" || rows[1][1] != "Acer Aspire 5 Gaming Laptop" {
		t.Fatalf("unexpected row: %v", rows[1])
	}
	if rows[1][13] != "2026-08-20T10:30:00Z" {
		t.Errorf("scraped_at column = %q", rows[1][13])
	}
}

func TestCSVWriterCreatesOutputDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out", "products.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer in nested dir: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("output file missing: %v", err)
	}
}

func TestJSONWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}

	records := []models.ProductRecord{sampleRecord(), sampleRecord()}
	records[1].Rank = 2
	records[1].Error = "detail extraction failed: page removed"

	if err := writer.Write(records); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	var decoded []models.ProductRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var record models.ProductRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			t.Fatalf("invalid json line: %v", err)
		}
		decoded = append(decoded, record)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan json: %v", err)
	}

	if len(decoded) != 2 {
		t.Fatalf("json lines = %d, want 2", len(decoded))
	}
	if decoded[0].ProductName != "Acer Aspire 5 Gaming Laptop" {
		t.Errorf("decoded name = %q", decoded[0].ProductName)
	}
	if !decoded[1].Degraded() {
		t.Error("degraded record lost its error on round trip")
	}
}

func TestDualWriterWrite(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "products.csv")
	jsonPath := filepath.Join(dir, "products.jsonl")

	writer, err := NewDualWriter(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}

	if err := writer.Write([]models.ProductRecord{sampleRecord()}); err != nil {
		t.Fatalf("write dual: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate dual: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close dual: %v", err)
	}

	if info, err := os.Stat(csvPath); err != nil || info.Size() == 0 {
		t.Fatalf("csv file missing or empty")
	}
	if info, err := os.Stat(jsonPath); err != nil || info.Size() == 0 {
		t.Fatalf("json file missing or empty")
	}
}

func TestDualWriterValidateReportsEmptyOutput(t *testing.T) {
	dir := t.TempDir()

	writer, err := NewDualWriter(filepath.Join(dir, "products.csv"), filepath.Join(dir, "products.jsonl"))
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}
	defer writer.Close()

	// Nothing written: the CSV carries its header but the JSONL is empty.
	if err := writer.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for empty JSONL output")
	}
}
