package pipeline

import (
	"errors"
	"fmt"

	"github.com/user/daraz-scraper/models"
)

// DualWriter mirrors every record batch into both CSV and JSONL outputs.
type DualWriter struct {
	csvWriter  *CSVWriter
	jsonWriter *JSONWriter
}

// NewDualWriter opens both outputs; if the second fails the first is closed
// again so no handle leaks.
func NewDualWriter(csvFilename, jsonFilename string) (*DualWriter, error) {
	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("create CSV writer: %w", err)
	}

	jsonWriter, err := NewJSONWriter(jsonFilename)
	if err != nil {
		csvWriter.Close()
		return nil, fmt.Errorf("create JSON writer: %w", err)
	}

	return &DualWriter{
		csvWriter:  csvWriter,
		jsonWriter: jsonWriter,
	}, nil
}

// Write appends records to both outputs. The underlying writers serialize
// concurrent calls themselves.
func (dw *DualWriter) Write(records []models.ProductRecord) error {
	if err := dw.csvWriter.Write(records); err != nil {
		return fmt.Errorf("CSV write: %w", err)
	}
	if err := dw.jsonWriter.Write(records); err != nil {
		return fmt.Errorf("JSON write: %w", err)
	}
	return nil
}

// Close closes both outputs, always attempting the second even when the
// first fails.
func (dw *DualWriter) Close() error {
	return errors.Join(dw.csvWriter.Close(), dw.jsonWriter.Close())
}

// Validate checks both output files.
func (dw *DualWriter) Validate() error {
	return errors.Join(dw.csvWriter.Validate(), dw.jsonWriter.Validate())
}
