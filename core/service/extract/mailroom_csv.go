package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"mailroom_server/core/domain"
)

// CSVConverter extracts delimiter-separated files. The delimiter is sniffed
// from the first line: semicolon-heavy exports are common in the source data.
type CSVConverter struct{}

func NewCSVConverter() *CSVConverter { return &CSVConverter{} }

func (c *CSVConverter) Name() string { return "csv" }

func (c *CSVConverter) Supports(ext, contentType string) bool {
	return ext == ".csv" || contentType == "text/csv"
}

func (c *CSVConverter) Convert(ctx context.Context, att domain.Attachment) (string, error) {
	r := csv.NewReader(bytes.NewReader(att.Data))
	r.Comma = sniffDelimiter(att.Data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse csv: %w", err)
	}

	var sb strings.Builder
	for _, rec := range records {
		sb.WriteString(strings.Join(rec, "\t"))
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}
