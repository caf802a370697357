package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"mailroom_server/core/domain"
)

// SpreadsheetConverter extracts cell text from xlsx workbooks, all sheets,
// rows joined by tabs so table structure survives keyword scans.
type SpreadsheetConverter struct{}

func NewSpreadsheetConverter() *SpreadsheetConverter { return &SpreadsheetConverter{} }

func (c *SpreadsheetConverter) Name() string { return "spreadsheet" }

func (c *SpreadsheetConverter) Supports(ext, contentType string) bool {
	if ext == ".xlsx" || ext == ".xlsm" {
		return true
	}
	return contentType == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (c *SpreadsheetConverter) Convert(ctx context.Context, att domain.Attachment) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(att.Data))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(sheet)
		sb.WriteString("\n")
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}
