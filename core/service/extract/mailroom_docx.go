package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"mailroom_server/core/domain"
)

// DocxConverter extracts paragraph text from docx documents by walking the
// w:t runs inside word/document.xml.
type DocxConverter struct{}

func NewDocxConverter() *DocxConverter { return &DocxConverter{} }

func (c *DocxConverter) Name() string { return "docx" }

func (c *DocxConverter) Supports(ext, contentType string) bool {
	if ext == ".docx" {
		return true
	}
	return contentType == "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

func (c *DocxConverter) Convert(ctx context.Context, att domain.Attachment) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(att.Data), int64(len(att.Data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}

	var doc io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc, err = f.Open()
			if err != nil {
				return "", fmt.Errorf("open document.xml: %w", err)
			}
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("docx has no word/document.xml")
	}
	defer doc.Close()

	var sb strings.Builder
	dec := xml.NewDecoder(doc)
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}
