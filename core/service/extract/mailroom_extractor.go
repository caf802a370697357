package extract

import (
	"context"
	"path/filepath"
	"strings"

	"mailroom_server/core/domain"
	"mailroom_server/pkg/logger"
)

// Converter turns one attachment into plain text.
type Converter interface {
	Name() string
	Supports(filename, contentType string) bool
	Convert(ctx context.Context, att domain.Attachment) (string, error)
}

// Service runs attachment text extraction for inbound messages.
//
// Extraction never fails a message: unsupported, oversized or broken
// attachments are recorded with their status and the pipeline moves on with
// whatever text was recovered.
type Service struct {
	converters  []Converter
	maxAttBytes int64
}

// NewService builds the service with the default converter chain.
func NewService(maxAttachmentMB int) *Service {
	if maxAttachmentMB <= 0 {
		maxAttachmentMB = 10
	}
	return &Service{
		converters: []Converter{
			NewPDFConverter(),
			NewSpreadsheetConverter(),
			NewCSVConverter(),
			NewDocxConverter(),
			NewTextConverter(),
		},
		maxAttBytes: int64(maxAttachmentMB) * 1024 * 1024,
	}
}

// Extract converts every attachment and assembles the message corpus:
// subject, body (HTML stripped when no plain part exists), then each
// extracted block prefixed with its source filename.
func (s *Service) Extract(ctx context.Context, msg *domain.InboundMessage) ([]domain.ExtractedAttachment, string) {
	extracted := make([]domain.ExtractedAttachment, 0, len(msg.Attachments))

	var corpus strings.Builder
	corpus.WriteString(msg.Subject)
	corpus.WriteString("\n")

	body := msg.Body
	if body == "" && msg.HTMLBody != "" {
		body = htmlToText(msg.HTMLBody)
	}
	corpus.WriteString(body)

	for _, att := range msg.Attachments {
		ea := s.extractOne(ctx, att)
		extracted = append(extracted, ea)
		if ea.Status == domain.ExtractOK && ea.Text != "" {
			corpus.WriteString("\n\n[")
			corpus.WriteString(ea.Filename)
			corpus.WriteString("]\n")
			corpus.WriteString(ea.Text)
		}
	}

	return extracted, corpus.String()
}

func (s *Service) extractOne(ctx context.Context, att domain.Attachment) domain.ExtractedAttachment {
	ea := domain.ExtractedAttachment{
		Filename:    att.Filename,
		ContentType: att.ContentType,
	}

	size := att.Size
	if size == 0 {
		size = int64(len(att.Data))
	}
	if size > s.maxAttBytes {
		ea.Status = domain.ExtractSkipped
		ea.Error = "attachment exceeds size limit"
		logger.WithField("filename", att.Filename).Warn("Skipping oversized attachment (%d bytes)", size)
		return ea
	}

	conv := s.findConverter(att.Filename, att.ContentType)
	if conv == nil {
		ea.Status = domain.ExtractUnsupported
		logger.WithField("filename", att.Filename).Debug("No converter for attachment type %s", att.ContentType)
		return ea
	}

	ea.Converter = conv.Name()
	text, err := conv.Convert(ctx, att)
	if err != nil {
		ea.Status = domain.ExtractFailed
		ea.Error = err.Error()
		logger.WithError(err).WithField("filename", att.Filename).Warn("Attachment extraction failed (%s)", conv.Name())
		return ea
	}

	ea.Status = domain.ExtractOK
	ea.Text = strings.TrimSpace(text)
	return ea
}

// findConverter prefers an extension match; content type is the tiebreak for
// senders that attach files without useful names.
func (s *Service) findConverter(filename, contentType string) Converter {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, c := range s.converters {
		if c.Supports(ext, "") {
			return c
		}
	}
	ct := normalizeContentType(contentType)
	for _, c := range s.converters {
		if c.Supports("", ct) {
			return c
		}
	}
	return nil
}

func normalizeContentType(ct string) string {
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
