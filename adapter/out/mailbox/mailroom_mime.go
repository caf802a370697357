package mailbox

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message/mail"

	"mailroom_server/core/domain"
)

// DecodeMessage parses a raw RFC 5322 message into the domain form. Broken
// parts are skipped: a message with one unreadable attachment still enters
// the pipeline with everything else intact.
func DecodeMessage(raw []byte, uid uint32) (domain.InboundMessage, error) {
	msg := domain.InboundMessage{UID: uid}

	reader, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return msg, fmt.Errorf("create mail reader: %w", err)
	}

	if id, err := reader.Header.MessageID(); err == nil && id != "" {
		msg.ID = "<" + id + ">"
	} else {
		msg.ID = fmt.Sprintf("<uid-%d@mailroom>", uid)
	}

	if subject, err := reader.Header.Subject(); err == nil {
		msg.Subject = subject
	}
	if date, err := reader.Header.Date(); err == nil {
		msg.Date = date
	}
	if fromList, err := reader.Header.AddressList("From"); err == nil && len(fromList) > 0 {
		msg.From = strings.ToLower(strings.TrimSpace(fromList[0].Address))
		msg.FromName = fromList[0].Name
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Remaining parts are unreachable once the reader derails.
			return msg, nil
		}

		switch header := part.Header.(type) {
		case *mail.InlineHeader:
			mediaType, _, _ := header.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			switch {
			case strings.HasPrefix(mediaType, "text/plain") || mediaType == "":
				if msg.Body == "" {
					msg.Body = string(body)
				} else {
					msg.Body += "\n" + string(body)
				}
			case strings.HasPrefix(mediaType, "text/html"):
				if msg.HTMLBody == "" {
					msg.HTMLBody = string(body)
				} else {
					msg.HTMLBody += "\n" + string(body)
				}
			}
		case *mail.AttachmentHeader:
			filename, _ := header.Filename()
			if strings.TrimSpace(filename) == "" {
				filename = "attachment"
			}
			contentType, _, _ := header.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			msg.Attachments = append(msg.Attachments, domain.Attachment{
				Filename:    filename,
				ContentType: contentType,
				Size:        int64(len(body)),
				Data:        body,
			})
		}
	}

	return msg, nil
}
