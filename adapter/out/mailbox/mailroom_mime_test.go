package mailbox

import (
	"strings"
	"testing"
)

const multipartFixture = "MIME-Version: 1.0\r\n" +
	"Message-ID: <abc123@school.example.com>\r\n" +
	"From: \"Maria Souza\" <Maria.Souza@school.example.com>\r\n" +
	"To: mailroom@mailroom.local\r\n" +
	"Subject: Contract renewal\r\n" +
	"Date: Mon, 16 Mar 2026 10:30:00 +0000\r\n" +
	"Content-Type: multipart/mixed; boundary=\"outer\"\r\n" +
	"\r\n" +
	"--outer\r\n" +
	"Content-Type: multipart/alternative; boundary=\"inner\"\r\n" +
	"\r\n" +
	"--inner\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"We would like to renew contract 2024/0153.\r\n" +
	"--inner\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>We would like to renew contract <b>2024/0153</b>.</p>\r\n" +
	"--inner--\r\n" +
	"--outer\r\n" +
	"Content-Type: text/csv\r\n" +
	"Content-Disposition: attachment; filename=\"roster.csv\"\r\n" +
	"\r\n" +
	"name,grade\r\nAna,5\r\n" +
	"--outer--\r\n"

func TestDecodeMessageMultipart(t *testing.T) {
	msg, err := DecodeMessage([]byte(multipartFixture), 42)
	if err != nil {
		t.Fatal(err)
	}

	if msg.ID != "<abc123@school.example.com>" {
		t.Errorf("unexpected message id %q", msg.ID)
	}
	if msg.UID != 42 {
		t.Errorf("uid not carried: %d", msg.UID)
	}
	if msg.From != "maria.souza@school.example.com" {
		t.Errorf("sender address should be lowercased, got %q", msg.From)
	}
	if msg.FromName != "Maria Souza" {
		t.Errorf("unexpected sender name %q", msg.FromName)
	}
	if msg.Subject != "Contract renewal" {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	if msg.Date.IsZero() {
		t.Error("date not parsed")
	}

	if !strings.Contains(msg.Body, "renew contract 2024/0153") {
		t.Errorf("plain body missing: %q", msg.Body)
	}
	if !strings.Contains(msg.HTMLBody, "<b>2024/0153</b>") {
		t.Errorf("html body missing: %q", msg.HTMLBody)
	}

	if len(msg.Attachments) != 1 {
		t.Fatalf("expected one attachment, got %d", len(msg.Attachments))
	}
	att := msg.Attachments[0]
	if att.Filename != "roster.csv" {
		t.Errorf("unexpected filename %q", att.Filename)
	}
	if att.ContentType != "text/csv" {
		t.Errorf("unexpected content type %q", att.ContentType)
	}
	if !strings.Contains(string(att.Data), "Ana,5") {
		t.Errorf("attachment data lost: %q", att.Data)
	}
	if att.Size != int64(len(att.Data)) {
		t.Errorf("size mismatch: %d vs %d", att.Size, len(att.Data))
	}
}

func TestDecodeMessageMissingHeaders(t *testing.T) {
	raw := "Content-Type: text/plain\r\n" +
		"\r\n" +
		"hello\r\n"

	msg, err := DecodeMessage([]byte(raw), 7)
	if err != nil {
		t.Fatal(err)
	}
	if msg.ID != "<uid-7@mailroom>" {
		t.Errorf("expected synthesized id, got %q", msg.ID)
	}
	if !strings.Contains(msg.Body, "hello") {
		t.Errorf("body missing: %q", msg.Body)
	}
}

func TestDecodeMessageUnnamedAttachment(t *testing.T) {
	raw := "Message-ID: <x@y>\r\n" +
		"Content-Type: multipart/mixed; boundary=\"b\"\r\n" +
		"\r\n" +
		"--b\r\n" +
		"Content-Type: application/octet-stream\r\n" +
		"Content-Disposition: attachment\r\n" +
		"\r\n" +
		"binary\r\n" +
		"--b--\r\n"

	msg, err := DecodeMessage([]byte(raw), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("expected one attachment, got %d", len(msg.Attachments))
	}
	if msg.Attachments[0].Filename != "attachment" {
		t.Errorf("unnamed attachment should get the fallback name, got %q", msg.Attachments[0].Filename)
	}
}
