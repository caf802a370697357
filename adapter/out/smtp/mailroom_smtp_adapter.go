package smtp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"github.com/sony/gobreaker"

	"mailroom_server/core/domain"
	"mailroom_server/core/port/out"
	"mailroom_server/pkg/apperr"
	"mailroom_server/pkg/logger"
)

// Adapter implements out.MailTransport over SMTP with STARTTLS (or implicit
// TLS on port 465). Sends run behind a circuit breaker so a dead relay
// fails fast instead of stalling every poll cycle.
type Adapter struct {
	host     string
	port     int
	username string
	password string
	breaker  *gobreaker.CircuitBreaker
}

// Config for the SMTP adapter.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
}

func NewAdapter(cfg Config) *Adapter {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "smtp",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	return &Adapter{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		breaker:  breaker,
	}
}

// Send composes and delivers one message.
func (a *Adapter) Send(ctx context.Context, m *domain.OutboundMail) error {
	if len(m.To) == 0 {
		return apperr.TransportError("send", fmt.Errorf("no recipients"))
	}

	raw, err := compose(m)
	if err != nil {
		return err
	}

	rcpts := dedupe(append(append([]string{}, m.To...), m.CC...))

	_, err = a.breaker.Execute(func() (any, error) {
		return nil, a.deliver(m.From, rcpts, raw)
	})
	if err != nil {
		return apperr.TransportError("send", err)
	}
	return nil
}

func (a *Adapter) deliver(from string, rcpts []string, raw []byte) error {
	addr := fmt.Sprintf("%s:%d", a.host, a.port)

	var client *gosmtp.Client
	var err error
	if a.port == 465 {
		client, err = gosmtp.DialTLS(addr, nil)
	} else {
		client, err = gosmtp.DialStartTLS(addr, nil)
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer client.Quit()

	if a.username != "" {
		auth := sasl.NewPlainClient("", a.username, a.password)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := client.SendMail(from, rcpts, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// compose renders the outbound message as MIME: inline text and html parts,
// then the re-attached originals.
func compose(m *domain.OutboundMail) ([]byte, error) {
	var header mail.Header
	header.SetDate(time.Now())
	header.SetSubject(m.Subject)
	header.SetAddressList("From", []*mail.Address{{Address: m.From}})
	header.SetAddressList("To", toAddressList(m.To))
	if len(m.CC) > 0 {
		header.SetAddressList("Cc", toAddressList(m.CC))
	}
	if m.InReplyTo != "" {
		header.SetMsgIDList("In-Reply-To", []string{strings.Trim(m.InReplyTo, "<>")})
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, header)
	if err != nil {
		return nil, apperr.TransportError("compose", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, apperr.TransportError("compose", err)
	}
	if m.TextBody != "" {
		var th mail.InlineHeader
		th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
		w, err := tw.CreatePart(th)
		if err != nil {
			return nil, apperr.TransportError("compose", err)
		}
		io.WriteString(w, m.TextBody)
		w.Close()
	}
	if m.HTMLBody != "" {
		var hh mail.InlineHeader
		hh.SetContentType("text/html", map[string]string{"charset": "utf-8"})
		w, err := tw.CreatePart(hh)
		if err != nil {
			return nil, apperr.TransportError("compose", err)
		}
		io.WriteString(w, m.HTMLBody)
		w.Close()
	}
	tw.Close()

	for _, att := range m.Attachments {
		var ah mail.AttachmentHeader
		ah.SetFilename(att.Filename)
		if att.ContentType != "" {
			ah.SetContentType(att.ContentType, nil)
		}
		w, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, apperr.TransportError("compose attachment "+att.Filename, err)
		}
		w.Write(att.Data)
		w.Close()
	}

	if err := mw.Close(); err != nil {
		return nil, apperr.TransportError("compose", err)
	}
	return buf.Bytes(), nil
}

func toAddressList(addrs []string) []*mail.Address {
	list := make([]*mail.Address, 0, len(addrs))
	for _, a := range addrs {
		list = append(list, &mail.Address{Address: a})
	}
	return list
}

func dedupe(addrs []string) []string {
	seen := make(map[string]struct{}, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		key := strings.ToLower(a)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

var _ out.MailTransport = (*Adapter)(nil)
