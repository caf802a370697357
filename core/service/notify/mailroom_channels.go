package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"mailroom_server/core/domain"
	"mailroom_server/core/port/out"
	"mailroom_server/pkg/logger"
)

// ====== Mail channel ======

// MailChannel mails events to subscribed recipients. Critical events always
// include the admin list regardless of subscriptions.
type MailChannel struct {
	transport  out.MailTransport
	from       string
	recipients []domain.NotificationRecipient
	admins     []string
}

func NewMailChannel(transport out.MailTransport, from string, recipients []domain.NotificationRecipient, admins []string) *MailChannel {
	return &MailChannel{transport: transport, from: from, recipients: recipients, admins: admins}
}

func (c *MailChannel) Name() string { return "mail" }

func (c *MailChannel) Deliver(ctx context.Context, n *domain.Notification) error {
	to := make([]string, 0, len(c.recipients))
	seen := make(map[string]struct{})
	for _, r := range c.recipients {
		if r.Subscribed(n.Level) {
			if _, dup := seen[r.Email]; !dup {
				to = append(to, r.Email)
				seen[r.Email] = struct{}{}
			}
		}
	}
	if n.Level == domain.NotifyCritical {
		for _, a := range c.admins {
			if _, dup := seen[a]; !dup {
				to = append(to, a)
				seen[a] = struct{}{}
			}
		}
	}
	if len(to) == 0 {
		return nil
	}

	var body strings.Builder
	body.WriteString(n.Body)
	if n.MessageID != "" {
		fmt.Fprintf(&body, "\n\nmessage: %s", n.MessageID)
	}
	if n.Department != "" {
		fmt.Fprintf(&body, "\ndepartment: %s", n.Department)
	}

	return c.transport.Send(ctx, &domain.OutboundMail{
		From:     c.from,
		To:       to,
		Subject:  fmt.Sprintf("[MAILROOM][%s] %s", strings.ToUpper(string(n.Level)), n.Title),
		TextBody: body.String(),
	})
}

// ====== Feed channel ======

// FeedChannel keeps a bounded in-memory feed served by the HTTP API.
type FeedChannel struct {
	mu   sync.RWMutex
	buf  []domain.Notification
	size int
}

func NewFeedChannel(size int) *FeedChannel {
	if size <= 0 {
		size = 200
	}
	return &FeedChannel{size: size}
}

func (c *FeedChannel) Name() string { return "feed" }

func (c *FeedChannel) Deliver(ctx context.Context, n *domain.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf = append(c.buf, *n)
	if len(c.buf) > c.size {
		c.buf = c.buf[len(c.buf)-c.size:]
	}
	return nil
}

// Snapshot returns the feed newest-first.
func (c *FeedChannel) Snapshot() []domain.Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Notification, len(c.buf))
	for i, n := range c.buf {
		out[len(c.buf)-1-i] = n
	}
	return out
}

// ====== Log channel ======

// LogChannel mirrors events into the structured log.
type LogChannel struct{}

func NewLogChannel() *LogChannel { return &LogChannel{} }

func (c *LogChannel) Name() string { return "log" }

func (c *LogChannel) Deliver(ctx context.Context, n *domain.Notification) error {
	log := logger.WithField("level", string(n.Level)).WithMessageID(n.MessageID)
	switch n.Level {
	case domain.NotifyCritical, domain.NotifyError:
		log.Error("%s: %s", n.Title, n.Body)
	case domain.NotifyWarning:
		log.Warn("%s: %s", n.Title, n.Body)
	default:
		log.Info("%s: %s", n.Title, n.Body)
	}
	return nil
}
