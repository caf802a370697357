package out

import (
	"context"

	"mailroom_server/core/domain"
)

// MailTransport delivers outbound mail (forwards, auto-replies, alerts).
type MailTransport interface {
	Send(ctx context.Context, mail *domain.OutboundMail) error
}
