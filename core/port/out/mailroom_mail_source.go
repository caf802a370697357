package out

import (
	"context"

	"mailroom_server/core/domain"
)

// MailSource reads inbound mail from the monitored mailbox.
//
// ListUnread returns at most the configured batch of unseen messages with
// bodies and attachments fully decoded. MarkProcessed is deliberately
// separate: the orchestrator calls it only after a message has been routed,
// so an unprocessed message stays visible to the next cycle.
type MailSource interface {
	Connect(ctx context.Context) error
	ListUnread(ctx context.Context) ([]domain.InboundMessage, error)
	MarkProcessed(ctx context.Context, uid uint32) error
	MoveToFolder(ctx context.Context, uid uint32, folder string) error
	Disconnect() error
}
