package out

import (
	"context"
	"time"

	"mailroom_server/core/domain"
)

// ContractRepository is the contract store the matcher queries.
// GetByNumber returns (nil, nil) when no contract carries the number.
type ContractRepository interface {
	GetByNumber(ctx context.Context, number string) (*domain.Contract, error)
	ListActive(ctx context.Context) ([]*domain.Contract, error)
	Upsert(ctx context.Context, contract *domain.Contract) error
}

// NotificationRepository persists the bounded notification history.
type NotificationRepository interface {
	Append(ctx context.Context, n *domain.Notification) error
	TrimTo(ctx context.Context, max int) (int64, error)
	Recent(ctx context.Context, limit int) ([]*domain.Notification, error)
}

// RouteRepository persists the routing audit trail.
//
// InsertIfAbsent returns false when a record for the message already exists;
// that is the durable idempotency guarantee behind the Redis fast path.
type RouteRepository interface {
	ExistsByMessageID(ctx context.Context, messageID string) (bool, error)
	InsertIfAbsent(ctx context.Context, rec *domain.RouteRecord) (bool, error)
	Recent(ctx context.Context, limit int, department domain.Department) ([]*domain.RouteRecord, error)
	CountByDepartment(ctx context.Context, since time.Time) (map[domain.Department]int64, error)
}

// ProcessedCache is the fast-path dedupe and retry bookkeeping store.
type ProcessedCache interface {
	Seen(ctx context.Context, messageID string) (bool, error)
	MarkSeen(ctx context.Context, messageID string, ttl time.Duration) error
	IncrRetry(ctx context.Context, messageID string) (int64, error)
	ClearRetry(ctx context.Context, messageID string) error
}
