package domain

import "time"

// RouteRecord is the audit row written once per successfully routed message.
// MessageID is unique: an insert that loses the race means the message was
// already routed and must not be forwarded again.
type RouteRecord struct {
	ID          int64
	MessageID   string
	Protocol    string
	Department  Department
	Mailbox     string
	Category    Category
	Priority    Priority
	MatchScore  float64
	MatchMethod MatchMethod
	AutoReplied bool
	CCTriage    bool
	ForwardedAt time.Time
	CreatedAt   time.Time
}
