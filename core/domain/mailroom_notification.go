package domain

import "time"

// NotificationLevel orders event severity.
type NotificationLevel string

const (
	NotifyInfo     NotificationLevel = "info"
	NotifyWarning  NotificationLevel = "warning"
	NotifyError    NotificationLevel = "error"
	NotifyCritical NotificationLevel = "critical"
)

// AllNotificationLevels in ascending severity order.
func AllNotificationLevels() []NotificationLevel {
	return []NotificationLevel{NotifyInfo, NotifyWarning, NotifyError, NotifyCritical}
}

// Rank orders levels by severity. Unknown levels rank lowest.
func (l NotificationLevel) Rank() int {
	switch l {
	case NotifyInfo:
		return 1
	case NotifyWarning:
		return 2
	case NotifyError:
		return 3
	case NotifyCritical:
		return 4
	}
	return 0
}

// Notification is one recorded pipeline event.
type Notification struct {
	ID         int64
	Level      NotificationLevel
	Title      string
	Body       string
	MessageID  string
	Department Department
	Stage      Stage
	Channels   []string // channels that accepted delivery
	CreatedAt  time.Time
}

// NotificationRecipient subscribes to events at or above given levels.
type NotificationRecipient struct {
	Email  string
	Levels []NotificationLevel
}

// Subscribed reports whether the recipient wants the given level.
func (r NotificationRecipient) Subscribed(level NotificationLevel) bool {
	for _, l := range r.Levels {
		if l == level {
			return true
		}
	}
	return false
}
