package notify

import (
	"context"
	"fmt"
	"time"

	"mailroom_server/core/domain"
	"mailroom_server/core/port/out"
	"mailroom_server/pkg/logger"
)

// Channel delivers a recorded notification over one medium. Channels filter
// their own audience; a failing channel never blocks the others.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, n *domain.Notification) error
}

// Service records pipeline events and fans them out.
//
// Order is deliberate: the event is persisted (and history trimmed) before
// any channel runs, so a flaky channel cannot lose the record.
type Service struct {
	repo       out.NotificationRepository
	channels   []Channel
	enabled    map[domain.NotificationLevel]bool
	maxHistory int
}

// NewService builds the notifier. Each level carries its own enable flag; a
// nil map turns every level on.
func NewService(repo out.NotificationRepository, enabled map[domain.NotificationLevel]bool, maxHistory int, channels ...Channel) *Service {
	if enabled == nil {
		enabled = make(map[domain.NotificationLevel]bool, len(domain.AllNotificationLevels()))
		for _, l := range domain.AllNotificationLevels() {
			enabled[l] = true
		}
	}
	if maxHistory <= 0 {
		maxHistory = 1000
	}
	return &Service{
		repo:       repo,
		channels:   channels,
		enabled:    enabled,
		maxHistory: maxHistory,
	}
}

// Notify records and fans out one event. Returns false when the level is
// disabled; nothing is recorded in that case.
func (s *Service) Notify(ctx context.Context, n *domain.Notification) bool {
	if !s.enabled[n.Level] {
		return false
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	if err := s.repo.Append(ctx, n); err != nil {
		logger.WithError(err).Error("Failed to persist notification, fanning out anyway")
	} else if trimmed, err := s.repo.TrimTo(ctx, s.maxHistory); err != nil {
		logger.WithError(err).Warn("Failed to trim notification history")
	} else if trimmed > 0 {
		logger.Debug("Trimmed %d old notifications", trimmed)
	}

	for _, ch := range s.channels {
		if err := ch.Deliver(ctx, n); err != nil {
			logger.WithError(err).Warn("Notification channel %s failed", ch.Name())
			continue
		}
		n.Channels = append(n.Channels, ch.Name())
	}

	return true
}

// Routed emits the info event for a successfully routed message.
func (s *Service) Routed(ctx context.Context, routed *domain.RoutedMessage) bool {
	return s.Notify(ctx, &domain.Notification{
		Level: domain.NotifyInfo,
		Title: fmt.Sprintf("Message routed to %s", routed.Department),
		Body: fmt.Sprintf("%q from %s filed under %s (category %s, priority %s)",
			routed.Message.NormalizedSubject(), routed.Message.From, routed.Protocol,
			routed.Classification.Category.Label, routed.Classification.Priority.Label),
		MessageID:  routed.Message.ID,
		Department: routed.Department,
		Stage:      domain.StageRoute,
	})
}

// StageFailed emits the error event for a message that fell over mid-pipeline.
func (s *Service) StageFailed(ctx context.Context, messageID string, stage domain.Stage, err error) bool {
	return s.Notify(ctx, &domain.Notification{
		Level:     domain.NotifyError,
		Title:     fmt.Sprintf("Pipeline stage %s failed", stage),
		Body:      err.Error(),
		MessageID: messageID,
		Stage:     stage,
	})
}

// CycleFailed emits the critical event for a whole poll cycle going down.
func (s *Service) CycleFailed(ctx context.Context, err error) bool {
	return s.Notify(ctx, &domain.Notification{
		Level: domain.NotifyCritical,
		Title: "Mailbox poll cycle failed",
		Body:  err.Error(),
		Stage: domain.StageFetch,
	})
}
