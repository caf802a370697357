package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"mailroom_server/core/domain"
	"mailroom_server/core/port/out"
	"mailroom_server/core/service/notify"
)

// LoopConfig tunes the polling orchestrator.
type LoopConfig struct {
	PollInterval     time.Duration
	ErrorRetryDelay  time.Duration
	MaxRetries       int
	DeadLetterFolder string
	ProcessedFolder  string
}

// LoopStats are the pipeline counters the stats endpoint serves.
type LoopStats struct {
	Cycles     int64 `json:"cycles"`
	Processed  int64 `json:"processed"`
	Duplicates int64 `json:"duplicates"`
	Failed     int64 `json:"failed"`
	DeadLetter int64 `json:"dead_letter"`
}

// Loop is the mailbox poller. Each cycle connects, drains the unseen batch
// through the Processor sequentially, and disconnects. A message is marked
// seen only after it routed; failures stay unread until the retry cap files
// them into the dead-letter folder.
type Loop struct {
	source    out.MailSource
	processor *Processor
	cache     out.ProcessedCache
	notifier  *notify.Service
	cfg       LoopConfig

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	cycles     atomic.Int64
	processed  atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
	deadLetter atomic.Int64

	zlog zerolog.Logger
}

func NewLoop(source out.MailSource, processor *Processor, cache out.ProcessedCache, notifier *notify.Service, cfg LoopConfig, zlog zerolog.Logger) *Loop {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Minute
	}
	if cfg.ErrorRetryDelay <= 0 {
		cfg.ErrorRetryDelay = time.Minute
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Loop{
		source:    source,
		processor: processor,
		cache:     cache,
		notifier:  notifier,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		zlog:      zlog.With().Str("component", "poll-loop").Logger(),
	}
}

// Start blocks, polling until Stop is called.
func (l *Loop) Start() {
	if !l.running.CompareAndSwap(false, true) {
		return
	}
	defer close(l.doneCh)

	l.zlog.Info().Dur("poll_interval", l.cfg.PollInterval).Msg("Mailbox poll loop started")

	for l.running.Load() {
		delay := l.cfg.PollInterval
		if err := l.runCycle(); err != nil {
			l.zlog.Error().Err(err).Msg("Poll cycle failed")
			l.notifier.CycleFailed(context.Background(), err)
			delay = l.cfg.ErrorRetryDelay
		}

		select {
		case <-l.stopCh:
			return
		case <-time.After(delay):
		}
	}
}

// Stop signals the loop and waits for the in-flight cycle to finish.
func (l *Loop) Stop() {
	if !l.running.CompareAndSwap(true, false) {
		return
	}
	close(l.stopCh)
	<-l.doneCh
	l.zlog.Info().Msg("Mailbox poll loop stopped")
}

// Stats returns a snapshot of the pipeline counters.
func (l *Loop) Stats() LoopStats {
	return LoopStats{
		Cycles:     l.cycles.Load(),
		Processed:  l.processed.Load(),
		Duplicates: l.duplicates.Load(),
		Failed:     l.failed.Load(),
		DeadLetter: l.deadLetter.Load(),
	}
}

func (l *Loop) runCycle() error {
	l.cycles.Add(1)
	ctx := context.Background()

	if err := l.source.Connect(ctx); err != nil {
		return err
	}
	defer l.source.Disconnect()

	messages, err := l.source.ListUnread(ctx)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		l.zlog.Debug().Msg("No unread messages")
		return nil
	}

	l.zlog.Info().Int("count", len(messages)).Msg("Processing unread batch")
	for _, msg := range messages {
		select {
		case <-l.stopCh:
			return nil
		default:
		}
		l.processOne(ctx, msg)
	}
	return nil
}

func (l *Loop) processOne(ctx context.Context, msg domain.InboundMessage) {
	routed, duplicate, err := l.processor.Process(ctx, msg)
	if err != nil {
		l.failed.Add(1)
		l.handleFailure(ctx, msg)
		return
	}

	if duplicate {
		l.duplicates.Add(1)
	} else if routed != nil {
		l.processed.Add(1)
	}

	// Route confirmed (or already done earlier): safe to take the message
	// out of the unseen set.
	if err := l.source.MarkProcessed(ctx, msg.UID); err != nil {
		l.zlog.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to mark message processed")
	}
	if l.cache != nil {
		l.cache.ClearRetry(ctx, msg.ID)
	}
	if l.cfg.ProcessedFolder != "" {
		if err := l.source.MoveToFolder(ctx, msg.UID, l.cfg.ProcessedFolder); err != nil {
			l.zlog.Warn().Err(err).Str("message_id", msg.ID).Msg("Failed to archive processed message")
		}
	}
}

// handleFailure leaves the message unread for the next cycle until the
// retry cap is hit, then files it to the dead-letter folder.
func (l *Loop) handleFailure(ctx context.Context, msg domain.InboundMessage) {
	if l.cache == nil {
		return
	}
	retries, err := l.cache.IncrRetry(ctx, msg.ID)
	if err != nil {
		l.zlog.Warn().Err(err).Str("message_id", msg.ID).Msg("Retry counter unavailable")
		return
	}
	if int(retries) < l.cfg.MaxRetries {
		l.zlog.Info().Str("message_id", msg.ID).Int64("attempt", retries).Msg("Message left unread for retry")
		return
	}

	l.deadLetter.Add(1)
	l.zlog.Warn().Str("message_id", msg.ID).Int64("attempts", retries).Msg("Retry cap reached, filing to dead letter")
	if err := l.source.MoveToFolder(ctx, msg.UID, l.cfg.DeadLetterFolder); err != nil {
		l.zlog.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to move message to dead letter")
		return
	}
	l.cache.ClearRetry(ctx, msg.ID)
	l.notifier.Notify(ctx, &domain.Notification{
		Level:     domain.NotifyWarning,
		Title:     "Message moved to dead letter",
		Body:      "Retry cap reached for " + msg.Subject,
		MessageID: msg.ID,
		Stage:     domain.StageRoute,
	})
}
