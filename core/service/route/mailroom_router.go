package route

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"mailroom_server/core/domain"
	"mailroom_server/core/port/out"
	"mailroom_server/pkg/apperr"
	"mailroom_server/pkg/logger"
)

// Config is the routing topology the router operates with.
type Config struct {
	Departments      map[domain.Department]string
	CCTriage         bool
	AutoReplyEnabled bool
	AutoReplySubject string
	FromAddress      string
	ProcessedTTL     time.Duration
}

// Router forwards classified messages to department mailboxes and sends the
// sender auto-reply. Routing is idempotent per message-id: the Redis fast
// path catches recent repeats, the audit table catches everything else.
type Router struct {
	cfg       Config
	transport out.MailTransport
	routes    out.RouteRepository
	cache     out.ProcessedCache
}

func NewRouter(cfg Config, transport out.MailTransport, routes out.RouteRepository, cache out.ProcessedCache) (*Router, error) {
	if cfg.Departments[domain.DepartmentTriage] == "" {
		return nil, apperr.ConfigError("router: triage mailbox is not configured")
	}
	if cfg.AutoReplySubject == "" {
		cfg.AutoReplySubject = "We received your message"
	}
	if cfg.ProcessedTTL <= 0 {
		cfg.ProcessedTTL = 7 * 24 * time.Hour
	}
	return &Router{cfg: cfg, transport: transport, routes: routes, cache: cache}, nil
}

// Route delivers one message. The second return is true when the message was
// already routed and nothing was sent. Forward failure fails the route;
// auto-reply failure only logs.
func (r *Router) Route(ctx context.Context, mm domain.MatchedMessage) (*domain.RoutedMessage, bool, error) {
	msgID := mm.Message.ID
	log := logger.WithMessageID(msgID).WithStage(string(domain.StageRoute))

	if dup, err := r.alreadyRouted(ctx, msgID); err != nil {
		return nil, false, err
	} else if dup {
		log.Info("Message already routed, skipping forward")
		return nil, true, nil
	}

	dept := domain.Department(mm.Classification.Department.Label)
	mailbox, configured := r.resolveMailbox(dept)
	if !configured {
		log.Warn("Department %q has no mailbox, falling back to triage", dept)
		dept = domain.DepartmentTriage
	}

	protocol := NewProtocol()

	routed := &domain.RoutedMessage{
		MatchedMessage: mm,
		Department:     dept,
		Mailbox:        mailbox,
		Protocol:       protocol,
	}

	// Forward to the department.
	forward, err := r.buildForward(mm, routed)
	if err != nil {
		return nil, false, err
	}
	if err := r.transport.Send(ctx, forward); err != nil {
		return nil, false, apperr.RouteError(string(dept), err)
	}
	routed.ForwardedAt = time.Now().UTC()
	routed.CCTriage = len(forward.CC) > 0

	// Auto-reply to the sender.
	if r.cfg.AutoReplyEnabled && mm.Message.From != "" {
		if err := r.sendAutoReply(ctx, mm, protocol); err != nil {
			log.WithError(err).Warn("Auto-reply failed, forward already delivered")
		} else {
			routed.AutoReplied = true
		}
	}

	r.recordRoute(ctx, routed)
	return routed, false, nil
}

func (r *Router) alreadyRouted(ctx context.Context, msgID string) (bool, error) {
	if r.cache != nil {
		if seen, err := r.cache.Seen(ctx, msgID); err == nil && seen {
			return true, nil
		}
	}
	dup, err := r.routes.ExistsByMessageID(ctx, msgID)
	if err != nil {
		return false, apperr.DatabaseError("route dedupe check", err)
	}
	return dup, nil
}

func (r *Router) resolveMailbox(dept domain.Department) (string, bool) {
	if mb := r.cfg.Departments[dept]; mb != "" {
		return mb, true
	}
	return r.cfg.Departments[domain.DepartmentTriage], false
}

func (r *Router) buildForward(mm domain.MatchedMessage, routed *domain.RoutedMessage) (*domain.OutboundMail, error) {
	data := forwardData{
		Protocol:   routed.Protocol,
		Sender:     mm.Message.SenderDisplay(),
		Subject:    mm.Message.Subject,
		ReceivedAt: formatReceivedAt(mm.Message.Date),
		Category:   mm.Classification.Category.Label,
		Priority:   mm.Classification.Priority.Label,
		Department: string(routed.Department),
		Confidence: fmt.Sprintf("%.0f%%", mm.Classification.Category.Confidence*100),
		RulesFired: mm.Classification.RulesFired,
		Body:       mm.Message.Body,
	}
	if data.Body == "" {
		data.Body = mm.FullText
	}

	types := make([]string, 0, len(mm.Entities))
	for t := range mm.Entities {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		data.Entities = append(data.Entities, entityRow{
			Type:   t,
			Values: strings.Join(mm.Entities[domain.EntityType(t)], ", "),
		})
	}

	if best := mm.BestMatch(); best != nil {
		data.Match = &matchRow{
			Number:     best.Contract.Number,
			SchoolName: best.Contract.SchoolName,
			Score:      fmt.Sprintf("%.2f", best.Score),
			Method:     string(best.Method),
		}
	}

	for _, att := range mm.Message.Attachments {
		data.Attachments = append(data.Attachments, att.Filename)
	}

	html, err := renderForward(data)
	if err != nil {
		return nil, err
	}

	forward := &domain.OutboundMail{
		From:        r.cfg.FromAddress,
		To:          []string{routed.Mailbox},
		Subject:     fmt.Sprintf("[%s][%s] %s", routed.Protocol, strings.ToUpper(mm.Classification.Priority.Label), mm.Message.NormalizedSubject()),
		HTMLBody:    html,
		Attachments: mm.Message.Attachments,
	}
	if r.cfg.CCTriage && routed.Department != domain.DepartmentTriage {
		forward.CC = []string{r.cfg.Departments[domain.DepartmentTriage]}
	}
	return forward, nil
}

func (r *Router) sendAutoReply(ctx context.Context, mm domain.MatchedMessage, protocol string) error {
	html, err := renderReply(replyData{
		Protocol:   protocol,
		Category:   mm.Classification.Category.Label,
		SLA:        slaForPriority(domain.Priority(mm.Classification.Priority.Label)),
		ReceivedAt: formatReceivedAt(mm.Message.Date),
	})
	if err != nil {
		return err
	}
	return r.transport.Send(ctx, &domain.OutboundMail{
		From:      r.cfg.FromAddress,
		To:        []string{mm.Message.From},
		Subject:   fmt.Sprintf("%s [%s]", r.cfg.AutoReplySubject, protocol),
		HTMLBody:  html,
		InReplyTo: mm.Message.ID,
	})
}

// recordRoute writes the audit row and warms the dedupe cache. The forward
// already happened: failures here are logged, not returned.
func (r *Router) recordRoute(ctx context.Context, routed *domain.RoutedMessage) {
	rec := &domain.RouteRecord{
		MessageID:   routed.Message.ID,
		Protocol:    routed.Protocol,
		Department:  routed.Department,
		Mailbox:     routed.Mailbox,
		Category:    domain.Category(routed.Classification.Category.Label),
		Priority:    domain.Priority(routed.Classification.Priority.Label),
		AutoReplied: routed.AutoReplied,
		CCTriage:    routed.CCTriage,
		ForwardedAt: routed.ForwardedAt,
	}
	if best := routed.BestMatch(); best != nil {
		rec.MatchScore = best.Score
		rec.MatchMethod = best.Method
	}

	if inserted, err := r.routes.InsertIfAbsent(ctx, rec); err != nil {
		logger.WithError(err).WithMessageID(rec.MessageID).Error("Failed to persist route record")
	} else if !inserted {
		logger.WithMessageID(rec.MessageID).Warn("Route record already present after forward")
	}

	if r.cache != nil {
		if err := r.cache.MarkSeen(ctx, rec.MessageID, r.cfg.ProcessedTTL); err != nil {
			logger.WithError(err).WithMessageID(rec.MessageID).Warn("Failed to warm dedupe cache")
		}
	}
}

// NewProtocol mints the human-facing protocol number quoted in replies.
func NewProtocol() string {
	return "MR-" + strings.ToUpper(uuid.New().String()[:8])
}
