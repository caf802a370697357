package worker

import (
	"context"
	"time"

	"mailroom_server/core/domain"
	"mailroom_server/core/service/classify"
	"mailroom_server/core/service/extract"
	"mailroom_server/core/service/match"
	"mailroom_server/core/service/notify"
	"mailroom_server/core/service/parse"
	"mailroom_server/core/service/route"
	"mailroom_server/pkg/logger"
)

// Processor runs the staged pipeline for a single inbound message:
// extract -> parse -> classify -> match -> route -> notify.
//
// Only routing can fail the message; everything before it degrades in place.
type Processor struct {
	extractor  *extract.Service
	parser     *parse.Parser
	classifier *classify.Classifier
	matcher    *match.Matcher
	router     *route.Router
	notifier   *notify.Service
}

func NewProcessor(
	extractor *extract.Service,
	parser *parse.Parser,
	classifier *classify.Classifier,
	matcher *match.Matcher,
	router *route.Router,
	notifier *notify.Service,
) *Processor {
	return &Processor{
		extractor:  extractor,
		parser:     parser,
		classifier: classifier,
		matcher:    matcher,
		router:     router,
		notifier:   notifier,
	}
}

// Process pushes one message through the pipeline. The duplicate return is
// true when the message had already been routed; err is non-nil only when
// routing failed and the message should stay unread for a retry.
func (p *Processor) Process(ctx context.Context, msg domain.InboundMessage) (*domain.RoutedMessage, bool, error) {
	started := time.Now()
	log := logger.WithMessageID(msg.ID)

	extracted, fullText := p.extractor.Extract(ctx, &msg)

	parsed := p.parser.Parse(msg, extracted, fullText)
	if parsed.LowRelevance {
		log.Debug("Message matched no domain keywords, low relevance")
	}

	classified := p.classifier.Classify(parsed)
	matched := p.matcher.Match(ctx, classified)

	routed, duplicate, err := p.router.Route(ctx, matched)
	if err != nil {
		p.notifier.StageFailed(ctx, msg.ID, domain.StageRoute, err)
		return nil, false, err
	}
	if duplicate {
		return nil, true, nil
	}

	p.notifier.Routed(ctx, routed)

	log.WithDuration(time.Since(started)).Info("Routed message to %s as %s (%s/%s)",
		routed.Department, routed.Protocol,
		routed.Classification.Category.Label, routed.Classification.Priority.Label)
	return routed, false, nil
}
