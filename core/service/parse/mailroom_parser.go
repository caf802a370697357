package parse

import (
	"regexp"
	"strings"

	"mailroom_server/core/domain"
)

// ====== Entity patterns ======

var (
	// Contract identifiers announced by a nearby keyword, plus the bare
	// NNNN/NN process form that appears without one.
	contractNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:contract|agreement|process)\s*(?:no\.?|number|#|nº)?\s*[:\-]?\s*([A-Za-z0-9][A-Za-z0-9/.\-]{2,19})`),
		regexp.MustCompile(`\b(\d{3,6}/\d{2,4})\b`),
	}

	schoolNamePattern = regexp.MustCompile(`(?i)\b(?:school|college|academy|educational\s+center|e\.e\.|e\.m\.)\s+((?:[A-ZÀ-Ú][\wÀ-ú'´-]*)(?:\s+(?:[A-ZÀ-Ú][\wÀ-ú'´-]*|de|da|do|dos|das))*)`)

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
		regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{2,4}\b`),
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`\b\d{1,2}\.\d{1,2}\.\d{2,4}\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}\s+de\s+[a-zà-ú]+\s+de\s+\d{4}\b`),
	}

	moneyPattern = regexp.MustCompile(`(?:R\$|US\$|\$|€)\s*\d{1,3}(?:[.,]\d{3})*(?:[.,]\d{2})?`)

	deadlinePattern = regexp.MustCompile(`(?i)(?:deadline|due\s+date|valid\s+until|validity|term|expir(?:es|y|ation)(?:\s+on)?)\s*[:\-]?\s*([^\n.;]{3,60})`)

	phonePattern = regexp.MustCompile(`(?:\+\d{1,3}[\s.-]?)?(?:\(\d{2,3}\)[\s.-]?)?\d{4,5}[\s.-]\d{4}\b`)

	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
)

// Options carries the keyword sets the heuristics score against.
type Options struct {
	Keywords        map[string][]string // category -> keywords
	UrgencyKeywords []string
}

// Parser extracts entities and computes the heuristic category/priority
// hints the classifier falls back to.
type Parser struct {
	keywords map[domain.Category][]string
	urgency  []string
}

// NewParser builds a parser from configured keyword sets.
func NewParser(opts Options) *Parser {
	p := &Parser{
		keywords: make(map[domain.Category][]string, len(opts.Keywords)),
		urgency:  make([]string, 0, len(opts.UrgencyKeywords)),
	}
	for cat, words := range opts.Keywords {
		lowered := make([]string, 0, len(words))
		for _, w := range words {
			lowered = append(lowered, strings.ToLower(w))
		}
		p.keywords[domain.Category(cat)] = lowered
	}
	for _, w := range opts.UrgencyKeywords {
		p.urgency = append(p.urgency, strings.ToLower(w))
	}
	return p
}

// Parse runs entity extraction and the heuristics over the message corpus.
func (p *Parser) Parse(msg domain.InboundMessage, extracted []domain.ExtractedAttachment, fullText string) *domain.ParsedMessage {
	entities := p.ExtractEntities(fullText)

	lowered := strings.ToLower(fullText)
	categoryHint, keywordHits := p.categoryHeuristic(lowered)
	priorityHint := p.priorityHeuristic(lowered, domain.Category(categoryHint.Label))

	return &domain.ParsedMessage{
		Message:      msg,
		Extracted:    extracted,
		FullText:     fullText,
		Entities:     entities,
		CategoryHint: categoryHint,
		PriorityHint: priorityHint,
		LowRelevance: keywordHits == 0 &&
			!entities.Has(domain.EntityContractNumber) &&
			!entities.Has(domain.EntitySchoolName),
	}
}

// ExtractEntities pulls every entity family out of the text. Values keep
// their original casing, lose trailing punctuation and are deduplicated per
// family in first-seen order.
func (p *Parser) ExtractEntities(text string) domain.EntitySet {
	entities := make(domain.EntitySet)

	for _, re := range contractNumberPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			entities.Add(domain.EntityContractNumber, cleanValue(m[len(m)-1]))
		}
	}

	for _, m := range schoolNamePattern.FindAllStringSubmatch(text, -1) {
		entities.Add(domain.EntitySchoolName, cleanValue(m[1]))
	}

	for _, re := range datePatterns {
		for _, m := range re.FindAllString(text, -1) {
			entities.Add(domain.EntityDate, cleanValue(m))
		}
	}

	for _, m := range moneyPattern.FindAllString(text, -1) {
		entities.Add(domain.EntityMonetaryValue, cleanValue(m))
	}

	for _, m := range deadlinePattern.FindAllStringSubmatch(text, -1) {
		entities.Add(domain.EntityDeadline, cleanValue(m[1]))
	}

	for _, m := range phonePattern.FindAllString(text, -1) {
		entities.Add(domain.EntityPhone, cleanValue(m))
	}

	for _, m := range emailPattern.FindAllString(text, -1) {
		entities.Add(domain.EntityEmail, cleanValue(m))
	}

	return entities
}

// cleanValue trims whitespace and the trailing punctuation regexes drag in.
func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	return strings.TrimRight(v, ".,;:")
}

// ====== Heuristics ======

// categoryHeuristic scores each category as keyword occurrences over the
// size of its keyword list and takes the best. Below the 0.1 floor the
// message is filed as other at the scored confidence, so downstream can
// tell a weak signal from a confident fallback.
func (p *Parser) categoryHeuristic(lowered string) (domain.Prediction, int) {
	best := domain.CategoryOther
	bestScore := 0.0
	totalHits := 0

	for cat, words := range p.keywords {
		if len(words) == 0 {
			continue
		}
		hits := 0
		for _, w := range words {
			hits += strings.Count(lowered, w)
		}
		totalHits += hits
		score := float64(hits) / float64(len(words))
		if score > bestScore {
			bestScore = score
			best = cat
		}
	}

	if bestScore < 0.1 {
		return domain.Prediction{Label: string(domain.CategoryOther), Confidence: bestScore}, totalHits
	}
	pred := domain.Prediction{Label: string(best), Confidence: bestScore}
	return pred.Clamp(), totalHits
}

// priorityHeuristic starts from the category's base priority and escalates
// on urgency markers, each counted at most once. The word "urgent" itself or
// three distinct markers make anything urgent; a single marker pushes a
// high-stakes category to urgent or a normal one to high.
func (p *Parser) priorityHeuristic(lowered string, category domain.Category) domain.Prediction {
	urgencyHits := 0
	for _, w := range p.urgency {
		if strings.Contains(lowered, w) {
			urgencyHits++
		}
	}

	base := domain.PriorityNormal
	if category.IsHighStakes() {
		base = domain.PriorityHigh
	}

	priority := base
	switch {
	case urgencyHits >= 3 || strings.Contains(lowered, "urgent"):
		priority = domain.PriorityUrgent
	case urgencyHits >= 1 && base == domain.PriorityHigh:
		priority = domain.PriorityUrgent
	case urgencyHits >= 1:
		priority = domain.PriorityHigh
	}

	confidence := 0.5 + 0.1*float64(urgencyHits)
	if confidence > 0.9 {
		confidence = 0.9
	}
	return domain.Prediction{Label: string(priority), Confidence: confidence}
}
