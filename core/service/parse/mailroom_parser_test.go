package parse

import (
	"testing"

	"mailroom_server/core/domain"
)

func testParser() *Parser {
	return NewParser(Options{
		Keywords: map[string][]string{
			string(domain.CategoryPayment):      {"payment", "invoice", "billing", "overdue"},
			string(domain.CategoryRenewal):      {"renewal", "renew", "extension"},
			string(domain.CategoryCancellation): {"cancellation", "terminate", "termination"},
		},
		UrgencyKeywords: []string{"urgent", "immediately", "asap", "emergency"},
	})
}

func TestExtractEntitiesContractNumbers(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "keyword announced",
			text:     "Regarding contract no. 2024/0153 attached.",
			expected: []string{"2024/0153"},
		},
		{
			name:     "bare process form",
			text:     "Please review 1234/23 before Friday.",
			expected: []string{"1234/23"},
		},
		{
			name:     "hash prefix",
			text:     "agreement #AB-778 was signed",
			expected: []string{"AB-778"},
		},
		{
			name:     "deduplicated",
			text:     "contract 555/2024 mentioned twice: 555/2024",
			expected: []string{"555/2024"},
		},
	}

	p := testParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.ExtractEntities(tt.text)[domain.EntityContractNumber]
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("expected %q at %d, got %q", tt.expected[i], i, got[i])
				}
			}
		})
	}
}

func TestExtractEntitiesFamilies(t *testing.T) {
	text := `School Monteiro Lobato requests renewal.
Amount due: R$ 1.250,00 by 15/03/2026.
Deadline: urgent, before end of month.
Contact: maria@school.example.com or (11) 98765-4321.`

	p := testParser()
	entities := p.ExtractEntities(text)

	if !entities.Has(domain.EntitySchoolName) {
		t.Error("expected a school name entity")
	}
	if got := entities.First(domain.EntityMonetaryValue); got != "R$ 1.250,00" {
		t.Errorf("expected monetary value R$ 1.250,00, got %q", got)
	}
	if !entities.Has(domain.EntityDate) {
		t.Error("expected a date entity")
	}
	if !entities.Has(domain.EntityDeadline) {
		t.Error("expected a deadline entity")
	}
	if got := entities.First(domain.EntityEmail); got != "maria@school.example.com" {
		t.Errorf("expected email entity, got %q", got)
	}
	if !entities.Has(domain.EntityPhone) {
		t.Error("expected a phone entity")
	}
}

func TestExtractEntitiesTrailingPunctuation(t *testing.T) {
	p := testParser()
	entities := p.ExtractEntities("Contact billing@school.example.com.")
	if got := entities.First(domain.EntityEmail); got != "billing@school.example.com" {
		t.Errorf("trailing period should be trimmed, got %q", got)
	}
}

func TestExtractEntitiesWrittenDate(t *testing.T) {
	p := testParser()
	entities := p.ExtractEntities("valid until 15 de março de 2026")
	if !entities.Has(domain.EntityDate) {
		t.Fatalf("expected written-out date to be captured, got %v", entities)
	}
}

func TestCategoryHeuristic(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		expected   domain.Category
		minConf    float64
		exactConf  float64
		checkExact bool
	}{
		{
			name:       "no keywords falls to other with zero confidence",
			text:       "hello there, nothing relevant here",
			expected:   domain.CategoryOther,
			checkExact: true,
			exactConf:  0.0,
		},
		{
			name:     "payment keywords win",
			text:     "the invoice payment is overdue, second payment reminder",
			expected: domain.CategoryPayment,
			minConf:  0.5,
		},
		{
			name:     "renewal keywords win",
			text:     "we would like to renew, please start the renewal extension",
			expected: domain.CategoryRenewal,
			minConf:  0.5,
		},
	}

	p := testParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, _ := p.categoryHeuristic(tt.text)
			if pred.Label != string(tt.expected) {
				t.Errorf("expected category %s, got %s", tt.expected, pred.Label)
			}
			if tt.checkExact && pred.Confidence != tt.exactConf {
				t.Errorf("expected confidence %v, got %v", tt.exactConf, pred.Confidence)
			}
			if !tt.checkExact && pred.Confidence < tt.minConf {
				t.Errorf("expected confidence >= %v, got %v", tt.minConf, pred.Confidence)
			}
		})
	}
}

func TestPriorityHeuristic(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		category domain.Category
		expected domain.Priority
	}{
		{
			name:     "no markers normal category",
			text:     "please send the updated roster",
			category: domain.CategoryInquiry,
			expected: domain.PriorityNormal,
		},
		{
			name:     "no markers high stakes base",
			text:     "we want to discuss the cancellation",
			category: domain.CategoryCancellation,
			expected: domain.PriorityHigh,
		},
		{
			name:     "one marker escalates to high",
			text:     "asap: please send the roster",
			category: domain.CategoryInquiry,
			expected: domain.PriorityHigh,
		},
		{
			name:     "one marker on high stakes goes urgent",
			text:     "emergency payment issue",
			category: domain.CategoryPayment,
			expected: domain.PriorityUrgent,
		},
		{
			name:     "literal urgent alone is enough",
			text:     "urgent: please send the roster",
			category: domain.CategoryInquiry,
			expected: domain.PriorityUrgent,
		},
		{
			name:     "three distinct markers always urgent",
			text:     "need it immediately, asap, this is an emergency",
			category: domain.CategoryInquiry,
			expected: domain.PriorityUrgent,
		},
		{
			name:     "repeated marker counts once",
			text:     "asap asap asap, need the roster",
			category: domain.CategoryInquiry,
			expected: domain.PriorityHigh,
		},
	}

	p := testParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred := p.priorityHeuristic(tt.text, tt.category)
			if pred.Label != string(tt.expected) {
				t.Errorf("expected priority %s, got %s", tt.expected, pred.Label)
			}
			if pred.Confidence < 0.5 || pred.Confidence > 0.9 {
				t.Errorf("confidence out of range: %v", pred.Confidence)
			}
		})
	}
}

func TestParseLowRelevance(t *testing.T) {
	p := testParser()
	msg := domain.InboundMessage{ID: "<m1@test>", Subject: "hi"}

	parsed := p.Parse(msg, nil, "just saying hello, have a nice day")
	if !parsed.LowRelevance {
		t.Error("message without keywords or identifying entities should be low relevance")
	}

	parsed = p.Parse(msg, nil, "nothing else but contract no. 2024/0153")
	if parsed.LowRelevance {
		t.Error("a contract number alone should make the message relevant")
	}

	parsed = p.Parse(msg, nil, "the invoice is attached")
	if parsed.LowRelevance {
		t.Error("a keyword hit should make the message relevant")
	}
}
