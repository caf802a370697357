package domain

import (
	"strings"
	"time"
)

// Category of an inbound contract message.
type Category string

const (
	CategoryNewContract  Category = "new_contract"
	CategoryRenewal      Category = "renewal"
	CategoryModification Category = "modification"
	CategoryCancellation Category = "cancellation"
	CategoryPayment      Category = "payment"
	CategoryInquiry      Category = "inquiry"
	CategoryComplaint    Category = "complaint"
	CategorySupport      Category = "support"
	CategoryOther        Category = "other"
)

// AllCategories in stable order, the set routing config validates against.
func AllCategories() []Category {
	return []Category{
		CategoryNewContract,
		CategoryRenewal,
		CategoryModification,
		CategoryCancellation,
		CategoryPayment,
		CategoryInquiry,
		CategoryComplaint,
		CategorySupport,
		CategoryOther,
	}
}

// IsHighStakes reports whether the category escalates base priority.
func (c Category) IsHighStakes() bool {
	switch c {
	case CategoryCancellation, CategoryComplaint, CategoryPayment:
		return true
	}
	return false
}

// Priority of a message.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Rank orders priorities for comparison. Unknown values rank below low.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityNormal:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	}
	return 0
}

// Department a message routes to.
type Department string

const (
	DepartmentSales       Department = "sales"
	DepartmentLegal       Department = "legal"
	DepartmentFinance     Department = "finance"
	DepartmentService     Department = "service"
	DepartmentTechSupport Department = "tech_support"
	DepartmentTriage      Department = "triage"
)

// Stage of the processing pipeline.
type Stage string

const (
	StageFetch    Stage = "fetch"
	StageExtract  Stage = "extract"
	StageParse    Stage = "parse"
	StageClassify Stage = "classify"
	StageMatch    Stage = "match"
	StageRoute    Stage = "route"
	StageNotify   Stage = "notify"
)

// Attachment is a raw attachment as it came off the wire.
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// ExtractStatus records the outcome of attachment text extraction.
type ExtractStatus string

const (
	ExtractOK          ExtractStatus = "ok"
	ExtractSkipped     ExtractStatus = "skipped"
	ExtractUnsupported ExtractStatus = "unsupported"
	ExtractFailed      ExtractStatus = "failed"
)

// ExtractedAttachment carries the text pulled out of one attachment.
type ExtractedAttachment struct {
	Filename    string
	ContentType string
	Status      ExtractStatus
	Text        string
	Converter   string
	Error       string
}

// InboundMessage is a message as fetched from the mailbox.
type InboundMessage struct {
	ID          string // RFC 5322 Message-ID, the idempotency key
	UID         uint32 // mailbox UID, used for flag updates
	From        string
	FromName    string
	Subject     string
	Date        time.Time
	Body        string
	HTMLBody    string
	Attachments []Attachment
}

// Prediction is a labeled guess with confidence in [0,1].
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Clamp bounds the confidence to [0,1].
func (p Prediction) Clamp() Prediction {
	if p.Confidence < 0 {
		p.Confidence = 0
	}
	if p.Confidence > 1 {
		p.Confidence = 1
	}
	return p
}

// ParsedMessage is an inbound message plus extraction and parsing output.
type ParsedMessage struct {
	Message      InboundMessage
	Extracted    []ExtractedAttachment
	FullText     string // subject + body + attachment text, the corpus every later stage reads
	Entities     EntitySet
	CategoryHint Prediction // heuristic category, classifier fallback
	PriorityHint Prediction // heuristic priority, classifier fallback
	LowRelevance bool       // no domain keyword family matched
}

// Classification is the three-axis result with provenance.
type Classification struct {
	Category   Prediction        `json:"category"`
	Priority   Prediction        `json:"priority"`
	Department Prediction        `json:"department"`
	Sources    map[string]string `json:"sources,omitempty"` // axis -> model|heuristic
	RulesFired []string          `json:"rules_fired,omitempty"`
}

// ClassifiedMessage pairs a parsed message with its classification.
type ClassifiedMessage struct {
	ParsedMessage
	Classification Classification
}

// MatchedMessage adds contract match candidates, best first.
type MatchedMessage struct {
	ClassifiedMessage
	Matches []ContractMatch
}

// BestMatch returns the top candidate or nil.
func (m *MatchedMessage) BestMatch() *ContractMatch {
	if len(m.Matches) == 0 {
		return nil
	}
	return &m.Matches[0]
}

// RoutedMessage is the terminal pipeline state for a delivered message.
type RoutedMessage struct {
	MatchedMessage
	Department  Department
	Mailbox     string
	Protocol    string
	ForwardedAt time.Time
	AutoReplied bool
	CCTriage    bool
}

// OutboundMail is a message handed to the mail transport.
type OutboundMail struct {
	From        string
	To          []string
	CC          []string
	Subject     string
	TextBody    string
	HTMLBody    string
	InReplyTo   string
	Attachments []Attachment
}

// SenderDisplay returns a printable sender for templates.
func (m *InboundMessage) SenderDisplay() string {
	if m.FromName != "" {
		return m.FromName + " <" + m.From + ">"
	}
	return m.From
}

// NormalizedSubject strips reply/forward prefixes for matching and display.
func (m *InboundMessage) NormalizedSubject() string {
	s := strings.TrimSpace(m.Subject)
	for {
		lower := strings.ToLower(s)
		trimmed := false
		for _, prefix := range []string{"re:", "fw:", "fwd:", "enc:"} {
			if strings.HasPrefix(lower, prefix) {
				s = strings.TrimSpace(s[len(prefix):])
				trimmed = true
				break
			}
		}
		if !trimmed {
			return s
		}
	}
}
