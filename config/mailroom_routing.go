package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mailroom_server/core/domain"
)

// RoutingConfig is the mailroom topology: department mailboxes, keyword
// sets, auto-reply behavior and notification fan-out. Loaded from YAML with
// built-in defaults so the worker runs without a file in development.
type RoutingConfig struct {
	Departments map[string]string `yaml:"departments"` // department -> mailbox
	CCTriage    bool              `yaml:"cc_triage"`

	AutoReply struct {
		Enabled bool   `yaml:"enabled"`
		Subject string `yaml:"subject"`
	} `yaml:"auto_reply"`

	Keywords        map[string][]string `yaml:"keywords"` // category -> keyword list
	UrgencyKeywords []string            `yaml:"urgency_keywords"`

	Notifications struct {
		Levels      map[string]bool `yaml:"levels"` // level -> enabled, all on by default
		MaxHistory  int             `yaml:"max_history"`
		AdminEmails []string        `yaml:"admin_emails"`
		Recipients  []struct {
			Email  string   `yaml:"email"`
			Levels []string `yaml:"levels"`
		} `yaml:"recipients"`
	} `yaml:"notifications"`
}

// DefaultRouting returns the built-in topology.
func DefaultRouting() *RoutingConfig {
	rc := &RoutingConfig{
		Departments: map[string]string{
			string(domain.DepartmentSales):       "sales@mailroom.local",
			string(domain.DepartmentLegal):       "legal@mailroom.local",
			string(domain.DepartmentFinance):     "finance@mailroom.local",
			string(domain.DepartmentService):     "service@mailroom.local",
			string(domain.DepartmentTechSupport): "techsupport@mailroom.local",
			string(domain.DepartmentTriage):      "triage@mailroom.local",
		},
		CCTriage: true,
		Keywords: map[string][]string{
			string(domain.CategoryNewContract):  {"new contract", "contract proposal", "proposal", "enrollment", "hire", "onboarding"},
			string(domain.CategoryRenewal):      {"renewal", "renew", "extension", "extend contract"},
			string(domain.CategoryModification): {"amendment", "addendum", "modify contract", "contract change", "change of clause"},
			string(domain.CategoryCancellation): {"cancellation", "cancel contract", "terminate", "termination", "rescission"},
			string(domain.CategoryPayment):      {"payment", "invoice", "billing", "receipt", "overdue", "installment", "bank slip"},
			string(domain.CategoryInquiry):      {"question", "inquiry", "clarification", "information", "how does"},
			string(domain.CategoryComplaint):    {"complaint", "dissatisfied", "unacceptable", "poor service", "problem"},
			string(domain.CategorySupport):      {"support", "technical issue", "system down", "error accessing", "password reset"},
		},
		UrgencyKeywords: []string{"urgent", "immediately", "asap", "right away", "emergency", "today"},
	}
	rc.AutoReply.Enabled = true
	rc.AutoReply.Subject = "We received your message"
	rc.Notifications.Levels = make(map[string]bool, len(domain.AllNotificationLevels()))
	for _, l := range domain.AllNotificationLevels() {
		rc.Notifications.Levels[string(l)] = true
	}
	rc.Notifications.MaxHistory = 1000
	return rc
}

// LoadRouting reads the topology file, overlaying defaults. An empty path
// returns the defaults unchanged.
func LoadRouting(path string) (*RoutingConfig, error) {
	rc := DefaultRouting()
	if path == "" {
		return rc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routing config: %w", err)
	}
	if err := yaml.Unmarshal(data, rc); err != nil {
		return nil, fmt.Errorf("parse routing config: %w", err)
	}
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	return rc, nil
}

// Validate enforces the invariants routing depends on. A triage mailbox is
// mandatory: it is the fallback for every unknown department.
func (rc *RoutingConfig) Validate() error {
	if len(rc.Departments) == 0 {
		return fmt.Errorf("routing config: no departments configured")
	}
	if rc.Departments[string(domain.DepartmentTriage)] == "" {
		return fmt.Errorf("routing config: triage mailbox is required")
	}
	known := make(map[string]bool, len(domain.AllCategories()))
	for _, c := range domain.AllCategories() {
		known[string(c)] = true
	}
	for cat := range rc.Keywords {
		if !known[cat] {
			return fmt.Errorf("routing config: unknown keyword category %q", cat)
		}
	}
	if rc.Notifications.MaxHistory <= 0 {
		rc.Notifications.MaxHistory = 1000
	}
	if rc.Notifications.Levels == nil {
		rc.Notifications.Levels = make(map[string]bool)
	}
	for _, l := range domain.AllNotificationLevels() {
		if _, ok := rc.Notifications.Levels[string(l)]; !ok {
			rc.Notifications.Levels[string(l)] = true
		}
	}
	return nil
}

// EnabledLevels converts the per-level flags into domain form.
func (rc *RoutingConfig) EnabledLevels() map[domain.NotificationLevel]bool {
	enabled := make(map[domain.NotificationLevel]bool, len(rc.Notifications.Levels))
	for l, on := range rc.Notifications.Levels {
		enabled[domain.NotificationLevel(l)] = on
	}
	return enabled
}

// Mailbox resolves a department to its mailbox, falling back to triage.
// The second return reports whether the department was configured directly.
func (rc *RoutingConfig) Mailbox(dept domain.Department) (string, bool) {
	if mb, ok := rc.Departments[string(dept)]; ok && mb != "" {
		return mb, true
	}
	return rc.Departments[string(domain.DepartmentTriage)], false
}

// RecipientList converts the YAML recipients into domain form.
func (rc *RoutingConfig) RecipientList() []domain.NotificationRecipient {
	out := make([]domain.NotificationRecipient, 0, len(rc.Notifications.Recipients))
	for _, r := range rc.Notifications.Recipients {
		levels := make([]domain.NotificationLevel, 0, len(r.Levels))
		for _, l := range r.Levels {
			levels = append(levels, domain.NotificationLevel(l))
		}
		out = append(out, domain.NotificationRecipient{Email: r.Email, Levels: levels})
	}
	return out
}
