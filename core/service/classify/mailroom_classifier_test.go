package classify

import (
	"os"
	"path/filepath"
	"testing"

	"mailroom_server/core/domain"
)

func parsedWith(text string, entities domain.EntitySet, categoryHint, priorityHint domain.Prediction) *domain.ParsedMessage {
	if entities == nil {
		entities = make(domain.EntitySet)
	}
	return &domain.ParsedMessage{
		Message:      domain.InboundMessage{ID: "<m1@test>"},
		FullText:     text,
		Entities:     entities,
		CategoryHint: categoryHint,
		PriorityHint: priorityHint,
	}
}

func TestClassifyHeuristicFallback(t *testing.T) {
	c := NewClassifierWithModels(nil, nil, nil)

	pm := parsedWith("renewal request", nil,
		domain.Prediction{Label: string(domain.CategoryRenewal), Confidence: 0.6},
		domain.Prediction{Label: string(domain.PriorityNormal), Confidence: 0.5},
	)
	got := c.Classify(pm)

	if got.Classification.Category.Label != string(domain.CategoryRenewal) {
		t.Errorf("expected category hint to pass through, got %s", got.Classification.Category.Label)
	}
	if got.Classification.Department.Label != string(domain.DepartmentSales) {
		t.Errorf("renewal should map to sales, got %s", got.Classification.Department.Label)
	}
	if got.Classification.Department.Confidence != 0.5 {
		t.Errorf("heuristic department confidence should be 0.5, got %v", got.Classification.Department.Confidence)
	}
	for _, axis := range []string{"category", "priority", "department"} {
		if got.Classification.Sources[axis] != "heuristic" {
			t.Errorf("axis %s should be heuristic-sourced, got %s", axis, got.Classification.Sources[axis])
		}
	}
}

func TestClassifyUnknownCategoryMapsToTriage(t *testing.T) {
	c := NewClassifierWithModels(nil, nil, nil)
	pm := parsedWith("text", nil,
		domain.Prediction{Label: "nonsense", Confidence: 0.6},
		domain.Prediction{Label: string(domain.PriorityNormal), Confidence: 0.5},
	)
	got := c.Classify(pm)
	if got.Classification.Department.Label != string(domain.DepartmentTriage) {
		t.Errorf("unmapped category should route to triage, got %s", got.Classification.Department.Label)
	}
}

func TestPaymentSignalOverride(t *testing.T) {
	c := NewClassifierWithModels(nil, nil, nil)
	entities := make(domain.EntitySet)
	entities.Add(domain.EntityContractNumber, "2024/0153")
	entities.Add(domain.EntityMonetaryValue, "R$ 1.250,00")

	pm := parsedWith("text", entities,
		domain.Prediction{Label: string(domain.CategoryInquiry), Confidence: 0.4},
		domain.Prediction{Label: string(domain.PriorityNormal), Confidence: 0.5},
	)
	got := c.Classify(pm)

	cls := got.Classification
	if cls.Category.Label != string(domain.CategoryPayment) {
		t.Errorf("expected payment override, got %s", cls.Category.Label)
	}
	if cls.Category.Confidence != 0.8 {
		t.Errorf("expected confidence lifted to 0.8, got %v", cls.Category.Confidence)
	}
	// The lifted payment classification must also cascade into finance.
	if cls.Department.Label != string(domain.DepartmentFinance) {
		t.Errorf("expected payment cascade to finance, got %s", cls.Department.Label)
	}
	if len(cls.RulesFired) != 2 ||
		cls.RulesFired[0] != RulePaymentSignal || cls.RulesFired[1] != RulePaymentToFinance {
		t.Errorf("expected [payment_signal payment_to_finance], got %v", cls.RulesFired)
	}
}

func TestPaymentSignalSkippedWhenConfident(t *testing.T) {
	c := NewClassifierWithModels(nil, nil, nil)
	entities := make(domain.EntitySet)
	entities.Add(domain.EntityContractNumber, "2024/0153")
	entities.Add(domain.EntityMonetaryValue, "R$ 100,00")

	pm := parsedWith("text", entities,
		domain.Prediction{Label: string(domain.CategoryRenewal), Confidence: 0.85},
		domain.Prediction{Label: string(domain.PriorityNormal), Confidence: 0.5},
	)
	got := c.Classify(pm)
	if got.Classification.Category.Label != string(domain.CategoryRenewal) {
		t.Errorf("confident category must not be overridden, got %s", got.Classification.Category.Label)
	}
}

func TestUrgentDeadlineOverride(t *testing.T) {
	c := NewClassifierWithModels(nil, nil, nil)
	entities := make(domain.EntitySet)
	entities.Add(domain.EntityDeadline, "urgent, reply before Friday")

	pm := parsedWith("text", entities,
		domain.Prediction{Label: string(domain.CategoryInquiry), Confidence: 0.6},
		domain.Prediction{Label: string(domain.PriorityNormal), Confidence: 0.5},
	)
	got := c.Classify(pm)

	if got.Classification.Priority.Label != string(domain.PriorityUrgent) {
		t.Errorf("urgent deadline should escalate priority, got %s", got.Classification.Priority.Label)
	}
	if got.Classification.Priority.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %v", got.Classification.Priority.Confidence)
	}
}

func TestLegalContractChangeOverride(t *testing.T) {
	c := NewClassifierWithModels(nil, nil, nil)
	entities := make(domain.EntitySet)
	entities.Add(domain.EntityContractNumber, "555/2024")

	for _, cat := range []domain.Category{domain.CategoryCancellation, domain.CategoryModification} {
		pm := parsedWith("text", entities,
			domain.Prediction{Label: string(cat), Confidence: 0.75},
			domain.Prediction{Label: string(domain.PriorityHigh), Confidence: 0.6},
		)
		got := c.Classify(pm)
		if got.Classification.Department.Label != string(domain.DepartmentLegal) {
			t.Errorf("%s with contract number should go to legal, got %s", cat, got.Classification.Department.Label)
		}
	}
}

func TestClassifyClampsConfidence(t *testing.T) {
	c := NewClassifierWithModels(nil, nil, nil)
	pm := parsedWith("text", nil,
		domain.Prediction{Label: string(domain.CategoryInquiry), Confidence: 1.7},
		domain.Prediction{Label: string(domain.PriorityNormal), Confidence: -0.2},
	)
	got := c.Classify(pm)
	if got.Classification.Category.Confidence != 1.0 {
		t.Errorf("confidence should clamp to 1.0, got %v", got.Classification.Category.Confidence)
	}
	if got.Classification.Priority.Confidence != 0.0 {
		t.Errorf("confidence should clamp to 0.0, got %v", got.Classification.Priority.Confidence)
	}
}

func TestModelPredict(t *testing.T) {
	m := &Model{
		Name:    "category",
		Classes: []string{"payment", "inquiry"},
		Priors:  map[string]float64{"payment": -0.7, "inquiry": -0.7},
		Likelihoods: map[string]map[string]float64{
			"payment": {"invoice": -1.0, "overdue": -1.5},
			"inquiry": {"question": -1.0},
		},
		UnknownLog: map[string]float64{"payment": -10.0, "inquiry": -10.0},
	}

	label, conf := m.Predict("the invoice is overdue")
	if label != "payment" {
		t.Errorf("expected payment, got %s", label)
	}
	if conf <= 0.5 || conf > 1.0 {
		t.Errorf("confidence out of expected range: %v", conf)
	}

	label, _ = m.Predict("quick question about enrollment")
	if label != "inquiry" {
		t.Errorf("expected inquiry, got %s", label)
	}
}

func TestLoadModelValidation(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	if _, err := LoadModel(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing bundle")
	}

	if _, err := LoadModel(write("empty.json", `{"name":"x","classes":[]}`)); err == nil {
		t.Error("expected error for bundle without classes")
	}

	if _, err := LoadModel(write("noprior.json", `{"name":"x","classes":["a"],"priors":{}}`)); err == nil {
		t.Error("expected error for missing prior")
	}

	m, err := LoadModel(write("ok.json", `{"name":"x","classes":["a"],"priors":{"a":-0.1}}`))
	if err != nil {
		t.Fatalf("valid bundle rejected: %v", err)
	}
	if m.Name != "x" || len(m.Classes) != 1 {
		t.Errorf("bundle fields not populated: %+v", m)
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Invoice #123, overdue!")
	expected := []string{"invoice", "123", "overdue"}
	if len(got) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
	for i := range got {
		if got[i] != expected[i] {
			t.Errorf("token %d: expected %q, got %q", i, expected[i], got[i])
		}
	}
}
