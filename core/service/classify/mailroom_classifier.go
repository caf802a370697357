package classify

import (
	"path/filepath"
	"strings"

	"mailroom_server/core/domain"
	"mailroom_server/pkg/logger"
)

// ====== Axis sources ======

const (
	sourceModel     = "model"
	sourceHeuristic = "heuristic"
)

// Override rule names, recorded on the classification for auditability.
const (
	RulePaymentSignal       = "payment_signal"
	RuleUrgentDeadline      = "urgent_deadline"
	RulePaymentToFinance    = "payment_to_finance"
	RuleLegalContractChange = "legal_contract_change"
)

// departmentByCategory is the base routing map before override rules.
var departmentByCategory = map[domain.Category]domain.Department{
	domain.CategoryNewContract:  domain.DepartmentSales,
	domain.CategoryRenewal:      domain.DepartmentSales,
	domain.CategoryModification: domain.DepartmentLegal,
	domain.CategoryCancellation: domain.DepartmentLegal,
	domain.CategoryPayment:      domain.DepartmentFinance,
	domain.CategoryInquiry:      domain.DepartmentService,
	domain.CategoryComplaint:    domain.DepartmentService,
	domain.CategorySupport:      domain.DepartmentTechSupport,
	domain.CategoryOther:        domain.DepartmentTriage,
}

// Classifier assigns category, priority and department. Each axis prefers
// its model bundle and degrades to the parser heuristics (or the category
// map, for department) when the bundle is absent.
type Classifier struct {
	category   *Model
	priority   *Model
	department *Model
}

// NewClassifier loads the axis bundles found under modelDir. A missing or
// broken bundle only disables its axis model.
func NewClassifier(modelDir string) *Classifier {
	c := &Classifier{}
	if modelDir == "" {
		logger.Info("No model directory configured, classification runs on heuristics")
		return c
	}

	load := func(axis string) *Model {
		path := filepath.Join(modelDir, axis+".json")
		m, err := LoadModel(path)
		if err != nil {
			logger.WithError(err).Warn("Model bundle unavailable for axis %s, using heuristics", axis)
			return nil
		}
		logger.Info("Loaded %s model with %d classes", axis, len(m.Classes))
		return m
	}

	c.category = load("category")
	c.priority = load("priority")
	c.department = load("department")
	return c
}

// NewClassifierWithModels wires explicit bundles; used by tests.
func NewClassifierWithModels(category, priority, department *Model) *Classifier {
	return &Classifier{category: category, priority: priority, department: department}
}

// Classify produces the three-axis classification and applies the override
// rules in order. Confidences are clamped to [0,1].
func (c *Classifier) Classify(pm *domain.ParsedMessage) domain.ClassifiedMessage {
	result := domain.Classification{
		Sources: make(map[string]string, 3),
	}

	// Category axis
	if c.category != nil {
		label, conf := c.category.Predict(pm.FullText)
		result.Category = domain.Prediction{Label: label, Confidence: conf}
		result.Sources["category"] = sourceModel
	} else {
		result.Category = pm.CategoryHint
		result.Sources["category"] = sourceHeuristic
	}

	// Priority axis
	if c.priority != nil {
		label, conf := c.priority.Predict(pm.FullText)
		result.Priority = domain.Prediction{Label: label, Confidence: conf}
		result.Sources["priority"] = sourceModel
	} else {
		result.Priority = pm.PriorityHint
		result.Sources["priority"] = sourceHeuristic
	}

	// Department axis
	if c.department != nil {
		label, conf := c.department.Predict(pm.FullText)
		result.Department = domain.Prediction{Label: label, Confidence: conf}
		result.Sources["department"] = sourceModel
	} else {
		dept, ok := departmentByCategory[domain.Category(result.Category.Label)]
		if !ok {
			dept = domain.DepartmentTriage
		}
		result.Department = domain.Prediction{Label: string(dept), Confidence: 0.5}
		result.Sources["department"] = sourceHeuristic
	}

	c.applyOverrides(pm, &result)

	result.Category = result.Category.Clamp()
	result.Priority = result.Priority.Clamp()
	result.Department = result.Department.Clamp()

	return domain.ClassifiedMessage{ParsedMessage: *pm, Classification: result}
}

// applyOverrides runs the entity-driven corrections. Order matters: the
// payment signal can change the category that the department rules read.
func (c *Classifier) applyOverrides(pm *domain.ParsedMessage, result *domain.Classification) {
	entities := pm.Entities

	// A contract number next to a monetary value is a strong payment signal
	// when the model is unsure.
	if entities.Has(domain.EntityContractNumber) && entities.Has(domain.EntityMonetaryValue) &&
		result.Category.Confidence < 0.7 {
		conf := result.Category.Confidence
		if conf < 0.8 {
			conf = 0.8
		}
		result.Category = domain.Prediction{Label: string(domain.CategoryPayment), Confidence: conf}
		result.RulesFired = append(result.RulesFired, RulePaymentSignal)
	}

	// Deadlines phrased as urgent escalate priority outright.
	for _, d := range entities[domain.EntityDeadline] {
		lowered := strings.ToLower(d)
		if strings.Contains(lowered, "urgent") || strings.Contains(lowered, "immediate") {
			result.Priority = domain.Prediction{Label: string(domain.PriorityUrgent), Confidence: 0.9}
			result.RulesFired = append(result.RulesFired, RuleUrgentDeadline)
			break
		}
	}

	// Confident payment classifications route to finance.
	if result.Category.Label == string(domain.CategoryPayment) && result.Category.Confidence > 0.7 {
		result.Department = domain.Prediction{Label: string(domain.DepartmentFinance), Confidence: 0.9}
		result.RulesFired = append(result.RulesFired, RulePaymentToFinance)
	}

	// Contract changes with an identified contract go to legal.
	if entities.Has(domain.EntityContractNumber) {
		switch domain.Category(result.Category.Label) {
		case domain.CategoryCancellation, domain.CategoryModification:
			result.Department = domain.Prediction{Label: string(domain.DepartmentLegal), Confidence: 0.85}
			result.RulesFired = append(result.RulesFired, RuleLegalContractChange)
		}
	}
}
