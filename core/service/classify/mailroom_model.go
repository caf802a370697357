package classify

import (
	"fmt"
	"math"
	"os"
	"strings"
	"unicode"

	"github.com/goccy/go-json"
)

// Model is a multinomial naive Bayes bundle trained offline and exported as
// JSON: class priors and per-class token log-likelihoods over a shared
// vocabulary. One bundle per classification axis.
type Model struct {
	Name        string                        `json:"name"`
	Classes     []string                      `json:"classes"`
	Priors      map[string]float64            `json:"priors"`
	Likelihoods map[string]map[string]float64 `json:"likelihoods"`
	UnknownLog  map[string]float64            `json:"unknown_log"`
}

// LoadModel reads and validates a model bundle from disk.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model bundle: %w", err)
	}
	if len(m.Classes) == 0 {
		return nil, fmt.Errorf("model bundle %q has no classes", m.Name)
	}
	for _, class := range m.Classes {
		if _, ok := m.Priors[class]; !ok {
			return nil, fmt.Errorf("model bundle %q missing prior for class %q", m.Name, class)
		}
	}
	return &m, nil
}

// Predict scores the text against every class and returns the winner with a
// softmax-normalized confidence.
func (m *Model) Predict(text string) (string, float64) {
	tokens := Tokenize(text)

	scores := make([]float64, len(m.Classes))
	for i, class := range m.Classes {
		score := m.Priors[class]
		likes := m.Likelihoods[class]
		unk := m.UnknownLog[class]
		if unk == 0 {
			unk = -12.0
		}
		for _, tok := range tokens {
			if ll, ok := likes[tok]; ok {
				score += ll
			} else {
				score += unk
			}
		}
		scores[i] = score
	}

	bestIdx := 0
	for i, s := range scores {
		if s > scores[bestIdx] {
			bestIdx = i
		}
	}

	// Softmax with max subtraction for numeric stability.
	max := scores[bestIdx]
	var denom float64
	for _, s := range scores {
		denom += math.Exp(s - max)
	}
	confidence := 1.0 / denom

	return m.Classes[bestIdx], confidence
}

// Tokenize lowercases and splits on anything that is not a letter or digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
