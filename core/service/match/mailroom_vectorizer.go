package match

import (
	"math"
	"strings"
	"unicode"
)

// terms lowercases and splits on anything that is not a letter or digit.
func terms(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// vectorize builds a term-frequency vector over unigrams and bigrams.
// Bigrams keep multi-word school names from matching on single common words.
func vectorize(text string) map[string]float64 {
	toks := terms(text)
	vec := make(map[string]float64, len(toks)*2)
	for i, t := range toks {
		vec[t]++
		if i+1 < len(toks) {
			vec[t+" "+toks[i+1]]++
		}
	}
	return vec
}

// cosine computes dot(a,b) / (|a| * |b|) over sparse vectors.
func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	// Iterate the smaller map.
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for term, av := range a {
		if bv, ok := b[term]; ok {
			dot += av * bv
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (norm(a) * norm(b))
}

func norm(v map[string]float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// jaccard measures token-set overlap between two names.
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}
	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
