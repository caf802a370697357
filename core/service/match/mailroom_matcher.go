package match

import (
	"context"
	"sort"
	"strings"

	"mailroom_server/core/domain"
	"mailroom_server/core/port/out"
	"mailroom_server/pkg/logger"
)

const (
	nameSimilarityThreshold = 0.8
	textSimilarityThreshold = 0.3
	maxCandidates           = 5
	minTermsForTextMatch    = 10
)

// Matcher links messages to contract records with a three-step waterfall:
// exact contract number, school-name similarity, then full-text cosine.
// Matching degrades to no-match on store failures; it never aborts a message.
type Matcher struct {
	contracts out.ContractRepository
}

func NewMatcher(contracts out.ContractRepository) *Matcher {
	return &Matcher{contracts: contracts}
}

// Match runs the waterfall and returns candidates sorted best-first.
func (m *Matcher) Match(ctx context.Context, cm domain.ClassifiedMessage) domain.MatchedMessage {
	result := domain.MatchedMessage{ClassifiedMessage: cm}

	// Step 1: exact contract number.
	for _, number := range cm.Entities[domain.EntityContractNumber] {
		contract, err := m.contracts.GetByNumber(ctx, number)
		if err != nil {
			logger.WithError(err).WithMessageID(cm.Message.ID).Warn("Contract lookup failed for %q", number)
			continue
		}
		if contract != nil {
			result.Matches = []domain.ContractMatch{{
				Contract: contract,
				Score:    1.0,
				Method:   domain.MatchByContractNumber,
			}}
			return result
		}
	}

	needName := cm.Entities.Has(domain.EntitySchoolName)
	msgTerms := terms(cm.FullText)
	needText := len(msgTerms) >= minTermsForTextMatch
	if !needName && !needText {
		return result
	}

	active, err := m.contracts.ListActive(ctx)
	if err != nil {
		logger.WithError(err).WithMessageID(cm.Message.ID).Warn("Contract listing failed, matching degraded")
		return result
	}

	// Step 2: school-name similarity.
	if needName {
		var candidates []domain.ContractMatch
		for _, contract := range active {
			best := 0.0
			for _, name := range cm.Entities[domain.EntitySchoolName] {
				if s := nameSimilarity(name, contract.SchoolName); s > best {
					best = s
				}
			}
			if best >= nameSimilarityThreshold {
				candidates = append(candidates, domain.ContractMatch{
					Contract: contract,
					Score:    best,
					Method:   domain.MatchBySchoolName,
				})
			}
		}
		if len(candidates) > 0 {
			result.Matches = topCandidates(candidates)
			return result
		}
	}

	// Step 3: full-text cosine over the contract corpus.
	if needText {
		msgVec := vectorize(cm.FullText)
		var candidates []domain.ContractMatch
		for _, contract := range active {
			score := cosine(msgVec, vectorize(contract.SearchText()))
			if score >= textSimilarityThreshold {
				candidates = append(candidates, domain.ContractMatch{
					Contract: contract,
					Score:    score,
					Method:   domain.MatchByTextSimilarity,
				})
			}
		}
		result.Matches = topCandidates(candidates)
	}

	return result
}

// nameSimilarity scores two school names: exact 1.0, containment 0.9,
// token-set Jaccard otherwise.
func nameSimilarity(a, b string) float64 {
	na := normalizeName(a)
	nb := normalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1.0
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return 0.9
	}
	return jaccard(strings.Fields(na), strings.Fields(nb))
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func topCandidates(candidates []domain.ContractMatch) []domain.ContractMatch {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return candidates
}
