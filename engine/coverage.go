package engine

import "autombs-backend/models"

// DefaultExpectedMinimum is the expected number of applicable items
// when no authoritative total is known.
const DefaultExpectedMinimum = 3

// missedPool supplies placeholder labels for items the engine expected
// but did not suggest, consumed in order.
var missedPool = []string{
	"After-hours attendance item",
	"Chronic disease management plan",
	"Mental health treatment item",
	"Wound review attendance",
	"Procedural consent documentation",
}

// Estimate derives a coverage block in heuristic fallback mode: the
// eligible total is the larger of the suggestion count and
// expectedMinimum, and the shortfall is filled with placeholder labels
// from the fixed pool. Coverage is advisory; it never filters or ranks.
func Estimate(suggestions []models.Suggestion, expectedMinimum int) models.CoverageBlock {
	n := len(suggestions)

	total := n
	if expectedMinimum > total {
		total = expectedMinimum
	}

	missed := []string{}
	if n < expectedMinimum {
		want := expectedMinimum - n
		if want > len(missedPool) {
			want = len(missedPool)
		}
		missed = append(missed, missedPool[:want]...)
	}

	return models.CoverageBlock{
		EligibleSuggested: n,
		EligibleTotal:     &total,
		Missed:            missed,
	}
}

// EstimateWithTotal derives a coverage block against an authoritative
// eligible total reported by an external reasoning source.
func EstimateWithTotal(suggestions []models.Suggestion, total int) models.CoverageBlock {
	return models.CoverageBlock{
		EligibleSuggested: len(suggestions),
		EligibleTotal:     &total,
		Missed:            []string{},
	}
}
