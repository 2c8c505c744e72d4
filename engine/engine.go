package engine

import "autombs-backend/models"

// RuleVersion identifies the heuristic catalog in response metadata
const RuleVersion = "heuristic-v1"

// Suggest evaluates every catalog rule against the document's scanned
// text and returns the suggestions of the rules that fired, in catalog
// order, with the conflict pass applied. An empty result is not an
// error. Output is deterministic for identical document content.
func Suggest(doc Document) []models.Suggestion {
	text := doc.ScannedText()

	out := make([]models.Suggestion, 0)
	for _, rule := range catalog {
		if rule.Matches(text) {
			out = append(out, rule.Build(text))
		}
	}

	AnnotateConflicts(out)
	return out
}

// AnnotateConflicts attaches conflict annotations in place: for every
// declared mutually exclusive pair with both items present, each
// suggestion carrying one item receives the other item's code. It is
// the same pass regardless of whether the suggestions came from the
// heuristic catalog or an external reasoning source.
func AnnotateConflicts(suggestions []models.Suggestion) {
	for _, pair := range conflictPairs {
		hasA, hasB := false, false
		for i := range suggestions {
			if suggestions[i].Item == pair[0] {
				hasA = true
			}
			if suggestions[i].Item == pair[1] {
				hasB = true
			}
		}
		if !hasA || !hasB {
			continue
		}

		for i := range suggestions {
			switch suggestions[i].Item {
			case pair[0]:
				suggestions[i].Conflicts = append(suggestions[i].Conflicts, pair[1])
			case pair[1]:
				suggestions[i].Conflicts = append(suggestions[i].Conflicts, pair[0])
			}
		}
	}
}
