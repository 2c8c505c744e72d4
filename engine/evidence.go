package engine

import (
	"strings"

	"autombs-backend/models"
)

// Locate finds the first case-insensitive occurrence of each needle in
// text and returns one evidence span per found needle, in needle order.
// Span text is the original-case substring at the match location, with
// byte offsets into text. Needles that are empty or absent are silently
// skipped; repeated occurrences beyond the first are not captured.
func Locate(text string, needles []string) []models.EvidenceSpan {
	lower := strings.ToLower(text)
	spans := make([]models.EvidenceSpan, 0, len(needles))

	for _, needle := range needles {
		if needle == "" {
			continue
		}

		ln := strings.ToLower(needle)
		i := strings.Index(lower, ln)
		if i < 0 {
			continue
		}

		start := i
		end := i + len(ln)
		spans = append(spans, models.EvidenceSpan{
			Text:  text[start:end],
			Start: &start,
			End:   &end,
			Field: models.FieldNoteText,
		})
	}

	return spans
}
