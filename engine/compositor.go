package engine

import (
	"sort"

	"autombs-backend/models"
)

// Compose partitions noteText into alternating plain and highlighted
// segments from the evidence spans accumulated across all turns of a
// session. Only spans against the note text with defined offsets are
// renderable; the rest remain display-only evidence and are ignored
// here.
//
// Spans are processed independently in ascending start order, using
// each span's start/end verbatim. Overlapping spans are NOT merged
// into an interval union: a span starting before the previous span's
// end still emits its full highlighted segment. Downstream rendering
// depends on this exact segmentation.
func Compose(noteText string, spans []models.EvidenceSpan) []models.Segment {
	renderable := make([]models.EvidenceSpan, 0, len(spans))
	for _, sp := range spans {
		if sp.Field != models.FieldNoteText || sp.Start == nil || sp.End == nil {
			continue
		}
		if *sp.Start < 0 || *sp.Start >= *sp.End || *sp.Start >= len(noteText) {
			continue
		}
		renderable = append(renderable, sp)
	}

	if len(renderable) == 0 {
		return []models.Segment{{Text: noteText, Highlighted: false}}
	}

	sort.SliceStable(renderable, func(i, j int) bool {
		return *renderable[i].Start < *renderable[j].Start
	})

	segments := make([]models.Segment, 0, 2*len(renderable)+1)
	cursor := 0
	for _, sp := range renderable {
		start := *sp.Start
		end := *sp.End
		if end > len(noteText) {
			end = len(noteText)
		}

		if start > cursor {
			segments = append(segments, models.Segment{Text: noteText[cursor:start], Highlighted: false})
		}
		segments = append(segments, models.Segment{Text: noteText[start:end], Highlighted: true})
		cursor = end
	}

	if cursor < len(noteText) {
		segments = append(segments, models.Segment{Text: noteText[cursor:], Highlighted: false})
	}

	return segments
}
