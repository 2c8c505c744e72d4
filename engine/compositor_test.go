package engine_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autombs-backend/engine"
	"autombs-backend/models"
)

func span(text string, start, end int, field string) models.EvidenceSpan {
	return models.EvidenceSpan{Text: text, Start: &start, End: &end, Field: field}
}

func joinSegments(segments []models.Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	return b.String()
}

func TestCompose_NoSpans(t *testing.T) {
	note := "Telehealth 18 mins via video."
	segments := engine.Compose(note, nil)

	require.Len(t, segments, 1)
	assert.Equal(t, note, segments[0].Text)
	assert.False(t, segments[0].Highlighted)
}

func TestCompose_SingleSpan(t *testing.T) {
	note := "Telehealth 18 mins via video."
	segments := engine.Compose(note, []models.EvidenceSpan{
		span("Telehealth", 0, 10, models.FieldNoteText),
	})

	require.Len(t, segments, 2)
	assert.Equal(t, models.Segment{Text: "Telehealth", Highlighted: true}, segments[0])
	assert.Equal(t, models.Segment{Text: " 18 mins via video.", Highlighted: false}, segments[1])
}

func TestCompose_AlternatingSegments(t *testing.T) {
	note := "ECG done, consult held, review booked."
	segments := engine.Compose(note, []models.EvidenceSpan{
		span("consult", 10, 17, models.FieldNoteText),
		span("ECG", 0, 3, models.FieldNoteText),
	})

	require.Len(t, segments, 4)
	assert.True(t, segments[0].Highlighted)
	assert.Equal(t, "ECG", segments[0].Text)
	assert.False(t, segments[1].Highlighted)
	assert.True(t, segments[2].Highlighted)
	assert.Equal(t, "consult", segments[2].Text)
	assert.False(t, segments[3].Highlighted)
	assert.Equal(t, note, joinSegments(segments))
}

func TestCompose_SpansFromOtherFieldsAreIgnored(t *testing.T) {
	note := "ECG done."
	segments := engine.Compose(note, []models.EvidenceSpan{
		{Text: "pathology ordered", Field: models.FieldNoteFacts},
	})

	require.Len(t, segments, 1)
	assert.Equal(t, note, segments[0].Text)
	assert.False(t, segments[0].Highlighted)
}

func TestCompose_SpansWithoutOffsetsAreIgnored(t *testing.T) {
	note := "ECG done."
	segments := engine.Compose(note, []models.EvidenceSpan{
		{Text: "ECG", Field: models.FieldNoteText},
	})

	require.Len(t, segments, 1)
	assert.Equal(t, note, segments[0].Text)
}

func TestCompose_ReconstructsNoteForDisjointSpans(t *testing.T) {
	note := "Telehealth 25 mins via video, history and exam documented."
	spans := engine.Locate(note, []string{"history", "Telehealth", "exam", "mins"})
	segments := engine.Compose(note, spans)

	assert.Equal(t, note, joinSegments(segments))
	// First and last segments surround highlights
	assert.True(t, segments[0].Highlighted)
	assert.False(t, segments[len(segments)-1].Highlighted)
}

func TestCompose_OverlappingSpansAreNotMerged(t *testing.T) {
	// Overlap is deliberately emitted span-by-span rather than merged
	// into an interval union; the overlapping region repeats.
	note := "abcdefgh"
	segments := engine.Compose(note, []models.EvidenceSpan{
		span("abcde", 0, 5, models.FieldNoteText),
		span("defgh", 3, 8, models.FieldNoteText),
	})

	require.Len(t, segments, 2)
	assert.Equal(t, models.Segment{Text: "abcde", Highlighted: true}, segments[0])
	assert.Equal(t, models.Segment{Text: "defgh", Highlighted: true}, segments[1])
}

func TestCompose_AdjacentSpans(t *testing.T) {
	note := "abcdef"
	segments := engine.Compose(note, []models.EvidenceSpan{
		span("abc", 0, 3, models.FieldNoteText),
		span("def", 3, 6, models.FieldNoteText),
	})

	require.Len(t, segments, 2)
	assert.True(t, segments[0].Highlighted)
	assert.True(t, segments[1].Highlighted)
	assert.Equal(t, note, joinSegments(segments))
}

func TestCompose_SpanPastEndIsClamped(t *testing.T) {
	note := "short note"
	segments := engine.Compose(note, []models.EvidenceSpan{
		span("note plus more", 6, 25, models.FieldNoteText),
	})

	require.Len(t, segments, 2)
	assert.Equal(t, "short ", segments[0].Text)
	assert.Equal(t, "note", segments[1].Text)
	assert.True(t, segments[1].Highlighted)
}

func TestCompose_TieKeepsOriginalOrder(t *testing.T) {
	note := "abcd"
	first := span("ab", 0, 2, models.FieldNoteText)
	second := span("abc", 0, 3, models.FieldNoteText)
	segments := engine.Compose(note, []models.EvidenceSpan{first, second})

	require.Len(t, segments, 3)
	assert.Equal(t, "ab", segments[0].Text)
	assert.Equal(t, "abc", segments[1].Text)
	assert.Equal(t, "d", segments[2].Text)
}
