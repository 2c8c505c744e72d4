package service

import (
	"testing"

	"autombs-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fee(v float64) *float64 { return &v }

func TestParseDecisions_PlainObject(t *testing.T) {
	raw := `{"decisions":[{"item_number":"5012","applicable":true,"confidence":0.9,"rationale":"ED attendance documented"}]}`

	set, err := parseDecisions(raw)
	require.NoError(t, err)
	require.Len(t, set.Decisions, 1)
	assert.Equal(t, "5012", set.Decisions[0].ItemNumber)
	assert.True(t, set.Decisions[0].Applicable)
	assert.Equal(t, 0.9, set.Decisions[0].Confidence)
}

func TestParseDecisions_SalvagesWrappedObject(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"decisions\":[{\"item_number\":\"23\",\"applicable\":false,\"confidence\":0.2}]}\n```\nDone."

	set, err := parseDecisions(raw)
	require.NoError(t, err)
	require.Len(t, set.Decisions, 1)
	assert.Equal(t, "23", set.Decisions[0].ItemNumber)
	assert.False(t, set.Decisions[0].Applicable)
}

func TestParseDecisions_NoObject(t *testing.T) {
	_, err := parseDecisions("the model refused to answer")
	assert.Error(t, err)
}

func TestParseDecisions_MalformedObject(t *testing.T) {
	_, err := parseDecisions(`{"decisions": [`)
	assert.Error(t, err)
}

func TestMapDecisions_ApplicableOnly(t *testing.T) {
	decisions := []decision{
		{ItemNumber: "5012", ItemDescription: "ED attendance", Applicable: true, Confidence: 0.91, Rationale: "documented", Citations: []string{"patient_age_years: 45"}},
		{ItemNumber: "23", ItemDescription: "consult", Applicable: false, Confidence: 0.8, MissingRequirements: []string{"duration"}},
	}

	got := MapDecisions(decisions, 0)
	require.Len(t, got, 1)
	assert.Equal(t, "5012", got[0].Item)
	assert.Equal(t, "ED attendance", got[0].Description)
	assert.Equal(t, 0.91, got[0].Confidence)
	require.Len(t, got[0].Evidence, 1)
	assert.Equal(t, models.FieldNoteFacts, got[0].Evidence[0].Field)
	assert.Nil(t, got[0].Evidence[0].Start)
}

func TestMapDecisions_ConfidenceThreshold(t *testing.T) {
	decisions := []decision{
		{ItemNumber: "5012", Applicable: true, Confidence: 0.91},
		{ItemNumber: "30026", Applicable: true, Confidence: 0.4},
	}

	got := MapDecisions(decisions, 0.8)
	require.Len(t, got, 1)
	assert.Equal(t, "5012", got[0].Item)
}

func TestMapDecisions_CarriesScheduleFee(t *testing.T) {
	decisions := []decision{
		{ItemNumber: "5012", Applicable: true, Confidence: 0.9, ScheduleFee: fee(81.3)},
	}

	got := MapDecisions(decisions, 0)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].ScheduleFee)
	assert.Equal(t, 81.3, *got[0].ScheduleFee)
}

func TestMapDecisions_SkipsEmptyCitations(t *testing.T) {
	decisions := []decision{
		{ItemNumber: "5012", Applicable: true, Confidence: 0.9, Citations: []string{"", "sutured under local"}},
	}

	got := MapDecisions(decisions, 0)
	require.Len(t, got, 1)
	require.Len(t, got[0].Evidence, 1)
	assert.Equal(t, "sutured under local", got[0].Evidence[0].Text)
}

func TestBackfillOffsets_PromotesLocatableSpans(t *testing.T) {
	note := "Laceration sutured under local anaesthetic."
	suggestions := []models.Suggestion{
		{
			Item: "30026",
			Evidence: []models.EvidenceSpan{
				{Text: "sutured", Field: models.FieldNoteFacts},
				{Text: "patient_age_years: 45", Field: models.FieldNoteFacts},
			},
		},
	}

	BackfillOffsets(note, suggestions)

	located := suggestions[0].Evidence[0]
	require.NotNil(t, located.Start)
	require.NotNil(t, located.End)
	assert.Equal(t, models.FieldNoteText, located.Field)
	assert.Equal(t, note[*located.Start:*located.End], located.Text)

	// Fact strings absent from the note stay offset-less
	missed := suggestions[0].Evidence[1]
	assert.Nil(t, missed.Start)
	assert.Equal(t, models.FieldNoteFacts, missed.Field)
}

func TestBackfillOffsets_LeavesExistingOffsets(t *testing.T) {
	note := "sutured sutured"
	start, end := 8, 15
	suggestions := []models.Suggestion{
		{
			Item: "30026",
			Evidence: []models.EvidenceSpan{
				{Text: "sutured", Start: &start, End: &end, Field: models.FieldNoteText},
			},
		},
	}

	BackfillOffsets(note, suggestions)

	assert.Equal(t, 8, *suggestions[0].Evidence[0].Start)
	assert.Equal(t, 15, *suggestions[0].Evidence[0].End)
}

func TestTrimDescription(t *testing.T) {
	assert.Equal(t, "short", trimDescription("  short  ", 10))
	long := trimDescription("abcdefghij", 4)
	assert.Equal(t, "abcd...", long)
}

func TestExtractCandidateText(t *testing.T) {
	body := []byte(`{"candidates":[{"content":{"parts":[{"text":"{\"decisions\":[]}"}]}}]}`)

	text, err := extractCandidateText(body)
	require.NoError(t, err)
	assert.Equal(t, `{"decisions":[]}`, text)
}

func TestExtractCandidateText_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"api error", `{"error":{"code":429,"message":"quota"}}`},
		{"blocked", `{"promptFeedback":{"blockReason":"SAFETY"}}`},
		{"no candidates", `{"candidates":[]}`},
		{"empty content", `{"candidates":[{"content":{"parts":[{"text":""}]}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := extractCandidateText([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}
