package service

import (
	"context"
	"testing"

	"autombs-backend/engine"
	"autombs-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggest_HeuristicMode(t *testing.T) {
	svc := NewSuggestionService(SuggestWithMode(ModeHeuristic))

	result, err := svc.Suggest(context.Background(), SuggestRequest{
		NoteText: "Telehealth consult 25 mins via video. Wound sutured under local.",
	})
	require.NoError(t, err)

	resp := result.Response
	assert.NotEmpty(t, resp.Suggestions)
	assert.Nil(t, resp.Accuracy)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, engine.RuleVersion, resp.Meta.RuleVersion)
	assert.Equal(t, ModeHeuristic, resp.Meta.Source)
	require.NotNil(t, resp.Coverage)
	assert.Equal(t, len(resp.Suggestions), resp.Coverage.EligibleSuggested)
}

func TestSuggest_HeuristicCoverageShortfall(t *testing.T) {
	svc := NewSuggestionService()

	result, err := svc.Suggest(context.Background(), SuggestRequest{
		NoteText: "ECG performed and reviewed.",
	})
	require.NoError(t, err)

	resp := result.Response
	require.Len(t, resp.Suggestions, 1)
	require.NotNil(t, resp.Coverage)
	assert.Equal(t, 1, resp.Coverage.EligibleSuggested)
	require.NotNil(t, resp.Coverage.EligibleTotal)
	assert.Equal(t, engine.DefaultExpectedMinimum, *resp.Coverage.EligibleTotal)
	assert.Len(t, resp.Coverage.Missed, 2)
}

func TestSuggest_WarnsOnItemsOutsideGatedSet(t *testing.T) {
	kbItems := []models.KBItem{
		{ItemNumber: "11700", Description: "Twelve-lead electrocardiography"},
	}
	svc := NewSuggestionService(SuggestWithKBItems(kbItems))

	result, err := svc.Suggest(context.Background(), SuggestRequest{
		NoteText: "ECG performed. Wound sutured under local.",
	})
	require.NoError(t, err)

	byItem := make(map[string]models.Suggestion)
	for _, s := range result.Response.Suggestions {
		byItem[s.Item] = s
	}

	require.Contains(t, byItem, "11700")
	require.Contains(t, byItem, "30026")
	assert.Empty(t, byItem["11700"].Warnings)
	require.Len(t, byItem["30026"].Warnings, 1)
	assert.Contains(t, byItem["30026"].Warnings[0], "30026")
}

func TestSuggest_NoWarningsWithoutKB(t *testing.T) {
	svc := NewSuggestionService()

	result, err := svc.Suggest(context.Background(), SuggestRequest{
		NoteText: "Wound sutured under local.",
	})
	require.NoError(t, err)

	for _, s := range result.Response.Suggestions {
		assert.Empty(t, s.Warnings)
	}
}

func TestSuggest_ReasoningModeWithoutReasonerFallsBack(t *testing.T) {
	svc := NewSuggestionService(SuggestWithMode(ModeReasoning))

	result, err := svc.Suggest(context.Background(), SuggestRequest{
		NoteText: "ECG performed.",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Response.Meta)
	assert.Equal(t, ModeHeuristic, result.Response.Meta.Source)
}

func TestSuggest_SessionAppendRequiresRepositories(t *testing.T) {
	svc := NewSuggestionService()
	sessionID := uuid.New()

	_, err := svc.Suggest(context.Background(), SuggestRequest{
		NoteText:  "ECG performed.",
		SessionID: &sessionID,
	})
	assert.Error(t, err)
}

func TestSuggest_AttachmentsFeedTheScan(t *testing.T) {
	svc := NewSuggestionService()

	result, err := svc.Suggest(context.Background(), SuggestRequest{
		NoteText: "Patient reviewed in clinic.",
		Attachments: []models.Attachment{
			{Name: "ecg.txt", Type: "text/plain", Content: "ECG traces attached."},
		},
	})
	require.NoError(t, err)

	items := make([]string, 0)
	for _, s := range result.Response.Suggestions {
		items = append(items, s.Item)
	}
	assert.Contains(t, items, "11700")
}
