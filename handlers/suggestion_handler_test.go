package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"autombs-backend/models"
	"autombs-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSuggestionRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewSuggestionHandler(service.NewSuggestionService())
	r := gin.New()
	r.POST("/api/mbs-codes", h.SuggestCodes)
	return r
}

func TestSuggestCodes_ReturnsContract(t *testing.T) {
	r := newSuggestionRouter()

	body := `{"noteText":"ECG performed. Wound sutured under local.","options":{}}`
	req := httptest.NewRequest(http.MethodPost, "/api/mbs-codes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.SuggestionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Suggestions, 2)
	assert.Nil(t, resp.Accuracy)
	require.NotNil(t, resp.Coverage)
	assert.Equal(t, 2, resp.Coverage.EligibleSuggested)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, "heuristic", resp.Meta.Source)
}

func TestSuggestCodes_MissingNoteText(t *testing.T) {
	r := newSuggestionRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/mbs-codes", strings.NewReader(`{"options":{}}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_NOTE_TEXT")
}

func TestSuggestCodes_InvalidBody(t *testing.T) {
	r := newSuggestionRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/mbs-codes", strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_REQUEST")
}

func TestSuggestCodes_InvalidSessionID(t *testing.T) {
	r := newSuggestionRouter()

	body := `{"noteText":"ECG performed.","session_id":"not-a-uuid","options":{}}`
	req := httptest.NewRequest(http.MethodPost, "/api/mbs-codes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_SESSION_ID")
}

func TestSuggestCodes_EvidenceOffsetsMatchNote(t *testing.T) {
	r := newSuggestionRouter()

	note := "Telehealth review 25 mins via video."
	payload, _ := json.Marshal(map[string]interface{}{
		"noteText": note,
		"options":  map[string]interface{}{},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/mbs-codes", strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.SuggestionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Suggestions)

	for _, s := range resp.Suggestions {
		for _, span := range s.Evidence {
			if span.Field != models.FieldNoteText || span.Start == nil || span.End == nil {
				continue
			}
			assert.Equal(t, note[*span.Start:*span.End], span.Text)
		}
	}
}
