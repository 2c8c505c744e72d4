package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"autombs-backend/engine"
	"autombs-backend/kb"
	"autombs-backend/models"

	"github.com/google/generative-ai-go/genai"
)

// ReasonService asks an external model to judge each gated candidate
// item against the extracted note facts
type ReasonService struct {
	geminiClient *genai.Client
	httpClient   *http.Client
	model        string
}

// ReasonServiceOption is a functional option for ReasonService
type ReasonServiceOption func(*ReasonService)

// ReasonWithGeminiClient sets the Gemini client
func ReasonWithGeminiClient(client *genai.Client) ReasonServiceOption {
	return func(s *ReasonService) {
		s.geminiClient = client
	}
}

// ReasonWithHTTPClient sets the HTTP client used for generation calls
func ReasonWithHTTPClient(client *http.Client) ReasonServiceOption {
	return func(s *ReasonService) {
		s.httpClient = client
	}
}

// ReasonWithModel sets the default generation model
func ReasonWithModel(model string) ReasonServiceOption {
	return func(s *ReasonService) {
		s.model = model
	}
}

// NewReasonService creates a new reasoning service
func NewReasonService(opts ...ReasonServiceOption) *ReasonService {
	s := &ReasonService{}
	for _, opt := range opts {
		opt(s)
	}
	if s.model == "" {
		s.model = defaultReasonModel
	}
	return s
}

var (
	ErrReasonerUnavailable = errors.New("reasoning model unavailable")
	ErrReasonerBadJSON     = errors.New("reasoning model returned invalid JSON")
)

const (
	generationAPIBase  = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"
	defaultReasonModel = "gemini-2.0-flash"
	reasonPromptVer    = "reason-per-candidate-v1"
	maxRetries         = 3
	initialBackoff     = time.Second
	defaultHTTPTimeout = 120 * time.Second
)

// candidatePayload is one gated KB item presented to the model
type candidatePayload struct {
	ItemNumber      string              `json:"item_number"`
	Description     string              `json:"description"`
	ScheduleFee     *float64            `json:"schedule_fee,omitempty"`
	SoftHints       kb.SoftHints        `json:"soft_requirements_hint"`
	KeptBecause     string              `json:"kept_because,omitempty"`
	SalientEvidence map[string][]string `json:"salient_evidence,omitempty"`
}

// reasonInput is the full payload embedded into the prompt
type reasonInput struct {
	NoteFacts  kb.Facts           `json:"note_facts"`
	Candidates []candidatePayload `json:"candidates"`
}

// decision is one per-candidate verdict parsed from the model output
type decision struct {
	ItemNumber          string   `json:"item_number"`
	ItemDescription     string   `json:"item_description"`
	Applicable          bool     `json:"applicable"`
	Confidence          float64  `json:"confidence"`
	ScheduleFee         *float64 `json:"schedule_fee,omitempty"`
	Rationale           string   `json:"rationale"`
	Citations           []string `json:"citations,omitempty"`
	MissingRequirements []string `json:"missing_requirements,omitempty"`
}

// decisionSet is the top-level object the model is instructed to emit
type decisionSet struct {
	Decisions []decision `json:"decisions"`
}

// ReasonRequest carries everything the model needs to judge candidates
type ReasonRequest struct {
	NoteText   string
	Facts      kb.Facts
	Candidates []kb.PassItem
	Options    models.Options
}

// ReasonResult holds the mapped suggestions plus the raw decision set
type ReasonResult struct {
	Suggestions  []models.Suggestion
	RawDecisions interface{}
	Model        string
}

// Reason judges each candidate and maps applicable decisions to
// suggestions with offsets backfilled against the note text
func (s *ReasonService) Reason(ctx context.Context, req ReasonRequest) (*ReasonResult, error) {
	if s.geminiClient == nil {
		return nil, errors.New("gemini client not set")
	}

	model := s.model
	if req.Options.Model != "" {
		model = req.Options.Model
	}

	prompt, err := s.buildPrompt(req.Facts, req.Candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	if req.Options.RequestTimeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.Options.RequestTimeoutSec)*time.Second)
		defer cancel()
	}

	raw, err := s.callGenerationAPI(ctx, model, prompt)
	if err != nil {
		return nil, err
	}

	set, err := parseDecisions(raw)
	if err != nil {
		log.Printf("Warning: reasoner returned unparseable output: %v", err)
		return nil, ErrReasonerBadJSON
	}

	suggestions := MapDecisions(set.Decisions, req.Options.ConfidenceThreshold)
	BackfillOffsets(req.NoteText, suggestions)

	return &ReasonResult{
		Suggestions:  suggestions,
		RawDecisions: set,
		Model:        model,
	}, nil
}

// buildPrompt embeds the reasoning input JSON into the instruction template
func (s *ReasonService) buildPrompt(facts kb.Facts, candidates []kb.PassItem) (string, error) {
	input := reasonInput{
		NoteFacts:  facts,
		Candidates: make([]candidatePayload, 0, len(candidates)),
	}
	for _, c := range candidates {
		input.Candidates = append(input.Candidates, candidatePayload{
			ItemNumber:      c.ItemNumber,
			Description:     trimDescription(c.Description, 500),
			ScheduleFee:     c.ScheduleFee,
			SoftHints:       c.SoftHints,
			KeptBecause:     c.KeptBecause,
			SalientEvidence: c.SalientEvidence,
		})
	}

	payload, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(`You are a clinical coding assistant for the Medicare Benefits Schedule.

INPUT:
%s

TASK:
For every candidate in "candidates", decide whether the clinical facts in
"note_facts" support billing that item. Judge each candidate independently.

OUTPUT REQUIREMENTS:
- Respond with a single JSON object only, no prose, no markdown fences
- Shape: {"decisions": [{"item_number", "item_description", "applicable",
  "confidence", "schedule_fee", "rationale", "citations",
  "missing_requirements"}]}
- "applicable" is a boolean; "confidence" is a number between 0 and 1
- "citations" quotes the exact note_facts evidence strings you relied on
- "missing_requirements" lists unmet soft requirements when applicable is false
- Do NOT invent facts that are not in note_facts
- Use EXACT numbers from note_facts (ages, minutes). Do not round or estimate.

Respond with the JSON object now:`, string(payload))

	return prompt, nil
}

// trimDescription shortens long KB descriptions for the prompt
func trimDescription(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n]) + "..."
}

// parseDecisions parses the model output, salvaging the outermost JSON
// object when the model wraps it in prose or fences
func parseDecisions(raw string) (*decisionSet, error) {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "{") {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start == -1 || end == -1 || end <= start {
			return nil, fmt.Errorf("no JSON object in output")
		}
		text = text[start : end+1]
	}

	var set decisionSet
	if err := json.Unmarshal([]byte(text), &set); err != nil {
		return nil, err
	}
	return &set, nil
}

// MapDecisions converts applicable decisions above the confidence
// threshold into suggestions; citations become evidence without offsets
func MapDecisions(decisions []decision, confidenceThreshold float64) []models.Suggestion {
	suggestions := make([]models.Suggestion, 0)
	for _, d := range decisions {
		if !d.Applicable {
			continue
		}
		if d.Confidence < confidenceThreshold {
			continue
		}

		evidence := make([]models.EvidenceSpan, 0, len(d.Citations))
		for _, c := range d.Citations {
			if c == "" {
				continue
			}
			evidence = append(evidence, models.EvidenceSpan{
				Text:  c,
				Field: models.FieldNoteFacts,
			})
		}

		suggestions = append(suggestions, models.Suggestion{
			Item:        d.ItemNumber,
			Description: d.ItemDescription,
			Confidence:  d.Confidence,
			Reasoning:   d.Rationale,
			Evidence:    evidence,
			ScheduleFee: d.ScheduleFee,
		})
	}
	return suggestions
}

// BackfillOffsets locates offset-less evidence text in the note and,
// where found, promotes the span to a renderable note-text span
func BackfillOffsets(noteText string, suggestions []models.Suggestion) {
	for i := range suggestions {
		for j := range suggestions[i].Evidence {
			span := &suggestions[i].Evidence[j]
			if span.Start != nil && span.End != nil {
				continue
			}
			located := engine.Locate(noteText, []string{span.Text})
			if len(located) == 0 {
				continue
			}
			span.Start = located[0].Start
			span.End = located[0].End
			span.Field = models.FieldNoteText
		}
	}
}

// callGenerationAPI calls the Gemini generation API directly via HTTP
func (s *ReasonService) callGenerationAPI(ctx context.Context, model, prompt string) (string, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY not set")
	}

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":      0.0,
			"responseMimeType": "application/json",
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf(generationAPIBase, model)
	client := s.httpClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}

	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", apiKey)

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			log.Printf("Gemini API error: Status %d, Body: %s", resp.StatusCode, string(bodyBytes))
			// Don't retry on 400 or 401 errors
			if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
				return "", fmt.Errorf("API error: %d - %s", resp.StatusCode, string(bodyBytes))
			}
			lastErr = fmt.Errorf("API error: %d", resp.StatusCode)
			continue
		}

		text, err := extractCandidateText(bodyBytes)
		if err != nil {
			lastErr = err
			continue
		}
		return text, nil
	}

	return "", fmt.Errorf("%w: %v", ErrReasonerUnavailable, lastErr)
}

// extractCandidateText pulls the concatenated text parts out of a
// generateContent response body
func extractCandidateText(body []byte) (string, error) {
	var apiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason,omitempty"`
		} `json:"candidates"`
		PromptFeedback struct {
			BlockReason string `json:"blockReason,omitempty"`
		} `json:"promptFeedback,omitempty"`
		Error struct {
			Code    int    `json:"code,omitempty"`
			Message string `json:"message,omitempty"`
		} `json:"error,omitempty"`
	}

	if err := json.Unmarshal(body, &apiResp); err != nil {
		log.Printf("Failed to decode response. Body: %s", string(body))
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if apiResp.Error.Message != "" {
		return "", fmt.Errorf("API error: %s (code: %d)", apiResp.Error.Message, apiResp.Error.Code)
	}

	if apiResp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("API blocked prompt: %s", apiResp.PromptFeedback.BlockReason)
	}

	if len(apiResp.Candidates) == 0 {
		return "", fmt.Errorf("API returned no candidates")
	}

	var responseText strings.Builder
	for i, candidate := range apiResp.Candidates {
		if candidate.FinishReason != "" && candidate.FinishReason != "STOP" {
			log.Printf("Warning: Candidate %d finished with reason: %s", i, candidate.FinishReason)
		}
		for _, part := range candidate.Content.Parts {
			responseText.WriteString(part.Text)
		}
	}

	result := responseText.String()
	if result == "" {
		return "", fmt.Errorf("API returned empty content")
	}

	return result, nil
}
