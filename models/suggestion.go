package models

import (
	"database/sql/driver"
	"encoding/json"
)

// Evidence field tags. Only spans against the note text carry offsets
// that can be used for highlighted rendering.
const (
	FieldNoteText  = "noteText"
	FieldNoteFacts = "note_facts"
)

// EvidenceSpan is a literal piece of text cited in support of a
// suggestion. Start/End are byte offsets into the note text and are
// nil for evidence that has no renderable location.
type EvidenceSpan struct {
	Text  string `json:"text"`
	Start *int   `json:"start,omitempty"`
	End   *int   `json:"end,omitempty"`
	Field string `json:"field"`
}

// Suggestion is a single billing item suggestion with its supporting
// evidence. Conflicts is only populated by the engine's conflict pass.
type Suggestion struct {
	Item        string         `json:"item"`
	Description string         `json:"description"`
	Confidence  float64        `json:"confidence"`
	Reasoning   string         `json:"reasoning"`
	Evidence    []EvidenceSpan `json:"evidence"`
	Conflicts   []string       `json:"conflicts,omitempty"`
	AllowedWith []string       `json:"allowedWith,omitempty"`
	Warnings    []string       `json:"warnings,omitempty"`
	ScheduleFee *float64       `json:"schedule_fee,omitempty"`
}

// Suggestions is a list of suggestions stored as JSONB on a session turn
type Suggestions []Suggestion

// Value implements driver.Valuer for JSONB
func (s Suggestions) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB
func (s *Suggestions) Scan(value interface{}) error {
	if value == nil {
		*s = make(Suggestions, 0)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*s = make(Suggestions, 0)
		return nil
	}

	if len(bytes) == 0 {
		*s = make(Suggestions, 0)
		return nil
	}

	return json.Unmarshal(bytes, s)
}

// CoverageBlock summarizes how much of an expected set of applicable
// items was actually suggested. Advisory only; never used for ranking.
type CoverageBlock struct {
	EligibleSuggested int      `json:"eligible_suggested"`
	EligibleTotal     *int     `json:"eligible_total"`
	Missed            []string `json:"missed,omitempty"`
}

// Value implements driver.Valuer for JSONB
func (c CoverageBlock) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB
func (c *CoverageBlock) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	if len(bytes) == 0 {
		return nil
	}

	return json.Unmarshal(bytes, c)
}

// AccuracyBlock carries ground-truth accuracy counts. The backend has
// no ground truth, so it always leaves this nil.
type AccuracyBlock struct {
	Correct   *int `json:"correct,omitempty"`
	Incorrect *int `json:"incorrect,omitempty"`
}

// ResponseMeta describes where a suggestion response came from
type ResponseMeta struct {
	Model         string `json:"model,omitempty"`
	PromptVersion string `json:"prompt_version,omitempty"`
	RuleVersion   string `json:"rule_version,omitempty"`
	Source        string `json:"source,omitempty"`
}

// Value implements driver.Valuer for JSONB
func (m ResponseMeta) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB
func (m *ResponseMeta) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	if len(bytes) == 0 {
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// SuggestionResponse is the contract both the heuristic engine and the
// external reasoning collaborator produce and the UI consumes.
type SuggestionResponse struct {
	Suggestions []Suggestion   `json:"suggestions"`
	Coverage    *CoverageBlock `json:"coverage,omitempty"`
	Accuracy    *AccuracyBlock `json:"accuracy,omitempty"`
	Meta        *ResponseMeta  `json:"meta,omitempty"`
	RawDebug    interface{}    `json:"raw_debug,omitempty"`
}

// Attachment is a request attachment: a named body of content with a
// declared media type. Only text-typed attachments are scanned.
type Attachment struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Options are the per-request knobs for a suggestion request
type Options struct {
	Department          string  `json:"department,omitempty"`
	HospitalType        string  `json:"hospital_type,omitempty"`
	RecognisedED        bool    `json:"recognised_ed,omitempty"`
	Model               string  `json:"model,omitempty"`
	ConfidenceThreshold float64 `json:"confidence_threshold,omitempty"`
	UseEffectiveDates   bool    `json:"use_effective_dates,omitempty"`
	IncludeDebug        bool    `json:"include_debug,omitempty"`
	RequestTimeoutSec   int     `json:"request_timeout_sec,omitempty"`
}
