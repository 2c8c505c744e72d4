package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"autombs-backend/engine"
	"autombs-backend/kb"
	"autombs-backend/models"
	"autombs-backend/repository"

	"github.com/google/uuid"
)

// Suggestion modes. Heuristic runs the local rule catalog; reasoning
// sends gated KB candidates to the external model.
const (
	ModeHeuristic = "heuristic"
	ModeReasoning = "reasoning"
)

// SuggestionService turns a clinical note into billing code suggestions
type SuggestionService struct {
	sessionRepo *repository.SessionRepository
	turnRepo    *repository.TurnRepository
	reasonSvc   *ReasonService
	kbItems     []models.KBItem
	mode        string
}

// SuggestionServiceOption is a functional option for SuggestionService
type SuggestionServiceOption func(*SuggestionService)

// SuggestWithSessionRepository sets the session repository
func SuggestWithSessionRepository(repo *repository.SessionRepository) SuggestionServiceOption {
	return func(s *SuggestionService) {
		s.sessionRepo = repo
	}
}

// SuggestWithTurnRepository sets the session turn repository
func SuggestWithTurnRepository(repo *repository.TurnRepository) SuggestionServiceOption {
	return func(s *SuggestionService) {
		s.turnRepo = repo
	}
}

// SuggestWithReasonService sets the reasoning service
func SuggestWithReasonService(svc *ReasonService) SuggestionServiceOption {
	return func(s *SuggestionService) {
		s.reasonSvc = svc
	}
}

// SuggestWithKBItems sets the knowledge-base items used for gating
func SuggestWithKBItems(items []models.KBItem) SuggestionServiceOption {
	return func(s *SuggestionService) {
		s.kbItems = items
	}
}

// SuggestWithMode sets the suggestion mode
func SuggestWithMode(mode string) SuggestionServiceOption {
	return func(s *SuggestionService) {
		s.mode = mode
	}
}

// NewSuggestionService creates a new suggestion service
func NewSuggestionService(opts ...SuggestionServiceOption) *SuggestionService {
	s := &SuggestionService{}
	for _, opt := range opts {
		opt(s)
	}
	if s.mode == "" {
		s.mode = ModeHeuristic
	}
	return s
}

// SuggestRequest represents a request to analyse a clinical note
type SuggestRequest struct {
	NoteText    string
	Attachments []models.Attachment
	Options     models.Options
	SessionID   *uuid.UUID
}

// SuggestResult represents the result of analysing a clinical note
type SuggestResult struct {
	Response *models.SuggestionResponse
}

// Suggest analyses the note, estimates coverage, and optionally appends
// the result to a session as a new turn
func (s *SuggestionService) Suggest(ctx context.Context, req SuggestRequest) (*SuggestResult, error) {
	doc := engine.Document{
		NoteText:    req.NoteText,
		Attachments: req.Attachments,
	}

	facts := kb.ExtractFacts(doc.ScannedText(), req.Options)

	cfg := kb.DefaultConfig()
	cfg.UseEffectiveDates = req.Options.UseEffectiveDates

	var passlist []kb.PassItem
	if len(s.kbItems) > 0 {
		passlist = kb.Gate(s.kbItems, facts, cfg)
	}

	var resp *models.SuggestionResponse
	if s.mode == ModeReasoning && s.reasonSvc != nil {
		resp = s.suggestByReasoning(ctx, req, facts, passlist)
	} else {
		resp = s.suggestByRules(doc, req.Options, passlist)
	}

	// No local ground truth, so accuracy stays absent
	resp.Accuracy = nil

	if req.SessionID != nil {
		if err := s.appendTurn(ctx, *req.SessionID, req.NoteText, resp); err != nil {
			return nil, err
		}
	}

	return &SuggestResult{Response: resp}, nil
}

// suggestByRules runs the local rule catalog and flags suggestions the
// knowledge-base gates would not have kept
func (s *SuggestionService) suggestByRules(doc engine.Document, opts models.Options, passlist []kb.PassItem) *models.SuggestionResponse {
	suggestions := engine.Suggest(doc)

	if len(passlist) > 0 {
		passed := make(map[string]bool, len(passlist))
		for _, p := range passlist {
			passed[p.ItemNumber] = true
		}
		for i := range suggestions {
			if !passed[suggestions[i].Item] {
				suggestions[i].Warnings = append(suggestions[i].Warnings,
					fmt.Sprintf("item %s did not pass knowledge-base gates for this note", suggestions[i].Item))
			}
		}
	}

	coverage := engine.Estimate(suggestions, engine.DefaultExpectedMinimum)

	return &models.SuggestionResponse{
		Suggestions: suggestions,
		Coverage:    &coverage,
		Meta: &models.ResponseMeta{
			RuleVersion: engine.RuleVersion,
			Source:      ModeHeuristic,
		},
	}
}

// suggestByReasoning sends gated candidates to the external model. A
// transport or parse failure degrades to an empty suggestion list with
// debug guidance; it is never fatal.
func (s *SuggestionService) suggestByReasoning(ctx context.Context, req SuggestRequest, facts kb.Facts, passlist []kb.PassItem) *models.SuggestionResponse {
	result, err := s.reasonSvc.Reason(ctx, ReasonRequest{
		NoteText:   req.NoteText,
		Facts:      facts,
		Candidates: passlist,
		Options:    req.Options,
	})
	if err != nil {
		log.Printf("Warning: reasoning call failed: %v", err)
		coverage := engine.EstimateWithTotal(nil, len(passlist))
		return &models.SuggestionResponse{
			Suggestions: []models.Suggestion{},
			Coverage:    &coverage,
			Meta: &models.ResponseMeta{
				Model:         req.Options.Model,
				PromptVersion: reasonPromptVer,
				Source:        ModeReasoning,
			},
			RawDebug: map[string]interface{}{
				"error": fmt.Sprintf("reasoning call failed: %v", err),
				"hint": []string{
					"Check that GEMINI_API_KEY and the model name are configured correctly",
					"Raise options.request_timeout_sec if the model needs more time",
					"Check the server's allowed origins if calling from a browser",
				},
			},
		}
	}

	suggestions := result.Suggestions
	engine.AnnotateConflicts(suggestions)

	// The gated candidate list is the authoritative denominator here
	coverage := engine.EstimateWithTotal(suggestions, len(passlist))

	resp := &models.SuggestionResponse{
		Suggestions: suggestions,
		Coverage:    &coverage,
		Meta: &models.ResponseMeta{
			Model:         result.Model,
			PromptVersion: reasonPromptVer,
			Source:        ModeReasoning,
		},
	}
	if req.Options.IncludeDebug {
		resp.RawDebug = result.RawDecisions
	}
	return resp
}

// appendTurn records the exchange on the session's ordered turn log
func (s *SuggestionService) appendTurn(ctx context.Context, sessionID uuid.UUID, noteText string, resp *models.SuggestionResponse) error {
	if s.sessionRepo == nil {
		return errors.New("session repository not set")
	}
	if s.turnRepo == nil {
		return errors.New("turn repository not set")
	}

	if _, err := s.sessionRepo.GetByID(ctx, sessionID); err != nil {
		return ErrSessionNotFound
	}

	turn := &models.SessionTurn{
		SessionID:   sessionID,
		NoteText:    noteText,
		Suggestions: resp.Suggestions,
	}
	if resp.Coverage != nil {
		turn.Coverage = *resp.Coverage
	}
	if resp.Meta != nil {
		turn.Meta = *resp.Meta
	}

	if err := s.turnRepo.Create(ctx, turn); err != nil {
		return fmt.Errorf("failed to append session turn: %w", err)
	}

	if err := s.sessionRepo.Touch(ctx, sessionID); err != nil {
		log.Printf("Warning: failed to touch session %s: %v", sessionID, err)
	}

	return nil
}
