package service

import (
	"context"
	"errors"
	"fmt"

	"autombs-backend/engine"
	"autombs-backend/models"
	"autombs-backend/repository"

	"github.com/google/uuid"
)

// SessionService handles business logic for coding sessions
type SessionService struct {
	sessionRepo *repository.SessionRepository
	turnRepo    *repository.TurnRepository
}

// SessionServiceOption is a functional option for SessionService
type SessionServiceOption func(*SessionService)

// WithSessionRepository sets the session repository
func WithSessionRepository(repo *repository.SessionRepository) SessionServiceOption {
	return func(s *SessionService) {
		s.sessionRepo = repo
	}
}

// WithTurnRepository sets the session turn repository
func WithTurnRepository(repo *repository.TurnRepository) SessionServiceOption {
	return func(s *SessionService) {
		s.turnRepo = repo
	}
}

// NewSessionService creates a new session service
func NewSessionService(opts ...SessionServiceOption) *SessionService {
	s := &SessionService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var ErrSessionNotFound = errors.New("session not found")

// CreateSessionRequest represents a request to create a session
type CreateSessionRequest struct {
	UserID uuid.UUID
	Name   string
}

// CreateSessionResult represents the result of creating a session
type CreateSessionResult struct {
	Session *models.Session
}

// CreateSession creates a new coding session
func (s *SessionService) CreateSession(ctx context.Context, req CreateSessionRequest) (*CreateSessionResult, error) {
	if s.sessionRepo == nil {
		return nil, errors.New("session repository not set")
	}

	session := &models.Session{
		UserID: req.UserID,
		Name:   req.Name,
	}
	if session.Name == "" {
		session.Name = "Untitled session"
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	return &CreateSessionResult{Session: session}, nil
}

// GetSessionRequest represents a request to get a session
type GetSessionRequest struct {
	ID uuid.UUID
}

// GetSessionResult represents the result of getting a session
type GetSessionResult struct {
	Session *models.Session
	Turns   []*models.SessionTurn
}

// GetSession retrieves a session and its ordered turn log
func (s *SessionService) GetSession(ctx context.Context, req GetSessionRequest) (*GetSessionResult, error) {
	if s.sessionRepo == nil {
		return nil, errors.New("session repository not set")
	}
	if s.turnRepo == nil {
		return nil, errors.New("turn repository not set")
	}

	session, err := s.sessionRepo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	turns, err := s.turnRepo.ListBySessionID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	return &GetSessionResult{Session: session, Turns: turns}, nil
}

// ListSessionsRequest represents a request to list sessions
type ListSessionsRequest struct {
	UserID uuid.UUID
	Limit  int
	Offset int
}

// ListSessionsResult represents the result of listing sessions
type ListSessionsResult struct {
	Sessions []*models.Session
}

// ListSessions lists sessions for a user, most recently updated first
func (s *SessionService) ListSessions(ctx context.Context, req ListSessionsRequest) (*ListSessionsResult, error) {
	if s.sessionRepo == nil {
		return nil, errors.New("session repository not set")
	}

	sessions, err := s.sessionRepo.ListByUserID(ctx, req.UserID, req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}

	return &ListSessionsResult{Sessions: sessions}, nil
}

// RenameSessionRequest represents a request to rename a session
type RenameSessionRequest struct {
	ID   uuid.UUID
	Name string
}

// RenameSessionResult represents the result of renaming a session
type RenameSessionResult struct {
	Session *models.Session
}

// RenameSession renames a session
func (s *SessionService) RenameSession(ctx context.Context, req RenameSessionRequest) (*RenameSessionResult, error) {
	if s.sessionRepo == nil {
		return nil, errors.New("session repository not set")
	}

	if _, err := s.sessionRepo.GetByID(ctx, req.ID); err != nil {
		return nil, ErrSessionNotFound
	}

	if err := s.sessionRepo.Rename(ctx, req.ID, req.Name); err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	return &RenameSessionResult{Session: session}, nil
}

// DuplicateSessionRequest represents a request to duplicate a session
type DuplicateSessionRequest struct {
	ID uuid.UUID
}

// DuplicateSessionResult represents the result of duplicating a session
type DuplicateSessionResult struct {
	Session *models.Session
}

// DuplicateSession copies a session and its entire turn log
func (s *SessionService) DuplicateSession(ctx context.Context, req DuplicateSessionRequest) (*DuplicateSessionResult, error) {
	if s.sessionRepo == nil {
		return nil, errors.New("session repository not set")
	}
	if s.turnRepo == nil {
		return nil, errors.New("turn repository not set")
	}

	original, err := s.sessionRepo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	copySession := &models.Session{
		UserID: original.UserID,
		Name:   original.Name + " (copy)",
	}
	if err := s.sessionRepo.Create(ctx, copySession); err != nil {
		return nil, err
	}

	turns, err := s.turnRepo.ListBySessionID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	// Re-insert in original order so created_at ordering is preserved
	for _, turn := range turns {
		copyTurn := &models.SessionTurn{
			SessionID:   copySession.ID,
			NoteText:    turn.NoteText,
			Suggestions: turn.Suggestions,
			Coverage:    turn.Coverage,
			Meta:        turn.Meta,
		}
		if err := s.turnRepo.Create(ctx, copyTurn); err != nil {
			return nil, fmt.Errorf("failed to copy session turn: %w", err)
		}
	}

	return &DuplicateSessionResult{Session: copySession}, nil
}

// DeleteSessionRequest represents a request to delete a session
type DeleteSessionRequest struct {
	ID uuid.UUID
}

// DeleteSessionResult represents the result of deleting a session
type DeleteSessionResult struct{}

// DeleteSession soft-deletes a session
func (s *SessionService) DeleteSession(ctx context.Context, req DeleteSessionRequest) (*DeleteSessionResult, error) {
	if s.sessionRepo == nil {
		return nil, errors.New("session repository not set")
	}

	if _, err := s.sessionRepo.GetByID(ctx, req.ID); err != nil {
		return nil, ErrSessionNotFound
	}

	if err := s.sessionRepo.Delete(ctx, req.ID); err != nil {
		return nil, err
	}

	return &DeleteSessionResult{}, nil
}

// SessionExport is the portable snapshot of a session and its turns
type SessionExport struct {
	Session *models.Session       `json:"session"`
	Turns   []*models.SessionTurn `json:"turns"`
}

// ExportSessionRequest represents a request to export a session
type ExportSessionRequest struct {
	ID uuid.UUID
}

// ExportSessionResult represents the result of exporting a session
type ExportSessionResult struct {
	Export *SessionExport
}

// ExportSession builds a portable snapshot of the session
func (s *SessionService) ExportSession(ctx context.Context, req ExportSessionRequest) (*ExportSessionResult, error) {
	result, err := s.GetSession(ctx, GetSessionRequest{ID: req.ID})
	if err != nil {
		return nil, err
	}

	return &ExportSessionResult{
		Export: &SessionExport{
			Session: result.Session,
			Turns:   result.Turns,
		},
	}, nil
}

// ComposeHighlightsRequest represents a request to render note highlights
type ComposeHighlightsRequest struct {
	ID       uuid.UUID
	NoteText string
}

// ComposeHighlightsResult represents the rendered note segments
type ComposeHighlightsResult struct {
	Segments []models.Segment
}

// ComposeHighlights splits the note into plain and highlighted segments
// using the evidence accumulated across every turn of the session
func (s *SessionService) ComposeHighlights(ctx context.Context, req ComposeHighlightsRequest) (*ComposeHighlightsResult, error) {
	result, err := s.GetSession(ctx, GetSessionRequest{ID: req.ID})
	if err != nil {
		return nil, err
	}

	var spans []models.EvidenceSpan
	for _, turn := range result.Turns {
		for _, suggestion := range turn.Suggestions {
			spans = append(spans, suggestion.Evidence...)
		}
	}

	return &ComposeHighlightsResult{
		Segments: engine.Compose(req.NoteText, spans),
	}, nil
}
