package repository

import (
	"context"

	"autombs-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TurnRepository handles database operations for session turns. Turns
// are append-only: they are inserted and read in creation order, never
// updated.
type TurnRepository struct {
	db *pgxpool.Pool
}

// NewTurnRepository creates a new turn repository
func NewTurnRepository(db *pgxpool.Pool) *TurnRepository {
	return &TurnRepository{db: db}
}

// Create appends a turn to a session's log
func (r *TurnRepository) Create(ctx context.Context, turn *models.SessionTurn) error {
	query := `
		INSERT INTO session_turns (session_id, note_text, suggestions, coverage, meta)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRow(
		ctx, query,
		turn.SessionID,
		turn.NoteText,
		turn.Suggestions,
		turn.Coverage,
		turn.Meta,
	).Scan(&turn.ID, &turn.CreatedAt)

	return err
}

// ListBySessionID retrieves a session's turns in creation order
func (r *TurnRepository) ListBySessionID(ctx context.Context, sessionID uuid.UUID) ([]*models.SessionTurn, error) {
	query := `
		SELECT id, session_id, note_text, suggestions, coverage, meta, created_at
		FROM session_turns
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []*models.SessionTurn
	for rows.Next() {
		turn := &models.SessionTurn{}
		err := rows.Scan(
			&turn.ID,
			&turn.SessionID,
			&turn.NoteText,
			&turn.Suggestions,
			&turn.Coverage,
			&turn.Meta,
			&turn.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if turn.Suggestions == nil {
			turn.Suggestions = make(models.Suggestions, 0)
		}
		turns = append(turns, turn)
	}

	return turns, rows.Err()
}
