package repository

import (
	"context"

	"autombs-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository handles database operations for coding sessions
type SessionRepository struct {
	db *pgxpool.Pool
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create creates a new session
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (user_id, name)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(
		ctx, query,
		session.UserID,
		session.Name,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)

	return err
}

// GetByID retrieves a session by ID
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	session := &models.Session{}
	query := `
		SELECT id, user_id, name, created_at, updated_at
		FROM sessions
		WHERE id = $1 AND deleted_at IS NULL`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.Name,
		&session.CreatedAt,
		&session.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	return session, nil
}

// ListByUserID retrieves all live sessions for a user
func (r *SessionRepository) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Session, error) {
	query := `
		SELECT id, user_id, name, created_at, updated_at
		FROM sessions
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY updated_at DESC`

	args := []interface{}{userID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
		if offset > 0 {
			query += " OFFSET $3"
			args = append(args, offset)
		}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session := &models.Session{}
		err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.Name,
			&session.CreatedAt,
			&session.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// Rename updates a session's name
func (r *SessionRepository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	query := `
		UPDATE sessions SET
			name = $2,
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	_, err := r.db.Exec(ctx, query, id, name)
	return err
}

// Touch bumps a session's updated_at, used when a turn is appended
func (r *SessionRepository) Touch(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE sessions SET updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

// Delete soft-deletes a session; its turns are kept for export
func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE sessions SET deleted_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}
