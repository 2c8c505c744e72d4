package models

import (
	"time"

	"github.com/google/uuid"
)

// Session represents a coding session: one clinical note worked on over
// one or more suggestion turns.
type Session struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// SessionTurn is one suggestion request/response recorded against a
// session. Turns form an append-only log ordered by creation time;
// their accumulated evidence drives note highlighting.
type SessionTurn struct {
	ID          uuid.UUID     `json:"id"`
	SessionID   uuid.UUID     `json:"session_id"`
	NoteText    string        `json:"note_text"`
	Suggestions Suggestions   `json:"suggestions"`
	Coverage    CoverageBlock `json:"coverage"`
	Meta        ResponseMeta  `json:"meta"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Segment is a slice of the note text, rendered plain or highlighted.
// Concatenated in order, the segments of a composition reproduce the
// note for non-overlapping evidence.
type Segment struct {
	Text        string `json:"text"`
	Highlighted bool   `json:"highlighted"`
}
