package engine

import (
	"strings"

	"autombs-backend/models"
)

// Document is one logical body of text to scan: the primary note plus
// zero or more attachments. It is built per request and not retained.
type Document struct {
	NoteText    string
	Attachments []models.Attachment
}

// ScannedText returns the text all rule predicates run against: the
// note text followed by the content of every text-typed attachment,
// each appended on its own line, attachment order preserved.
// Attachments with a non-text declared type (images etc.) are carried
// as metadata only and never scanned.
func (d Document) ScannedText() string {
	parts := []string{d.NoteText}
	for _, att := range d.Attachments {
		if !strings.HasPrefix(strings.ToLower(att.Type), "text") {
			continue
		}
		parts = append(parts, att.Content)
	}
	// The note text alone stays byte-identical so evidence offsets in
	// the scanned text line up with the note for single-document scans.
	return strings.Join(parts, "\n")
}
