package models

import (
	"time"

	"tasbiaat/api/internal/domain"
)

type EntryStatus string

const (
	EntryStatusDraft     EntryStatus = "draft"
	EntryStatusSubmitted EntryStatus = "submitted"
	EntryStatusReviewed  EntryStatus = "reviewed"
)

func (s EntryStatus) Valid() bool {
	switch s {
	case EntryStatusDraft, EntryStatusSubmitted, EntryStatusReviewed:
		return true
	}
	return false
}

// Comment is supervisor or self feedback attached to an entry.
type Comment struct {
	ID        string      `json:"id"`
	ByUserID  string      `json:"by_user_id"`
	Role      domain.Role `json:"role"`
	Text      string      `json:"text"`
	CreatedAt time.Time   `json:"created_at"`
}

// EntryAudit is one embedded audit event on the entry itself, separate from
// the system-wide audit trail.
type EntryAudit struct {
	Action string         `json:"action"`
	By     string         `json:"by"`
	At     time.Time      `json:"at"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// Entry is one Saalik's practice record for one calendar date. MurabiID is
// denormalized from the user at creation time so supervisor queries do not
// need a join through users.
type Entry struct {
	ID            string
	UserID        string
	MurabiID      *string
	Date          time.Time
	LevelAtEntry  int
	Categories    domain.CategoryMap
	ZikrCompleted bool
	ZikrViolated  bool
	Status        EntryStatus
	Comments      []Comment
	Audit         []EntryAudit
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (e *Entry) AddComment(id, userID string, role domain.Role, text string, at time.Time) {
	e.Comments = append(e.Comments, Comment{
		ID:        id,
		ByUserID:  userID,
		Role:      role,
		Text:      text,
		CreatedAt: at,
	})
}

func (e *Entry) AddAudit(action, by string, at time.Time, meta map[string]any) {
	e.Audit = append(e.Audit, EntryAudit{Action: action, By: by, At: at, Meta: meta})
}
