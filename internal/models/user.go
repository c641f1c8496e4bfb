package models

import (
	"time"

	"tasbiaat/api/internal/domain"
)

// User is an account anywhere in the supervision chain. Level, cycle and
// settings fields are meaningful only for Saalik users; the parent references
// are weak upward links, never ownership.
type User struct {
	ID             string
	Name           string
	Phone          string
	Email          *string
	PasswordHash   []byte
	Role           domain.Role
	Region         *string
	MurabiID       *string
	MasoolID       *string
	SheikhID       *string
	Level          int
	LevelStartDate *time.Time
	CycleDays      int
	Settings       domain.PracticeSettings
	IsActive       bool
	CreatedBy      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Session is the server-side record backing a JWT, enabling revocation. A
// session is valid iff it is active and not yet expired.
type Session struct {
	ID           string
	UserID       string
	TokenID      string
	DeviceName   string
	IPAddress    string
	UserAgent    string
	IsActive     bool
	LastActivity time.Time
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

func (s Session) Valid(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}
