package models

import "time"

// Level is one record of the static level catalog, seeded at initialization.
type Level struct {
	Level          int
	NameUrdu       string
	Description    string
	RequiredFields []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
