package models

import "time"

// AuditRecord is one append-only row of the system audit trail: who did what
// to what, and what changed.
type AuditRecord struct {
	ID           string
	ActorID      string
	Action       string
	ResourceType string
	ResourceID   *string
	OldValues    map[string]any
	NewValues    map[string]any
	Metadata     map[string]any
	IPAddress    string
	UserAgent    string
	Timestamp    time.Time
}

// AuditFilter narrows read-side audit queries.
type AuditFilter struct {
	ActorID      string
	Action       string
	ResourceType string
	ResourceID   string
	Since        *time.Time
	Until        *time.Time
	Limit        int
	Offset       int
}

// ActivitySummary aggregates audit rows over a trailing window.
type ActivitySummary struct {
	TotalActivities   int            `json:"total_activities"`
	ActionBreakdown   map[string]int `json:"action_breakdown"`
	ResourceBreakdown map[string]int `json:"resource_breakdown,omitempty"`
	PeriodDays        int            `json:"period_days"`
}
