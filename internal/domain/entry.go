package domain

import "strings"

// CategoryZikr is the one category with structured morning/evening sub-items
// instead of a flat completed flag.
const CategoryZikr = "zikr"

// EntryStalenessDays is how far back a submission may be dated.
const EntryStalenessDays = 7

type ZikrMode string

const (
	ZikrModeAutoRestart      ZikrMode = "auto_restart"
	ZikrModeMurabiControlled ZikrMode = "murabi_controlled"
)

// PracticeSettings carries the per-user knobs that drive the mandatory-Zikr
// and cycle-restart policy.
type PracticeSettings struct {
	ZikrMode                ZikrMode `json:"zikr_mode"`
	ZikrMandatory           bool     `json:"zikr_mandatory,omitempty"`
	AutoRestartOnMissedZikr bool     `json:"auto_restart_on_missed_zikr,omitempty"`
	NotificationsEnabled    bool     `json:"notifications_enabled"`
}

func DefaultSettings() PracticeSettings {
	return PracticeSettings{
		ZikrMode:             ZikrModeAutoRestart,
		NotificationsEnabled: true,
	}
}

type ZikrItem struct {
	Name string `json:"name,omitempty"`
	Done bool   `json:"done"`
}

// Category is one practice category inside a daily entry. Completed is a
// pointer so a missing flag can be told apart from an explicit false.
type Category struct {
	Completed *bool      `json:"completed,omitempty"`
	Morning   []ZikrItem `json:"morning,omitempty"`
	Evening   []ZikrItem `json:"evening,omitempty"`
	Count     *int       `json:"count,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

type CategoryMap map[string]Category

// CategoryName strips the catalog path prefix, e.g. "categories.zikr" → "zikr".
func CategoryName(requiredField string) string {
	return strings.TrimPrefix(requiredField, "categories.")
}

// ValidateCategories checks a submission against the required category paths
// of the user's level. Zikr is validated structurally (its morning/evening
// lists may be empty); every other required category needs an explicit
// completed flag.
func ValidateCategories(categories CategoryMap, requiredFields []string) error {
	for _, field := range requiredFields {
		name := CategoryName(field)
		cat, ok := categories[name]
		if !ok {
			return E(KindValidation, "missing required category: %s", name)
		}
		if name == CategoryZikr {
			continue
		}
		if cat.Completed == nil {
			return E(KindValidation, "category %s must have a completed flag", name)
		}
	}
	return nil
}

// ZikrCompleted reports whether every morning and every evening item is done.
// An empty sub-list is vacuously complete: a level with no morning items
// cannot fail on that half.
func ZikrCompleted(categories CategoryMap) bool {
	zikr := categories[CategoryZikr]
	for _, item := range zikr.Morning {
		if !item.Done {
			return false
		}
	}
	for _, item := range zikr.Evening {
		if !item.Done {
			return false
		}
	}
	return true
}

// CategoryCompleted reports completion for a single category; Zikr uses the
// structured sub-items, everything else the flat flag.
func CategoryCompleted(name string, cat Category) bool {
	if name == CategoryZikr {
		return ZikrCompleted(CategoryMap{CategoryZikr: cat})
	}
	return cat.Completed != nil && *cat.Completed
}

// ZikrMandatory reports whether a missed Zikr counts as a violation for a
// user with the given settings.
func ZikrMandatory(s PracticeSettings) bool {
	switch s.ZikrMode {
	case ZikrModeAutoRestart:
		return true
	case ZikrModeMurabiControlled:
		return s.ZikrMandatory
	default:
		return false
	}
}

// EvaluateZikrPolicy decides whether an incomplete Zikr day constitutes a
// violation and whether that violation forces a cycle restart.
func EvaluateZikrPolicy(s PracticeSettings, zikrCompleted bool) (violated bool, restart bool) {
	if zikrCompleted || !ZikrMandatory(s) {
		return false, false
	}
	switch s.ZikrMode {
	case ZikrModeAutoRestart:
		return true, true
	case ZikrModeMurabiControlled:
		return true, s.AutoRestartOnMissedZikr
	default:
		return false, false
	}
}
