package interfaces

import (
	"context"
	"errors"
	"time"

	"queuepanel/internal/ordering"
)

// ErrPreferencesNotFound returned by Load when a panel has never saved preferences
var ErrPreferencesNotFound = errors.New("preferences not found")

// Preferences per-panel view preferences restored on mount
type Preferences struct {
	Direction ordering.Direction `json:"sort_direction"`
	Since     *time.Time         `json:"since,omitempty"`
	Until     *time.Time         `json:"until,omitempty"`
	Selection []string           `json:"selection,omitempty"` // Selected pending item ids
	UpdatedAt time.Time          `json:"updated_at"`
}

// PreferenceStore preference storage interface
// Supports multiple storages like Redis, in-memory, etc.
type PreferenceStore interface {
	// Load loads preferences, returns ErrPreferencesNotFound when none are stored
	Load(ctx context.Context, panelID string) (*Preferences, error)

	// Save saves preferences
	Save(ctx context.Context, panelID string, prefs *Preferences) error
}
