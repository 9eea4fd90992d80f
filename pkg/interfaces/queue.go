package interfaces

import (
	"context"

	"queuepanel/internal/model"
	"queuepanel/internal/pagination"
)

// HistorySource history page provider
// Supports multiple implementations like the remote REST API, direct database access, etc.
type HistorySource interface {
	// FetchPage fetches one page of history
	// cursor: params of the walk plus either a continuation token or the
	// identity/ordering value of the last record already received
	FetchPage(ctx context.Context, cursor pagination.Cursor) (*model.Page, error)
}

// SnapshotSource live queue provider
type SnapshotSource interface {
	// FetchSnapshot fetches running, pending and persisted items with per-item progress
	FetchSnapshot(ctx context.Context) (*model.LiveSnapshot, error)
}

// EventSource push-style lifecycle event provider
type EventSource interface {
	// Subscribe starts streaming events. The channel is closed when ctx ends or the
	// stream terminates.
	Subscribe(ctx context.Context) (<-chan model.LifecycleEvent, error)
}

// IntentSink receives fire-and-forget mutation intents
type IntentSink interface {
	// Dispatch hands the intent over; completion is observed through a later refresh
	Dispatch(ctx context.Context, intent model.Intent) error
}

// QueueProvider a remote queue that serves history and live state together
type QueueProvider interface {
	HistorySource
	SnapshotSource
}
