// Package session wires one panel's coordinator to its event stream, intent sink
// and preference store. Sessions are constructed explicitly; nothing is global.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"queuepanel/internal/coordinator"
	"queuepanel/internal/model"
	"queuepanel/internal/pagination"
	"queuepanel/pkg/interfaces"
	"queuepanel/pkg/logger"

	"github.com/google/uuid"
)

var (
	// ErrItemNotFound the item is not in the live queue
	ErrItemNotFound = errors.New("item not found")

	// ErrNoIntentSink mutations are disabled because no intent sink is configured
	ErrNoIntentSink = errors.New("intent sink not configured")
)

// Deps the collaborators of a session. Events and Preferences are optional.
type Deps struct {
	History     interfaces.HistorySource
	Snapshots   interfaces.SnapshotSource
	Events      interfaces.EventSource
	Intents     interfaces.IntentSink
	Preferences interfaces.PreferenceStore
}

// Options session options
type Options struct {
	PanelID    string
	Params     pagination.Params
	LockWindow time.Duration
	Now        func() time.Time
	NewID      func() string // intent id generator
}

// Session is one mounted panel
type Session struct {
	id      string
	panelID string
	coord   *coordinator.Coordinator
	events  interfaces.EventSource
	intents interfaces.IntentSink
	prefs   interfaces.PreferenceStore
	now     func() time.Time
	newID   func() string

	mu       sync.Mutex
	mounted  bool
	stopPump context.CancelFunc
	pumpDone chan struct{}
}

// New creates a session
func New(deps Deps, opts Options) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.PanelID == "" {
		opts.PanelID = "default"
	}
	return &Session{
		id:      uuid.NewString(),
		panelID: opts.PanelID,
		coord: coordinator.New(deps.History, deps.Snapshots, coordinator.Options{
			Params:     opts.Params,
			LockWindow: opts.LockWindow,
			Now:        opts.Now,
		}),
		events:  deps.Events,
		intents: deps.Intents,
		prefs:   deps.Preferences,
		now:     opts.Now,
		newID:   opts.NewID,
	}
}

// ID the session id carried in log lines
func (s *Session) ID() string { return s.id }

// PanelID the preference key of the panel
func (s *Session) PanelID() string { return s.panelID }

// Coordinator the session's coordinator
func (s *Session) Coordinator() *coordinator.Coordinator { return s.coord }

// Context returns ctx tagged with the session id
func (s *Session) Context(ctx context.Context) context.Context {
	return logger.WithSession(ctx, s.id)
}

// Mount restores the stored preferences and performs the first forced refresh.
// A refresh failure is returned but leaves the session mounted; the error is also
// visible in the view.
func (s *Session) Mount(ctx context.Context) error {
	ctx = s.Context(ctx)

	s.mu.Lock()
	if s.mounted {
		s.mu.Unlock()
		return nil
	}
	s.mounted = true
	s.mu.Unlock()

	opts := coordinator.RefreshOptions{Force: true}
	if prefs := s.loadPreferences(ctx); prefs != nil {
		params := s.coord.Params()
		if prefs.Direction.Valid() {
			params.Direction = prefs.Direction
		}
		params.Since, params.Until = prefs.Since, prefs.Until
		opts.Params = &params
		s.coord.Select(prefs.Selection...)
	}

	logger.InfoCtx(ctx, "mounting panel %s", s.panelID)
	return s.coord.Refresh(ctx, opts)
}

func (s *Session) loadPreferences(ctx context.Context) *interfaces.Preferences {
	if s.prefs == nil {
		return nil
	}
	prefs, err := s.prefs.Load(ctx, s.panelID)
	if err != nil {
		if !errors.Is(err, interfaces.ErrPreferencesNotFound) {
			logger.WarnCtx(ctx, "failed to load preferences: %v", err)
		}
		return nil
	}
	return prefs
}

// Unmount stops the event pump and persists the preferences
func (s *Session) Unmount(ctx context.Context) error {
	ctx = s.Context(ctx)

	s.mu.Lock()
	stop, done := s.stopPump, s.pumpDone
	s.stopPump, s.pumpDone = nil, nil
	s.mounted = false
	s.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}

	if err := s.Persist(ctx); err != nil {
		return err
	}
	logger.InfoCtx(ctx, "panel %s unmounted", s.panelID)
	return nil
}

// Persist saves the current sort direction, date range and selection
func (s *Session) Persist(ctx context.Context) error {
	if s.prefs == nil {
		return nil
	}
	params := s.coord.Params()
	prefs := &interfaces.Preferences{
		Direction: params.Direction,
		Since:     params.Since,
		Until:     params.Until,
		Selection: s.coord.Selection(),
	}
	if err := s.prefs.Save(ctx, s.panelID, prefs); err != nil {
		return fmt.Errorf("failed to persist preferences: %w", err)
	}
	return nil
}

// Run pumps lifecycle events into the coordinator until ctx ends, Unmount is
// called, or the stream closes. Without an event source it returns immediately.
func (s *Session) Run(ctx context.Context) error {
	if s.events == nil {
		return nil
	}
	ctx, cancel := context.WithCancel(s.Context(ctx))
	done := make(chan struct{})
	defer close(done)
	defer cancel()

	s.mu.Lock()
	if s.stopPump != nil {
		s.mu.Unlock()
		return fmt.Errorf("event pump already running")
	}
	s.stopPump, s.pumpDone = cancel, done
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.pumpDone == done {
			s.stopPump, s.pumpDone = nil, nil
		}
		s.mu.Unlock()
	}()

	events, err := s.events.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}
	logger.InfoCtx(ctx, "event pump started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				logger.InfoCtx(ctx, "event stream closed")
				return nil
			}
			if err := s.coord.HandleEvent(ctx, ev); err != nil {
				logger.WarnCtx(ctx, "failed to handle %s event: %v", ev.Kind, err)
			}
		}
	}
}

// Reorder proposes a new pending order
func (s *Session) Reorder(ctx context.Context, ids []string) error {
	return s.mutate(ctx, model.Intent{Kind: model.IntentReorder, ItemIDs: ids}, func() error {
		s.coord.ApplyLocalOrder(ids)
		return nil
	})
}

// Delete removes pending or persisted items
func (s *Session) Delete(ctx context.Context, ids []string) error {
	return s.mutate(ctx, model.Intent{Kind: model.IntentDelete, ItemIDs: ids}, func() error {
		s.coord.ApplyLocalDelete(ids)
		return nil
	})
}

// DeleteHistory removes history records
func (s *Session) DeleteHistory(ctx context.Context, ids []int64) error {
	return s.mutate(ctx, model.Intent{Kind: model.IntentDeleteHistory, HistoryIDs: ids}, func() error {
		s.coord.RemoveHistory(ids)
		return nil
	})
}

// Rename renames a queue item
func (s *Session) Rename(ctx context.Context, id, text string) error {
	return s.mutate(ctx, model.Intent{Kind: model.IntentRename, ItemIDs: []string{id}, Text: text}, func() error {
		if !s.coord.ApplyLocalRename(id, text) {
			return fmt.Errorf("%w: %s", ErrItemNotFound, id)
		}
		return nil
	})
}

// Pause pauses the remote queue
func (s *Session) Pause(ctx context.Context) error {
	return s.mutate(ctx, model.Intent{Kind: model.IntentPause}, func() error {
		s.coord.ApplyLocalPause(true)
		return nil
	})
}

// Resume resumes the remote queue
func (s *Session) Resume(ctx context.Context) error {
	return s.mutate(ctx, model.Intent{Kind: model.IntentResume}, func() error {
		s.coord.ApplyLocalPause(false)
		return nil
	})
}

// mutate applies the optimistic change, dispatches the intent and refreshes. The
// server state after the refresh wins over the optimistic one.
func (s *Session) mutate(ctx context.Context, intent model.Intent, apply func() error) error {
	ctx = s.Context(ctx)
	if s.intents == nil {
		return ErrNoIntentSink
	}
	if err := apply(); err != nil {
		return err
	}

	intent.ID = s.newID()
	intent.CreatedAt = s.now().UTC()
	dispatchErr := s.intents.Dispatch(ctx, intent)
	if dispatchErr != nil {
		dispatchErr = fmt.Errorf("failed to dispatch %s intent: %w", intent.Kind, dispatchErr)
		logger.WarnCtx(ctx, "%v", dispatchErr)
	} else {
		logger.InfoCtx(ctx, "dispatched %s intent %s", intent.Kind, intent.ID)
	}

	refreshErr := s.coord.Refresh(ctx, coordinator.RefreshOptions{Force: true})
	if dispatchErr != nil {
		s.coord.ReportError(dispatchErr)
		return dispatchErr
	}
	return refreshErr
}
