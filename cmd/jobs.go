package main

import (
	"context"
	"time"

	"queuepanel/internal/coordinator"
	"queuepanel/internal/jobs"
	"queuepanel/pkg/logger"
	redisstore "queuepanel/pkg/store/redis"
)

const preferenceCheckpointInterval = time.Minute

func (app *Application) initJobs() error {
	manager := jobs.NewManager(app.ctx)
	// the first refresh happens in Mount
	manager.DelayFirstRun()

	coord := app.session.Coordinator()

	// Periodic refresh: respects the interaction lock window and yields to a
	// refresh already in flight
	manager.Register(jobs.NewJob("panel-refresh", app.config.Sync.RefreshInterval, func(ctx context.Context) error {
		return coord.Refresh(app.session.Context(ctx), coordinator.RefreshOptions{SkipIfBusy: true})
	}))

	// Preference checkpoint between mount and unmount. Replicas serving the
	// same panel take turns through a Redis lock.
	if app.providers.Preferences != nil && app.redisClient != nil {
		lock := redisstore.NewLock(app.redisClient, "checkpoint:"+app.session.PanelID(), preferenceCheckpointInterval)
		manager.Register(jobs.NewJob("preference-checkpoint", preferenceCheckpointInterval, func(ctx context.Context) error {
			ctx = app.session.Context(ctx)
			saved, err := lock.WithLock(ctx, app.session.Persist)
			if err == nil && !saved {
				logger.DebugCtx(ctx, "preference checkpoint skipped, another instance holds the lock")
			}
			return err
		}))
	}

	logger.InfoCtx(app.ctx, "Registered background jobs: %v", manager.Jobs())
	app.jobsManager = manager
	return nil
}
