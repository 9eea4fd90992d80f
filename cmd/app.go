package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"queuepanel/app/handler"
	"queuepanel/internal/jobs"
	"queuepanel/internal/render"
	"queuepanel/internal/session"
	"queuepanel/pkg/config"
	"queuepanel/pkg/logger"
	"queuepanel/pkg/provider"
	asynqqueue "queuepanel/pkg/queue/asynq"
	mysqlstore "queuepanel/pkg/store/mysql"
	redisstore "queuepanel/pkg/store/redis"

	"github.com/gin-gonic/gin"
)

// Application manages the lifecycle of the entire application
type Application struct {
	// Infrastructure components
	config      *config.Config
	datastore   *mysqlstore.Datastore
	redisClient *redisstore.RedisClient
	intentQueue *asynqqueue.Manager

	// Providers
	providers *provider.PanelProviders

	// Panel
	session  *session.Session
	renderer *render.Renderer

	// Handler layer
	panelHandler *handler.PanelHandler

	// HTTP server
	httpServer *http.Server
	ginEngine  *gin.Engine

	// Background tasks
	jobsManager *jobs.Manager

	// Context management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Background task cleanup functions
	cleanupFuncs []func()
}

// NewApplication creates a new Application instance
func NewApplication() *Application {
	ctx, cancel := context.WithCancel(context.Background())
	return &Application{
		ctx:          ctx,
		cancel:       cancel,
		cleanupFuncs: make([]func(), 0),
	}
}

// Initialize initializes all application components
func (app *Application) Initialize() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"Configuration", app.initConfig},
		{"Logging", app.initLogger},
		{"MySQL", app.initMySQL},
		{"Redis", app.initRedis},
		{"Intent Queue", app.initIntentQueue},
		{"Providers", app.initProviders},
		{"Panel Session", app.initSession},
		{"Background Tasks", app.initJobs},
		{"Handler Layer", app.initHandlers},
		{"HTTP Server", app.initHTTPServer},
	}

	for _, step := range steps {
		logger.InfoCtx(app.ctx, "Initializing %s...", step.name)
		if err := step.fn(); err != nil {
			return fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
		logger.InfoCtx(app.ctx, "%s initialized successfully", step.name)
	}

	logger.InfoCtx(app.ctx, "Application initialization completed")
	return nil
}

// Start starts all application components
func (app *Application) Start() error {
	logger.InfoCtx(app.ctx, "Starting application components...")

	// 1. Mount the panel: restore preferences and load the first page
	if err := app.session.Mount(app.ctx); err != nil {
		// the periodic refresh retries, the error stays visible in the view
		logger.WarnCtx(app.ctx, "Initial refresh failed: %v", err)
	}

	// 2. Start the event pump
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		if err := app.session.Run(app.ctx); err != nil {
			logger.ErrorCtx(app.ctx, "Event pump stopped: %v", err)
		}
	}()

	// 3. Start the intent forwarder
	if app.intentQueue != nil {
		if err := app.intentQueue.Start(); err != nil {
			return fmt.Errorf("failed to start intent queue: %w", err)
		}
	}

	// 4. Start background tasks
	if app.jobsManager != nil {
		logger.InfoCtx(app.ctx, "Starting background task manager")
		app.jobsManager.Start()
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			app.jobsManager.Wait()
		}()
	}

	// 5. Start HTTP server
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		logger.InfoCtx(app.ctx, "HTTP server listening on: %s", app.httpServer.Addr)
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalCtx(app.ctx, "HTTP server error: %v", err)
		}
	}()

	logger.InfoCtx(app.ctx, "All components started successfully")
	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown(timeout time.Duration) error {
	logger.InfoCtx(app.ctx, "Starting graceful shutdown (timeout: %v)...", timeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// 1. Stop accepting renderer requests
	logger.InfoCtx(app.ctx, "Shutting down HTTP server...")
	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.ErrorCtx(app.ctx, "HTTP server shutdown error: %v", err)
	}

	// 2. Unmount the panel while the preference store is still open
	if err := app.session.Unmount(shutdownCtx); err != nil {
		logger.ErrorCtx(app.ctx, "Panel unmount error: %v", err)
	}

	// 3. Cancel all background tasks
	logger.InfoCtx(app.ctx, "Canceling background tasks...")
	app.cancel()
	if app.jobsManager != nil {
		app.jobsManager.Stop()
	}

	// 4. Wait for all background tasks to complete
	logger.InfoCtx(app.ctx, "Waiting for background tasks to complete...")
	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.InfoCtx(app.ctx, "All background tasks completed")
	case <-shutdownCtx.Done():
		logger.WarnCtx(app.ctx, "Shutdown timeout, some tasks may not have completed")
	}

	// 5. Execute all cleanup functions (in reverse registration order)
	logger.InfoCtx(app.ctx, "Executing cleanup functions...")
	for i := len(app.cleanupFuncs) - 1; i >= 0; i-- {
		app.cleanupFuncs[i]()
	}

	logger.Sync()

	logger.InfoCtx(app.ctx, "Graceful shutdown completed")
	return nil
}

// registerCleanup registers cleanup function
func (app *Application) registerCleanup(cleanup func()) {
	app.cleanupFuncs = append(app.cleanupFuncs, cleanup)
}
