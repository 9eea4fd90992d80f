package main

import (
	"fmt"
	"net/http"

	"queuepanel/app/handler"
	"queuepanel/app/router"
	"queuepanel/internal/ordering"
	"queuepanel/internal/pagination"
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

// initConfig initializes configuration
func (app *Application) initConfig() error {
	if err := config.Init(); err != nil {
		return err
	}
	app.config = config.GlobalConfig
	return nil
}

// initLogger initializes logging
func (app *Application) initLogger() error {
	if err := logger.Init(); err != nil {
		return err
	}
	app.registerCleanup(func() {
		logger.Sync()
	})
	return nil
}

// initMySQL connects to the queue database when it is the history source
func (app *Application) initMySQL() error {
	if app.config.Providers.History != "mysql" {
		logger.InfoCtx(app.ctx, "History provider is %s, skipping MySQL", app.config.Providers.History)
		return nil
	}

	ds, err := mysqlstore.NewDatastore(mysqlstore.DSN(app.config.MySQL))
	if err != nil {
		return err
	}

	app.datastore = ds
	app.registerCleanup(func() {
		ds.Close()
		logger.InfoCtx(app.ctx, "MySQL connection has been closed")
	})
	return nil
}

// initRedis initializes Redis for preferences
func (app *Application) initRedis() error {
	if app.config.Providers.Preferences != "redis" {
		logger.InfoCtx(app.ctx, "Preference provider is %s, skipping Redis", app.config.Providers.Preferences)
		return nil
	}

	client, err := redisstore.NewRedisClient(app.config)
	if err != nil {
		return err
	}

	app.redisClient = client
	app.registerCleanup(func() {
		client.Close()
		logger.InfoCtx(app.ctx, "Redis connection has been closed")
	})
	return nil
}

// initIntentQueue creates the asynq intent queue when intents are buffered
func (app *Application) initIntentQueue() error {
	if app.config.Providers.Intents != "asynq" {
		return nil
	}

	manager, err := asynqqueue.NewManager(app.config)
	if err != nil {
		return err
	}

	app.intentQueue = manager
	app.registerCleanup(func() {
		manager.Stop()
		manager.Close()
		logger.InfoCtx(app.ctx, "Intent queue has been closed")
	})
	return nil
}

// initProviders initializes the panel providers
func (app *Application) initProviders() error {
	factory := provider.NewProviderFactory(app.config, provider.Infrastructure{
		Redis:     app.redisClient,
		Datastore: app.datastore,
		Queue:     app.intentQueue,
	})

	providers, err := factory.CreatePanelProviders()
	if err != nil {
		return err
	}
	app.providers = providers

	// queued intents end up at the remote queue API
	if app.intentQueue != nil {
		app.intentQueue.ForwardTo(providers.Remote)
	}

	logger.InfoCtx(app.ctx, "Providers: history=%s, events=%s, intents=%s, preferences=%s",
		app.config.Providers.History, app.config.Providers.Events,
		app.config.Providers.Intents, app.config.Providers.Preferences)
	return nil
}

// initSession creates the panel session
func (app *Application) initSession() error {
	syncCfg := app.config.Sync
	params := pagination.Params{
		SortField: syncCfg.SortField,
		Direction: ordering.ParseDirection(syncCfg.Direction),
		Limit:     syncCfg.PageSize,
	}

	app.session = session.New(session.Deps{
		History:     app.providers.History,
		Snapshots:   app.providers.Snapshots,
		Events:      app.providers.Events,
		Intents:     app.providers.Intents,
		Preferences: app.providers.Preferences,
	}, session.Options{
		PanelID:    syncCfg.PanelID,
		Params:     params,
		LockWindow: syncCfg.LockWindow,
	})

	logger.InfoCtx(app.session.Context(app.ctx), "Panel %s session created", app.session.PanelID())
	return nil
}

// initHandlers initializes handler layer
func (app *Application) initHandlers() error {
	// attached before mount so the renderer sees the first page
	app.renderer = render.New(app.config.Sync.RowHeight, app.config.Sync.ViewportHeight)
	unsubscribe := app.renderer.Attach(app.session.Coordinator())
	app.registerCleanup(unsubscribe)

	app.panelHandler = handler.NewPanelHandler(app.session, app.renderer)
	return nil
}

// initHTTPServer initializes HTTP server
func (app *Application) initHTTPServer() error {
	r := router.NewRouter(app.panelHandler, app.config.Server.APIKey)

	if app.config.Server.Mode != "" {
		gin.SetMode(app.config.Server.Mode)
	}

	app.ginEngine = gin.New()
	r.Setup(app.ginEngine)

	app.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: app.ginEngine,
	}
	return nil
}
