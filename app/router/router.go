package router

import (
	"queuepanel/app/handler"
	"queuepanel/app/middleware"

	"github.com/gin-gonic/gin"
)

// Router Router
type Router struct {
	panelHandler *handler.PanelHandler
	apiKey       string
}

// NewRouter creates a new Router
func NewRouter(panelHandler *handler.PanelHandler, apiKey string) *Router {
	return &Router{
		panelHandler: panelHandler,
		apiKey:       apiKey,
	}
}

// Setup sets up routes
func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger())

	engine.GET("/health", r.panelHandler.Health)

	v1 := engine.Group("/v1")
	v1.Use(middleware.AuthMiddleware(r.apiKey))
	panel := v1.Group("/panel")
	{
		panel.GET("", r.panelHandler.GetView)
		panel.GET("/metrics", r.panelHandler.GetMetrics)
		panel.POST("/refresh", r.panelHandler.Refresh)
		panel.POST("/load-more", r.panelHandler.LoadMore)
		panel.POST("/sort", r.panelHandler.SetSort)
		panel.POST("/date-range", r.panelHandler.SetDateRange)
		panel.POST("/interaction", r.panelHandler.NoteInteraction)
		panel.POST("/selection", r.panelHandler.UpdateSelection)

		// Mutation intents
		panel.POST("/queue/reorder", r.panelHandler.Reorder)
		panel.POST("/queue/delete", r.panelHandler.DeleteItems)
		panel.POST("/queue/:id/rename", r.panelHandler.Rename)
		panel.POST("/history/delete", r.panelHandler.DeleteHistory)
		panel.POST("/pause", r.panelHandler.Pause)
		panel.POST("/resume", r.panelHandler.Resume)

		// Render adapter
		panel.GET("/frame", r.panelHandler.GetFrame)
		panel.POST("/scroll", r.panelHandler.Scroll)
	}
}
