package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"queuepanel/internal/coordinator"
	"queuepanel/internal/ordering"
	"queuepanel/internal/render"
	"queuepanel/internal/session"
	"queuepanel/pkg/logger"

	"github.com/gin-gonic/gin"
)

// PanelHandler exposes one panel session to a renderer
type PanelHandler struct {
	session  *session.Session
	renderer *render.Renderer
}

// NewPanelHandler creates panel handler. renderer may be nil.
func NewPanelHandler(sess *session.Session, renderer *render.Renderer) *PanelHandler {
	return &PanelHandler{session: sess, renderer: renderer}
}

func (h *PanelHandler) ctx(c *gin.Context) context.Context {
	return h.session.Context(c.Request.Context())
}

// RefreshRequest refresh request
type RefreshRequest struct {
	Force bool `json:"force"`
}

// SortRequest sort request
type SortRequest struct {
	Direction string `json:"direction" binding:"required"`
}

// DateRangeRequest date range request, nil bounds are open
type DateRangeRequest struct {
	Since *time.Time `json:"since"`
	Until *time.Time `json:"until"`
}

// SelectionRequest selection change request
type SelectionRequest struct {
	Select   []string `json:"select"`
	Deselect []string `json:"deselect"`
	Clear    bool     `json:"clear"`
}

// ItemsRequest queue item ids
type ItemsRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// HistoryRequest history record ids
type HistoryRequest struct {
	IDs []int64 `json:"ids" binding:"required"`
}

// RenameRequest rename request
type RenameRequest struct {
	Name string `json:"name" binding:"required"`
}

// ScrollRequest scroll request
type ScrollRequest struct {
	Top float64 `json:"top"`
}

// GetView returns the full panel state
// @Summary Get panel view
// @Tags panel
// @Produce json
// @Success 200 {object} coordinator.View
// @Router /panel [get]
func (h *PanelHandler) GetView(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Coordinator().View())
}

// GetMetrics returns the derived metrics
// @Summary Get panel metrics
// @Tags panel
// @Produce json
// @Success 200 {object} metrics.Snapshot
// @Router /panel/metrics [get]
func (h *PanelHandler) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Coordinator().Metrics())
}

// Refresh refetches the first page and the live queue
// @Summary Refresh panel
// @Tags panel
// @Accept json
// @Param request body RefreshRequest false "Refresh options"
// @Router /panel/refresh [post]
func (h *PanelHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}

	if err := h.session.Coordinator().Refresh(h.ctx(c), coordinator.RefreshOptions{Force: req.Force}); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.session.Coordinator().View())
}

// LoadMore fetches the next history page
// @Summary Load the next history page
// @Tags panel
// @Router /panel/load-more [post]
func (h *PanelHandler) LoadMore(c *gin.Context) {
	coord := h.session.Coordinator()
	n := coord.LoadMore(h.ctx(c))
	c.JSON(http.StatusOK, gin.H{"inserted": n, "pagination": coord.View().Pagination})
}

// SetSort changes the sort direction
// @Summary Set sort direction
// @Tags panel
// @Accept json
// @Param request body SortRequest true "Direction, asc or desc"
// @Router /panel/sort [post]
func (h *PanelHandler) SetSort(c *gin.Context) {
	var req SortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	dir := ordering.Direction(req.Direction)
	if !dir.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "direction must be asc or desc"})
		return
	}

	n := h.session.Coordinator().SetSort(h.ctx(c), dir)
	c.JSON(http.StatusOK, gin.H{"inserted": n, "direction": dir})
}

// SetDateRange changes the time filter
// @Summary Set date range
// @Tags panel
// @Accept json
// @Param request body DateRangeRequest true "RFC 3339 bounds"
// @Router /panel/date-range [post]
func (h *PanelHandler) SetDateRange(c *gin.Context) {
	var req DateRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Since != nil && req.Until != nil && req.Until.Before(*req.Since) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "until is before since"})
		return
	}

	n := h.session.Coordinator().SetDateRange(h.ctx(c), req.Since, req.Until)
	c.JSON(http.StatusOK, gin.H{"inserted": n})
}

// NoteInteraction opens the refresh lock window
// @Summary Report a user interaction
// @Tags panel
// @Router /panel/interaction [post]
func (h *PanelHandler) NoteInteraction(c *gin.Context) {
	h.session.Coordinator().NoteInteraction()
	c.Status(http.StatusNoContent)
}

// UpdateSelection selects and deselects pending items
// @Summary Update selection
// @Tags panel
// @Accept json
// @Param request body SelectionRequest true "Selection change"
// @Router /panel/selection [post]
func (h *PanelHandler) UpdateSelection(c *gin.Context) {
	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	coord := h.session.Coordinator()
	if req.Clear {
		coord.ClearSelection()
	}
	coord.Deselect(req.Deselect...)
	coord.Select(req.Select...)
	c.JSON(http.StatusOK, gin.H{"selection": coord.Selection()})
}

// Reorder proposes a new pending order
// @Summary Reorder pending items
// @Tags intents
// @Accept json
// @Param request body ItemsRequest true "Item ids in the new order"
// @Router /panel/queue/reorder [post]
func (h *PanelHandler) Reorder(c *gin.Context) {
	var req ItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	h.respondIntent(c, h.session.Reorder(h.ctx(c), req.IDs))
}

// DeleteItems deletes pending or persisted items
// @Summary Delete queue items
// @Tags intents
// @Accept json
// @Param request body ItemsRequest true "Item ids"
// @Router /panel/queue/delete [post]
func (h *PanelHandler) DeleteItems(c *gin.Context) {
	var req ItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	h.respondIntent(c, h.session.Delete(h.ctx(c), req.IDs))
}

// DeleteHistory deletes history records
// @Summary Delete history records
// @Tags intents
// @Accept json
// @Param request body HistoryRequest true "Record ids"
// @Router /panel/history/delete [post]
func (h *PanelHandler) DeleteHistory(c *gin.Context) {
	var req HistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	h.respondIntent(c, h.session.DeleteHistory(h.ctx(c), req.IDs))
}

// Rename renames a queue item
// @Summary Rename queue item
// @Tags intents
// @Accept json
// @Param id path string true "Item ID"
// @Param request body RenameRequest true "New name"
// @Router /panel/queue/{id}/rename [post]
func (h *PanelHandler) Rename(c *gin.Context) {
	var req RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	h.respondIntent(c, h.session.Rename(h.ctx(c), c.Param("id"), req.Name))
}

// Pause pauses the remote queue
// @Summary Pause queue
// @Tags intents
// @Router /panel/pause [post]
func (h *PanelHandler) Pause(c *gin.Context) {
	h.respondIntent(c, h.session.Pause(h.ctx(c)))
}

// Resume resumes the remote queue
// @Summary Resume queue
// @Tags intents
// @Router /panel/resume [post]
func (h *PanelHandler) Resume(c *gin.Context) {
	h.respondIntent(c, h.session.Resume(h.ctx(c)))
}

func (h *PanelHandler) respondIntent(c *gin.Context, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, h.session.Coordinator().View())
	case errors.Is(err, session.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrNoIntentSink):
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
	default:
		logger.ErrorCtx(h.ctx(c), "intent failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

// GetFrame returns the rendered rows and scroll position
// @Summary Get rendered frame
// @Tags render
// @Router /panel/frame [get]
func (h *PanelHandler) GetFrame(c *gin.Context) {
	if h.renderer == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "renderer disabled"})
		return
	}
	c.JSON(http.StatusOK, h.renderer.Frame())
}

// Scroll moves the rendered viewport
// @Summary Scroll the rendered frame
// @Tags render
// @Accept json
// @Param request body ScrollRequest true "Scroll top in pixels"
// @Router /panel/scroll [post]
func (h *PanelHandler) Scroll(c *gin.Context) {
	if h.renderer == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "renderer disabled"})
		return
	}
	var req ScrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	h.session.Coordinator().NoteInteraction()
	h.renderer.Scroll(req.Top)
	c.JSON(http.StatusOK, h.renderer.Frame())
}

// Health liveness probe
func (h *PanelHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "session": h.session.ID(), "panel": h.session.PanelID()})
}
