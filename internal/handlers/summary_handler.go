package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/poll-service/internal/services"
	"github.com/SAP-F-2025/poll-service/internal/utils"
)

const streamKeepAlive = 25 * time.Second

// SummaryHandler serves poll, class and department summaries and their live streams
type SummaryHandler struct {
	BaseHandler
	service services.SummaryService
	hub     *services.RefreshHub
}

func NewSummaryHandler(service services.SummaryService, hub *services.RefreshHub, logger utils.Logger) *SummaryHandler {
	return &SummaryHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
		hub:         hub,
	}
}

// GetPollSummary returns responders, non-responders, option counts and section rates
// @Summary Poll summary
// @Tags summaries
// @Produce json
// @Param id path uint true "Poll ID"
// @Success 200 {object} services.PollSummary
// @Router /polls/{id}/summary [get]
func (h *SummaryHandler) GetPollSummary(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Getting poll summary", "poll_id", id)

	summary, err := h.service.PollSummary(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetClassSummary returns response rates for every poll of the faculty's class
// @Summary Class summary
// @Tags summaries
// @Produce json
// @Success 200 {object} services.ClassSummary
// @Router /class/summary [get]
func (h *SummaryHandler) GetClassSummary(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Getting class summary")

	summary, err := h.service.ClassSummary(c.Request.Context(), actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetDepartmentSummary returns the HOD dashboard
// @Summary Department summary
// @Tags summaries
// @Produce json
// @Success 200 {object} services.DepartmentSummary
// @Router /department/summary [get]
func (h *SummaryHandler) GetDepartmentSummary(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Getting department summary")

	summary, err := h.service.DepartmentSummary(c.Request.Context(), actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// RefreshDepartmentSummary recomputes the department summary now; 409 while one is running
// @Summary Refresh department summary
// @Tags summaries
// @Produce json
// @Success 200 {object} services.DepartmentSummary
// @Failure 409 {object} ErrorResponse "Refresh already in progress"
// @Router /department/summary/refresh [post]
func (h *SummaryHandler) RefreshDepartmentSummary(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Refreshing department summary")

	summary, err := h.hub.RefreshDepartment(c.Request.Context(), actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// StreamDepartmentSummary pushes the department summary as server-sent events
// @Summary Department summary stream
// @Tags summaries
// @Produce text/event-stream
// @Router /department/summary/stream [get]
func (h *SummaryHandler) StreamDepartmentSummary(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	ch, unsubscribe, err := h.hub.SubscribeDepartment(actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	defer unsubscribe()

	h.LogRequest(c, "Streaming department summary")
	streamResults(c, ch)
}

// StreamClassSummary pushes the faculty's class summary as server-sent events
// @Summary Class summary stream
// @Tags summaries
// @Produce text/event-stream
// @Router /class/summary/stream [get]
func (h *SummaryHandler) StreamClassSummary(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	ch, unsubscribe, err := h.hub.SubscribeClass(actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	defer unsubscribe()

	h.LogRequest(c, "Streaming class summary")
	streamResults(c, ch)
}

// streamResults writes "summary" events, an "error" event for a failed recompute,
// and a keep-alive comment when idle. It returns when the client leaves or the stream closes.
func streamResults[T any](c *gin.Context, ch <-chan services.RefreshResult[T]) {
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		case res, ok := <-ch:
			if !ok {
				return false
			}
			if res.Err != nil {
				c.SSEvent("error", gin.H{"message": "summary refresh failed", "at": res.At})
				return true
			}
			c.SSEvent("summary", res.Value)
			return true
		}
	})
}
