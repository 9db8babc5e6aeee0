package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/poll-service/internal/models"
	"github.com/SAP-F-2025/poll-service/internal/services"
	"github.com/SAP-F-2025/poll-service/internal/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PollHandler serves the staff poll catalog
type PollHandler struct {
	BaseHandler
	pollService     services.PollService
	responseService services.ResponseService
}

func NewPollHandler(pollService services.PollService, responseService services.ResponseService, logger utils.Logger) *PollHandler {
	return &PollHandler{
		BaseHandler:     NewBaseHandler(logger),
		pollService:     pollService,
		responseService: responseService,
	}
}

// CreatePoll creates a poll for the faculty's class, or one poll per section for a HOD
// @Summary Create poll
// @Tags polls
// @Accept json
// @Produce json
// @Param poll body services.CreatePollRequest true "Poll"
// @Success 201 {object} services.CreatePollResult
// @Success 207 {object} services.CreatePollResult "Some sections failed"
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /polls [post]
func (h *PollHandler) CreatePoll(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	var req services.CreatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Creating poll", "title", req.Title, "sections", len(req.Sections))

	result, err := h.pollService.Create(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Partial() {
		status = http.StatusMultiStatus
	}
	c.JSON(status, result)
}

// ListPolls lists polls in the caller's scope
// @Summary List polls
// @Tags polls
// @Produce json
// @Param category query string false "Poll category"
// @Param class_id query int false "Class ID"
// @Param active query bool false "Only polls still open"
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} services.PollListResponse
// @Router /polls [get]
func (h *PollHandler) ListPolls(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Listing polls")

	filters, ok := h.parsePollFilters(c)
	if !ok {
		return
	}

	polls, err := h.pollService.List(c.Request.Context(), actor, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, polls)
}

// GetPoll returns one poll in the caller's scope
// @Summary Get poll
// @Tags polls
// @Produce json
// @Param id path uint true "Poll ID"
// @Success 200 {object} services.PollView
// @Failure 404 {object} ErrorResponse
// @Router /polls/{id} [get]
func (h *PollHandler) GetPoll(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Getting poll", "poll_id", id)

	poll, err := h.pollService.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, poll)
}

// DeletePoll deletes a poll and its responses
// @Summary Delete poll
// @Tags polls
// @Param id path uint true "Poll ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /polls/{id} [delete]
func (h *PollHandler) DeletePoll(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting poll", "poll_id", id)

	if err := h.pollService.Delete(c.Request.Context(), actor, id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Poll deleted successfully"})
}

// ListPollResponses lists who answered a poll and what they chose
// @Summary List poll responses
// @Tags polls
// @Produce json
// @Param id path uint true "Poll ID"
// @Success 200 {array} models.RespondedStudent
// @Router /polls/{id}/responses [get]
func (h *PollHandler) ListPollResponses(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Listing poll responses", "poll_id", id)

	responses, err := h.responseService.ListForPoll(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses)
}

// parsePollFilters reads category, class_id, active, limit and offset
func (h *PollHandler) parsePollFilters(c *gin.Context) (services.PollListFilters, bool) {
	filters := services.PollListFilters{
		Limit: defaultPageSize,
	}

	if category := c.Query("category"); category != "" {
		cat := models.PollCategory(category)
		if !cat.IsValid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid category",
				Details: category,
			})
			return filters, false
		}
		filters.Category = &cat
	}

	if classID := c.Query("class_id"); classID != "" {
		id, err := strconv.ParseUint(classID, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid class_id",
				Details: err.Error(),
			})
			return filters, false
		}
		v := uint(id)
		filters.ClassID = &v
	}

	if active, err := strconv.ParseBool(c.DefaultQuery("active", "false")); err == nil {
		filters.ActiveOnly = active
	}

	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 {
		filters.Limit = limit
	}
	if filters.Limit > maxPageSize {
		filters.Limit = maxPageSize
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil && offset > 0 {
		filters.Offset = offset
	}

	return filters, true
}
