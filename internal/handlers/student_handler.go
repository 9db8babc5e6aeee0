package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/poll-service/internal/services"
	"github.com/SAP-F-2025/poll-service/internal/utils"
)

// StudentHandler serves the student view: open polls and the student's own responses
type StudentHandler struct {
	BaseHandler
	pollService     services.PollService
	responseService services.ResponseService
}

func NewStudentHandler(pollService services.PollService, responseService services.ResponseService, logger utils.Logger) *StudentHandler {
	return &StudentHandler{
		BaseHandler:     NewBaseHandler(logger),
		pollService:     pollService,
		responseService: responseService,
	}
}

// ListPolls lists the open polls of the student's class
// @Summary List polls for the student
// @Tags student
// @Produce json
// @Success 200 {array} services.StudentPollView
// @Router /student/polls [get]
func (h *StudentHandler) ListPolls(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Listing student polls")

	polls, err := h.pollService.ListForStudent(c.Request.Context(), actor, services.PollListFilters{})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, polls)
}

// SubmitResponse records the student's answer to a poll
// @Summary Submit response
// @Tags student
// @Accept json
// @Produce json
// @Param id path uint true "Poll ID"
// @Param response body services.SubmitResponseRequest true "Answer"
// @Success 201 {object} models.PollResponse
// @Failure 400 {object} ErrorResponse "Invalid option or poll expired"
// @Failure 409 {object} ErrorResponse "Already responded"
// @Router /student/polls/{id}/responses [post]
func (h *StudentHandler) SubmitResponse(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	pollID := h.parseIDParam(c, "id")
	if pollID == 0 {
		return
	}

	var req services.SubmitResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Submitting response", "poll_id", pollID)

	response, err := h.responseService.Submit(c.Request.Context(), actor, pollID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// EditResponse changes the student's answer while the poll is open
// @Summary Edit response
// @Tags student
// @Accept json
// @Produce json
// @Param id path uint true "Response ID"
// @Param response body services.EditResponseRequest true "Answer"
// @Success 200 {object} models.PollResponse
// @Failure 403 {object} ErrorResponse "Not the owner"
// @Router /student/responses/{id} [put]
func (h *StudentHandler) EditResponse(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	responseID := h.parseIDParam(c, "id")
	if responseID == 0 {
		return
	}

	var req services.EditResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Editing response", "response_id", responseID)

	response, err := h.responseService.Edit(c.Request.Context(), actor, responseID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ListResponses lists the student's own responses
// @Summary List own responses
// @Tags student
// @Produce json
// @Success 200 {array} services.StudentResponseView
// @Router /student/responses [get]
func (h *StudentHandler) ListResponses(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Listing own responses")

	responses, err := h.responseService.ListForStudent(c.Request.Context(), actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses)
}
