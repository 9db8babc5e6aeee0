package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/poll-service/internal/services"
	"github.com/SAP-F-2025/poll-service/internal/utils"
)

// ExportHandler serves xlsx downloads
type ExportHandler struct {
	BaseHandler
	service services.ExportService
}

func NewExportHandler(service services.ExportService, logger utils.Logger) *ExportHandler {
	return &ExportHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ExportPoll downloads the poll workbook
// @Summary Export poll
// @Tags exports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Poll ID"
// @Router /polls/{id}/export [get]
func (h *ExportHandler) ExportPoll(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Exporting poll", "poll_id", id)

	file, err := h.service.ExportPoll(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.sendFile(c, file)
}

// ExportClassRoster downloads the faculty's class roster
// @Summary Export class roster
// @Tags exports
// @Router /class/students/export [get]
func (h *ExportHandler) ExportClassRoster(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting class roster")

	file, err := h.service.ExportClassRoster(c.Request.Context(), actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.sendFile(c, file)
}

// ExportDepartment downloads the department section summary and roster
// @Summary Export department
// @Tags exports
// @Router /department/export [get]
func (h *ExportHandler) ExportDepartment(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting department")

	file, err := h.service.ExportDepartment(c.Request.Context(), actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.sendFile(c, file)
}

func (h *ExportHandler) sendFile(c *gin.Context, file *services.ExportFile) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
