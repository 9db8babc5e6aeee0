package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/poll-service/internal/services"
	"github.com/SAP-F-2025/poll-service/internal/utils"
)

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs the start of a request with the resolved actor, if any
func (h *BaseHandler) LogRequest(c *gin.Context, message string, args ...any) {
	logger := utils.FromContext(c.Request.Context(), h.logger)
	if actor, ok := GetActorFromContext(c); ok {
		args = append(args, "actor", actor.ID(), "role", actor.Role)
	}
	logger.Info(message, append(args, "path", c.FullPath())...)
}

// parseIDParam reads a positive numeric path parameter; it replies 400 and returns 0 otherwise
func (h *BaseHandler) parseIDParam(c *gin.Context, name string) uint {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + name,
			Details: name + " must be a positive integer",
		})
		return 0
	}
	return uint(id)
}

// requireActor fetches the actor set by ActorMiddleware
func (h *BaseHandler) requireActor(c *gin.Context) (*services.Actor, bool) {
	actor, ok := GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Unauthorized"})
		return nil, false
	}
	return actor, true
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	var ownershipError *services.OwnershipError
	if errors.As(err, &ownershipError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": ownershipError.Resource,
				"reason":   "not the owner",
			},
		})
		return
	}

	var notFound *services.NotFoundError
	if errors.As(err, &notFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: notFound.Error(),
		})
		return
	}

	var conflict *services.ConflictError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: conflict.Message,
		})
		return
	}

	if errors.Is(err, services.ErrActorNotRegistered) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Account not registered",
			Details: err.Error(),
		})
		return
	}

	utils.FromContext(c.Request.Context(), h.logger).Error("Request failed", "error", err, "path", c.FullPath())
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Message: "Internal server error",
	})
}
