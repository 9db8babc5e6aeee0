package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/poll-service/internal/repositories"
	"github.com/SAP-F-2025/poll-service/internal/services"
	"github.com/SAP-F-2025/poll-service/internal/utils"
)

type UserHandler struct {
	BaseHandler
	identity repositories.IdentityRepository
}

func NewUserHandler(identity repositories.IdentityRepository, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		identity:    identity,
	}
}

// MeResponse is the resolved caller plus the identity provider profile when available
type MeResponse struct {
	Actor    *services.Actor         `json:"actor"`
	Identity *repositories.Identity `json:"identity,omitempty"`
}

// GetMe returns the resolved actor
// @Summary Current user
// @Description Role, class and department the caller was resolved to
// @Tags users
// @Produce json
// @Success 200 {object} MeResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Account not registered"
// @Router /me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Getting current user")

	resp := MeResponse{Actor: actor}

	// identity lookup failures are logged, not returned
	if userID, err := GetUserIDFromContext(c); err == nil && userID != "" && h.identity != nil {
		identity, err := h.identity.GetByID(c.Request.Context(), userID)
		if err != nil {
			utils.FromContext(c.Request.Context(), h.logger).Warn("Identity lookup failed", "user_id", userID, "error", err)
		} else {
			resp.Identity = identity
		}
	}

	c.JSON(http.StatusOK, resp)
}
