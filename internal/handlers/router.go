package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/poll-service/internal/config"
	"github.com/SAP-F-2025/poll-service/internal/models"
	"github.com/SAP-F-2025/poll-service/internal/repositories"
	"github.com/SAP-F-2025/poll-service/internal/services"
	"github.com/SAP-F-2025/poll-service/internal/utils"
)

type HandlerManager struct {
	pollHandler    *PollHandler
	studentHandler *StudentHandler
	summaryHandler *SummaryHandler
	exportHandler  *ExportHandler
	userHandler    *UserHandler
	authMiddleware *CasdoorAuthMiddleware
	health         func(ctx context.Context) error
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	identity repositories.IdentityRepository,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, identity, serviceManager.Actor(), logger)
	return newHandlerManager(serviceManager, logger, identity, authMiddleware)
}

func newHandlerManager(serviceManager services.ServiceManager, logger utils.Logger, identity repositories.IdentityRepository, authMiddleware *CasdoorAuthMiddleware) *HandlerManager {
	return &HandlerManager{
		pollHandler:    NewPollHandler(serviceManager.Poll(), serviceManager.Response(), logger),
		studentHandler: NewStudentHandler(serviceManager.Poll(), serviceManager.Response(), logger),
		summaryHandler: NewSummaryHandler(serviceManager.Summary(), serviceManager.Refresh(), logger),
		exportHandler:  NewExportHandler(serviceManager.Export(), logger),
		userHandler:    NewUserHandler(identity, logger),
		authMiddleware: authMiddleware,
		health:         serviceManager.HealthCheck,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	auth := hm.authMiddleware

	v1 := router.Group("/api/v1")
	v1.Use(auth.AuthMiddleware(), auth.ActorMiddleware())
	{
		v1.GET("/me", hm.userHandler.GetMe)

		// Student routes
		student := v1.Group("/student")
		student.Use(auth.RequireRoleMiddleware(models.RoleStudent))
		{
			student.GET("/polls", hm.studentHandler.ListPolls)
			student.POST("/polls/:id/responses", hm.studentHandler.SubmitResponse)
			student.GET("/responses", hm.studentHandler.ListResponses)
			student.PUT("/responses/:id", hm.studentHandler.EditResponse)
		}

		// Poll routes - Faculty and HODs
		polls := v1.Group("/polls")
		polls.Use(auth.RequireRoleMiddleware(models.RoleFaculty, models.RoleHOD))
		{
			polls.POST("", hm.pollHandler.CreatePoll)
			polls.GET("", hm.pollHandler.ListPolls)
			polls.GET("/:id", hm.pollHandler.GetPoll)
			polls.DELETE("/:id", hm.pollHandler.DeletePoll)
			polls.GET("/:id/responses", hm.pollHandler.ListPollResponses)
			polls.GET("/:id/summary", hm.summaryHandler.GetPollSummary)
			polls.GET("/:id/export", hm.exportHandler.ExportPoll)
		}

		// Class routes - staff with a class
		class := v1.Group("/class")
		class.Use(auth.RequireRoleMiddleware(models.RoleFaculty, models.RoleHOD))
		{
			class.GET("/summary", hm.summaryHandler.GetClassSummary)
			class.GET("/summary/stream", hm.summaryHandler.StreamClassSummary)
			class.GET("/students/export", hm.exportHandler.ExportClassRoster)
		}

		// Department routes - HODs only
		department := v1.Group("/department")
		department.Use(auth.RequireRoleMiddleware(models.RoleHOD))
		{
			department.GET("/summary", hm.summaryHandler.GetDepartmentSummary)
			department.POST("/summary/refresh", hm.summaryHandler.RefreshDepartmentSummary)
			department.GET("/summary/stream", hm.summaryHandler.StreamDepartmentSummary)
			department.GET("/export", hm.exportHandler.ExportDepartment)
		}
	}

	router.GET("/health", hm.Health)
}

// Health reports whether the store answers
func (hm *HandlerManager) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := hm.health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "poll-service",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "poll-service",
	})
}
