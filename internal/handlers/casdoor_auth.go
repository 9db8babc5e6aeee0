package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/poll-service/internal/config"
	"github.com/SAP-F-2025/poll-service/internal/models"
	"github.com/SAP-F-2025/poll-service/internal/repositories"
	"github.com/SAP-F-2025/poll-service/internal/services"
	"github.com/SAP-F-2025/poll-service/internal/utils"
)

const (
	contextKeyUserID    = "user_id"
	contextKeyUserEmail = "user_email"
	contextKeyActor     = "actor"
)

// tokenParser is the subset of the Casdoor client used to verify bearer tokens
type tokenParser interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

// CasdoorAuthMiddleware verifies Casdoor tokens and resolves the caller to an Actor
type CasdoorAuthMiddleware struct {
	parser   tokenParser
	identity repositories.IdentityRepository
	actors   services.ActorService
	logger   utils.Logger
}

// NewCasdoorAuthMiddleware creates a new Casdoor authentication middleware
func NewCasdoorAuthMiddleware(cfg config.CasdoorConfig, identity repositories.IdentityRepository, actors services.ActorService, logger utils.Logger) *CasdoorAuthMiddleware {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)

	return newCasdoorAuthMiddleware(client, identity, actors, logger)
}

func newCasdoorAuthMiddleware(parser tokenParser, identity repositories.IdentityRepository, actors services.ActorService, logger utils.Logger) *CasdoorAuthMiddleware {
	return &CasdoorAuthMiddleware{
		parser:   parser,
		identity: identity,
		actors:   actors,
		logger:   logger,
	}
}

// AuthMiddleware verifies the bearer token and stores the user id and email
func (cam *CasdoorAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "authorization header missing",
			})
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "invalid authorization header format",
			})
			return
		}

		claims, err := cam.parser.ParseJwtToken(tokenParts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: fmt.Sprintf("invalid token: %v", err),
			})
			return
		}

		email, err := cam.emailFromClaims(c.Request.Context(), claims)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: fmt.Sprintf("failed to extract user info: %v", err),
			})
			return
		}

		c.Set(contextKeyUserID, claims.Id)
		c.Set(contextKeyUserEmail, email)
		c.Next()
	}
}

// ActorMiddleware resolves the authenticated email to a student or staff actor.
// Accounts with no directory record are rejected with 403.
func (cam *CasdoorAuthMiddleware) ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetString(contextKeyUserEmail)

		actor, err := cam.actors.Resolve(c.Request.Context(), email)
		if err != nil {
			base := NewBaseHandler(cam.logger)
			base.handleServiceError(c, err)
			c.Abort()
			return
		}

		c.Set(contextKeyActor, actor)
		c.Next()
	}
}

// RequireRoleMiddleware checks if the actor has one of the roles
func (cam *CasdoorAuthMiddleware) RequireRoleMiddleware(requiredRoles ...models.UserRole) gin.HandlerFunc {
	return RequireRole(requiredRoles...)
}

func RequireRole(requiredRoles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActorFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message: "actor not found in context",
			})
			return
		}

		for _, role := range requiredRoles {
			if actor.Role == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
			Message: fmt.Sprintf("insufficient permissions, required role: %v", requiredRoles),
		})
	}
}

// emailFromClaims prefers the email in the token and falls back to the identity provider
func (cam *CasdoorAuthMiddleware) emailFromClaims(ctx context.Context, claims *casdoorsdk.Claims) (string, error) {
	if email := strings.TrimSpace(claims.User.Email); email != "" {
		return email, nil
	}
	if claims.Id == "" {
		return "", fmt.Errorf("token carries neither email nor user id")
	}
	if cam.identity == nil {
		return "", fmt.Errorf("token carries no email")
	}

	identity, err := cam.identity.GetByID(ctx, claims.Id)
	if err != nil {
		return "", fmt.Errorf("identity lookup failed: %w", err)
	}
	if identity.Email == "" {
		return "", fmt.Errorf("identity %s has no email", claims.Id)
	}
	return identity.Email, nil
}

// GetActorFromContext extracts the resolved actor from Gin context
func GetActorFromContext(c *gin.Context) (*services.Actor, bool) {
	value, exists := c.Get(contextKeyActor)
	if !exists {
		return nil, false
	}
	actor, ok := value.(*services.Actor)
	return actor, ok && actor != nil
}

// GetUserIDFromContext extracts the identity provider user ID from Gin context
func GetUserIDFromContext(c *gin.Context) (string, error) {
	userID, exists := c.Get(contextKeyUserID)
	if !exists {
		return "", fmt.Errorf("user ID not found in context")
	}

	id, ok := userID.(string)
	if !ok {
		return "", fmt.Errorf("invalid user ID type in context")
	}

	return id, nil
}
