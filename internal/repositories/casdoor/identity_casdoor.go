package casdoor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/poll-service/internal/cache"
	"github.com/SAP-F-2025/poll-service/internal/repositories"
)

// CasdoorConfig holds the configuration for Casdoor connection
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

// userSource is the subset of the Casdoor client used for lookups
type userSource interface {
	GetUserByUserId(userId string) (*casdoorsdk.User, error)
}

type IdentityCasdoor struct {
	client   userSource
	cache    *cache.CacheHelper
	cacheTTL time.Duration
}

func NewIdentityCasdoor(config CasdoorConfig, redisClient *redis.Client) repositories.IdentityRepository {
	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.OrganizationName,
		config.ApplicationName,
	)

	return newIdentityCasdoor(client, redisClient)
}

func newIdentityCasdoor(client userSource, redisClient *redis.Client) *IdentityCasdoor {
	return &IdentityCasdoor{
		client:   client,
		cache:    cache.NewCacheHelper(redisClient, "identity:"),
		cacheTTL: 15 * time.Minute,
	}
}

// toIdentity converts a Casdoor user, preferring the display name over the login name
func toIdentity(user *casdoorsdk.User) *repositories.Identity {
	name := strings.TrimSpace(user.DisplayName)
	if name == "" {
		name = user.Name
	}
	return &repositories.Identity{
		ID:          user.Id,
		Email:       strings.ToLower(strings.TrimSpace(user.Email)),
		DisplayName: name,
	}
}

// GetByID retrieves a user by ID
func (u *IdentityCasdoor) GetByID(ctx context.Context, id string) (*repositories.Identity, error) {
	return cache.Fetch(ctx, u.cache, "id:"+id, u.cacheTTL, func() (*repositories.Identity, error) {
		user, err := u.client.GetUserByUserId(id)
		if err != nil {
			return nil, fmt.Errorf("failed to get user from Casdoor: %w", err)
		}
		if user == nil {
			return nil, fmt.Errorf("user %s: %w", id, gorm.ErrRecordNotFound)
		}
		return toIdentity(user), nil
	})
}
