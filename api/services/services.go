package services

import (
	"context"

	"github.com/itm-space/backend-resources/internal/events"
	"github.com/itm-space/backend-resources/models"
)

// IdentityProvider is the part of the Keycloak admin API the user service uses.
type IdentityProvider interface {
	CreateUser(ctx context.Context, user models.NewUser) (string, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	FindUsersByUsername(ctx context.Context, username string) ([]models.User, error)
	DeleteUser(ctx context.Context, userID string) error
	GetUserRealmRoles(ctx context.Context, userID string) ([]models.Role, error)
	GetUserGroups(ctx context.Context, userID string) ([]models.Group, error)
	GetGroup(ctx context.Context, groupName string) (*models.Group, error)
	AddMemberToGroup(ctx context.Context, userID, groupID string) error
	RemoveMemberFromGroup(ctx context.Context, userID, groupID string) error
	GetRealmRole(ctx context.Context, roleName string) (*models.Role, error)
	AddRealmRoleToUser(ctx context.Context, userID string, role models.Role) error
	RemoveRealmRoleFromUser(ctx context.Context, userID string, role models.Role) error
}

// Service contains all shared dependencies for handlers.
type Service struct {
	KC        IdentityProvider
	Publisher events.Notifier
}
