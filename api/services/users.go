package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/itm-space/backend-resources/models"
	"github.com/rs/zerolog"
)

// CreateUser creates an enabled user with a permanent password and returns its ID.
func (svc *Service) CreateUser(ctx context.Context, actor string, req models.UserRequest) (string, error) {
	logger := zerolog.Ctx(ctx).With().Str("username", req.Username).Logger()

	user := models.NewUser{
		User: models.User{
			Username:  req.Username,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Enabled:   true,
		},
		Credentials: []models.Credential{
			{Type: "password", Value: req.Password, Temporary: false},
		},
	}

	userID, err := svc.KC.CreateUser(ctx, user)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create user in identity provider")
		return "", classify(err, nil)
	}

	logger.Info().Str("user_id", userID).Msg("User created")

	svc.publish(ctx, models.UserEvent{
		Action:    models.UserCreated,
		UserID:    userID,
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		Actor:     actor,
	})

	return userID, nil
}

// GetUserByID returns the user together with its realm role and group names.
func (svc *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.UserResponse, error) {
	logger := zerolog.Ctx(ctx).With().Str("user_id", id.String()).Logger()
	userID := id.String()

	user, err := svc.KC.GetUser(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to retrieve user")
		return nil, classify(err, ErrUserNotFound)
	}

	roles, err := svc.KC.GetUserRealmRoles(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to retrieve user roles")
		return nil, classify(err, ErrUserNotFound)
	}

	groups, err := svc.KC.GetUserGroups(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to retrieve user groups")
		return nil, classify(err, ErrUserNotFound)
	}

	response := &models.UserResponse{
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Roles:     make([]string, 0, len(roles)),
		Groups:    make([]string, 0, len(groups)),
	}
	for _, role := range roles {
		response.Roles = append(response.Roles, role.Name)
	}
	for _, group := range groups {
		response.Groups = append(response.Groups, group.Name)
	}

	return response, nil
}

// FindUsers returns the users whose username matches exactly.
func (svc *Service) FindUsers(ctx context.Context, username string) ([]models.UserSummary, error) {
	users, err := svc.KC.FindUsersByUsername(ctx, username)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("username", username).Msg("Failed to search users")
		return nil, classify(err, nil)
	}

	summaries := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, models.UserSummary{ID: u.ID, Username: u.Username, Email: u.Email})
	}
	return summaries, nil
}

// DeleteUser removes the user from the identity provider.
func (svc *Service) DeleteUser(ctx context.Context, actor string, id uuid.UUID) error {
	logger := zerolog.Ctx(ctx).With().Str("user_id", id.String()).Logger()

	user, err := svc.KC.GetUser(ctx, id.String())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to retrieve user")
		return classify(err, ErrUserNotFound)
	}

	if err := svc.KC.DeleteUser(ctx, id.String()); err != nil {
		logger.Error().Err(err).Msg("Failed to delete user")
		return classify(err, ErrUserNotFound)
	}

	logger.Info().Msg("User deleted")

	svc.publish(ctx, models.UserEvent{
		Action:   models.UserDeleted,
		UserID:   id.String(),
		Username: user.Username,
		Email:    user.Email,
		Actor:    actor,
	})

	return nil
}

// AddUserToGroup makes the user a member of the named group.
func (svc *Service) AddUserToGroup(ctx context.Context, id uuid.UUID, groupName string) error {
	logger := zerolog.Ctx(ctx).With().Str("user_id", id.String()).Str("group", groupName).Logger()

	group, err := svc.KC.GetGroup(ctx, groupName)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to find group")
		return classify(err, ErrGroupNotFound)
	}

	if err := svc.KC.AddMemberToGroup(ctx, id.String(), group.ID); err != nil {
		logger.Error().Err(err).Msg("Failed to add member to group")
		return classify(err, ErrUserNotFound)
	}

	logger.Info().Msg("User added to group")
	return nil
}

// RemoveUserFromGroup ends the user's membership of the named group.
func (svc *Service) RemoveUserFromGroup(ctx context.Context, id uuid.UUID, groupName string) error {
	logger := zerolog.Ctx(ctx).With().Str("user_id", id.String()).Str("group", groupName).Logger()

	group, err := svc.KC.GetGroup(ctx, groupName)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to find group")
		return classify(err, ErrGroupNotFound)
	}

	if err := svc.KC.RemoveMemberFromGroup(ctx, id.String(), group.ID); err != nil {
		logger.Error().Err(err).Msg("Failed to remove member from group")
		return classify(err, ErrUserNotFound)
	}

	logger.Info().Msg("User removed from group")
	return nil
}

// GrantRole maps the named realm role to the user.
func (svc *Service) GrantRole(ctx context.Context, id uuid.UUID, roleName string) error {
	logger := zerolog.Ctx(ctx).With().Str("user_id", id.String()).Str("role", roleName).Logger()

	role, err := svc.KC.GetRealmRole(ctx, roleName)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to find role")
		return classify(err, ErrRoleNotFound)
	}

	if err := svc.KC.AddRealmRoleToUser(ctx, id.String(), *role); err != nil {
		logger.Error().Err(err).Msg("Failed to grant role")
		return classify(err, ErrUserNotFound)
	}

	logger.Info().Msg("Role granted")
	return nil
}

// RevokeRole removes the named realm role from the user.
func (svc *Service) RevokeRole(ctx context.Context, id uuid.UUID, roleName string) error {
	logger := zerolog.Ctx(ctx).With().Str("user_id", id.String()).Str("role", roleName).Logger()

	role, err := svc.KC.GetRealmRole(ctx, roleName)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to find role")
		return classify(err, ErrRoleNotFound)
	}

	if err := svc.KC.RemoveRealmRoleFromUser(ctx, id.String(), *role); err != nil {
		logger.Error().Err(err).Msg("Failed to revoke role")
		return classify(err, ErrUserNotFound)
	}

	logger.Info().Msg("Role revoked")
	return nil
}

// publish sends event. Failures are logged and do not fail the request.
func (svc *Service) publish(ctx context.Context, event models.UserEvent) {
	if svc.Publisher == nil {
		return
	}

	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC().Unix()

	if err := svc.Publisher.Publish(ctx, event); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("action", event.Action).Str("user_id", event.UserID).Msg("Failed to publish user event")
	}
}
