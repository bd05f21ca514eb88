package services

import (
	"context"

	"github.com/itm-space/backend-resources/models"
	"github.com/stretchr/testify/mock"
)

type MockKeycloakClient struct {
	mock.Mock
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockKeycloakClient) CreateUser(ctx context.Context, user models.NewUser) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func (m *MockKeycloakClient) GetUser(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockKeycloakClient) FindUsersByUsername(ctx context.Context, username string) ([]models.User, error) {
	args := m.Called(ctx, username)
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}

func (m *MockKeycloakClient) DeleteUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockKeycloakClient) GetUserRealmRoles(ctx context.Context, userID string) ([]models.Role, error) {
	args := m.Called(ctx, userID)
	roles, _ := args.Get(0).([]models.Role)
	return roles, args.Error(1)
}

func (m *MockKeycloakClient) GetUserGroups(ctx context.Context, userID string) ([]models.Group, error) {
	args := m.Called(ctx, userID)
	groups, _ := args.Get(0).([]models.Group)
	return groups, args.Error(1)
}

func (m *MockKeycloakClient) GetGroup(ctx context.Context, groupName string) (*models.Group, error) {
	args := m.Called(ctx, groupName)
	group, _ := args.Get(0).(*models.Group)
	return group, args.Error(1)
}

func (m *MockKeycloakClient) AddMemberToGroup(ctx context.Context, userID, groupID string) error {
	args := m.Called(ctx, userID, groupID)
	return args.Error(0)
}

func (m *MockKeycloakClient) RemoveMemberFromGroup(ctx context.Context, userID, groupID string) error {
	args := m.Called(ctx, userID, groupID)
	return args.Error(0)
}

func (m *MockKeycloakClient) GetRealmRole(ctx context.Context, roleName string) (*models.Role, error) {
	args := m.Called(ctx, roleName)
	role, _ := args.Get(0).(*models.Role)
	return role, args.Error(1)
}

func (m *MockKeycloakClient) AddRealmRoleToUser(ctx context.Context, userID string, role models.Role) error {
	args := m.Called(ctx, userID, role)
	return args.Error(0)
}

func (m *MockKeycloakClient) RemoveRealmRoleFromUser(ctx context.Context, userID string, role models.Role) error {
	args := m.Called(ctx, userID, role)
	return args.Error(0)
}

// Mock the Publish method
func (m *MockEventPublisher) Publish(ctx context.Context, event models.UserEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// Mock the Close method
func (m *MockEventPublisher) Close() {
	m.Called()
}
