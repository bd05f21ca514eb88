package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/itm-space/backend-resources/api/middleware"
	"github.com/itm-space/backend-resources/api/services"
	"github.com/itm-space/backend-resources/internal/authn"
	"github.com/itm-space/backend-resources/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) CreateUser(ctx context.Context, actor string, req models.UserRequest) (string, error) {
	args := m.Called(ctx, actor, req)
	return args.String(0), args.Error(1)
}

func (m *mockUserService) GetUserByID(ctx context.Context, id uuid.UUID) (*models.UserResponse, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.UserResponse)
	return user, args.Error(1)
}

func (m *mockUserService) FindUsers(ctx context.Context, username string) ([]models.UserSummary, error) {
	args := m.Called(ctx, username)
	users, _ := args.Get(0).([]models.UserSummary)
	return users, args.Error(1)
}

func (m *mockUserService) DeleteUser(ctx context.Context, actor string, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *mockUserService) AddUserToGroup(ctx context.Context, id uuid.UUID, groupName string) error {
	return m.Called(ctx, id, groupName).Error(0)
}

func (m *mockUserService) RemoveUserFromGroup(ctx context.Context, id uuid.UUID, groupName string) error {
	return m.Called(ctx, id, groupName).Error(0)
}

func (m *mockUserService) GrantRole(ctx context.Context, id uuid.UUID, roleName string) error {
	return m.Called(ctx, id, roleName).Error(0)
}

func (m *mockUserService) RevokeRole(ctx context.Context, id uuid.UUID, roleName string) error {
	return m.Called(ctx, id, roleName).Error(0)
}

type mockAuditTrail struct {
	mock.Mock
}

func (m *mockAuditTrail) ListForUser(ctx context.Context, userID string) ([]models.AuditEntry, error) {
	args := m.Called(ctx, userID)
	entries, _ := args.Get(0).([]models.AuditEntry)
	return entries, args.Error(1)
}

const testClientID = "backend-resources"

func newTestRouter(svc UserService) *mux.Router {
	return newRouter(svc, nil)
}

func newRouter(svc UserService, audit AuditTrail) *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.WithLogger)
	api.Use(middleware.JWTMiddleware)
	RegisterUserRoutes(api, svc, audit, testClientID, "MODERATOR")
	return r
}

func token(t *testing.T, username string, roles ...string) string {
	t.Helper()
	claims := authn.Claims{Username: username}
	claims.RealmAccess.Roles = roles
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return "Bearer " + signed
}

func do(t *testing.T, r http.Handler, method, target, body, auth string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const validUser = `{"username":"testUser","email":"test@example.com","password":"securePassword","firstName":"Test","lastName":"User"}`

func TestCreateUser_Created(t *testing.T) {
	svc := new(mockUserService)
	svc.On("CreateUser", mock.Anything, "moderatorUser", models.UserRequest{
		Username:  "testUser",
		Email:     "test@example.com",
		Password:  "securePassword",
		FirstName: "Test",
		LastName:  "User",
	}).Return("4f1c2d7e-1b1a-4c55-9a44-5a0d1d6a0a01", nil)

	w := do(t, newTestRouter(svc), http.MethodPost, "/api/users", validUser, token(t, "moderatorUser", "MODERATOR"))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/api/users/4f1c2d7e-1b1a-4c55-9a44-5a0d1d6a0a01", w.Header().Get("Location"))
	assert.JSONEq(t, `{"id":"4f1c2d7e-1b1a-4c55-9a44-5a0d1d6a0a01"}`, w.Body.String())
	svc.AssertExpectations(t)
}

func TestCreateUser_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"malformed json", `{"username":`, "invalid request payload"},
		{"missing email", `{"username":"testUser","password":"securePassword","firstName":"Test","lastName":"User"}`, "email is required"},
		{"bad email", `{"username":"testUser","email":"nope","password":"securePassword","firstName":"Test","lastName":"User"}`, "email must be a valid email"},
		{"short username", `{"username":"t","email":"test@example.com","password":"securePassword","firstName":"Test","lastName":"User"}`, "username must be at least 2 characters"},
		{"short password", `{"username":"testUser","email":"test@example.com","password":"abc","firstName":"Test","lastName":"User"}`, "password must be at least 4 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockUserService)
			w := do(t, newTestRouter(svc), http.MethodPost, "/api/users", tt.body, token(t, "moderatorUser", "MODERATOR"))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.message)
			svc.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCreateUser_Conflict(t *testing.T) {
	svc := new(mockUserService)
	svc.On("CreateUser", mock.Anything, mock.Anything, mock.Anything).Return("", services.ErrUserExists)

	w := do(t, newTestRouter(svc), http.MethodPost, "/api/users", validUser, token(t, "moderatorUser", "MODERATOR"))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"error_code":"user_exists"`)
}

func TestHello(t *testing.T) {
	svc := new(mockUserService)

	w := do(t, newTestRouter(svc), http.MethodGet, "/api/users/hello", "", token(t, "moderatorUser", "MODERATOR"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "moderatorUser", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

func TestHello_Unauthenticated(t *testing.T) {
	w := do(t, newTestRouter(new(mockUserService)), http.MethodGet, "/api/users/hello", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHello_MalformedToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"undecodable segments", "Bearer a.b.c"},
		{"non base64 segments", "Bearer !!!.???.***"},
		{"claims not json", "Bearer eyJhbGciOiJIUzI1NiJ9.bm90LWpzb24.sig"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, newTestRouter(new(mockUserService)), http.MethodGet, "/api/users/hello", "", tt.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestHello_WithoutModeratorRole(t *testing.T) {
	w := do(t, newTestRouter(new(mockUserService)), http.MethodGet, "/api/users/hello", "", token(t, "plainUser", "USER"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetUser(t *testing.T) {
	svc := new(mockUserService)
	id := uuid.New()
	svc.On("GetUserByID", mock.Anything, id).Return(&models.UserResponse{
		Username:  "testuser",
		FirstName: "Test",
		LastName:  "User",
		Email:     "test@example.com",
		Roles:     []string{"ROLE_USER"},
		Groups:    []string{"GROUP_1"},
	}, nil)

	w := do(t, newTestRouter(svc), http.MethodGet, "/api/users/"+id.String(), "", token(t, "moderatorUser", "MODERATOR"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"username":"testuser",
		"firstName":"Test",
		"lastName":"User",
		"email":"test@example.com",
		"roles":["ROLE_USER"],
		"groups":["GROUP_1"]
	}`, w.Body.String())
}

func TestGetUser_NotFound(t *testing.T) {
	svc := new(mockUserService)
	id := uuid.New()
	svc.On("GetUserByID", mock.Anything, id).Return(nil, services.ErrUserNotFound)

	w := do(t, newTestRouter(svc), http.MethodGet, "/api/users/"+id.String(), "", token(t, "moderatorUser", "MODERATOR"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"error_code":"user_not_found"`)
}

func TestGetUser_ProviderError(t *testing.T) {
	svc := new(mockUserService)
	id := uuid.New()
	svc.On("GetUserByID", mock.Anything, id).Return(nil, services.ErrProvider)

	w := do(t, newTestRouter(svc), http.MethodGet, "/api/users/"+id.String(), "", token(t, "moderatorUser", "MODERATOR"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetUser_MalformedID(t *testing.T) {
	svc := new(mockUserService)

	w := do(t, newTestRouter(svc), http.MethodGet, "/api/users/not-a-uuid", "", token(t, "moderatorUser", "MODERATOR"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "GetUserByID", mock.Anything, mock.Anything)
}

func TestFindUsers(t *testing.T) {
	svc := new(mockUserService)
	svc.On("FindUsers", mock.Anything, "testuser").
		Return([]models.UserSummary{{ID: "id-1", Username: "testuser", Email: "test@example.com"}}, nil)

	w := do(t, newTestRouter(svc), http.MethodGet, "/api/users?username=testuser", "", token(t, "moderatorUser", "MODERATOR"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":"id-1","username":"testuser","email":"test@example.com"}]`, w.Body.String())
}

func TestFindUsers_MissingUsername(t *testing.T) {
	w := do(t, newTestRouter(new(mockUserService)), http.MethodGet, "/api/users", "", token(t, "moderatorUser", "MODERATOR"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteUser(t *testing.T) {
	svc := new(mockUserService)
	id := uuid.New()
	svc.On("DeleteUser", mock.Anything, "moderatorUser", id).Return(nil)

	w := do(t, newTestRouter(svc), http.MethodDelete, "/api/users/"+id.String(), "", token(t, "moderatorUser", "MODERATOR"))

	assert.Equal(t, http.StatusNoContent, w.Code)
	svc.AssertExpectations(t)
}

func TestMembershipRoutes(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name   string
		method string
		path   string
		call   string
		arg    string
	}{
		{"add to group", http.MethodPut, "/groups/GROUP_1", "AddUserToGroup", "GROUP_1"},
		{"remove from group", http.MethodDelete, "/groups/GROUP_1", "RemoveUserFromGroup", "GROUP_1"},
		{"grant role", http.MethodPut, "/roles/MODERATOR", "GrantRole", "MODERATOR"},
		{"revoke role", http.MethodDelete, "/roles/MODERATOR", "RevokeRole", "MODERATOR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockUserService)
			svc.On(tt.call, mock.Anything, id, tt.arg).Return(nil)

			w := do(t, newTestRouter(svc), tt.method, "/api/users/"+id.String()+tt.path, "", token(t, "moderatorUser", "MODERATOR"))

			assert.Equal(t, http.StatusNoContent, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestAddUserToGroup_UnknownGroup(t *testing.T) {
	svc := new(mockUserService)
	id := uuid.New()
	svc.On("AddUserToGroup", mock.Anything, id, "missing").Return(services.ErrGroupNotFound)

	w := do(t, newTestRouter(svc), http.MethodPut, "/api/users/"+id.String()+"/groups/missing", "", token(t, "moderatorUser", "MODERATOR"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "group_not_found")
}

func TestGetUserAudit(t *testing.T) {
	audit := new(mockAuditTrail)
	id := uuid.New()
	audit.On("ListForUser", mock.Anything, id.String()).Return([]models.AuditEntry{
		{EventID: "e1", Action: models.UserCreated, UserID: id.String(), Username: "testuser", Actor: "moderatorUser", OccurredAt: 1700000000},
	}, nil)

	w := do(t, newRouter(new(mockUserService), audit), http.MethodGet, "/api/users/"+id.String()+"/audit", "", token(t, "moderatorUser", "MODERATOR"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{
		"eventId":"e1",
		"action":"created",
		"userId":"`+id.String()+`",
		"username":"testuser",
		"actor":"moderatorUser",
		"occurredAt":1700000000
	}]`, w.Body.String())
	audit.AssertExpectations(t)
}

func TestGetUserAudit_Errors(t *testing.T) {
	id := uuid.New()

	audit := new(mockAuditTrail)
	audit.On("ListForUser", mock.Anything, id.String()).Return(nil, errors.New("connection refused"))

	w := do(t, newRouter(new(mockUserService), audit), http.MethodGet, "/api/users/"+id.String()+"/audit", "", token(t, "moderatorUser", "MODERATOR"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = do(t, newRouter(new(mockUserService), audit), http.MethodGet, "/api/users/not-a-uuid/audit", "", token(t, "moderatorUser", "MODERATOR"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, newRouter(new(mockUserService), audit), http.MethodGet, "/api/users/"+id.String()+"/audit", "", token(t, "plainUser", "USER"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetUserAudit_NotRegisteredWithoutStore(t *testing.T) {
	w := do(t, newTestRouter(new(mockUserService)), http.MethodGet, "/api/users/"+uuid.NewString()+"/audit", "", token(t, "moderatorUser", "MODERATOR"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
