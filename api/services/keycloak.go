package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/itm-space/backend-resources/internal/metrics"
	"github.com/itm-space/backend-resources/models"
)

// tokens are refreshed this long before Keycloak considers them expired
const tokenExpiryLeeway = 30 * time.Second

// KeycloakClient is a client for interacting with the Keycloak admin API.
type KeycloakClient struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Realm        string
	Token        string
	HTTPClient   *http.Client

	mu          sync.Mutex
	tokenExpiry time.Time
}

type TokenResponse struct {
	Access           string `json:"access_token"`
	Refresh          string `json:"refresh_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
	Scope            string `json:"scope"`
}

type KeycloakError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorMessage     string `json:"errorMessage"`
}

// HTTPError is returned when Keycloak answers with a non-success status.
type HTTPError struct {
	Message string
	Status  int
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewKeycloakClient creates a new instance of KeycloakClient.
func NewKeycloakClient(baseURL, clientID, clientSecret, realm string) *KeycloakClient {
	return &KeycloakClient{
		BaseURL:      strings.TrimSuffix(baseURL, "/"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Realm:        realm,
		HTTPClient:   &http.Client{},
	}
}

// GetToken retrieves a Keycloak access token using client_credentials.
func (kc *KeycloakClient) GetToken(ctx context.Context) error {
	kc.mu.Lock()
	defer kc.mu.Unlock()
	return kc.fetchToken(ctx)
}

func (kc *KeycloakClient) fetchToken(ctx context.Context) error {
	tokenURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", kc.BaseURL, kc.Realm)

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", kc.ClientID)
	data.Set("client_secret", kc.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	_, respBody, err := kc.send("get_token", req)
	if err != nil {
		return err
	}

	// Parse the token from the response
	var tokenResponse TokenResponse
	if err := json.Unmarshal(respBody, &tokenResponse); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}

	kc.Token = tokenResponse.Access
	kc.tokenExpiry = time.Time{}
	if tokenResponse.ExpiresIn > 0 {
		kc.tokenExpiry = time.Now().Add(time.Duration(tokenResponse.ExpiresIn)*time.Second - tokenExpiryLeeway)
	}
	return nil
}

// bearer returns a usable admin token, fetching a new one when none is held
// or the current one is about to expire.
func (kc *KeycloakClient) bearer(ctx context.Context) (string, error) {
	kc.mu.Lock()
	defer kc.mu.Unlock()

	if kc.Token != "" && (kc.tokenExpiry.IsZero() || time.Now().Before(kc.tokenExpiry)) {
		return kc.Token, nil
	}
	if err := kc.fetchToken(ctx); err != nil {
		return "", fmt.Errorf("failed to obtain admin token: %w", err)
	}
	return kc.Token, nil
}

// GetRealmPublicKey retrieves the base64 encoded public key tokens of the realm are signed with.
func (kc *KeycloakClient) GetRealmPublicKey(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/realms/%s", kc.BaseURL, kc.Realm), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	_, respBody, err := kc.send("get_realm", req)
	if err != nil {
		return "", err
	}

	var realm struct {
		PublicKey string `json:"public_key"`
	}
	if err := json.Unmarshal(respBody, &realm); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if realm.PublicKey == "" {
		return "", fmt.Errorf("realm %s does not publish a public key", kc.Realm)
	}
	return realm.PublicKey, nil
}

// CreateUser creates a user in Keycloak and returns its ID.
func (kc *KeycloakClient) CreateUser(ctx context.Context, user models.NewUser) (string, error) {
	body, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("failed to encode user: %w", err)
	}

	resp, _, err := kc.makeRequest(ctx, "create_user", http.MethodPost, kc.adminURL("users"), body)
	if err != nil {
		return "", err
	}

	// Keycloak answers 201 with the new user in the Location header
	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("user created but no location returned, status: %d", resp.StatusCode)
	}
	return path.Base(location), nil
}

// GetUser retrieves a user by ID from Keycloak.
func (kc *KeycloakClient) GetUser(ctx context.Context, userID string) (*models.User, error) {
	_, respBody, err := kc.makeRequest(ctx, "get_user", http.MethodGet, kc.adminURL("users", userID), nil)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := json.Unmarshal(respBody, &user); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &user, nil
}

// FindUsersByUsername retrieves the users whose username matches exactly.
func (kc *KeycloakClient) FindUsersByUsername(ctx context.Context, username string) ([]models.User, error) {
	query := url.Values{}
	query.Set("username", username)
	query.Set("exact", "true")

	_, respBody, err := kc.makeRequest(ctx, "find_users", http.MethodGet, kc.adminURL("users")+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user by username: %w", err)
	}

	var users []models.User
	if err := json.Unmarshal(respBody, &users); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return users, nil
}

// DeleteUser removes a user from Keycloak.
func (kc *KeycloakClient) DeleteUser(ctx context.Context, userID string) error {
	_, _, err := kc.makeRequest(ctx, "delete_user", http.MethodDelete, kc.adminURL("users", userID), nil)
	return err
}

// GetUserRealmRoles retrieves the realm roles mapped directly to a user.
func (kc *KeycloakClient) GetUserRealmRoles(ctx context.Context, userID string) ([]models.Role, error) {
	_, respBody, err := kc.makeRequest(ctx, "get_user_roles", http.MethodGet, kc.adminURL("users", userID, "role-mappings", "realm"), nil)
	if err != nil {
		return nil, err
	}

	var roles []models.Role
	if err := json.Unmarshal(respBody, &roles); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return roles, nil
}

// GetUserGroups retrieves the groups a user is a member of.
func (kc *KeycloakClient) GetUserGroups(ctx context.Context, userID string) ([]models.Group, error) {
	_, respBody, err := kc.makeRequest(ctx, "get_user_groups", http.MethodGet, kc.adminURL("users", userID, "groups"), nil)
	if err != nil {
		return nil, err
	}

	var groups []models.Group
	if err := json.Unmarshal(respBody, &groups); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return groups, nil
}

// GetGroup retrieves a group by name from Keycloak.
func (kc *KeycloakClient) GetGroup(ctx context.Context, groupName string) (*models.Group, error) {
	query := url.Values{}
	query.Set("search", groupName)

	_, respBody, err := kc.makeRequest(ctx, "get_group", http.MethodGet, kc.adminURL("groups")+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	// Parse the response body into a slice of Group structs
	var groups []models.Group
	if err := json.Unmarshal(respBody, &groups); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// search matches substrings, so look for the exact name
	for _, group := range groups {
		if group.Name == groupName {
			return &group, nil
		}
	}

	return nil, &HTTPError{Message: fmt.Sprintf("group with name %s not found", groupName), Status: http.StatusNotFound}
}

// AddMemberToGroup adds a user to a group in Keycloak.
func (kc *KeycloakClient) AddMemberToGroup(ctx context.Context, userID, groupID string) error {
	_, _, err := kc.makeRequest(ctx, "add_group_member", http.MethodPut, kc.adminURL("users", userID, "groups", groupID), nil)
	if err != nil {
		return fmt.Errorf("failed to add member to group: %w", err)
	}
	return nil
}

// RemoveMemberFromGroup removes a user from a group in Keycloak.
func (kc *KeycloakClient) RemoveMemberFromGroup(ctx context.Context, userID, groupID string) error {
	_, _, err := kc.makeRequest(ctx, "remove_group_member", http.MethodDelete, kc.adminURL("users", userID, "groups", groupID), nil)
	if err != nil {
		return fmt.Errorf("failed to remove member from group: %w", err)
	}
	return nil
}

// GetRealmRole retrieves a realm role by name.
func (kc *KeycloakClient) GetRealmRole(ctx context.Context, roleName string) (*models.Role, error) {
	_, respBody, err := kc.makeRequest(ctx, "get_role", http.MethodGet, kc.adminURL("roles", roleName), nil)
	if err != nil {
		return nil, err
	}

	var role models.Role
	if err := json.Unmarshal(respBody, &role); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &role, nil
}

// AddRealmRoleToUser maps a realm role to a user.
func (kc *KeycloakClient) AddRealmRoleToUser(ctx context.Context, userID string, role models.Role) error {
	body, err := json.Marshal([]models.Role{role})
	if err != nil {
		return fmt.Errorf("failed to marshal role: %w", err)
	}
	_, _, err = kc.makeRequest(ctx, "add_user_role", http.MethodPost, kc.adminURL("users", userID, "role-mappings", "realm"), body)
	if err != nil {
		return fmt.Errorf("failed to add role to user: %w", err)
	}
	return nil
}

// RemoveRealmRoleFromUser removes a realm role mapping from a user.
func (kc *KeycloakClient) RemoveRealmRoleFromUser(ctx context.Context, userID string, role models.Role) error {
	body, err := json.Marshal([]models.Role{role})
	if err != nil {
		return fmt.Errorf("failed to marshal role: %w", err)
	}
	_, _, err = kc.makeRequest(ctx, "remove_user_role", http.MethodDelete, kc.adminURL("users", userID, "role-mappings", "realm"), body)
	if err != nil {
		return fmt.Errorf("failed to remove role from user: %w", err)
	}
	return nil
}

func (kc *KeycloakClient) adminURL(segments ...string) string {
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	return fmt.Sprintf("%s/admin/realms/%s/%s", kc.BaseURL, kc.Realm, strings.Join(escaped, "/"))
}

// Helper function for making authorized JSON requests to the keycloak admin API.
func (kc *KeycloakClient) makeRequest(ctx context.Context, operation, method, url string, body []byte) (*http.Response, []byte, error) {
	token, err := kc.bearer(ctx)
	if err != nil {
		return nil, nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	req.Header.Set("Content-Type", "application/json")

	return kc.send(operation, req)
}

func (kc *KeycloakClient) send(operation string, req *http.Request) (*http.Response, []byte, error) {
	resp, err := kc.HTTPClient.Do(req)
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(operation, "error").Inc()
		return nil, nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	metrics.ProviderRequestsTotal.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return resp, respBody, &HTTPError{Message: errorMessage(operation, resp, respBody), Status: resp.StatusCode}
	}

	return resp, respBody, nil
}

func errorMessage(operation string, resp *http.Response, body []byte) string {
	var kcErr KeycloakError
	if err := json.Unmarshal(body, &kcErr); err == nil {
		switch {
		case kcErr.ErrorMessage != "":
			return fmt.Sprintf("%s failed: %s", operation, kcErr.ErrorMessage)
		case kcErr.ErrorDescription != "":
			return fmt.Sprintf("%s failed: %s", operation, kcErr.ErrorDescription)
		case kcErr.Error != "":
			return fmt.Sprintf("%s failed: %s", operation, kcErr.Error)
		}
	}
	return fmt.Sprintf("%s failed: status %d, body: %s", operation, resp.StatusCode, string(body))
}
