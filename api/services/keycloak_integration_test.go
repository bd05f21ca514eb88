package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/itm-space/backend-resources/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupKeycloakContainer starts a development Keycloak with a bootstrap
// service account client in the master realm.
func setupKeycloakContainer(t *testing.T) *KeycloakClient {
	if os.Getenv("INTEGRATION") != "1" {
		t.Skip("set INTEGRATION=1 to run Keycloak tests")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "quay.io/keycloak/keycloak:26.0",
		ExposedPorts: []string{"8080/tcp"},
		Cmd:          []string{"start-dev"},
		Env: map[string]string{
			"KC_BOOTSTRAP_ADMIN_CLIENT_ID":     "backend-resources",
			"KC_BOOTSTRAP_ADMIN_CLIENT_SECRET": "integration-secret",
		},
		WaitingFor: wait.ForHTTP("/realms/master").
			WithPort("8080/tcp").
			WithStartupTimeout(3 * time.Minute),
	}

	keycloakC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = keycloakC.Terminate(ctx)
	})

	host, err := keycloakC.Host(ctx)
	require.NoError(t, err)
	port, err := keycloakC.MappedPort(ctx, "8080/tcp")
	require.NoError(t, err)

	return NewKeycloakClient(fmt.Sprintf("http://%s:%s", host, port.Port()), "backend-resources", "integration-secret", "master")
}

func TestKeycloakIntegration_UserLifecycle(t *testing.T) {
	kc := setupKeycloakContainer(t)
	ctx := context.Background()

	publicKey, err := kc.GetRealmPublicKey(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, publicKey)

	newUser := models.NewUser{
		User: models.User{
			Username:  "integration-user",
			Email:     "integration@example.com",
			FirstName: "Integration",
			LastName:  "User",
			Enabled:   true,
		},
		Credentials: []models.Credential{{Type: "password", Value: "securePassword"}},
	}

	id, err := kc.CreateUser(ctx, newUser)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = kc.CreateUser(ctx, newUser)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusConflict, httpErr.Status)

	user, err := kc.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "integration-user", user.Username)
	assert.Equal(t, "integration@example.com", user.Email)

	found, err := kc.FindUsersByUsername(ctx, "integration-user")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, id, found[0].ID)

	roles, err := kc.GetUserRealmRoles(ctx, id)
	require.NoError(t, err)
	assert.NotEmpty(t, roles)

	groups, err := kc.GetUserGroups(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, groups)

	require.NoError(t, kc.DeleteUser(ctx, id))

	_, err = kc.GetUser(ctx, id)
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.Status)
}
