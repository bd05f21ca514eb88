package authn

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt"
)

var ErrInvalidJWT = errors.New("invalid jwt token")
var ErrInvalidClaims = errors.New("invalid claims")

type access struct {
	Roles []string `json:"roles"`
}

type Claims struct {
	jwt.StandardClaims
	Username       string            `json:"preferred_username"`
	RealmAccess    access            `json:"realm_access"`
	ResourceAccess map[string]access `json:"resource_access"`
}

// Principal returns the name of the authenticated user, falling back to the
// subject when the token carries no preferred_username.
func (c Claims) Principal() string {
	if c.Username != "" {
		return c.Username
	}
	return c.Subject
}

// HasRole reports whether the realm roles, or the roles granted by clientID,
// contain role. A "ROLE_" prefix on either side is ignored.
func (c Claims) HasRole(clientID, role string) bool {
	want := normalizeRole(role)
	roles := append([]string{}, c.RealmAccess.Roles...)
	if client, ok := c.ResourceAccess[clientID]; ok && clientID != "" {
		roles = append(roles, client.Roles...)
	}
	for _, r := range roles {
		if normalizeRole(r) == want {
			return true
		}
	}
	return false
}

func normalizeRole(role string) string {
	return strings.TrimPrefix(strings.ToUpper(role), "ROLE_")
}

// ParseClaims decodes the claims of token without checking its signature.
// The token is expected to have been validated by the gateway in front of
// the service.
func ParseClaims(token string) (Claims, error) {
	claims := Claims{}
	// Check if token is JWT by attempting to parse it
	if t, err := jwt.ParseWithClaims(token, &claims, nil); err != nil {
		// Ignore validation errors (no need to check signing of key)
		ve, ok := err.(*jwt.ValidationError)
		if !ok || t == nil {
			return Claims{}, ErrInvalidJWT
		}

		// Header or claims that could not be decoded
		if ve.Errors&jwt.ValidationErrorMalformed != 0 {
			return Claims{}, fmt.Errorf("%w: %v", ErrInvalidJWT, ve)
		}
	}
	return claims, nil
}

// Verifier checks token signatures against the realm public key.
type Verifier struct {
	keyFunc jwt.Keyfunc
}

// NewVerifier builds a Verifier from the base64 encoded realm public key as
// published by Keycloak at /realms/{realm}.
func NewVerifier(realmPublicKey string) (*Verifier, error) {
	pem := fmt.Sprintf("-----BEGIN PUBLIC KEY-----\n%s\n-----END PUBLIC KEY-----", realmPublicKey)
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
	if err != nil {
		return nil, fmt.Errorf("failed to parse realm public key: %w", err)
	}

	return &Verifier{
		keyFunc: func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method %s", t.Header["alg"])
			}
			return key, nil
		},
	}, nil
}

// Verify parses token and requires a valid signature and unexpired claims.
func (v *Verifier) Verify(token string) (Claims, error) {
	claims := Claims{}
	t, err := jwt.ParseWithClaims(token, &claims, v.keyFunc)
	if err != nil {
		return claims, fmt.Errorf("%w: %v", ErrInvalidJWT, err)
	}
	if !t.Valid {
		return claims, ErrInvalidClaims
	}
	return claims, nil
}
