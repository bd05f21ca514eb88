package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/itm-space/backend-resources/api/middleware"
	"github.com/itm-space/backend-resources/api/services"
	"github.com/itm-space/backend-resources/internal/authn"
	"github.com/itm-space/backend-resources/models"
	"github.com/rs/zerolog"
)

// @Summary Create a user
// @Description Create an enabled user in the identity provider with a permanent password.
// @Tags users
// @Accept json
// @Produce json
// @Param user body models.UserRequest true "User to create"
// @Success 201 {object} models.CreatedResponse
// @Failure 400 {object} models.Response
// @Failure 401 {object} string
// @Failure 403 {object} string
// @Failure 409 {object} models.Response
// @Failure 500 {object} models.Response
// @Router /users [post]
func CreateUser(svc UserService, validate *Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())

		var req models.UserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Warn().Err(err).Msg("Invalid request payload")
			services.HandleErrResponse(w, http.StatusBadRequest, errors.New("invalid request payload"))
			return
		}

		if err := validate.Validate(req); err != nil {
			logger.Warn().Err(err).Str("username", req.Username).Msg("Validation failed")
			services.HandleErrResponse(w, http.StatusBadRequest, err)
			return
		}

		id, err := svc.CreateUser(r.Context(), principal(r), req)
		if err != nil {
			services.HandleServiceError(w, err)
			return
		}

		services.WriteResponse(w, http.StatusCreated, models.CreatedResponse{ID: id}, path.Join(r.URL.Path, id))
	}
}

// @Summary Get a user
// @Description Get a user's profile together with its realm roles and groups.
// @Tags users
// @Produce json
// @Param id path string true "User ID" format(uuid)
// @Success 200 {object} models.UserResponse
// @Failure 400 {object} models.Response
// @Failure 401 {object} string
// @Failure 403 {object} string
// @Failure 404 {object} models.Response
// @Failure 500 {object} models.Response
// @Router /users/{id} [get]
func GetUser(svc UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userID(w, r)
		if !ok {
			return
		}

		user, err := svc.GetUserByID(r.Context(), id)
		if err != nil {
			services.HandleServiceError(w, err)
			return
		}

		services.WriteResponse(w, http.StatusOK, user)
	}
}

// @Summary Find users
// @Description Find users by exact username.
// @Tags users
// @Produce json
// @Param username query string true "Username"
// @Success 200 {array} models.UserSummary
// @Failure 400 {object} models.Response
// @Failure 401 {object} string
// @Failure 403 {object} string
// @Failure 500 {object} models.Response
// @Router /users [get]
func FindUsers(svc UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := r.URL.Query().Get("username")
		if username == "" {
			services.HandleErrResponse(w, http.StatusBadRequest, errors.New("username query parameter is required"))
			return
		}

		users, err := svc.FindUsers(r.Context(), username)
		if err != nil {
			services.HandleServiceError(w, err)
			return
		}

		services.WriteResponse(w, http.StatusOK, users)
	}
}

// @Summary Delete a user
// @Tags users
// @Param id path string true "User ID" format(uuid)
// @Success 204 "No Content"
// @Failure 400 {object} models.Response
// @Failure 401 {object} string
// @Failure 403 {object} string
// @Failure 404 {object} models.Response
// @Failure 500 {object} models.Response
// @Router /users/{id} [delete]
func DeleteUser(svc UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userID(w, r)
		if !ok {
			return
		}

		if err := svc.DeleteUser(r.Context(), principal(r), id); err != nil {
			services.HandleServiceError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// @Summary Get a user's audit trail
// @Description List the recorded events for a user, oldest first.
// @Tags users
// @Produce json
// @Param id path string true "User ID" format(uuid)
// @Success 200 {array} models.AuditEntry
// @Failure 400 {object} models.Response
// @Failure 401 {object} string
// @Failure 403 {object} string
// @Failure 500 {object} models.Response
// @Router /users/{id}/audit [get]
func GetUserAudit(audit AuditTrail) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userID(w, r)
		if !ok {
			return
		}

		entries, err := audit.ListForUser(r.Context(), id.String())
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Str("user_id", id.String()).Msg("Failed to list audit entries")
			services.HandleErrResponse(w, http.StatusInternalServerError, errors.New("failed to retrieve audit trail"))
			return
		}

		services.WriteResponse(w, http.StatusOK, entries)
	}
}

// @Summary Hello
// @Description Echo the authenticated principal's username.
// @Tags users
// @Produce plain
// @Success 200 {string} string
// @Failure 401 {object} string
// @Failure 403 {object} string
// @Router /users/hello [get]
func Hello() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := r.Context().Value(middleware.ClaimsKey).(authn.Claims)
		if !ok {
			http.Error(w, "Invalid claims", http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, claims.Principal())
	}
}

// @Summary Add a user to a group
// @Tags groups
// @Param id path string true "User ID" format(uuid)
// @Param group path string true "Group name"
// @Success 204 "No Content"
// @Failure 400 {object} models.Response
// @Failure 404 {object} models.Response
// @Failure 500 {object} models.Response
// @Router /users/{id}/groups/{group} [put]
func AddUserToGroup(svc UserService) http.HandlerFunc {
	return membership(svc.AddUserToGroup, "group")
}

// @Summary Remove a user from a group
// @Tags groups
// @Param id path string true "User ID" format(uuid)
// @Param group path string true "Group name"
// @Success 204 "No Content"
// @Failure 400 {object} models.Response
// @Failure 404 {object} models.Response
// @Failure 500 {object} models.Response
// @Router /users/{id}/groups/{group} [delete]
func RemoveUserFromGroup(svc UserService) http.HandlerFunc {
	return membership(svc.RemoveUserFromGroup, "group")
}

// @Summary Grant a realm role to a user
// @Tags roles
// @Param id path string true "User ID" format(uuid)
// @Param role path string true "Role name"
// @Success 204 "No Content"
// @Failure 400 {object} models.Response
// @Failure 404 {object} models.Response
// @Failure 500 {object} models.Response
// @Router /users/{id}/roles/{role} [put]
func GrantRole(svc UserService) http.HandlerFunc {
	return membership(svc.GrantRole, "role")
}

// @Summary Revoke a realm role from a user
// @Tags roles
// @Param id path string true "User ID" format(uuid)
// @Param role path string true "Role name"
// @Success 204 "No Content"
// @Failure 400 {object} models.Response
// @Failure 404 {object} models.Response
// @Failure 500 {object} models.Response
// @Router /users/{id}/roles/{role} [delete]
func RevokeRole(svc UserService) http.HandlerFunc {
	return membership(svc.RevokeRole, "role")
}

type membershipFunc func(ctx context.Context, id uuid.UUID, name string) error

// membership handles PUT/DELETE on /users/{id}/{kind}s/{name}.
func membership(apply membershipFunc, kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userID(w, r)
		if !ok {
			return
		}

		if err := apply(r.Context(), id, mux.Vars(r)[kind]); err != nil {
			services.HandleServiceError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// userID parses the {id} path variable, writing a 400 when it is not a UUID.
func userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := mux.Vars(r)["id"]
	id, err := uuid.Parse(raw)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Str("id", raw).Msg("Invalid user id")
		services.HandleErrResponse(w, http.StatusBadRequest, fmt.Errorf("invalid user id %q", raw))
		return uuid.Nil, false
	}
	return id, true
}

func principal(r *http.Request) string {
	if claims, ok := r.Context().Value(middleware.ClaimsKey).(authn.Claims); ok {
		return claims.Principal()
	}
	return ""
}
