package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/itm-space/backend-resources/api/middleware"
)

// RegisterUserRoutes adds the user endpoints to api. Callers are expected to
// have installed the JWT middleware on api already; every route here also
// requires role. The audit route is only added when audit is not nil.
func RegisterUserRoutes(api *mux.Router, svc UserService, audit AuditTrail, clientID, role string) {
	users := api.PathPrefix("/users").Subrouter()
	users.Use(middleware.RequireRole(clientID, role))

	validate := NewValidator()

	// hello is registered before /{id} so it is not captured as an id
	users.HandleFunc("/hello", Hello()).Methods(http.MethodGet)

	users.HandleFunc("", CreateUser(svc, validate)).Methods(http.MethodPost)
	users.HandleFunc("", FindUsers(svc)).Methods(http.MethodGet)
	users.HandleFunc("/{id}", GetUser(svc)).Methods(http.MethodGet)
	users.HandleFunc("/{id}", DeleteUser(svc)).Methods(http.MethodDelete)

	users.HandleFunc("/{id}/groups/{group}", AddUserToGroup(svc)).Methods(http.MethodPut)
	users.HandleFunc("/{id}/groups/{group}", RemoveUserFromGroup(svc)).Methods(http.MethodDelete)
	users.HandleFunc("/{id}/roles/{role}", GrantRole(svc)).Methods(http.MethodPut)
	users.HandleFunc("/{id}/roles/{role}", RevokeRole(svc)).Methods(http.MethodDelete)

	if audit != nil {
		users.HandleFunc("/{id}/audit", GetUserAudit(audit)).Methods(http.MethodGet)
	}
}
