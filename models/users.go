package models

// UserRequest is the payload accepted when creating a user.
type UserRequest struct {
	Username  string `json:"username" validate:"required,min=2,max=30"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=4"`
	FirstName string `json:"firstName" validate:"required,min=2,max=30"`
	LastName  string `json:"lastName" validate:"required,min=2,max=30"`
}

// UserResponse is the projection of an identity provider user returned by the API.
type UserResponse struct {
	Username  string   `json:"username"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
	Roles     []string `json:"roles"`
	Groups    []string `json:"groups"`
}

// CreatedResponse carries the identifier of a newly created user.
type CreatedResponse struct {
	ID string `json:"id"`
}

// UserSummary is a short form of a user used in search results.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// User represents a user in the identity provider.
type User struct {
	ID        string `json:"id,omitempty"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Enabled   bool   `json:"enabled"`
}

// Credential is a password credential attached to a new user.
type Credential struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

// NewUser is the representation posted to the identity provider to create a user.
type NewUser struct {
	User
	Credentials []Credential `json:"credentials"`
}

// Group represents a group in the identity provider.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
}

// Role represents a realm role in the identity provider.
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
