package handlers

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/itm-space/backend-resources/models"
)

// UserService is the user management behaviour the HTTP layer depends on.
type UserService interface {
	CreateUser(ctx context.Context, actor string, req models.UserRequest) (string, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.UserResponse, error)
	FindUsers(ctx context.Context, username string) ([]models.UserSummary, error)
	DeleteUser(ctx context.Context, actor string, id uuid.UUID) error
	AddUserToGroup(ctx context.Context, id uuid.UUID, groupName string) error
	RemoveUserFromGroup(ctx context.Context, id uuid.UUID, groupName string) error
	GrantRole(ctx context.Context, id uuid.UUID, roleName string) error
	RevokeRole(ctx context.Context, id uuid.UUID, roleName string) error
}

// AuditTrail reads the recorded user events.
type AuditTrail interface {
	ListForUser(ctx context.Context, userID string) ([]models.AuditEntry, error)
}

// Validator checks request bodies against their `validate` tags and reports
// failures using the JSON field names.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

func (val *Validator) Validate(i any) error {
	if err := val.v.Struct(i); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, fieldError(fe))
			}
			return fmt.Errorf("%s", strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
