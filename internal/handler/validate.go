package handler

import (
	"net/mail"
	"strings"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
)

// Request validation lives at the handler boundary: malformed input is
// rejected with a field-tagged message before any store or crypto work.
// A fieldError names the first offending field, matching the uniform
// error shape {"error": ..., "field": ...}.

type fieldError struct {
	Field   string
	Message string
}

const minPasswordLen = 8

// validEmail reports whether the address parses as a bare RFC 5322 address.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// validateIdentity checks the name and email fields shared by register,
// admin-create and admin-update requests.  The email is canonicalized
// in place.
func validateIdentity(firstName, lastName *string, email *string) *fieldError {
	*firstName = strings.TrimSpace(*firstName)
	*lastName = strings.TrimSpace(*lastName)
	*email = repository.CanonicalEmail(*email)
	if *firstName == "" {
		return &fieldError{"firstName", "first name is required"}
	}
	if *lastName == "" {
		return &fieldError{"lastName", "last name is required"}
	}
	if *email == "" {
		return &fieldError{"email", "email is required"}
	}
	if !validEmail(*email) {
		return &fieldError{"email", "invalid email"}
	}
	return nil
}

// validatePassword enforces the minimum password length.
func validatePassword(password string) *fieldError {
	if password == "" {
		return &fieldError{"password", "password is required"}
	}
	if len(password) < minPasswordLen {
		return &fieldError{"password", "password must be at least 8 characters long"}
	}
	return nil
}

// validateRoleAssignment parses the requested role and checks the tenant
// rule: manager and support accounts must belong to a tenant.
func validateRoleAssignment(rawRole string, tenantID *uint64) (model.Role, *fieldError) {
	role, ok := model.ParseRole(strings.TrimSpace(rawRole))
	if !ok {
		return "", &fieldError{"role", "unknown role"}
	}
	if role.RequiresTenant() && tenantID == nil {
		return "", &fieldError{"tenantId", "tenant is required for this role"}
	}
	return role, nil
}

// validateTenant checks tenant name and address constraints.
func validateTenant(name, address *string) *fieldError {
	*name = strings.TrimSpace(*name)
	*address = strings.TrimSpace(*address)
	if *name == "" {
		return &fieldError{"name", "tenant name is required"}
	}
	if len(*name) < 3 {
		return &fieldError{"name", "tenant name must be at least 3 characters long"}
	}
	if len(*name) > 100 {
		return &fieldError{"name", "tenant name must be at most 100 characters long"}
	}
	if *address == "" {
		return &fieldError{"address", "tenant address is required"}
	}
	if len(*address) > 255 {
		return &fieldError{"address", "tenant address must be at most 255 characters long"}
	}
	return nil
}
