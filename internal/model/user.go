package model

import "time"

// Role enumerates the closed set of roles a user may hold.  Keeping the
// type distinct from string forces callers to go through ParseRole when
// accepting role values from the outside world.
type Role string

const (
	RoleAdmin    Role = "admin"    // full access to user and tenant management
	RoleCustomer Role = "customer" // default role for self-registration
	RoleManager  Role = "manager"  // tenant-scoped employee role
	RoleSupport  Role = "support"  // tenant-scoped employee role
)

// ParseRole reports whether a raw string names a known role and returns it.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleCustomer, RoleManager, RoleSupport:
		return Role(s), true
	}
	return "", false
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// RequiresTenant reports whether users with this role must belong to a
// tenant.  Manager and support accounts are employee accounts scoped to a
// tenant; admin and customer accounts are not.
func (r Role) RequiresTenant() bool {
	return r == RoleManager || r == RoleSupport
}

// User mirrors the `users` table.  Each field corresponds to a column.
// PasswordHash is only populated on the login lookup path; handlers define
// separate response types so the hash never leaks into JSON output.
//
// Fields:
//  ID           – primary key identifier of the user.
//  FirstName    – given name, non-empty.
//  LastName     – family name, non-empty.
//  Email        – unique email address, stored trimmed and lowercased.
//  PasswordHash – bcrypt hashed password.
//  Role         – one of the Role constants.
//  TenantID     – optional foreign key into the tenants table.
//  Tenant       – tenant relation when loaded with a join, nil otherwise.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	FirstName    string    // users.first_name
	LastName     string    // users.last_name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         Role      // users.role
	TenantID     *uint64   // users.tenant_id (nullable)
	Tenant       *Tenant   // joined tenant row, if any
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
