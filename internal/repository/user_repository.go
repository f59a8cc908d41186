package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/utils"
)

const mysqlErrDupEntry = 1062

// UserRepo provides persistence for the users table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NewUser carries the input for creating a user.  TenantID may be nil for
// roles that do not belong to a tenant.
type NewUser struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      model.Role
	TenantID  *uint64
}

// UserUpdate carries the admin-editable fields of a user.
type UserUpdate struct {
	FirstName string
	LastName  string
	Email     string
	Role      model.Role
	TenantID  *uint64
}

// UserQuery holds list filters and pagination.
type UserQuery struct {
	Q           string     // matches against full name and email
	Role        model.Role // empty means any role
	CurrentPage int
	PageSize    int
}

// Create hashes the password and inserts the user, returning the new id.
// The email is canonicalized before storage.  Duplicate emails surface as
// ErrEmailExists through the unique index, which also closes the
// check-then-insert race between concurrent registrations.
func (r *UserRepo) Create(ctx context.Context, nu NewUser, cost int) (uint64, error) {
	email := CanonicalEmail(nu.Email)
	hash, err := utils.HashPassword(nu.Password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (first_name, last_name, email, password_hash, role, tenant_id) VALUES (?,?,?,?,?,?)",
		nu.FirstName, nu.LastName, email, hash, string(nu.Role), tenantArg(nu.TenantID))
	if err != nil {
		if isDupEntry(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by canonicalized email, including the password
// hash.  This is the login lookup; every other read path leaves the hash
// out of the response.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	var tenantID sql.NullInt64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, first_name, last_name, email, password_hash, role, tenant_id, created_at, updated_at FROM users WHERE email=? LIMIT 1",
		CanonicalEmail(email)).
		Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.Role, &tenantID, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.TenantID = tenantPtr(tenantID)
	return u, nil
}

// GetByID fetches a user by id together with its tenant relation.  The
// password hash is not selected.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	var tenantID sql.NullInt64
	var tName, tAddress sql.NullString
	err := r.DB.QueryRowContext(ctx,
		`SELECT u.id, u.first_name, u.last_name, u.email, u.role, u.tenant_id, u.created_at, u.updated_at,
		        t.name, t.address
		 FROM users u LEFT JOIN tenants t ON t.id = u.tenant_id
		 WHERE u.id=? LIMIT 1`, id).
		Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Role, &tenantID, &u.CreatedAt, &u.UpdatedAt,
			&tName, &tAddress)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.TenantID = tenantPtr(tenantID)
	if u.TenantID != nil && tName.Valid {
		u.Tenant = &model.Tenant{ID: *u.TenantID, Name: tName.String, Address: tAddress.String}
	}
	return u, nil
}

// List returns a page of users plus the total count matching the filters.
// The free-text filter matches the concatenated full name and the email.
func (r *UserRepo) List(ctx context.Context, q UserQuery) ([]model.User, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if q.Q != "" {
		where = append(where, "(CONCAT(u.first_name, ' ', u.last_name) LIKE ? OR u.email LIKE ?)")
		pat := "%" + q.Q + "%"
		args = append(args, pat, pat)
	}
	if q.Role != "" {
		where = append(where, "u.role = ?")
		args = append(args, string(q.Role))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users u WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if q.CurrentPage < 1 {
		q.CurrentPage = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 10
	}
	offset := (q.CurrentPage - 1) * q.PageSize
	query := fmt.Sprintf(
		`SELECT u.id, u.first_name, u.last_name, u.email, u.role, u.tenant_id, u.created_at, u.updated_at,
		        t.name, t.address
		 FROM users u LEFT JOIN tenants t ON t.id = u.tenant_id
		 WHERE %s ORDER BY u.id DESC LIMIT ? OFFSET ?`, cond)
	rows, err := r.DB.QueryContext(ctx, query, append(args, q.PageSize, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		var tenantID sql.NullInt64
		var tName, tAddress sql.NullString
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Role, &tenantID,
			&u.CreatedAt, &u.UpdatedAt, &tName, &tAddress); err != nil {
			return nil, 0, err
		}
		u.TenantID = tenantPtr(tenantID)
		if u.TenantID != nil && tName.Valid {
			u.Tenant = &model.Tenant{ID: *u.TenantID, Name: tName.String, Address: tAddress.String}
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// Update rewrites the admin-editable fields of a user.  ErrNotFound is
// returned when the user does not exist; an email collision with another
// user surfaces as ErrEmailExists.
func (r *UserRepo) Update(ctx context.Context, id uint64, up UserUpdate) error {
	var exists int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=? LIMIT 1", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE users SET first_name=?, last_name=?, email=?, role=?, tenant_id=? WHERE id=?",
		up.FirstName, up.LastName, CanonicalEmail(up.Email), string(up.Role), tenantArg(up.TenantID), id)
	if isDupEntry(err) {
		return ErrEmailExists
	}
	return err
}

// Delete removes a user by id.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByTenant returns how many users reference the given tenant.  Used
// to enforce restrict-delete on tenants.
func (r *UserRepo) CountByTenant(ctx context.Context, tenantID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE tenant_id=?", tenantID).Scan(&n)
	return n, err
}

// EnsureAdmin creates the bootstrap admin account when no admin with the
// given email exists yet.  Safe to call on every startup.
func (r *UserRepo) EnsureAdmin(ctx context.Context, email, password string, cost int) error {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM users WHERE role=? AND email=? LIMIT 1",
		string(model.RoleAdmin), CanonicalEmail(email)).Scan(&one)
	if err == nil {
		return nil // already bootstrapped
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	_, err = r.Create(ctx, NewUser{
		FirstName: "Super",
		LastName:  "Admin",
		Email:     email,
		Password:  password,
		Role:      model.RoleAdmin,
	}, cost)
	if errors.Is(err, ErrEmailExists) {
		return nil // raced with another instance
	}
	return err
}

// CanonicalEmail trims surrounding whitespace and lowercases an email so
// storage and lookups agree on a single form.
func CanonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isDupEntry reports whether err is the MySQL duplicate-entry error.
func isDupEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDupEntry
}

// tenantArg converts an optional tenant id into a driver-friendly value.
func tenantArg(id *uint64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

// tenantPtr converts a nullable column back into an optional tenant id.
func tenantPtr(v sql.NullInt64) *uint64 {
	if !v.Valid {
		return nil
	}
	id := uint64(v.Int64)
	return &id
}
