package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/auth-service/internal/model"
)

// TenantRepo provides persistence for the tenants table.  It holds a
// UserRepo for the restrict-delete check: a tenant with users attached
// cannot be removed.
type TenantRepo struct {
	DB    *sql.DB
	users *UserRepo
}

func NewTenantRepo(db *sql.DB) *TenantRepo {
	return &TenantRepo{DB: db, users: NewUserRepo(db)}
}

// Create inserts a tenant and returns its id.
func (r *TenantRepo) Create(ctx context.Context, name, address string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO tenants (name, address) VALUES (?,?)", name, address)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a tenant by id.
func (r *TenantRepo) GetByID(ctx context.Context, id uint64) (model.Tenant, error) {
	var t model.Tenant
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, address, created_at, updated_at FROM tenants WHERE id=? LIMIT 1", id).
		Scan(&t.ID, &t.Name, &t.Address, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Tenant{}, ErrNotFound
	}
	return t, err
}

// List returns all tenants ordered by id.
func (r *TenantRepo) List(ctx context.Context) ([]model.Tenant, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, name, address, created_at, updated_at FROM tenants ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tenants := []model.Tenant{}
	for rows.Next() {
		var t model.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Address, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// Update rewrites a tenant's name and address.
func (r *TenantRepo) Update(ctx context.Context, id uint64, name, address string) error {
	var exists int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM tenants WHERE id=? LIMIT 1", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE tenants SET name=?, address=? WHERE id=?", name, address, id)
	return err
}

// Delete removes a tenant by id.  Tenants that still have users attached
// cannot be deleted; the caller receives ErrConflict (restrict-delete).
func (r *TenantRepo) Delete(ctx context.Context, id uint64) error {
	n, err := r.users.CountByTenant(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM tenants WHERE id=?", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
