package model

import "time"

// Tenant models a row in the `tenants` table.  A tenant is an
// organizational scope that manager and support users belong to.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name of the tenant, at least 3 characters.
//  Address   – postal address of the tenant.
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update.
type Tenant struct {
	ID        uint64    // tenants.id
	Name      string    // tenants.name
	Address   string    // tenants.address
	CreatedAt time.Time // tenants.created_at
	UpdatedAt time.Time // tenants.updated_at
}
