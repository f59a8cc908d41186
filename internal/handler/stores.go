package handler

import (
	"context"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
)

// The handlers depend on narrow store interfaces instead of the concrete
// repositories so the HTTP flows can be exercised against in-memory fakes.
// The repository types satisfy these interfaces.

// UserStore is the persistence surface the auth and user handlers need.
type UserStore interface {
	Create(ctx context.Context, nu repository.NewUser, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context, q repository.UserQuery) ([]model.User, int, error)
	Update(ctx context.Context, id uint64, up repository.UserUpdate) error
	Delete(ctx context.Context, id uint64) error
}

// TokenLedger is the refresh token ledger surface used by the auth flows.
type TokenLedger interface {
	Create(ctx context.Context, userID uint64) (model.RefreshToken, error)
	Revoke(ctx context.Context, id uint64) error
	IsRevoked(ctx context.Context, id, userID uint64) bool
}

// TenantStore is the persistence surface the tenant handler needs.
type TenantStore interface {
	Create(ctx context.Context, name, address string) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Tenant, error)
	List(ctx context.Context) ([]model.Tenant, error)
	Update(ctx context.Context, id uint64, name, address string) error
	Delete(ctx context.Context, id uint64) error
}
