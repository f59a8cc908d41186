package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/auth-service/internal/model"
)

// TokenRepo is the refresh token ledger.  One row is inserted per issued
// refresh token and the row id travels inside the token as its jti claim.
// Revocation is deletion: a token whose row is gone is revoked regardless
// of its signature.
type TokenRepo struct {
	DB  *sql.DB
	TTL time.Duration // lifetime of a ledger row, normally 30 days
}

func NewTokenRepo(db *sql.DB, ttl time.Duration) *TokenRepo {
	return &TokenRepo{DB: db, TTL: ttl}
}

// Create inserts a new ledger row for the user and returns it.  The
// returned id must be embedded in the refresh token issued right after.
func (r *TokenRepo) Create(ctx context.Context, userID uint64) (model.RefreshToken, error) {
	exp := time.Now().UTC().Add(r.TTL)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, expires_at) VALUES (?,?)",
		userID, exp)
	if err != nil {
		return model.RefreshToken{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.RefreshToken{}, err
	}
	return model.RefreshToken{ID: uint64(id), UserID: userID, ExpiresAt: exp}, nil
}

// Revoke deletes the ledger row by id.  Deleting an already-absent id is
// not an error, so logout and rotation stay idempotent.
func (r *TokenRepo) Revoke(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE id=?", id)
	return err
}

// IsRevoked reports whether the refresh token identified by id is no
// longer valid for userID.  A row must match both the id and the owning
// user; a mismatch between the token's sub claim and the row's owner
// counts as revoked.  Lookup failures fail closed: when the store cannot
// be queried the token is treated as revoked rather than trusted.
func (r *TokenRepo) IsRevoked(ctx context.Context, id, userID uint64) bool {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM refresh_tokens WHERE id=? AND user_id=? LIMIT 1",
		id, userID).Scan(&one)
	if err == nil {
		return false
	}
	if !errors.Is(err, sql.ErrNoRows) {
		log.Printf("token repo: revocation lookup failed for id=%d: %v", id, err)
	}
	return true
}

// DeleteExpired removes ledger rows whose expiry has passed.  The token's
// own exp claim already blocks use of expired tokens; this keeps the table
// from growing without bound.
func (r *TokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE expires_at < ?", time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SweepExpired runs DeleteExpired every interval until ctx is cancelled.
// Meant to run in its own goroutine for the lifetime of the server; sweep
// failures are logged and retried on the next tick.
func (r *TokenRepo) SweepExpired(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.DeleteExpired(ctx)
			if err != nil {
				log.Printf("token repo: expiry sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("token repo: expiry sweep removed %d rows", n)
			}
		}
	}
}
