package model

import "time"

// RefreshToken models an entry in the `refresh_tokens` table, the ledger
// of outstanding refresh tokens.  The row id is embedded in the signed
// refresh token as its jti claim; a token whose row has been deleted is
// revoked no matter how its signature validates.
//
// Fields:
//  ID        – primary key identifier, carried as the token's jti claim.
//  UserID    – owner of the token.
//  ExpiresAt – expiration timestamp of the token.
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update.
type RefreshToken struct {
	ID        uint64    // refresh_tokens.id
	UserID    uint64    // refresh_tokens.user_id
	ExpiresAt time.Time // refresh_tokens.expires_at
	CreatedAt time.Time // refresh_tokens.created_at
	UpdatedAt time.Time // refresh_tokens.updated_at
}
