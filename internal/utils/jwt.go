package utils // package utils provides token issuing and verification helpers

import (
	"crypto/rsa"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens

	"github.com/iliyamo/auth-service/internal/model"
)

// AccessClaims is the claim set carried by access tokens.  Access tokens
// are stateless: validity is signature + issuer + expiry only.
type AccessClaims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims is the claim set carried by refresh tokens.  The ID field
// (jti) holds the refresh token ledger row id; a refresh token is only
// valid while that row exists.
type RefreshClaims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies the two token kinds.  Access tokens are signed
// with RS256 so any holder of the public key can verify them without the
// refresh secret; refresh tokens are signed with HS256 because only this
// service ever verifies them, and they pair with the server-side ledger.
// All fields are set once at startup and read-only afterwards.
type Issuer struct {
	privateKey    *rsa.PrivateKey
	publicKey     *rsa.PublicKey
	refreshSecret []byte
	name          string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewIssuer builds an Issuer from the process-wide key material.  The
// verification key for access tokens is derived from the private key.
func NewIssuer(privateKey *rsa.PrivateKey, refreshSecret []byte, name string, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if privateKey == nil {
		return nil, errors.New("utils: nil access token private key")
	}
	if len(refreshSecret) == 0 {
		return nil, errors.New("utils: empty refresh token secret")
	}
	return &Issuer{
		privateKey:    privateKey,
		publicKey:     &privateKey.PublicKey,
		refreshSecret: refreshSecret,
		name:          name,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

// PublicKey returns the RSA public key used to verify access tokens.
func (i *Issuer) PublicKey() *rsa.PublicKey { return i.publicKey }

// AccessToken builds and signs an RS256 access token for a user.  Claims
// are sub (user id), role, iss, exp and iat.  A signing failure is a
// server fault; no token is returned in that case.
func (i *Issuer) AccessToken(userID uint64, role model.Role) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(i.accessTTL)
	claims := AccessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			Issuer:    i.name,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(i.privateKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// RefreshToken builds and signs an HS256 refresh token bound to a ledger
// row.  ledgerID must be the id of a just-created refresh_tokens row so
// that token and row map 1:1 at issuance time.
func (i *Issuer) RefreshToken(userID uint64, role model.Role, ledgerID uint64) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(i.refreshTTL)
	claims := RefreshClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        strconv.FormatUint(ledgerID, 10),
			Subject:   strconv.FormatUint(userID, 10),
			Issuer:    i.name,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.refreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseAccess verifies an access token's signature, issuer and expiry and
// returns its claims.  Tokens signed with any method other than RS256 are
// rejected before the key is consulted.
func (i *Issuer) ParseAccess(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) { return i.publicKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(i.name),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token's signature, issuer and expiry and
// returns its claims.  Ledger revocation is checked separately by the
// caller; a valid signature alone does not make a refresh token usable.
func (i *Issuer) ParseRefresh(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) { return i.refreshSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.name),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}

// SubjectID parses a sub claim into a user id.
func SubjectID(claims jwt.Claims) (uint64, error) {
	sub, err := claims.GetSubject()
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(sub, 10, 64)
}
