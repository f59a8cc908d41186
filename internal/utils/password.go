package utils

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost is used when no cost is configured.
const DefaultBcryptCost = 10

// HashPassword returns a bcrypt hash of plain using the given cost.  The
// salt is random, so hashing the same input twice yields different values.
func HashPassword(plain string, cost int) (string, error) {
	if cost <= 0 {
		cost = DefaultBcryptCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword compares a bcrypt hash against a plain password in
// constant time.  It returns false on any mismatch and never panics.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
