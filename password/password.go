// Package password wraps bcrypt hashing and fixed-cost verification for
// account credentials.
package password

import "golang.org/x/crypto/bcrypt"

// DefaultCost is the bcrypt work factor used when no explicit cost is given.
const DefaultCost = bcrypt.DefaultCost

// Hash derives a bcrypt hash of plain at [DefaultCost].
func Hash(plain string) (string, error) {
	return HashWithCost(plain, DefaultCost)
}

// HashWithCost derives a bcrypt hash of plain at the given work factor.
func HashWithCost(plain string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether plain matches hash. The comparison cost is fixed
// by bcrypt regardless of where the mismatch occurs.
func Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
