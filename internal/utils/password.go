package utils

import "golang.org/x/crypto/bcrypt"

// dummyHash is compared against when an account does not exist so that
// unknown emails cost the same as wrong passwords.
var dummyHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3Qn6aC1iV6mY5hU0Xb5wN6a")

// HashPassword returns a bcrypt hash.  Costs outside bcrypt's range fall
// back to bcrypt.DefaultCost.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword compares a bcrypt hash and a plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// BurnPasswordCheck performs a comparison against a fixed hash and always
// reports false.
func BurnPasswordCheck(plain string) bool {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
	return false
}
