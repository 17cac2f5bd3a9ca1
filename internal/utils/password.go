package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a member's credential with bcrypt at the given
// cost. Costs outside bcrypt's legal range fall back to the library
// default so a misconfigured BCRYPT_COST degrades to a safe hash
// instead of an error at registration time.
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

// VerifyPassword compares a stored bcrypt hash against a login
// attempt in constant time.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
