package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword bcrypt-hashes a credential at the given cost.  Both staff
// accounts and registered visitor profiles store only the hash; the
// plain text never reaches a repository.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the stored bcrypt hash.
// The comparison is constant time, so login failures leak nothing about
// how close the attempt was.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
