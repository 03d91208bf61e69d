package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Accounts imported from the previous platform carry bcrypt hashes
// ($2a$/$2b$/$2y$). They verify here and are re-hashed with argon2id on the
// next successful login.

func isBcrypt(encodedHash string) bool {
	return strings.HasPrefix(encodedHash, "$2a$") ||
		strings.HasPrefix(encodedHash, "$2b$") ||
		strings.HasPrefix(encodedHash, "$2y$")
}

func verifyBcrypt(password, encodedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}
