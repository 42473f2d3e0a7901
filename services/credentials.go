package services

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

func isBcryptHash(s string) bool {
	if len(s) != 60 {
		return false
	}
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// hashCredential stores staff credentials as bcrypt hashes. Values that are
// already hashed pass through unchanged so re-saving a document is stable.
func hashCredential(raw string) (string, error) {
	if raw == "" || isBcryptHash(raw) {
		return raw, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
