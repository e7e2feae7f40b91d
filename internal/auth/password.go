package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Shoppers pick their own passwords, so the only floor is length; the
// bcrypt cost carries the real work factor.
const (
	minPasswordLength = 8
	bcryptCost        = 12
)

var ErrPasswordTooShort = errors.New("password must be at least 8 characters")

func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
