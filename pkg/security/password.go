package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLen is the shortest password Hash will accept. Compare has
// no such floor; existing hashes verify regardless.
const MinPasswordLen = 8

var ErrPasswordTooShort = errors.New("password too short")

// PasswordHasher hashes and verifies login passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hashedPassword, password string) error
}

type bcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a bcrypt-backed hasher. A cost outside the
// bcrypt range falls back to the library default.
func NewBcryptHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

func (b *bcryptHasher) Hash(password string) (string, error) {
	if len(password) < MinPasswordLen {
		return "", ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (b *bcryptHasher) Compare(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
