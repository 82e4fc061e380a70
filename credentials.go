package folioengine

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// IdentityFinder looks up an identity by exact username.
type IdentityFinder interface {
	FindIdentity(ctx context.Context, username string) (Identity, error)
}

// Credentials verifies admin usernames and passwords against stored bcrypt
// hashes.
type Credentials struct {
	finder IdentityFinder
	dummy  []byte
}

// NewCredentials returns a credential verifier backed by finder. cost is the
// bcrypt cost of the dummy hash compared on unknown usernames; it is built
// here so the first unknown-user login costs the same as any other.
func NewCredentials(finder IdentityFinder, cost int) *Credentials {
	return &Credentials{finder: finder, dummy: dummyHash(cost)}
}

// Verify returns the identity when username exists and password matches its
// hash. Unknown usernames and wrong passwords both return
// ErrInvalidCredentials, and both pay for one bcrypt comparison.
func (c *Credentials) Verify(ctx context.Context, username, password string) (Identity, error) {
	id, err := c.finder.FindIdentity(ctx, username)
	if err != nil {
		if !IsNotFound(err) {
			return Identity{}, persistenceFailure("Failed to verify credentials", err)
		}
		_ = bcrypt.CompareHashAndPassword(c.dummy, []byte(password))
		return Identity{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(id.PasswordHash), []byte(password)); err != nil {
		return Identity{}, ErrInvalidCredentials
	}
	return id, nil
}

func dummyHash(cost int) []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("folioengine-unknown-user"), cost)
	if err != nil {
		h, _ = bcrypt.GenerateFromPassword([]byte("folioengine-unknown-user"), bcrypt.DefaultCost)
	}
	return h
}

// HashPassword returns the bcrypt hash stored for a new identity.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", errors.New("password is too long")
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}
