package auth

import (
	"context"
	"errors"
	"strings"
)

type (
	IdentityWriter interface {
		CreateIdentity(ctx context.Context, login, passwordHash string) (string, error)
	}
)

// Register hashes password and provisions a new identity for login,
// returning the id of the new identity.
func Register(ctx context.Context, store IdentityWriter, hasher *PasswordHasher, login, password string) (string, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return "", errors.New("auth: login cannot be empty")
	}
	if password == "" {
		return "", errors.New("auth: password cannot be empty")
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return "", err
	}
	return store.CreateIdentity(ctx, login, hash)
}
