package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andrebq/stockroom/auth"
	"github.com/google/uuid"
)

type (
	Identity struct {
		ID           string
		Login        string
		PasswordHash string
		CreatedAt    time.Time
	}
)

var _ auth.CredentialStore = (*Store)(nil)
var _ auth.IdentityWriter = (*Store)(nil)

// FindByIdentifier implements auth.CredentialStore
func (s *Store) FindByIdentifier(ctx context.Context, login string) (auth.Credential, bool, error) {
	var c auth.Credential
	err := s.db.QueryRowContext(ctx, `select id, password_hash from users where login = $1`, login).
		Scan(&c.IdentityID, &c.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Credential{}, false, nil
	} else if err != nil {
		return auth.Credential{}, false, fmt.Errorf("unable to lookup credentials, cause %w", err)
	}
	return c, true, nil
}

// CreateIdentity implements auth.IdentityWriter
func (s *Store) CreateIdentity(ctx context.Context, login, passwordHash string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `insert into users(id, login, password_hash, created_at) values ($1, $2, $3, $4)`,
		id, login, passwordHash, time.Now().UTC())
	if isUniqueViolation(err) {
		return "", DuplicateIdentity{Login: login}
	} else if err != nil {
		return "", fmt.Errorf("unable to store identity %v, cause %w", login, err)
	}
	return id, nil
}

// ListIdentities returns every identity ordered by login, password hashes
// are left empty.
func (s *Store) ListIdentities(ctx context.Context) ([]Identity, error) {
	rows, err := s.db.QueryContext(ctx, `select id, login, created_at from users order by login asc`)
	if err != nil {
		return nil, fmt.Errorf("unable to list identities, cause %w", err)
	}
	defer rows.Close()
	var out []Identity
	for rows.Next() {
		var i Identity
		err = rows.Scan(&i.ID, &i.Login, &i.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("unable to scan identity, cause %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}
