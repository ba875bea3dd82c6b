package auth

import (
	"context"
	"errors"
	"time"

	"github.com/andrebq/stockroom/internal/logutil"
)

type (
	Credential struct {
		IdentityID   string
		PasswordHash string
	}

	// CredentialStore is read-only from this package point of view.
	CredentialStore interface {
		FindByIdentifier(ctx context.Context, login string) (Credential, bool, error)
	}

	Authenticator struct {
		store         CredentialStore
		hasher        *PasswordHasher
		sessions      *Sessions
		lookupTimeout time.Duration
	}
)

const (
	DefaultLookupTimeout = 5 * time.Second
)

func NewAuthenticator(store CredentialStore, hasher *PasswordHasher, sessions *Sessions, lookupTimeout time.Duration) *Authenticator {
	if lookupTimeout <= 0 {
		lookupTimeout = DefaultLookupTimeout
	}
	return &Authenticator{
		store:         store,
		hasher:        hasher,
		sessions:      sessions,
		lookupTimeout: lookupTimeout,
	}
}

// Authenticate checks login and password against the credential store
// and, if they match, returns a new session.
//
// Every failure is an AuthFailure. Unknown logins, wrong passwords and
// unreadable hashes share the InvalidCredentials reason; only a store that
// cannot answer results in Unavailable.
func (a *Authenticator) Authenticate(ctx context.Context, login, password string) (Session, error) {
	log := logutil.GetOrDefault(ctx).With().Str("login", login).Logger()

	lookupCtx, cancel := context.WithTimeout(ctx, a.lookupTimeout)
	cred, found, err := a.store.FindByIdentifier(lookupCtx, login)
	cancel()
	if err != nil {
		log.Error().Err(err).Msg("Credential store lookup failed")
		return Session{}, failure(Unavailable, err)
	}
	if !found {
		// same amount of work as a real account
		decoy, err := a.hasher.decoy()
		if err != nil {
			log.Warn().Err(err).Msg("Unable to generate decoy hash, using a fixed one")
		}
		a.hasher.Verify(password, decoy)
		log.Info().Str("cause", "unknown login").Msg("Login rejected")
		return Session{}, failure(InvalidCredentials, nil)
	}

	match, err := a.hasher.Verify(password, cred.PasswordHash)
	var herr HashingError
	if errors.As(err, &herr) {
		log.Error().Err(err).Str("identity", cred.IdentityID).Msg("Stored password hash cannot be verified")
		return Session{}, failure(InvalidCredentials, err)
	} else if err != nil {
		log.Error().Err(err).Str("identity", cred.IdentityID).Msg("Unexpected error verifying password")
		return Session{}, failure(InvalidCredentials, err)
	}
	if !match {
		log.Info().Str("cause", "password mismatch").Str("identity", cred.IdentityID).Msg("Login rejected")
		return Session{}, failure(InvalidCredentials, nil)
	}

	sess, err := a.sessions.Create(ctx, cred.IdentityID)
	if err != nil {
		log.Error().Err(err).Str("identity", cred.IdentityID).Msg("Unable to create session")
		return Session{}, failure(Unavailable, err)
	}
	log.Info().Str("identity", cred.IdentityID).Time("expires_at", sess.ExpiresAt).Msg("Login accepted")
	return sess, nil
}

// Logout destroys the session identified by token, if any.
func (a *Authenticator) Logout(ctx context.Context, token string) {
	a.sessions.Destroy(ctx, token)
}

// Sessions exposes the session table used by this authenticator.
func (a *Authenticator) Sessions() *Sessions {
	return a.sessions
}
