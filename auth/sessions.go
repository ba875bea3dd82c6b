package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/cespare/xxhash/v2"
)

type (
	Session struct {
		Token      string
		IdentityID string
		CreatedAt  time.Time
		ExpiresAt  time.Time
	}

	SessionOptions struct {
		// TTL defaults to DefaultSessionTTL
		TTL time.Duration
		// Clock defaults to time.Now
		Clock func() time.Time
		// Entropy defaults to crypto/rand.Reader
		Entropy io.Reader
	}

	// Sessions owns the token table. It is the only writer of that table
	// and is safe for concurrent use.
	Sessions struct {
		cache   *bigcache.BigCache
		ttl     time.Duration
		clock   func() time.Time
		entropy io.Reader

		// serializes writes so the existence check and the insert or
		// delete cannot interleave with another writer
		mu sync.Mutex
	}

	xxhasher struct{}
)

const (
	DefaultSessionTTL = time.Hour

	tokenBytes       = 32
	maxTokenAttempts = 4
	entryHeaderSize  = 16
)

var (
	errTokenExhausted = errors.New("auth: unable to allocate an unused session token")
	errCorruptEntry   = errors.New("auth: corrupt session entry")
)

func (xxhasher) Sum64(key string) uint64 { return xxhash.Sum64String(key) }

// ActiveAt reports whether the session is still valid at t.
func (s Session) ActiveAt(t time.Time) bool {
	return t.Before(s.ExpiresAt)
}

func NewSessions(opts SessionOptions) (*Sessions, error) {
	return newSessions(opts, xxhasher{})
}

func newSessions(opts SessionOptions, hasher bigcache.Hasher) (*Sessions, error) {
	if opts.TTL <= 0 {
		opts.TTL = DefaultSessionTTL
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Entropy == nil {
		opts.Entropy = rand.Reader
	}
	cfg := bigcache.DefaultConfig(opts.TTL)
	cfg.Hasher = hasher
	cfg.Verbose = false
	cfg.CleanWindow = cleanWindow(opts.TTL)
	cache, err := bigcache.NewBigCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("auth: unable to create session table, cause %w", err)
	}
	return &Sessions{
		cache:   cache,
		ttl:     opts.TTL,
		clock:   opts.Clock,
		entropy: opts.Entropy,
	}, nil
}

func (s *Sessions) TTL() time.Duration { return s.ttl }

// Create issues a new session bound to identityID.
func (s *Sessions) Create(ctx context.Context, identityID string) (Session, error) {
	if identityID == "" {
		return Session{}, errors.New("auth: cannot create a session without an identity")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < maxTokenAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return Session{}, err
		}
		token, err := s.newToken()
		if err != nil {
			return Session{}, err
		}
		if taken, err := s.slotTaken(token); err != nil {
			return Session{}, err
		} else if taken {
			continue
		}
		now := s.clock()
		sess := Session{
			Token:      token,
			IdentityID: identityID,
			CreatedAt:  now,
			ExpiresAt:  now.Add(s.ttl),
		}
		if err := s.cache.Set(token, encodeSession(sess)); err != nil {
			return Session{}, fmt.Errorf("auth: unable to store session, cause %w", err)
		}
		return sess, nil
	}
	return Session{}, errTokenExhausted
}

// Validate returns the session identified by token if it is still
// active. Unknown, expired and destroyed tokens all result in
// ErrSessionInvalid.
func (s *Sessions) Validate(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrSessionInvalid
	}
	buf, err := s.cache.Get(token)
	if err != nil {
		return Session{}, ErrSessionInvalid
	}
	sess, err := decodeSession(token, buf)
	if err != nil {
		s.remove(token)
		return Session{}, ErrSessionInvalid
	}
	if !sess.ActiveAt(s.clock()) {
		s.remove(token)
		return Session{}, ErrSessionInvalid
	}
	return sess, nil
}

// Destroy removes the session, destroying an unknown token is a no-op.
func (s *Sessions) Destroy(ctx context.Context, token string) {
	if token == "" {
		return
	}
	s.remove(token)
}

// Len returns how many entries are held, expired ones that were not
// evicted yet included.
func (s *Sessions) Len() int {
	return s.cache.Len()
}

func (s *Sessions) Close() error {
	return s.cache.Close()
}

// slotTaken reports whether token cannot be stored without replacing
// another entry. bigcache indexes by the 64 bit hash of the key, so a
// different token with the same hash also occupies the slot; Get reports
// that case as a miss and counts it as a collision. Must hold s.mu.
func (s *Sessions) slotTaken(token string) (bool, error) {
	before := s.cache.Stats().Collisions
	_, err := s.cache.Get(token)
	switch {
	case err == nil:
		return true, nil
	case !errors.Is(err, bigcache.ErrEntryNotFound):
		return false, fmt.Errorf("auth: unable to check session token, cause %w", err)
	}
	return s.cache.Stats().Collisions != before, nil
}

// remove deletes token only if the entry in its slot belongs to it,
// bigcache deletes by hash and would otherwise drop a colliding session.
func (s *Sessions) remove(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.cache.Get(token); err != nil {
		return
	}
	s.cache.Delete(token)
}

func (s *Sessions) newToken() (string, error) {
	var buf [tokenBytes]byte
	if _, err := io.ReadFull(s.entropy, buf[:]); err != nil {
		return "", fmt.Errorf("auth: unable to read entropy for session token, cause %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf[:]), nil
}

func encodeSession(s Session) []byte {
	buf := make([]byte, entryHeaderSize+len(s.IdentityID))
	binary.BigEndian.PutUint64(buf[0:8], uint64(s.CreatedAt.UnixNano()))
	binary.BigEndian.PutUint64(buf[8:16], uint64(s.ExpiresAt.UnixNano()))
	copy(buf[entryHeaderSize:], s.IdentityID)
	return buf
}

func decodeSession(token string, buf []byte) (Session, error) {
	if len(buf) <= entryHeaderSize {
		return Session{}, errCorruptEntry
	}
	return Session{
		Token:      token,
		IdentityID: string(buf[entryHeaderSize:]),
		CreatedAt:  time.Unix(0, int64(binary.BigEndian.Uint64(buf[0:8]))),
		ExpiresAt:  time.Unix(0, int64(binary.BigEndian.Uint64(buf[8:16]))),
	}, nil
}

// cleanWindow controls how often bigcache sweeps entries older than the
// ttl, validation still checks the expiration between sweeps.
func cleanWindow(ttl time.Duration) time.Duration {
	w := ttl / 10
	if w < time.Second {
		w = time.Second
	} else if w > 5*time.Minute {
		w = 5 * time.Minute
	}
	return w
}
