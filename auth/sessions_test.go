package auth

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type (
	fakeClock struct {
		sync.Mutex
		now time.Time
	}
)

func (f *fakeClock) Now() time.Time {
	f.Lock()
	defer f.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.Lock()
	defer f.Unlock()
	f.now = f.now.Add(d)
}

func newTestSessions(t *testing.T, opts SessionOptions) *Sessions {
	s, err := NewSessions(opts)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionCreateValidate(t *testing.T) {
	ctx := context.Background()
	s := newTestSessions(t, SessionOptions{})
	sess, err := s.Create(ctx, "identity-1")
	require.NoError(t, err)
	require.Len(t, sess.Token, 43, "32 bytes encoded as unpadded base64url")
	require.Equal(t, DefaultSessionTTL, sess.ExpiresAt.Sub(sess.CreatedAt))

	got, err := s.Validate(ctx, sess.Token)
	require.NoError(t, err)
	require.Equal(t, "identity-1", got.IdentityID)
	require.Equal(t, sess.Token, got.Token)
	require.True(t, sess.ExpiresAt.Equal(got.ExpiresAt))
}

func TestSessionTokensAreUnique(t *testing.T) {
	ctx := context.Background()
	s := newTestSessions(t, SessionOptions{})
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		sess, err := s.Create(ctx, "identity-1")
		require.NoError(t, err)
		require.False(t, seen[sess.Token], "token %v issued twice", sess.Token)
		seen[sess.Token] = true
	}
}

func TestSessionValidateRejects(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2022, 5, 1, 10, 0, 0, 0, time.UTC)}
	s := newTestSessions(t, SessionOptions{Clock: clock.Now})

	_, err := s.Validate(ctx, "never-issued")
	require.ErrorIs(t, err, ErrSessionInvalid)
	_, err = s.Validate(ctx, "")
	require.ErrorIs(t, err, ErrSessionInvalid)

	destroyed, err := s.Create(ctx, "identity-1")
	require.NoError(t, err)
	s.Destroy(ctx, destroyed.Token)
	_, err = s.Validate(ctx, destroyed.Token)
	require.ErrorIs(t, err, ErrSessionInvalid)

	expired, err := s.Create(ctx, "identity-1")
	require.NoError(t, err)
	clock.Advance(DefaultSessionTTL)
	_, err = s.Validate(ctx, expired.Token)
	require.ErrorIs(t, err, ErrSessionInvalid)
	// rolling the clock back must not revive an evicted session
	clock.Advance(-time.Minute)
	_, err = s.Validate(ctx, expired.Token)
	require.ErrorIs(t, err, ErrSessionInvalid)
}

func TestSessionExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2022, 5, 1, 10, 0, 0, 0, time.UTC)}
	s := newTestSessions(t, SessionOptions{TTL: time.Hour, Clock: clock.Now})

	sess, err := s.Create(ctx, "alice")
	require.NoError(t, err)

	clock.Advance(59 * time.Minute)
	got, err := s.Validate(ctx, sess.Token)
	require.NoError(t, err)
	require.Equal(t, "alice", got.IdentityID)

	clock.Advance(2 * time.Minute)
	_, err = s.Validate(ctx, sess.Token)
	require.ErrorIs(t, err, ErrSessionInvalid)
}

func TestSessionDestroyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestSessions(t, SessionOptions{})
	sess, err := s.Create(ctx, "identity-1")
	require.NoError(t, err)
	s.Destroy(ctx, sess.Token)
	s.Destroy(ctx, sess.Token)
	s.Destroy(ctx, "unknown")
	s.Destroy(ctx, "")
	_, err = s.Validate(ctx, sess.Token)
	require.ErrorIs(t, err, ErrSessionInvalid)
}

func TestSessionCollisionForcesNewToken(t *testing.T) {
	ctx := context.Background()
	first := bytes.Repeat([]byte{1}, tokenBytes)
	second := bytes.Repeat([]byte{2}, tokenBytes)
	// the second Create draws the same bytes as the first one before
	// getting fresh ones
	entropy := io.MultiReader(bytes.NewReader(first), bytes.NewReader(first), bytes.NewReader(second))
	s := newTestSessions(t, SessionOptions{Entropy: entropy})

	a, err := s.Create(ctx, "identity-a")
	require.NoError(t, err)
	b, err := s.Create(ctx, "identity-b")
	require.NoError(t, err)
	require.NotEqual(t, a.Token, b.Token)

	got, err := s.Validate(ctx, a.Token)
	require.NoError(t, err)
	require.Equal(t, "identity-a", got.IdentityID)
	got, err = s.Validate(ctx, b.Token)
	require.NoError(t, err)
	require.Equal(t, "identity-b", got.IdentityID)
}

type constHasher struct{}

func (constHasher) Sum64(string) uint64 { return 42 }

func TestSessionHashCollision(t *testing.T) {
	ctx := context.Background()
	s, err := newSessions(SessionOptions{}, constHasher{})
	require.NoError(t, err)
	defer s.Close()

	a, err := s.Create(ctx, "identity-a")
	require.NoError(t, err)
	// every other token lands on the slot held by a
	_, err = s.Create(ctx, "identity-b")
	require.True(t, errors.Is(err, errTokenExhausted))

	s.Destroy(ctx, "another-token")
	_, err = s.Validate(ctx, "another-token")
	require.ErrorIs(t, err, ErrSessionInvalid)

	got, err := s.Validate(ctx, a.Token)
	require.NoError(t, err)
	require.Equal(t, "identity-a", got.IdentityID)

	s.Destroy(ctx, a.Token)
	_, err = s.Validate(ctx, a.Token)
	require.ErrorIs(t, err, ErrSessionInvalid)
}

func TestSessionCreateFailures(t *testing.T) {
	ctx := context.Background()
	s := newTestSessions(t, SessionOptions{Entropy: bytes.NewReader(nil)})
	_, err := s.Create(ctx, "identity-1")
	require.Error(t, err)

	_, err = s.Create(ctx, "")
	require.Error(t, err)

	same := bytes.Repeat([]byte{7}, tokenBytes*(maxTokenAttempts+1))
	s = newTestSessions(t, SessionOptions{Entropy: bytes.NewReader(same)})
	_, err = s.Create(ctx, "identity-1")
	require.NoError(t, err)
	_, err = s.Create(ctx, "identity-2")
	require.True(t, errors.Is(err, errTokenExhausted))
}

func TestSessionConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := newTestSessions(t, SessionOptions{})
	var wg sync.WaitGroup
	var valid int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := s.Create(ctx, "identity-1")
			if err != nil {
				t.Error(err)
				return
			}
			var inner sync.WaitGroup
			for j := 0; j < 8; j++ {
				inner.Add(1)
				go func() {
					defer inner.Done()
					got, err := s.Validate(ctx, sess.Token)
					if err == nil {
						if got.IdentityID != "identity-1" {
							t.Errorf("torn read, got identity %q", got.IdentityID)
						}
						atomic.AddInt32(&valid, 1)
					}
				}()
			}
			s.Destroy(ctx, sess.Token)
			inner.Wait()
			if _, err := s.Validate(ctx, sess.Token); !errors.Is(err, ErrSessionInvalid) {
				t.Errorf("destroyed session should be invalid, got %v", err)
			}
		}()
	}
	wg.Wait()
	t.Logf("%v validations observed an active session", atomic.LoadInt32(&valid))
}
