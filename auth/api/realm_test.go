package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/andrebq/stockroom/auth"
	"github.com/andrebq/stockroom/internal/testutil"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/require"
)

type (
	oneUser struct {
		login string
		cred  auth.Credential
	}
)

func (o oneUser) FindByIdentifier(_ context.Context, login string) (auth.Credential, bool, error) {
	if login != o.login {
		return auth.Credential{}, false, nil
	}
	return o.cred, true, nil
}

func newTestRealm(t *testing.T) *SecurityRealm {
	hasher := testutil.FastHasher(t)
	hash, err := hasher.Hash("correct-pw")
	require.NoError(t, err)
	sessions, err := auth.NewSessions(auth.SessionOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { sessions.Close() })
	store := oneUser{login: "alice@example.com", cred: auth.Credential{IdentityID: "alice-id", PasswordHash: hash}}
	return NewRealm(auth.NewAuthenticator(store, hasher, sessions, 0), "/login-page", false)
}

func TestProtect(t *testing.T) {
	sr := newTestRealm(t)
	var count uint32
	var seen atomic.Value
	protected := sr.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddUint32(&count, 1)
		sess, ok := auth.SessionFromContext(r.Context())
		if ok {
			seen.Store(sess.IdentityID)
		}
		http.Error(w, "OK", http.StatusOK)
	}))
	apitest.Handler(protected).Get("/").Expect(t).
		Status(http.StatusSeeOther).
		Header("Location", "/login-page").
		End()
	apitest.Handler(protected).Get("/").Cookie(CookieName, "made-up").Expect(t).
		Status(http.StatusSeeOther).
		End()

	sess, err := sr.authenticator.Authenticate(context.Background(), "alice@example.com", "correct-pw")
	require.NoError(t, err)
	apitest.Handler(protected).Get("/").Cookie(CookieName, sess.Token).Expect(t).Status(http.StatusOK).End()
	apitest.Handler(protected).Get("/").Header("Authorization", fmt.Sprintf("Bearer %v", sess.Token)).Expect(t).Status(http.StatusOK).End()
	require.Equal(t, uint32(2), atomic.LoadUint32(&count))
	require.Equal(t, "alice-id", seen.Load())

	sr.sessions.Destroy(context.Background(), sess.Token)
	apitest.Handler(protected).Get("/").Cookie(CookieName, sess.Token).Expect(t).Status(http.StatusSeeOther).End()
	require.Equal(t, uint32(2), atomic.LoadUint32(&count), "protected handler must not run after logout")
}

func TestProtectAPI(t *testing.T) {
	sr := newTestRealm(t)
	protected := sr.ProtectAPI(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "OK", http.StatusOK)
	}))
	apitest.Handler(protected).Get("/").Expect(t).
		Status(http.StatusUnauthorized).
		Body(`{"error":"not authenticated"}`).
		End()
}

func TestLoginSetsCookie(t *testing.T) {
	sr := newTestRealm(t)
	rec := httptest.NewRecorder()
	sess, err := sr.Login(context.Background(), rec, "alice@example.com", "correct-pw")
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	require.Equal(t, CookieName, c.Name)
	require.Equal(t, sess.Token, c.Value)
	require.True(t, c.HttpOnly)
	require.True(t, c.Secure)
	require.Equal(t, "/", c.Path)
	require.Equal(t, int(auth.DefaultSessionTTL.Seconds()), c.MaxAge)

	rec = httptest.NewRecorder()
	_, err = sr.Login(context.Background(), rec, "alice@example.com", "wrong-pw")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	require.Empty(t, rec.Result().Cookies())
}

func TestLogout(t *testing.T) {
	sr := newTestRealm(t)
	sess, err := sr.Login(context.Background(), httptest.NewRecorder(), "alice@example.com", "correct-pw")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/logout", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: sess.Token})
	rec := httptest.NewRecorder()
	sr.Logout(rec, req)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, -1, cookies[0].MaxAge)

	_, err = sr.Check(req)
	require.ErrorIs(t, err, auth.ErrSessionInvalid)

	// logout without a session is fine
	sr.Logout(httptest.NewRecorder(), httptest.NewRequest("GET", "/logout", nil))
}
