package api

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/andrebq/stockroom/auth"
	"github.com/andrebq/stockroom/internal/logutil"
)

type (
	// SecurityRealm carries sessions over HTTP: it issues and clears the
	// session cookie and guards protected handlers.
	SecurityRealm struct {
		authenticator  *auth.Authenticator
		sessions       *auth.Sessions
		insecureCookie bool
		loginPath      string
	}
)

const (
	CookieName = "stockroom_session"
)

var (
	bearerTokenRE = regexp.MustCompile(`^Bearer ([^\s]+)$`)
)

// NewRealm returns a realm that sends unauthenticated browsers to
// loginPath. allowHTTPCookie drops the Secure attribute from the session
// cookie, which is only acceptable for local development.
func NewRealm(authenticator *auth.Authenticator, loginPath string, allowHTTPCookie bool) *SecurityRealm {
	if loginPath == "" {
		loginPath = "/"
	}
	return &SecurityRealm{
		authenticator:  authenticator,
		sessions:       authenticator.Sessions(),
		insecureCookie: allowHTTPCookie,
		loginPath:      loginPath,
	}
}

// Protect guards a handler meant for browsers, requests without a valid
// session are redirected to the login page.
func (s *SecurityRealm) Protect(sensitive http.Handler) http.Handler {
	return s.guard(sensitive, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.loginPath, http.StatusSeeOther)
	})
}

// ProtectAPI guards a handler meant for programs, requests without a
// valid session get a 401 with a JSON body.
func (s *SecurityRealm) ProtectAPI(sensitive http.Handler) http.Handler {
	return s.guard(sensitive, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"not authenticated"}`))
	})
}

func (s *SecurityRealm) guard(sensitive http.Handler, deny http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.Check(r)
		if err != nil {
			log := logutil.GetOrDefault(r.Context())
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("Access denied")
			deny(w, r)
			return
		}
		sensitive.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sess)))
	})
}

// Check returns the session presented by r, or auth.ErrSessionInvalid.
func (s *SecurityRealm) Check(r *http.Request) (auth.Session, error) {
	tk := extractToken(r)
	if tk == "" {
		return auth.Session{}, auth.ErrSessionInvalid
	}
	return s.sessions.Validate(r.Context(), tk)
}

// Login authenticates the credentials and, on success, writes the
// session cookie to w. Errors come from auth.Authenticator.Authenticate.
func (s *SecurityRealm) Login(ctx context.Context, w http.ResponseWriter, login, password string) (auth.Session, error) {
	sess, err := s.authenticator.Authenticate(ctx, login, password)
	if err != nil {
		return auth.Session{}, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(s.sessions.TTL() / time.Second),
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   !s.insecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return sess, nil
}

// Logout destroys whatever session r carries and clears the cookie.
// It never fails.
func (s *SecurityRealm) Logout(w http.ResponseWriter, r *http.Request) {
	if tk := extractToken(r); tk != "" {
		s.authenticator.Logout(r.Context(), tk)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !s.insecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func extractToken(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	groups := bearerTokenRE.FindStringSubmatch(r.Header.Get("Authorization"))
	if len(groups) == 0 {
		return ""
	}
	return groups[1]
}
