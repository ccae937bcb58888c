// Package auth implements the admin login: a shared password exchanged for a
// cookie session token held in memory. Sessions do not survive a restart.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	CookieName    = "winboard_session"
	SessionExpiry = 24 * time.Hour
)

// Word list for generated admin passwords.
var passwordWords = []string{
	"pilot", "beacon", "ledger", "signal", "harbor",
	"lantern", "meteor", "orbit", "quartz", "raven",
	"summit", "tundra", "velvet", "willow", "zephyr",
	"copper", "ember", "falcon",
}

// Auth validates the admin password and tracks live session tokens.
type Auth struct {
	mu       sync.RWMutex
	password string
	sessions map[string]time.Time // token -> expiry
}

func New(password string) *Auth {
	return &Auth{
		password: password,
		sessions: make(map[string]time.Time),
	}
}

// GeneratePassword returns a random three-word password, dash separated.
func GeneratePassword() string {
	buf := make([]byte, 3)
	rand.Read(buf)
	parts := make([]string, len(buf))
	for i, b := range buf {
		parts[i] = passwordWords[int(b)%len(passwordWords)]
	}
	return strings.Join(parts, "-")
}

// Login exchanges the admin password for a fresh session token.
func (a *Auth) Login(password string) (string, bool) {
	if subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) != 1 {
		return "", false
	}

	token := uuid.NewString()
	a.mu.Lock()
	a.sessions[token] = time.Now().Add(SessionExpiry)
	a.mu.Unlock()
	return token, true
}

// Logout drops the token. Unknown tokens are a no-op.
func (a *Auth) Logout(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}

// ValidateSession reports whether the token names a live session.
// Expired tokens are reaped on the way out.
func (a *Auth) ValidateSession(token string) bool {
	a.mu.RLock()
	expiry, ok := a.sessions[token]
	a.mu.RUnlock()
	if !ok {
		return false
	}

	if time.Now().After(expiry) {
		a.mu.Lock()
		delete(a.sessions, token)
		a.mu.Unlock()
		return false
	}
	return true
}

// GetSessionFromRequest reads the session cookie and validates its token.
func (a *Auth) GetSessionFromRequest(r *http.Request) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}
	return a.ValidateSession(cookie.Value)
}

// RequireAuth guards HTML pages, sending anonymous visitors to the login form.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.GetSessionFromRequest(r) {
			http.Redirect(w, r, "/admin/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthAPI guards JSON endpoints with a 401 body in the API error shape.
func (a *Auth) RequireAuthAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.GetSessionFromRequest(r) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"code":"UNAUTHORIZED","error":"Unauthorized - please log in"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetSessionCookie attaches the session token to the response.
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionExpiry.Seconds()),
	})
}

// ClearSessionCookie expires the session cookie immediately.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
