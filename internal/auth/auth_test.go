package auth_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lzhang-oss/winboard/internal/auth"
)

// TestLogin tests password validation and session issuance
func TestLogin(t *testing.T) {
	a := auth.New("correct-password")

	if _, ok := a.Login("wrong"); ok {
		t.Error("wrong password should not log in")
	}

	token, ok := a.Login("correct-password")
	if !ok {
		t.Fatal("correct password should log in")
	}
	if token == "" {
		t.Fatal("token should not be empty")
	}
	if !a.ValidateSession(token) {
		t.Error("freshly issued token should validate")
	}

	// Each login gets its own token
	token2, _ := a.Login("correct-password")
	if token2 == token {
		t.Error("two logins should get distinct tokens")
	}
}

// TestLogout tests session invalidation
func TestLogout(t *testing.T) {
	a := auth.New("pw")
	token, _ := a.Login("pw")

	a.Logout(token)
	if a.ValidateSession(token) {
		t.Error("logged-out token should not validate")
	}

	// Logging out an unknown token is a no-op
	a.Logout("never-issued")
}

// TestValidateSession_UnknownToken tests rejection of unissued tokens
func TestValidateSession_UnknownToken(t *testing.T) {
	a := auth.New("pw")
	if a.ValidateSession("made-up") {
		t.Error("unissued token should not validate")
	}
}

// TestGetSessionFromRequest tests cookie extraction
func TestGetSessionFromRequest(t *testing.T) {
	a := auth.New("pw")
	token, _ := a.Login("pw")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if a.GetSessionFromRequest(r) {
		t.Error("request without cookie should not be authenticated")
	}

	r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	if !a.GetSessionFromRequest(r) {
		t.Error("request with valid cookie should be authenticated")
	}
}

// TestRequireAuthAPI tests the JSON middleware gate
func TestRequireAuthAPI(t *testing.T) {
	a := auth.New("pw")
	token, _ := a.Login("pw")

	called := false
	handler := a.RequireAuthAPI(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	// Without a session
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/x", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if called {
		t.Error("handler should not run without a session")
	}
	if !strings.Contains(w.Body.String(), "UNAUTHORIZED") {
		t.Errorf("body = %q", w.Body.String())
	}

	// With a session
	r := httptest.NewRequest(http.MethodGet, "/api/admin/x", nil)
	r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK || !called {
		t.Errorf("authenticated request: status = %d, called = %v", w.Code, called)
	}
}

// TestRequireAuth_RedirectsToLogin tests the page middleware gate
func TestRequireAuth_RedirectsToLogin(t *testing.T) {
	a := auth.New("pw")
	handler := a.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	if w.Code != http.StatusFound {
		t.Errorf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/admin/login" {
		t.Errorf("Location = %q", loc)
	}
}

// TestSessionCookieHelpers tests the set/clear cookie pair
func TestSessionCookieHelpers(t *testing.T) {
	w := httptest.NewRecorder()
	auth.SetSessionCookie(w, "tok-1")

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies", len(cookies))
	}
	c := cookies[0]
	if c.Name != auth.CookieName || c.Value != "tok-1" {
		t.Errorf("cookie = %+v", c)
	}
	if !c.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if c.MaxAge <= 0 {
		t.Errorf("MaxAge = %d", c.MaxAge)
	}

	w = httptest.NewRecorder()
	auth.ClearSessionCookie(w)
	c = w.Result().Cookies()[0]
	if c.MaxAge != -1 {
		t.Errorf("clear cookie MaxAge = %d, want -1", c.MaxAge)
	}
}

// TestGeneratePassword tests the three-word shape
func TestGeneratePassword(t *testing.T) {
	pw := auth.GeneratePassword()
	parts := strings.Split(pw, "-")
	if len(parts) != 3 {
		t.Fatalf("password %q should have 3 words", pw)
	}
	for _, p := range parts {
		if p == "" {
			t.Errorf("password %q has an empty word", pw)
		}
	}
}
