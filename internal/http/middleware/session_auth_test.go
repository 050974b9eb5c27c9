package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/medicarehealth/practice-platform/internal/identity"
)

const testSecret = "test-jwt-secret"

func signToken(t *testing.T, claims SessionClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func validClaims(email, metaRole string) SessionClaims {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: email,
	}
	if metaRole != "" {
		claims.UserMetadata = map[string]string{"role": metaRole}
	}
	return claims
}

func sessionProbe(t *testing.T, captured **identity.Session) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := identity.SessionFromContext(r.Context())
		if !ok {
			t.Error("session missing from context")
		}
		*captured = s
		w.WriteHeader(http.StatusOK)
	})
}

func TestSessionAuthAcceptsValidToken(t *testing.T) {
	var captured *identity.Session
	handler := SessionAuth(testSecret)(sessionProbe(t, &captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, validClaims("jane@x.com", "user"), testSecret))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if captured.UserID != "u-1" || captured.Email != "jane@x.com" || captured.Role != identity.RoleUser {
		t.Errorf("unexpected session %+v", captured)
	}
}

func TestSessionAuthMetadataRoleWinsOverEmail(t *testing.T) {
	var captured *identity.Session
	handler := SessionAuth(testSecret)(sessionProbe(t, &captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, validClaims("admin.joe@mail.com", "user"), testSecret))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if captured.Role != identity.RoleUser {
		t.Errorf("metadata role must win over email substring, got %q", captured.Role)
	}
}

func TestSessionAuthRejects(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	})

	cases := []struct {
		name   string
		secret string
		header string
	}{
		{"no secret configured", "", "Bearer " + "whatever"},
		{"missing header", testSecret, ""},
		{"wrong signing key", testSecret, "Bearer x.y.z"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := SessionAuth(tc.secret)(next)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
		})
	}
}

func TestSessionAuthRejectsExpiredToken(t *testing.T) {
	claims := validClaims("jane@x.com", "user")
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	handler := SessionAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, claims, testSecret))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for expired token, got %d", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	guard := RequireRole(identity.RoleAdmin)(ok)

	// No session at all.
	w := httptest.NewRecorder()
	guard.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without session, got %d", w.Code)
	}

	// Patient hitting an admin route.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(identity.WithSession(req.Context(), &identity.Session{Role: identity.RoleUser}))
	w = httptest.NewRecorder()
	guard.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for wrong role, got %d", w.Code)
	}

	// Admin passes.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(identity.WithSession(req.Context(), &identity.Session{Role: identity.RoleAdmin}))
	w = httptest.NewRecorder()
	guard.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for admin, got %d", w.Code)
	}
}
