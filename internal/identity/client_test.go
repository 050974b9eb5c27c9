package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/medicarehealth/practice-platform/pkg/logging"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		BaseURL:    srv.URL,
		AnonKey:    "anon-key",
		ServiceKey: "service-key",
	}, logging.Default())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, srv
}

func TestNewClientFailsClosedWithoutConfig(t *testing.T) {
	if _, err := NewClient(Config{}, nil); err != ErrNotConfigured {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := NewClient(Config{BaseURL: "https://auth.example.com"}, nil); err != ErrNotConfigured {
		t.Errorf("expected ErrNotConfigured without anon key, got %v", err)
	}
}

func TestSignInSuccess(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" || r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL)
		}
		if r.Header.Get("apikey") != "anon-key" {
			t.Error("missing apikey header")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-1",
			"refresh_token": "rt-1",
			"expires_in":    3600,
			"user": map[string]any{
				"id":            "u-1",
				"email":         "jane@x.com",
				"user_metadata": map[string]string{"role": "user"},
			},
		})
	}))

	session, err := client.SignIn(context.Background(), "jane@x.com", "pw")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if session.AccessToken != "at-1" || session.UserID != "u-1" {
		t.Errorf("unexpected session: %+v", session)
	}
	if session.Role != RoleUser {
		t.Errorf("expected user role, got %q", session.Role)
	}
}

func TestSignInBadCredentials(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error_description": "Invalid login credentials"})
	}))

	// spec scenario: wrong password never yields a session.
	session, err := client.SignIn(context.Background(), "admin@medicarehealth.com", "wrongpass")
	if session != nil {
		t.Error("expected no session on auth failure")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Message != "Invalid login credentials" {
		t.Errorf("provider message must be preserved verbatim, got %q", apiErr.Message)
	}
}

func TestSignInEmailNotConfirmed(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"msg": "Email not confirmed"})
	}))

	_, err := client.SignIn(context.Background(), "new@x.com", "pw")
	if !IsEmailNotConfirmed(err) {
		t.Errorf("expected email-not-confirmed detection, got %v", err)
	}
}

func TestSignUpAttachesRoleMetadata(t *testing.T) {
	var captured map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "u-2", "email": "doc@x.com"})
	}))

	if _, err := client.SignUp(context.Background(), "doc@x.com", "pw", RoleDoctor); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	data, _ := captured["data"].(map[string]any)
	if data["role"] != "doctor" {
		t.Errorf("expected role metadata doctor, got %v", captured["data"])
	}
}

func TestRefreshTokenNotFoundIsSessionExpired(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error_description": "refresh_token_not_found"})
	}))

	_, err := client.Refresh(context.Background(), "stale")
	if !IsSessionExpired(err) {
		t.Errorf("expected session-expired detection, got %v", err)
	}
}

func TestConfirmEmailRequiresServiceKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, AnonKey: "anon"}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.ConfirmEmail(context.Background(), "x@x.com"); err != ErrNotConfigured {
		t.Errorf("expected ErrNotConfigured without service key, got %v", err)
	}
}

func TestConfirmEmailLooksUpAndUpdates(t *testing.T) {
	var updated string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/auth/v1/admin/users":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"users": []map[string]string{{"id": "u-9", "email": "new@x.com"}},
			})
		case r.Method == http.MethodPut:
			updated = r.URL.Path
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))

	if err := client.ConfirmEmail(context.Background(), "new@x.com"); err != nil {
		t.Fatalf("confirm email: %v", err)
	}
	if updated != "/auth/v1/admin/users/u-9" {
		t.Errorf("unexpected update path %q", updated)
	}
}
