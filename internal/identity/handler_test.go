package identity

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/medicarehealth/practice-platform/pkg/logging"
)

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestLoginHandlerSuccess(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at", "refresh_token": "rt", "expires_in": 3600,
			"user": map[string]any{"id": "u-1", "email": "jane@x.com"},
		})
	}))
	h := NewHandler(client, nil, logging.Default())

	w := postJSON(t, h.Login, "/api/auth/login", map[string]string{"email": "jane@x.com", "password": "pw"})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Session Session `json:"session"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Session.Email != "jane@x.com" || resp.Session.Role != RoleUser {
		t.Errorf("unexpected session %+v", resp.Session)
	}
}

func TestLoginHandlerEmailNotConfirmedCode(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"msg": "Email not confirmed"})
	}))
	h := NewHandler(client, nil, logging.Default())

	w := postJSON(t, h.Login, "/api/auth/login", map[string]string{"email": "new@x.com", "password": "pw"})

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	var resp map[string]string
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp["code"] != "email_not_confirmed" {
		t.Errorf("expected email_not_confirmed code, got %v", resp)
	}
	if resp["error"] != "Email not confirmed" {
		t.Errorf("provider message should surface verbatim, got %q", resp["error"])
	}
}

func TestLoginHandlerGenericFailure(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error_description": "Invalid login credentials"})
	}))
	h := NewHandler(client, nil, logging.Default())

	w := postJSON(t, h.Login, "/api/auth/login", map[string]string{"email": "admin@medicarehealth.com", "password": "wrongpass"})

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	var resp map[string]string
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp["code"] != "" {
		t.Errorf("generic failures carry no code, got %q", resp["code"])
	}
}

func TestRefreshHandlerExpiredSession(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error_description": "refresh_token_not_found"})
	}))
	h := NewHandler(client, nil, logging.Default())

	w := postJSON(t, h.Refresh, "/api/auth/refresh", map[string]string{"refresh_token": "stale"})

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	var resp map[string]string
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp["code"] != "session_expired" {
		t.Errorf("expected session_expired code, got %v", resp)
	}
}

func TestHandlersFailClosedWhenUnconfigured(t *testing.T) {
	h := NewHandler(nil, nil, logging.Default())

	w := postJSON(t, h.Login, "/api/auth/login", map[string]string{"email": "a@b.c", "password": "x"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 for unconfigured provider, got %d", w.Code)
	}
}

func TestLogoutRequiresBearer(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	h := NewHandler(client, nil, logging.Default())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	w := httptest.NewRecorder()
	h.Logout(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without bearer, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer at-1")
	w = httptest.NewRecorder()
	h.Logout(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
}
