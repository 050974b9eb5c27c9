package identity

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/medicarehealth/practice-platform/internal/observability/metrics"
	"github.com/medicarehealth/practice-platform/pkg/logging"
)

// Handler exposes the auth HTTP surface backed by the hosted provider.
type Handler struct {
	client  *Client
	logger  *logging.Logger
	metrics *metrics.AuthMetrics
}

// NewHandler creates the auth handler. client may be nil when the
// provider is unconfigured; every endpoint then fails closed with 503.
func NewHandler(client *Client, m *metrics.AuthMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{client: client, logger: logger, metrics: m}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	session, err := h.client.SignIn(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		h.metrics.ObserveLogin("failure")
		h.logger.Warn("login failed", "email", req.Email, "error", err)
		if IsEmailNotConfirmed(err) {
			respondError(w, http.StatusUnauthorized, providerMessage(err), "email_not_confirmed")
			return
		}
		if err == ErrMissingCredentials {
			respondError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		respondError(w, http.StatusUnauthorized, providerMessage(err), "")
		return
	}

	h.metrics.ObserveLogin("success")
	h.logger.Info("login succeeded", "user_id", session.UserID, "role", session.Role)
	respondJSON(w, http.StatusOK, map[string]any{"session": session})
}

// Register handles POST /api/auth/register. The account is created with
// the requested role in metadata; no session is issued until the email
// address is verified.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	user, err := h.client.SignUp(r.Context(), strings.TrimSpace(req.Email), req.Password, Role(req.Role))
	if err != nil {
		h.metrics.ObserveSignup("failure")
		h.logger.Warn("registration failed", "email", req.Email, "error", err)
		if err == ErrMissingCredentials {
			respondError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		respondError(w, http.StatusBadRequest, providerMessage(err), "")
		return
	}

	h.metrics.ObserveSignup("success")
	h.logger.Info("account registered", "user_id", user.ID)
	respondJSON(w, http.StatusCreated, map[string]any{
		"user":    user,
		"message": "Verification email sent. Please confirm your address before signing in.",
	})
}

// ResendVerification handles POST /api/auth/resend-verification.
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	if err := h.client.Resend(r.Context(), strings.TrimSpace(req.Email)); err != nil {
		if err == ErrMissingEmail {
			respondError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		h.logger.Error("resend verification failed", "email", req.Email, "error", err)
		respondError(w, http.StatusBadGateway, "failed to resend verification email", "")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "Verification email sent"})
}

// Refresh handles POST /api/auth/refresh. An unrecoverable refresh error
// is reported as session_expired so clients sign out and redirect.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	session, err := h.client.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if err == ErrMissingRefreshToken {
			respondError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		if IsSessionExpired(err) {
			respondError(w, http.StatusUnauthorized, "session expired, sign in again", "session_expired")
			return
		}
		h.logger.Error("session refresh failed", "error", err)
		respondError(w, http.StatusUnauthorized, providerMessage(err), "")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"session": session})
}

// Logout handles POST /api/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	token := bearerToken(r)
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing authorization header", "")
		return
	}
	if err := h.client.SignOut(r.Context(), token); err != nil {
		// Revocation failure does not keep the client signed in; log and move on.
		h.logger.Warn("provider logout failed", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConfirmEmail handles POST /api/auth/confirm-email. Router mounts this
// behind the admin guard; it drives the provider's admin verification.
func (h *Handler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	if err := h.client.ConfirmEmail(r.Context(), strings.TrimSpace(req.Email)); err != nil {
		switch {
		case err == ErrMissingEmail:
			respondError(w, http.StatusBadRequest, err.Error(), "")
		case err == ErrNotConfigured:
			respondError(w, http.StatusServiceUnavailable, "identity admin key not configured", "")
		default:
			h.logger.Error("confirm email failed", "email", req.Email, "error", err)
			respondError(w, http.StatusBadGateway, providerMessage(err), "")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "Email confirmed successfully"})
}

func (h *Handler) configured(w http.ResponseWriter) bool {
	if h.client == nil {
		respondError(w, http.StatusServiceUnavailable, "identity provider not configured", "")
		return false
	}
	return true
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}

func providerMessage(err error) string {
	if apiErr, ok := err.(*APIError); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return "authentication failed"
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message, code string) {
	body := map[string]string{"error": message}
	if code != "" {
		body["code"] = code
	}
	respondJSON(w, status, body)
}
