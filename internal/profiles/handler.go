package profiles

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/medicarehealth/practice-platform/internal/identity"
	"github.com/medicarehealth/practice-platform/pkg/logging"
)

// Handler exposes the profile endpoints. Every route is scoped to the
// session user; there is no cross-user profile access.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates the profiles HTTP handler.
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// Get handles GET /api/profile. A missing row is scaffolded from the
// session instead of returning 404, so first-time visitors see an
// editable empty profile.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := identity.SessionFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	profile, err := h.repo.Get(r.Context(), sess.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respondJSON(w, http.StatusOK, &Profile{ID: sess.UserID, Email: sess.Email})
			return
		}
		h.logger.Error("profile get failed", "user_id", sess.UserID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// Update handles PUT /api/profile, upserting by the session user id.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	sess, ok := identity.SessionFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := h.repo.Upsert(r.Context(), &Profile{
		ID:                sess.UserID,
		Email:             sess.Email,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Phone:             req.Phone,
		DateOfBirth:       req.DateOfBirth,
		Address:           req.Address,
		City:              req.City,
		State:             req.State,
		ZipCode:           req.ZipCode,
		EmergencyContact:  req.EmergencyContact,
		Allergies:         req.Allergies,
		MedicalConditions: req.MedicalConditions,
	})
	if err != nil {
		h.logger.Error("profile upsert failed", "user_id", sess.UserID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save profile")
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
