package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/medicarehealth/practice-platform/internal/identity"
	"github.com/medicarehealth/practice-platform/pkg/logging"
)

// Handler exposes the appointment endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates the appointments HTTP handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Create handles POST /api/appointments. The endpoint is public; it
// backs the contact form, so no session is required.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	appt, err := h.service.Create(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingName), errors.Is(err, ErrMissingEmail),
			errors.Is(err, ErrMissingPhone), errors.Is(err, ErrMissingMessage),
			errors.Is(err, ErrInvalidServiceID):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("appointment create failed", "error", err)
			respondError(w, http.StatusInternalServerError, "failed to create appointment")
		}
		return
	}
	respondJSON(w, http.StatusCreated, appt)
}

// ListMine handles GET /api/appointments for the signed-in patient.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	sess, ok := identity.SessionFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	items, err := h.service.ListForPatient(r.Context(), ActorFromSession(sess))
	if err != nil {
		h.logger.Error("appointment list failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}
	if items == nil {
		items = []*Appointment{}
	}
	respondJSON(w, http.StatusOK, items)
}

// ListAll handles GET /api/admin/appointments for staff.
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListAll(r.Context())
	if err != nil {
		h.logger.Error("appointment admin list failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}
	if items == nil {
		items = []*Appointment{}
	}
	respondJSON(w, http.StatusOK, items)
}

// Get handles GET /api/appointments/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := identity.SessionFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	appt, err := h.service.Get(r.Context(), ActorFromSession(sess), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respondError(w, http.StatusNotFound, "appointment not found")
			return
		}
		h.logger.Error("appointment get failed", "appointment_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load appointment")
		return
	}
	respondJSON(w, http.StatusOK, appt)
}

// UpdateStatus handles PATCH /api/appointments/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := identity.SessionFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	to, err := ParseStatus(body.Status)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	appt, err := h.service.UpdateStatus(r.Context(), ActorFromSession(sess), id, to)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respondError(w, http.StatusNotFound, "appointment not found")
		case errors.Is(err, ErrForbiddenTransition):
			respondError(w, http.StatusForbidden, err.Error())
		default:
			h.logger.Error("appointment status update failed", "appointment_id", id, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to update appointment")
		}
		return
	}
	respondJSON(w, http.StatusOK, appt)
}

// UpdateSchedule handles PATCH /api/admin/appointments/{id}/schedule.
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	var upd ScheduleUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	appt, err := h.service.UpdateSchedule(r.Context(), id, upd)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respondError(w, http.StatusNotFound, "appointment not found")
			return
		}
		h.logger.Error("appointment schedule update failed", "appointment_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to update appointment")
		return
	}
	respondJSON(w, http.StatusOK, appt)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
