package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/medicarehealth/practice-platform/pkg/logging"
)

// Handler exposes the public catalog listings and the admin CRUD
// endpoints for doctors and services.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates the catalog HTTP handler.
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// ListDoctors handles GET /api/doctors.
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.repo.ListDoctors(r.Context())
	if err != nil {
		h.logger.Error("doctor list failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list doctors")
		return
	}
	if doctors == nil {
		doctors = []*Doctor{}
	}
	respondJSON(w, http.StatusOK, doctors)
}

// ListServices handles GET /api/services.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.repo.ListServices(r.Context())
	if err != nil {
		h.logger.Error("service list failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list services")
		return
	}
	if services == nil {
		services = []*Service{}
	}
	respondJSON(w, http.StatusOK, services)
}

// CreateDoctor handles POST /api/admin/doctors.
func (h *Handler) CreateDoctor(w http.ResponseWriter, r *http.Request) {
	var in DoctorInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	doctor, err := h.repo.CreateDoctor(r.Context(), &in)
	if err != nil {
		h.logger.Error("doctor create failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create doctor")
		return
	}
	respondJSON(w, http.StatusCreated, doctor)
}

// UpdateDoctor handles PUT /api/admin/doctors/{id}.
func (h *Handler) UpdateDoctor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid doctor id")
		return
	}
	var in DoctorInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	doctor, err := h.repo.UpdateDoctor(r.Context(), id, &in)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respondError(w, http.StatusNotFound, "doctor not found")
			return
		}
		h.logger.Error("doctor update failed", "doctor_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to update doctor")
		return
	}
	respondJSON(w, http.StatusOK, doctor)
}

// DeleteDoctor handles DELETE /api/admin/doctors/{id}.
func (h *Handler) DeleteDoctor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid doctor id")
		return
	}
	if err := h.repo.DeleteDoctor(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			respondError(w, http.StatusNotFound, "doctor not found")
			return
		}
		h.logger.Error("doctor delete failed", "doctor_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to delete doctor")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateService handles POST /api/admin/services.
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	var in ServiceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	service, err := h.repo.CreateService(r.Context(), &in)
	if err != nil {
		h.logger.Error("service create failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create service")
		return
	}
	respondJSON(w, http.StatusCreated, service)
}

// UpdateService handles PUT /api/admin/services/{id}.
func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid service id")
		return
	}
	var in ServiceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	service, err := h.repo.UpdateService(r.Context(), id, &in)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respondError(w, http.StatusNotFound, "service not found")
			return
		}
		h.logger.Error("service update failed", "service_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to update service")
		return
	}
	respondJSON(w, http.StatusOK, service)
}

// DeleteService handles DELETE /api/admin/services/{id}.
func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid service id")
		return
	}
	if err := h.repo.DeleteService(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			respondError(w, http.StatusNotFound, "service not found")
			return
		}
		h.logger.Error("service delete failed", "service_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to delete service")
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
