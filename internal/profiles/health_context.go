package profiles

import (
	"context"
	"errors"
)

// HealthContextReader exposes the medically relevant profile fields to
// the advice prompts without handing over the whole repository.
type HealthContextReader struct {
	repo Repository
}

func NewHealthContextReader(repo Repository) *HealthContextReader {
	return &HealthContextReader{repo: repo}
}

// HealthContext returns the user's recorded allergies and conditions.
// A missing profile is not an error, it just yields empty context.
func (h *HealthContextReader) HealthContext(ctx context.Context, userID string) (allergies, conditions string, err error) {
	p, err := h.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", "", nil
		}
		return "", "", err
	}
	return p.Allergies, p.MedicalConditions, nil
}
