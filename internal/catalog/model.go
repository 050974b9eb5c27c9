package catalog

import (
	"strings"
	"time"
)

// Doctor is a practitioner listed on the public site. Specialty keeps
// the legacy "role" wire name so existing clients keep rendering it.
type Doctor struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Specialty string    `json:"role"`
	Bio       string    `json:"bio,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Service is a bookable treatment or consultation type.
type Service struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       string    `json:"price,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// DoctorInput carries admin create/update fields for a doctor.
type DoctorInput struct {
	Name      string `json:"name"`
	Specialty string `json:"role"`
	Bio       string `json:"bio"`
	ImageURL  string `json:"image_url"`
}

// Validate checks required fields.
func (in *DoctorInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrMissingName
	}
	if strings.TrimSpace(in.Specialty) == "" {
		return ErrMissingSpecialty
	}
	return nil
}

// ServiceInput carries admin create/update fields for a service.
type ServiceInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
}

// Validate checks required fields.
func (in *ServiceInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrMissingName
	}
	return nil
}
