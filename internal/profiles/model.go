package profiles

import "time"

// Profile is a patient's self-managed record, one-to-one with an
// identity user. Rows are created lazily the first time a user opens
// their profile page.
type Profile struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Phone             string    `json:"phone"`
	DateOfBirth       string    `json:"date_of_birth"`
	Address           string    `json:"address"`
	City              string    `json:"city"`
	State             string    `json:"state"`
	ZipCode           string    `json:"zip_code"`
	EmergencyContact  string    `json:"emergency_contact"`
	Allergies         string    `json:"allergies"`
	MedicalConditions string    `json:"medical_conditions"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// UpdateRequest carries the user-editable profile fields. ID and email
// always come from the session, never from the payload.
type UpdateRequest struct {
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	Phone             string `json:"phone"`
	DateOfBirth       string `json:"date_of_birth"`
	Address           string `json:"address"`
	City              string `json:"city"`
	State             string `json:"state"`
	ZipCode           string `json:"zip_code"`
	EmergencyContact  string `json:"emergency_contact"`
	Allergies         string `json:"allergies"`
	MedicalConditions string `json:"medical_conditions"`
}
