package appointments

import (
	"strconv"
	"strings"
	"time"
)

// Status is the lifecycle state of an appointment request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// ParseStatus validates a caller-supplied status value.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusConfirmed:
		return StatusConfirmed, nil
	case StatusCancelled:
		return StatusCancelled, nil
	case StatusCompleted:
		return StatusCompleted, nil
	default:
		return "", ErrUnknownStatus
	}
}

// Terminal reports whether no further transitions leave this state.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// ServiceRef is the display projection of a referenced service.
type ServiceRef struct {
	Name string `json:"name"`
}

// DoctorRef is the display projection of a referenced doctor.
type DoctorRef struct {
	Name      string `json:"name"`
	Specialty string `json:"role"`
}

// Requester carries the profile fields joined onto admin listings.
type Requester struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// Appointment is a booking request created from the public contact form
// and managed through its lifecycle by admins and the owning patient.
type Appointment struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	Message       string     `json:"message"`
	Status        Status     `json:"status"`
	ServiceID     *int64     `json:"service_id,omitempty"`
	DoctorID      *int64     `json:"doctor_id,omitempty"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	ScheduledTime *string    `json:"scheduled_time,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	Location      *string    `json:"location,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`

	// Merged display references; never authoritative.
	Service   *ServiceRef `json:"services,omitempty"`
	Doctor    *DoctorRef  `json:"doctors,omitempty"`
	Requester *Requester  `json:"profiles,omitempty"`
}

// CreateRequest is the public contact-form submission. Any status the
// caller supplies is discarded: new requests are always pending.
type CreateRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	ServiceID string `json:"serviceId"`
	Message   string `json:"message"`

	// Ignored on purpose; decoded so injection attempts don't error.
	Status string `json:"status,omitempty"`
}

// Validate checks required fields and resolves the service id.
func (r *CreateRequest) Validate() (int64, error) {
	if strings.TrimSpace(r.Name) == "" {
		return 0, ErrMissingName
	}
	if strings.TrimSpace(r.Email) == "" {
		return 0, ErrMissingEmail
	}
	if strings.TrimSpace(r.Phone) == "" {
		return 0, ErrMissingPhone
	}
	if strings.TrimSpace(r.Message) == "" {
		return 0, ErrMissingMessage
	}
	serviceID, err := strconv.ParseInt(strings.TrimSpace(r.ServiceID), 10, 64)
	if err != nil || serviceID <= 0 {
		return 0, ErrInvalidServiceID
	}
	return serviceID, nil
}

// ScheduleUpdate carries the admin-editable scheduling fields.
type ScheduleUpdate struct {
	DoctorID      *int64     `json:"doctor_id,omitempty"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	ScheduledTime *string    `json:"scheduled_time,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	Location      *string    `json:"location,omitempty"`
}
