package appointments

import "errors"

var (
	// ErrMissingName is returned when the name is absent.
	ErrMissingName = errors.New("name is required")

	// ErrMissingEmail is returned when the email is absent.
	ErrMissingEmail = errors.New("email is required")

	// ErrMissingPhone is returned when the phone number is absent.
	ErrMissingPhone = errors.New("phone is required")

	// ErrMissingMessage is returned when the message is absent.
	ErrMissingMessage = errors.New("message is required")

	// ErrInvalidServiceID is returned when the service id does not
	// resolve to a positive integer.
	ErrInvalidServiceID = errors.New("a valid service must be selected")

	// ErrUnknownStatus is returned for a status outside the lifecycle.
	ErrUnknownStatus = errors.New("unknown appointment status")

	// ErrNotFound is returned when no visible appointment matches.
	ErrNotFound = errors.New("appointment not found")

	// ErrForbiddenTransition is returned when the actor may not move the
	// appointment to the requested status. The record is left untouched.
	ErrForbiddenTransition = errors.New("status transition not permitted")
)
