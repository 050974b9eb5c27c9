package catalog

import "errors"

var (
	ErrMissingName      = errors.New("catalog: name is required")
	ErrMissingSpecialty = errors.New("catalog: specialty is required")
	ErrNotFound         = errors.New("catalog: not found")
)
