package domain

import "errors"

var (
	// ErrValidation marks bad input data (rows, enums, templates).
	ErrValidation = errors.New("validation error")

	// ErrConfiguration marks a fatal configuration problem detected
	// before any send is attempted.
	ErrConfiguration = errors.New("configuration error")

	// ErrRender marks a per-recipient content rendering failure.
	ErrRender = errors.New("render error")

	// ErrAttachment marks a per-recipient attachment build failure.
	ErrAttachment = errors.New("attachment error")
)
