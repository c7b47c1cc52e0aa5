package domain

import "errors"

var (
	// ErrInvalidDuration is returned when a timer is started with a non-positive or non-finite length.
	ErrInvalidDuration = errors.New("timer duration must be a positive number of hours")

	// ErrInvalidImport marks a site list payload that is not `{ "allowedSites": [string...] }`.
	ErrInvalidImport = errors.New(`invalid file format, expected { "allowedSites": [...] }`)

	// ErrEmptySite is returned when a site normalizes to nothing.
	ErrEmptySite = errors.New("site must not be empty")

	// ErrUnknownAction is returned by dispatchers for unrecognized request actions.
	ErrUnknownAction = errors.New("unknown action")
)
