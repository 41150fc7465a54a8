package services

import "errors"

var (
	// ErrInvalidInput covers malformed requests: empty query, unreadable
	// image, conflicting or missing parameters.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound covers unknown task and product ids.
	ErrNotFound = errors.New("not found")
)
