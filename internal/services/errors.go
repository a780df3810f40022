// Package services implements the conversation, delivery and receipt
// engines behind the REST and websocket surfaces.
package services

import "errors"

// Sentinel errors the handler layer maps to HTTP statuses with
// errors.Is. Services wrap them with context via fmt.Errorf("%w: ...").
var (
	ErrValidation = errors.New("invalid request")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
)
