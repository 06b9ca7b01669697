package model

import "errors"

var (
	// claim rejected; the claimant must fetch the pairing code again
	ErrInvalidCredentials = errors.New("invalid PIN or screen ID")
	ErrMissingFields      = errors.New("missing required fields")
	ErrInvalidScreenID    = errors.New("invalid screen ID")
	// controller side: the screen was never claimed or was released
	ErrScreenNotFound = errors.New("screen not found")
	// the push connection dropped; recoverable by reconnecting
	ErrChannel            = errors.New("push channel error")
	ErrStorageUnavailable = errors.New("storage unavailable")
	// store lookups that found no record
	ErrNotFound = errors.New("not found")
)
