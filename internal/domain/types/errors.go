package types

import "errors"

var (
	// ErrNotFound is returned when no record exists for a user/device.
	ErrNotFound = errors.New("device not found")

	// ErrDuplicateID is returned when a one-time pre-key id is already pooled.
	ErrDuplicateID = errors.New("duplicate pre-key id")

	// ErrMissingSignedPreKey marks a device record without a current signed pre-key.
	ErrMissingSignedPreKey = errors.New("device has no signed pre-key")

	// ErrInvalidSignature is returned when a signed pre-key does not verify
	// under the device identity key.
	ErrInvalidSignature = errors.New("signed pre-key signature does not verify")

	// ErrConcurrentUpdate is returned when an optimistic update kept losing races.
	ErrConcurrentUpdate = errors.New("concurrent update, try again")

	// ErrInvalidRequest is returned for malformed input.
	ErrInvalidRequest = errors.New("invalid request")
)
