package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrGenerationFailed is matched by CryptoErrors raised while creating keys.
	ErrGenerationFailed = errors.New("key generation failed")

	// ErrKeysDestroyed is returned when key material is requested after Destroy.
	ErrKeysDestroyed = errors.New("key material destroyed")

	// ErrAlreadyActive is returned by Join while a session is live.
	ErrAlreadyActive = errors.New("session already active")

	// ErrNotActive is returned by operations that need a live session.
	ErrNotActive = errors.New("no active session")

	// ErrEmptyMessage rejects blank messages before encryption.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrInvalidSession is returned by the relay for unknown session ids.
	ErrInvalidSession = errors.New("invalid session")
)

// CryptoError reports a failure inside a cryptographic primitive.
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("crypto %s: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error { return e.Err }

// TransportError reports a failed exchange with the relay.
type TransportError struct {
	Op     string
	Status int // HTTP status when the relay answered, zero otherwise
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("relay %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("relay %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError reports user input rejected before any side effect.
type ValidationError struct {
	Field  string
	Reason string
	Err    error // optional sentinel, e.g. ErrEmptyMessage
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsTransport reports whether err is, or wraps, a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
