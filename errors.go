// Package gitauth provides sentinel errors for credential negotiation and
// certificate validation. All errors can be checked using errors.Is() for
// programmatic handling.
package gitauth

import (
	"errors"
	"fmt"
)

// Common sentinel errors that can be checked with errors.Is().
// These give transports a stable API for telling "nothing to offer" apart
// from "something is broken".

// ErrNoCredential is returned when an acquirer legitimately has no credential
// to offer for the allowed types. It is the non-fatal "declined" outcome:
// the connection attempt ends, but nothing is broken.
var ErrNoCredential = errors.New("no credential available")

// ErrCredentialNotAllowed is returned when an acquirer produces a credential
// whose variant is outside the allowed set it was given. This is a contract
// violation in the embedding application and is never retried or coerced.
var ErrCredentialNotAllowed = errors.New("credential type not in allowed set")

// ErrCertificateRejected is returned by validators to reject a peer
// certificate as a policy decision. Any other validator error is treated as a
// validator malfunction rather than a rejection.
var ErrCertificateRejected = errors.New("certificate rejected")

// ErrUntrustedPeer is returned when the validation gate has rejected the
// remote peer. No credential is ever acquired or transmitted afterward.
var ErrUntrustedPeer = errors.New("remote peer is not trusted")

// ErrNotValidated is returned when credential acquisition is requested before
// the validation gate has accepted the peer certificate.
var ErrNotValidated = errors.New("peer certificate has not been validated")

// ErrAlreadyValidated is returned when the validation gate is invoked more
// than once for the same connection attempt.
var ErrAlreadyValidated = errors.New("peer certificate already validated")

// ErrAttemptFinished is returned when an operation is requested on a
// connection attempt that already reached a terminal state.
var ErrAttemptFinished = errors.New("connection attempt already finished")

// ErrTooManyRounds is returned when acquisition rounds exceed the configured
// bound. Since every transport-driven retry must strictly narrow the allowed
// set, hitting the bound indicates a bug in the driving transport.
var ErrTooManyRounds = errors.New("acquisition round limit exceeded")

// ErrMissingField is returned by credential and certificate constructors when
// a semantically mandatory field is empty.
var ErrMissingField = errors.New("missing required field")

// WrapError wraps an error with additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapErrorf wraps an error with formatted additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
