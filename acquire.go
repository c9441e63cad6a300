// Package gitauth mediates authentication between a git transport and an
// application-supplied credential source.
// This file contains the credential acquisition interface.
package gitauth

import "context"

// AcquireRequest is the context handed to an acquirer for one acquisition
// round.
type AcquireRequest struct {
	// URL is the resource for which a credential is being requested.
	URL string

	// UsernameFromURL is the username embedded in the URL, the username
	// resolved by an earlier username-only round, or empty if neither exists.
	UsernameFromURL string

	// Allowed is the set of credential types the server currently accepts.
	// The returned credential's type must be a member of this set.
	Allowed CredentialSet

	// Payload is the opaque value supplied at negotiator configuration time,
	// forwarded unchanged on every round. Its lifetime is caller-managed.
	Payload any
}

// Acquirer produces credentials on behalf of the embedding application.
// How credentials are produced (interactive prompt, key file, agent, stored
// secret) is invisible to the transport driving the negotiation.
//
// Acquire returns one of three outcomes:
//   - a credential whose type is in req.Allowed, and a nil error;
//   - an error wrapping ErrNoCredential when it legitimately has nothing to
//     offer for the allowed set, which ends negotiation without being a
//     failure;
//   - any other error, which aborts the whole connection attempt immediately.
//
// Acquire may block on the calling goroutine (terminal prompts, agent
// round-trips). The negotiator imposes no timeout; callers bound long waits
// through ctx or from inside the acquirer itself.
type Acquirer interface {
	Acquire(ctx context.Context, req AcquireRequest) (Credential, error)
}

// AcquirerFunc adapts a plain function to the Acquirer interface.
type AcquirerFunc func(ctx context.Context, req AcquireRequest) (Credential, error)

// Acquire calls f.
func (f AcquirerFunc) Acquire(ctx context.Context, req AcquireRequest) (Credential, error) {
	return f(ctx, req)
}
