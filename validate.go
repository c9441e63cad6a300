// Package gitauth mediates authentication between a git transport and an
// application-supplied credential source.
// This file contains the certificate validation interface.
package gitauth

import "context"

// Validator decides whether a remote peer's certificate is trusted.
//
// Validate returns one of three outcomes:
//   - nil: the certificate is accepted and negotiation may proceed;
//   - an error wrapping ErrCertificateRejected: a policy rejection — the peer
//     is not trusted and the connection attempt fails without any credential
//     being acquired;
//   - any other error: a validator malfunction (for example malformed
//     certificate bytes), fatal and distinguishable from a rejection.
//
// validByDefault reports that the transport's own platform trust evaluation
// (such as the system certificate store) already accepted the peer; a
// validator may choose to defer to it.
type Validator interface {
	Validate(ctx context.Context, cert Certificate, remoteURL string, validByDefault bool) error
}

// ValidatorFunc adapts a plain function to the Validator interface.
type ValidatorFunc func(ctx context.Context, cert Certificate, remoteURL string, validByDefault bool) error

// Validate calls f.
func (f ValidatorFunc) Validate(ctx context.Context, cert Certificate, remoteURL string, validByDefault bool) error {
	return f(ctx, cert, remoteURL, validByDefault)
}

// AcceptDefaults is the built-in validator: it accepts a peer exactly when
// the transport's platform trust evaluation already vouched for it and
// rejects otherwise. It never inspects the certificate itself.
type AcceptDefaults struct{}

// Validate accepts iff validByDefault is true.
func (AcceptDefaults) Validate(_ context.Context, _ Certificate, remoteURL string, validByDefault bool) error {
	if validByDefault {
		return nil
	}
	return WrapErrorf(ErrCertificateRejected, "no platform trust for %s", remoteURL)
}
