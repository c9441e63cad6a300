// Package gitauth mediates authentication between a version-control
// transport (SSH, HTTPS) and a credential source supplied by the embedding
// application, and gates every connection on a certificate trust decision.
//
// The package answers two questions per connection attempt: which credential
// should be offered, and is the remote peer who it claims to be. It owns the
// credential variant model, the acquisition negotiation loop, and the
// certificate validation gate. The wire protocol, network I/O, key-file
// parsing, and prompt rendering all live with the embedding transport and
// application.
//
// # Design Principles
//
// The package follows these core principles:
//   - Closed variant sets - credentials and certificates are sealed unions
//     dispatched by type, never by field inspection
//   - Caller-driven retries - the package never retries on its own; every
//     retry is an explicit re-invocation with a strictly narrower set
//   - Trust before secrets - no credential is acquired until the validation
//     gate has accepted the peer
//   - Go idioms - accepts interfaces, returns concrete types
//
// # Negotiating a Credential
//
// The transport configures a Negotiator once, then drives one Attempt per
// connection:
//
//	n, err := gitauth.NewNegotiator(&gitauth.Options{
//	    Acquirer: myAcquirer,
//	    Validator: myValidator,
//	})
//
//	attempt := n.NewAttempt("ssh://git@example.com/repo.git",
//	    gitauth.WithUsernameRequired())
//
//	// After the transport handshake, validate the peer exactly once.
//	err = attempt.ValidateCertificate(ctx, cert, false)
//
//	// Then acquire a credential for the server-advertised types.
//	allowed := gitauth.NewCredentialSet(gitauth.CredSSHKey, gitauth.CredSSHMemory)
//	cred, err := attempt.Acquire(ctx, allowed)
//
//	// On server rejection, narrow the set and go again.
//	cred, err = attempt.Acquire(ctx, allowed.Without(gitauth.CredSSHKey))
//
//	// On success, close out the attempt and release the credential.
//	err = attempt.Succeed()
//	cred.Release()
//
// # Producing Credentials
//
// Applications implement Acquirer (or use AcquirerFunc). An acquirer
// distinguishes "nothing to offer" from real failure through the
// ErrNoCredential sentinel:
//
//	acq := gitauth.AcquirerFunc(func(ctx context.Context, req gitauth.AcquireRequest) (gitauth.Credential, error) {
//	    if req.Allowed.Has(gitauth.CredUserpassPlaintext) {
//	        return gitauth.NewUserpassPlaintext(req.UsernameFromURL, readSecret())
//	    }
//	    return nil, gitauth.ErrNoCredential
//	})
//
// Ready-made acquirers (static secrets, ssh_config resolution, ssh-agent) and
// adapters to go-git's transport.AuthMethod live in the gogit subpackage.
//
// # Validating Peers
//
// Validators reject through the ErrCertificateRejected sentinel; any other
// error is treated as a validator malfunction, which callers can tell apart
// from a policy rejection:
//
//	v := gitauth.ValidatorFunc(func(ctx context.Context, cert gitauth.Certificate, url string, validByDefault bool) error {
//	    hk, ok := cert.(*gitauth.HostkeyCertificate)
//	    if !ok {
//	        return gitauth.WrapError(gitauth.ErrCertificateRejected, "expected a host key")
//	    }
//	    if digest, ok := hk.SHA256(); ok && trusted(digest) {
//	        return nil
//	    }
//	    return gitauth.ErrCertificateRejected
//	})
//
// # Error Handling
//
// The package provides sentinel errors for every negotiation outcome:
//
//	cred, err := attempt.Acquire(ctx, allowed)
//	if errors.Is(err, gitauth.ErrNoCredential) {
//	    // Nothing to offer; tell the user no matching credential exists.
//	}
//	if errors.Is(err, gitauth.ErrUntrustedPeer) {
//	    // The validation gate rejected the peer.
//	}
//	if errors.Is(err, gitauth.ErrCredentialNotAllowed) {
//	    // Acquirer bug: credential type outside the allowed set.
//	}
//
// # Thread Safety
//
// A Negotiator is immutable after construction and safe for concurrent use;
// each Attempt belongs to a single connection attempt and is driven
// synchronously on one goroutine. The package shares no mutable state across
// attempts. If an application shares an acquisition payload across concurrent
// negotiations, synchronizing that sharing is the application's concern.
//
// # Limitations
//
// This package intentionally does not:
//   - Perform cryptographic signing or hashing (key material and digests are
//     carried opaquely; the gogit subpackage, acting as the transport side,
//     computes host key digests)
//   - Impose timeouts on acquisition or validation callbacks; cancellation is
//     the caller's, via ctx or an error return from inside the callback
//   - Parse key files or certificate bytes
package gitauth
