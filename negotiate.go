// Package gitauth mediates authentication between a git transport and an
// application-supplied credential source.
// This file contains the acquisition negotiation loop.
package gitauth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"strings"
)

// AttemptState is the negotiation state of one connection attempt.
type AttemptState int8

const (
	// StateNoUsername means no username is known yet for the attempt.
	StateNoUsername AttemptState = iota
	// StateHaveUsername means a username is known, either embedded in the
	// URL or resolved by a username-only acquisition round.
	StateHaveUsername
	// StateAuthenticated means the transport reported successful
	// authentication. Terminal.
	StateAuthenticated
	// StateDeclined means acquisition legitimately produced nothing for the
	// allowed credential types. Terminal.
	StateDeclined
	// StateFailed means a fatal error ended the attempt. Terminal.
	StateFailed
)

// String returns a human-readable state name.
func (s AttemptState) String() string {
	switch s {
	case StateNoUsername:
		return "no-username"
	case StateHaveUsername:
		return "have-username"
	case StateAuthenticated:
		return "authenticated"
	case StateDeclined:
		return "declined"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends the attempt.
func (s AttemptState) Terminal() bool {
	return s == StateAuthenticated || s == StateDeclined || s == StateFailed
}

// Options configures a Negotiator.
type Options struct {
	// Acquirer is the REQUIRED credential source.
	Acquirer Acquirer

	// Validator decides certificate trust. If nil, AcceptDefaults is used:
	// peers are trusted only when the transport's platform trust evaluation
	// already vouched for them.
	Validator Validator

	// Payload is an opaque value forwarded unchanged to the acquirer on
	// every round. Its lifetime is caller-managed and must outlive every
	// acquisition call.
	Payload any

	// MaxRounds bounds acquisition rounds per connection attempt.
	// Defaults to the number of credential variants: a correctly driven
	// retry loop clears at least one type per round, so exceeding the bound
	// always indicates a transport bug.
	MaxRounds int

	// Logger is an optional structured logger for negotiation events.
	// If nil, nothing is logged.
	Logger *slog.Logger
}

// Validate checks that the Options are properly configured.
// It returns an error if required fields are missing or invalid.
func (o *Options) Validate() error {
	if o.Acquirer == nil {
		return WrapError(ErrMissingField, "acquirer")
	}
	if o.MaxRounds < 0 {
		return WrapError(ErrMissingField, "MaxRounds cannot be negative")
	}
	return nil
}

// Negotiator mediates credential acquisition for a transport. It holds no
// per-connection state; each connection attempt gets its own Attempt and
// concurrent attempts are fully independent.
type Negotiator struct {
	acquirer  Acquirer
	validator Validator
	payload   any
	maxRounds int
	logger    *slog.Logger
}

// NewNegotiator creates a Negotiator from the given options.
func NewNegotiator(opts *Options) (*Negotiator, error) {
	if err := opts.Validate(); err != nil {
		return nil, WrapError(err, "invalid negotiator options")
	}

	n := &Negotiator{
		acquirer:  opts.Acquirer,
		validator: opts.Validator,
		payload:   opts.Payload,
		maxRounds: opts.MaxRounds,
		logger:    opts.Logger,
	}
	if n.validator == nil {
		n.validator = AcceptDefaults{}
	}
	if n.maxRounds == 0 {
		n.maxRounds = credentialTypeCount
	}
	if n.logger == nil {
		n.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return n, nil
}

// AttemptOption configures one connection attempt.
type AttemptOption func(*Attempt)

// WithUsernameRequired marks the attempt's protocol as needing a username
// before allowed credential types can be determined (SSH, typically). When
// the URL embeds no username, the first acquisition is then constrained to
// the username-only variant and the resolved username is substituted into
// every subsequent round.
func WithUsernameRequired() AttemptOption {
	return func(a *Attempt) {
		a.usernameRequired = true
	}
}

// NewAttempt starts a connection attempt against remoteURL. Any username
// embedded in the URL (including scp-style git@host:path forms) is extracted
// as the attempt's initial username.
func (n *Negotiator) NewAttempt(remoteURL string, opts ...AttemptOption) *Attempt {
	a := &Attempt{
		negotiator: n,
		url:        remoteURL,
		username:   usernameFromURL(remoteURL),
	}
	if a.username != "" {
		a.state = StateHaveUsername
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Attempt is the negotiation state machine for a single connection attempt:
//
//	NoUsername -> HaveUsername -> Authenticated | Declined | Failed
//
// The transport drives it: ValidateCertificate once after the handshake,
// then Acquire, then either Succeed or another Acquire round with a set
// narrowed by Without for the type the server just rejected.
//
// An Attempt is not safe for concurrent use; one connection attempt is
// synchronous by design.
type Attempt struct {
	negotiator *Negotiator
	url        string
	username   string

	state            AttemptState
	usernameRequired bool
	validated        bool
	rounds           int
}

// State returns the current negotiation state.
func (a *Attempt) State() AttemptState { return a.state }

// Username returns the username known for this attempt, or empty.
func (a *Attempt) Username() string { return a.username }

// Rounds returns the number of acquisition calls made so far.
func (a *Attempt) Rounds() int { return a.rounds }

// ValidateCertificate runs the validation gate against the certificate the
// remote peer presented. It must be called exactly once per attempt, after
// the transport handshake and strictly before any Acquire call.
//
// A nil return means the peer is accepted. A return wrapping ErrUntrustedPeer
// means the validator rejected the peer as a policy decision; any other error
// means the validator itself failed. Both failure cases are terminal.
func (a *Attempt) ValidateCertificate(ctx context.Context, cert Certificate, validByDefault bool) error {
	if a.state.Terminal() {
		return WrapError(ErrAttemptFinished, "cannot validate certificate")
	}
	if a.validated {
		a.state = StateFailed
		return WrapError(ErrAlreadyValidated, a.url)
	}
	a.validated = true

	err := a.negotiator.validator.Validate(ctx, cert, a.url, validByDefault)
	switch {
	case err == nil:
		a.negotiator.logger.DebugContext(ctx, "peer certificate accepted", "url", a.url)
		return nil
	case isReject(err):
		a.state = StateFailed
		a.negotiator.logger.WarnContext(ctx, "peer certificate rejected", "url", a.url, "reason", err)
		return WrapErrorf(ErrUntrustedPeer, "certificate validation for %s", a.url)
	default:
		a.state = StateFailed
		a.negotiator.logger.ErrorContext(ctx, "certificate validator failed", "url", a.url, "error", err)
		return WrapError(err, "certificate validator failed")
	}
}

// Acquire runs one acquisition round for the credential types in allowed.
// When the protocol requires a username and none is known yet, a
// username-only round is issued first and the result substituted into the
// general round.
//
// The returned credential's type is guaranteed to be a member of allowed;
// ownership passes to the caller, which releases it when the authentication
// attempt no longer needs it. On server-side rejection of the credential the
// transport re-invokes Acquire with allowed.Without(rejected type).
func (a *Attempt) Acquire(ctx context.Context, allowed CredentialSet) (Credential, error) {
	if a.state.Terminal() {
		return nil, WrapError(ErrAttemptFinished, "cannot acquire credential")
	}
	if !a.validated {
		return nil, WrapError(ErrNotValidated, a.url)
	}
	if allowed.IsEmpty() {
		a.state = StateDeclined
		return nil, WrapError(ErrNoCredential, "no acceptable credential types remain")
	}

	if a.usernameRequired && a.username == "" {
		if err := a.resolveUsername(ctx); err != nil {
			return nil, err
		}
	}

	cred, err := a.acquireRound(ctx, allowed)
	if err != nil {
		return nil, err
	}

	if a.username == "" {
		if name, ok := cred.Username(); ok {
			a.username = name
		}
	}
	if a.state == StateNoUsername && a.username != "" {
		a.state = StateHaveUsername
	}
	a.negotiator.logger.DebugContext(ctx, "credential acquired",
		"url", a.url, "type", cred.Type().String(), "round", a.rounds)
	return cred, nil
}

// Succeed records that the transport's own authentication step accepted the
// credential, moving the attempt to its successful terminal state.
func (a *Attempt) Succeed() error {
	if a.state.Terminal() {
		return WrapError(ErrAttemptFinished, "cannot mark authenticated")
	}
	a.state = StateAuthenticated
	return nil
}

// Fail records a transport-level authentication failure that exhausted all
// variants, moving the attempt to its failed terminal state.
func (a *Attempt) Fail() error {
	if a.state.Terminal() {
		return WrapError(ErrAttemptFinished, "cannot mark failed")
	}
	a.state = StateFailed
	return nil
}

// resolveUsername runs the username-only pre-resolution round.
func (a *Attempt) resolveUsername(ctx context.Context) error {
	cred, err := a.acquireRound(ctx, NewCredentialSet(CredUsername))
	if err != nil {
		return err
	}

	name, _ := cred.Username()
	cred.Release()
	if name == "" {
		a.state = StateFailed
		return WrapError(ErrMissingField, "username-only credential carried no username")
	}
	a.username = name
	a.state = StateHaveUsername
	a.negotiator.logger.DebugContext(ctx, "username resolved", "url", a.url, "username", name)
	return nil
}

// acquireRound performs a single acquirer call and enforces the allowed-set
// contract on its result.
func (a *Attempt) acquireRound(ctx context.Context, allowed CredentialSet) (Credential, error) {
	a.rounds++
	if a.rounds > a.negotiator.maxRounds {
		a.state = StateFailed
		return nil, WrapErrorf(ErrTooManyRounds, "round %d exceeds bound %d", a.rounds, a.negotiator.maxRounds)
	}

	cred, err := a.negotiator.acquirer.Acquire(ctx, AcquireRequest{
		URL:             a.url,
		UsernameFromURL: a.username,
		Allowed:         allowed,
		Payload:         a.negotiator.payload,
	})
	switch {
	case err != nil && isDeclined(err):
		a.state = StateDeclined
		return nil, WrapErrorf(err, "acquisition declined for %s", a.url)
	case err != nil:
		a.state = StateFailed
		return nil, WrapError(err, "credential acquisition failed")
	case cred == nil:
		a.state = StateFailed
		return nil, WrapError(ErrNoCredential, "acquirer returned neither credential nor error")
	case !allowed.Has(cred.Type()):
		got := cred.Type()
		cred.Release()
		a.state = StateFailed
		return nil, WrapErrorf(ErrCredentialNotAllowed, "acquirer returned %s, allowed %s", got, allowed)
	}
	return cred, nil
}

func isDeclined(err error) bool { return errors.Is(err, ErrNoCredential) }

func isReject(err error) bool { return errors.Is(err, ErrCertificateRejected) }

// usernameFromURL extracts the username embedded in a remote URL, handling
// both standard URLs and scp-style user@host:path forms.
func usernameFromURL(remoteURL string) string {
	// scp-style: user@host:path, but not a scheme://... URL
	if !strings.Contains(remoteURL, "://") {
		if at := strings.Index(remoteURL, "@"); at > 0 {
			return remoteURL[:at]
		}
		return ""
	}

	parsed, err := url.Parse(remoteURL)
	if err != nil || parsed.User == nil {
		return ""
	}
	return parsed.User.Username()
}
