// Package gitauth provides unit tests for the acquisition negotiation loop.
package gitauth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedAcquirer replays canned outcomes and records every request it saw.
type scriptedAcquirer struct {
	responses []func(req AcquireRequest) (Credential, error)
	requests  []AcquireRequest
}

func (a *scriptedAcquirer) Acquire(_ context.Context, req AcquireRequest) (Credential, error) {
	a.requests = append(a.requests, req)
	if len(a.responses) == 0 {
		return nil, ErrNoCredential
	}
	next := a.responses[0]
	a.responses = a.responses[1:]
	return next(req)
}

func respondWith(cred Credential, err error) func(AcquireRequest) (Credential, error) {
	return func(AcquireRequest) (Credential, error) { return cred, err }
}

func acceptAll() Validator {
	return ValidatorFunc(func(context.Context, Certificate, string, bool) error { return nil })
}

func newTestNegotiator(t *testing.T, acq Acquirer, opts func(*Options)) *Negotiator {
	t.Helper()
	o := &Options{Acquirer: acq, Validator: acceptAll()}
	if opts != nil {
		opts(o)
	}
	n, err := NewNegotiator(o)
	require.NoError(t, err)
	return n
}

func validatedAttempt(t *testing.T, n *Negotiator, url string, opts ...AttemptOption) *Attempt {
	t.Helper()
	a := n.NewAttempt(url, opts...)
	require.NoError(t, a.ValidateCertificate(context.Background(), NewHostkeyCertificate(), false))
	return a
}

func TestOptionsValidate(t *testing.T) {
	t.Run("missing acquirer", func(t *testing.T) {
		n, err := NewNegotiator(&Options{})
		assert.Nil(t, n)
		assert.ErrorIs(t, err, ErrMissingField)
	})

	t.Run("negative round bound", func(t *testing.T) {
		_, err := NewNegotiator(&Options{Acquirer: &scriptedAcquirer{}, MaxRounds: -1})
		assert.Error(t, err)
	})
}

func TestAttempt_GateBeforeAcquisition(t *testing.T) {
	t.Run("acquire before validation is refused", func(t *testing.T) {
		acq := &scriptedAcquirer{}
		n := newTestNegotiator(t, acq, nil)
		a := n.NewAttempt("https://example.com/repo.git")

		cred, err := a.Acquire(context.Background(), AllCredentialTypes)
		assert.Nil(t, cred)
		assert.ErrorIs(t, err, ErrNotValidated)
		assert.Empty(t, acq.requests, "no acquisition call may precede the gate")
	})

	t.Run("gate runs exactly once", func(t *testing.T) {
		n := newTestNegotiator(t, &scriptedAcquirer{}, nil)
		a := n.NewAttempt("https://example.com/repo.git")

		cert := NewHostkeyCertificate()
		require.NoError(t, a.ValidateCertificate(context.Background(), cert, false))

		err := a.ValidateCertificate(context.Background(), cert, false)
		assert.ErrorIs(t, err, ErrAlreadyValidated)
	})
}

func TestAttempt_ValidationOutcomes(t *testing.T) {
	t.Run("rejection blocks acquisition with untrusted peer", func(t *testing.T) {
		acq := &scriptedAcquirer{}
		reject := ValidatorFunc(func(context.Context, Certificate, string, bool) error {
			return WrapError(ErrCertificateRejected, "unknown fingerprint")
		})
		n := newTestNegotiator(t, acq, func(o *Options) { o.Validator = reject })
		a := n.NewAttempt("https://example.com/repo.git")

		cert, err := NewX509Certificate([]byte{0x30})
		require.NoError(t, err)

		vErr := a.ValidateCertificate(context.Background(), cert, false)
		assert.ErrorIs(t, vErr, ErrUntrustedPeer)
		assert.Equal(t, StateFailed, a.State())

		// No acquisition call ever occurs after a rejection.
		_, aErr := a.Acquire(context.Background(), AllCredentialTypes)
		assert.ErrorIs(t, aErr, ErrAttemptFinished)
		assert.Empty(t, acq.requests)
	})

	t.Run("validator malfunction is not a rejection", func(t *testing.T) {
		malfunction := errors.New("malformed certificate bytes")
		broken := ValidatorFunc(func(context.Context, Certificate, string, bool) error {
			return malfunction
		})
		n := newTestNegotiator(t, &scriptedAcquirer{}, func(o *Options) { o.Validator = broken })
		a := n.NewAttempt("https://example.com/repo.git")

		err := a.ValidateCertificate(context.Background(), NewHostkeyCertificate(), false)
		assert.ErrorIs(t, err, malfunction)
		assert.NotErrorIs(t, err, ErrUntrustedPeer)
		assert.Equal(t, StateFailed, a.State())
	})

	t.Run("default validator trusts platform decision", func(t *testing.T) {
		n, err := NewNegotiator(&Options{Acquirer: &scriptedAcquirer{}})
		require.NoError(t, err)

		a := n.NewAttempt("https://example.com/repo.git")
		require.NoError(t, a.ValidateCertificate(context.Background(), NewHostkeyCertificate(), true))

		a = n.NewAttempt("https://example.com/repo.git")
		assert.ErrorIs(t,
			a.ValidateCertificate(context.Background(), NewHostkeyCertificate(), false),
			ErrUntrustedPeer)
	})
}

func TestAttempt_Acquire(t *testing.T) {
	t.Run("passes exact allowed set and URL through", func(t *testing.T) {
		cred, err := NewUserpassPlaintext("alice", "pw")
		require.NoError(t, err)

		acq := &scriptedAcquirer{responses: []func(AcquireRequest) (Credential, error){
			respondWith(cred, nil),
		}}
		n := newTestNegotiator(t, acq, func(o *Options) { o.Payload = "opaque" })
		a := validatedAttempt(t, n, "https://alice@example.com/repo.git")

		allowed := NewCredentialSet(CredUserpassPlaintext, CredSSHKey)
		got, err := a.Acquire(context.Background(), allowed)
		require.NoError(t, err)
		assert.Same(t, cred, got.(*UserpassCredential))

		require.Len(t, acq.requests, 1)
		req := acq.requests[0]
		assert.Equal(t, "https://alice@example.com/repo.git", req.URL)
		assert.Equal(t, "alice", req.UsernameFromURL)
		assert.Equal(t, allowed, req.Allowed)
		assert.Equal(t, "opaque", req.Payload)
	})

	t.Run("credential outside allowed set is a contract violation", func(t *testing.T) {
		cred, err := NewUserpassPlaintext("alice", "pw")
		require.NoError(t, err)

		acq := &scriptedAcquirer{responses: []func(AcquireRequest) (Credential, error){
			respondWith(cred, nil),
		}}
		n := newTestNegotiator(t, acq, nil)
		a := validatedAttempt(t, n, "https://example.com/repo.git")

		got, err := a.Acquire(context.Background(), NewCredentialSet(CredSSHKey))
		assert.Nil(t, got)
		assert.ErrorIs(t, err, ErrCredentialNotAllowed)
		assert.Equal(t, StateFailed, a.State())
		assert.Empty(t, cred.Password, "rejected credential must be released")
	})

	t.Run("declined on first call terminates without retry", func(t *testing.T) {
		acq := &scriptedAcquirer{responses: []func(AcquireRequest) (Credential, error){
			respondWith(nil, ErrNoCredential),
		}}
		n := newTestNegotiator(t, acq, nil)
		a := validatedAttempt(t, n, "https://example.com/repo.git")

		got, err := a.Acquire(context.Background(), AllCredentialTypes)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, ErrNoCredential)
		assert.Equal(t, StateDeclined, a.State())
		assert.Len(t, acq.requests, 1)

		// The loop never re-enters on its own.
		_, err = a.Acquire(context.Background(), AllCredentialTypes)
		assert.ErrorIs(t, err, ErrAttemptFinished)
		assert.Len(t, acq.requests, 1)
	})

	t.Run("hard failure aborts immediately", func(t *testing.T) {
		boom := errors.New("agent exploded")
		acq := &scriptedAcquirer{responses: []func(AcquireRequest) (Credential, error){
			respondWith(nil, boom),
		}}
		n := newTestNegotiator(t, acq, nil)
		a := validatedAttempt(t, n, "https://example.com/repo.git")

		_, err := a.Acquire(context.Background(), AllCredentialTypes)
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrNoCredential)
		assert.Equal(t, StateFailed, a.State())
	})

	t.Run("nil credential without error is a failure", func(t *testing.T) {
		acq := &scriptedAcquirer{responses: []func(AcquireRequest) (Credential, error){
			respondWith(nil, nil),
		}}
		n := newTestNegotiator(t, acq, nil)
		a := validatedAttempt(t, n, "https://example.com/repo.git")

		_, err := a.Acquire(context.Background(), AllCredentialTypes)
		assert.Error(t, err)
		assert.Equal(t, StateFailed, a.State())
	})

	t.Run("empty allowed set declines", func(t *testing.T) {
		acq := &scriptedAcquirer{}
		n := newTestNegotiator(t, acq, nil)
		a := validatedAttempt(t, n, "https://example.com/repo.git")

		_, err := a.Acquire(context.Background(), CredentialSet(0))
		assert.ErrorIs(t, err, ErrNoCredential)
		assert.Equal(t, StateDeclined, a.State())
		assert.Empty(t, acq.requests)
	})
}

func TestAttempt_UsernamePreResolution(t *testing.T) {
	t.Run("username round precedes constrained ssh round", func(t *testing.T) {
		userCred, err := NewUsername("deploy")
		require.NoError(t, err)
		keyCred, err := NewSSHKey("deploy", "", "/home/deploy/.ssh/id_ed25519", "")
		require.NoError(t, err)

		acq := &scriptedAcquirer{responses: []func(AcquireRequest) (Credential, error){
			respondWith(userCred, nil),
			respondWith(keyCred, nil),
		}}
		n := newTestNegotiator(t, acq, nil)
		a := validatedAttempt(t, n, "ssh://example.com/repo.git", WithUsernameRequired())

		allowed := NewCredentialSet(CredSSHKey, CredSSHMemory)
		got, err := a.Acquire(context.Background(), allowed)
		require.NoError(t, err)
		assert.Equal(t, CredSSHKey, got.Type())

		require.Len(t, acq.requests, 2)
		assert.Equal(t, NewCredentialSet(CredUsername), acq.requests[0].Allowed,
			"first round must be constrained to username-only")
		assert.Empty(t, acq.requests[0].UsernameFromURL)
		assert.Equal(t, allowed, acq.requests[1].Allowed)
		assert.Equal(t, "deploy", acq.requests[1].UsernameFromURL,
			"resolved username must be substituted into the general round")

		assert.Equal(t, "deploy", a.Username())
		assert.Equal(t, StateHaveUsername, a.State())
	})

	t.Run("embedded username skips the probe", func(t *testing.T) {
		keyCred, err := NewSSHKey("git", "", "/key", "")
		require.NoError(t, err)

		acq := &scriptedAcquirer{responses: []func(AcquireRequest) (Credential, error){
			respondWith(keyCred, nil),
		}}
		n := newTestNegotiator(t, acq, nil)
		a := validatedAttempt(t, n, "git@example.com:repo.git", WithUsernameRequired())
		assert.Equal(t, StateHaveUsername, a.State())

		_, err = a.Acquire(context.Background(), NewCredentialSet(CredSSHKey))
		require.NoError(t, err)
		require.Len(t, acq.requests, 1)
		assert.Equal(t, "git", acq.requests[0].UsernameFromURL)
	})

	t.Run("wrong variant from username round violates contract", func(t *testing.T) {
		cred, err := NewUserpassPlaintext("alice", "pw")
		require.NoError(t, err)

		acq := &scriptedAcquirer{responses: []func(AcquireRequest) (Credential, error){
			respondWith(cred, nil),
		}}
		n := newTestNegotiator(t, acq, nil)
		a := validatedAttempt(t, n, "ssh://example.com/repo.git", WithUsernameRequired())

		_, err = a.Acquire(context.Background(), NewCredentialSet(CredSSHKey))
		assert.ErrorIs(t, err, ErrCredentialNotAllowed)
		assert.Equal(t, StateFailed, a.State())
	})
}

func TestAttempt_TransportDrivenNarrowing(t *testing.T) {
	// Server advertises {userpass, ssh-key}; the userpass attempt fails at
	// the transport, which narrows to {ssh-key} and re-invokes.
	userpass, err := NewUserpassPlaintext("alice", "wrong-pw")
	require.NoError(t, err)
	sshKey, err := NewSSHKey("alice", "", "/key", "")
	require.NoError(t, err)

	acq := &scriptedAcquirer{responses: []func(AcquireRequest) (Credential, error){
		respondWith(userpass, nil),
		respondWith(sshKey, nil),
	}}
	n := newTestNegotiator(t, acq, nil)
	a := validatedAttempt(t, n, "https://alice@example.com/repo.git")

	allowed := NewCredentialSet(CredUserpassPlaintext, CredSSHKey)
	first, err := a.Acquire(context.Background(), allowed)
	require.NoError(t, err)
	assert.Equal(t, CredUserpassPlaintext, first.Type())

	// Transport-side auth failed; narrow and retry.
	first.Release()
	narrowed := allowed.Without(CredUserpassPlaintext)
	second, err := a.Acquire(context.Background(), narrowed)
	require.NoError(t, err)
	assert.Equal(t, CredSSHKey, second.Type())

	require.Len(t, acq.requests, 2)
	assert.Equal(t, narrowed, acq.requests[1].Allowed)

	require.NoError(t, a.Succeed())
	assert.Equal(t, StateAuthenticated, a.State())
	assert.True(t, a.State().Terminal())
}

func TestAttempt_RoundBound(t *testing.T) {
	// An acquirer that always produces an allowed credential, driven by a
	// transport that never narrows: the bound must end the loop.
	acq := AcquirerFunc(func(_ context.Context, req AcquireRequest) (Credential, error) {
		return NewUserpassPlaintext("alice", "pw")
	})
	n := newTestNegotiator(t, acq, nil)
	a := validatedAttempt(t, n, "https://example.com/repo.git")

	allowed := NewCredentialSet(CredUserpassPlaintext)
	var lastErr error
	for i := 0; i < credentialTypeCount+1; i++ {
		var cred Credential
		cred, lastErr = a.Acquire(context.Background(), allowed)
		if lastErr != nil {
			break
		}
		cred.Release()
	}
	assert.ErrorIs(t, lastErr, ErrTooManyRounds)
	assert.Equal(t, StateFailed, a.State())
	assert.LessOrEqual(t, a.Rounds(), credentialTypeCount+1)
}

func TestAttempt_TerminalStateGuards(t *testing.T) {
	n := newTestNegotiator(t, &scriptedAcquirer{}, nil)
	a := validatedAttempt(t, n, "https://example.com/repo.git")

	require.NoError(t, a.Succeed())
	assert.ErrorIs(t, a.Succeed(), ErrAttemptFinished)
	assert.ErrorIs(t, a.Fail(), ErrAttemptFinished)

	_, err := a.Acquire(context.Background(), AllCredentialTypes)
	assert.ErrorIs(t, err, ErrAttemptFinished)

	err = a.ValidateCertificate(context.Background(), NewHostkeyCertificate(), false)
	assert.ErrorIs(t, err, ErrAttemptFinished)
}

func TestUsernameFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"https with user", "https://alice@example.com/repo.git", "alice"},
		{"https without user", "https://example.com/repo.git", ""},
		{"ssh with user", "ssh://git@example.com/repo.git", "git"},
		{"scp style", "git@example.com:user/repo.git", "git"},
		{"scp style without user", "example.com:user/repo.git", ""},
		{"garbage", "not a url", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, usernameFromURL(tt.url))
		})
	}
}

func TestAttemptStateString(t *testing.T) {
	assert.Equal(t, "no-username", StateNoUsername.String())
	assert.Equal(t, "have-username", StateHaveUsername.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "declined", StateDeclined.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.False(t, StateNoUsername.Terminal())
	assert.False(t, StateHaveUsername.Terminal())
}
