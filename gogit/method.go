// Package gogit binds the gitauth negotiation core to go-git transports.
// This file converts credentials into go-git authentication methods.
package gogit

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	gossh "golang.org/x/crypto/ssh"

	"github.com/input-output-hk/catalyst-forge-libs/gitauth"
)

// ErrUnsupportedCredential is returned when a credential variant has no
// go-git authentication method for the target URL's scheme. The default and
// username-only variants always map here: go-git has no Negotiate/NTLM
// method, and a username probe is never a transmittable method.
var ErrUnsupportedCredential = errors.New("credential type not supported by transport")

// AuthMethod converts a negotiated credential into the go-git authentication
// method appropriate for remoteURL's scheme. hostKey optionally overrides
// host key verification for SSH methods; pass the result of
// GateHostKeyCallback to route verification through the validation gate, or
// nil for go-git's default known_hosts behavior.
//
// The credential is only read, never released; ownership stays with the
// caller.
//
//nolint:ireturn // go-git requires returning transport.AuthMethod interface
func AuthMethod(cred gitauth.Credential, remoteURL string, hostKey gossh.HostKeyCallback) (transport.AuthMethod, error) {
	scheme, err := urlScheme(remoteURL)
	if err != nil {
		return nil, err
	}

	if isHTTPScheme(scheme) {
		return httpMethod(cred)
	}
	if isSSHScheme(scheme) {
		return sshMethod(cred, hostKey)
	}
	return nil, fmt.Errorf("no authentication methods for scheme %q", scheme)
}

//nolint:ireturn // go-git requires returning transport.AuthMethod interface
func httpMethod(cred gitauth.Credential) (transport.AuthMethod, error) {
	switch c := cred.(type) {
	case *gitauth.UserpassCredential:
		return &githttp.BasicAuth{Username: c.User, Password: c.Password}, nil
	default:
		return nil, WrapErrorf(ErrUnsupportedCredential, "%s over HTTP", cred.Type())
	}
}

//nolint:ireturn // go-git requires returning transport.AuthMethod interface
func sshMethod(cred gitauth.Credential, hostKey gossh.HostKeyCallback) (transport.AuthMethod, error) {
	switch c := cred.(type) {
	case *gitauth.UserpassCredential:
		auth := &gitssh.Password{User: c.User, Password: c.Password}
		if hostKey != nil {
			auth.HostKeyCallback = hostKey
		}
		return auth, nil

	case *gitauth.SSHKeyCredential:
		auth, err := gitssh.NewPublicKeysFromFile(c.User, c.PrivateKeyPath, c.Passphrase)
		if err != nil {
			return nil, WrapError(err, "failed to load SSH key from file")
		}
		if hostKey != nil {
			auth.HostKeyCallback = hostKey
		}
		return auth, nil

	case *gitauth.SSHMemoryCredential:
		auth, err := gitssh.NewPublicKeys(c.User, c.PrivateKey, c.Passphrase)
		if err != nil {
			return nil, WrapError(err, "failed to load SSH key from memory")
		}
		if hostKey != nil {
			auth.HostKeyCallback = hostKey
		}
		return auth, nil

	case *gitauth.SSHInteractiveCredential:
		auth := &gitssh.KeyboardInteractive{
			User:      c.User,
			Challenge: interactiveChallenge(c.Respond),
		}
		if hostKey != nil {
			auth.HostKeyCallback = hostKey
		}
		return auth, nil

	case *gitauth.SSHCustomCredential:
		signer, err := newCallbackSigner(c.PublicKey, c.Sign)
		if err != nil {
			return nil, err
		}
		auth := &gitssh.PublicKeys{User: c.User, Signer: signer}
		if hostKey != nil {
			auth.HostKeyCallback = hostKey
		}
		return auth, nil

	default:
		return nil, WrapErrorf(ErrUnsupportedCredential, "%s over SSH", cred.Type())
	}
}

// interactiveChallenge bridges go-git's keyboard-interactive challenge shape
// onto a gitauth prompt callback.
func interactiveChallenge(respond gitauth.InteractiveCallback) gossh.KeyboardInteractiveChallenge {
	return func(name, instruction string, questions []string, echos []bool) ([]string, error) {
		prompts := make([]gitauth.Prompt, len(questions))
		for i, q := range questions {
			prompts[i] = gitauth.Prompt{Text: q, Echo: echos[i]}
		}
		answers, err := respond(name, instruction, prompts)
		if err != nil {
			return nil, err
		}
		if len(answers) != len(questions) {
			return nil, fmt.Errorf("interactive callback answered %d of %d prompts", len(answers), len(questions))
		}
		return answers, nil
	}
}

// callbackSigner is an ssh.Signer whose private half lives behind a
// gitauth.SignCallback (an agent, an HSM, a remote signer).
type callbackSigner struct {
	pub  gossh.PublicKey
	sign gitauth.SignCallback
}

func newCallbackSigner(publicKey []byte, sign gitauth.SignCallback) (*callbackSigner, error) {
	pub, err := parsePublicKey(publicKey)
	if err != nil {
		return nil, WrapError(err, "failed to parse public key for custom signer")
	}
	return &callbackSigner{pub: pub, sign: sign}, nil
}

// PublicKey returns the key the signatures verify against.
func (s *callbackSigner) PublicKey() gossh.PublicKey { return s.pub }

// Sign delegates challenge signing to the credential's callback.
func (s *callbackSigner) Sign(_ io.Reader, data []byte) (*gossh.Signature, error) {
	blob, err := s.sign(data)
	if err != nil {
		return nil, WrapError(err, "custom sign callback failed")
	}
	return &gossh.Signature{Format: s.pub.Type(), Blob: blob}, nil
}

// parsePublicKey accepts either SSH wire format or authorized_keys format.
func parsePublicKey(data []byte) (gossh.PublicKey, error) {
	if pub, err := gossh.ParsePublicKey(data); err == nil {
		return pub, nil
	}
	pub, _, _, _, err := gossh.ParseAuthorizedKey(data)
	if err != nil {
		return nil, fmt.Errorf("public key is neither wire format nor authorized_keys format: %w", err)
	}
	return pub, nil
}

// urlScheme determines the transport scheme of a remote URL, treating
// scp-style user@host:path forms as SSH.
func urlScheme(remoteURL string) (string, error) {
	if !strings.Contains(remoteURL, "://") {
		if strings.Contains(remoteURL, "@") || strings.Contains(remoteURL, ":") {
			return "ssh", nil
		}
		return "", fmt.Errorf("invalid remote URL: %s", remoteURL)
	}
	parsed, err := url.Parse(remoteURL)
	if err != nil {
		return "", fmt.Errorf("invalid remote URL: %w", err)
	}
	return parsed.Scheme, nil
}

// hostFromURL extracts the host (possibly with port) from a remote URL,
// handling scp-style user@host:path forms.
func hostFromURL(remoteURL string) string {
	if !strings.Contains(remoteURL, "://") {
		host := remoteURL
		if at := strings.Index(host, "@"); at != -1 {
			host = host[at+1:]
		}
		if colon := strings.Index(host, ":"); colon != -1 {
			host = host[:colon]
		}
		return host
	}
	parsed, err := url.Parse(remoteURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}

func isHTTPScheme(s string) bool { return s == "http" || s == "https" }

func isSSHScheme(s string) bool { return s == "ssh" || s == "git" || s == "git+ssh" }

// WrapError wraps an error with additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapErrorf wraps an error with formatted additional context while
// preserving the ability to check against sentinel errors using errors.Is().
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
