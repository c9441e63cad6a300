// Package gogit binds the gitauth negotiation core to go-git transports.
// This file builds hostkey certificates from SSH handshake data and routes
// host key verification through the validation gate.
package gogit

import (
	"context"
	"crypto/md5"  //nolint:gosec // MD5 fingerprints are part of the SSH hostkey contract
	"crypto/sha1" //nolint:gosec // SHA-1 fingerprints are part of the SSH hostkey contract
	"crypto/sha256"
	"fmt"
	"net"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/skeema/knownhosts"
	gossh "golang.org/x/crypto/ssh"

	"github.com/input-output-hk/catalyst-forge-libs/gitauth"
)

// NewHostkeyCertificate builds a hostkey certificate from the public key the
// server presented during the SSH handshake. All three digest kinds and the
// raw key are populated; the validator picks which it trusts.
func NewHostkeyCertificate(key gossh.PublicKey) *gitauth.HostkeyCertificate {
	wire := key.Marshal()
	return gitauth.NewHostkeyCertificate().
		WithMD5(md5.Sum(wire)).   //nolint:gosec // fingerprint, not integrity
		WithSHA1(sha1.Sum(wire)). //nolint:gosec // fingerprint, not integrity
		WithSHA256(sha256.Sum256(wire)).
		WithRawKey(rawKeyType(key.Type()), wire)
}

// rawKeyType maps an SSH key algorithm name onto the certificate tag.
func rawKeyType(algo string) gitauth.RawKeyType {
	switch algo {
	case gossh.KeyAlgoRSA:
		return gitauth.RawKeyRSA
	case gossh.KeyAlgoDSA:
		return gitauth.RawKeyDSS
	case gossh.KeyAlgoECDSA256:
		return gitauth.RawKeyECDSA256
	case gossh.KeyAlgoECDSA384:
		return gitauth.RawKeyECDSA384
	case gossh.KeyAlgoECDSA521:
		return gitauth.RawKeyECDSA521
	case gossh.KeyAlgoED25519:
		return gitauth.RawKeyEd25519
	default:
		return gitauth.RawKeyUnknown
	}
}

// GateHostKeyCallback returns an ssh.HostKeyCallback that runs the attempt's
// validation gate against the presented host key. Plugged into an SSH auth
// method, it makes the trust decision during the handshake, strictly before
// any credential is transmitted.
func GateHostKeyCallback(ctx context.Context, attempt *gitauth.Attempt) gossh.HostKeyCallback {
	return func(_ string, _ net.Addr, key gossh.PublicKey) error {
		return attempt.ValidateCertificate(ctx, NewHostkeyCertificate(key), false)
	}
}

// KnownHostsValidator validates hostkey certificates against OpenSSH
// known_hosts files. X.509 certificates are outside its competence and are
// deferred to platform trust: accepted only when the transport already
// vouched for them.
type KnownHostsValidator struct {
	check knownhosts.HostKeyCallback
}

// NewKnownHostsValidator creates a validator over the given known_hosts
// files. With no arguments it uses ~/.ssh/known_hosts.
func NewKnownHostsValidator(files ...string) (*KnownHostsValidator, error) {
	if len(files) == 0 {
		files = []string{filepath.Join(xdg.Home, ".ssh", "known_hosts")}
	}
	check, err := knownhosts.New(files...)
	if err != nil {
		return nil, WrapError(err, "failed to load known_hosts")
	}
	return &KnownHostsValidator{check: check}, nil
}

// Validate implements gitauth.Validator.
func (v *KnownHostsValidator) Validate(_ context.Context, cert gitauth.Certificate, remoteURL string, validByDefault bool) error {
	hk, ok := cert.(*gitauth.HostkeyCertificate)
	if !ok {
		if validByDefault {
			return nil
		}
		return WrapError(gitauth.ErrCertificateRejected, "known_hosts cannot vouch for non-hostkey certificates")
	}

	_, raw, ok := hk.RawKey()
	if !ok {
		// Digest-only certificates cannot be checked against known_hosts
		// entries; this is a malformed input, not a policy rejection.
		return fmt.Errorf("hostkey certificate carries no raw key")
	}
	key, err := gossh.ParsePublicKey(raw)
	if err != nil {
		return fmt.Errorf("failed to parse raw host key: %w", err)
	}

	host, err := hostPort(remoteURL)
	if err != nil {
		return err
	}
	err = v.check(host, hostAddr(host), key)
	switch {
	case err == nil:
		return nil
	case knownhosts.IsHostKeyChanged(err):
		return WrapErrorf(gitauth.ErrCertificateRejected, "host key for %s changed", host)
	case knownhosts.IsHostUnknown(err):
		return WrapErrorf(gitauth.ErrCertificateRejected, "host %s is not in known_hosts", host)
	default:
		return WrapError(err, "known_hosts check failed")
	}
}

// hostAddr satisfies net.Addr for known_hosts checks made outside a live
// connection, where only the dialed host:port is known.
type hostAddr string

func (a hostAddr) Network() string { return "tcp" }
func (a hostAddr) String() string  { return string(a) }

// hostPort extracts host:port from a remote URL, defaulting to the SSH port.
func hostPort(remoteURL string) (string, error) {
	host := hostFromURL(remoteURL)
	if host == "" {
		return "", fmt.Errorf("cannot determine host from URL: %s", remoteURL)
	}
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "22")
	}
	return host, nil
}
