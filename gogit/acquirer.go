// Package gogit binds the gitauth negotiation core to go-git transports.
// This file contains ready-made credential acquirers.
package gogit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/xdg"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/kevinburke/ssh_config"
	sshagent "github.com/xanzy/ssh-agent"
	"golang.org/x/crypto/ssh/agent"

	"github.com/input-output-hk/catalyst-forge-libs/gitauth"
)

// StaticAcquirer produces credentials from fixed values configured up front:
// stored passwords, access tokens, or key locations. It offers the first
// configured variant the allowed set permits and declines otherwise.
type StaticAcquirer struct {
	// Username is used for userpass and username-only credentials. When
	// empty, the username resolved from the URL is used instead.
	Username string

	// Password enables the plaintext userpass variant.
	Password string

	// Token enables the plaintext userpass variant in token form: most git
	// hosts accept an access token as the password of a "token" user.
	Token string

	// PrivateKeyPath (with optional PublicKeyPath and Passphrase) enables
	// the on-disk SSH key variant.
	PrivateKeyPath string
	PublicKeyPath  string
	Passphrase     string

	// PrivateKeyPEM (with optional PublicKeyPEM) enables the in-memory SSH
	// key variant.
	PrivateKeyPEM []byte
	PublicKeyPEM  []byte
}

// Acquire implements gitauth.Acquirer.
//
//nolint:ireturn // gitauth.Acquirer requires returning the Credential interface
func (a *StaticAcquirer) Acquire(_ context.Context, req gitauth.AcquireRequest) (gitauth.Credential, error) {
	username := a.Username
	if username == "" {
		username = req.UsernameFromURL
	}

	switch {
	case req.Allowed.Has(gitauth.CredUserpassPlaintext) && a.Password != "" && username != "":
		return gitauth.NewUserpassPlaintext(username, a.Password)

	case req.Allowed.Has(gitauth.CredUserpassPlaintext) && a.Token != "":
		// Hosted git providers accept tokens as basic-auth passwords.
		if username == "" {
			username = "token"
		}
		return gitauth.NewUserpassPlaintext(username, a.Token)

	case req.Allowed.Has(gitauth.CredSSHKey) && a.PrivateKeyPath != "" && username != "":
		return gitauth.NewSSHKey(username, a.PublicKeyPath, a.PrivateKeyPath, a.Passphrase)

	case req.Allowed.Has(gitauth.CredSSHMemory) && len(a.PrivateKeyPEM) > 0 && username != "":
		return gitauth.NewSSHKeyMemory(username, a.PublicKeyPEM, a.PrivateKeyPEM, a.Passphrase)

	case req.Allowed.Has(gitauth.CredUsername) && username != "":
		return gitauth.NewUsername(username)

	default:
		return nil, gitauth.ErrNoCredential
	}
}

// SSHConfigAcquirer resolves credentials from OpenSSH client configuration:
// the User directive answers username-only rounds and the IdentityFile
// directive yields on-disk SSH key credentials.
type SSHConfigAcquirer struct {
	// Config is the parsed ssh_config to consult. If nil, the user's
	// ~/.ssh/config and the system configuration are used.
	Config *ssh_config.Config

	// HomeDir is used to expand "~" in IdentityFile values.
	// Defaults to the user's home directory.
	HomeDir string
}

// Acquire implements gitauth.Acquirer.
//
//nolint:ireturn // gitauth.Acquirer requires returning the Credential interface
func (a *SSHConfigAcquirer) Acquire(_ context.Context, req gitauth.AcquireRequest) (gitauth.Credential, error) {
	host := hostFromURL(req.URL)
	if host = stripPort(host); host == "" {
		return nil, gitauth.ErrNoCredential
	}

	username := req.UsernameFromURL
	if username == "" {
		username = a.get(host, "User")
	}

	if req.Allowed.Has(gitauth.CredUsername) && req.UsernameFromURL == "" && username != "" {
		return gitauth.NewUsername(username)
	}

	if req.Allowed.Has(gitauth.CredSSHKey) && username != "" {
		identity := a.get(host, "IdentityFile")
		if identity != "" {
			identity = a.expandHome(identity)
			return gitauth.NewSSHKey(username, identity+".pub", identity, "")
		}
	}

	return nil, gitauth.ErrNoCredential
}

func (a *SSHConfigAcquirer) get(host, key string) string {
	if a.Config == nil {
		return ssh_config.Get(host, key)
	}
	val, err := a.Config.Get(host, key)
	if err != nil {
		return ""
	}
	if val == "" {
		val = ssh_config.Default(key)
	}
	return val
}

func (a *SSHConfigAcquirer) expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home := a.HomeDir
	if home == "" {
		home = xdg.Home
	}
	return filepath.Join(home, path[2:])
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

// AgentAcquirer produces custom-sign credentials backed by a running
// ssh-agent: the credential's public key is the agent's first identity and
// its signing callback round-trips challenges through the agent. Private key
// material never leaves the agent.
type AgentAcquirer struct {
	// Username is used when a round supplies no resolved username.
	// Defaults to "git".
	Username string

	mu    sync.Mutex
	agent agent.Agent
	conn  net.Conn
}

// NewAgentAcquirer creates an acquirer over the ambient ssh-agent
// (SSH_AUTH_SOCK on Unix, Pageant on Windows). The agent connection is
// established lazily on first use.
func NewAgentAcquirer() *AgentAcquirer {
	return &AgentAcquirer{Username: "git"}
}

// Acquire implements gitauth.Acquirer.
//
//nolint:ireturn // gitauth.Acquirer requires returning the Credential interface
func (a *AgentAcquirer) Acquire(_ context.Context, req gitauth.AcquireRequest) (gitauth.Credential, error) {
	if !req.Allowed.Has(gitauth.CredSSHCustom) {
		return nil, gitauth.ErrNoCredential
	}

	ag, err := a.connect()
	if err != nil {
		return nil, WrapError(err, "failed to connect to ssh-agent")
	}
	keys, err := ag.List()
	if err != nil {
		return nil, WrapError(err, "failed to list ssh-agent identities")
	}
	if len(keys) == 0 {
		return nil, WrapError(gitauth.ErrNoCredential, "ssh-agent holds no identities")
	}

	username := req.UsernameFromURL
	if username == "" {
		username = a.Username
	}

	key := keys[0]
	sign := func(data []byte) ([]byte, error) {
		sig, signErr := ag.Sign(key, data)
		if signErr != nil {
			return nil, fmt.Errorf("ssh-agent signing failed: %w", signErr)
		}
		return sig.Blob, nil
	}
	return gitauth.NewSSHCustom(username, key.Marshal(), sign, nil)
}

// Close releases the agent connection. Credentials already produced keep
// signing through it until Close is called.
func (a *AgentAcquirer) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return nil
	}
	err := a.conn.Close()
	a.agent, a.conn = nil, nil
	return err
}

func (a *AgentAcquirer) connect() (agent.Agent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.agent != nil {
		return a.agent, nil
	}
	ag, conn, err := sshagent.New()
	if err != nil {
		return nil, err
	}
	a.agent, a.conn = ag, conn
	return ag, nil
}

// ChainAcquirer combines acquirers with ordered fallback: each is tried in
// turn, a declined round falls through to the next, and the first credential
// wins. A hard failure from any acquirer stops the chain immediately.
type ChainAcquirer struct {
	acquirers []gitauth.Acquirer
}

// NewChainAcquirer creates an empty chain.
func NewChainAcquirer() *ChainAcquirer {
	return &ChainAcquirer{}
}

// AddAcquirer appends an acquirer to the fallback chain.
func (c *ChainAcquirer) AddAcquirer(a gitauth.Acquirer) *ChainAcquirer {
	c.acquirers = append(c.acquirers, a)
	return c
}

// Acquire implements gitauth.Acquirer.
//
//nolint:ireturn // gitauth.Acquirer requires returning the Credential interface
func (c *ChainAcquirer) Acquire(ctx context.Context, req gitauth.AcquireRequest) (gitauth.Credential, error) {
	if len(c.acquirers) == 0 {
		return nil, gitauth.ErrNoCredential
	}
	for _, a := range c.acquirers {
		cred, err := a.Acquire(ctx, req)
		if err == nil {
			return cred, nil
		}
		if !isDeclined(err) {
			return nil, err
		}
	}
	return nil, gitauth.ErrNoCredential
}

func isDeclined(err error) bool { return errors.Is(err, gitauth.ErrNoCredential) }

// LoadSSHKeyFromFS reads SSH key material from a billy filesystem into an
// in-memory credential, so repositories working against in-memory or
// sandboxed filesystems never touch the host disk. The public key path may
// be empty.
func LoadSSHKeyFromFS(fsys billy.Filesystem, username, publicKeyPath, privateKeyPath, passphrase string) (*gitauth.SSHMemoryCredential, error) {
	privateKey, err := util.ReadFile(fsys, privateKeyPath)
	if err != nil {
		return nil, WrapError(err, "failed to read private key")
	}
	var publicKey []byte
	if publicKeyPath != "" {
		publicKey, err = util.ReadFile(fsys, publicKeyPath)
		if err != nil {
			return nil, WrapError(err, "failed to read public key")
		}
	}
	return gitauth.NewSSHKeyMemory(username, publicKey, privateKey, passphrase)
}
