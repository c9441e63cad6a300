// Package gitauth mediates authentication between a git transport and an
// application-supplied credential source.
// This file contains the credential variant model.
package gitauth

import "strings"

// CredentialType identifies one credential variant. Each type occupies a
// distinct bit so that a set of types can be expressed as a CredentialSet.
type CredentialType uint32

const (
	// CredUserpassPlaintext is a vanilla username/password pair,
	// transmitted as-is by the transport.
	CredUserpassPlaintext CredentialType = 1 << 0

	// CredSSHKey is an SSH key pair referenced by on-disk paths.
	// The transport reads the key material at authentication time.
	CredSSHKey CredentialType = 1 << 1

	// CredSSHCustom is an SSH key with a caller-supplied signing function.
	// The transport delegates challenge signing to the callback instead of
	// owning private key material.
	CredSSHCustom CredentialType = 1 << 2

	// CredDefault requests ambient platform credentials, as used by
	// NTLM/Negotiate style mechanisms.
	CredDefault CredentialType = 1 << 3

	// CredSSHInteractive is a keyboard-interactive SSH exchange driven
	// through a prompt callback.
	CredSSHInteractive CredentialType = 1 << 4

	// CredUsername carries only a username. It is used as a
	// pre-authentication probe when the transport needs a username before it
	// can determine which credential types the server accepts.
	CredUsername CredentialType = 1 << 5

	// CredSSHMemory is an SSH key pair held in memory, avoiding any
	// filesystem dependency.
	CredSSHMemory CredentialType = 1 << 6
)

// credentialTypeCount is the number of distinct credential variants.
const credentialTypeCount = 7

// String returns a human-readable name for the credential type.
func (t CredentialType) String() string {
	switch t {
	case CredUserpassPlaintext:
		return "userpass-plaintext"
	case CredSSHKey:
		return "ssh-key"
	case CredSSHCustom:
		return "ssh-custom"
	case CredDefault:
		return "default"
	case CredSSHInteractive:
		return "ssh-interactive"
	case CredUsername:
		return "username"
	case CredSSHMemory:
		return "ssh-memory"
	default:
		return "unknown"
	}
}

// CredentialSet is a set of credential types, used to express which variants
// an authentication attempt may use. The zero value is the empty set.
//
// Narrowing a set always goes through Without; callers never manipulate bits
// directly.
type CredentialSet uint32

// AllCredentialTypes contains every credential variant.
const AllCredentialTypes CredentialSet = CredentialSet(CredUserpassPlaintext |
	CredSSHKey | CredSSHCustom | CredDefault | CredSSHInteractive |
	CredUsername | CredSSHMemory)

// NewCredentialSet builds a set from the given types.
func NewCredentialSet(types ...CredentialType) CredentialSet {
	var s CredentialSet
	for _, t := range types {
		s = s.With(t)
	}
	return s
}

// Has reports whether the set contains the given type.
func (s CredentialSet) Has(t CredentialType) bool {
	return s&CredentialSet(t) != 0
}

// With returns a copy of the set that also contains t.
func (s CredentialSet) With(t CredentialType) CredentialSet {
	return s | CredentialSet(t)
}

// Without returns a copy of the set with t removed. This is the narrowing
// operation used by transports after a variant has been rejected.
func (s CredentialSet) Without(t CredentialType) CredentialSet {
	return s &^ CredentialSet(t)
}

// IsEmpty reports whether the set contains no types.
func (s CredentialSet) IsEmpty() bool {
	return s == 0
}

// Types returns the member types in declaration order.
func (s CredentialSet) Types() []CredentialType {
	all := []CredentialType{
		CredUserpassPlaintext, CredSSHKey, CredSSHCustom, CredDefault,
		CredSSHInteractive, CredUsername, CredSSHMemory,
	}
	var out []CredentialType
	for _, t := range all {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

// String returns a human-readable listing of the member types.
func (s CredentialSet) String() string {
	if s.IsEmpty() {
		return "none"
	}
	names := make([]string, 0, credentialTypeCount)
	for _, t := range s.Types() {
		names = append(names, t.String())
	}
	return strings.Join(names, ",")
}

// Credential is one authentication payload, tagged with its variant type.
// Exactly one variant is active per instance; the concrete type determines
// which fields are meaningful.
//
// A credential is immutable after construction except through Release, which
// is its sole destructor. Whoever holds the credential last (normally the
// transport, after an authentication attempt) calls Release exactly once.
type Credential interface {
	// Type returns the variant tag of this credential.
	Type() CredentialType

	// Username returns the username carried by the credential and whether a
	// non-empty username is present. Transports use this to decide whether a
	// username-only pre-authentication round is needed.
	Username() (string, bool)

	// Release clears the credential's owned fields, including any secret
	// material. It must be called exactly once by the final owner; extra
	// calls are harmless.
	Release()

	// credential restricts the variant set to this package.
	credential()
}

// Prompt is a single challenge in a keyboard-interactive exchange.
type Prompt struct {
	// Text is the prompt presented to the user.
	Text string

	// Echo indicates whether the response may be displayed as typed.
	Echo bool
}

// InteractiveCallback answers one batch of keyboard-interactive prompts.
// It returns exactly one response per prompt, in order.
type InteractiveCallback func(name, instruction string, prompts []Prompt) ([]string, error)

// SignCallback signs a transport-provided challenge and returns the raw
// signature blob. The callback owns all private key material.
type SignCallback func(data []byte) ([]byte, error)

// UserpassCredential is a plaintext username/password pair.
type UserpassCredential struct {
	User     string
	Password string
}

// NewUserpassPlaintext creates a plaintext username/password credential.
// Both fields are mandatory.
func NewUserpassPlaintext(username, password string) (*UserpassCredential, error) {
	if username == "" {
		return nil, WrapError(ErrMissingField, "username")
	}
	if password == "" {
		return nil, WrapError(ErrMissingField, "password")
	}
	return &UserpassCredential{User: username, Password: password}, nil
}

// Type returns CredUserpassPlaintext.
func (c *UserpassCredential) Type() CredentialType { return CredUserpassPlaintext }

// Username returns the credential's username.
func (c *UserpassCredential) Username() (string, bool) { return c.User, c.User != "" }

// Release clears the username and password.
func (c *UserpassCredential) Release() {
	c.User = ""
	c.Password = ""
}

func (c *UserpassCredential) credential() {}

// SSHKeyCredential is an SSH key pair referenced by on-disk paths. The key
// files are read by the transport at authentication time; this package treats
// the paths and passphrase as opaque.
type SSHKeyCredential struct {
	User           string
	PublicKeyPath  string
	PrivateKeyPath string
	Passphrase     string
}

// NewSSHKey creates an on-disk SSH key credential. The username and private
// key path are mandatory; the public key path and passphrase may be empty.
func NewSSHKey(username, publicKeyPath, privateKeyPath, passphrase string) (*SSHKeyCredential, error) {
	if username == "" {
		return nil, WrapError(ErrMissingField, "username")
	}
	if privateKeyPath == "" {
		return nil, WrapError(ErrMissingField, "private key path")
	}
	return &SSHKeyCredential{
		User:           username,
		PublicKeyPath:  publicKeyPath,
		PrivateKeyPath: privateKeyPath,
		Passphrase:     passphrase,
	}, nil
}

// Type returns CredSSHKey.
func (c *SSHKeyCredential) Type() CredentialType { return CredSSHKey }

// Username returns the credential's username.
func (c *SSHKeyCredential) Username() (string, bool) { return c.User, c.User != "" }

// Release clears the key paths and passphrase.
func (c *SSHKeyCredential) Release() {
	c.User = ""
	c.PublicKeyPath = ""
	c.PrivateKeyPath = ""
	c.Passphrase = ""
}

func (c *SSHKeyCredential) credential() {}

// SSHMemoryCredential is an SSH key pair held in memory. The key bytes are
// copied at construction and never alias caller memory.
type SSHMemoryCredential struct {
	User       string
	PublicKey  []byte
	PrivateKey []byte
	Passphrase string
}

// NewSSHKeyMemory creates an in-memory SSH key credential. The username and
// private key are mandatory; the public key and passphrase may be empty.
func NewSSHKeyMemory(username string, publicKey, privateKey []byte, passphrase string) (*SSHMemoryCredential, error) {
	if username == "" {
		return nil, WrapError(ErrMissingField, "username")
	}
	if len(privateKey) == 0 {
		return nil, WrapError(ErrMissingField, "private key")
	}
	return &SSHMemoryCredential{
		User:       username,
		PublicKey:  copyBytes(publicKey),
		PrivateKey: copyBytes(privateKey),
		Passphrase: passphrase,
	}, nil
}

// Type returns CredSSHMemory.
func (c *SSHMemoryCredential) Type() CredentialType { return CredSSHMemory }

// Username returns the credential's username.
func (c *SSHMemoryCredential) Username() (string, bool) { return c.User, c.User != "" }

// Release zeroizes the key material and clears all fields.
func (c *SSHMemoryCredential) Release() {
	c.User = ""
	c.Passphrase = ""
	zeroBytes(c.PublicKey)
	zeroBytes(c.PrivateKey)
	c.PublicKey = nil
	c.PrivateKey = nil
}

func (c *SSHMemoryCredential) credential() {}

// SSHInteractiveCredential drives a keyboard-interactive SSH exchange. The
// transport invokes Respond once per prompt batch; Payload is forwarded
// unchanged to whatever machinery sits behind the callback, and its lifetime
// is managed by the caller.
type SSHInteractiveCredential struct {
	User    string
	Respond InteractiveCallback
	Payload any
}

// NewSSHInteractive creates a keyboard-interactive credential. The username
// and callback are mandatory.
func NewSSHInteractive(username string, respond InteractiveCallback, payload any) (*SSHInteractiveCredential, error) {
	if username == "" {
		return nil, WrapError(ErrMissingField, "username")
	}
	if respond == nil {
		return nil, WrapError(ErrMissingField, "prompt callback")
	}
	return &SSHInteractiveCredential{User: username, Respond: respond, Payload: payload}, nil
}

// Type returns CredSSHInteractive.
func (c *SSHInteractiveCredential) Type() CredentialType { return CredSSHInteractive }

// Username returns the credential's username.
func (c *SSHInteractiveCredential) Username() (string, bool) { return c.User, c.User != "" }

// Release clears the username and drops the callback and payload references.
func (c *SSHInteractiveCredential) Release() {
	c.User = ""
	c.Respond = nil
	c.Payload = nil
}

func (c *SSHInteractiveCredential) credential() {}

// SSHCustomCredential is an SSH public key whose challenge signatures are
// produced by a caller-supplied function rather than by key material this
// package ever sees. Agent-backed authentication is expressed this way.
type SSHCustomCredential struct {
	User      string
	PublicKey []byte
	Sign      SignCallback
	Payload   any
}

// NewSSHCustom creates a custom-sign SSH credential. The username, public key
// bytes, and signing callback are mandatory. The public key is copied.
func NewSSHCustom(username string, publicKey []byte, sign SignCallback, payload any) (*SSHCustomCredential, error) {
	if username == "" {
		return nil, WrapError(ErrMissingField, "username")
	}
	if len(publicKey) == 0 {
		return nil, WrapError(ErrMissingField, "public key")
	}
	if sign == nil {
		return nil, WrapError(ErrMissingField, "sign callback")
	}
	return &SSHCustomCredential{
		User:      username,
		PublicKey: copyBytes(publicKey),
		Sign:      sign,
		Payload:   payload,
	}, nil
}

// Type returns CredSSHCustom.
func (c *SSHCustomCredential) Type() CredentialType { return CredSSHCustom }

// Username returns the credential's username.
func (c *SSHCustomCredential) Username() (string, bool) { return c.User, c.User != "" }

// Release clears all fields and drops the callback reference.
func (c *SSHCustomCredential) Release() {
	c.User = ""
	zeroBytes(c.PublicKey)
	c.PublicKey = nil
	c.Sign = nil
	c.Payload = nil
}

func (c *SSHCustomCredential) credential() {}

// DefaultCredential requests ambient platform credentials (Negotiate/NTLM
// style). It carries no fields.
type DefaultCredential struct{}

// NewDefault creates a default-credentials marker.
func NewDefault() (*DefaultCredential, error) {
	return &DefaultCredential{}, nil
}

// Type returns CredDefault.
func (c *DefaultCredential) Type() CredentialType { return CredDefault }

// Username reports that no username is present.
func (c *DefaultCredential) Username() (string, bool) { return "", false }

// Release is a no-op; the variant owns nothing.
func (c *DefaultCredential) Release() {}

func (c *DefaultCredential) credential() {}

// UsernameCredential carries only a username. It is a pre-authentication
// probe, never a transmittable authentication method by itself.
type UsernameCredential struct {
	User string
}

// NewUsername creates a username-only credential.
func NewUsername(username string) (*UsernameCredential, error) {
	if username == "" {
		return nil, WrapError(ErrMissingField, "username")
	}
	return &UsernameCredential{User: username}, nil
}

// Type returns CredUsername.
func (c *UsernameCredential) Type() CredentialType { return CredUsername }

// Username returns the credential's username.
func (c *UsernameCredential) Username() (string, bool) { return c.User, c.User != "" }

// Release clears the username.
func (c *UsernameCredential) Release() { c.User = "" }

func (c *UsernameCredential) credential() {}

// copyBytes returns an independent copy of b, or nil for empty input.
func copyBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// zeroBytes overwrites b in place.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
