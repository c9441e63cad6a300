// Package gitauth mediates authentication between a git transport and an
// application-supplied credential source.
// This file contains the certificate variant model.
package gitauth

// Digest lengths for the hostkey hash kinds.
const (
	MD5DigestLen    = 16
	SHA1DigestLen   = 20
	SHA256DigestLen = 32
)

// RawKeyType identifies the algorithm of a raw SSH host key.
type RawKeyType int8

const (
	// RawKeyUnknown means the raw key algorithm could not be determined.
	RawKeyUnknown RawKeyType = iota
	// RawKeyRSA is an RSA key.
	RawKeyRSA
	// RawKeyDSS is a DSS key.
	RawKeyDSS
	// RawKeyECDSA256 is an ECDSA key on the P-256 curve.
	RawKeyECDSA256
	// RawKeyECDSA384 is an ECDSA key on the P-384 curve.
	RawKeyECDSA384
	// RawKeyECDSA521 is an ECDSA key on the P-521 curve.
	RawKeyECDSA521
	// RawKeyEd25519 is an Ed25519 key.
	RawKeyEd25519
)

// String returns a human-readable name for the raw key type.
func (t RawKeyType) String() string {
	switch t {
	case RawKeyRSA:
		return "rsa"
	case RawKeyDSS:
		return "dss"
	case RawKeyECDSA256:
		return "ecdsa-256"
	case RawKeyECDSA384:
		return "ecdsa-384"
	case RawKeyECDSA521:
		return "ecdsa-521"
	case RawKeyEd25519:
		return "ed25519"
	default:
		return "unknown"
	}
}

// Certificate is identity material presented by a remote peer during
// connection establishment. It is a closed union of the hostkey and X.509
// variants. Instances are immutable once constructed and are owned by the
// transport for the duration of one connection-establishment attempt; the
// validation gate must complete synchronously within that window.
type Certificate interface {
	certificate()
}

// HostkeyCertificate is SSH-style host key material. Each digest field is nil
// when the transport did not populate that hash kind, which keeps "digest not
// computed" structurally distinct from an all-zero digest. Several kinds may
// be populated at once; the validator chooses which it trusts.
type HostkeyCertificate struct {
	md5    []byte
	sha1   []byte
	sha256 []byte

	rawType RawKeyType
	raw     []byte
}

// NewHostkeyCertificate creates an empty hostkey certificate. Transports
// populate it with the With* builders before handing it to the gate.
func NewHostkeyCertificate() *HostkeyCertificate {
	return &HostkeyCertificate{}
}

// WithMD5 sets the MD5 digest of the host key. The digest is copied.
func (c *HostkeyCertificate) WithMD5(digest [MD5DigestLen]byte) *HostkeyCertificate {
	c.md5 = copyBytes(digest[:])
	return c
}

// WithSHA1 sets the SHA-1 digest of the host key. The digest is copied.
func (c *HostkeyCertificate) WithSHA1(digest [SHA1DigestLen]byte) *HostkeyCertificate {
	c.sha1 = copyBytes(digest[:])
	return c
}

// WithSHA256 sets the SHA-256 digest of the host key. The digest is copied.
func (c *HostkeyCertificate) WithSHA256(digest [SHA256DigestLen]byte) *HostkeyCertificate {
	c.sha256 = copyBytes(digest[:])
	return c
}

// WithRawKey sets the raw host key bytes and their algorithm tag. The key
// bytes are copied.
func (c *HostkeyCertificate) WithRawKey(keyType RawKeyType, key []byte) *HostkeyCertificate {
	c.rawType = keyType
	c.raw = copyBytes(key)
	return c
}

// MD5 returns the MD5 digest and whether it was populated.
func (c *HostkeyCertificate) MD5() ([]byte, bool) { return c.md5, c.md5 != nil }

// SHA1 returns the SHA-1 digest and whether it was populated.
func (c *HostkeyCertificate) SHA1() ([]byte, bool) { return c.sha1, c.sha1 != nil }

// SHA256 returns the SHA-256 digest and whether it was populated.
func (c *HostkeyCertificate) SHA256() ([]byte, bool) { return c.sha256, c.sha256 != nil }

// RawKey returns the raw host key bytes, their algorithm tag, and whether the
// raw key was populated.
func (c *HostkeyCertificate) RawKey() (RawKeyType, []byte, bool) {
	return c.rawType, c.raw, c.raw != nil
}

func (c *HostkeyCertificate) certificate() {}

// X509Certificate is an opaque DER-encoded certificate. This package never
// parses it; the validator applies its own trust-chain logic.
type X509Certificate struct {
	der []byte
}

// NewX509Certificate creates an X.509 certificate from DER bytes.
// The bytes are copied and must be non-empty.
func NewX509Certificate(der []byte) (*X509Certificate, error) {
	if len(der) == 0 {
		return nil, WrapError(ErrMissingField, "certificate data")
	}
	return &X509Certificate{der: copyBytes(der)}, nil
}

// DER returns the DER-encoded certificate bytes.
func (c *X509Certificate) DER() []byte { return c.der }

func (c *X509Certificate) certificate() {}
