// Package gitauth provides unit tests for the certificate variant model.
package gitauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostkeyCertificate(t *testing.T) {
	t.Run("empty certificate has no digests", func(t *testing.T) {
		cert := NewHostkeyCertificate()

		_, ok := cert.MD5()
		assert.False(t, ok)
		_, ok = cert.SHA1()
		assert.False(t, ok)
		_, ok = cert.SHA256()
		assert.False(t, ok)
		_, _, ok = cert.RawKey()
		assert.False(t, ok)
	})

	t.Run("populated digests are reported present", func(t *testing.T) {
		var md5Digest [MD5DigestLen]byte
		var sha256Digest [SHA256DigestLen]byte
		md5Digest[0] = 0xab
		sha256Digest[0] = 0xcd

		cert := NewHostkeyCertificate().
			WithMD5(md5Digest).
			WithSHA256(sha256Digest)

		got, ok := cert.MD5()
		assert.True(t, ok)
		assert.Equal(t, byte(0xab), got[0])
		assert.Len(t, got, MD5DigestLen)

		got, ok = cert.SHA256()
		assert.True(t, ok)
		assert.Equal(t, byte(0xcd), got[0])
		assert.Len(t, got, SHA256DigestLen)

		// SHA-1 was never populated; absence is structural, not all-zero.
		_, ok = cert.SHA1()
		assert.False(t, ok)
	})

	t.Run("all-zero digest is still present", func(t *testing.T) {
		cert := NewHostkeyCertificate().WithSHA1([SHA1DigestLen]byte{})
		digest, ok := cert.SHA1()
		assert.True(t, ok)
		assert.Len(t, digest, SHA1DigestLen)
	})

	t.Run("raw key is copied", func(t *testing.T) {
		raw := []byte("raw-hostkey")
		cert := NewHostkeyCertificate().WithRawKey(RawKeyEd25519, raw)

		raw[0] = 'X'
		keyType, key, ok := cert.RawKey()
		assert.True(t, ok)
		assert.Equal(t, RawKeyEd25519, keyType)
		assert.Equal(t, []byte("raw-hostkey"), key)
	})
}

func TestX509Certificate(t *testing.T) {
	t.Run("copies DER bytes", func(t *testing.T) {
		der := []byte{0x30, 0x82, 0x01}
		cert, err := NewX509Certificate(der)
		require.NoError(t, err)

		der[0] = 0xff
		assert.Equal(t, []byte{0x30, 0x82, 0x01}, cert.DER())
	})

	t.Run("rejects empty input", func(t *testing.T) {
		cert, err := NewX509Certificate(nil)
		assert.Nil(t, cert)
		assert.ErrorIs(t, err, ErrMissingField)
	})
}

func TestRawKeyTypeString(t *testing.T) {
	tests := []struct {
		keyType RawKeyType
		want    string
	}{
		{RawKeyUnknown, "unknown"},
		{RawKeyRSA, "rsa"},
		{RawKeyDSS, "dss"},
		{RawKeyECDSA256, "ecdsa-256"},
		{RawKeyECDSA384, "ecdsa-384"},
		{RawKeyECDSA521, "ecdsa-521"},
		{RawKeyEd25519, "ed25519"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.keyType.String())
		})
	}
}
