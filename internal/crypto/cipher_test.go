package crypto_test

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"argoya/internal/crypto"
)

func newKey(t *testing.T) []byte {
	t.Helper()
	k, err := crypto.GenerateSessionKey(rand.Reader)
	require.NoError(t, err)
	return k[:]
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := newKey(t)
	for _, pt := range []string{"", "hello", "héllo wörld ✓", string(bytes.Repeat([]byte("x"), 4096))} {
		enc, err := crypto.Encrypt(pt, key)
		require.NoError(t, err)

		got, ok := crypto.Decrypt(enc, key)
		require.True(t, ok)
		require.Equal(t, pt, got)
	}
}

func TestEncrypt_FreshNonceEachCall(t *testing.T) {
	key := newKey(t)

	a, err := crypto.Encrypt("hello", key)
	require.NoError(t, err)
	b, err := crypto.Encrypt("hello", key)
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	rawA, err := crypto.FromB64(a)
	require.NoError(t, err)
	rawB, err := crypto.FromB64(b)
	require.NoError(t, err)
	require.NotEqual(t, rawA[:crypto.NonceBytes], rawB[:crypto.NonceBytes])

	for _, enc := range []string{a, b} {
		got, ok := crypto.Decrypt(enc, key)
		require.True(t, ok)
		require.Equal(t, "hello", got)
	}
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	key := newKey(t)
	enc, err := crypto.Encrypt("attack at dawn", key)
	require.NoError(t, err)
	raw, err := crypto.FromB64(enc)
	require.NoError(t, err)

	// Every single-bit flip, in the nonce, body or tag, must be rejected.
	for i := range raw {
		for bit := 0; bit < 8; bit++ {
			mut := append([]byte(nil), raw...)
			mut[i] ^= 1 << bit
			got, ok := crypto.Decrypt(crypto.B64(mut), key)
			require.False(t, ok, "byte %d bit %d", i, bit)
			require.Empty(t, got)
		}
	}
}

func TestDecrypt_Failures(t *testing.T) {
	key := newKey(t)
	other := newKey(t)
	enc, err := crypto.Encrypt("secret", key)
	require.NoError(t, err)

	cases := map[string]struct {
		encoded string
		key     []byte
	}{
		"wrong key":     {enc, other},
		"not base64":    {"%%%not-base64%%%", key},
		"empty":         {"", key},
		"too short":     {crypto.B64([]byte("short")), key},
		"short key":     {enc, key[:16]},
		"nil key":       {enc, nil},
		"nonce only":    {crypto.B64(make([]byte, crypto.NonceBytes)), key},
		"trailing junk": {enc + "AA==", key},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, ok := crypto.Decrypt(tc.encoded, tc.key)
			require.False(t, ok)
			require.Empty(t, got)
		})
	}
}

func TestEncrypt_RejectsBadKey(t *testing.T) {
	_, err := crypto.Encrypt("hello", []byte("too short"))
	require.Error(t, err)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errEntropy }

type entropyErr string

func (e entropyErr) Error() string { return string(e) }

const errEntropy = entropyErr("entropy exhausted")

func TestGenerateSessionKey_ReaderFailure(t *testing.T) {
	_, err := crypto.GenerateSessionKey(failingReader{})
	require.ErrorIs(t, err, errEntropy)
}
