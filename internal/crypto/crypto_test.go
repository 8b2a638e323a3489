package crypto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyrelay/internal/crypto"
)

func TestX25519EncodeDecode(t *testing.T) {
	priv, pub, err := crypto.GenerateX25519()
	require.NoError(t, err)

	enc := crypto.EncodeX25519(pub)
	require.Len(t, enc, 33)
	assert.Equal(t, crypto.DJBType, enc[0])

	got, err := crypto.DecodeX25519(enc)
	require.NoError(t, err)
	assert.Equal(t, pub, got)

	got, err = crypto.DecodeX25519(pub[:])
	require.NoError(t, err)
	assert.Equal(t, pub, got)

	again, err := crypto.PublicFromPrivate(priv)
	require.NoError(t, err)
	assert.Equal(t, pub, again)

	_, err = crypto.DecodeX25519([]byte{0x05, 0x01})
	require.ErrorIs(t, err, crypto.ErrBadPublicKey)
}

func TestEd25519VerifierChecksSignedPreKey(t *testing.T) {
	idPriv, idPub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	_, spk, err := crypto.GenerateX25519()
	require.NoError(t, err)

	msg := crypto.EncodeX25519(spk)
	sig := crypto.SignEd25519(idPriv, msg)

	v := crypto.Ed25519Verifier{}
	assert.True(t, v.Verify(idPub[:], msg, sig))
	assert.True(t, crypto.VerifyEd25519(idPub, msg, sig))

	tampered := append([]byte(nil), msg...)
	tampered[5] ^= 0x01
	assert.False(t, v.Verify(idPub[:], tampered, sig))
	assert.False(t, v.Verify(idPub[:10], msg, sig))
	assert.False(t, v.Verify(idPub[:], msg, sig[:10]))
}

func TestFingerprintIsStable(t *testing.T) {
	a := crypto.Fingerprint([]byte("key"))
	assert.Equal(t, a, crypto.Fingerprint([]byte("key")))
	assert.NotEqual(t, a, crypto.Fingerprint([]byte("other")))
	assert.Len(t, string(a), 24)
}
