package bundle_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyrelay/internal/bundle"
	"keyrelay/internal/crypto"
	"keyrelay/internal/device"
	"keyrelay/internal/domain/types"
)

var (
	identityKey = types.PublicKey{0x01, 0x02, 0x03}
	spkPub      = types.PublicKey{0x05, 0x21, 0x22}
	spkSig      = types.Signature{0x5A, 0x5B}
)

// stubVerifier accepts exactly one (key, message, signature) triple.
type stubVerifier struct{}

func (stubVerifier) Verify(key, msg, sig []byte) bool {
	return bytes.Equal(key, identityKey) && bytes.Equal(msg, spkPub) && bytes.Equal(sig, spkSig)
}

func newRecord(t *testing.T, ids ...types.PreKeyID) *device.Record {
	t.Helper()
	reg := types.DeviceRegistration{
		Address:        types.Address{User: "alice", Device: 1},
		RegistrationID: 42,
		IdentityKey:    identityKey,
		SignedPreKey:   types.SignedPreKeyRecord{ID: 3, PublicKey: spkPub, Signature: spkSig},
	}
	for _, id := range ids {
		reg.PreKeys = append(reg.PreKeys, types.OneTimePreKeyRecord{ID: id, PublicKey: types.PublicKey{byte(id)}})
	}
	rec, err := device.NewRecord(reg, time.Now())
	require.NoError(t, err)
	return rec
}

func TestAssembleDrainsPoolThenServesWithoutPreKey(t *testing.T) {
	rec := newRecord(t, 7, 8)
	a := bundle.NewAssembler(stubVerifier{})

	seen := map[types.PreKeyID]bool{}
	for range 2 {
		b, err := a.Assemble(rec)
		require.NoError(t, err)
		require.True(t, b.HasPreKey())
		assert.Equal(t, types.RegistrationID(42), b.RegistrationID)
		assert.Equal(t, types.DeviceID(1), b.DeviceID)
		assert.Equal(t, types.SignedPreKeyID(3), b.SignedPreKey.ID)
		assert.Equal(t, spkPub, b.SignedPreKey.PublicKey)
		assert.Equal(t, identityKey, b.IdentityKey)
		assert.False(t, seen[b.PreKey.ID], "pre-key %d served twice", b.PreKey.ID)
		seen[b.PreKey.ID] = true
	}
	assert.Equal(t, map[types.PreKeyID]bool{7: true, 8: true}, seen)

	b, err := a.Assemble(rec)
	require.NoError(t, err)
	assert.False(t, b.HasPreKey())
	assert.Equal(t, spkPub, b.SignedPreKey.PublicKey)
	assert.Equal(t, 0, rec.OneTimePreKeys.Count())
}

func TestAssembleMissingSignedPreKeyConsumesNothing(t *testing.T) {
	rec := newRecord(t, 7)
	rec.SignedPreKey = nil

	_, err := bundle.NewAssembler(nil).Assemble(rec)
	require.ErrorIs(t, err, types.ErrMissingSignedPreKey)
	assert.Equal(t, 1, rec.OneTimePreKeys.Count())
}

func TestAssembleInvalidSignatureConsumesNothing(t *testing.T) {
	rec := newRecord(t, 7, 8)
	rec.SignedPreKey.Signature = types.Signature{0x00}

	_, err := bundle.NewAssembler(stubVerifier{}).Assemble(rec)
	require.ErrorIs(t, err, types.ErrInvalidSignature)
	assert.Equal(t, 2, rec.OneTimePreKeys.Count())

	// without a verifier the stored signature is trusted
	b, err := bundle.NewAssembler(nil).Assemble(rec)
	require.NoError(t, err)
	assert.True(t, b.HasPreKey())
}

func TestAssembleWithRealSignature(t *testing.T) {
	idPriv, idPub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	_, pub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	enc := crypto.EncodeX25519(pub)

	rec := newRecord(t, 1)
	rec.IdentityKey = types.PublicKey(idPub[:])
	rec.SignedPreKey = &types.SignedPreKeyRecord{ID: 9, PublicKey: enc, Signature: crypto.SignEd25519(idPriv, enc)}

	b, err := bundle.NewAssembler(crypto.Ed25519Verifier{}).Assemble(rec)
	require.NoError(t, err)
	assert.Equal(t, types.SignedPreKeyID(9), b.SignedPreKey.ID)
}

func TestBundleIsIndependentOfRecord(t *testing.T) {
	rec := newRecord(t, 7)
	b, err := bundle.NewAssembler(nil).Assemble(rec)
	require.NoError(t, err)

	rec.IdentityKey[0] = 0xFF
	rec.SignedPreKey.PublicKey[0] = 0xFF
	rec.SignedPreKey.Signature[0] = 0xFF

	assert.Equal(t, identityKey, b.IdentityKey)
	assert.Equal(t, spkPub, b.SignedPreKey.PublicKey)
	assert.Equal(t, spkSig, b.SignedPreKey.Signature)
}
