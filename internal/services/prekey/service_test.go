package prekey_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyrelay/internal/crypto"
	"keyrelay/internal/domain"
	"keyrelay/internal/services/prekey"
	"keyrelay/internal/store"
)

// memIdentity avoids the KDF cost of the sealed file store.
type memIdentity struct{ id domain.Identity }

func (m *memIdentity) SaveIdentity(_ string, id domain.Identity) error { m.id = id; return nil }
func (m *memIdentity) LoadIdentity(string) (domain.Identity, error) { return m.id, nil }

func newService(t *testing.T) (*prekey.Service, domain.Identity) {
	t.Helper()
	priv, pub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	id := domain.Identity{EdPub: pub, EdPriv: priv}
	return prekey.New(&memIdentity{id: id}, store.NewPrekeyFileStore(t.TempDir())), id
}

func TestBuildRegistrationSignsPreKey(t *testing.T) {
	svc, id := newService(t)
	addr := domain.Address{User: "alice", Device: 1}

	reg, err := svc.BuildRegistration("pw", addr, 42, 5)
	require.NoError(t, err)
	assert.Equal(t, addr, reg.Address)
	assert.Equal(t, domain.RegistrationID(42), reg.RegistrationID)
	assert.Equal(t, domain.PublicKey(id.EdPub[:]), reg.IdentityKey)
	assert.Equal(t, domain.SignedPreKeyID(1), reg.SignedPreKey.ID)
	assert.True(t, crypto.Ed25519Verifier{}.Verify(reg.IdentityKey, reg.SignedPreKey.PublicKey, reg.SignedPreKey.Signature))
	require.Len(t, reg.PreKeys, 5)
	for i, k := range reg.PreKeys {
		assert.Equal(t, domain.PreKeyID(i+1), k.ID)
	}

	// a second registration reuses the signed pre-key and continues the ids
	again, err := svc.BuildRegistration("pw", addr, 42, 2)
	require.NoError(t, err)
	assert.Equal(t, reg.SignedPreKey, again.SignedPreKey)
	assert.Equal(t, domain.PreKeyID(6), again.PreKeys[0].ID)
}

func TestRotateSignedPreKey(t *testing.T) {
	svc, id := newService(t)

	first, err := svc.RotateSignedPreKey("pw")
	require.NoError(t, err)
	second, err := svc.RotateSignedPreKey("pw")
	require.NoError(t, err)

	assert.Equal(t, first.ID+1, second.ID)
	assert.NotEqual(t, first.PublicKey, second.PublicKey)
	assert.True(t, crypto.VerifyEd25519(id.EdPub, second.PublicKey, second.Signature))
}

func TestGenerateAndDiscardOneTimePreKeys(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.GenerateOneTimePreKeys(0)
	require.Error(t, err)

	keys, err := svc.GenerateOneTimePreKeys(3)
	require.NoError(t, err)
	require.Len(t, keys, 3)

	ok, err := svc.DiscardOneTimePreKey(keys[1].ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.DiscardOneTimePreKey(keys[1].ID)
	require.NoError(t, err)
	assert.False(t, ok)

	more, err := svc.GenerateOneTimePreKeys(1)
	require.NoError(t, err)
	assert.Equal(t, domain.PreKeyID(4), more[0].ID)
}
