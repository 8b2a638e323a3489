package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyrelay/internal/crypto"
	"keyrelay/internal/domain"
	"keyrelay/internal/services/identity"
	"keyrelay/internal/store"
)

const strong = "Correct-Horse-9-Battery"

func TestGenerateIdentity(t *testing.T) {
	svc := identity.New(store.NewIdentityFileStore(t.TempDir()))

	id, fp, err := svc.GenerateIdentity(strong)
	require.NoError(t, err)
	assert.Equal(t, crypto.Fingerprint(id.EdPub[:]), fp)

	loaded, err := svc.LoadIdentity(strong)
	require.NoError(t, err)
	assert.Equal(t, id, loaded)

	got, err := svc.FingerprintIdentity(strong)
	require.NoError(t, err)
	assert.Equal(t, fp, got)

	_, _, err = svc.GenerateIdentity(strong)
	require.ErrorIs(t, err, identity.ErrIdentityExists)
}

func TestGenerateIdentityRejectsWeakPassphrase(t *testing.T) {
	svc := identity.New(store.NewIdentityFileStore(t.TempDir()))
	for _, pw := range []string{"short", "alllowercase-123", "NoDigitsHere!!", "NoSymbols12345"} {
		_, _, err := svc.GenerateIdentity(pw)
		assert.ErrorIs(t, err, identity.ErrWeakPassphrase, pw)
	}
}

func TestLoadIdentityMissing(t *testing.T) {
	svc := identity.New(store.NewIdentityFileStore(t.TempDir()))
	_, err := svc.LoadIdentity(strong)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
