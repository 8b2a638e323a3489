package interfaces

import (
	"context"

	"keyrelay/internal/device"
	domaintypes "keyrelay/internal/domain/types"
)

// KeyStore persists relay-side device records. Every method returns
// domaintypes.ErrNotFound (wrapped) when the address is unknown, except Save
// and Devices.
type KeyStore interface {
	// Load returns a copy of the record; changes to it are not persisted.
	Load(ctx context.Context, addr domaintypes.Address) (*device.Record, error)
	// Save creates or replaces the record at rec.Address.
	Save(ctx context.Context, rec *device.Record) error
	Delete(ctx context.Context, addr domaintypes.Address) error
	// Update runs fn as one atomic read-modify-write on a single device. fn
	// must leave the record unchanged when it returns an error; that error is
	// returned wrapped. fn may run more than once on stores that retry.
	Update(ctx context.Context, addr domaintypes.Address, fn func(*device.Record) error) error
	// Devices lists the registered device ids of user in ascending order.
	Devices(ctx context.Context, user domaintypes.UserID) ([]domaintypes.DeviceID, error)
}

// IdentityStore persists your long-term identity keys.
type IdentityStore interface {
	SaveIdentity(passphrase string, id domaintypes.Identity) error
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
}

// PreKeyStore manages the private halves of signed and one-time pre-keys on disk.
type PreKeyStore interface {
	// Signed pre-keys
	SaveSignedPreKey(pair domaintypes.SignedPreKeyPair) error
	LoadSignedPreKey(id domaintypes.SignedPreKeyID) (domaintypes.SignedPreKeyPair, bool, error)
	SetCurrentSignedPreKeyID(id domaintypes.SignedPreKeyID) error
	CurrentSignedPreKeyID() (domaintypes.SignedPreKeyID, bool, error)

	// One-time pre-keys
	SaveOneTimePreKeys(pairs []domaintypes.OneTimePreKeyPair) error
	ConsumeOneTimePreKey(id domaintypes.PreKeyID) (domaintypes.OneTimePreKeyPair, bool, error)
	ListOneTimePreKeyPublics() ([]domaintypes.OneTimePreKeyRecord, error)
	// NextOneTimePreKeyID is one past the highest id ever saved, so ids are
	// never reused even after consumption.
	NextOneTimePreKeyID() (domaintypes.PreKeyID, error)
}
