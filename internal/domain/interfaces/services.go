package interfaces

import (
	"context"

	domaintypes "keyrelay/internal/domain/types"
)

// BundleService hands out pre-key bundles, consuming one one-time pre-key per call.
type BundleService interface {
	Fetch(ctx context.Context, addr domaintypes.Address) (domaintypes.PreKeyBundle, error)
	Devices(ctx context.Context, user domaintypes.UserID) ([]domaintypes.DeviceID, error)
}

// RegistrationService manages the key material a device publishes.
type RegistrationService interface {
	Register(ctx context.Context, reg domaintypes.DeviceRegistration) error
	Deregister(ctx context.Context, addr domaintypes.Address) error
	UploadPreKeys(
		ctx context.Context,
		addr domaintypes.Address,
		keys []domaintypes.OneTimePreKeyRecord,
	) (int, error)
	RotateSignedPreKey(
		ctx context.Context,
		addr domaintypes.Address,
		spk domaintypes.SignedPreKeyRecord,
	) error
	RemovePreKey(ctx context.Context, addr domaintypes.Address, id domaintypes.PreKeyID) error
	PreKeyCount(ctx context.Context, addr domaintypes.Address) (int, error)
}

// IdentityService creates, retrieves, and inspects your identity keys.
type IdentityService interface {
	GenerateIdentity(passphrase string) (
		domaintypes.Identity,
		domaintypes.Fingerprint,
		error,
	)
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
	FingerprintIdentity(passphrase string) (domaintypes.Fingerprint, error)
}

// PreKeyService generates pre-keys locally and builds what gets published.
type PreKeyService interface {
	BuildRegistration(
		passphrase string,
		addr domaintypes.Address,
		regID domaintypes.RegistrationID,
		count int,
	) (domaintypes.DeviceRegistration, error)
	GenerateOneTimePreKeys(count int) ([]domaintypes.OneTimePreKeyRecord, error)
	RotateSignedPreKey(passphrase string) (domaintypes.SignedPreKeyRecord, error)
	DiscardOneTimePreKey(id domaintypes.PreKeyID) (bool, error)
}
