package interfaces

import (
	"context"

	domaintypes "keyrelay/internal/domain/types"
)

// RelayClient is how a device talks to the key relay, all with context.
type RelayClient interface {
	RegisterDevice(ctx context.Context, reg domaintypes.DeviceRegistration) error
	Deregister(ctx context.Context, addr domaintypes.Address) error
	UploadPreKeys(
		ctx context.Context,
		addr domaintypes.Address,
		keys []domaintypes.OneTimePreKeyRecord,
	) (int, error)
	RemovePreKey(ctx context.Context, addr domaintypes.Address, id domaintypes.PreKeyID) error
	RotateSignedPreKey(
		ctx context.Context,
		addr domaintypes.Address,
		spk domaintypes.SignedPreKeyRecord,
	) error
	PreKeyCount(ctx context.Context, addr domaintypes.Address) (int, error)

	FetchPreKeyBundle(
		ctx context.Context,
		addr domaintypes.Address,
	) (domaintypes.PreKeyBundle, error)
	ListDevices(ctx context.Context, user domaintypes.UserID) ([]domaintypes.DeviceID, error)
}
