package interfaces

import (
	"context"

	domaintypes "keyrelay/internal/domain/types"
)

// SignatureVerifier checks a signature made by identityKey over message.
type SignatureVerifier interface {
	Verify(identityKey, message, signature []byte) bool
}

// Notifier delivers pool events to whoever replenishes pre-keys.
type Notifier interface {
	Notify(ctx context.Context, ev domaintypes.PoolEvent) error
}
