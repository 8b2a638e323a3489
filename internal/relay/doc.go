// Package relay provides the HTTP implementation of domain.RelayClient that
// devices use to talk to a key relay.
//
// The client covers the whole /v1/keys surface:
//   - registering and deregistering a device,
//   - uploading, counting and withdrawing one-time pre-keys,
//   - rotating the signed pre-key,
//   - listing a user's devices and fetching pre-key bundles.
//
// Bundles are requested in the binary encoding of package wire. Every other
// body is JSON. Every call takes a context for cancellation and deadlines.
//
// Non-2xx answers come back as *StatusError carrying the method, URL, status
// and the relay's message. A StatusError unwraps to the matching domain
// sentinel (ErrNotFound for 404, ErrDuplicateID for 409, ErrInvalidSignature
// or ErrInvalidRequest for 400, ErrConcurrentUpdate for 503), so callers can
// branch with errors.Is.
package relay
