// Package prekey manages signed pre-keys and one-time pre-keys on the device.
//
// It rotates the current signed pre-key, allocates one-time pre-key ids that
// are never reused, and builds the registration and replenishment payloads
// that keyctl publishes to the relay. Private halves stay in the local store.
package prekey
