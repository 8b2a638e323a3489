// Package device holds the relay-side state of a single device: its identity
// key, registration id, current signed pre-key and the pool of one-time
// pre-keys that bundles draw from.
//
// A Pool hands out each one-time pre-key at most once. Selection is uniform
// over the keys available at the moment of the call, and the chosen key is
// removed in the same critical section, so two concurrent consumers can never
// observe the same id.
package device
