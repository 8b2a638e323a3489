// Package registration accepts device key material on the relay: initial
// registration, one-time pre-key replenishment, signed pre-key rotation and
// removal. Signed pre-keys are always verified against the device identity
// key before they are stored.
package registration
