// Package identity manages creation, encryption and loading of the local identity.
//
// It enforces passphrase policy, generates the Ed25519 identity key pair, and
// persists it via the domain.IdentityStore.
package identity
