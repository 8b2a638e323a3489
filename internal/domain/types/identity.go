package types

// Identity holds a device's long-term Ed25519 signing keys. Only EdPub ever
// leaves the device; it is published as the bundle identity key.
type Identity struct {
	EdPub  Ed25519Public  `json:"edpub"`
	EdPriv Ed25519Private `json:"edpriv"`
}
