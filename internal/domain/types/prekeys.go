package types

// OneTimePreKeyRecord is the public half of a one-time pre-key as pooled on the relay.
type OneTimePreKeyRecord struct {
	ID        PreKeyID  `json:"id" cbor:"1,keyasint"`
	PublicKey PublicKey `json:"public_key" cbor:"2,keyasint"`
}

// Clone returns a deep copy.
func (r OneTimePreKeyRecord) Clone() OneTimePreKeyRecord {
	return OneTimePreKeyRecord{ID: r.ID, PublicKey: r.PublicKey.Clone()}
}

// SignedPreKeyRecord is the current signed pre-key of a device. Signature is
// produced by the identity key over the encoded PublicKey bytes.
type SignedPreKeyRecord struct {
	ID        SignedPreKeyID `json:"id" cbor:"1,keyasint"`
	PublicKey PublicKey      `json:"public_key" cbor:"2,keyasint"`
	Signature Signature      `json:"signature" cbor:"3,keyasint"`
}

// Clone returns a deep copy.
func (r SignedPreKeyRecord) Clone() SignedPreKeyRecord {
	return SignedPreKeyRecord{ID: r.ID, PublicKey: r.PublicKey.Clone(), Signature: r.Signature.Clone()}
}

// PreKeyBundle is the point-in-time snapshot a peer fetches to start a
// session. A nil PreKey means the device's one-time pool was exhausted.
type PreKeyBundle struct {
	RegistrationID RegistrationID       `json:"registration_id"`
	DeviceID       DeviceID             `json:"device_id"`
	PreKey         *OneTimePreKeyRecord `json:"pre_key,omitempty"`
	SignedPreKey   SignedPreKeyRecord   `json:"signed_pre_key"`
	IdentityKey    PublicKey            `json:"identity_key"`
}

// HasPreKey reports whether the bundle carries a one-time pre-key.
func (b PreKeyBundle) HasPreKey() bool { return b.PreKey != nil }

// DeviceRegistration is everything a device publishes when it registers.
type DeviceRegistration struct {
	Address        Address               `json:"address"`
	RegistrationID RegistrationID        `json:"registration_id"`
	IdentityKey    PublicKey             `json:"identity_key"`
	SignedPreKey   SignedPreKeyRecord    `json:"signed_pre_key"`
	PreKeys        []OneTimePreKeyRecord `json:"pre_keys,omitempty"`
}

// OneTimePreKeyPair is the full (private+public) one-time pre-key kept on the device.
type OneTimePreKeyPair struct {
	ID   PreKeyID      `json:"id"`
	Priv X25519Private `json:"priv"`
	Pub  X25519Public  `json:"pub"`
}

// SignedPreKeyPair is the full signed pre-key kept on the device.
type SignedPreKeyPair struct {
	ID        SignedPreKeyID `json:"id"`
	Priv      X25519Private  `json:"priv"`
	Pub       X25519Public   `json:"pub"`
	Signature Signature      `json:"signature"`
}
