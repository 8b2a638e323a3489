package api

import (
	"keyrelay/internal/domain"
)

// InputSignedPreKey is a signed pre-key as uploaded by a device.
type InputSignedPreKey struct {
	ID        domain.SignedPreKeyID `json:"id"`
	PublicKey domain.PublicKey      `json:"public_key" validate:"required,min=1,max=64"`
	Signature domain.Signature      `json:"signature" validate:"required,min=1,max=128"`
}

func (in InputSignedPreKey) record() domain.SignedPreKeyRecord {
	return domain.SignedPreKeyRecord{ID: in.ID, PublicKey: in.PublicKey, Signature: in.Signature}
}

// InputPreKey is a one-time pre-key as uploaded by a device.
type InputPreKey struct {
	ID        domain.PreKeyID  `json:"id"`
	PublicKey domain.PublicKey `json:"public_key" validate:"required,min=1,max=64"`
}

func preKeyRecords(in []InputPreKey) []domain.OneTimePreKeyRecord {
	out := make([]domain.OneTimePreKeyRecord, 0, len(in))
	for _, k := range in {
		out = append(out, domain.OneTimePreKeyRecord{ID: k.ID, PublicKey: k.PublicKey})
	}
	return out
}

// InputRegisterDevice is the body of PUT /v1/keys/:user/:device.
type InputRegisterDevice struct {
	RegistrationID domain.RegistrationID `json:"registration_id" validate:"required"`
	IdentityKey    domain.PublicKey      `json:"identity_key" validate:"required,min=1,max=64"`
	SignedPreKey   InputSignedPreKey     `json:"signed_pre_key"`
	PreKeys        []InputPreKey         `json:"pre_keys" validate:"max=1000,dive"`
}

// InputUploadPreKeys is the body of POST /v1/keys/:user/:device/prekeys.
type InputUploadPreKeys struct {
	PreKeys []InputPreKey `json:"pre_keys" validate:"required,min=1,max=1000,dive"`
}

// OutputPreKeyCount reports a device's one-time pool size.
type OutputPreKeyCount struct {
	Count int `json:"count"`
}

// OutputDevices lists a user's devices.
type OutputDevices struct {
	User    domain.UserID     `json:"user"`
	Devices []domain.DeviceID `json:"devices"`
}

// OutputStatus is the body of simple acknowledgements.
type OutputStatus struct {
	Status string `json:"status"`
}
