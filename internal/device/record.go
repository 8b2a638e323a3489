package device

import (
	"time"

	"keyrelay/internal/domain/types"
)

// Record is everything the relay holds for one device. It exclusively owns
// its one-time pre-key pool.
type Record struct {
	Address        types.Address
	IdentityKey    types.PublicKey
	RegistrationID types.RegistrationID
	SignedPreKey   *types.SignedPreKeyRecord
	OneTimePreKeys *Pool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewRecord builds a record from a registration. The signed pre-key and every
// one-time pre-key are copied.
func NewRecord(reg types.DeviceRegistration, now time.Time, opts ...PoolOption) (*Record, error) {
	pool := NewPool(opts...)
	if err := pool.InsertAll(reg.PreKeys); err != nil {
		return nil, err
	}
	spk := reg.SignedPreKey.Clone()
	return &Record{
		Address:        reg.Address,
		IdentityKey:    reg.IdentityKey.Clone(),
		RegistrationID: reg.RegistrationID,
		SignedPreKey:   &spk,
		OneTimePreKeys: pool,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// HasSignedPreKey reports whether a usable signed pre-key is present.
func (r *Record) HasSignedPreKey() bool {
	return r.SignedPreKey != nil && len(r.SignedPreKey.PublicKey) > 0
}

// Clone returns a deep copy. Changes to the copy, its pool included, never
// reach r.
func (r *Record) Clone() *Record {
	c := *r
	c.IdentityKey = r.IdentityKey.Clone()
	if r.SignedPreKey != nil {
		spk := r.SignedPreKey.Clone()
		c.SignedPreKey = &spk
	}
	if r.OneTimePreKeys != nil {
		c.OneTimePreKeys = r.OneTimePreKeys.Clone()
	} else {
		c.OneTimePreKeys = NewPool()
	}
	return &c
}

// Snapshot is the serialisable form of a Record used by persistence adapters.
type Snapshot struct {
	Address        types.Address               `json:"address" cbor:"1,keyasint"`
	IdentityKey    types.PublicKey             `json:"identity_key" cbor:"2,keyasint"`
	RegistrationID types.RegistrationID        `json:"registration_id" cbor:"3,keyasint"`
	SignedPreKey   *types.SignedPreKeyRecord   `json:"signed_pre_key,omitempty" cbor:"4,keyasint,omitempty"`
	PreKeys        []types.OneTimePreKeyRecord `json:"pre_keys" cbor:"5,keyasint"`
	CreatedAt      time.Time                   `json:"created_at" cbor:"6,keyasint"`
	UpdatedAt      time.Time                   `json:"updated_at" cbor:"7,keyasint"`
}

// Snapshot returns a copy of r in its serialisable form.
func (r *Record) Snapshot() Snapshot {
	s := Snapshot{
		Address:        r.Address,
		IdentityKey:    r.IdentityKey.Clone(),
		RegistrationID: r.RegistrationID,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.SignedPreKey != nil {
		spk := r.SignedPreKey.Clone()
		s.SignedPreKey = &spk
	}
	if r.OneTimePreKeys != nil {
		s.PreKeys = r.OneTimePreKeys.Records()
	}
	return s
}

// Restore rebuilds a Record from s.
func (s Snapshot) Restore(opts ...PoolOption) (*Record, error) {
	pool := NewPool(opts...)
	if err := pool.InsertAll(s.PreKeys); err != nil {
		return nil, err
	}
	r := &Record{
		Address:        s.Address,
		IdentityKey:    s.IdentityKey.Clone(),
		RegistrationID: s.RegistrationID,
		OneTimePreKeys: pool,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
	if s.SignedPreKey != nil {
		spk := s.SignedPreKey.Clone()
		r.SignedPreKey = &spk
	}
	return r, nil
}
