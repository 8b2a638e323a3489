package types

import (
	"fmt"
	"strconv"
)

// UserID identifies an account on the relay.
type UserID string

// String returns the string form of the user id.
func (u UserID) String() string { return string(u) }

// DeviceID identifies one device within a user's device set.
type DeviceID uint32

// String returns the decimal form of the device id.
func (d DeviceID) String() string { return strconv.FormatUint(uint64(d), 10) }

// ParseDeviceID parses a decimal device id.
func ParseDeviceID(s string) (DeviceID, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("device id %q: %w", s, ErrInvalidRequest)
	}
	return DeviceID(v), nil
}

// RegistrationID is stable for the lifetime of one installation.
type RegistrationID uint32

// PreKeyID identifies a one-time pre-key within a device's pool.
type PreKeyID uint32

// ParsePreKeyID parses a decimal one-time pre-key id.
func ParsePreKeyID(s string) (PreKeyID, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("pre-key id %q: %w", s, ErrInvalidRequest)
	}
	return PreKeyID(v), nil
}

// SignedPreKeyID is the sequence number of a signed pre-key.
type SignedPreKeyID uint32

// Address names a single device of a single user.
type Address struct {
	User   UserID   `json:"user" cbor:"1,keyasint"`
	Device DeviceID `json:"device" cbor:"2,keyasint"`
}

// String renders the address as user.device.
func (a Address) String() string { return fmt.Sprintf("%s.%d", a.User, a.Device) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }
