package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"keyrelay/internal/domain/types"
)

// ContentType is the media type of the binary bundle encoding.
const ContentType = "application/x-protobuf"

// ErrMalformedBundle is returned when a payload is not a valid bundle.
var ErrMalformedBundle = errors.New("wire: malformed pre-key bundle")

// Field numbers of the bundle message.
const (
	fieldRegistrationID  protowire.Number = 1
	fieldDeviceID        protowire.Number = 2
	fieldPreKeyID        protowire.Number = 3
	fieldPreKeyPublic    protowire.Number = 4
	fieldSignedPreKeyID  protowire.Number = 5
	fieldSignedPreKeyPub protowire.Number = 6
	fieldSignedPreKeySig protowire.Number = 7
	fieldIdentityKey     protowire.Number = 8
)

// MarshalBundle encodes b. Fields 3 and 4 are omitted when b carries no
// one-time pre-key.
func MarshalBundle(b types.PreKeyBundle) []byte {
	var out []byte
	out = appendVarint(out, fieldRegistrationID, uint64(b.RegistrationID))
	out = appendVarint(out, fieldDeviceID, uint64(b.DeviceID))
	if b.PreKey != nil {
		out = appendVarint(out, fieldPreKeyID, uint64(b.PreKey.ID))
		out = appendBytes(out, fieldPreKeyPublic, b.PreKey.PublicKey)
	}
	out = appendVarint(out, fieldSignedPreKeyID, uint64(b.SignedPreKey.ID))
	out = appendBytes(out, fieldSignedPreKeyPub, b.SignedPreKey.PublicKey)
	out = appendBytes(out, fieldSignedPreKeySig, b.SignedPreKey.Signature)
	out = appendBytes(out, fieldIdentityKey, b.IdentityKey)
	return out
}

// UnmarshalBundle decodes data. Unknown fields are skipped. Every field except
// the one-time pre-key is required, and the one-time id and public key must
// appear together.
func UnmarshalBundle(data []byte) (types.PreKeyBundle, error) {
	var (
		b    types.PreKeyBundle
		seen = make(map[protowire.Number]bool, 8)
		otID types.PreKeyID
		otPK []byte
	)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return types.PreKeyBundle{}, malformed("tag", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case fieldRegistrationID, fieldDeviceID, fieldPreKeyID, fieldSignedPreKeyID:
			if typ != protowire.VarintType {
				return types.PreKeyBundle{}, malformed(fmt.Sprintf("field %d", num), errors.New("want varint"))
			}
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return types.PreKeyBundle{}, malformed(fmt.Sprintf("field %d", num), protowire.ParseError(m))
			}
			if v > uint64(^uint32(0)) {
				return types.PreKeyBundle{}, malformed(fmt.Sprintf("field %d", num), errors.New("overflows uint32"))
			}
			data = data[m:]
			switch num {
			case fieldRegistrationID:
				b.RegistrationID = types.RegistrationID(v)
			case fieldDeviceID:
				b.DeviceID = types.DeviceID(v)
			case fieldPreKeyID:
				otID = types.PreKeyID(v)
			case fieldSignedPreKeyID:
				b.SignedPreKey.ID = types.SignedPreKeyID(v)
			}
		case fieldPreKeyPublic, fieldSignedPreKeyPub, fieldSignedPreKeySig, fieldIdentityKey:
			if typ != protowire.BytesType {
				return types.PreKeyBundle{}, malformed(fmt.Sprintf("field %d", num), errors.New("want bytes"))
			}
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return types.PreKeyBundle{}, malformed(fmt.Sprintf("field %d", num), protowire.ParseError(m))
			}
			data = data[m:]
			v = append([]byte(nil), v...)
			switch num {
			case fieldPreKeyPublic:
				otPK = v
			case fieldSignedPreKeyPub:
				b.SignedPreKey.PublicKey = v
			case fieldSignedPreKeySig:
				b.SignedPreKey.Signature = v
			case fieldIdentityKey:
				b.IdentityKey = v
			}
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return types.PreKeyBundle{}, malformed(fmt.Sprintf("field %d", num), protowire.ParseError(m))
			}
			data = data[m:]
		}
		seen[num] = true
	}

	for _, num := range []protowire.Number{
		fieldRegistrationID, fieldDeviceID, fieldSignedPreKeyID,
		fieldSignedPreKeyPub, fieldSignedPreKeySig, fieldIdentityKey,
	} {
		if !seen[num] {
			return types.PreKeyBundle{}, malformed(fmt.Sprintf("field %d", num), errors.New("missing"))
		}
	}
	if seen[fieldPreKeyID] != seen[fieldPreKeyPublic] {
		return types.PreKeyBundle{}, malformed("one-time pre-key", errors.New("id and public key must appear together"))
	}
	if seen[fieldPreKeyID] {
		b.PreKey = &types.OneTimePreKeyRecord{ID: otID, PublicKey: otPK}
	}
	return b, nil
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func malformed(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrMalformedBundle, what, err)
}
