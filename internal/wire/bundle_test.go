package wire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"keyrelay/internal/domain/types"
	"keyrelay/internal/wire"
)

func sampleBundle() types.PreKeyBundle {
	return types.PreKeyBundle{
		RegistrationID: 42,
		DeviceID:       1,
		PreKey:         &types.OneTimePreKeyRecord{ID: 7, PublicKey: types.PublicKey{0x05, 0x07}},
		SignedPreKey: types.SignedPreKeyRecord{
			ID:        3,
			PublicKey: types.PublicKey{0x05, 0x03},
			Signature: types.Signature{0xAB, 0xCD},
		},
		IdentityKey: types.PublicKey{0x01, 0x02},
	}
}

func TestBundleRoundTrip(t *testing.T) {
	in := sampleBundle()
	got, err := wire.UnmarshalBundle(wire.MarshalBundle(in))
	require.NoError(t, err)
	assert.Equal(t, in, got)

	in.PreKey = nil
	enc := wire.MarshalBundle(in)
	got, err = wire.UnmarshalBundle(enc)
	require.NoError(t, err)
	assert.False(t, got.HasPreKey())
	assert.Equal(t, in, got)
}

func TestBundleWithoutPreKeyOmitsFields(t *testing.T) {
	b := sampleBundle()
	b.PreKey = nil
	data := wire.MarshalBundle(b)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		require.Positive(t, n)
		assert.NotEqual(t, protowire.Number(3), num)
		assert.NotEqual(t, protowire.Number(4), num)
		data = data[n:]
		m := protowire.ConsumeFieldValue(num, typ, data)
		require.Positive(t, m)
		data = data[m:]
	}
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	enc := wire.MarshalBundle(sampleBundle())
	enc = protowire.AppendTag(enc, 99, protowire.BytesType)
	enc = protowire.AppendBytes(enc, []byte("future"))

	got, err := wire.UnmarshalBundle(enc)
	require.NoError(t, err)
	assert.Equal(t, sampleBundle(), got)
}

func TestUnmarshalRejectsMalformed(t *testing.T) {
	full := wire.MarshalBundle(sampleBundle())

	// one-time id without its public key
	b := sampleBundle()
	b.PreKey = nil
	half := protowire.AppendTag(wire.MarshalBundle(b), 3, protowire.VarintType)
	half = protowire.AppendVarint(half, 7)

	noIdentity := protowire.AppendTag(nil, 1, protowire.VarintType)
	noIdentity = protowire.AppendVarint(noIdentity, 42)

	wrongType := protowire.AppendTag(nil, 1, protowire.BytesType)
	wrongType = protowire.AppendBytes(wrongType, []byte{1})

	cases := map[string][]byte{
		"truncated":       full[:len(full)-1],
		"half pre-key":    half,
		"missing fields":  noIdentity,
		"wrong wire type": wrongType,
		"garbage tag":     {0xFF},
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := wire.UnmarshalBundle(data)
			require.ErrorIs(t, err, wire.ErrMalformedBundle)
		})
	}
}
