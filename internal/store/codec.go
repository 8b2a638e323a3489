package store

import (
	"encoding/json"

	"github.com/fxamacker/cbor/v2"

	"keyrelay/internal/device"
)

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	cborDec, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

// encodeSnapshot is the redis representation of a device record.
func encodeSnapshot(s device.Snapshot) ([]byte, error) {
	return cborEnc.Marshal(s)
}

func decodeSnapshot(b []byte) (device.Snapshot, error) {
	var s device.Snapshot
	err := cborDec.Unmarshal(b, &s)
	return s, err
}

func decodeSnapshotJSON(b []byte) (device.Snapshot, error) {
	var s device.Snapshot
	err := json.Unmarshal(b, &s)
	return s, err
}
