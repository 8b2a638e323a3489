package bundle

import (
	"fmt"

	"keyrelay/internal/device"
	"keyrelay/internal/domain/interfaces"
	"keyrelay/internal/domain/types"
)

// Assembler turns a device record into a pre-key bundle.
type Assembler struct {
	verifier interfaces.SignatureVerifier
}

// NewAssembler returns an Assembler. With a nil verifier the signed pre-key is
// served as stored; registration is then the only place it gets checked.
func NewAssembler(verifier interfaces.SignatureVerifier) *Assembler {
	return &Assembler{verifier: verifier}
}

// Assemble builds a bundle from rec and consumes at most one one-time pre-key
// from its pool. Checks run before consumption, so a failed call leaves the
// pool untouched. The signed pre-key is read, never modified.
func (a *Assembler) Assemble(rec *device.Record) (types.PreKeyBundle, error) {
	if !rec.HasSignedPreKey() {
		return types.PreKeyBundle{}, fmt.Errorf("assemble %s: %w", rec.Address, types.ErrMissingSignedPreKey)
	}
	spk := rec.SignedPreKey
	if a.verifier != nil && !a.verifier.Verify(rec.IdentityKey, spk.PublicKey, spk.Signature) {
		return types.PreKeyBundle{}, fmt.Errorf("assemble %s: %w", rec.Address, types.ErrInvalidSignature)
	}

	b := types.PreKeyBundle{
		RegistrationID: rec.RegistrationID,
		DeviceID:       rec.Address.Device,
		SignedPreKey:   spk.Clone(),
		IdentityKey:    rec.IdentityKey.Clone(),
	}
	if rec.OneTimePreKeys != nil {
		if otpk, ok := rec.OneTimePreKeys.SelectAndConsume(); ok {
			otpk = otpk.Clone()
			b.PreKey = &otpk
		}
	}
	return b, nil
}
