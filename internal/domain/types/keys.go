package types

import "bytes"

// PublicKey is an encoded public key. The relay never interprets it.
type PublicKey []byte

// Clone returns a copy that shares no memory with k.
func (k PublicKey) Clone() PublicKey {
	if k == nil {
		return nil
	}
	return append(PublicKey(nil), k...)
}

// Equal reports whether both keys hold the same bytes.
func (k PublicKey) Equal(o PublicKey) bool { return bytes.Equal(k, o) }

// Signature is an opaque signature over an encoded public key.
type Signature []byte

// Clone returns a copy that shares no memory with s.
func (s Signature) Clone() Signature {
	if s == nil {
		return nil
	}
	return append(Signature(nil), s...)
}

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }

// Ed25519Public is an Ed25519 signing public key.
type Ed25519Public [32]byte

// Slice returns the key as a []byte.
func (p Ed25519Public) Slice() []byte { return p[:] }

// Ed25519Private is an Ed25519 signing private key.
type Ed25519Private [64]byte

// Slice returns the key as a []byte.
func (k Ed25519Private) Slice() []byte { return k[:] }
