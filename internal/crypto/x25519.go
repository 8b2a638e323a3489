package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/curve25519"

	"keyrelay/internal/domain"
)

// DJBType prefixes an encoded Curve25519 public key.
const DJBType byte = 0x05

// ErrBadPublicKey is returned when an encoded public key cannot be decoded.
var ErrBadPublicKey = errors.New("crypto: malformed public key")

// GenerateX25519 returns a fresh Curve25519 key pair.
// The private key is clamped per RFC 7748.
func GenerateX25519() (priv domain.X25519Private, pub domain.X25519Public, err error) {
	if _, err = rand.Read(priv[:]); err != nil {
		return
	}
	clamp(&priv)
	pb, err := curve25519.X25519(priv.Slice(), curve25519.Basepoint)
	if err != nil {
		return
	}
	copy(pub[:], pb)
	return
}

// PublicFromPrivate recomputes the public half of priv.
func PublicFromPrivate(priv domain.X25519Private) (pub domain.X25519Public, err error) {
	pb, err := curve25519.X25519(priv.Slice(), curve25519.Basepoint)
	if err != nil {
		return pub, err
	}
	copy(pub[:], pb)
	return pub, nil
}

// EncodeX25519 returns the type-prefixed encoding that is published and signed.
func EncodeX25519(pub domain.X25519Public) domain.PublicKey {
	out := make(domain.PublicKey, 0, 1+len(pub))
	out = append(out, DJBType)
	return append(out, pub[:]...)
}

// DecodeX25519 accepts the prefixed encoding as well as a bare 32-byte key.
func DecodeX25519(b []byte) (pub domain.X25519Public, err error) {
	switch {
	case len(b) == 33 && b[0] == DJBType:
		copy(pub[:], b[1:])
	case len(b) == 32:
		copy(pub[:], b)
	default:
		return pub, fmt.Errorf("%w: %d bytes", ErrBadPublicKey, len(b))
	}
	return pub, nil
}

func clamp(k *domain.X25519Private) {
	kb := k[:]
	kb[0] &= 248
	kb[31] &= 127
	kb[31] |= 64
}
