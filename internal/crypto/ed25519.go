package crypto

import (
	"crypto/ed25519"
	"crypto/rand"

	"keyrelay/internal/domain"
)

// GenerateEd25519 returns a new Ed25519 signing key pair.
func GenerateEd25519() (priv domain.Ed25519Private, pub domain.Ed25519Public, err error) {
	pk, sk, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return priv, pub, err
	}
	copy(priv[:], sk)
	copy(pub[:], pk)
	return priv, pub, nil
}

// SignEd25519 signs msg with priv and returns the signature.
func SignEd25519(priv domain.Ed25519Private, msg []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(priv[:]), msg)
}

// VerifyEd25519 verifies sig over msg with pub.
func VerifyEd25519(pub domain.Ed25519Public, msg, sig []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig)
}

// Ed25519Verifier checks signed pre-keys against an Ed25519 identity key.
// Identity keys of the wrong length never verify.
type Ed25519Verifier struct{}

// Verify implements domain.SignatureVerifier.
func (Ed25519Verifier) Verify(identityKey, message, signature []byte) bool {
	if len(identityKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(identityKey), message, signature)
}

// Compile-time assertion that Ed25519Verifier implements domain.SignatureVerifier.
var _ domain.SignatureVerifier = Ed25519Verifier{}
