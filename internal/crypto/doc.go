// Package crypto exposes the minimal primitives used by keyrelay.
//
// Contents
//
//   - X25519 key generation, clamping and the type-prefixed public key
//     encoding that is published and signed (GenerateX25519, EncodeX25519,
//     DecodeX25519)
//   - Ed25519 key generation, signing and verification (GenerateEd25519,
//     SignEd25519, VerifyEd25519) and the relay's signature verifier
//     (Ed25519Verifier)
//   - Short public-key fingerprints for display (Fingerprint)
//
// # Notes
//
// Key material uses the fixed-size array types from internal/domain. The
// relay itself only ever sees encoded public keys and signatures.
package crypto
