package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"keyrelay/internal/util/memzero"
)

// sealedFormatVersion is the newest envelope layout this package can open.
const sealedFormatVersion = 1

// ErrWrongPassphrase is returned when the passphrase is incorrect or the
// sealed file has been modified.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted key file")

// sealed is the on-disk JSON envelope holding ciphertext and KDF parameters.
type sealed struct {
	V      int    `json:"v"`
	Label  string `json:"label"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

// scryptParams are the KDF cost parameters used for new envelopes.
type scryptParams struct{ N, R, P int }

func defaultScryptParams() scryptParams { return scryptParams{N: 1 << 15, R: 8, P: 1} }

// seal derives a key from passphrase and encrypts raw. label is bound as
// associated data so one envelope cannot be swapped in for another kind.
func seal(passphrase, label string, raw []byte, kdf scryptParams) ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key, err := scrypt.Key([]byte(passphrase), salt, kdf.N, kdf.R, kdf.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	ct := aead.Seal(nonce, nonce, raw, []byte(label))

	return json.Marshal(sealed{
		V:      sealedFormatVersion,
		Label:  label,
		Salt:   salt,
		N:      kdf.N,
		R:      kdf.R,
		P:      kdf.P,
		Cipher: ct,
	})
}

// open reverses seal. The label must match the one used to seal.
func open(passphrase, label string, b []byte) ([]byte, error) {
	var env sealed
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, err
	}
	if env.V > sealedFormatVersion {
		return nil, fmt.Errorf("unsupported key file version %d", env.V)
	}
	if env.Label != label {
		return nil, ErrWrongPassphrase
	}

	key, err := scrypt.Key([]byte(passphrase), env.Salt, env.N, env.R, env.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(env.Cipher) < aead.NonceSize() {
		return nil, ErrWrongPassphrase
	}
	nonce, ct := env.Cipher[:aead.NonceSize()], env.Cipher[aead.NonceSize():]
	pt, err := aead.Open(nil, nonce, ct, []byte(label))
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}
