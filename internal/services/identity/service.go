package identity

import (
	"errors"
	"fmt"
	"unicode"

	"keyrelay/internal/crypto"
	"keyrelay/internal/domain"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12
)

var (
	// ErrIdentityExists is returned by GenerateIdentity when an identity is already stored.
	ErrIdentityExists = errors.New("an identity already exists")

	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)
)

// Service manages identity key creation and access using a backing store.
//
// The identity is an Ed25519 key pair. Its public half is what the relay
// publishes as the device identity key, and its private half signs every
// signed pre-key.
type Service struct {
	store domain.IdentityStore
}

// New returns an identity service backed by the given store.
func New(s domain.IdentityStore) *Service { return &Service{store: s} }

// GenerateIdentity creates a new identity, saves it encrypted with the
// passphrase, and returns it with its fingerprint. An existing identity is
// never overwritten; it yields ErrIdentityExists.
func (s *Service) GenerateIdentity(
	passphrase string,
) (domain.Identity, domain.Fingerprint, error) {
	if !isSecurePassphrase(passphrase) {
		return domain.Identity{}, "", ErrWeakPassphrase
	}
	if _, err := s.store.LoadIdentity(passphrase); !errors.Is(err, domain.ErrNotFound) {
		if err == nil {
			return domain.Identity{}, "", ErrIdentityExists
		}
		// a sealed identity that this passphrase cannot open still exists
		return domain.Identity{}, "", fmt.Errorf("%w: %v", ErrIdentityExists, err)
	}

	priv, pub, err := crypto.GenerateEd25519()
	if err != nil {
		return domain.Identity{}, "", err
	}
	id := domain.Identity{EdPub: pub, EdPriv: priv}
	if err := s.store.SaveIdentity(passphrase, id); err != nil {
		return domain.Identity{}, "", err
	}
	return id, Fingerprint(id), nil
}

// LoadIdentity decrypts and returns the local identity.
func (s *Service) LoadIdentity(passphrase string) (domain.Identity, error) {
	return s.store.LoadIdentity(passphrase)
}

// FingerprintIdentity returns the fingerprint of the local identity key.
func (s *Service) FingerprintIdentity(passphrase string) (domain.Fingerprint, error) {
	id, err := s.store.LoadIdentity(passphrase)
	if err != nil {
		return "", err
	}
	return Fingerprint(id), nil
}

// Fingerprint is the short form of id's public key shown to users. Peers
// compare it out of band with crypto.Fingerprint of a fetched identity key.
func Fingerprint(id domain.Identity) domain.Fingerprint {
	return crypto.Fingerprint(id.EdPub.Slice())
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
