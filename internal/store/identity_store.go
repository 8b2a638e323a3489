package store

import (
	"encoding/json"
	"path/filepath"
	"sync"

	"keyrelay/internal/domain"
	"keyrelay/internal/util/memzero"
)

const (
	idFilename = "identity.json.enc"
	idLabel    = "keyrelay/identity"
)

// IdentityFileStore persists the local identity to disk, sealed under a passphrase.
type IdentityFileStore struct {
	dir string
	kdf scryptParams
	mu  sync.Mutex
}

// NewIdentityFileStore returns an IdentityFileStore rooted at dir.
func NewIdentityFileStore(dir string) *IdentityFileStore {
	return &IdentityFileStore{dir: dir, kdf: defaultScryptParams()}
}

// SaveIdentity writes the encrypted identity to disk.
func (s *IdentityFileStore) SaveIdentity(passphrase string, id domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(id)
	if err != nil {
		return err
	}
	defer memzero.Zero(raw)

	ct, err := seal(passphrase, idLabel, raw, s.kdf)
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(s.dir, idFilename), ct, 0o600)
}

// LoadIdentity reads and decrypts the identity. It returns domain.ErrNotFound
// when none has been created yet.
func (s *IdentityFileStore) LoadIdentity(passphrase string) (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := readFile(filepath.Join(s.dir, idFilename))
	if err != nil {
		return domain.Identity{}, err
	}
	if b == nil {
		return domain.Identity{}, domain.ErrNotFound
	}
	pt, err := open(passphrase, idLabel, b)
	if err != nil {
		return domain.Identity{}, err
	}
	defer memzero.Zero(pt)

	var id domain.Identity
	if err := json.Unmarshal(pt, &id); err != nil {
		return domain.Identity{}, err
	}
	return id, nil
}

// Compile-time assertion that IdentityFileStore implements domain.IdentityStore.
var _ domain.IdentityStore = (*IdentityFileStore)(nil)
