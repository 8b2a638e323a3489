package store

import (
	"cmp"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"keyrelay/internal/crypto"
	"keyrelay/internal/domain"
)

const (
	spkPairsFile   = "spk_pairs.json"
	opkPairsFile   = "opk_pairs.json"
	prekeyMetaFile = "prekey_meta.json"
)

// PrekeyFileStore persists the private halves of signed and one-time
// pre-keys to disk, plus the counters that keep ids from being reused.
type PrekeyFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewPrekeyFileStore returns a PrekeyFileStore rooted at dir.
func NewPrekeyFileStore(dir string) *PrekeyFileStore {
	return &PrekeyFileStore{dir: dir}
}

// JSON object keys must be strings, so pairs are keyed by decimal id.
type spkPairs map[string]domain.SignedPreKeyPair

type opkPairs map[string]domain.OneTimePreKeyPair

type prekeyMeta struct {
	CurrentSignedPreKeyID domain.SignedPreKeyID `json:"current_signed_pre_key_id"`
	HasCurrent            bool                  `json:"has_current"`
	NextOneTimePreKeyID   domain.PreKeyID       `json:"next_one_time_pre_key_id"`
}

func idKey[T ~uint32](id T) string { return strconv.FormatUint(uint64(id), 10) }

func (s *PrekeyFileStore) loadMeta() (prekeyMeta, error) {
	var meta prekeyMeta
	err := readJSON(filepath.Join(s.dir, prekeyMetaFile), &meta)
	if meta.NextOneTimePreKeyID == 0 {
		meta.NextOneTimePreKeyID = 1
	}
	return meta, err
}

func (s *PrekeyFileStore) saveMeta(meta prekeyMeta) error {
	return writeJSON(filepath.Join(s.dir, prekeyMetaFile), meta, 0o600)
}

// SaveSignedPreKey stores a signed pre-key by id.
func (s *PrekeyFileStore) SaveSignedPreKey(pair domain.SignedPreKeyPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, spkPairsFile)
	m := spkPairs{}
	if err := readJSON(path, &m); err != nil {
		return err
	}
	m[idKey(pair.ID)] = pair
	return writeJSON(path, m, 0o600)
}

// LoadSignedPreKey retrieves a signed pre-key by id.
func (s *PrekeyFileStore) LoadSignedPreKey(id domain.SignedPreKeyID) (domain.SignedPreKeyPair, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := spkPairs{}
	if err := readJSON(filepath.Join(s.dir, spkPairsFile), &m); err != nil {
		return domain.SignedPreKeyPair{}, false, err
	}
	p, ok := m[idKey(id)]
	return p, ok, nil
}

// SetCurrentSignedPreKeyID records which signed pre-key id is current.
func (s *PrekeyFileStore) SetCurrentSignedPreKeyID(id domain.SignedPreKeyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.loadMeta()
	if err != nil {
		return err
	}
	meta.CurrentSignedPreKeyID = id
	meta.HasCurrent = true
	return s.saveMeta(meta)
}

// CurrentSignedPreKeyID returns the recorded current signed pre-key id.
func (s *PrekeyFileStore) CurrentSignedPreKeyID() (domain.SignedPreKeyID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.loadMeta()
	if err != nil {
		return 0, false, err
	}
	return meta.CurrentSignedPreKeyID, meta.HasCurrent, nil
}

// SaveOneTimePreKeys merges pairs into the store and advances the id counter
// past the highest id seen.
func (s *PrekeyFileStore) SaveOneTimePreKeys(pairs []domain.OneTimePreKeyPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, opkPairsFile)
	m := opkPairs{}
	if err := readJSON(path, &m); err != nil {
		return err
	}
	meta, err := s.loadMeta()
	if err != nil {
		return err
	}
	for _, p := range pairs {
		m[idKey(p.ID)] = p
		if p.ID >= meta.NextOneTimePreKeyID {
			meta.NextOneTimePreKeyID = p.ID + 1
		}
	}
	if err := writeJSON(path, m, 0o600); err != nil {
		return err
	}
	return s.saveMeta(meta)
}

// ConsumeOneTimePreKey removes and returns a single one-time pre-key by id.
func (s *PrekeyFileStore) ConsumeOneTimePreKey(id domain.PreKeyID) (domain.OneTimePreKeyPair, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, opkPairsFile)
	m := opkPairs{}
	if err := readJSON(path, &m); err != nil {
		return domain.OneTimePreKeyPair{}, false, err
	}
	p, ok := m[idKey(id)]
	if !ok {
		return domain.OneTimePreKeyPair{}, false, nil
	}
	delete(m, idKey(id))
	if err := writeJSON(path, m, 0o600); err != nil {
		return domain.OneTimePreKeyPair{}, false, err
	}
	return p, true, nil
}

// ListOneTimePreKeyPublics returns the published form of every stored
// one-time pre-key, ordered by id.
func (s *PrekeyFileStore) ListOneTimePreKeyPublics() ([]domain.OneTimePreKeyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := opkPairs{}
	if err := readJSON(filepath.Join(s.dir, opkPairsFile), &m); err != nil {
		return nil, err
	}
	out := make([]domain.OneTimePreKeyRecord, 0, len(m))
	for _, p := range m {
		out = append(out, domain.OneTimePreKeyRecord{ID: p.ID, PublicKey: crypto.EncodeX25519(p.Pub)})
	}
	slices.SortFunc(out, func(a, b domain.OneTimePreKeyRecord) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// NextOneTimePreKeyID returns the first id never handed to SaveOneTimePreKeys.
func (s *PrekeyFileStore) NextOneTimePreKeyID() (domain.PreKeyID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.loadMeta()
	if err != nil {
		return 0, err
	}
	return meta.NextOneTimePreKeyID, nil
}

// Compile-time assertion that PrekeyFileStore implements domain.PreKeyStore.
var _ domain.PreKeyStore = (*PrekeyFileStore)(nil)
