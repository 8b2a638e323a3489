package store

import (
	"path/filepath"
	"sync"

	"keyrelay/internal/domain"
)

const accountsFile = "accounts.json"

// AccountFileStore persists per-relay account profiles to disk.
type AccountFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewAccountFileStore returns an AccountFileStore rooted at dir.
func NewAccountFileStore(dir string) *AccountFileStore {
	return &AccountFileStore{dir: dir}
}

func (s *AccountFileStore) load() (map[string]domain.AccountProfile, error) {
	profiles := make(map[string]domain.AccountProfile)
	err := readJSON(filepath.Join(s.dir, accountsFile), &profiles)
	return profiles, err
}

// SaveAccountProfile stores or updates the given profile.
func (s *AccountFileStore) SaveAccountProfile(profile domain.AccountProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.load()
	if err != nil {
		return err
	}
	profiles[accountKey(profile.ServerURL, profile.Username)] = profile
	return writeJSON(filepath.Join(s.dir, accountsFile), profiles, 0o600)
}

// LoadAccountProfile retrieves a profile for (serverURL, username).
func (s *AccountFileStore) LoadAccountProfile(
	serverURL string,
	username domain.UserID,
) (domain.AccountProfile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.load()
	if err != nil {
		return domain.AccountProfile{}, false, err
	}
	profile, ok := profiles[accountKey(serverURL, username)]
	return profile, ok, nil
}

// DeleteAccountProfile forgets the profile for (serverURL, username).
func (s *AccountFileStore) DeleteAccountProfile(serverURL string, username domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.load()
	if err != nil {
		return err
	}
	delete(profiles, accountKey(serverURL, username))
	return writeJSON(filepath.Join(s.dir, accountsFile), profiles, 0o600)
}

func accountKey(serverURL string, username domain.UserID) string {
	return serverURL + "|" + username.String()
}

// Compile-time assertion that AccountFileStore implements domain.AccountStore.
var _ domain.AccountStore = (*AccountFileStore)(nil)
