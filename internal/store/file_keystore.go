package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"keyrelay/internal/device"
	"keyrelay/internal/domain"
)

const recordExt = ".json"

// FileKeyStore persists one JSON document per device under
// <dir>/<user>/<device>.json. Writes go through a temp file and a rename, and
// each device is serialised by its own lock.
type FileKeyStore struct {
	dir   string
	locks *addrLocks
	now   func() time.Time
}

// NewFileKeyStore returns a FileKeyStore rooted at dir, creating it if needed.
func NewFileKeyStore(dir string) (*FileKeyStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create key store dir: %w", err)
	}
	return &FileKeyStore{dir: dir, locks: newAddrLocks(), now: time.Now}, nil
}

func (s *FileKeyStore) userDir(user domain.UserID) (string, error) {
	name := url.PathEscape(user.String())
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("user %q: %w", user, domain.ErrInvalidRequest)
	}
	return filepath.Join(s.dir, name), nil
}

func (s *FileKeyStore) path(addr domain.Address) (string, error) {
	dir, err := s.userDir(addr.User)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, addr.Device.String()+recordExt), nil
}

// read expects the device lock to be held.
func (s *FileKeyStore) read(addr domain.Address) (*device.Record, error) {
	path, err := s.path(addr)
	if err != nil {
		return nil, err
	}
	b, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.ErrNotFound
	}
	snap, err := decodeSnapshotJSON(b)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return snap.Restore()
}

// write expects the device lock to be held.
func (s *FileKeyStore) write(rec *device.Record) error {
	path, err := s.path(rec.Address)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return writeJSON(path, rec.Snapshot(), 0o600)
}

// Load reads the record at addr.
func (s *FileKeyStore) Load(ctx context.Context, addr domain.Address) (*device.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unlock := s.locks.lock(addr)
	defer unlock()

	rec, err := s.read(addr)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", addr, err)
	}
	return rec, nil
}

// Save writes rec, replacing any record at the same address.
func (s *FileKeyStore) Save(ctx context.Context, rec *device.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := s.locks.lock(rec.Address)
	defer unlock()

	if err := s.write(rec); err != nil {
		return fmt.Errorf("save %s: %w", rec.Address, err)
	}
	return nil
}

// Delete removes the record file at addr.
func (s *FileKeyStore) Delete(ctx context.Context, addr domain.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := s.locks.lock(addr)
	defer unlock()

	path, err := s.path(addr)
	if err != nil {
		return fmt.Errorf("delete %s: %w", addr, err)
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete %s: %w", addr, domain.ErrNotFound)
		}
		return fmt.Errorf("delete %s: %w", addr, err)
	}
	return nil
}

// Update reads, modifies and rewrites the record while holding its lock.
func (s *FileKeyStore) Update(ctx context.Context, addr domain.Address, fn func(*device.Record) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := s.locks.lock(addr)
	defer unlock()

	rec, err := s.read(addr)
	if err != nil {
		return fmt.Errorf("update %s: %w", addr, err)
	}
	if err := fn(rec); err != nil {
		return fmt.Errorf("update %s: %w", addr, err)
	}
	rec.UpdatedAt = s.now()
	if err := s.write(rec); err != nil {
		return fmt.Errorf("update %s: %w", addr, err)
	}
	return nil
}

// Devices lists the device ids that have a record file under user.
func (s *FileKeyStore) Devices(ctx context.Context, user domain.UserID) ([]domain.DeviceID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.userDir(user)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list devices of %s: %w", user, err)
	}

	var out []domain.DeviceID
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, recordExt) {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimSuffix(name, recordExt), 10, 32)
		if err != nil {
			continue
		}
		out = append(out, domain.DeviceID(id))
	}
	slices.Sort(out)
	return out, nil
}

// Compile-time assertion that FileKeyStore implements domain.KeyStore.
var _ domain.KeyStore = (*FileKeyStore)(nil)
