package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"keyrelay/internal/device"
	"keyrelay/internal/domain"
)

// MemoryKeyStore keeps device records in process memory. Each record is
// guarded by its own lock; the map lock is only held to find or replace
// entries, never across a read-modify-write.
type MemoryKeyStore struct {
	mu      sync.RWMutex
	records map[domain.Address]*memEntry
	now     func() time.Time
}

type memEntry struct {
	mu      sync.Mutex
	rec     *device.Record
	removed bool
}

// NewMemoryKeyStore returns an empty MemoryKeyStore.
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{records: make(map[domain.Address]*memEntry), now: time.Now}
}

func (s *MemoryKeyStore) entry(addr domain.Address) (*memEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.records[addr]
	return e, ok
}

// Load returns a deep copy of the record at addr.
func (s *MemoryKeyStore) Load(ctx context.Context, addr domain.Address) (*device.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, ok := s.entry(addr)
	if !ok {
		return nil, fmt.Errorf("load %s: %w", addr, domain.ErrNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return nil, fmt.Errorf("load %s: %w", addr, domain.ErrNotFound)
	}
	return e.rec.Clone(), nil
}

// Save stores a copy of rec, replacing any record at the same address.
func (s *MemoryKeyStore) Save(ctx context.Context, rec *device.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c := rec.Clone()
	for {
		s.mu.Lock()
		e, ok := s.records[rec.Address]
		if !ok {
			s.records[rec.Address] = &memEntry{rec: c}
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()

		e.mu.Lock()
		if !e.removed {
			e.rec = c
			e.mu.Unlock()
			return nil
		}
		// lost a race with Delete; the map no longer points at e
		e.mu.Unlock()
	}
}

// Delete removes the record at addr.
func (s *MemoryKeyStore) Delete(ctx context.Context, addr domain.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	e, ok := s.records[addr]
	if ok {
		delete(s.records, addr)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("delete %s: %w", addr, domain.ErrNotFound)
	}

	e.mu.Lock()
	e.removed = true
	e.mu.Unlock()
	return nil
}

// Update applies fn to the live record while holding the device lock.
func (s *MemoryKeyStore) Update(ctx context.Context, addr domain.Address, fn func(*device.Record) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e, ok := s.entry(addr)
	if !ok {
		return fmt.Errorf("update %s: %w", addr, domain.ErrNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return fmt.Errorf("update %s: %w", addr, domain.ErrNotFound)
	}
	if err := fn(e.rec); err != nil {
		return fmt.Errorf("update %s: %w", addr, err)
	}
	e.rec.UpdatedAt = s.now()
	return nil
}

// Devices lists the device ids registered for user.
func (s *MemoryKeyStore) Devices(ctx context.Context, user domain.UserID) ([]domain.DeviceID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.DeviceID
	for addr := range s.records {
		if addr.User == user {
			out = append(out, addr.Device)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Compile-time assertion that MemoryKeyStore implements domain.KeyStore.
var _ domain.KeyStore = (*MemoryKeyStore)(nil)
