package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"keyrelay/internal/device"
	"keyrelay/internal/domain"
)

const (
	// DefaultRedisPrefix namespaces every key the store writes.
	DefaultRedisPrefix = "keyrelay:"
	// DefaultMaxRetries bounds the optimistic update loop.
	DefaultMaxRetries = 16
)

// RedisKeyStore keeps CBOR-encoded device records in redis. Every user also
// has a set of its device ids. Update is an optimistic WATCH/MULTI
// compare-and-swap on the single device key.
type RedisKeyStore struct {
	rdb        redis.UniversalClient
	prefix     string
	maxRetries int
	now        func() time.Time
}

// RedisOption configures a RedisKeyStore.
type RedisOption func(*RedisKeyStore)

// WithRedisPrefix overrides DefaultRedisPrefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisKeyStore) { s.prefix = prefix }
}

// WithMaxRetries overrides DefaultMaxRetries.
func WithMaxRetries(n int) RedisOption {
	return func(s *RedisKeyStore) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// NewRedisKeyStore returns a RedisKeyStore using rdb.
func NewRedisKeyStore(rdb redis.UniversalClient, opts ...RedisOption) *RedisKeyStore {
	s := &RedisKeyStore{
		rdb:        rdb,
		prefix:     DefaultRedisPrefix,
		maxRetries: DefaultMaxRetries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisKeyStore) deviceKey(addr domain.Address) string {
	return s.prefix + "device:" + addr.User.String() + ":" + addr.Device.String()
}

func (s *RedisKeyStore) userKey(user domain.UserID) string {
	return s.prefix + "user:" + user.String() + ":devices"
}

func (s *RedisKeyStore) decode(b []byte) (*device.Record, error) {
	snap, err := decodeSnapshot(b)
	if err != nil {
		return nil, err
	}
	return snap.Restore()
}

// Load fetches and decodes the record at addr.
func (s *RedisKeyStore) Load(ctx context.Context, addr domain.Address) (*device.Record, error) {
	b, err := s.rdb.Get(ctx, s.deviceKey(addr)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("load %s: %w", addr, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", addr, err)
	}
	rec, err := s.decode(b)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", addr, err)
	}
	return rec, nil
}

// Save writes rec and adds its device id to the user's set in one transaction.
func (s *RedisKeyStore) Save(ctx context.Context, rec *device.Record) error {
	b, err := encodeSnapshot(rec.Snapshot())
	if err != nil {
		return fmt.Errorf("save %s: %w", rec.Address, err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.deviceKey(rec.Address), b, 0)
		p.SAdd(ctx, s.userKey(rec.Address.User), rec.Address.Device.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", rec.Address, err)
	}
	return nil
}

// Delete removes the record and its entry in the user's device set.
func (s *RedisKeyStore) Delete(ctx context.Context, addr domain.Address) error {
	var del *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		del = p.Del(ctx, s.deviceKey(addr))
		p.SRem(ctx, s.userKey(addr.User), addr.Device.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", addr, err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("delete %s: %w", addr, domain.ErrNotFound)
	}
	return nil
}

// Update runs fn inside a WATCH on the device key and commits with MULTI/EXEC.
// A concurrent writer aborts the EXEC and the whole read-modify-write is
// retried from a fresh read, up to the configured bound.
func (s *RedisKeyStore) Update(ctx context.Context, addr domain.Address, fn func(*device.Record) error) error {
	key := s.deviceKey(addr)
	txf := func(tx *redis.Tx) error {
		b, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		rec, err := s.decode(b)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
		rec.UpdatedAt = s.now()
		out, err := encodeSnapshot(rec.Snapshot())
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}

	for range s.maxRetries {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return fmt.Errorf("update %s: %w", addr, err)
	}
	return fmt.Errorf("update %s after %d attempts: %w", addr, s.maxRetries, domain.ErrConcurrentUpdate)
}

// Devices reads the user's device set.
func (s *RedisKeyStore) Devices(ctx context.Context, user domain.UserID) ([]domain.DeviceID, error) {
	members, err := s.rdb.SMembers(ctx, s.userKey(user)).Result()
	if err != nil {
		return nil, fmt.Errorf("list devices of %s: %w", user, err)
	}
	out := make([]domain.DeviceID, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 32)
		if err != nil {
			continue
		}
		out = append(out, domain.DeviceID(id))
	}
	slices.Sort(out)
	return out, nil
}

// Compile-time assertion that RedisKeyStore implements domain.KeyStore.
var _ domain.KeyStore = (*RedisKeyStore)(nil)
