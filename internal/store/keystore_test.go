package store_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyrelay/internal/device"
	"keyrelay/internal/domain"
	"keyrelay/internal/store"
)

func newRecord(t *testing.T, addr domain.Address, ids ...domain.PreKeyID) *device.Record {
	t.Helper()
	reg := domain.DeviceRegistration{
		Address:        addr,
		RegistrationID: 42,
		IdentityKey:    domain.PublicKey{0x01, 0x02},
		SignedPreKey:   domain.SignedPreKeyRecord{ID: 3, PublicKey: domain.PublicKey{0x05, 0x03}, Signature: domain.Signature{0x99}},
	}
	for _, id := range ids {
		reg.PreKeys = append(reg.PreKeys, domain.OneTimePreKeyRecord{ID: id, PublicKey: domain.PublicKey{byte(id)}})
	}
	rec, err := device.NewRecord(reg, time.Now().UTC().Truncate(time.Millisecond))
	require.NoError(t, err)
	return rec
}

type storeFactory func(t *testing.T) domain.KeyStore

func keyStores(t *testing.T) map[string]storeFactory {
	stores := map[string]storeFactory{
		"memory": func(t *testing.T) domain.KeyStore { return store.NewMemoryKeyStore() },
		"file": func(t *testing.T) domain.KeyStore {
			s, err := store.NewFileKeyStore(t.TempDir())
			require.NoError(t, err)
			return s
		},
	}
	if addr := os.Getenv("KEYRELAY_TEST_REDIS_ADDR"); addr != "" {
		stores["redis"] = func(t *testing.T) domain.KeyStore {
			rdb := redis.NewClient(&redis.Options{Addr: addr})
			t.Cleanup(func() { _ = rdb.Close() })
			require.NoError(t, rdb.Ping(context.Background()).Err())
			return store.NewRedisKeyStore(rdb, store.WithRedisPrefix("keyrelay-test:"+uuid.NewString()+":"), store.WithMaxRetries(100))
		}
	}
	return stores
}

func TestKeyStoreContract(t *testing.T) {
	for name, factory := range keyStores(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("load missing", func(t *testing.T) {
				s := factory(t)
				_, err := s.Load(context.Background(), domain.Address{User: "nobody", Device: 1})
				require.ErrorIs(t, err, domain.ErrNotFound)
			})

			t.Run("save load round trip", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				rec := newRecord(t, domain.Address{User: "alice", Device: 1}, 7, 8)
				require.NoError(t, s.Save(ctx, rec))

				got, err := s.Load(ctx, rec.Address)
				require.NoError(t, err)
				assert.Equal(t, rec.Address, got.Address)
				assert.Equal(t, rec.RegistrationID, got.RegistrationID)
				assert.Equal(t, rec.IdentityKey, got.IdentityKey)
				assert.Equal(t, *rec.SignedPreKey, *got.SignedPreKey)
				assert.Equal(t, rec.OneTimePreKeys.Records(), got.OneTimePreKeys.Records())
				assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))

				// Load hands out a copy
				_, ok := got.OneTimePreKeys.SelectAndConsume()
				require.True(t, ok)
				again, err := s.Load(ctx, rec.Address)
				require.NoError(t, err)
				assert.Equal(t, 2, again.OneTimePreKeys.Count())
			})

			t.Run("update persists", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				rec := newRecord(t, domain.Address{User: "alice", Device: 1}, 7, 8)
				require.NoError(t, s.Save(ctx, rec))

				require.NoError(t, s.Update(ctx, rec.Address, func(r *device.Record) error {
					r.OneTimePreKeys.Remove(7)
					return nil
				}))
				got, err := s.Load(ctx, rec.Address)
				require.NoError(t, err)
				assert.False(t, got.OneTimePreKeys.Contains(7))
				assert.True(t, got.OneTimePreKeys.Contains(8))
			})

			t.Run("update error is returned", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				rec := newRecord(t, domain.Address{User: "alice", Device: 1}, 7)
				require.NoError(t, s.Save(ctx, rec))

				boom := errors.New("boom")
				err := s.Update(ctx, rec.Address, func(*device.Record) error { return boom })
				require.ErrorIs(t, err, boom)

				err = s.Update(ctx, domain.Address{User: "alice", Device: 9}, func(*device.Record) error { return nil })
				require.ErrorIs(t, err, domain.ErrNotFound)
			})

			t.Run("devices and delete", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				for _, d := range []domain.DeviceID{3, 1, 2} {
					require.NoError(t, s.Save(ctx, newRecord(t, domain.Address{User: "bob", Device: d})))
				}
				require.NoError(t, s.Save(ctx, newRecord(t, domain.Address{User: "carol", Device: 5})))

				ids, err := s.Devices(ctx, "bob")
				require.NoError(t, err)
				assert.Equal(t, []domain.DeviceID{1, 2, 3}, ids)

				require.NoError(t, s.Delete(ctx, domain.Address{User: "bob", Device: 2}))
				require.ErrorIs(t, s.Delete(ctx, domain.Address{User: "bob", Device: 2}), domain.ErrNotFound)

				ids, err = s.Devices(ctx, "bob")
				require.NoError(t, err)
				assert.Equal(t, []domain.DeviceID{1, 3}, ids)

				ids, err = s.Devices(ctx, "nobody")
				require.NoError(t, err)
				assert.Empty(t, ids)
			})

			t.Run("concurrent updates consume each key once", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				const n = 20
				ids := make([]domain.PreKeyID, n)
				for i := range ids {
					ids[i] = domain.PreKeyID(i + 1)
				}
				rec := newRecord(t, domain.Address{User: "dave", Device: 1}, ids...)
				require.NoError(t, s.Save(ctx, rec))

				var (
					mu   sync.Mutex
					seen = map[domain.PreKeyID]int{}
					wg   sync.WaitGroup
				)
				for range n {
					wg.Add(1)
					go func() {
						defer wg.Done()
						var got domain.OneTimePreKeyRecord
						err := s.Update(ctx, rec.Address, func(r *device.Record) error {
							k, ok := r.OneTimePreKeys.SelectAndConsume()
							if !ok {
								return errors.New("pool empty")
							}
							got = k
							return nil
						})
						if !assert.NoError(t, err) {
							return
						}
						mu.Lock()
						seen[got.ID]++
						mu.Unlock()
					}()
				}
				wg.Wait()

				assert.Len(t, seen, n)
				for id, c := range seen {
					assert.Equalf(t, 1, c, "pre-key %d consumed %d times", id, c)
				}
				got, err := s.Load(ctx, rec.Address)
				require.NoError(t, err)
				assert.Equal(t, 0, got.OneTimePreKeys.Count())
			})

			t.Run("cancelled context", func(t *testing.T) {
				s := factory(t)
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				err := s.Update(ctx, domain.Address{User: "x", Device: 1}, func(*device.Record) error { return nil })
				require.ErrorIs(t, err, context.Canceled)
			})
		})
	}
}

func TestFileKeyStoreRejectsDotUser(t *testing.T) {
	s, err := store.NewFileKeyStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Load(context.Background(), domain.Address{User: "..", Device: 1})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestFileKeyStoreEscapesUserNames(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewFileKeyStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	rec := newRecord(t, domain.Address{User: "a/b", Device: 4}, 1)
	require.NoError(t, s.Save(ctx, rec))

	ids, err := s.Devices(ctx, "a/b")
	require.NoError(t, err)
	assert.Equal(t, []domain.DeviceID{4}, ids)
	assert.FileExists(t, dir+"/a%2Fb/4.json")
}
