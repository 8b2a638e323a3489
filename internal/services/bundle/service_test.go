package bundle_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	assembly "keyrelay/internal/bundle"
	"keyrelay/internal/crypto"
	"keyrelay/internal/device"
	"keyrelay/internal/domain"
	"keyrelay/internal/services/bundle"
	"keyrelay/internal/store"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.PoolEvent
}

func (n *recordingNotifier) Notify(_ context.Context, ev domain.PoolEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) kinds() []domain.PoolEventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.PoolEventKind, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Kind)
	}
	return out
}

var alice = domain.Address{User: "alice", Device: 1}

func seed(t *testing.T, keys domain.KeyStore, addr domain.Address, ids ...domain.PreKeyID) {
	t.Helper()
	idPriv, idPub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	_, spk, err := crypto.GenerateX25519()
	require.NoError(t, err)
	enc := crypto.EncodeX25519(spk)

	reg := domain.DeviceRegistration{
		Address:        addr,
		RegistrationID: 42,
		IdentityKey:    domain.PublicKey(idPub[:]),
		SignedPreKey:   domain.SignedPreKeyRecord{ID: 3, PublicKey: enc, Signature: crypto.SignEd25519(idPriv, enc)},
	}
	for _, id := range ids {
		reg.PreKeys = append(reg.PreKeys, domain.OneTimePreKeyRecord{ID: id, PublicKey: domain.PublicKey{byte(id)}})
	}
	rec, err := device.NewRecord(reg, time.Now())
	require.NoError(t, err)
	require.NoError(t, keys.Save(context.Background(), rec))
}

func newService(keys domain.KeyStore, opts ...bundle.Option) *bundle.Service {
	return bundle.New(keys, assembly.NewAssembler(crypto.Ed25519Verifier{}), opts...)
}

func TestFetchConsumesThenServesWithoutPreKey(t *testing.T) {
	keys := store.NewMemoryKeyStore()
	seed(t, keys, alice, 7, 8)
	n := &recordingNotifier{}
	svc := newService(keys, bundle.WithNotifier(n), bundle.WithLowWatermark(0))
	ctx := context.Background()

	var ids []domain.PreKeyID
	for range 2 {
		b, err := svc.Fetch(ctx, alice)
		require.NoError(t, err)
		require.True(t, b.HasPreKey())
		assert.Equal(t, domain.RegistrationID(42), b.RegistrationID)
		assert.Equal(t, domain.DeviceID(1), b.DeviceID)
		assert.Equal(t, domain.SignedPreKeyID(3), b.SignedPreKey.ID)
		ids = append(ids, b.PreKey.ID)
	}
	assert.ElementsMatch(t, []domain.PreKeyID{7, 8}, ids)

	b, err := svc.Fetch(ctx, alice)
	require.NoError(t, err)
	assert.False(t, b.HasPreKey())

	// second fetch drained the pool, third found it empty
	assert.Equal(t, []domain.PoolEventKind{domain.PoolLow, domain.PoolExhausted}, n.kinds())
}

func TestFetchUnknownDevice(t *testing.T) {
	svc := newService(store.NewMemoryKeyStore())
	_, err := svc.Fetch(context.Background(), domain.Address{User: "nobody", Device: 1})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFetchRefusesCancelledContext(t *testing.T) {
	keys := store.NewMemoryKeyStore()
	seed(t, keys, alice, 7)
	svc := newService(keys)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Fetch(ctx, alice)
	require.ErrorIs(t, err, context.Canceled)

	rec, err := keys.Load(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.OneTimePreKeys.Count())
}

func TestFetchInvalidSignatureConsumesNothing(t *testing.T) {
	keys := store.NewMemoryKeyStore()
	seed(t, keys, alice, 7, 8)
	require.NoError(t, keys.Update(context.Background(), alice, func(r *device.Record) error {
		r.SignedPreKey.Signature[0] ^= 0xFF
		return nil
	}))
	svc := newService(keys)

	_, err := svc.Fetch(context.Background(), alice)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)

	rec, err := keys.Load(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.OneTimePreKeys.Count())
}

func TestFetchMissingSignedPreKey(t *testing.T) {
	keys := store.NewMemoryKeyStore()
	seed(t, keys, alice, 7)
	require.NoError(t, keys.Update(context.Background(), alice, func(r *device.Record) error {
		r.SignedPreKey = nil
		return nil
	}))

	_, err := newService(keys).Fetch(context.Background(), alice)
	require.ErrorIs(t, err, domain.ErrMissingSignedPreKey)
}

func TestConcurrentFetchesNeverShareAPreKey(t *testing.T) {
	const pool, callers = 100, 150
	keys := store.NewMemoryKeyStore()
	ids := make([]domain.PreKeyID, pool)
	for i := range ids {
		ids[i] = domain.PreKeyID(i + 1)
	}
	seed(t, keys, alice, ids...)
	svc := newService(keys)

	var (
		mu      sync.Mutex
		seen    = map[domain.PreKeyID]int{}
		without int
		wg      sync.WaitGroup
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := svc.Fetch(context.Background(), alice)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if b.PreKey == nil {
				without++
				return
			}
			seen[b.PreKey.ID]++
		}()
	}
	wg.Wait()

	assert.Len(t, seen, pool)
	for id, c := range seen {
		assert.Equalf(t, 1, c, "pre-key %d served %d times", id, c)
	}
	assert.Equal(t, callers-pool, without)
}

func TestDevices(t *testing.T) {
	keys := store.NewMemoryKeyStore()
	seed(t, keys, domain.Address{User: "alice", Device: 2})
	seed(t, keys, alice)
	svc := newService(keys)

	ids, err := svc.Devices(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []domain.DeviceID{1, 2}, ids)

	_, err = svc.Devices(context.Background(), "nobody")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
