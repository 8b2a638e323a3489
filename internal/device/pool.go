package device

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"

	"keyrelay/internal/domain/types"
)

// Picker returns an index in [0, n). n is always positive.
type Picker func(n int) int

// UniformPicker picks uniformly using the runtime's ChaCha8 source.
func UniformPicker(n int) int { return rand.IntN(n) }

// Pool is the one-time pre-key pool of a single device.
//
// Available ids live in a dense slice so a uniform pick and its removal are
// both O(1): the chosen slot is overwritten by the last element. slot maps
// each id to its position in ids. All methods are safe for concurrent use and
// consumption is exactly-once.
type Pool struct {
	mu   sync.Mutex
	ids  []types.PreKeyID
	slot map[types.PreKeyID]int
	keys map[types.PreKeyID]types.PublicKey
	pick Picker
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPicker overrides the selection policy.
func WithPicker(p Picker) PoolOption {
	return func(pool *Pool) { pool.pick = p }
}

// NewPool returns an empty pool.
func NewPool(opts ...PoolOption) *Pool {
	p := &Pool{
		slot: make(map[types.PreKeyID]int),
		keys: make(map[types.PreKeyID]types.PublicKey),
		pick: UniformPicker,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Insert adds rec to the pool. It fails with types.ErrDuplicateID, leaving the
// pool unchanged, if the id is already present.
func (p *Pool) Insert(rec types.OneTimePreKeyRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.slot[rec.ID]; ok {
		return fmt.Errorf("pre-key %d: %w", rec.ID, types.ErrDuplicateID)
	}
	p.add(rec)
	return nil
}

// InsertAll adds every record or none of them. Ids must be unique both within
// recs and against the current pool.
func (p *Pool) InsertAll(recs []types.OneTimePreKeyRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	seen := make(map[types.PreKeyID]struct{}, len(recs))
	for _, rec := range recs {
		if _, ok := p.slot[rec.ID]; ok {
			return fmt.Errorf("pre-key %d: %w", rec.ID, types.ErrDuplicateID)
		}
		if _, ok := seen[rec.ID]; ok {
			return fmt.Errorf("pre-key %d repeated in batch: %w", rec.ID, types.ErrDuplicateID)
		}
		seen[rec.ID] = struct{}{}
	}
	for _, rec := range recs {
		p.add(rec)
	}
	return nil
}

// SelectAndConsume removes one pre-key chosen by the pool's picker and returns
// it. ok is false when the pool is empty.
func (p *Pool) SelectAndConsume() (rec types.OneTimePreKeyRecord, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.ids) == 0 {
		return types.OneTimePreKeyRecord{}, false
	}
	id := p.ids[p.pick(len(p.ids))]
	rec = types.OneTimePreKeyRecord{ID: id, PublicKey: p.keys[id]}
	p.remove(id)
	return rec, true
}

// Remove drops id from the pool. Removing an absent id is a no-op.
func (p *Pool) Remove(id types.PreKeyID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.slot[id]; ok {
		p.remove(id)
	}
}

// Contains reports whether id is currently available.
func (p *Pool) Contains(id types.PreKeyID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.slot[id]
	return ok
}

// Count returns the number of available pre-keys.
func (p *Pool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.ids)
}

// Records returns a copy of the pool ordered by id.
func (p *Pool) Records() []types.OneTimePreKeyRecord {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]types.OneTimePreKeyRecord, 0, len(p.ids))
	for _, id := range p.ids {
		out = append(out, types.OneTimePreKeyRecord{ID: id, PublicKey: p.keys[id].Clone()})
	}
	slices.SortFunc(out, func(a, b types.OneTimePreKeyRecord) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Clone returns an independent pool with the same contents and picker.
func (p *Pool) Clone() *Pool {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := &Pool{
		ids:  slices.Clone(p.ids),
		slot: make(map[types.PreKeyID]int, len(p.slot)),
		keys: make(map[types.PreKeyID]types.PublicKey, len(p.keys)),
		pick: p.pick,
	}
	for id, i := range p.slot {
		c.slot[id] = i
	}
	for id, k := range p.keys {
		c.keys[id] = k.Clone()
	}
	return c
}

// add and remove expect p.mu to be held.
func (p *Pool) add(rec types.OneTimePreKeyRecord) {
	p.slot[rec.ID] = len(p.ids)
	p.ids = append(p.ids, rec.ID)
	p.keys[rec.ID] = rec.PublicKey.Clone()
}

func (p *Pool) remove(id types.PreKeyID) {
	i := p.slot[id]
	last := len(p.ids) - 1
	if i != last {
		moved := p.ids[last]
		p.ids[i] = moved
		p.slot[moved] = i
	}
	p.ids = p.ids[:last]
	delete(p.slot, id)
	delete(p.keys, id)
}
