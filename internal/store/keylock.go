package store

import (
	"sync"

	"keyrelay/internal/domain"
)

// addrLocks hands out one mutex per device address. Entries are dropped once
// nobody holds or waits on them.
type addrLocks struct {
	mu    sync.Mutex
	locks map[domain.Address]*addrLock
}

type addrLock struct {
	sync.Mutex
	refs int
}

func newAddrLocks() *addrLocks {
	return &addrLocks{locks: make(map[domain.Address]*addrLock)}
}

// lock blocks until addr is held and returns its release func.
func (l *addrLocks) lock(addr domain.Address) (unlock func()) {
	l.mu.Lock()
	al, ok := l.locks[addr]
	if !ok {
		al = &addrLock{}
		l.locks[addr] = al
	}
	al.refs++
	l.mu.Unlock()

	al.Lock()
	return func() {
		al.Unlock()
		l.mu.Lock()
		al.refs--
		if al.refs == 0 {
			delete(l.locks, addr)
		}
		l.mu.Unlock()
	}
}
