package engine

import "sync"

// identityLocks serializes reconciliations of the same identity within this
// process.  Two concurrent reconciliations of one identity would otherwise
// race on media registry construction; different identities proceed fully in
// parallel.
type identityLocks struct {
	mu    sync.Mutex
	locks map[int64]*identityLock
}

type identityLock struct {
	mu   sync.Mutex
	refs int
}

func newIdentityLocks() *identityLocks {
	return &identityLocks{locks: make(map[int64]*identityLock)}
}

// acquire blocks until the identity's lock is held and returns the release
// function.  Lock entries are reference counted so the map does not grow
// unboundedly with every identity ever seen.
func (l *identityLocks) acquire(id int64) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &identityLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
