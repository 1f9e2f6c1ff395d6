package utils

import "sync"

// KeyedMutex serializes work per string key without holding a global lock
// for the duration of the work.
//
// Intended use: per-(lead, channel) serialization of conversation operations
// in a single-node deployment. Multi-node deployments should pair this with
// the Redis keyed lock (AcquireKeyedLock) for cross-process exclusion.
//
// Entries are reference-counted and removed when the last holder unlocks,
// so the map does not grow with the number of keys ever seen.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLockEntry
}

type keyedLockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLockEntry)}
}

// Lock blocks until the lock for key is held by the caller.
func (k *KeyedMutex) Lock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedLockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the lock for key. Must pair with a prior Lock(key).
func (k *KeyedMutex) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if ok {
		e.refs--
		if e.refs <= 0 {
			delete(k.locks, key)
		}
	}
	k.mu.Unlock()

	if ok {
		e.mu.Unlock()
	}
}
