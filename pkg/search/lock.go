package search

import "sync"

// keyedMutex serializes work per search id. Entries are dropped once no one
// holds or waits for them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uint]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// Lock blocks until id is free and returns the unlock function
func (k *keyedMutex) Lock(id uint) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[uint]*keyLock)
	}
	l, ok := k.locks[id]
	if !ok {
		l = &keyLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
