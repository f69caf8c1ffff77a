package repository

import "sync"

// KeyedMutex serializes critical sections per string key. The lifecycle
// engine keys it by (guild,user) around create's duplicate check and by
// (guild,channel) around close/reopen/delete's check-then-mutate.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

type keyedEntry struct {
	refs int
	mu   sync.Mutex
}

// NewKeyedMutex constructs an empty lock table.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*keyedEntry)}
}

// Lock acquires the key's mutex and returns its unlock function. Entries
// are dropped once the last holder releases, so the table never grows
// beyond the set of keys currently contended.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &keyedEntry{}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
