package vault

import "sync"

// State persists everything owned by one vault instance. Implementations
// must scope keys to a single vault so instances never share records.
type State interface {
	VaultMetaPut(meta *Meta) error
	VaultMetaGet() (*Meta, bool, error)
	EventPut(evt *DistributionEvent) error
	EventGet(id uint64) (*DistributionEvent, bool, error)
	EventIDs() ([]uint64, error)
	ClaimGet(eventID, index uint64) (bool, error)
	ClaimPut(eventID, index uint64) error
	ClaimDelete(eventID, index uint64) error
	AdminPut(addr [20]byte, enabled bool) error
	AdminGet(addr [20]byte) (bool, error)
}

type claimKey struct {
	event uint64
	index uint64
}

// keyedMutex serialises work per claim key without a vault-wide lock.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[claimKey]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key claimKey) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[claimKey]*refLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// held reports the number of keys currently locked or awaited.
func (k *keyedMutex) held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
