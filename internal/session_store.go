package internal

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

// Slot names one of the two credential entries of the single live session.
type Slot string

const (
	AccessSlot  Slot = "access_token"
	RefreshSlot Slot = "refresh_token"
)

// SessionStore persists the access/refresh credential pair. Get returns "" for
// an absent slot. Clear removes both slots.
type SessionStore interface {
	Get(ctx context.Context, slot Slot) (string, error)
	Set(ctx context.Context, slot Slot, value string) error
	Clear(ctx context.Context) error
}

func IsAuthenticated(ctx context.Context, store SessionStore) (bool, error) {
	access, err := store.Get(ctx, AccessSlot)
	if err != nil {
		return false, err
	}
	return access != "", nil
}

// SaveSession writes a new credential pair. An empty refresh leaves the
// currently stored refresh credential in place.
func SaveSession(ctx context.Context, store SessionStore, access, refresh string) error {
	if access == "" {
		return errors.New("access credential must not be empty")
	}
	if err := store.Set(ctx, AccessSlot, access); err != nil {
		return errors.Wrap(err, "failed to store access credential")
	}
	if refresh == "" {
		return nil
	}
	if err := store.Set(ctx, RefreshSlot, refresh); err != nil {
		return errors.Wrap(err, "failed to store refresh credential")
	}
	return nil
}

func ClearSession(ctx context.Context, store SessionStore) error {
	if err := store.Clear(ctx); err != nil {
		return errors.Wrap(err, "failed to clear session")
	}
	return nil
}

type MemoryStore struct {
	slots map[Slot]string
	lock  sync.RWMutex
}

var _ SessionStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[Slot]string, 2)}
}

func (ms *MemoryStore) Get(_ context.Context, slot Slot) (string, error) {
	ms.lock.RLock()
	defer ms.lock.RUnlock()
	return ms.slots[slot], nil
}

func (ms *MemoryStore) Set(_ context.Context, slot Slot, value string) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	if value == "" {
		delete(ms.slots, slot)
		return nil
	}
	ms.slots[slot] = value
	return nil
}

func (ms *MemoryStore) Clear(_ context.Context) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	clear(ms.slots)
	return nil
}
