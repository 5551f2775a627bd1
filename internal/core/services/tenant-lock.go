package services

import (
	"context"
	"sync"
)

// TenantLocks hands out one mutual-exclusion slot per tenant id. The map lock
// only guards slot bookkeeping and is never held while a slot is owned, so
// tenants never wait on each other.
type TenantLocks struct {
	mu    sync.Mutex
	slots map[string]*tenantSlot
}

type tenantSlot struct {
	ch   chan struct{}
	refs int
}

func NewTenantLocks() *TenantLocks {
	return &TenantLocks{slots: make(map[string]*tenantSlot)}
}

// Lock blocks until the tenant's slot is free or ctx is done. The returned
// func releases the slot and must be called exactly once.
func (l *TenantLocks) Lock(ctx context.Context, tenantID string) (func(), error) {
	slot := l.acquireRef(tenantID)
	select {
	case slot.ch <- struct{}{}:
		return l.unlocker(tenantID, slot), nil
	case <-ctx.Done():
		l.releaseRef(tenantID, slot)
		return nil, ctx.Err()
	}
}

// TryLock takes the slot only if it is free right now.
func (l *TenantLocks) TryLock(tenantID string) (func(), bool) {
	slot := l.acquireRef(tenantID)
	select {
	case slot.ch <- struct{}{}:
		return l.unlocker(tenantID, slot), true
	default:
		l.releaseRef(tenantID, slot)
		return nil, false
	}
}

func (l *TenantLocks) unlocker(tenantID string, slot *tenantSlot) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.releaseRef(tenantID, slot)
		})
	}
}

func (l *TenantLocks) acquireRef(tenantID string) *tenantSlot {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.slots[tenantID]
	if !ok {
		slot = &tenantSlot{ch: make(chan struct{}, 1)}
		l.slots[tenantID] = slot
	}
	slot.refs++
	return slot
}

func (l *TenantLocks) releaseRef(tenantID string, slot *tenantSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, tenantID)
	}
}

// size is the number of tenants with a holder or waiter.
func (l *TenantLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
