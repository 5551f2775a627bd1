package services

import (
	"container/list"
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"nlu-service/internal/core/domain"
	"nlu-service/internal/metrics"
)

// Loader produces a model pair for a tenant whose pair is not resident.
type Loader func(ctx context.Context) (*domain.ModelPair, error)

// ModelCache maps tenant id to the live model pair. Entries are replaced by
// swapping the stored pointer, so a reader sees either the old pair or the
// new one. With maxEntries == 0 the cache never evicts and grows with the
// number of tenants served by this process.
type ModelCache struct {
	mu         sync.RWMutex
	entries    map[string]*list.Element
	order      *list.List // front = most recently used; reads refresh it only when bounded
	maxEntries int
	group      singleflight.Group
}

type cacheEntry struct {
	tenantID string
	pair     *domain.ModelPair
}

func NewModelCache(maxEntries int) *ModelCache {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &ModelCache{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
	}
}

func (c *ModelCache) Get(tenantID string) (*domain.ModelPair, bool) {
	pair, ok := c.lookup(tenantID)
	if ok {
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	} else {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
	}
	return pair, ok
}

// Put installs pair for tenantID, replacing any previous entry.
func (c *ModelCache) Put(tenantID string, pair *domain.ModelPair) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(tenantID, pair, true)
}

// GetOrLoad returns the resident pair or runs loader once for all concurrent
// callers missing on the same tenant. A loaded pair is only installed if no
// pair was put in the meantime; in that case the resident one wins. Loader
// errors are returned unchanged and nothing is cached.
func (c *ModelCache) GetOrLoad(ctx context.Context, tenantID string, loader Loader) (*domain.ModelPair, error) {
	if pair, ok := c.Get(tenantID); ok {
		return pair, nil
	}

	ch := c.group.DoChan(tenantID, func() (any, error) {
		if pair, ok := c.lookup(tenantID); ok {
			return pair, nil
		}
		// Detached so one caller giving up does not fail the others.
		pair, err := loader(context.WithoutCancel(ctx))
		switch {
		case err == nil:
			metrics.CacheLoadsTotal.WithLabelValues("ok").Inc()
		case errors.Is(err, domain.ErrModelNotTrained):
			metrics.CacheLoadsTotal.WithLabelValues("not_found").Inc()
			return nil, err
		default:
			metrics.CacheLoadsTotal.WithLabelValues("failed").Inc()
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		return c.store(tenantID, pair, false), nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.ModelPair), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *ModelCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *ModelCache) lookup(tenantID string) (*domain.ModelPair, bool) {
	if c.maxEntries == 0 {
		c.mu.RLock()
		defer c.mu.RUnlock()
		el, ok := c.entries[tenantID]
		if !ok {
			return nil, false
		}
		return el.Value.(*cacheEntry).pair, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[tenantID]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).pair, true
}

// store must be called with c.mu held. It returns the pair that is resident
// afterwards.
func (c *ModelCache) store(tenantID string, pair *domain.ModelPair, overwrite bool) *domain.ModelPair {
	if el, ok := c.entries[tenantID]; ok {
		entry := el.Value.(*cacheEntry)
		if overwrite {
			entry.pair = pair
		}
		c.order.MoveToFront(el)
		return entry.pair
	}

	c.entries[tenantID] = c.order.PushFront(&cacheEntry{tenantID: tenantID, pair: pair})
	metrics.CacheEntries.Inc()

	if c.maxEntries > 0 {
		for len(c.entries) > c.maxEntries {
			oldest := c.order.Back()
			entry := oldest.Value.(*cacheEntry)
			c.order.Remove(oldest)
			delete(c.entries, entry.tenantID)
			metrics.CacheEntries.Dec()
			metrics.CacheEvictionsTotal.Inc()
			log.WithField("tenant_id", entry.tenantID).Debug("evicted model pair from cache")
		}
	}
	return pair
}
