// Package cache puts a per-instance LRU in front of an ArRepository.
package cache

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"

	"arpublish/internal/model"
	"arpublish/internal/repository"
)

// ArCache is a read-through cache for committed records.
// Records are immutable once committed, so a hit never needs invalidation; the TTL only bounds
// how long memory is held. Misses are not cached because the id may be committed later.
type ArCache struct {
	next  repository.ArRepository
	cache *expirable.LRU[string, model.ArRecord]

	hits   prometheus.Counter
	misses prometheus.Counter
}

var _ repository.ArRepository = (*ArCache)(nil)

// NewArCache wraps next with an LRU of at most size records, each kept for ttl.
// Hit and miss counters are registered on reg.
func NewArCache(next repository.ArRepository, size int, ttl time.Duration, reg prometheus.Registerer) (*ArCache, error) {
	c := &ArCache{
		next:  next,
		cache: expirable.NewLRU[string, model.ArRecord](size, nil, ttl),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ar_resolve_cache_hits_total",
			Help: "Record lookups served from the in-process cache.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ar_resolve_cache_misses_total",
			Help: "Record lookups that went to the metadata store.",
		}),
	}
	for _, col := range []prometheus.Collector{c.hits, c.misses} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Create commits through to the store and primes the cache with the stored record.
func (c *ArCache) Create(ctx context.Context, rec *model.ArRecord) (*model.ArRecord, error) {
	out, err := c.next.Create(ctx, rec)
	if err != nil {
		return nil, err
	}
	c.put(out)
	return out, nil
}

func (c *ArCache) FindByID(ctx context.Context, id string) (*model.ArRecord, error) {
	if rec, ok := c.cache.Get(id); ok {
		c.hits.Inc()
		return detach(rec), nil
	}
	c.misses.Inc()

	out, err := c.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.put(out)
	return out, nil
}

// put stores a private copy keyed by the record's own id, never by the caller's lookup string,
// which may alias a buffer the caller reuses.
func (c *ArCache) put(rec *model.ArRecord) {
	stored := detach(*rec)
	c.cache.Add(stored.ArID, *stored)
}

// detach copies rec so neither the cache nor its callers share mutable memory.
func detach(rec model.ArRecord) *model.ArRecord {
	rec.ArID = strings.Clone(rec.ArID)
	rec.QRImage = bytes.Clone(rec.QRImage)
	return &rec
}

// Len reports how many records are currently cached.
func (c *ArCache) Len() int { return c.cache.Len() }
