package tle

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/star/skywatch/internal/metrics"
	"github.com/star/skywatch/internal/orbit"
)

// DefaultTTL is how long a cache entry is trusted before the next access
// triggers a refresh.
const DefaultTTL = time.Hour

// Source retrieves raw TLE text for an exact set of catalog ids.
type Source interface {
	Fetch(ctx context.Context, ids []string) ([]byte, error)
}

// Cache is a time-bounded, key-addressed store of parsed TLE records.
//
// Concurrency contract: one process-wide mutex is held across the whole
// check-fetch-store sequence, so concurrent calls are serialized even for
// unrelated keys and at most one refresh is in flight per process. A refresh
// for one id set therefore blocks lookups for any other set until its
// network round trip completes. Simplicity over throughput; per-key locking
// would be the upgrade path if this ever matters.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry

	source  Source
	builder orbit.Builder
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

type entry struct {
	records   map[string]Record
	fetchedAt time.Time
}

// NewCache creates a Cache over the given source and propagation builder.
// A non-positive ttl selects DefaultTTL.
func NewCache(source Source, builder orbit.Builder, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]*entry),
		source:  source,
		builder: builder,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

// CanonicalKey derives the cache key for a set of ids: deduplicated, sorted
// ascending, comma-joined. Requests for the same id set in any order address
// the same entry.
func CanonicalKey(ids []string) string {
	seen := make(map[string]struct{}, len(ids))
	uniq := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			uniq = append(uniq, id)
		}
	}
	sort.Strings(uniq)
	return strings.Join(uniq, ",")
}

// Get returns TLE records for ids, from cache when fresh, refreshing
// otherwise. The result may cover only a subset of ids when the upstream
// catalog does not know some of them, and is empty when the refresh fails.
// Callers must treat empty as "temporarily unavailable", not "does not
// exist". A failed or empty refresh never overwrites an existing entry.
//
// The returned map is shared and must not be modified.
func (c *Cache) Get(ctx context.Context, ids []string) map[string]Record {
	key := CanonicalKey(ids)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.entries[key]; ok && now.Sub(e.fetchedAt) < c.ttl {
		metrics.RecordTLECacheHit()
		return e.records
	}
	metrics.RecordTLECacheMiss()

	records, err := c.fetchAndParse(ctx, ids)
	if err != nil {
		c.logger.Error("TLE refresh failed", "key", key, "error", err)
		return map[string]Record{}
	}
	if len(records) == 0 {
		c.logger.Warn("TLE catalog had no usable records", "key", key)
		return map[string]Record{}
	}

	c.entries[key] = &entry{records: records, fetchedAt: now}
	metrics.SetTLECacheEntries(len(c.entries))
	return records
}

// Direct fetches and parses without consulting or populating the cache. The
// single-satellite lookup path uses it on a cache miss so a singleton key
// never shadows a future multi-id entry for the same satellite. An empty
// result with a nil error means the upstream answered but knew none of the
// ids.
func (c *Cache) Direct(ctx context.Context, ids []string) (map[string]Record, error) {
	return c.fetchAndParse(ctx, ids)
}

func (c *Cache) fetchAndParse(ctx context.Context, ids []string) (map[string]Record, error) {
	start := time.Now()
	raw, err := c.source.Fetch(ctx, ids)
	metrics.ObserveTLEFetch(time.Since(start))
	if err != nil {
		metrics.RecordTLEFetchError()
		return nil, fmt.Errorf("fetching TLE catalog: %w", err)
	}
	return Parse(string(raw), c.builder, c.logger), nil
}
