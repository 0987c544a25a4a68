package submission

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/joelkehle/venturefit/internal/assessment"
)

const (
	activeVenturesKey = "active"
	defaultCacheSize  = 8
)

type ventureEntry struct {
	profiles []assessment.VentureProfile
	storedAt time.Time
}

// CachedVentureProfiles memoizes the active venture list for ttl. A ttl of
// zero disables caching.
type CachedVentureProfiles struct {
	delegate VentureProfileStore
	cache    *lru.Cache[string, ventureEntry]
	ttl      time.Duration
	now      func() time.Time

	mu sync.Mutex
}

func NewCachedVentureProfiles(delegate VentureProfileStore, size int, ttl time.Duration, now func() time.Time) *CachedVentureProfiles {
	if size <= 0 {
		size = defaultCacheSize
	}
	if now == nil {
		now = time.Now
	}
	// lru.New only fails on a non-positive size.
	cache, _ := lru.New[string, ventureEntry](size)
	return &CachedVentureProfiles{delegate: delegate, cache: cache, ttl: ttl, now: now}
}

func (c *CachedVentureProfiles) ListActiveVentures(ctx context.Context) ([]assessment.VentureProfile, error) {
	if c.ttl <= 0 {
		return c.delegate.ListActiveVentures(ctx)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.cache.Get(activeVenturesKey); ok && c.now().Sub(entry.storedAt) < c.ttl {
		return cloneProfiles(entry.profiles), nil
	}
	profiles, err := c.delegate.ListActiveVentures(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Add(activeVenturesKey, ventureEntry{profiles: cloneProfiles(profiles), storedAt: c.now()})
	return profiles, nil
}

// Invalidate drops the cached list; call it after profiles change.
func (c *CachedVentureProfiles) Invalidate() {
	c.cache.Purge()
}

func cloneProfiles(in []assessment.VentureProfile) []assessment.VentureProfile {
	out := make([]assessment.VentureProfile, len(in))
	for i, v := range in {
		out[i] = v.Clone()
	}
	return out
}
