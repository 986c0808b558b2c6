// Package httpcache implements the process-wide HTTP response cache from
// spec.md §4.4: a TTL store, keyed by (method, url) for GET only, whose
// entries expire lazily on read and whose TTL is derived from
// Cache-Control/Expires per RFC 7234.
package httpcache

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Entry is a cached upstream response.
type Entry struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Cache is the process-wide GET cache. It is shared across all concurrent
// requests; patrickmn/go-cache's sharded, RW-locked map satisfies spec.md
// §5's "writers must not block readers on cache hits" requirement.
type Cache struct {
	store  *gocache.Cache
	logger *zap.Logger
	janitor *cron.Cron
}

// New constructs a Cache. sweepEvery schedules a background expired-entry
// sweep via robfig/cron — lazy expiry on read (spec.md §4.4) already
// guarantees correctness, so this is pure memory hygiene, not a
// correctness requirement, and may be the zero value to disable it.
func New(logger *zap.Logger, sweepEvery string) *Cache {
	c := &Cache{
		store:  gocache.New(gocache.NoExpiration, gocache.NoExpiration),
		logger: logger,
	}
	if sweepEvery != "" {
		c.janitor = cron.New()
		_, err := c.janitor.AddFunc(sweepEvery, func() {
			before := c.store.ItemCount()
			c.store.DeleteExpired()
			after := c.store.ItemCount()
			if before != after {
				logger.Debug("httpcache: swept expired entries",
					zap.Int("before", before), zap.Int("after", after))
			}
		})
		if err != nil {
			logger.Warn("httpcache: invalid sweep schedule, janitor disabled", zap.Error(err))
			c.janitor = nil
		} else {
			c.janitor.Start()
		}
	}
	return c
}

// Stop halts the background janitor, if any.
func (c *Cache) Stop() {
	if c.janitor != nil {
		c.janitor.Stop()
	}
}

func key(method, url string) string {
	return strings.ToUpper(method) + " " + url
}

// Get returns the cached entry for (method, url), or (nil, false). Only GET
// is ever stored, so a lookup for any other method always misses.
func (c *Cache) Get(method, url string) (*Entry, bool) {
	if !strings.EqualFold(method, http.MethodGet) {
		return nil, false
	}
	v, ok := c.store.Get(key(method, url))
	if !ok {
		return nil, false
	}
	return v.(*Entry), true
}

// Put stores entry for (method, url) if its headers permit caching (spec.md
// §4.4). A failed upstream call (non-2xx) must never be stored — spec.md
// §7 "The process-wide HTTP cache never stores failures" — so callers are
// expected to only call Put for successful responses; Put itself enforces
// this as a defensive backstop.
func (c *Cache) Put(method, url string, entry *Entry) {
	if !strings.EqualFold(method, http.MethodGet) {
		return
	}
	if entry.StatusCode < 200 || entry.StatusCode >= 300 {
		return
	}
	ttl, ok := TTL(entry.Headers, time.Now())
	if !ok || ttl <= 0 {
		return
	}
	c.store.Set(key(method, url), entry, ttl)
}

// TTL derives a cache lifetime from response headers per RFC 7234, applying
// the literal rule table from spec.md §4.4.
func TTL(h http.Header, now time.Time) (time.Duration, bool) {
	cc := parseCacheControl(h.Get("Cache-Control"))
	if cc.noStore || cc.private {
		return 0, false
	}
	if cc.maxAge != nil {
		if *cc.maxAge <= 0 {
			return 0, false
		}
		return time.Duration(*cc.maxAge) * time.Second, true
	}

	if exp := h.Get("Expires"); exp != "" {
		if exp == "-1" {
			return 0, false
		}
		t, err := http.ParseTime(exp)
		if err != nil {
			return 0, false
		}
		d := t.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}

	return 0, false
}

type cacheControl struct {
	maxAge  *int
	private bool
	noStore bool
}

func parseCacheControl(raw string) cacheControl {
	var cc cacheControl
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		directive := strings.ToLower(strings.TrimSpace(kv[0]))
		switch directive {
		case "private":
			cc.private = true
		case "no-store":
			cc.noStore = true
		case "max-age":
			if len(kv) == 2 {
				if n, err := strconv.Atoi(strings.TrimSpace(kv[1])); err == nil {
					cc.maxAge = &n
				}
			}
		}
	}
	return cc
}
