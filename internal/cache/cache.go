package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"karolbroda.com/lyrsync/internal/provider"
	"karolbroda.com/lyrsync/internal/timeline"
	"karolbroda.com/lyrsync/internal/track"
)

const (
	// DefaultSize bounds the number of cached timelines
	DefaultSize = 100

	// found results stay fresh for the life of a listening session
	defaultPositiveTTL = 24 * time.Hour
	// not-found results are retried after minutes, not on every poll
	defaultNegativeTTL = 5 * time.Minute
)

// Cache is a bounded, least-recently-used store of parsed timelines keyed
// by normalized track identity. concurrent lookups for the same uncached
// track are coalesced into a single gateway call.
type Cache struct {
	entries     *lru.Cache[string, *timeline.Timeline]
	group       singleflight.Group
	gateway     provider.Gateway
	positiveTTL time.Duration
	negativeTTL time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

func New(gateway provider.Gateway, size int, log zerolog.Logger) (*Cache, error) {
	if gateway == nil {
		return nil, errors.New("nil provider gateway")
	}
	if size < 1 {
		return nil, fmt.Errorf("cache size must be at least 1, got %d", size)
	}

	entries, err := lru.New[string, *timeline.Timeline](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru: %w", err)
	}

	return &Cache{
		entries:     entries,
		gateway:     gateway,
		positiveTTL: defaultPositiveTTL,
		negativeTTL: defaultNegativeTTL,
		now:         time.Now,
		log:         log.With().Str("component", "cache").Logger(),
	}, nil
}

// GetOrFetch returns the timeline for trk, fetching and parsing it when
// not cached. any resolved timeline is cached, including not-found ones;
// transport failures are returned to the caller and cached nowhere, so the
// next access retries.
func (c *Cache) GetOrFetch(ctx context.Context, trk *track.Info) (*timeline.Timeline, error) {
	if !trk.IsValid() {
		return nil, errors.New("invalid track identity")
	}

	key := trk.Key()

	if tl, exists := c.entries.Get(key); exists {
		if c.fresh(tl) {
			return tl, nil
		}
		c.entries.Remove(key)
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		// a concurrent caller may have populated the entry while this
		// call waited its turn
		if tl, exists := c.entries.Get(key); exists && c.fresh(tl) {
			return tl, nil
		}
		return c.fetch(ctx, trk, key)
	})
	if err != nil {
		return nil, err
	}

	return result.(*timeline.Timeline), nil
}

func (c *Cache) fetch(ctx context.Context, trk *track.Info, key string) (*timeline.Timeline, error) {
	raw, err := c.gateway.Lookup(ctx, trk)
	if err != nil {
		if !provider.IsNotFound(err) {
			return nil, fmt.Errorf("failed to fetch lyrics for %s: %w", trk, err)
		}
		raw = ""
	}

	lines, status, warnings := timeline.Parse(raw)
	for _, w := range warnings {
		c.log.Warn().Str("track", trk.String()).Msg(w.String())
	}

	trkCopy := *trk
	tl := &timeline.Timeline{
		Track:     &trkCopy,
		Lines:     lines,
		Status:    status,
		FetchedAt: c.now(),
	}

	c.entries.Add(key, tl)

	c.log.Debug().
		Str("track", trk.String()).
		Str("status", status.String()).
		Int("lines", len(lines)).
		Msg("cached timeline")

	return tl, nil
}

func (c *Cache) fresh(tl *timeline.Timeline) bool {
	if tl == nil {
		return false
	}
	ttl := c.positiveTTL
	if tl.Status == timeline.StatusNotFound {
		ttl = c.negativeTTL
	}
	return c.now().Sub(tl.FetchedAt) < ttl
}

// Invalidate drops the cached timeline for trk, if any.
func (c *Cache) Invalidate(trk *track.Info) {
	if trk == nil {
		return
	}
	c.entries.Remove(trk.Key())
}

func (c *Cache) Len() int {
	return c.entries.Len()
}
