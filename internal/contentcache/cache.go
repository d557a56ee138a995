// Package contentcache manages provider-side document caches so large
// source documents are uploaded to the generation provider once and then
// referenced by handle on every subsequent call.
//
// The cache keeps its own bookkeeping rows (domain.DocumentCache) keyed by
// the document's content hash. The key is a pure function of the document
// bytes, so identical uploads always converge on the same entry. At most
// one live entry exists per hash: creation runs under singleflight in
// process and behind a unique index across processes.
//
// Failure semantics: provider errors never propagate as errors from
// GetOrCreate. Callers receive an explicit Unavailable result and are
// expected to fall back to direct (uncached) document submission for that
// one call. All cache failures are logged here.
package contentcache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/adaptive-elearn/go-training-backend/internal/domain"
	"github.com/adaptive-elearn/go-training-backend/internal/genai"
	"github.com/adaptive-elearn/go-training-backend/internal/repo"
)

// State classifies the outcome of a cache lookup.
type State int

const (
	// Hit: a live entry exists; Entry is set.
	Hit State = iota
	// Miss: the document has no live entry and none could be created in
	// this call (entry expired and refresh declined). Rare; treated like
	// Unavailable by callers.
	Miss
	// Unavailable: the provider cache API failed; fall back to direct
	// submission.
	Unavailable
)

// Result is the outcome of GetOrCreate or Refresh. Explicit by design:
// callers branch on State instead of unwrapping errors.
type Result struct {
	State State
	Entry *domain.DocumentCache
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// Cache wraps the provider's cachedContents API with DB-backed handle
// bookkeeping. Safe for concurrent use.
type Cache struct {
	db     *gorm.DB
	client genai.Client
	log    zerolog.Logger

	// ttl is the requested validity window (bounded 6-24h by config).
	ttl time.Duration
	// margin is the minimum remaining validity required for an entry to
	// be served as a Hit; entries closer to expiry are refreshed first.
	margin time.Duration

	sf  singleflight.Group
	now func() time.Time
}

// New constructs a Cache. ttl is clamped to the provider's supported
// window (6 to 24 hours); margin defaults to 10 minutes.
func New(db *gorm.DB, client genai.Client, ttl, margin time.Duration, log zerolog.Logger, opts ...Option) *Cache {
	if ttl < 6*time.Hour {
		ttl = 6 * time.Hour
	}
	if ttl > 24*time.Hour {
		ttl = 24 * time.Hour
	}
	if margin <= 0 {
		margin = 10 * time.Minute
	}
	c := &Cache{
		db:     db,
		client: client,
		log:    log,
		ttl:    ttl,
		margin: margin,
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetOrCreate returns a live cache entry for the document, creating or
// refreshing the provider-side cache as needed. Concurrent callers for the
// same content hash are collapsed into one provider upload.
func (c *Cache) GetOrCreate(ctx context.Context, doc *domain.SourceDocument, data []byte) Result {
	v, _, _ := c.sf.Do(doc.ContentHash, func() (any, error) {
		return c.getOrCreate(ctx, doc, data), nil
	})
	return v.(Result)
}

func (c *Cache) getOrCreate(ctx context.Context, doc *domain.SourceDocument, data []byte) Result {
	now := c.now().UTC()

	entry, err := repo.GetCacheByHash(ctx, c.db, doc.ContentHash)
	switch {
	case err == nil && entry.Live(now, c.margin):
		return Result{State: Hit, Entry: entry}
	case err == nil:
		// Entry exists but is at/near expiry: refresh in place.
		return c.refresh(ctx, entry)
	case !errors.Is(err, repo.ErrNotFound):
		c.log.Error().Err(err).Str("content_hash", doc.ContentHash).Msg("cache lookup failed")
		return Result{State: Unavailable}
	}

	return c.create(ctx, doc.ContentHash, doc.MimeType, data)
}

// create uploads the document and records the handle. A unique violation
// means a concurrent process won the race; re-read and serve its entry.
func (c *Cache) create(ctx context.Context, contentHash, mimeType string, data []byte) Result {
	cc, err := c.client.CreateCachedContent(ctx, data, mimeType, c.ttl)
	if err != nil {
		c.log.Warn().Err(err).Str("content_hash", contentHash).Msg("provider cache create failed; falling back to direct submission")
		return Result{State: Unavailable}
	}

	entry, err := repo.CreateCache(ctx, c.db, contentHash, cc.Name, cc.Model, cc.TokenCount, cc.ExpireTime.UTC())
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			if existing, rerr := repo.GetCacheByHash(ctx, c.db, contentHash); rerr == nil {
				// Ours is redundant; best-effort cleanup of the extra handle.
				if derr := c.client.DeleteCachedContent(ctx, cc.Name); derr != nil {
					c.log.Debug().Err(derr).Str("cache_name", cc.Name).Msg("redundant cache handle not deleted")
				}
				return Result{State: Hit, Entry: existing}
			}
		}
		c.log.Error().Err(err).Str("content_hash", contentHash).Msg("cache record insert failed")
		return Result{State: Unavailable}
	}

	c.log.Info().
		Str("content_hash", contentHash).
		Str("cache_name", cc.Name).
		Time("expires_at", cc.ExpireTime).
		Int64("token_count", cc.TokenCount).
		Msg("document cache created")
	return Result{State: Hit, Entry: entry}
}

// Refresh extends an entry's TTL window, recreating the provider cache when
// the handle has already expired server-side.
func (c *Cache) Refresh(ctx context.Context, entry *domain.DocumentCache) Result {
	v, _, _ := c.sf.Do("refresh:"+entry.ContentHash, func() (any, error) {
		return c.refresh(ctx, entry), nil
	})
	return v.(Result)
}

func (c *Cache) refresh(ctx context.Context, entry *domain.DocumentCache) Result {
	cc, err := c.client.UpdateCachedContentTTL(ctx, entry.CacheName, c.ttl)
	if err != nil {
		var apiErr *genai.APIError
		if errors.As(err, &apiErr) && apiErr.Status == 404 {
			// Handle is gone server-side; drop our record so the next
			// GetOrCreate recreates it from the document bytes.
			if derr := repo.DeleteCache(ctx, c.db, entry.ID); derr != nil {
				c.log.Error().Err(derr).Str("cache_id", entry.ID).Msg("stale cache record not deleted")
			}
			return Result{State: Miss}
		}
		c.log.Warn().Err(err).Str("cache_name", entry.CacheName).Msg("cache refresh failed")
		return Result{State: Unavailable}
	}

	if err := repo.UpdateCacheExpiry(ctx, c.db, entry.ID, cc.Name, cc.ExpireTime.UTC()); err != nil {
		c.log.Error().Err(err).Str("cache_id", entry.ID).Msg("cache expiry update failed")
		return Result{State: Unavailable}
	}
	refreshed := *entry
	refreshed.CacheName = cc.Name
	refreshed.ExpiresAt = cc.ExpireTime.UTC()
	c.log.Info().Str("cache_name", cc.Name).Time("expires_at", cc.ExpireTime).Msg("document cache refreshed")
	return Result{State: Hit, Entry: &refreshed}
}

// Invalidate deletes the provider-side cache and its record. Safe to call
// on an already-expired or already-deleted entry.
func (c *Cache) Invalidate(ctx context.Context, entry *domain.DocumentCache) error {
	if entry == nil {
		return nil
	}
	if err := c.client.DeleteCachedContent(ctx, entry.CacheName); err != nil {
		c.log.Warn().Err(err).Str("cache_name", entry.CacheName).Msg("provider cache delete failed")
		// Keep going: the record must not outlive an unusable handle.
	}
	return repo.DeleteCache(ctx, c.db, entry.ID)
}
