package llmcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kestrel-data/nlmongo/internal/db"
	"github.com/kestrel-data/nlmongo/internal/domain"
	"github.com/kestrel-data/nlmongo/internal/domain/query"
	"github.com/kestrel-data/nlmongo/internal/domain/schema"
	"github.com/kestrel-data/nlmongo/internal/inference"
)

var cacheKeyPrefix = domain.KeyPrefix + "translation:"

// store is the consumer interface for the translation cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedTranslator caches translations in a key-value store. The cache key
// covers the provider, the model, and the schema fingerprint, so schema
// changes invalidate prior translations without explicit eviction and
// providers never share entries, even when their model names collide.
type CachedTranslator struct {
	inner      domain.Translator
	store      store
	provider   string
	model      string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domain.Translator,
	s store,
	provider, model string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedTranslator {
	return &CachedTranslator{
		inner:      inner,
		store:      s,
		provider:   provider,
		model:      model,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Translate returns a cached translation or calls the inner translator.
func (c *CachedTranslator) Translate(
	ctx context.Context,
	question string,
	snap schema.Snapshot,
	rels []inference.Relationship,
) (query.Proposed, error) {
	key := c.cacheKey(question, snap)

	if proposed, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return proposed, nil
	}

	c.incCache("miss")

	proposed, err := c.inner.Translate(ctx, question, snap, rels)
	if err != nil {
		return query.Proposed{}, fmt.Errorf("translate question: %w", err)
	}

	c.putToCache(ctx, key, proposed)
	return proposed, nil
}

func (c *CachedTranslator) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedTranslator) cacheKey(question string, snap schema.Snapshot) string {
	h := sha256.New()
	h.Write([]byte(c.provider))
	h.Write([]byte{0})
	h.Write([]byte(c.model))
	h.Write([]byte{0})
	h.Write([]byte(snap.Fingerprint()))
	h.Write([]byte{0})
	h.Write([]byte(question))
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (c *CachedTranslator) getFromCache(ctx context.Context, key string) (query.Proposed, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached translation", zap.String("key", key), zap.Error(err))
		}
		return query.Proposed{}, false
	}
	if len(data) == 0 {
		return query.Proposed{}, false
	}

	var proposed query.Proposed
	if err := json.Unmarshal(data, &proposed); err != nil {
		c.logger.Warn("Failed to parse cached translation", zap.String("key", key), zap.Error(err))
		return query.Proposed{}, false
	}
	return proposed, true
}

func (c *CachedTranslator) putToCache(ctx context.Context, key string, proposed query.Proposed) {
	data, err := json.Marshal(proposed)
	if err != nil {
		c.logger.Warn("Failed to encode translation", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache translation", zap.String("key", key), zap.Error(err))
	}
}
