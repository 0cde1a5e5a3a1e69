package extraction

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/zero-day-ai/clausegraph/internal/contract"
)

// CachedExtractor memoizes an Extractor by input text. Failed extractions are
// not cached. Results are cloned on the way in and out, so callers may
// modify what they receive.
type CachedExtractor struct {
	inner Extractor
	cache *lru.LRU[string, contract.Extraction]
}

// NewCachedExtractor wraps inner with an LRU of at most size entries, each
// living for ttl. A zero ttl keeps entries until evicted.
func NewCachedExtractor(inner Extractor, size int, ttl time.Duration) *CachedExtractor {
	return &CachedExtractor{
		inner: inner,
		cache: lru.NewLRU[string, contract.Extraction](size, nil, ttl),
	}
}

func (c *CachedExtractor) Extract(ctx context.Context, text string) (contract.Extraction, error) {
	key := cacheKey(text)
	if cached, ok := c.cache.Get(key); ok {
		return cached.Clone(), nil
	}

	out, err := c.inner.Extract(ctx, text)
	if err != nil {
		return out, err
	}
	c.cache.Add(key, out.Clone())
	return out, nil
}

// Len returns the number of cached extractions.
func (c *CachedExtractor) Len() int {
	return c.cache.Len()
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
