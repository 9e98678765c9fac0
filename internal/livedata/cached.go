package livedata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/scrypster/keystone/internal/cache"
)

// CachedProvider memoizes another provider's facts in a cache.Client.
// Cache failures are logged and fall through to the wrapped provider.
type CachedProvider struct {
	next   Provider
	cache  cache.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedProvider wraps next. A non-positive ttl defaults to 15 minutes.
func NewCachedProvider(next Provider, c cache.Client, ttl time.Duration, logger zerolog.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CachedProvider{next: next, cache: c, ttl: ttl, logger: logger}
}

// Fetch implements Provider.
func (p *CachedProvider) Fetch(ctx context.Context, req Request) (Facts, error) {
	if req.Empty() {
		return nil, nil
	}

	key := "livedata:" + req.key()

	data, err := p.cache.Get(ctx, key)
	switch {
	case err == nil:
		var facts Facts
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&facts); err == nil {
			return facts, nil
		}
		p.logger.Warn().Str("key", key).Msg("livedata: dropping undecodable cache entry")
		_ = p.cache.Delete(ctx, key)
	case !errors.Is(err, cache.ErrCacheMiss):
		p.logger.Warn().Err(err).Str("key", key).Msg("livedata: cache read failed")
	}

	facts, err := p.next.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(facts) > 0 {
		if data, err := json.Marshal(facts); err == nil {
			if err := p.cache.Set(ctx, key, data, p.ttl); err != nil {
				p.logger.Warn().Err(err).Str("key", key).Msg("livedata: cache write failed")
			}
		}
	}

	return facts, nil
}
