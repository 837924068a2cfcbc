package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const rateLimitTimeout = time.Second

// RateLimitStore counts requests per identifier in fixed Redis windows.
// It satisfies echo's RateLimiterStore so the limit is shared by every
// replica. Key format: ratelimit:<identifier>
type RateLimitStore struct {
	client      redis.Cmdable
	maxRequests int64
	window      time.Duration
	log         zerolog.Logger
}

// NewRateLimitStore allows maxRequests per identifier within window. The
// window starts at the first request and is not extended by later ones.
func NewRateLimitStore(client redis.Cmdable, maxRequests int, window time.Duration, log zerolog.Logger) *RateLimitStore {
	return &RateLimitStore{
		client:      client,
		maxRequests: int64(maxRequests),
		window:      window,
		log:         log.With().Str("component", "rate_limiter").Logger(),
	}
}

// Allow records one request for identifier. Redis failures let the request
// through and are logged.
func (s *RateLimitStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), rateLimitTimeout)
	defer cancel()

	k := s.key(identifier)
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
		return true, nil
	}
	return incr.Val() <= s.maxRequests, nil
}

func (s *RateLimitStore) key(identifier string) string {
	return "ratelimit:" + identifier
}
