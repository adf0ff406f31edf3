package userlookup

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimited wraps a Lookup with an app-level token bucket (one
// limiter shared by every caller, matching Twitter's app-auth rate
// limit) and a per-user-context bucket for requests made under a
// specific user's own rate limit window. Callers never see a
// rate-limit wait: Wait blocks until the bucket admits the request,
// or until ctx is done.
type RateLimited struct {
	underlying Lookup

	appLimiter *rate.Limiter

	mu           sync.Mutex
	userLimiters map[string]*rate.Limiter
	userRate     rate.Limit
	userBurst    int
}

// NewRateLimited wraps lookup with an app-wide limiter (appRate
// tokens/sec, appBurst burst) and a template for per-context limiters
// created on demand (userRate, userBurst).
func NewRateLimited(lookup Lookup, appRate rate.Limit, appBurst int, userRate rate.Limit, userBurst int) *RateLimited {
	return &RateLimited{
		underlying:   lookup,
		appLimiter:   rate.NewLimiter(appRate, appBurst),
		userLimiters: make(map[string]*rate.Limiter),
		userRate:     userRate,
		userBurst:    userBurst,
	}
}

// LookupBatch waits for both the app-level bucket and the "default"
// per-context bucket to admit one request, then delegates to the
// wrapped Lookup.
func (r *RateLimited) LookupBatch(ctx context.Context, ids []int64) ([]Result, error) {
	return r.LookupBatchAs(ctx, "default", ids)
}

// LookupBatchAs is LookupBatch scoped to a named rate-limit context
// (e.g. a specific bearer token), each tracked with its own bucket.
func (r *RateLimited) LookupBatchAs(ctx context.Context, tokenContext string, ids []int64) ([]Result, error) {
	if err := r.appLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	if err := r.userLimiter(tokenContext).Wait(ctx); err != nil {
		return nil, err
	}
	return r.underlying.LookupBatch(ctx, ids)
}

func (r *RateLimited) userLimiter(tokenContext string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.userLimiters[tokenContext]
	if !ok {
		l = rate.NewLimiter(r.userRate, r.userBurst)
		r.userLimiters[tokenContext] = l
	}
	return l
}
