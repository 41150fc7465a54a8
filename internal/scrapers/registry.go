package scrapers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/logger"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/types"
)

// Registry maps platform names to their scrapers. It is built once at startup
// and read-only afterwards. Every fetch goes through a per-platform rate
// limiter and timeout so one platform cannot starve or flood the others.
type Registry struct {
	log      *logger.Logger
	timeout  time.Duration
	rps      float64
	mu       sync.RWMutex
	scrapers map[string]Scraper
	limiters map[string]*rate.Limiter
}

func NewRegistry(baseLog *logger.Logger, perFetchTimeout time.Duration, requestsPerSecond float64) *Registry {
	if perFetchTimeout <= 0 {
		perFetchTimeout = 30 * time.Second
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &Registry{
		log:      baseLog.With("service", "ScraperRegistry"),
		timeout:  perFetchTimeout,
		scrapers: map[string]Scraper{},
		limiters: map[string]*rate.Limiter{},
		rps:      requestsPerSecond,
	}
}

func (r *Registry) Register(platformName string, s Scraper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrapers[platformName] = s
	r.limiters[platformName] = rate.NewLimiter(rate.Limit(r.rps), 1)
}

func (r *Registry) Has(platformName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.scrapers[platformName]
	return ok
}

// Names returns registered platform names, sorted for determinism.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.scrapers))
	for name := range r.scrapers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Fetch runs one platform search under the platform's rate limiter and the
// registry's per-fetch timeout.
func (r *Registry) Fetch(ctx context.Context, platformName, query string, maxResults int) ([]types.RawListing, error) {
	r.mu.RLock()
	s, ok := r.scrapers[platformName]
	limiter := r.limiters[platformName]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no scraper registered for platform %q", platformName)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if limiter != nil {
		if err := limiter.Wait(fetchCtx); err != nil {
			return nil, fmt.Errorf("%w: rate limit wait: %v", ErrPlatformUnreachable, err)
		}
	}

	start := time.Now()
	listings, err := s.Search(fetchCtx, query, maxResults)
	if err != nil {
		r.log.Warn("Platform fetch failed", "platform", platformName, "query", query, "elapsed", time.Since(start), "error", err)
		return nil, err
	}
	r.log.Debug("Platform fetch completed", "platform", platformName, "query", query, "results", len(listings), "elapsed", time.Since(start))
	return listings, nil
}
