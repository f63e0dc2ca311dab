package market

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"stockwatcher/internal/metrics"
	"stockwatcher/internal/notify"
	"stockwatcher/internal/quote"
	"stockwatcher/internal/store"
)

type cacheKey struct {
	market quote.Market
	code   string
}

// Service sits between the API/poll loop and the providers: it
// throttles upstream fetches, keeps a last-known-good cache per
// market+code, persists snapshots and publishes updates on the bus.
type Service struct {
	provider QuoteProvider
	store    *store.Store
	bus      *notify.Bus
	limiter  *rate.Limiter
	log      *logrus.Entry

	mu                  sync.Mutex
	cache               map[cacheKey]quote.Quote
	consecutiveFailures int
}

func NewService(provider QuoteProvider, st *store.Store, bus *notify.Bus, minInterval time.Duration) *Service {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if minInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(minInterval), 1)
	}
	return &Service{
		provider: provider,
		store:    st,
		bus:      bus,
		limiter:  limiter,
		log:      logrus.WithField("component", "market"),
		cache:    make(map[cacheKey]quote.Quote),
	}
}

// Quotes serves from cache when the throttle window has not elapsed or
// when the upstream fails and cached data exists.
func (s *Service) Quotes(ctx context.Context, market quote.Market, codes []string) ([]quote.Quote, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("quote provider not configured")
	}
	if len(codes) == 0 {
		return nil, fmt.Errorf("codes is empty")
	}

	if !s.limiter.Allow() {
		if cached, ok := s.fromCache(market, codes); ok {
			metrics.CacheServed.WithLabelValues(string(market), "throttled").Inc()
			return cached, nil
		}
		// Nothing cached yet; let the fetch through anyway.
	}

	quotes, err := s.fetch(ctx, market, codes)
	if err == nil {
		return quotes, nil
	}
	if cached, ok := s.fromCache(market, codes); ok {
		metrics.CacheServed.WithLabelValues(string(market), "upstream_error").Inc()
		s.log.WithError(err).Warn("serving stale quotes from cache")
		return cached, nil
	}
	return nil, err
}

func (s *Service) Suggest(ctx context.Context, query string) ([]quote.Suggestion, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("quote provider not configured")
	}
	return s.provider.Suggest(ctx, query)
}

// ValidateCode fetches the code once and returns the quote, so callers
// can reject watchlist additions the upstream does not recognize.
func (s *Service) ValidateCode(ctx context.Context, market quote.Market, code string) (quote.Quote, error) {
	quotes, err := s.provider.Quotes(ctx, market, []string{code})
	if err != nil {
		return quote.Quote{}, err
	}
	if len(quotes) == 0 {
		return quote.Quote{}, fmt.Errorf("no quote for %s/%s", market, code)
	}
	return quotes[0], nil
}

func (s *Service) fetch(ctx context.Context, market quote.Market, codes []string) ([]quote.Quote, error) {
	provider := string(s.provider.Name())
	start := time.Now()
	quotes, err := s.provider.Quotes(ctx, market, codes)
	metrics.FetchDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FetchTotal.WithLabelValues(provider, string(market), "error").Inc()
		s.mu.Lock()
		s.consecutiveFailures++
		s.mu.Unlock()
		return nil, err
	}
	metrics.FetchTotal.WithLabelValues(provider, string(market), "ok").Inc()
	metrics.QuotesParsed.WithLabelValues(provider, string(market)).Add(float64(len(quotes)))

	s.mu.Lock()
	s.consecutiveFailures = 0
	for _, q := range quotes {
		s.cache[cacheKey{market, strings.ToUpper(q.Code)}] = q
	}
	s.mu.Unlock()

	s.ingest(market, quotes)
	return quotes, nil
}

func (s *Service) ingest(market quote.Market, quotes []quote.Quote) {
	if s.store != nil {
		for _, q := range quotes {
			snap := store.Snapshot{
				Market:     string(market),
				Code:       q.Code,
				Name:       q.Name,
				Current:    q.Current,
				Opening:    q.Opening,
				Close:      q.Close,
				High:       q.High,
				Low:        q.Low,
				Change:     q.Change,
				Percentage: q.Percentage,
				UpdateAt:   q.UpdateAt,
			}
			if err := s.store.InsertSnapshot(snap); err != nil {
				s.log.WithError(err).Error("insert snapshot")
			}
		}
	}
	if s.bus != nil {
		s.bus.PublishUpdate(market, quotes)
	}
}

func (s *Service) fromCache(market quote.Market, codes []string) ([]quote.Quote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]quote.Quote, 0, len(codes))
	for _, c := range codes {
		q, ok := s.cache[cacheKey{market, strings.ToUpper(strings.TrimSpace(c))}]
		if !ok {
			return nil, false
		}
		out = append(out, q)
	}
	return out, true
}

// Evict drops a code from the cache and tells listeners it is gone.
// Called when an item leaves the watchlist.
func (s *Service) Evict(market quote.Market, code string) {
	code = strings.ToUpper(strings.TrimSpace(code))
	s.mu.Lock()
	delete(s.cache, cacheKey{market, code})
	s.mu.Unlock()
	if s.bus != nil {
		s.bus.PublishDelete(market, code)
	}
}

// Poll fetches every watched market once. Returns the first error but
// keeps going so one bad market does not starve the rest.
func (s *Service) Poll(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("store not configured")
	}
	items, err := s.store.ListWatch("")
	if err != nil {
		return fmt.Errorf("list watchlist: %w", err)
	}
	byMarket := make(map[quote.Market][]string)
	for _, w := range items {
		m, err := quote.ParseMarket(w.Market)
		if err != nil {
			continue
		}
		byMarket[m] = append(byMarket[m], w.Code)
	}
	var firstErr error
	for m, codes := range byMarket {
		if _, err := s.fetch(ctx, m, codes); err != nil {
			s.log.WithError(err).WithField("market", m).Warn("poll fetch failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// PollLoop runs Poll on a cadence, stretching the interval x2 after 3
// consecutive failures and x4 after 6. Returns when ctx is done.
func (s *Service) PollLoop(ctx context.Context, base time.Duration) {
	if base <= 0 {
		base = 10 * time.Second
	}
	timer := time.NewTimer(base)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		failed := s.Poll(ctx) != nil
		timer.Reset(s.nextPollInterval(base, failed))
	}
}

func (s *Service) nextPollInterval(base time.Duration, failed bool) time.Duration {
	if !failed {
		return base
	}
	s.mu.Lock()
	failures := s.consecutiveFailures
	s.mu.Unlock()
	switch {
	case failures >= 6:
		return base * 4
	case failures >= 3:
		return base * 2
	}
	return base
}
