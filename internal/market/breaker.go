package market

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"stockwatcher/internal/quote"
)

// BreakerProvider wraps a provider with a circuit breaker so a flapping
// upstream stops eating the poll budget and failover can kick in fast.
type BreakerProvider struct {
	inner QuoteProvider
	cb    *gobreaker.CircuitBreaker
}

func NewBreakerProvider(inner QuoteProvider) *BreakerProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(inner.Name()),
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &BreakerProvider{inner: inner, cb: cb}
}

func (p *BreakerProvider) Name() quote.Provider { return p.inner.Name() }

func (p *BreakerProvider) Quotes(ctx context.Context, market quote.Market, codes []string) ([]quote.Quote, error) {
	out, err := p.cb.Execute(func() (interface{}, error) {
		return p.inner.Quotes(ctx, market, codes)
	})
	if err != nil {
		return nil, err
	}
	return out.([]quote.Quote), nil
}

func (p *BreakerProvider) Suggest(ctx context.Context, query string) ([]quote.Suggestion, error) {
	out, err := p.cb.Execute(func() (interface{}, error) {
		return p.inner.Suggest(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	return out.([]quote.Suggestion), nil
}
