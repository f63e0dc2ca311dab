package market

import (
	"context"
	"fmt"

	"stockwatcher/internal/quote"
)

// MultiProvider tries providers in order and returns the first
// non-empty result. A provider that does not serve the requested
// market is skipped, not counted as a failure.
type MultiProvider struct {
	providers []QuoteProvider
}

func NewMultiProvider(providers ...QuoteProvider) *MultiProvider {
	return &MultiProvider{providers: providers}
}

func (m *MultiProvider) Name() quote.Provider {
	if len(m.providers) > 0 {
		return m.providers[0].Name()
	}
	return ""
}

func (m *MultiProvider) Quotes(ctx context.Context, market quote.Market, codes []string) ([]quote.Quote, error) {
	if len(m.providers) == 0 {
		return nil, fmt.Errorf("no quote providers configured")
	}
	var lastErr error
	for _, p := range m.providers {
		if !quote.Supported(p.Name(), market) {
			continue
		}
		quotes, err := p.Quotes(ctx, market, codes)
		if err == nil && len(quotes) > 0 {
			return quotes, nil
		}
		if err == nil {
			err = fmt.Errorf("%s returned no quotes", p.Name())
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: %s", quote.ErrUnsupported, market)
	}
	return nil, lastErr
}

func (m *MultiProvider) Suggest(ctx context.Context, query string) ([]quote.Suggestion, error) {
	if len(m.providers) == 0 {
		return nil, fmt.Errorf("no quote providers configured")
	}
	var lastErr error
	for _, p := range m.providers {
		suggestions, err := p.Suggest(ctx, query)
		if err == nil {
			// An empty result is an answer, not a failure.
			return suggestions, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
