package market

import (
	"context"

	"stockwatcher/internal/quote"
)

// QuoteProvider fetches raw feeds from one upstream and returns
// normalized quotes. Implementations skip malformed lines rather than
// failing the whole batch.
type QuoteProvider interface {
	Name() quote.Provider
	Quotes(ctx context.Context, market quote.Market, codes []string) ([]quote.Quote, error)
	Suggest(ctx context.Context, query string) ([]quote.Suggestion, error)
}
