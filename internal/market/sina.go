package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"stockwatcher/internal/quote"
)

type SinaProvider struct {
	quoteURL   string
	suggestURL string
	client     *http.Client
}

func NewSinaProvider(timeout time.Duration) *SinaProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SinaProvider{
		quoteURL:   "https://hq.sinajs.cn/list=",
		suggestURL: "https://suggest3.sinajs.cn/suggest/type=&key=",
		client:     &http.Client{Timeout: timeout},
	}
}

func (p *SinaProvider) Name() quote.Provider { return quote.Sina }

func (p *SinaProvider) Quotes(ctx context.Context, market quote.Market, codes []string) ([]quote.Quote, error) {
	if len(codes) == 0 {
		return nil, fmt.Errorf("codes is empty")
	}
	if !quote.Supported(quote.Sina, market) {
		return nil, fmt.Errorf("%w: %s/%s", quote.ErrUnsupported, quote.Sina, market)
	}
	list := make([]string, 0, len(codes))
	for _, c := range codes {
		list = append(list, sinaQueryCode(market, c))
	}
	body, err := p.get(ctx, p.quoteURL+strings.Join(list, ","))
	if err != nil {
		return nil, fmt.Errorf("request sina: %w", err)
	}
	return quote.ParseQuotes(quote.Sina, market, body)
}

func (p *SinaProvider) Suggest(ctx context.Context, query string) ([]quote.Suggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is empty")
	}
	body, err := p.get(ctx, p.suggestURL+url.QueryEscape(query))
	if err != nil {
		return nil, fmt.Errorf("request sina suggest: %w", err)
	}
	return quote.ParseSuggestions(quote.Sina, body), nil
}

// get retries transient failures with exponential backoff. Sina rejects
// requests without a finance referer.
func (p *SinaProvider) get(ctx context.Context, u string) (string, error) {
	var body string
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Referer", "https://finance.sina.com.cn")
		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		body = string(data)
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return "", err
	}
	return body, nil
}

// sinaQueryCode maps a stored watchlist code onto the wire form the
// feed expects for each market.
func sinaQueryCode(m quote.Market, code string) string {
	c := strings.ToLower(strings.TrimSpace(code))
	switch m {
	case quote.HKStocks:
		return "hk" + c
	case quote.USStocks:
		return "gb_" + c
	case quote.Crypto:
		return "btc_" + c
	}
	return c
}
