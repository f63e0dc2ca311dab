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

type TencentProvider struct {
	quoteURL   string
	suggestURL string
	client     *http.Client
}

func NewTencentProvider(timeout time.Duration) *TencentProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &TencentProvider{
		quoteURL:   "https://qt.gtimg.cn/q=",
		suggestURL: "https://smartbox.gtimg.cn/s3/?t=all&q=",
		client:     &http.Client{Timeout: timeout},
	}
}

func (p *TencentProvider) Name() quote.Provider { return quote.Tencent }

func (p *TencentProvider) Quotes(ctx context.Context, market quote.Market, codes []string) ([]quote.Quote, error) {
	if len(codes) == 0 {
		return nil, fmt.Errorf("codes is empty")
	}
	// No crypto feed upstream; refuse before touching the network.
	if !quote.Supported(quote.Tencent, market) {
		return nil, fmt.Errorf("%w: %s/%s", quote.ErrUnsupported, quote.Tencent, market)
	}
	list := make([]string, 0, len(codes))
	for _, c := range codes {
		list = append(list, tencentQueryCode(market, c))
	}
	body, err := p.get(ctx, p.quoteURL+strings.Join(list, ","))
	if err != nil {
		return nil, fmt.Errorf("request tencent: %w", err)
	}
	return quote.ParseQuotes(quote.Tencent, market, body)
}

func (p *TencentProvider) Suggest(ctx context.Context, query string) ([]quote.Suggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is empty")
	}
	body, err := p.get(ctx, p.suggestURL+url.QueryEscape(query))
	if err != nil {
		return nil, fmt.Errorf("request tencent suggest: %w", err)
	}
	return quote.ParseSuggestions(quote.Tencent, body), nil
}

func (p *TencentProvider) get(ctx context.Context, u string) (string, error) {
	var body string
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
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

// tencentQueryCode builds the wire code. HK and US symbols go through
// the realtime r_ endpoint, which echoes the market prefix back in the
// variable name.
func tencentQueryCode(m quote.Market, code string) string {
	c := strings.ToLower(strings.TrimSpace(code))
	switch m {
	case quote.HKStocks:
		return "r_hk" + c
	case quote.USStocks:
		return "r_us" + c
	}
	return c
}
