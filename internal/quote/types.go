package quote

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Market is a listing venue/category. Each market has its own token layout
// per provider.
type Market string

const (
	AShare   Market = "ashare"
	HKStocks Market = "hk"
	USStocks Market = "us"
	Crypto   Market = "crypto"
)

// Provider is an upstream quote source with its own wire format.
type Provider string

const (
	Sina    Provider = "sina"
	Tencent Provider = "tencent"
)

// ErrUnsupported is returned when a (provider, market) combination has no
// wire-format mapping. This is a configuration error on the caller's side,
// never a data error.
var ErrUnsupported = errors.New("unsupported provider/market combination")

// Quote is one instrument's normalized snapshot. Identity is by Code only:
// consumers keying quotes in a map use Code, and an update for an existing
// code replaces the previous entry rather than adding a second one.
type Quote struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Current    float64 `json:"current"`
	Opening    float64 `json:"opening"`
	Close      float64 `json:"close"`
	Low        float64 `json:"low"`
	High       float64 `json:"high"`
	Change     float64 `json:"change"`
	Percentage float64 `json:"percentage"`
	UpdateAt   string  `json:"update_at"`
}

// valid is the single acceptance gate applied after a quote is fully built.
func (q Quote) valid() bool {
	if math.IsNaN(q.Current) || math.IsInf(q.Current, 0) || q.Current <= 0 {
		return false
	}
	if math.IsNaN(q.Percentage) || math.IsInf(q.Percentage, 0) {
		return false
	}
	return strings.TrimSpace(q.Code) != "" && strings.TrimSpace(q.Name) != ""
}

// Suggestion is one search-autocomplete match.
type Suggestion struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Market Market `json:"market"`
}

func ParseMarket(s string) (Market, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ashare", "cn", "a":
		return AShare, nil
	case "hk", "hkstocks":
		return HKStocks, nil
	case "us", "usstocks":
		return USStocks, nil
	case "crypto":
		return Crypto, nil
	}
	return "", fmt.Errorf("unknown market: %q", s)
}

func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sina":
		return Sina, nil
	case "tencent", "qq":
		return Tencent, nil
	}
	return "", fmt.Errorf("unknown provider: %q", s)
}
