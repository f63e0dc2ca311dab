package quote

import (
	"fmt"
	"math"
	"strings"
)

// ParseQuotes converts one raw provider response into normalized quotes.
// Lines that fail extraction, fall short of the market's minimum token
// count, carry unparseable required numbers or timestamps, or fail the
// validation gate are skipped; the call itself only fails for a
// (provider, market) pair with no layout.
func ParseQuotes(p Provider, m Market, text string) ([]Quote, error) {
	l, ok := layouts[layoutKey{p, m}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnsupported, p, m)
	}
	lines := strings.Split(text, "\n")
	out := make([]Quote, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if q, ok := parseLine(l, line); ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func parseLine(l layout, line string) (Quote, bool) {
	tokens, ok := l.extractor.extract(line)
	if !ok || len(tokens) < l.minTokens {
		return Quote{}, false
	}

	code := tokens[0]
	if l.codeStrip > 0 {
		if len(code) <= l.codeStrip {
			return Quote{}, false
		}
		code = code[l.codeStrip:]
	}
	code = strings.ToUpper(strings.TrimSpace(code))

	name := code
	if l.name >= 0 {
		name = strings.TrimSpace(tokens[l.name])
	}

	// Current and the change base must be present; everything else
	// degrades to zero.
	current := ParseFloat(tokens[l.current], math.NaN())
	var base float64
	if l.noPrevClose {
		base = ParseFloat(tokens[l.opening], math.NaN())
	} else {
		base = ParseFloat(tokens[l.close], math.NaN())
	}
	if math.IsNaN(current) || math.IsNaN(base) {
		return Quote{}, false
	}

	closing := base
	if l.noPrevClose {
		closing = current
	}

	var pct float64
	switch {
	case l.pct >= 0:
		pct = Round2(ParseFloat(tokens[l.pct], 0))
	case base == 0:
		pct = 0
	default:
		pct = Round2((current - base) / base * 100)
	}

	updateAt, err := l.ts.normalize(tokens)
	if err != nil {
		return Quote{}, false
	}

	q := Quote{
		Code:       code,
		Name:       name,
		Current:    current,
		Opening:    ParseFloat(tokens[l.opening], 0),
		Close:      closing,
		High:       ParseFloat(tokens[l.high], 0),
		Low:        ParseFloat(tokens[l.low], 0),
		Change:     Round2(current - base),
		Percentage: pct,
		UpdateAt:   updateAt,
	}
	if !q.valid() {
		return Quote{}, false
	}
	return q, true
}
