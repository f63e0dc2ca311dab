package quote

import (
	"regexp"
	"strconv"
	"strings"
)

var sinaSuggest = regexp.MustCompile(`suggestvalue="([^"]*)"`)

const tencentSuggestWrapper = `v_hint="`

// ParseSuggestions converts a provider's search-autocomplete payload into
// suggestions. Malformed or unsupported items are dropped silently.
func ParseSuggestions(p Provider, text string) []Suggestion {
	switch p {
	case Sina:
		return parseSinaSuggestions(text)
	case Tencent:
		return parseTencentSuggestions(text)
	}
	return nil
}

// Sina items look like
//
//	浦发银行,11,600000,sh600000,浦发银行,...
//
// where column 1 is the category code deciding the market.
func parseSinaSuggestions(text string) []Suggestion {
	m := sinaSuggest.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	items := strings.Split(m[1], ";")
	out := make([]Suggestion, 0, len(items))
	for _, item := range items {
		cols := strings.Split(item, ",")
		if len(cols) < 5 {
			continue
		}
		name := strings.TrimSpace(cols[4])
		code := strings.TrimSpace(cols[2])
		switch strings.TrimSpace(cols[1]) {
		case "11":
			// Special-treatment flagged instruments are not offered.
			if strings.HasPrefix(name, "ST") || strings.HasPrefix(name, "*ST") {
				continue
			}
			prefix, ok := exchangePrefix(code)
			if !ok {
				continue
			}
			out = append(out, Suggestion{Code: strings.ToUpper(prefix + code), Name: name, Market: AShare})
		case "31", "33":
			out = append(out, Suggestion{Code: strings.ToUpper(code), Name: name, Market: HKStocks})
		case "41":
			out = append(out, Suggestion{Code: strings.ToUpper(code), Name: name, Market: USStocks})
		case "71":
			out = append(out, Suggestion{Code: strings.ToUpper(code), Name: name, Market: Crypto})
		}
	}
	return out
}

// exchangePrefix classifies a bare A-share code by its leading digit:
// Shanghai listings start with 6 or 9, Shenzhen with 0 or 3. Codes outside
// both ranges are discarded rather than guessed.
func exchangePrefix(code string) (string, bool) {
	if code == "" {
		return "", false
	}
	switch code[0] {
	case '6', '9':
		return "sh", true
	case '0', '3':
		return "sz", true
	}
	return "", false
}

// Tencent items arrive as a single assignment
//
//	v_hint="sh600000~600000~浦发银行^hk00700~00700~..."
//
// with ^-separated items and ~-separated columns. Column 0 leads with a
// two-letter market code; names carry Java-style escape sequences.
func parseTencentSuggestions(text string) []Suggestion {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, tencentSuggestWrapper)
	s = strings.TrimSuffix(s, ";")
	s = strings.TrimSuffix(s, `"`)
	if s == "" {
		return nil
	}
	items := strings.Split(s, "^")
	out := make([]Suggestion, 0, len(items))
	for _, item := range items {
		cols := strings.Split(item, "~")
		if len(cols) < 3 {
			continue
		}
		full := strings.TrimSpace(cols[0])
		if len(full) < 2 {
			continue
		}
		var market Market
		switch strings.ToLower(full[:2]) {
		case "sh", "sz":
			market = AShare
		case "hk":
			market = HKStocks
		default:
			// Tencent search does not cover US or crypto listings.
			continue
		}
		out = append(out, Suggestion{
			Code:   strings.ToUpper(full),
			Name:   unescapeJava(strings.TrimSpace(cols[2])),
			Market: market,
		})
	}
	return out
}

// unescapeJava decodes \uXXXX and the common single-character escapes that
// Tencent embeds in suggestion names. Sequences it cannot decode are left
// in place.
func unescapeJava(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			i++
			continue
		}
		switch s[i+1] {
		case 'u':
			if i+6 <= len(s) {
				if v, err := strconv.ParseUint(s[i+2:i+6], 16, 32); err == nil {
					b.WriteRune(rune(v))
					i += 6
					continue
				}
			}
			b.WriteByte(s[i])
			i++
		case 'n':
			b.WriteByte('\n')
			i += 2
		case 't':
			b.WriteByte('\t')
			i += 2
		case 'r':
			b.WriteByte('\r')
			i += 2
		case '\\', '"', '\'':
			b.WriteByte(s[i+1])
			i += 2
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String()
}
