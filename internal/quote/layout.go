package quote

import (
	"regexp"
	"strings"
)

// payloadExtractor pulls the data payload out of one response line and
// returns it as tokens, with the instrument code prepended as token 0.
type payloadExtractor interface {
	extract(line string) ([]string, bool)
}

// regexExtractor handles Sina lines of the form
//
//	var hq_str_sh600000="...,...,...";
type regexExtractor struct {
	re *regexp.Regexp
}

var sinaLine = regexExtractor{re: regexp.MustCompile(`^var hq_str_(\w+)="(.*)";`)}

func (e regexExtractor) extract(line string) ([]string, bool) {
	m := e.re.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	return strings.Split(m[1]+","+m[2], ","), true
}

// scanExtractor handles Tencent lines of the form
//
//	v_sh600000="1~...~...";
//
// The code starts at a fixed offset and runs to the first '='; the payload
// sits between the first and last double quote.
type scanExtractor struct {
	codeOffset int
}

func (e scanExtractor) extract(line string) ([]string, bool) {
	eq := strings.IndexByte(line, '=')
	first := strings.IndexByte(line, '"')
	last := strings.LastIndexByte(line, '"')
	if eq < 0 || first < 0 || first >= last {
		return nil, false
	}
	if e.codeOffset >= eq {
		return nil, false
	}
	code := line[e.codeOffset:eq]
	data := line[first+1 : last]
	return strings.Split(code+"~"+data, "~"), true
}

// layout is the field-position contract for one (provider, market) pair.
// Token indices are 0-based over the extracted token list; they mirror the
// upstream wire formats exactly and must not be re-derived.
type layout struct {
	extractor payloadExtractor
	minTokens int
	codeStrip int // provider prefix chars removed from the code token
	name      int // -1: the code doubles as the name
	current   int
	close     int // previous close; unused when noPrevClose
	opening   int
	high      int
	low       int
	pct       int // -1: derived from current and base
	// noPrevClose markets (crypto) use opening as the change base and
	// report close equal to current.
	noPrevClose bool
	ts          timeSpec
}

type layoutKey struct {
	provider Provider
	market   Market
}

// Tencent has no crypto feed, so that pair is deliberately absent.
var layouts = map[layoutKey]layout{
	{Sina, AShare}: {
		extractor: sinaLine, minTokens: 33,
		name: 1, current: 4, close: 3, opening: 2, high: 5, low: 6, pct: -1,
		ts: timeSpec{dateIdx: 31, timeIdx: 32},
	},
	{Sina, HKStocks}: {
		extractor: sinaLine, minTokens: 20, codeStrip: 2,
		name: 2, current: 7, close: 4, opening: 3, high: 5, low: 6, pct: 9,
		ts: timeSpec{dateIdx: 18, timeIdx: 19, srcLayout: "2006/01/02 15:04"},
	},
	{Sina, USStocks}: {
		extractor: sinaLine, minTokens: 28, codeStrip: 3,
		name: 1, current: 2, close: 27, opening: 6, high: 7, low: 8, pct: 3,
		ts: timeSpec{dateIdx: 4, timeIdx: -1},
	},
	{Sina, Crypto}: {
		extractor: sinaLine, minTokens: 13, codeStrip: 4,
		name: -1, current: 9, close: -1, opening: 6, high: 7, low: 8, pct: -1,
		noPrevClose: true,
		ts:          timeSpec{dateIdx: 12, timeIdx: 1},
	},
	{Tencent, AShare}: {
		extractor: scanExtractor{codeOffset: 2}, minTokens: 36,
		name: 2, current: 4, close: 5, opening: 6, high: 34, low: 35, pct: -1,
		ts: timeSpec{dateIdx: 31, timeIdx: -1, srcLayout: "20060102150405"},
	},
	{Tencent, HKStocks}: {
		extractor: scanExtractor{codeOffset: 4}, minTokens: 36,
		name: 2, current: 4, close: 5, opening: 6, high: 34, low: 35, pct: -1,
		ts: timeSpec{dateIdx: 31, timeIdx: -1, srcLayout: "2006/01/02 15:04:05"},
	},
	{Tencent, USStocks}: {
		extractor: scanExtractor{codeOffset: 4}, minTokens: 36,
		name: 2, current: 4, close: 5, opening: 6, high: 34, low: 35, pct: -1,
		ts: timeSpec{dateIdx: 31, timeIdx: -1},
	},
}

// Supported reports whether a (provider, market) pair has a quote layout.
func Supported(p Provider, m Market) bool {
	_, ok := layouts[layoutKey{p, m}]
	return ok
}
