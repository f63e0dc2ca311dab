package quote

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dataFields builds a payload field slice of the given length, with values
// addressed by their final token index (token 0 is the prepended code).
func dataFields(n int, set map[int]string) []string {
	f := make([]string, n)
	for idx, v := range set {
		f[idx-1] = v
	}
	return f
}

func sinaQuoteLine(code string, fields []string) string {
	return `var hq_str_` + code + `="` + strings.Join(fields, ",") + `";`
}

func tencentQuoteLine(varName string, fields []string) string {
	return varName + `="` + strings.Join(fields, "~") + `";`
}

func TestParseQuotes_SinaAShare(t *testing.T) {
	fields := dataFields(32, map[int]string{
		1:  "Pudong Bank",
		2:  "8.50",
		3:  "8.45",
		4:  "8.52",
		5:  "8.60",
		6:  "8.40",
		31: "20250109",
		32: "15:30:00",
	})
	quotes, err := ParseQuotes(Sina, AShare, sinaQuoteLine("sh600000", fields))
	require.NoError(t, err)
	require.Len(t, quotes, 1)

	q := quotes[0]
	assert.Equal(t, "SH600000", q.Code)
	assert.Equal(t, "Pudong Bank", q.Name)
	assert.Equal(t, 8.52, q.Current)
	assert.Equal(t, 8.50, q.Opening)
	assert.Equal(t, 8.45, q.Close)
	assert.Equal(t, 8.60, q.High)
	assert.Equal(t, 8.40, q.Low)
	assert.Equal(t, 0.07, q.Change)
	assert.Equal(t, 0.83, q.Percentage) // (8.52-8.45)/8.45*100 rounded
	assert.Equal(t, "20250109 15:30:00", q.UpdateAt)
}

func TestParseQuotes_SinaHKStocks(t *testing.T) {
	fields := dataFields(19, map[int]string{
		1:  "TENCENT",
		2:  "腾讯控股",
		3:  "410.00",
		4:  "408.80",
		5:  "415.20",
		6:  "405.60",
		7:  "412.40",
		9:  "0.88",
		18: "2025/01/09",
		19: "15:30",
	})
	quotes, err := ParseQuotes(Sina, HKStocks, sinaQuoteLine("hk00700", fields))
	require.NoError(t, err)
	require.Len(t, quotes, 1)

	q := quotes[0]
	assert.Equal(t, "00700", q.Code) // hk prefix stripped
	assert.Equal(t, "腾讯控股", q.Name)
	assert.Equal(t, 412.40, q.Current)
	assert.Equal(t, 410.00, q.Opening)
	assert.Equal(t, 408.80, q.Close)
	assert.Equal(t, 0.88, q.Percentage) // read from the dedicated token
	assert.Equal(t, Round2(412.40-408.80), q.Change)
	assert.Equal(t, "2025-01-09 15:30:00", q.UpdateAt)
}

func TestParseQuotes_SinaUSStocks(t *testing.T) {
	fields := dataFields(27, map[int]string{
		1:  "Apple Inc",
		2:  "185.50",
		3:  "1.23",
		4:  "2025-01-09 16:00:00",
		6:  "183.20",
		7:  "186.10",
		8:  "182.90",
		27: "183.25",
	})
	quotes, err := ParseQuotes(Sina, USStocks, sinaQuoteLine("gb_aapl", fields))
	require.NoError(t, err)
	require.Len(t, quotes, 1)

	q := quotes[0]
	assert.Equal(t, "AAPL", q.Code) // gb_ prefix stripped
	assert.Equal(t, "Apple Inc", q.Name)
	assert.Equal(t, 185.50, q.Current)
	assert.Equal(t, 183.25, q.Close)
	assert.Equal(t, 1.23, q.Percentage)
	assert.Equal(t, "2025-01-09 16:00:00", q.UpdateAt)
}

func TestParseQuotes_SinaCrypto(t *testing.T) {
	fields := dataFields(12, map[int]string{
		1:  "15:31:01",
		6:  "95000.00",
		7:  "97250.00",
		8:  "94100.00",
		9:  "96500.00",
		12: "2025-01-09",
	})
	quotes, err := ParseQuotes(Sina, Crypto, sinaQuoteLine("btc_btcusd", fields))
	require.NoError(t, err)
	require.Len(t, quotes, 1)

	q := quotes[0]
	assert.Equal(t, "BTCUSD", q.Code) // btc_ prefix stripped
	assert.Equal(t, "BTCUSD", q.Name) // no name token; code stands in
	assert.Equal(t, 96500.00, q.Current)
	assert.Equal(t, 96500.00, q.Close) // no previous close
	assert.Equal(t, Round2(96500.00-95000.00), q.Change)
	assert.Equal(t, Round2(1500.0/95000.0*100), q.Percentage)
	assert.Equal(t, "2025-01-09 15:31:01", q.UpdateAt)
}

func TestParseQuotes_SinaCrypto_ZeroOpening(t *testing.T) {
	fields := dataFields(12, map[int]string{
		1:  "15:31:01",
		6:  "0",
		9:  "96500.00",
		12: "2025-01-09",
	})
	quotes, err := ParseQuotes(Sina, Crypto, sinaQuoteLine("btc_btcusd", fields))
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, 0.0, quotes[0].Percentage) // divide-by-zero guard
	assert.Equal(t, 96500.00, quotes[0].Change)
}

func TestParseQuotes_TencentAShare(t *testing.T) {
	fields := dataFields(35, map[int]string{
		2:  "浦发银行",
		3:  "600000",
		4:  "8.52",
		5:  "8.45",
		6:  "8.50",
		31: "20250109153000",
		34: "8.60",
		35: "8.40",
	})
	quotes, err := ParseQuotes(Tencent, AShare, tencentQuoteLine("v_sh600000", fields))
	require.NoError(t, err)
	require.Len(t, quotes, 1)

	q := quotes[0]
	assert.Equal(t, "SH600000", q.Code)
	assert.Equal(t, "浦发银行", q.Name)
	assert.Equal(t, 8.52, q.Current)
	assert.Equal(t, 8.45, q.Close)
	assert.Equal(t, 8.50, q.Opening)
	assert.Equal(t, 8.60, q.High)
	assert.Equal(t, 8.40, q.Low)
	assert.Equal(t, 0.07, q.Change)
	assert.Equal(t, 0.83, q.Percentage)
	assert.Equal(t, "2025-01-09 15:30:00", q.UpdateAt)
}

func TestParseQuotes_TencentHKStocks(t *testing.T) {
	fields := dataFields(35, map[int]string{
		2:  "腾讯控股",
		4:  "412.40",
		5:  "408.80",
		6:  "410.00",
		31: "2025/01/09 15:30:00",
		34: "415.20",
		35: "405.60",
	})
	quotes, err := ParseQuotes(Tencent, HKStocks, tencentQuoteLine("v_r_hk00700", fields))
	require.NoError(t, err)
	require.Len(t, quotes, 1)

	q := quotes[0]
	assert.Equal(t, "HK00700", q.Code) // no prefix strip for this provider
	assert.Equal(t, "2025-01-09 15:30:00", q.UpdateAt)
	assert.Equal(t, Round2((412.40-408.80)/408.80*100), q.Percentage)
}

func TestParseQuotes_TencentUSStocks(t *testing.T) {
	fields := dataFields(35, map[int]string{
		2:  "Apple Inc",
		4:  "185.50",
		5:  "183.25",
		6:  "183.20",
		31: "2025-01-09 16:00:00",
		34: "186.10",
		35: "182.90",
	})
	quotes, err := ParseQuotes(Tencent, USStocks, tencentQuoteLine("v_r_usaapl", fields))
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "USAAPL", quotes[0].Code)
	assert.Equal(t, "2025-01-09 16:00:00", quotes[0].UpdateAt)
}

func TestParseQuotes_TencentShortLine(t *testing.T) {
	fields := dataFields(9, map[int]string{2: "腾讯控股", 4: "412.40", 5: "408.80"})
	quotes, err := ParseQuotes(Tencent, HKStocks, tencentQuoteLine("v_r_hk00700", fields))
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestParseQuotes_MalformedLines(t *testing.T) {
	cases := []string{
		`var hq_str_sh600000="a,b,c`, // missing closing `";`
		`var hq_str_sh600000=`,
		`random garbage`,
		`v_sh600000=1~2~3`,  // no quotes at all
		`v_sh600000"=1~2~"`, // inverted quote/equals positions
		``,
	}
	for _, line := range cases {
		for _, p := range []Provider{Sina, Tencent} {
			quotes, err := ParseQuotes(p, AShare, line)
			require.NoError(t, err)
			assert.Empty(t, quotes, "provider %s, line %q", p, line)
		}
	}
}

func TestParseQuotes_SkipsBadLinesKeepsGood(t *testing.T) {
	good := dataFields(32, map[int]string{
		1: "Pudong Bank", 2: "8.50", 3: "8.45", 4: "8.52",
		31: "20250109", 32: "15:30:00",
	})
	text := strings.Join([]string{
		`garbage`,
		sinaQuoteLine("sh600000", good),
		`var hq_str_sz000001="too,short";`,
	}, "\n")
	quotes, err := ParseQuotes(Sina, AShare, text)
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "SH600000", quotes[0].Code)
}

func TestParseQuotes_DropsInvalidRecords(t *testing.T) {
	base := map[int]string{
		1: "Pudong Bank", 2: "8.50", 3: "8.45", 4: "8.52",
		31: "20250109", 32: "15:30:00",
	}
	mutate := func(idx int, v string) []string {
		m := make(map[int]string, len(base))
		for k, val := range base {
			m[k] = val
		}
		m[idx] = v
		return dataFields(32, m)
	}

	cases := map[string][]string{
		"missing current":      mutate(4, "--"),
		"unparseable current":  mutate(4, "abc"),
		"non-positive current": mutate(4, "-1.5"),
		"zero current":         mutate(4, "0"),
		"missing close":        mutate(3, ""),
		"blank name":           mutate(1, "  "),
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			quotes, err := ParseQuotes(Sina, AShare, sinaQuoteLine("sh600000", fields))
			require.NoError(t, err)
			assert.Empty(t, quotes)
		})
	}
}

func TestParseQuotes_DropsBadTimestamp(t *testing.T) {
	fields := dataFields(35, map[int]string{
		2: "浦发银行", 4: "8.52", 5: "8.45", 6: "8.50",
		31: "not-a-timestamp", 34: "8.60", 35: "8.40",
	})
	quotes, err := ParseQuotes(Tencent, AShare, tencentQuoteLine("v_sh600000", fields))
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestParseQuotes_UnsupportedPair(t *testing.T) {
	_, err := ParseQuotes(Tencent, Crypto, `v_whatever="1~2";`)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestParseQuotes_PreservesOrderAndDuplicates(t *testing.T) {
	one := sinaQuoteLine("sh600000", dataFields(32, map[int]string{
		1: "First", 2: "8.50", 3: "8.45", 4: "8.52", 31: "20250109", 32: "15:30:00",
	}))
	two := sinaQuoteLine("sz000001", dataFields(32, map[int]string{
		1: "Second", 2: "12.00", 3: "12.10", 4: "12.05", 31: "20250109", 32: "15:30:00",
	}))
	quotes, err := ParseQuotes(Sina, AShare, one+"\n"+two+"\n"+one)
	require.NoError(t, err)
	require.Len(t, quotes, 3)
	assert.Equal(t, "SH600000", quotes[0].Code)
	assert.Equal(t, "SZ000001", quotes[1].Code)
	assert.Equal(t, "SH600000", quotes[2].Code)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported(Sina, Crypto))
	assert.True(t, Supported(Tencent, AShare))
	assert.False(t, Supported(Tencent, Crypto))
}
