package quote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSuggestions_Sina(t *testing.T) {
	payload := `var suggestvalue="` +
		`浦发银行,11,600000,sh600000,浦发银行;` +
		`平安银行,11,000001,sz000001,平安银行;` +
		`创业板股,11,300750,sz300750,宁德时代;` +
		`沪B,11,900901,sh900901,云赛B股;` +
		`退市股,11,400001,xx400001,三板股票;` +
		`风险股,11,600888,sh600888,ST新疆众和;` +
		`风险股2,11,600889,sh600889,*ST凯撒;` +
		`腾讯,31,00700,hk00700,腾讯控股;` +
		`苹果,41,aapl,gb_aapl,Apple Inc;` +
		`比特币,71,btcusd,btc_btcusd,Bitcoin;` +
		`无关类目,99,123456,x,ignored;` +
		`short,11,600000"`
	got := ParseSuggestions(Sina, payload)
	require.Len(t, got, 7)

	assert.Equal(t, Suggestion{Code: "SH600000", Name: "浦发银行", Market: AShare}, got[0])
	assert.Equal(t, Suggestion{Code: "SZ000001", Name: "平安银行", Market: AShare}, got[1])
	assert.Equal(t, Suggestion{Code: "SZ300750", Name: "宁德时代", Market: AShare}, got[2])
	assert.Equal(t, Suggestion{Code: "SH900901", Name: "云赛B股", Market: AShare}, got[3])
	assert.Equal(t, Suggestion{Code: "00700", Name: "腾讯控股", Market: HKStocks}, got[4])
	assert.Equal(t, Suggestion{Code: "AAPL", Name: "Apple Inc", Market: USStocks}, got[5])
	assert.Equal(t, Suggestion{Code: "BTCUSD", Name: "Bitcoin", Market: Crypto}, got[6])
}

func TestParseSuggestions_SinaNoMatch(t *testing.T) {
	assert.Empty(t, ParseSuggestions(Sina, `var something_else="x";`))
	assert.Empty(t, ParseSuggestions(Sina, ""))
}

func TestParseSuggestions_Tencent(t *testing.T) {
	payload := `v_hint="` +
		`sh600000~600000~浦发银行^` +
		`sz000001~000001~平安银行^` +
		`hk00700~00700~腾讯控股^` +
		`usAAPL~AAPL~Apple Inc^` +
		`xy123~123~other^` +
		`tooshort~x";`
	got := ParseSuggestions(Tencent, payload)
	require.Len(t, got, 3)

	assert.Equal(t, Suggestion{Code: "SH600000", Name: "浦发银行", Market: AShare}, got[0])
	assert.Equal(t, Suggestion{Code: "SZ000001", Name: "平安银行", Market: AShare}, got[1])
	assert.Equal(t, Suggestion{Code: "HK00700", Name: "腾讯控股", Market: HKStocks}, got[2])
}

func TestExchangePrefix(t *testing.T) {
	cases := []struct {
		code   string
		prefix string
		ok     bool
	}{
		{"600000", "sh", true},
		{"900901", "sh", true},
		{"000001", "sz", true},
		{"300750", "sz", true},
		{"400001", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		prefix, ok := exchangePrefix(tc.code)
		assert.Equal(t, tc.ok, ok, "code %q", tc.code)
		assert.Equal(t, tc.prefix, prefix, "code %q", tc.code)
	}
}

func TestUnescapeJava(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`浦发银行`, "浦发银行"},
		{`Apple Inc`, "Apple Inc"},
		{`a\nb\tc`, "a\nb\tc"},
		{`quote\"d`, `quote"d`},
		{`back\\slash`, `back\slash`},
		{`dangling\u12`, `dangling\u12`}, // undecodable, left as-is
		{`trailing\`, `trailing\`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, unescapeJava(tc.in), "input %q", tc.in)
	}
}
