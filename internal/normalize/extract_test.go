package normalize

import "testing"

func TestExtractConvertInfo(t *testing.T) {
	cases := []struct {
		in     string
		wantOK bool
		want   ConvertInfo
	}{
		{"Converted 1.5 BTC to 0.025 ETH ", true, ConvertInfo{"1.5", "BTC", "0.025", "ETH"}},
		{"Converted 2,000 XRP to 1.25 ADA", true, ConvertInfo{"2,000", "XRP", "1.25", "ADA"}},
		{"Converted .5 ETH to 1,000.5 USDC", true, ConvertInfo{".5", "ETH", "1,000.5", "USDC"}},
		{"", false, ConvertInfo{}},
		{"Converted", false, ConvertInfo{}},
		{"Converted 1.5 BTC", false, ConvertInfo{}},
		{"Converted 1.5 BTC to", false, ConvertInfo{}},
		{"Bought 0.01 BTC for 500.00 USD", false, ConvertInfo{}},
		{"I Converted 1 BTC to 2 ETH", false, ConvertInfo{}},
	}
	for _, tc := range cases {
		got, ok := ExtractConvertInfo(tc.in)
		if ok != tc.wantOK || got != tc.want {
			t.Fatalf("ExtractConvertInfo(%q) = %+v, %v; want %+v, %v", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestConvertInfo_Quantities(t *testing.T) {
	info, _ := ExtractConvertInfo("Converted 2,000 XRP to 1,250.5 ADA")
	to, err := info.ToQuantity()
	if err != nil || to.String() != "1250.5" {
		t.Fatalf("to quantity: %v %v", to, err)
	}
	from, err := info.FromQuantity()
	if err != nil || from.String() != "2000" {
		t.Fatalf("from quantity: %v %v", from, err)
	}
}

func TestExtractNoteCurrency(t *testing.T) {
	cases := []struct {
		in     string
		wantOK bool
		want   NoteCurrency
	}{
		{"Bought 0.01 BTC for 500.00 USD", true, NoteCurrency{"USD", "USD"}},
		{"Bought 0.01 BTC for 500.00 USD on BTC-EUR", true, NoteCurrency{"USD", "EUR"}},
		{"Sold 0.5 BTC for £10,000.00 GBP", true, NoteCurrency{"GBP", "GBP"}},
		{"Bought 1 ETH for €1500 EUR on ETH-EUR with fees", true, NoteCurrency{"EUR", "EUR"}},
		{"Bought 0.01 BTC for 500.00 usd on btc-eur", true, NoteCurrency{"usd", "eur"}}, // case kept as written
		{"", false, NoteCurrency{}},
		{"for 10 USD", false, NoteCurrency{}},
		{"Bought 0.01 BTC", false, NoteCurrency{}},
		{"Bought 0.01 BTC for USD", false, NoteCurrency{}},
	}
	for _, tc := range cases {
		got, ok := ExtractNoteCurrency(tc.in)
		if ok != tc.wantOK || got != tc.want {
			t.Fatalf("ExtractNoteCurrency(%q) = %+v, %v; want %+v, %v", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}
