package scraper

import "testing"

func TestExtract_EmbeddedState(t *testing.T) {
	page := `<script>window.__STATE__={"pair":{"symbol":"PEPE","price":"0.00000123","price24h":{"diff":1,"percent":17.3}}}</script>`

	m := Extract(page)
	if !m.OK {
		t.Fatalf("expected OK")
	}
	if m.Name != "PEPE" || m.Price != 0.00000123 || m.Change24h != 17.3 {
		t.Fatalf("unexpected metric %+v", m)
	}
	if m.Degraded() {
		t.Fatalf("expected every field parsed, got %+v", m)
	}
}

func TestExtract_FallsBackToMarkup(t *testing.T) {
	page := `<html><title>DOGE / WBNB</title><body>
<span class="price-value">$0.0042</span>
<div class="change-24h">-12.5%</div>
</body></html>`

	m := Extract(page)
	if m.Name != "DOGE" {
		t.Fatalf("name = %q, want DOGE", m.Name)
	}
	if !m.PriceParsed || m.Price != 0.0042 {
		t.Fatalf("price = %v (parsed %v), want 0.0042", m.Price, m.PriceParsed)
	}
	if !m.ChangeParsed || m.Change24h != -12.5 {
		t.Fatalf("change = %v (parsed %v), want -12.5", m.Change24h, m.ChangeParsed)
	}
}

func TestExtract_UnconvertibleCaptureAdvances(t *testing.T) {
	// first price strategy matches "1.2.3" which does not parse
	page := `{"price":"1.2.3"} <b class="price">$2.5</b> {"price24h":{"percent":"n/a"}} <i class="change24h">+3.25%</i>`

	m := Extract(page)
	if m.Price != 2.5 {
		t.Fatalf("price = %v, want 2.5", m.Price)
	}
	if m.Change24h != 3.25 {
		t.Fatalf("change = %v, want 3.25", m.Change24h)
	}
}

func TestExtract_TotalMiss(t *testing.T) {
	m := Extract("<html><body>maintenance</body></html>")

	if !m.OK {
		t.Fatalf("a fetched page must be OK even when nothing parses")
	}
	if m.Name != UnknownName || m.Price != 0 || m.Change24h != 0 {
		t.Fatalf("expected sentinel values, got %+v", m)
	}
	if m.NameParsed || m.PriceParsed || m.ChangeParsed {
		t.Fatalf("no field should be flagged as parsed: %+v", m)
	}
	if !m.Degraded() {
		t.Fatalf("expected degraded")
	}
}

func TestParsePairURL(t *testing.T) {
	tests := []struct {
		link  string
		chain string
		pair  string
		ok    bool
	}{
		{"https://www.dextools.io/app/en/bnb/pair-explorer/0xAbC123", "bnb", "0xAbC123", true},
		{"https://dextools.io/app/ether/pair-explorer/0x1f2e3d", "", "", false},
		{"  https://www.dextools.io/app/pt/solana/pair-explorer/0xdeadbeef?t=1 ", "solana", "0xdeadbeef", true},
		{"https://example.com/coin/btc-bitcoin/", "", "", false},
	}
	for _, tt := range tests {
		chain, pair, err := ParsePairURL(tt.link)
		if (err == nil) != tt.ok {
			t.Errorf("ParsePairURL(%q) err = %v, want ok=%v", tt.link, err, tt.ok)
			continue
		}
		if chain != tt.chain || pair != tt.pair {
			t.Errorf("ParsePairURL(%q) = (%q, %q), want (%q, %q)", tt.link, chain, pair, tt.chain, tt.pair)
		}
	}
}
