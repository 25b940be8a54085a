package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"SupraView/internal/domain/models"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

// assetSource scripts responses per instrument id; repeated calls for the
// same instrument consume the script in order.
type assetSource struct {
	mu     sync.Mutex
	script map[string][]func(models.QuoteQuery) ([]models.Quote, error)
	calls  map[string]int
}

func newAssetSource() *assetSource {
	return &assetSource{
		script: map[string][]func(models.QuoteQuery) ([]models.Quote, error){},
		calls:  map[string]int{},
	}
}

func (s *assetSource) on(instrumentID string, fns ...func(models.QuoteQuery) ([]models.Quote, error)) {
	s.script[instrumentID] = fns
}

func (s *assetSource) FetchQuotes(_ context.Context, q models.QuoteQuery) ([]models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fns := s.script[q.InstrumentID]
	if len(fns) == 0 {
		return nil, models.EmptyResultError("unscripted instrument " + q.InstrumentID)
	}
	i := s.calls[q.InstrumentID]
	s.calls[q.InstrumentID]++
	if i >= len(fns) {
		i = len(fns) - 1
	}
	return fns[i](q)
}

func (s *assetSource) callsFor(instrumentID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[instrumentID]
}

func snapshotConfig() SnapshotConfig {
	return SnapshotConfig{
		Range:              24 * time.Hour,
		GranularitySeconds: 60,
		RetryWait:          5 * time.Millisecond,
		DefaultDeposits:    "0",
		DefaultBorrows:     "0",
		DefaultLTV:         "80",
		DefaultBW:          "90",
		DefaultDepositAPR:  "5",
		DefaultBorrowAPR:   "8",
	}
}

func findRow(t *testing.T, rows []models.AssetSnapshot, name string) models.AssetSnapshot {
	t.Helper()
	for _, r := range rows {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("row %q not found in %d rows", name, len(rows))
	return models.AssetSnapshot{}
}

func TestSnapshotComputesPriceAndChange(t *testing.T) {
	now := time.Now()
	source := newAssetSource()
	source.on("1", fixedQuotes(
		quoteAt(now.Add(-24*time.Hour), "100"),
		quoteAt(now, "110"),
		quoteAt(now.Add(-12*time.Hour), "105"),
	))

	assets := []models.TrackedAsset{{Name: "ETH", InstrumentID: "1", Pair: "ETH/USDT"}}
	b := NewSnapshotBuilder(snapshotConfig(), assets, source, nil, nil)
	if err := b.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	row := findRow(t, b.Current(), "ETH")
	if row.Price != "110" {
		t.Errorf("price = %q, want 110 (greatest timestamp wins, not position)", row.Price)
	}
	// Previous is the greatest strictly earlier timestamp: 105, not 100.
	want := models.PercentChange(mustDecimal(t, "110"), mustDecimal(t, "105"))
	if row.PriceChange != want {
		t.Errorf("priceChange = %v, want %v", row.PriceChange, want)
	}
	if row.Status != models.StatusActive {
		t.Errorf("status = %q, want active", row.Status)
	}
	if row.DataPair != "ETH/USDT" {
		t.Errorf("dataPair = %q", row.DataPair)
	}
	if row.LTV != "80" || row.BW != "90" {
		t.Errorf("pool defaults not applied: ltv=%q bw=%q", row.LTV, row.BW)
	}
}

func TestSnapshotSingleQuoteHasZeroChange(t *testing.T) {
	source := newAssetSource()
	source.on("1", fixedQuotes(quoteAt(time.Now(), "42")))

	assets := []models.TrackedAsset{{Name: "ETH", InstrumentID: "1", Pair: "ETH/USDT"}}
	b := NewSnapshotBuilder(snapshotConfig(), assets, source, nil, nil)
	if err := b.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	row := findRow(t, b.Current(), "ETH")
	if row.Price != "42" || row.PriceChange != 0 {
		t.Errorf("got price=%q change=%v, want 42 / 0", row.Price, row.PriceChange)
	}
}

func TestSnapshotRetryAfterFailure(t *testing.T) {
	now := time.Now()
	source := newAssetSource()
	source.on("1",
		fixedErr(models.TransportErrorf("catalog quotes", context.DeadlineExceeded)),
		fixedQuotes(quoteAt(now, "7.5"), quoteAt(now.Add(-time.Hour), "7.0")),
	)

	assets := []models.TrackedAsset{{Name: "ETH", InstrumentID: "1", Pair: "ETH/USDT"}}
	b := NewSnapshotBuilder(snapshotConfig(), assets, source, nil, nil)
	if err := b.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	row := findRow(t, b.Current(), "ETH")
	if row.Price != "7.5" {
		t.Errorf("retry price = %q, want first element 7.5", row.Price)
	}
	if row.PriceChange != 0 {
		t.Errorf("retry priceChange = %v, want 0", row.PriceChange)
	}
	if row.Status != models.StatusActive {
		t.Errorf("status = %q, want active after successful retry", row.Status)
	}
	if got := source.callsFor("1"); got != 2 {
		t.Errorf("calls = %d, want exactly 2 (one retry)", got)
	}
}

func TestSnapshotErrorRowAfterExhaustedRetry(t *testing.T) {
	source := newAssetSource()
	source.on("1", fixedErr(models.TransportErrorf("catalog quotes", context.DeadlineExceeded)))

	assets := []models.TrackedAsset{{Name: "ETH", InstrumentID: "1", Pair: "ETH/USDT"}}
	b := NewSnapshotBuilder(snapshotConfig(), assets, source, nil, nil)
	if err := b.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	row := findRow(t, b.Current(), "ETH")
	if row.Price != "0" || row.PriceChange != 0 || row.Status != models.StatusError {
		t.Errorf("error row = %+v, want price 0, change 0, status error", row)
	}
	if row.LTV != "80" {
		t.Error("error rows keep placeholder pool defaults")
	}
	if got := source.callsFor("1"); got != 2 {
		t.Errorf("calls = %d, want 2 (single retry then give up)", got)
	}
}

func TestSnapshotPerAssetIsolation(t *testing.T) {
	now := time.Now()
	source := newAssetSource()
	source.on("1", fixedQuotes(quoteAt(now, "3000")))
	source.on("2", fixedErr(models.TransportErrorf("catalog quotes", context.DeadlineExceeded)))

	assets := []models.TrackedAsset{
		{Name: "ETH", InstrumentID: "1", Pair: "ETH/USDT"},
		{Name: "BTC", InstrumentID: "2", Pair: "BTC/USDT"},
	}
	b := NewSnapshotBuilder(snapshotConfig(), assets, source, nil, nil)
	if err := b.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if row := findRow(t, b.Current(), "ETH"); row.Status != models.StatusActive || row.Price != "3000" {
		t.Errorf("healthy asset degraded by sibling failure: %+v", row)
	}
	if row := findRow(t, b.Current(), "BTC"); row.Status != models.StatusError {
		t.Errorf("failing asset should be an error row: %+v", row)
	}
}

func TestSnapshotStablePinnedOnEveryPath(t *testing.T) {
	tests := []struct {
		name   string
		script []func(models.QuoteQuery) ([]models.Quote, error)
	}{
		{"fetch succeeds", []func(models.QuoteQuery) ([]models.Quote, error){
			fixedQuotes(quoteAt(time.Now(), "0.9987"), quoteAt(time.Now().Add(-time.Hour), "1.0012")),
		}},
		{"fetch fails", []func(models.QuoteQuery) ([]models.Quote, error){
			fixedErr(models.TransportErrorf("catalog quotes", context.DeadlineExceeded)),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := newAssetSource()
			source.on("2", tt.script...)

			assets := []models.TrackedAsset{{Name: "HUSDC", InstrumentID: "2", Pair: "USDC/USDT", Stable: true}}
			b := NewSnapshotBuilder(snapshotConfig(), assets, source, nil, nil)
			if err := b.Refresh(context.Background()); err != nil {
				t.Fatalf("Refresh: %v", err)
			}

			row := findRow(t, b.Current(), "HUSDC")
			if row.Price != "1.00" || row.PriceChange != 0 {
				t.Errorf("stable row = price %q change %v, want pinned 1.00 / 0", row.Price, row.PriceChange)
			}
		})
	}
}

func TestSnapshotAliasExpansion(t *testing.T) {
	now := time.Now()
	source := newAssetSource()
	source.on("1009", fixedQuotes(quoteAt(now, "5.5"), quoteAt(now.Add(-time.Hour), "5.0")))

	assets := []models.TrackedAsset{{
		Name:         "SUP",
		InstrumentID: "1009",
		Pair:         "SUPRA/USDT",
		Aliases:      []string{"WSUP"},
	}}
	b := NewSnapshotBuilder(snapshotConfig(), assets, source, nil, nil)
	if err := b.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	rows := b.Current()
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 (base + alias)", len(rows))
	}
	if rows[0].Name != "SUP" || rows[1].Name != "WSUP" {
		t.Errorf("row order = %q, %q, want base first then alias", rows[0].Name, rows[1].Name)
	}
	if rows[0].Price != rows[1].Price || rows[0].PriceChange != rows[1].PriceChange {
		t.Error("alias row must share the base row's price fields")
	}
	if got := source.callsFor("1009"); got != 1 {
		t.Errorf("calls = %d, want 1 (aliases never fetch separately)", got)
	}
}

func TestSnapshotFullTableBuild(t *testing.T) {
	now := time.Now()
	source := newAssetSource()
	// SUP (aliased by WSUP): clean 100 -> 110 over the window.
	source.on("1009", fixedQuotes(
		quoteAt(now, "110"),
		quoteAt(now.Add(-24*time.Hour), "100"),
	))
	// ETH: fails on both attempts.
	source.on("1", fixedErr(models.TransportErrorf("catalog quotes", context.DeadlineExceeded)))
	// HUSDC: stable, feed value must be ignored.
	source.on("2", fixedQuotes(quoteAt(now, "0.9991")))

	assets := []models.TrackedAsset{
		{Name: "SUP", InstrumentID: "1009", Pair: "SUPRA/USDT", Aliases: []string{"WSUP"}},
		{Name: "ETH", InstrumentID: "1", Pair: "ETH/USDT"},
		{Name: "HUSDC", InstrumentID: "2", Pair: "USDC/USDT", Stable: true},
	}
	b := NewSnapshotBuilder(snapshotConfig(), assets, source, nil, nil)
	if err := b.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	rows := b.Current()
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4 (SUP, WSUP, ETH, HUSDC)", len(rows))
	}
	order := []string{"SUP", "WSUP", "ETH", "HUSDC"}
	for i, name := range order {
		if rows[i].Name != name {
			t.Fatalf("row %d = %q, want %q", i, rows[i].Name, name)
		}
	}

	for _, name := range []string{"SUP", "WSUP"} {
		row := findRow(t, rows, name)
		if row.Price != "110" || row.PriceChange != 10.00 || row.Status != models.StatusActive {
			t.Errorf("%s = price %q change %v status %q, want 110 / 10.00 / active",
				name, row.Price, row.PriceChange, row.Status)
		}
	}

	eth := findRow(t, rows, "ETH")
	if eth.Price != "0" || eth.PriceChange != 0 || eth.Status != models.StatusError {
		t.Errorf("ETH = %+v, want error row with price 0", eth)
	}
	if eth.LTV != "80" || eth.BW != "90" || eth.DepositAPR != "5" || eth.BorrowAPR != "8" {
		t.Errorf("ETH placeholder figures = %+v", eth)
	}

	husdc := findRow(t, rows, "HUSDC")
	if husdc.Price != "1.00" || husdc.PriceChange != 0 || husdc.Status != models.StatusActive {
		t.Errorf("HUSDC = price %q change %v status %q, want pinned 1.00 / 0 / active",
			husdc.Price, husdc.PriceChange, husdc.Status)
	}
}

func TestSnapshotWholesaleReplacement(t *testing.T) {
	now := time.Now()
	source := newAssetSource()
	source.on("1",
		fixedQuotes(quoteAt(now, "100")),
		fixedQuotes(quoteAt(now.Add(time.Minute), "200")),
	)

	assets := []models.TrackedAsset{{Name: "ETH", InstrumentID: "1", Pair: "ETH/USDT"}}
	b := NewSnapshotBuilder(snapshotConfig(), assets, source, nil, nil)

	if b.Current() != nil {
		t.Fatal("Current() should be nil before the first refresh")
	}
	if err := b.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	first := b.Current()

	if err := b.Refresh(context.Background()); err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
	second := b.Current()

	if findRow(t, first, "ETH").Price != "100" {
		t.Error("earlier slice mutated by later refresh")
	}
	if findRow(t, second, "ETH").Price != "200" {
		t.Error("refresh did not replace the table")
	}
}
