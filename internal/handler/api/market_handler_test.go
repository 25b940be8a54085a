package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"SupraView/internal/domain/models"
	"SupraView/internal/usecase"
)

type staticQuotes struct {
	quotes []models.Quote
}

func (s staticQuotes) FetchQuotes(context.Context, models.QuoteQuery) ([]models.Quote, error) {
	return s.quotes, nil
}

type staticViews struct {
	tuple []json.RawMessage
}

func (s staticViews) CallView(context.Context, string, []string, []interface{}) ([]json.RawMessage, error) {
	return s.tuple, nil
}

func testHandler(t *testing.T, source staticQuotes, views staticViews) *MarketHandler {
	t.Helper()

	poller := usecase.NewPricePoller(usecase.PollerConfig{
		Pair:         "SUPRA/USDT",
		InstrumentID: "1009",
		Interval:     time.Hour,
	}, source, nil, nil)

	snapshots := usecase.NewSnapshotBuilder(usecase.SnapshotConfig{
		RetryWait:       time.Millisecond,
		DefaultDeposits: "0", DefaultBorrows: "0",
		DefaultLTV: "80", DefaultBW: "90",
		DefaultDepositAPR: "5", DefaultBorrowAPR: "8",
	}, []models.TrackedAsset{{Name: "SUP", InstrumentID: "1009", Pair: "SUPRA/USDT"}}, source, nil, nil)

	pools := usecase.NewPoolAggregator(usecase.PoolsConfig{
		MetricsFunction: "0xdead::lending_market::view_pool_metrics",
	}, []models.Coin{{Symbol: "SUP", TypeTag: "0x1::sup::T", Decimals: 8}}, views, nil, nil)

	positions := usecase.NewPositionReconciler(usecase.PositionsConfig{
		BalanceFunction:    "0x1::coin::balance",
		ObligationFunction: "0xbeef::obligation::view_obligation",
	}, []models.Coin{{Symbol: "SUP", TypeTag: "0x1::sup::T", Decimals: 8}}, views, nil, nil)

	return NewMarketHandler(poller, snapshots, pools, positions)
}

func doRequest(t *testing.T, h echo.HandlerFunc, target string) (int, map[string]json.RawMessage) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest("GET", target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	var status int
	if err := json.Unmarshal(body["status"], &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	return status, body
}

func TestGetPriceBeforeFirstCycle(t *testing.T) {
	h := testHandler(t, staticQuotes{}, staticViews{})
	status, _ := doRequest(t, h.GetPrice, "/api/price")
	if status != 404 {
		t.Errorf("status = %d, want 404 before any data", status)
	}
}

func TestGetAssetsEmptyIsArray(t *testing.T) {
	h := testHandler(t, staticQuotes{}, staticViews{})
	status, body := doRequest(t, h.GetAssets, "/api/assets")
	if status != 200 {
		t.Fatalf("status = %d, want 200", status)
	}
	if string(body["data"]) != "[]" {
		t.Errorf("data = %s, want [] not null", body["data"])
	}
}

func TestGetAssetsReturnsTable(t *testing.T) {
	now := time.Now()
	source := staticQuotes{quotes: []models.Quote{
		{Timestamp: now, Average: decimal.RequireFromString("5.5")},
		{Timestamp: now.Add(-time.Hour), Average: decimal.RequireFromString("5.0")},
	}}
	h := testHandler(t, source, staticViews{})
	if err := h.snapshots.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	status, body := doRequest(t, h.GetAssets, "/api/assets")
	if status != 200 {
		t.Fatalf("status = %d, want 200", status)
	}
	var rows []models.AssetSnapshot
	if err := json.Unmarshal(body["data"], &rows); err != nil {
		t.Fatalf("decode rows: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "SUP" || rows[0].Price != "5.5" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestGetPositionsRequiresAccount(t *testing.T) {
	h := testHandler(t, staticQuotes{}, staticViews{})
	status, body := doRequest(t, h.GetPositions, "/api/positions")
	if status != 400 {
		t.Fatalf("status = %d, want 400 without account", status)
	}
	if !strings.Contains(string(body["data"]), "Account") {
		t.Errorf("validation detail missing from %s", body["data"])
	}
}

func TestGetPositionsReturnsMergedMap(t *testing.T) {
	views := staticViews{tuple: []json.RawMessage{
		json.RawMessage(`"300000000"`),
		json.RawMessage(`"100000000"`),
		json.RawMessage(`"7500"`),
		json.RawMessage(`"8500"`),
	}}
	h := testHandler(t, staticQuotes{}, views)

	status, body := doRequest(t, h.GetPositions, "/api/positions?account=0xabc")
	if status != 200 {
		t.Fatalf("status = %d, want 200", status)
	}

	var resp struct {
		Account   string                           `json:"account"`
		Positions map[string]models.WalletPosition `json:"positions"`
	}
	if err := json.Unmarshal(body["data"], &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Account != "0xabc" {
		t.Errorf("account = %q", resp.Account)
	}
	pos, ok := resp.Positions["SUP"]
	if !ok {
		t.Fatal("SUP position missing")
	}
	if !pos.Amount.Equal(decimal.RequireFromString("3")) {
		t.Errorf("amount = %s, want 3", pos.Amount)
	}
	if !pos.Borrowed.Equal(decimal.RequireFromString("1")) {
		t.Errorf("borrowed = %s, want 1", pos.Borrowed)
	}
}
