package models

import "github.com/shopspring/decimal"

// Asset row statuses.
const (
	StatusActive = "active"
	StatusError  = "error"
)

// TrackedAsset is the static descriptor for one asset on the markets table.
// A descriptor with aliases expands into one row per alias name in addition
// to its own row, all sharing the same computed price fields.
type TrackedAsset struct {
	Name         string   `yaml:"name"`
	InstrumentID string   `yaml:"instrument_id"`
	Pair         string   `yaml:"pair"`
	DisplayName  string   `yaml:"display_name"`
	Stable       bool     `yaml:"stable"`
	Aliases      []string `yaml:"aliases"`
}

// Coin maps a display symbol to its on-chain coin type and decimal exponent.
// The exponent is configuration, not inferred protocol truth; a coin with no
// explicit exponent is rejected at config load.
type Coin struct {
	Symbol   string `yaml:"symbol"`
	TypeTag  string `yaml:"type_tag"`
	Decimals int32  `yaml:"decimals"`
}

// AssetSnapshot is one rendered row of the asset table. Rows with
// Status "error" exhausted the fetch fallback; their pool figures stay at
// placeholder defaults even when a price resolved.
type AssetSnapshot struct {
	Name        string  `json:"name"`
	Deposits    string  `json:"deposits"`
	Borrows     string  `json:"borrows"`
	LTV         string  `json:"ltv"`
	BW          string  `json:"bw"`
	DepositAPR  string  `json:"depositApr"`
	BorrowAPR   string  `json:"borrowApr"`
	Price       string  `json:"price"`
	PriceChange float64 `json:"priceChange"`
	DataPair    string  `json:"dataPair"`
	Status      string  `json:"status"`
}

// PoolMetrics holds protocol-level figures for one pool, normalized to
// human scale. A symbol absent from the metrics map means the fetch failed
// or has not happened yet, which is distinct from zero values.
type PoolMetrics struct {
	Deposits decimal.Decimal `json:"deposits"`
	Borrows  decimal.Decimal `json:"borrows"`
	LTV      decimal.Decimal `json:"ltv"`
	BW       decimal.Decimal `json:"bw"`
}

// Obligation is a wallet's collateral and debt against the lending protocol
// for one asset.
type Obligation struct {
	CollateralAmount     decimal.Decimal `json:"collateralAmount"`
	DebtAmount           decimal.Decimal `json:"debtAmount"`
	LTV                  decimal.Decimal `json:"ltv"`
	LiquidationThreshold decimal.Decimal `json:"liquidationThreshold"`
}

// WalletPosition is the consolidated per-asset view of a connected account:
// its coin balance merged with any obligation against the same symbol.
type WalletPosition struct {
	Asset      string          `json:"asset"`
	Amount     decimal.Decimal `json:"amount"`
	USDPrice   decimal.Decimal `json:"usdPrice"`
	TotalValue decimal.Decimal `json:"totalValue"`
	Borrowed   decimal.Decimal `json:"borrowed"`
	Collateral decimal.Decimal `json:"collateral"`
}
