package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is one price observation for a trading pair at a point in time.
// Values keep the feed's full decimal precision; never round-trip through float64.
type Quote struct {
	Timestamp time.Time       `json:"timestamp"`
	Average   decimal.Decimal `json:"average"`
	Median    decimal.Decimal `json:"median"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
}

// CatalogInfo identifies the feed a quote came from.
type CatalogInfo struct {
	Pair     string `json:"pair"`
	Index    string `json:"index"`
	Provider string `json:"provider"`
}

// PriceUpdate is a quote plus its source metadata, emitted once per
// successful poll cycle.
type PriceUpdate struct {
	Quote
	CatalogInfo CatalogInfo `json:"catalogInfo"`
}

// QuoteQuery describes one request against the price catalog.
// The remote returns quotes in its own order; callers that need
// latest/previous must compare timestamps, not positions.
type QuoteQuery struct {
	InstrumentID string
	Pair         string
	Start        time.Time
	End          time.Time
	Granularity  int // sampling interval in seconds
	ForceUpdate  bool
}

// Direction is the trend signal over the recent history window.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	// DirectionNone means no signal: empty window or equal endpoints.
	DirectionNone Direction = ""
)
