package models

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// RatioDecimals is the fixed-point exponent for lending-market ratios
// (LTV, borrow weight). It is a protocol constant independent of asset
// decimals. Obligation ratios use basis points instead; the two remote
// modules encode ratios differently and must not share a constant.
const RatioDecimals = 18

// BasisPointDivisor normalizes obligation LTV and liquidation threshold.
var BasisPointDivisor = decimal.NewFromInt(100)

// NormalizeRaw converts a raw integer-scaled view-call value into a
// human-scale decimal by shifting decimals places. Exact: no float math.
func NormalizeRaw(raw json.RawMessage, decimals int32) (decimal.Decimal, error) {
	s, err := rawNumber(raw)
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, NormalizationErrorf("normalize", "parse %q: %v", s, err)
	}
	return d.Shift(-decimals), nil
}

// NormalizeRatio divides a raw ratio value by divisor.
func NormalizeRatio(raw json.RawMessage, divisor decimal.Decimal) (decimal.Decimal, error) {
	s, err := rawNumber(raw)
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, NormalizationErrorf("normalize", "parse %q: %v", s, err)
	}
	return d.Div(divisor), nil
}

// rawNumber accepts both JSON string and JSON number encodings; the RPC
// returns u64/u128 values as strings and smaller ones as numbers.
func rawNumber(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", NormalizationErrorf("normalize", "missing value")
	}
	if raw[0] == '"' {
		s, err := strconv.Unquote(string(raw))
		if err != nil {
			return "", NormalizationErrorf("normalize", "unquote %s: %v", raw, err)
		}
		return s, nil
	}
	return string(raw), nil
}

// PercentChange computes (latest-previous)/previous*100 rounded to two
// decimal places. A nil or zero previous yields 0 exactly, never NaN or Inf.
func PercentChange(latest, previous decimal.Decimal) float64 {
	if previous.IsZero() {
		return 0
	}
	change := latest.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100))
	f, _ := change.Round(2).Float64()
	return f
}
