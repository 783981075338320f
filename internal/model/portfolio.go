package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// HoldingSnapshot is one position in one symbol as of one valuation date.
type HoldingSnapshot struct {
	DataDate     time.Time
	Symbol       string
	Name         string
	Quantity     decimal.Decimal
	Price        decimal.Decimal
	Value        decimal.Decimal
	AveragePrice decimal.Decimal
	GainLoss     decimal.Decimal
	Currency     Currency
}

// MarketValue returns the recorded value, falling back to price×quantity
// for sources that don't precompute it.
func (h HoldingSnapshot) MarketValue() decimal.Decimal {
	if !h.Value.IsZero() {
		return h.Value
	}
	return h.Price.Mul(h.Quantity)
}

// PortfolioSnapshot is one broker's full holdings export at one date.
type PortfolioSnapshot struct {
	DataDate   time.Time
	Broker     string
	TotalAsset decimal.Decimal
	Items      []HoldingSnapshot
}

type DailyAsset struct {
	Date       time.Time
	TotalAsset decimal.Decimal
}

// DailyChange is one day's total asset with the percentage change from
// the previous recorded day.
type DailyChange struct {
	Date          time.Time
	TotalAsset    decimal.Decimal
	ChangePercent decimal.Decimal
}

// CompositionPoint is the JPY value of every held symbol at one date.
type CompositionPoint struct {
	Date   time.Time
	Values map[string]decimal.Decimal
}

// SymbolHistoryPoint is one day of a symbol's quantity and share of the
// total portfolio. HoldingRate is nil on days the symbol wasn't held so
// chart lines break instead of dropping to zero.
type SymbolHistoryPoint struct {
	Date        time.Time
	Quantity    decimal.Decimal
	HoldingRate *decimal.Decimal
}
