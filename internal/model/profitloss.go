package model

import "github.com/shopspring/decimal"

// ProfitLossRecord is one sell event's realized outcome from FIFO lot
// matching.
type ProfitLossRecord struct {
	Symbol      string
	Name        string
	SellDate    string
	Quantity    decimal.Decimal
	SellPrice   decimal.Decimal
	AvgBuyPrice decimal.Decimal
	ProfitLoss  decimal.Decimal
	Currency    Currency
}

// SymbolProfitLoss aggregates every realized record of one symbol with
// volume-weighted average prices.
type SymbolProfitLoss struct {
	Symbol       string
	Name         string
	Quantity     decimal.Decimal
	AvgSellPrice decimal.Decimal
	AvgBuyPrice  decimal.Decimal
	ProfitLoss   decimal.Decimal
	Currency     Currency
}

type ProfitLossSummary struct {
	TotalProfitLoss decimal.Decimal
	WinningTrades   int
	WinningAmount   decimal.Decimal
	LosingTrades    int
	LosingAmount    decimal.Decimal
	WinRate         decimal.Decimal
	PayoffRatio     decimal.Decimal
}

// MonthlyProfitLoss is realized P/L of one calendar month, converted to
// JPY so cross-currency months combine into one number.
type MonthlyProfitLoss struct {
	Month      string
	ProfitLoss decimal.Decimal
}

// SymbolPeriodPL is one symbol's P/L for a calendar month, reconciled
// from boundary snapshots and in-month trades. Monetary fields are
// JPY-denominated.
type SymbolPeriodPL struct {
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	Currency     Currency        `json:"currency"`
	StartValue   decimal.Decimal `json:"startValue"`
	EndValue     decimal.Decimal `json:"endValue"`
	BoughtAmount decimal.Decimal `json:"boughtAmount"`
	SoldAmount   decimal.Decimal `json:"soldAmount"`
	RealizedPl   decimal.Decimal `json:"realizedPl"`
	UnrealizedPl decimal.Decimal `json:"unrealizedPl"`
	TotalPl      decimal.Decimal `json:"totalPl"`
	PlPercentage decimal.Decimal `json:"plPercentage"`
}

// MonthlyReconciliation is the full monthly symbol P/L response, shaped
// for caching.
type MonthlyReconciliation struct {
	Month           string           `json:"month"`
	Results         []SymbolPeriodPL `json:"results"`
	TotalAssetAtEnd decimal.Decimal  `json:"totalAssetAtEnd"`
}
