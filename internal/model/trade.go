package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

type Currency string

const (
	CurrencyJPY Currency = "JPY"
	CurrencyUSD Currency = "USD"
)

// Rate returns the conversion factor into JPY. Every currency except USD
// passes through at 1.
func (c Currency) Rate(usdJpy decimal.Decimal) decimal.Decimal {
	if c == CurrencyUSD {
		return usdJpy
	}
	return decimal.NewFromInt(1)
}

type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

type Trade struct {
	ID          int64
	TradeDate   time.Time
	Symbol      string
	Name        string
	Market      string
	AccountType string
	TradeType   string
	Side        TradeSide
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	Amount      decimal.Decimal
	Currency    Currency
	Source      string
}

// DateString renders the trade date in the ISO form period prefixes are
// matched against.
func (t Trade) DateString() string {
	return t.TradeDate.Format(DateLayout)
}
