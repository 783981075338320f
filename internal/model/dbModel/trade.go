package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Trade struct {
	ID          int64           `db:"id"`
	TradeDate   time.Time       `db:"trade_date"`
	Symbol      string          `db:"symbol"`
	Name        string          `db:"name"`
	Market      string          `db:"market"`
	AccountType string          `db:"account_type"`
	TradeType   string          `db:"trade_type"`
	Side        string          `db:"side"`
	Quantity    decimal.Decimal `db:"quantity"`
	Price       decimal.Decimal `db:"price"`
	Amount      decimal.Decimal `db:"amount"`
	Currency    string          `db:"currency"`
	Source      string          `db:"source"`
}
