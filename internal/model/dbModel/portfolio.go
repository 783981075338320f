package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type PortfolioItem struct {
	ID           int64           `db:"id"`
	PortfolioID  int64           `db:"portfolio_id"`
	DataDate     time.Time       `db:"data_date"`
	Symbol       string          `db:"code"`
	Name         string          `db:"name"`
	Quantity     decimal.Decimal `db:"quantity"`
	Price        decimal.Decimal `db:"price"`
	Value        decimal.Decimal `db:"value"`
	AveragePrice decimal.Decimal `db:"average_price"`
	GainLoss     decimal.Decimal `db:"gain_loss"`
	Currency     string          `db:"currency"`
}

type DailyAsset struct {
	DataDate   time.Time       `db:"data_date"`
	TotalAsset decimal.Decimal `db:"total_asset"`
}
