package profitloss

import (
	"log/slog"

	"github.com/atukutisuzume/portfolio-visualizer/internal/model"
	"github.com/shopspring/decimal"
)

// lot tracks the unconsumed remainder of one buy trade during matching.
type lot struct {
	price     decimal.Decimal
	remaining decimal.Decimal
}

// MatchSells computes realized P/L for every sell in the period by
// consuming buy lots oldest-first.
//
// The input must already be scoped to one (symbol, accountType,
// currency) group and sorted ascending by trade date; MatchSells never
// re-sorts. The lot head pointer is monotonic: a fully consumed lot is
// never revisited, and later sells continue from where earlier sells
// left off.
//
// A sell that exhausts all lots is matched at zero cost for the
// shortfall: the average buy price covers only the matched quantity,
// realized P/L still spans the full sell quantity. That case logs a
// warning and keeps going.
func MatchSells(trades []model.Trade, period Period) []model.ProfitLossRecord {
	var lots []lot
	var sells []model.Trade
	for _, t := range trades {
		switch t.Side {
		case model.SideBuy:
			lots = append(lots, lot{price: t.Price, remaining: t.Quantity})
		case model.SideSell:
			if period.Matches(t.DateString()) {
				sells = append(sells, t)
			}
		}
	}

	records := make([]model.ProfitLossRecord, 0, len(sells))
	head := 0

	for _, sell := range sells {
		sellRemaining := sell.Quantity
		totalCost := decimal.Zero

		for head < len(lots) && sellRemaining.IsPositive() {
			l := &lots[head]
			if l.remaining.IsPositive() {
				consumed := decimal.Min(sellRemaining, l.remaining)
				totalCost = totalCost.Add(consumed.Mul(l.price))
				l.remaining = l.remaining.Sub(consumed)
				sellRemaining = sellRemaining.Sub(consumed)
			}
			if l.remaining.IsZero() {
				head++
			}
		}

		if sellRemaining.IsPositive() {
			slog.Warn(
				"sell quantity exceeds available buy history, shortfall matched at zero cost",
				slog.String("symbol", sell.Symbol),
				slog.String("sellDate", sell.DateString()),
				slog.String("unmatchedQuantity", sellRemaining.String()),
			)
		}

		matched := sell.Quantity.Sub(sellRemaining)
		avgBuyPrice := decimal.Zero
		if matched.IsPositive() {
			avgBuyPrice = totalCost.Div(matched)
		}

		records = append(records, model.ProfitLossRecord{
			Symbol:      sell.Symbol,
			Name:        sell.Name,
			SellDate:    sell.DateString(),
			Quantity:    sell.Quantity,
			SellPrice:   sell.Price,
			AvgBuyPrice: avgBuyPrice,
			ProfitLoss:  sell.Price.Sub(avgBuyPrice).Mul(sell.Quantity),
			Currency:    sell.Currency,
		})
	}

	return records
}
