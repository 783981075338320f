package profitloss

import (
	"sort"

	"github.com/atukutisuzume/portfolio-visualizer/internal/model"
	"github.com/shopspring/decimal"
)

type groupKey struct {
	symbol      string
	accountType string
	currency    model.Currency
}

// Result carries everything one aggregation pass produces.
type Result struct {
	Records           []model.ProfitLossRecord
	Symbols           []model.SymbolProfitLoss
	SummaryByCurrency map[model.Currency]model.ProfitLossSummary
	// Monthly is populated only for the "all" period: realized P/L per
	// YYYY-MM, USD amounts converted at the fixed rate.
	Monthly []model.MonthlyProfitLoss
}

// Aggregate groups trades by (symbol, accountType, currency), sorts each
// group by trade date ascending, runs FIFO matching per group and merges
// the realized records into per-symbol and per-currency summaries.
//
// Group iteration runs in sorted key order so repeated runs over the
// same input produce identical output.
func Aggregate(trades []model.Trade, period Period, usdJpy decimal.Decimal) Result {
	groups := make(map[groupKey][]model.Trade)
	for _, t := range trades {
		k := groupKey{symbol: t.Symbol, accountType: t.AccountType, currency: t.Currency}
		groups[k] = append(groups[k], t)
	}

	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.symbol != b.symbol {
			return a.symbol < b.symbol
		}
		if a.accountType != b.accountType {
			return a.accountType < b.accountType
		}
		return a.currency < b.currency
	})

	res := Result{
		SummaryByCurrency: make(map[model.Currency]model.ProfitLossSummary),
	}

	for _, k := range keys {
		group := groups[k]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].TradeDate.Before(group[j].TradeDate)
		})

		records := MatchSells(group, period)
		res.Records = append(res.Records, records...)

		for _, rec := range records {
			summary := res.SummaryByCurrency[rec.Currency]
			summary.TotalProfitLoss = summary.TotalProfitLoss.Add(rec.ProfitLoss)
			if rec.ProfitLoss.IsPositive() {
				summary.WinningTrades++
				summary.WinningAmount = summary.WinningAmount.Add(rec.ProfitLoss)
			} else if rec.ProfitLoss.IsNegative() {
				summary.LosingTrades++
				summary.LosingAmount = summary.LosingAmount.Add(rec.ProfitLoss)
			}
			res.SummaryByCurrency[rec.Currency] = summary
		}
	}

	res.Symbols = summarizeSymbols(res.Records)

	for currency, summary := range res.SummaryByCurrency {
		summary.WinRate = winRate(summary)
		summary.PayoffRatio = payoffRatio(summary)
		res.SummaryByCurrency[currency] = summary
	}

	if period.IsAll() {
		res.Monthly = bucketByMonth(res.Records, usdJpy)
	}

	return res
}

// summarizeSymbols folds the flat record list into one row per symbol
// with volume-weighted average sell and buy prices. Name and currency
// come from the first record seen for the symbol.
func summarizeSymbols(records []model.ProfitLossRecord) []model.SymbolProfitLoss {
	type acc struct {
		name           string
		currency       model.Currency
		quantity       decimal.Decimal
		totalSellValue decimal.Decimal
		totalBuyValue  decimal.Decimal
		profitLoss     decimal.Decimal
	}

	accs := make(map[string]*acc)
	var order []string
	for _, rec := range records {
		a, ok := accs[rec.Symbol]
		if !ok {
			a = &acc{name: rec.Name, currency: rec.Currency}
			accs[rec.Symbol] = a
			order = append(order, rec.Symbol)
		}
		a.quantity = a.quantity.Add(rec.Quantity)
		a.totalSellValue = a.totalSellValue.Add(rec.SellPrice.Mul(rec.Quantity))
		a.totalBuyValue = a.totalBuyValue.Add(rec.AvgBuyPrice.Mul(rec.Quantity))
		a.profitLoss = a.profitLoss.Add(rec.ProfitLoss)
	}

	symbols := make([]model.SymbolProfitLoss, 0, len(order))
	for _, symbol := range order {
		a := accs[symbol]
		avgSell, avgBuy := decimal.Zero, decimal.Zero
		if a.quantity.IsPositive() {
			avgSell = a.totalSellValue.Div(a.quantity)
			avgBuy = a.totalBuyValue.Div(a.quantity)
		}
		symbols = append(symbols, model.SymbolProfitLoss{
			Symbol:       symbol,
			Name:         a.name,
			Quantity:     a.quantity,
			AvgSellPrice: avgSell,
			AvgBuyPrice:  avgBuy,
			ProfitLoss:   a.profitLoss,
			Currency:     a.currency,
		})
	}
	return symbols
}

func winRate(s model.ProfitLossSummary) decimal.Decimal {
	total := s.WinningTrades + s.LosingTrades
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(s.WinningTrades)).Div(decimal.NewFromInt(int64(total)))
}

func payoffRatio(s model.ProfitLossSummary) decimal.Decimal {
	if s.WinningTrades == 0 || s.LosingTrades == 0 {
		return decimal.Zero
	}
	avgWin := s.WinningAmount.Div(decimal.NewFromInt(int64(s.WinningTrades)))
	avgLoss := s.LosingAmount.Div(decimal.NewFromInt(int64(s.LosingTrades))).Abs()
	if avgLoss.IsZero() {
		return decimal.Zero
	}
	return avgWin.Div(avgLoss)
}

func bucketByMonth(records []model.ProfitLossRecord, usdJpy decimal.Decimal) []model.MonthlyProfitLoss {
	totals := make(map[string]decimal.Decimal)
	for _, rec := range records {
		if len(rec.SellDate) < 7 {
			continue
		}
		month := rec.SellDate[:7]
		totals[month] = totals[month].Add(rec.ProfitLoss.Mul(rec.Currency.Rate(usdJpy)))
	}

	months := make([]model.MonthlyProfitLoss, 0, len(totals))
	for month, pl := range totals {
		months = append(months, model.MonthlyProfitLoss{Month: month, ProfitLoss: pl})
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month < months[j].Month })
	return months
}
