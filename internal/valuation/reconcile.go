package valuation

import (
	"sort"
	"time"

	"github.com/atukutisuzume/portfolio-visualizer/internal/model"
	"github.com/shopspring/decimal"
)

// Auditor receives one entry per reconciled symbol. Implementations must
// be best-effort: the reconciliation result never depends on them.
type Auditor interface {
	Record(entry any)
}

// AuditEntry captures one symbol's reconciliation inputs and outputs.
type AuditEntry struct {
	Month        string `json:"month"`
	Symbol       string `json:"symbol"`
	Currency     string `json:"currency"`
	StartValue   string `json:"startValue"`
	EndValue     string `json:"endValue"`
	BoughtAmount string `json:"boughtAmount"`
	SoldAmount   string `json:"soldAmount"`
	RealizedPl   string `json:"realizedPl"`
	UnrealizedPl string `json:"unrealizedPl"`
	TotalPl      string `json:"totalPl"`
	Skipped      bool   `json:"skipped,omitempty"`
}

// Inputs are the already-fetched rows one reconciliation works over.
// Snapshot slices hold the raw rows at each boundary date; Trades must
// cover (USDStart, JPYEnd].
type Inputs struct {
	Month    string
	Bounds   Boundaries
	StartJPY []model.HoldingSnapshot
	StartUSD []model.HoldingSnapshot
	EndJPY   []model.HoldingSnapshot
	EndUSD   []model.HoldingSnapshot
	Trades   []model.Trade
	UsdJpy   decimal.Decimal
}

type Result struct {
	Results         []model.SymbolPeriodPL
	TotalAssetAtEnd decimal.Decimal
}

// Reconcile computes per-symbol monthly P/L from boundary snapshots and
// in-window trades:
//
//	totalPl    = (endValue + soldAmount) − (startValue + boughtAmount)
//	realizedPl = soldAmount − boughtAmount
//	unrealizedPl = endValue − startValue
//
// all converted to JPY at the symbol's currency rate. Symbols with
// neither a start snapshot nor a buy in the window are skipped; symbols
// whose converted total P/L is zero are omitted. Results sort descending
// by total P/L.
//
// TotalAssetAtEnd sums every end-boundary holding, skipped symbols
// included.
func Reconcile(in Inputs, audit Auditor) Result {
	startJPY := MergeBySymbol(in.StartJPY)
	startUSD := MergeBySymbol(in.StartUSD)
	endJPY := MergeBySymbol(in.EndJPY)
	endUSD := MergeBySymbol(in.EndUSD)

	symbols := symbolUnion([]map[string]*model.HoldingSnapshot{startJPY, startUSD, endJPY, endUSD}, in.Trades)

	startFor := func(c model.Currency) map[string]*model.HoldingSnapshot {
		if c == model.CurrencyUSD {
			return startUSD
		}
		return startJPY
	}
	endFor := func(c model.Currency) map[string]*model.HoldingSnapshot {
		if c == model.CurrencyUSD {
			return endUSD
		}
		return endJPY
	}

	var res Result
	for _, symbol := range symbols {
		currency := symbolCurrency(symbol, endJPY, endUSD, startJPY, startUSD, in.Trades)
		rate := currency.Rate(in.UsdJpy)

		start := startFor(currency)[symbol]
		end := endFor(currency)[symbol]
		trades := tradesInWindow(in.Trades, symbol, in.Bounds.StartFor(currency), in.Bounds.EndFor(currency))

		// Anything held at the end of the month counts toward the total,
		// even when the symbol is skipped from the results below.
		endValue := decimal.Zero
		if end != nil {
			endValue = end.MarketValue()
			res.TotalAssetAtEnd = res.TotalAssetAtEnd.Add(endValue.Mul(rate))
		}

		bought, sold := decimal.Zero, decimal.Zero
		hasBuy := false
		for _, t := range trades {
			amount := t.Price.Mul(t.Quantity)
			switch t.Side {
			case model.SideBuy:
				bought = bought.Add(amount)
				hasBuy = true
			case model.SideSell:
				sold = sold.Add(amount)
			}
		}

		// No position at the start and nothing bought either: the symbol
		// had no exposure this month.
		if start == nil && !hasBuy {
			if audit != nil {
				audit.Record(AuditEntry{Month: in.Month, Symbol: symbol, Currency: string(currency), Skipped: true})
			}
			continue
		}

		startValue := decimal.Zero
		name := ""
		if start != nil {
			startValue = start.MarketValue()
			name = start.Name
		}
		if end != nil && name == "" {
			name = end.Name
		}
		if name == "" && len(trades) > 0 {
			name = trades[0].Name
		}

		realizedPl := sold.Sub(bought).Mul(rate)
		unrealizedPl := endValue.Sub(startValue).Mul(rate)
		totalPl := realizedPl.Add(unrealizedPl)

		if audit != nil {
			audit.Record(AuditEntry{
				Month:        in.Month,
				Symbol:       symbol,
				Currency:     string(currency),
				StartValue:   startValue.String(),
				EndValue:     endValue.String(),
				BoughtAmount: bought.String(),
				SoldAmount:   sold.String(),
				RealizedPl:   realizedPl.String(),
				UnrealizedPl: unrealizedPl.String(),
				TotalPl:      totalPl.String(),
			})
		}

		if totalPl.IsZero() {
			continue
		}

		res.Results = append(res.Results, model.SymbolPeriodPL{
			Symbol:       symbol,
			Name:         name,
			Currency:     currency,
			StartValue:   startValue,
			EndValue:     endValue,
			BoughtAmount: bought,
			SoldAmount:   sold,
			RealizedPl:   realizedPl,
			UnrealizedPl: unrealizedPl,
			TotalPl:      totalPl,
			PlPercentage: decimal.Zero,
		})
	}

	if res.TotalAssetAtEnd.IsPositive() {
		for i := range res.Results {
			res.Results[i].PlPercentage = res.Results[i].TotalPl.Div(res.TotalAssetAtEnd)
		}
	}

	sort.SliceStable(res.Results, func(i, j int) bool {
		return res.Results[i].TotalPl.GreaterThan(res.Results[j].TotalPl)
	})

	return res
}

// MergeBySymbol collapses duplicate rows for one symbol (same date,
// several brokers) into one logical holding: quantities and values sum,
// price recomputes as value/quantity when quantity is non-zero.
func MergeBySymbol(rows []model.HoldingSnapshot) map[string]*model.HoldingSnapshot {
	merged := make(map[string]*model.HoldingSnapshot)
	for _, row := range rows {
		existing, ok := merged[row.Symbol]
		if !ok {
			copied := row
			merged[row.Symbol] = &copied
			continue
		}
		existing.Quantity = existing.Quantity.Add(row.Quantity)
		existing.Value = existing.Value.Add(row.MarketValue())
		existing.GainLoss = existing.GainLoss.Add(row.GainLoss)
		if !existing.Quantity.IsZero() {
			existing.Price = existing.MarketValue().Div(existing.Quantity)
		}
	}
	return merged
}

func symbolUnion(snapshots []map[string]*model.HoldingSnapshot, trades []model.Trade) []string {
	seen := make(map[string]struct{})
	var symbols []string
	add := func(symbol string) {
		if _, ok := seen[symbol]; ok {
			return
		}
		seen[symbol] = struct{}{}
		symbols = append(symbols, symbol)
	}
	for _, m := range snapshots {
		keys := make([]string, 0, len(m))
		for symbol := range m {
			keys = append(keys, symbol)
		}
		sort.Strings(keys)
		for _, symbol := range keys {
			add(symbol)
		}
	}
	for _, t := range trades {
		add(t.Symbol)
	}
	return symbols
}

func symbolCurrency(
	symbol string,
	endJPY, endUSD, startJPY, startUSD map[string]*model.HoldingSnapshot,
	trades []model.Trade,
) model.Currency {
	for _, m := range []map[string]*model.HoldingSnapshot{endJPY, endUSD, startJPY, startUSD} {
		if s, ok := m[symbol]; ok && s.Currency != "" {
			return s.Currency
		}
	}
	for _, t := range trades {
		if t.Symbol == symbol && t.Currency != "" {
			return t.Currency
		}
	}
	return model.CurrencyJPY
}

// tradesInWindow keeps the symbol's trades dated after start and not
// after end. Nil boundaries leave that side unbounded; the caller's
// fetch already clamps the overall range.
func tradesInWindow(trades []model.Trade, symbol string, start, end *time.Time) []model.Trade {
	var out []model.Trade
	for _, t := range trades {
		if t.Symbol != symbol {
			continue
		}
		if start != nil && !t.TradeDate.After(*start) {
			continue
		}
		if end != nil && t.TradeDate.After(*end) {
			continue
		}
		out = append(out, t)
	}
	return out
}
