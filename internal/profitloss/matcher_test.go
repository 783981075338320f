package profitloss

import (
	"testing"
	"time"

	"github.com/atukutisuzume/portfolio-visualizer/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trade(date string, side model.TradeSide, qty, price int64) model.Trade {
	d, err := time.Parse(model.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return model.Trade{
		TradeDate: d,
		Symbol:    "7203",
		Name:      "トヨタ自動車",
		Side:      side,
		Quantity:  decimal.NewFromInt(qty),
		Price:     decimal.NewFromInt(price),
		Currency:  model.CurrencyJPY,
	}
}

func mustPeriod(t *testing.T, raw string) Period {
	t.Helper()
	p, err := ParsePeriod(raw)
	require.NoError(t, err)
	return p
}

func TestMatchSells_SingleLot(t *testing.T) {
	trades := []model.Trade{
		trade("2024-01-10", model.SideBuy, 100, 1000),
		trade("2024-02-10", model.SideSell, 100, 1200),
	}

	records := MatchSells(trades, mustPeriod(t, "all"))

	require.Len(t, records, 1)
	assert.True(t, records[0].AvgBuyPrice.Equal(decimal.NewFromInt(1000)))
	// (1200 - 1000) * 100
	assert.True(t, records[0].ProfitLoss.Equal(decimal.NewFromInt(20000)))
	assert.Equal(t, "2024-02-10", records[0].SellDate)
}

func TestMatchSells_SellSpansMultipleLots(t *testing.T) {
	trades := []model.Trade{
		trade("2024-01-10", model.SideBuy, 100, 1000),
		trade("2024-01-20", model.SideBuy, 100, 2000),
		trade("2024-02-10", model.SideSell, 150, 1800),
	}

	records := MatchSells(trades, mustPeriod(t, "all"))

	require.Len(t, records, 1)
	// (100*1000 + 50*2000) / 150 = 1333.33...
	wantAvg := decimal.NewFromInt(200000).Div(decimal.NewFromInt(150))
	assert.True(t, records[0].AvgBuyPrice.Equal(wantAvg))
	wantPl := decimal.NewFromInt(1800).Sub(wantAvg).Mul(decimal.NewFromInt(150))
	assert.True(t, records[0].ProfitLoss.Equal(wantPl))
}

func TestMatchSells_HeadPointerPersistsAcrossSells(t *testing.T) {
	trades := []model.Trade{
		trade("2024-01-10", model.SideBuy, 100, 1000),
		trade("2024-01-20", model.SideBuy, 100, 2000),
		trade("2024-02-10", model.SideSell, 100, 1500),
		trade("2024-03-10", model.SideSell, 100, 2500),
	}

	records := MatchSells(trades, mustPeriod(t, "all"))

	require.Len(t, records, 2)
	// first sell consumes the whole first lot
	assert.True(t, records[0].AvgBuyPrice.Equal(decimal.NewFromInt(1000)))
	// second sell starts at the second lot, never rewinds
	assert.True(t, records[1].AvgBuyPrice.Equal(decimal.NewFromInt(2000)))
	assert.True(t, records[1].ProfitLoss.Equal(decimal.NewFromInt(50000)))
}

func TestMatchSells_PartiallyConsumedLotKeepsRemainder(t *testing.T) {
	trades := []model.Trade{
		trade("2024-01-10", model.SideBuy, 100, 1000),
		trade("2024-02-10", model.SideSell, 40, 1100),
		trade("2024-03-10", model.SideSell, 60, 1200),
	}

	records := MatchSells(trades, mustPeriod(t, "all"))

	require.Len(t, records, 2)
	assert.True(t, records[0].AvgBuyPrice.Equal(decimal.NewFromInt(1000)))
	assert.True(t, records[1].AvgBuyPrice.Equal(decimal.NewFromInt(1000)))
}

func TestMatchSells_ShortfallMatchedAtZeroCost(t *testing.T) {
	trades := []model.Trade{
		trade("2024-01-10", model.SideBuy, 50, 1000),
		trade("2024-02-10", model.SideSell, 100, 1200),
	}

	records := MatchSells(trades, mustPeriod(t, "all"))

	require.Len(t, records, 1)
	// average covers the matched 50 only
	assert.True(t, records[0].AvgBuyPrice.Equal(decimal.NewFromInt(1000)))
	// P/L spans the full 100 sold
	assert.True(t, records[0].ProfitLoss.Equal(decimal.NewFromInt(20000)))
	assert.True(t, records[0].Quantity.Equal(decimal.NewFromInt(100)))
}

func TestMatchSells_NoBuyHistoryAtAll(t *testing.T) {
	trades := []model.Trade{
		trade("2024-02-10", model.SideSell, 100, 1200),
	}

	records := MatchSells(trades, mustPeriod(t, "all"))

	require.Len(t, records, 1)
	assert.True(t, records[0].AvgBuyPrice.IsZero())
	assert.True(t, records[0].ProfitLoss.Equal(decimal.NewFromInt(120000)))
}

func TestMatchSells_PeriodFiltersSellsNotBuys(t *testing.T) {
	trades := []model.Trade{
		trade("2023-12-10", model.SideBuy, 100, 1000),
		trade("2024-01-10", model.SideSell, 50, 1100),
		trade("2024-02-10", model.SideSell, 50, 1300),
	}

	records := MatchSells(trades, mustPeriod(t, "2024-02"))

	require.Len(t, records, 1)
	assert.Equal(t, "2024-02-10", records[0].SellDate)
	// the out-of-period January sell did not consume the lot here: the
	// February sell still matches against the full December buy
	assert.True(t, records[0].AvgBuyPrice.Equal(decimal.NewFromInt(1000)))
}

func TestMatchSells_NoSellsInPeriod(t *testing.T) {
	trades := []model.Trade{
		trade("2024-01-10", model.SideBuy, 100, 1000),
		trade("2024-02-10", model.SideSell, 100, 1200),
	}

	records := MatchSells(trades, mustPeriod(t, "2025"))
	assert.Empty(t, records)
}

func TestMatchSells_InputNotMutated(t *testing.T) {
	trades := []model.Trade{
		trade("2024-01-10", model.SideBuy, 100, 1000),
		trade("2024-02-10", model.SideSell, 100, 1200),
	}

	first := MatchSells(trades, mustPeriod(t, "all"))
	second := MatchSells(trades, mustPeriod(t, "all"))

	assert.Equal(t, first, second)
}
