package profitloss

import (
	"testing"
	"time"

	"github.com/atukutisuzume/portfolio-visualizer/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupedTrade(date, symbol, accountType string, currency model.Currency, side model.TradeSide, qty, price int64) model.Trade {
	d, err := time.Parse(model.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return model.Trade{
		TradeDate:   d,
		Symbol:      symbol,
		Name:        symbol,
		AccountType: accountType,
		Side:        side,
		Quantity:    decimal.NewFromInt(qty),
		Price:       decimal.NewFromInt(price),
		Currency:    currency,
	}
}

var testUsdJpy = decimal.NewFromInt(150)

func TestAggregate_GroupsBySymbolAccountCurrency(t *testing.T) {
	trades := []model.Trade{
		groupedTrade("2024-01-10", "7203", "特定", model.CurrencyJPY, model.SideBuy, 100, 1000),
		groupedTrade("2024-02-10", "7203", "特定", model.CurrencyJPY, model.SideSell, 100, 1200),
		// same symbol, different account: separate lot pool
		groupedTrade("2024-01-15", "7203", "NISA", model.CurrencyJPY, model.SideBuy, 10, 900),
		groupedTrade("2024-02-15", "7203", "NISA", model.CurrencyJPY, model.SideSell, 10, 1000),
		groupedTrade("2024-01-20", "AAPL", "特定", model.CurrencyUSD, model.SideBuy, 5, 100),
		groupedTrade("2024-02-20", "AAPL", "特定", model.CurrencyUSD, model.SideSell, 5, 120),
	}

	res := Aggregate(trades, mustPeriod(t, "all"), testUsdJpy)

	require.Len(t, res.Records, 3)

	jpy := res.SummaryByCurrency[model.CurrencyJPY]
	// 100*200 + 10*100
	assert.True(t, jpy.TotalProfitLoss.Equal(decimal.NewFromInt(21000)))
	assert.Equal(t, 2, jpy.WinningTrades)

	usd := res.SummaryByCurrency[model.CurrencyUSD]
	assert.True(t, usd.TotalProfitLoss.Equal(decimal.NewFromInt(100)))
}

func TestAggregate_UnsortedInputSortedPerGroup(t *testing.T) {
	trades := []model.Trade{
		groupedTrade("2024-02-10", "7203", "特定", model.CurrencyJPY, model.SideSell, 100, 1200),
		groupedTrade("2024-01-10", "7203", "特定", model.CurrencyJPY, model.SideBuy, 100, 1000),
	}

	res := Aggregate(trades, mustPeriod(t, "all"), testUsdJpy)

	require.Len(t, res.Records, 1)
	assert.True(t, res.Records[0].AvgBuyPrice.Equal(decimal.NewFromInt(1000)))
}

func TestAggregate_SymbolSummaryVolumeWeighted(t *testing.T) {
	trades := []model.Trade{
		groupedTrade("2024-01-10", "7203", "特定", model.CurrencyJPY, model.SideBuy, 100, 1000),
		groupedTrade("2024-02-10", "7203", "特定", model.CurrencyJPY, model.SideSell, 50, 1200),
		groupedTrade("2024-03-10", "7203", "特定", model.CurrencyJPY, model.SideSell, 50, 1400),
	}

	res := Aggregate(trades, mustPeriod(t, "all"), testUsdJpy)

	require.Len(t, res.Symbols, 1)
	symbol := res.Symbols[0]
	assert.True(t, symbol.Quantity.Equal(decimal.NewFromInt(100)))
	// (50*1200 + 50*1400) / 100
	assert.True(t, symbol.AvgSellPrice.Equal(decimal.NewFromInt(1300)))
	assert.True(t, symbol.AvgBuyPrice.Equal(decimal.NewFromInt(1000)))
	assert.True(t, symbol.ProfitLoss.Equal(decimal.NewFromInt(30000)))
}

func TestAggregate_WinRateAndPayoffRatio(t *testing.T) {
	trades := []model.Trade{
		groupedTrade("2024-01-10", "A", "特定", model.CurrencyJPY, model.SideBuy, 10, 100),
		groupedTrade("2024-02-10", "A", "特定", model.CurrencyJPY, model.SideSell, 10, 200), // +1000
		groupedTrade("2024-01-10", "B", "特定", model.CurrencyJPY, model.SideBuy, 10, 100),
		groupedTrade("2024-02-10", "B", "特定", model.CurrencyJPY, model.SideSell, 10, 150), // +500
		groupedTrade("2024-01-10", "C", "特定", model.CurrencyJPY, model.SideBuy, 10, 100),
		groupedTrade("2024-02-10", "C", "特定", model.CurrencyJPY, model.SideSell, 10, 50), // -500
	}

	res := Aggregate(trades, mustPeriod(t, "all"), testUsdJpy)

	summary := res.SummaryByCurrency[model.CurrencyJPY]
	assert.Equal(t, 2, summary.WinningTrades)
	assert.Equal(t, 1, summary.LosingTrades)
	// 2 / 3
	wantWinRate := decimal.NewFromInt(2).Div(decimal.NewFromInt(3))
	assert.True(t, summary.WinRate.Equal(wantWinRate))
	// avg win 750 / avg |loss| 500
	assert.True(t, summary.PayoffRatio.Equal(decimal.NewFromFloat(1.5)))
}

func TestAggregate_PayoffRatioZeroWithoutLosses(t *testing.T) {
	trades := []model.Trade{
		groupedTrade("2024-01-10", "A", "特定", model.CurrencyJPY, model.SideBuy, 10, 100),
		groupedTrade("2024-02-10", "A", "特定", model.CurrencyJPY, model.SideSell, 10, 200),
	}

	res := Aggregate(trades, mustPeriod(t, "all"), testUsdJpy)

	summary := res.SummaryByCurrency[model.CurrencyJPY]
	assert.True(t, summary.PayoffRatio.IsZero())
	assert.True(t, summary.WinRate.Equal(decimal.NewFromInt(1)))
}

func TestAggregate_MonthlyBucketsOnlyForAll(t *testing.T) {
	trades := []model.Trade{
		groupedTrade("2024-01-10", "7203", "特定", model.CurrencyJPY, model.SideBuy, 100, 1000),
		groupedTrade("2024-02-10", "7203", "特定", model.CurrencyJPY, model.SideSell, 50, 1200),
		groupedTrade("2024-03-10", "7203", "特定", model.CurrencyJPY, model.SideSell, 50, 1400),
		groupedTrade("2024-01-20", "AAPL", "特定", model.CurrencyUSD, model.SideBuy, 10, 100),
		groupedTrade("2024-02-20", "AAPL", "特定", model.CurrencyUSD, model.SideSell, 10, 110),
	}

	res := Aggregate(trades, mustPeriod(t, "all"), testUsdJpy)

	require.Len(t, res.Monthly, 2)
	assert.Equal(t, "2024-02", res.Monthly[0].Month)
	// 50*200 JPY + 10*10 USD * 150
	assert.True(t, res.Monthly[0].ProfitLoss.Equal(decimal.NewFromInt(25000)))
	assert.Equal(t, "2024-03", res.Monthly[1].Month)
	assert.True(t, res.Monthly[1].ProfitLoss.Equal(decimal.NewFromInt(20000)))

	scoped := Aggregate(trades, mustPeriod(t, "2024-02"), testUsdJpy)
	assert.Nil(t, scoped.Monthly)
}

func TestAggregate_Deterministic(t *testing.T) {
	trades := []model.Trade{
		groupedTrade("2024-01-10", "B", "特定", model.CurrencyJPY, model.SideBuy, 10, 100),
		groupedTrade("2024-02-10", "B", "特定", model.CurrencyJPY, model.SideSell, 10, 200),
		groupedTrade("2024-01-10", "A", "特定", model.CurrencyJPY, model.SideBuy, 10, 100),
		groupedTrade("2024-02-10", "A", "特定", model.CurrencyJPY, model.SideSell, 10, 150),
		groupedTrade("2024-01-10", "C", "NISA", model.CurrencyJPY, model.SideBuy, 10, 100),
		groupedTrade("2024-02-10", "C", "NISA", model.CurrencyJPY, model.SideSell, 10, 50),
	}

	first := Aggregate(trades, mustPeriod(t, "all"), testUsdJpy)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Aggregate(trades, mustPeriod(t, "all"), testUsdJpy))
	}
}

func TestAggregate_Empty(t *testing.T) {
	res := Aggregate(nil, mustPeriod(t, "all"), testUsdJpy)
	assert.Empty(t, res.Records)
	assert.Empty(t, res.Symbols)
	assert.Empty(t, res.SummaryByCurrency)
}
