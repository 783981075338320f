package portfolioService

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atukutisuzume/portfolio-visualizer/config"
	"github.com/atukutisuzume/portfolio-visualizer/data/cache"
	"github.com/atukutisuzume/portfolio-visualizer/data/repository"
	"github.com/atukutisuzume/portfolio-visualizer/internal/model"
	"github.com/atukutisuzume/portfolio-visualizer/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	trades         []model.Trade
	snapshotDates  []time.Time
	holdingsByDate map[string][]model.HoldingSnapshot
	dailyAssets    []model.DailyAsset
	latestDate     time.Time
	latestErr      error
	totalAsset     decimal.Decimal
	insertedTrades []model.Trade
	savedSnapshots []model.PortfolioSnapshot
	failFetch      bool
}

var errFetch = errors.New("fetch failed")

func (s *stubRepo) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error {
	return tFunc(ctx)
}

func (s *stubRepo) InsertTrades(_ context.Context, trades []model.Trade) error {
	s.insertedTrades = append(s.insertedTrades, trades...)
	return nil
}

func (s *stubRepo) GetAllTrades(context.Context) ([]model.Trade, error) {
	if s.failFetch {
		return nil, errFetch
	}
	return s.trades, nil
}

func (s *stubRepo) GetTradesBetween(_ context.Context, from, to time.Time) ([]model.Trade, error) {
	if s.failFetch {
		return nil, errFetch
	}
	var out []model.Trade
	for _, t := range s.trades {
		if !t.TradeDate.Before(from) && !t.TradeDate.After(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *stubRepo) InsertPortfolioSnapshot(_ context.Context, snapshot model.PortfolioSnapshot) error {
	s.savedSnapshots = append(s.savedSnapshots, snapshot)
	return nil
}

func (s *stubRepo) GetSnapshotDates(context.Context) ([]time.Time, error) {
	return s.snapshotDates, nil
}

func (s *stubRepo) GetHoldingsByDate(_ context.Context, date time.Time) ([]model.HoldingSnapshot, error) {
	if s.failFetch {
		return nil, errFetch
	}
	return s.holdingsByDate[date.Format(model.DateLayout)], nil
}

func (s *stubRepo) GetHoldingsBetween(_ context.Context, from, to time.Time) ([]model.HoldingSnapshot, error) {
	var out []model.HoldingSnapshot
	for _, rows := range s.holdingsByDate {
		for _, row := range rows {
			if !row.DataDate.Before(from) && !row.DataDate.After(to) {
				out = append(out, row)
			}
		}
	}
	return out, nil
}

func (s *stubRepo) GetSymbolHoldingsBetween(ctx context.Context, symbol string, from, to time.Time) ([]model.HoldingSnapshot, error) {
	rows, err := s.GetHoldingsBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	var out []model.HoldingSnapshot
	for _, row := range rows {
		if row.Symbol == symbol {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *stubRepo) GetLatestSnapshotDate(context.Context) (time.Time, error) {
	return s.latestDate, s.latestErr
}

func (s *stubRepo) GetTotalAssetByDate(context.Context, time.Time) (decimal.Decimal, error) {
	return s.totalAsset, nil
}

func (s *stubRepo) GetDailyAssets(context.Context) ([]model.DailyAsset, error) {
	return s.dailyAssets, nil
}

func (s *stubRepo) GetDailyAssetsBetween(_ context.Context, from, to time.Time) ([]model.DailyAsset, error) {
	var out []model.DailyAsset
	for _, a := range s.dailyAssets {
		if !a.Date.Before(from) && !a.Date.After(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

type stubCache struct {
	stored  map[string]model.MonthlyReconciliation
	flushed []string
	getErr  error
}

func (c *stubCache) GetMonthlyReconciliation(_ context.Context, month string) (model.MonthlyReconciliation, error) {
	if c.getErr != nil {
		return model.MonthlyReconciliation{}, c.getErr
	}
	rec, ok := c.stored[month]
	if !ok {
		return model.MonthlyReconciliation{}, cache.ErrNotFound
	}
	return rec, nil
}

func (c *stubCache) SetMonthlyReconciliation(_ context.Context, rec model.MonthlyReconciliation) error {
	if c.stored == nil {
		c.stored = make(map[string]model.MonthlyReconciliation)
	}
	c.stored[rec.Month] = rec
	return nil
}

func (c *stubCache) FlushMonthlyReconciliation(_ context.Context, month string) error {
	delete(c.stored, month)
	c.flushed = append(c.flushed, month)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Rates: config.Rates{UsdJpy: decimal.NewFromInt(150)},
	}
}

func newTestService(repo *stubRepo, c *stubCache) *PortfolioService {
	return New(testConfig(), repo, c, nil, nil, nil)
}

func mustDay(s string) time.Time {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCalculateProfitLoss_InvalidPeriod(t *testing.T) {
	srv := newTestService(&stubRepo{}, &stubCache{})

	_, err := srv.CalculateProfitLoss(context.Background(), "2024-1")
	assert.ErrorIs(t, err, service.ErrInvalidPeriod)
}

func TestCalculateProfitLoss_FetchFailureAborts(t *testing.T) {
	srv := newTestService(&stubRepo{failFetch: true}, &stubCache{})

	_, err := srv.CalculateProfitLoss(context.Background(), "all")
	assert.ErrorIs(t, err, errFetch)
}

func TestCalculateProfitLoss_EndToEnd(t *testing.T) {
	repo := &stubRepo{
		trades: []model.Trade{
			{
				TradeDate: mustDay("2024-01-10"),
				Symbol:    "7203",
				Side:      model.SideBuy,
				Quantity:  decimal.NewFromInt(100),
				Price:     decimal.NewFromInt(1000),
				Currency:  model.CurrencyJPY,
			},
			{
				TradeDate: mustDay("2024-02-10"),
				Symbol:    "7203",
				Side:      model.SideSell,
				Quantity:  decimal.NewFromInt(100),
				Price:     decimal.NewFromInt(1200),
				Currency:  model.CurrencyJPY,
			},
		},
	}
	srv := newTestService(repo, &stubCache{})

	res, err := srv.CalculateProfitLoss(context.Background(), "all")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.True(t, res.Records[0].ProfitLoss.Equal(decimal.NewFromInt(20000)))
}

func TestMonthlySymbolProfitLoss_InvalidMonth(t *testing.T) {
	srv := newTestService(&stubRepo{}, &stubCache{})

	_, err := srv.MonthlySymbolProfitLoss(context.Background(), "2024")
	assert.ErrorIs(t, err, service.ErrInvalidMonth)
}

func TestMonthlySymbolProfitLoss_NoSnapshots(t *testing.T) {
	srv := newTestService(&stubRepo{}, &stubCache{})

	_, err := srv.MonthlySymbolProfitLoss(context.Background(), "2024-02")
	assert.ErrorIs(t, err, service.ErrNoSnapshots)
}

func TestMonthlySymbolProfitLoss_CacheHitSkipsRepo(t *testing.T) {
	cached := model.MonthlyReconciliation{
		Month:           "2024-02",
		TotalAssetAtEnd: decimal.NewFromInt(123),
	}
	c := &stubCache{stored: map[string]model.MonthlyReconciliation{"2024-02": cached}}
	srv := newTestService(&stubRepo{failFetch: true}, c)

	rec, err := srv.MonthlySymbolProfitLoss(context.Background(), "2024-02")
	require.NoError(t, err)
	assert.True(t, rec.TotalAssetAtEnd.Equal(decimal.NewFromInt(123)))
}

func TestMonthlySymbolProfitLoss_Reconciles(t *testing.T) {
	repo := &stubRepo{
		snapshotDates: []time.Time{mustDay("2024-02-29"), mustDay("2024-01-31")},
		holdingsByDate: map[string][]model.HoldingSnapshot{
			"2024-01-31": {{
				DataDate: mustDay("2024-01-31"),
				Symbol:   "7203",
				Quantity: decimal.NewFromInt(100),
				Value:    decimal.NewFromInt(100000),
				Currency: model.CurrencyJPY,
			}},
			"2024-02-29": {{
				DataDate: mustDay("2024-02-29"),
				Symbol:   "7203",
				Quantity: decimal.NewFromInt(100),
				Value:    decimal.NewFromInt(120000),
				Currency: model.CurrencyJPY,
			}},
		},
	}
	srv := newTestService(repo, &stubCache{})

	rec, err := srv.MonthlySymbolProfitLoss(context.Background(), "2024-02")
	require.NoError(t, err)
	assert.Equal(t, "2024-02", rec.Month)
	require.Len(t, rec.Results, 1)
	assert.True(t, rec.Results[0].TotalPl.Equal(decimal.NewFromInt(20000)))
	assert.True(t, rec.TotalAssetAtEnd.Equal(decimal.NewFromInt(120000)))
}

func TestDailyChange(t *testing.T) {
	repo := &stubRepo{
		dailyAssets: []model.DailyAsset{
			{Date: mustDay("2024-02-01"), TotalAsset: decimal.NewFromInt(1000000)},
			{Date: mustDay("2024-02-02"), TotalAsset: decimal.NewFromInt(1010000)},
			{Date: mustDay("2024-02-03"), TotalAsset: decimal.NewFromInt(959500)},
		},
	}
	srv := newTestService(repo, &stubCache{})

	changes, err := srv.DailyChange(context.Background())
	require.NoError(t, err)
	require.Len(t, changes, 3)

	assert.True(t, changes[0].ChangePercent.IsZero())
	assert.True(t, changes[1].ChangePercent.Equal(decimal.NewFromInt(1)))
	// (959500 - 1010000) / 1010000 * 100 = -5
	assert.True(t, changes[2].ChangePercent.Equal(decimal.NewFromInt(-5)))
}

func TestSymbolHistory_NilRateWhenNotHeld(t *testing.T) {
	repo := &stubRepo{
		holdingsByDate: map[string][]model.HoldingSnapshot{
			"2024-02-01": {{
				DataDate: mustDay("2024-02-01"),
				Symbol:   "7203",
				Quantity: decimal.NewFromInt(100),
				Value:    decimal.NewFromInt(250000),
				Currency: model.CurrencyJPY,
			}},
		},
		dailyAssets: []model.DailyAsset{
			{Date: mustDay("2024-02-01"), TotalAsset: decimal.NewFromInt(1000000)},
			{Date: mustDay("2024-02-02"), TotalAsset: decimal.NewFromInt(1000000)},
		},
	}
	srv := newTestService(repo, &stubCache{})

	points, err := srv.SymbolHistory(context.Background(), "7203", "2024-02")
	require.NoError(t, err)
	require.Len(t, points, 2)

	require.NotNil(t, points[0].HoldingRate)
	assert.True(t, points[0].HoldingRate.Equal(decimal.NewFromInt(25)))
	assert.True(t, points[0].Quantity.Equal(decimal.NewFromInt(100)))

	// the symbol disappeared on the second day: rate is nil, not zero
	assert.Nil(t, points[1].HoldingRate)
	assert.True(t, points[1].Quantity.IsZero())
}

func TestGetLatestPortfolio_NoSnapshots(t *testing.T) {
	srv := newTestService(&stubRepo{latestErr: repository.ErrNotFound}, &stubCache{})

	_, err := srv.GetLatestPortfolio(context.Background())
	assert.ErrorIs(t, err, service.ErrNoSnapshots)
}

func TestGetPortfolioByDate_MergesBrokers(t *testing.T) {
	repo := &stubRepo{
		holdingsByDate: map[string][]model.HoldingSnapshot{
			"2024-02-01": {
				{DataDate: mustDay("2024-02-01"), Symbol: "7203", Quantity: decimal.NewFromInt(100), Value: decimal.NewFromInt(100000), Currency: model.CurrencyJPY},
				{DataDate: mustDay("2024-02-01"), Symbol: "7203", Quantity: decimal.NewFromInt(50), Value: decimal.NewFromInt(50000), Currency: model.CurrencyJPY},
				{DataDate: mustDay("2024-02-01"), Symbol: "9984", Quantity: decimal.NewFromInt(10), Value: decimal.NewFromInt(90000), Currency: model.CurrencyJPY},
			},
		},
		totalAsset: decimal.NewFromInt(240000),
	}
	srv := newTestService(repo, &stubCache{})

	snapshot, err := srv.GetPortfolioByDate(context.Background(), mustDay("2024-02-01"))
	require.NoError(t, err)
	require.Len(t, snapshot.Items, 2)

	// merged and sorted by value descending
	assert.Equal(t, "7203", snapshot.Items[0].Symbol)
	assert.True(t, snapshot.Items[0].Quantity.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, "9984", snapshot.Items[1].Symbol)
	assert.True(t, snapshot.TotalAsset.Equal(decimal.NewFromInt(240000)))
}

func TestImportHoldings_ComputesTotalWhenAbsent(t *testing.T) {
	repo := &stubRepo{}
	srv := newTestService(repo, &stubCache{})

	csv := `"コード","銘柄名","口座区分","市場","数量","取得単価","現在値","評価額","評価損益"
"AAPL","アップル","特定","米国","10","150","160","1,600","100"
`
	snapshot, err := srv.ImportHoldings(context.Background(), []byte(csv), "保有銘柄_20240201.csv")
	require.NoError(t, err)

	// 1600 USD * 150
	assert.True(t, snapshot.TotalAsset.Equal(decimal.NewFromInt(240000)))
	require.Len(t, repo.savedSnapshots, 1)
	assert.Equal(t, "moomoo", snapshot.Broker)
}

func TestImportTradeHistory_UnknownFormat(t *testing.T) {
	srv := newTestService(&stubRepo{}, &stubCache{})

	_, _, err := srv.ImportTradeHistory(context.Background(), []byte("a,b\n1,2\n"), "x.csv")
	assert.ErrorIs(t, err, service.ErrUnknownFormat)
}

func TestImportTradeHistory_FlushesTradeMonths(t *testing.T) {
	c := &stubCache{stored: map[string]model.MonthlyReconciliation{"2025-06": {Month: "2025-06"}}}
	srv := newTestService(&stubRepo{}, c)

	csv := `約定日,受渡日,銘柄コード,銘柄名,市場名称,口座区分,取引区分,売買区分,信用区分,弁済期限,数量［株］,単価［円］,手数料［円］,税金等［円］,諸費用［円］,税区分,受渡金額［円］
2025/6/18,2025/6/20,7203,トヨタ自動車,東証,特定,現物取引,買付,,,100,"2,500",0,0,0,-,"-250,000"
`
	inserted, _, err := srv.ImportTradeHistory(context.Background(), []byte(csv), "tradehistory(JP)_20250630.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	// the traded month's cached reconciliation is stale now
	assert.Equal(t, []string{"2025-06"}, c.flushed)
	assert.NotContains(t, c.stored, "2025-06")
}

func TestSavePortfolioSnapshot_FlushesMonthCache(t *testing.T) {
	c := &stubCache{stored: map[string]model.MonthlyReconciliation{"2024-02": {Month: "2024-02"}}}
	srv := newTestService(&stubRepo{}, c)

	err := srv.SavePortfolioSnapshot(context.Background(), model.PortfolioSnapshot{
		DataDate: mustDay("2024-02-01"),
		Broker:   "rakuten",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02"}, c.flushed)
}

func TestMonthlySymbolProfitLoss_CacheFailureFallsThrough(t *testing.T) {
	repo := &stubRepo{
		snapshotDates: []time.Time{mustDay("2024-02-29")},
		holdingsByDate: map[string][]model.HoldingSnapshot{
			"2024-02-29": {{
				DataDate: mustDay("2024-02-29"),
				Symbol:   "7203",
				Quantity: decimal.NewFromInt(100),
				Value:    decimal.NewFromInt(120000),
				Currency: model.CurrencyJPY,
			}},
		},
	}
	srv := newTestService(repo, &stubCache{getErr: errors.New("redis down")})

	rec, err := srv.MonthlySymbolProfitLoss(context.Background(), "2024-02")
	require.NoError(t, err)
	assert.Equal(t, "2024-02", rec.Month)
	assert.True(t, rec.TotalAssetAtEnd.Equal(decimal.NewFromInt(120000)))
}

func TestGeneratePLReport_DisabledWithoutStorage(t *testing.T) {
	srv := newTestService(&stubRepo{}, &stubCache{})

	_, err := srv.GeneratePLReport(context.Background(), "all")
	assert.ErrorIs(t, err, service.ErrDriveDisabled)
}
