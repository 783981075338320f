package portfolioService

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/atukutisuzume/portfolio-visualizer/data/cache"
	"github.com/atukutisuzume/portfolio-visualizer/internal/model"
	"github.com/atukutisuzume/portfolio-visualizer/internal/profitloss"
	"github.com/atukutisuzume/portfolio-visualizer/internal/service"
	"github.com/atukutisuzume/portfolio-visualizer/internal/valuation"
	"github.com/atukutisuzume/portfolio-visualizer/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// CalculateProfitLoss runs FIFO matching and aggregation over every
// stored trade for one period ("YYYY", "YYYY-MM" or "all").
func (s *PortfolioService) CalculateProfitLoss(ctx context.Context, period string) (profitloss.Result, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.CalculateProfitLoss"

	slog.Debug("CalculateProfitLoss start", slog.String("rqID", rqID), slog.String("op", op), slog.String("period", period))
	defer func() {
		slog.Debug("CalculateProfitLoss finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("period", period))
	}()

	p, err := profitloss.ParsePeriod(period)
	if err != nil {
		slog.Warn("invalid period", slog.String("rqID", rqID), slog.String("op", op), slog.String("period", period))
		return profitloss.Result{}, service.ErrInvalidPeriod
	}

	trades, err := s.repo.GetAllTrades(ctx)
	if err != nil {
		slog.Error("got error from repo.GetAllTrades", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return profitloss.Result{}, err
	}

	return profitloss.Aggregate(trades, p, s.cfg.Rates.UsdJpy), nil
}

// MonthlySymbolProfitLoss reconciles per-symbol P/L for one month from
// boundary snapshots and in-window trades. Results are cached by month.
func (s *PortfolioService) MonthlySymbolProfitLoss(ctx context.Context, month string) (model.MonthlyReconciliation, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.MonthlySymbolProfitLoss"

	slog.Debug("MonthlySymbolProfitLoss start", slog.String("rqID", rqID), slog.String("op", op), slog.String("month", month))
	defer func() {
		slog.Debug("MonthlySymbolProfitLoss finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("month", month))
	}()

	if _, _, err := valuation.MonthRange(month); err != nil {
		slog.Warn("invalid month", slog.String("rqID", rqID), slog.String("op", op), slog.String("month", month))
		return model.MonthlyReconciliation{}, service.ErrInvalidMonth
	}

	rec, err := s.cache.GetMonthlyReconciliation(ctx, month)
	if err == nil {
		return rec, nil
	}
	if errors.Is(err, cache.ErrNotFound) {
		slog.Debug("reconciliation cache miss", slog.String("rqID", rqID), slog.String("op", op), slog.String("month", month))
	} else {
		slog.Warn("can't get reconciliation from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	rec, err = s.reconcileMonth(ctx, month)
	if err != nil {
		return model.MonthlyReconciliation{}, err
	}

	go s.cache.SetMonthlyReconciliation(context.WithoutCancel(ctx), rec)

	return rec, nil
}

// reconcileMonth fetches the four boundary snapshots and the trade
// window concurrently, then reconciles. All fetches must succeed.
func (s *PortfolioService) reconcileMonth(ctx context.Context, month string) (model.MonthlyReconciliation, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.reconcileMonth"

	_, last, err := valuation.MonthRange(month)
	if err != nil {
		return model.MonthlyReconciliation{}, service.ErrInvalidMonth
	}

	dates, err := s.repo.GetSnapshotDates(ctx)
	if err != nil {
		slog.Error("got error from repo.GetSnapshotDates", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.MonthlyReconciliation{}, err
	}
	if len(dates) == 0 {
		return model.MonthlyReconciliation{}, service.ErrNoSnapshots
	}

	bounds, err := valuation.SelectBoundaries(dates, month)
	if err != nil {
		return model.MonthlyReconciliation{}, service.ErrInvalidMonth
	}

	// Trades are fetched once over the widest window; Reconcile narrows
	// per currency. A nil start leaves the lower bound open.
	var tradesFrom time.Time
	if bounds.USDStart != nil && bounds.JPYStart != nil {
		tradesFrom = *bounds.USDStart
	}
	tradesTo := last
	if bounds.JPYEnd != nil && bounds.JPYEnd.After(tradesTo) {
		tradesTo = *bounds.JPYEnd
	}

	in := valuation.Inputs{
		Month:  month,
		Bounds: bounds,
		UsdJpy: s.cfg.Rates.UsdJpy,
	}

	g, gctx := errgroup.WithContext(ctx)

	fetchHoldings := func(date *time.Time, dst *[]model.HoldingSnapshot) {
		if date == nil {
			return
		}
		d := *date
		g.Go(func() error {
			rows, err := s.repo.GetHoldingsByDate(gctx, d)
			if err != nil {
				return err
			}
			*dst = rows
			return nil
		})
	}

	fetchHoldings(bounds.JPYStart, &in.StartJPY)
	fetchHoldings(bounds.USDStart, &in.StartUSD)
	fetchHoldings(bounds.JPYEnd, &in.EndJPY)
	fetchHoldings(bounds.USDEnd, &in.EndUSD)

	g.Go(func() error {
		trades, err := s.repo.GetTradesBetween(gctx, tradesFrom, tradesTo)
		if err != nil {
			return err
		}
		in.Trades = trades
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("reconciliation fetch failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.MonthlyReconciliation{}, err
	}

	res := valuation.Reconcile(in, s.audit)

	return model.MonthlyReconciliation{
		Month:           month,
		Results:         res.Results,
		TotalAssetAtEnd: res.TotalAssetAtEnd,
	}, nil
}

// DailyChange returns the total-asset series with day-over-day
// percentage change. The first recorded day changes by zero.
func (s *PortfolioService) DailyChange(ctx context.Context) ([]model.DailyChange, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DailyChange"

	slog.Debug("DailyChange start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("DailyChange finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	assets, err := s.repo.GetDailyAssets(ctx)
	if err != nil {
		slog.Error("got error from repo.GetDailyAssets", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	changes := make([]model.DailyChange, 0, len(assets))
	var prev decimal.Decimal
	for i, asset := range assets {
		change := decimal.Zero
		if i > 0 && prev.IsPositive() {
			change = asset.TotalAsset.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100))
		}
		changes = append(changes, model.DailyChange{
			Date:          asset.Date,
			TotalAsset:    asset.TotalAsset,
			ChangePercent: change,
		})
		prev = asset.TotalAsset
	}

	return changes, nil
}

// MonthlyComposition returns per-date JPY value per symbol for one
// month, for stacked composition charts.
func (s *PortfolioService) MonthlyComposition(ctx context.Context, month string) ([]model.CompositionPoint, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.MonthlyComposition"

	slog.Debug("MonthlyComposition start", slog.String("rqID", rqID), slog.String("op", op), slog.String("month", month))
	defer func() {
		slog.Debug("MonthlyComposition finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("month", month))
	}()

	first, last, err := valuation.MonthRange(month)
	if err != nil {
		return nil, service.ErrInvalidMonth
	}

	rows, err := s.repo.GetHoldingsBetween(ctx, first, last)
	if err != nil {
		slog.Error("got error from repo.GetHoldingsBetween", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	byDate := make(map[time.Time]map[string]decimal.Decimal)
	for _, row := range rows {
		values, ok := byDate[row.DataDate]
		if !ok {
			values = make(map[string]decimal.Decimal)
			byDate[row.DataDate] = values
		}
		jpy := row.MarketValue().Mul(row.Currency.Rate(s.cfg.Rates.UsdJpy))
		values[row.Symbol] = values[row.Symbol].Add(jpy)
	}

	points := make([]model.CompositionPoint, 0, len(byDate))
	for date, values := range byDate {
		points = append(points, model.CompositionPoint{Date: date, Values: values})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	return points, nil
}

// SymbolHistory returns one symbol's daily quantity and holding rate
// (symbol JPY value over total asset, percent) for one month. Days the
// symbol wasn't held report a nil rate.
func (s *PortfolioService) SymbolHistory(ctx context.Context, symbol, month string) ([]model.SymbolHistoryPoint, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.SymbolHistory"

	slog.Debug("SymbolHistory start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("month", month))
	defer func() {
		slog.Debug("SymbolHistory finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("month", month))
	}()

	first, last, err := valuation.MonthRange(month)
	if err != nil {
		return nil, service.ErrInvalidMonth
	}

	var (
		rows   []model.HoldingSnapshot
		assets []model.DailyAsset
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.repo.GetSymbolHoldingsBetween(gctx, symbol, first, last)
		return err
	})
	g.Go(func() error {
		var err error
		assets, err = s.repo.GetDailyAssetsBetween(gctx, first, last)
		return err
	})
	if err := g.Wait(); err != nil {
		slog.Error("symbol history fetch failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	type holding struct {
		quantity decimal.Decimal
		valueJpy decimal.Decimal
	}
	byDate := make(map[time.Time]holding)
	for _, row := range rows {
		h := byDate[row.DataDate]
		h.quantity = h.quantity.Add(row.Quantity)
		h.valueJpy = h.valueJpy.Add(row.MarketValue().Mul(row.Currency.Rate(s.cfg.Rates.UsdJpy)))
		byDate[row.DataDate] = h
	}

	points := make([]model.SymbolHistoryPoint, 0, len(assets))
	for _, asset := range assets {
		point := model.SymbolHistoryPoint{Date: asset.Date}
		if h, ok := byDate[asset.Date]; ok {
			point.Quantity = h.quantity
			if asset.TotalAsset.IsPositive() {
				rate := h.valueJpy.Div(asset.TotalAsset).Mul(decimal.NewFromInt(100))
				point.HoldingRate = &rate
			}
		}
		points = append(points, point)
	}

	return points, nil
}

// GeneratePLReport builds an xlsx P/L report for one period and uploads
// it, returning the download link.
func (s *PortfolioService) GeneratePLReport(ctx context.Context, period string) (downloadLink string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GeneratePLReport"

	slog.Debug("GeneratePLReport start", slog.String("rqID", rqID), slog.String("op", op), slog.String("period", period))
	defer func() {
		slog.Debug("GeneratePLReport finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("period", period))
	}()

	if s.cloudStorage == nil {
		return "", service.ErrDriveDisabled
	}

	result, err := s.CalculateProfitLoss(ctx, period)
	if err != nil {
		return "", err
	}

	fileBytes, ext, err := s.reportGen.Generate(ctx, period, result)
	if err != nil {
		slog.Error("got error from reportGen.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	filename := fmt.Sprintf("profit_loss_%s_%s%s", period, time.Now().Format("20060102_150405"), ext)

	downloadLink, err = s.cloudStorage.UploadFile(ctx, bytes.NewReader(fileBytes), filename)
	if err != nil {
		slog.Error("got error from cloudStorage.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	return downloadLink, nil
}

// WarmMonthlyPlCache recomputes the current month's reconciliation and
// refreshes the cache. Scheduler job.
func (s *PortfolioService) WarmMonthlyPlCache(ctx context.Context) error {
	ctx = utils.CtxWithRqID(ctx, "")
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.WarmMonthlyPlCache"

	month := time.Now().Format("2006-01")

	rec, err := s.reconcileMonth(ctx, month)
	if err != nil {
		if errors.Is(err, service.ErrNoSnapshots) {
			slog.Info("no snapshots yet, nothing to warm", slog.String("rqID", rqID), slog.String("op", op))
			return nil
		}
		return err
	}

	err = s.cache.SetMonthlyReconciliation(ctx, rec)
	if err != nil {
		slog.Error("got error from cache.SetMonthlyReconciliation", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// CleanupDriveReports deletes expired uploaded reports. Scheduler job.
func (s *PortfolioService) CleanupDriveReports(ctx context.Context) error {
	if s.cloudStorage == nil {
		return nil
	}
	return s.cloudStorage.DeleteOldFiles(utils.CtxWithRqID(ctx, ""))
}
