package portfolioService

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/atukutisuzume/portfolio-visualizer/config"
	"github.com/atukutisuzume/portfolio-visualizer/data/repository"
	"github.com/atukutisuzume/portfolio-visualizer/internal/csvimport"
	"github.com/atukutisuzume/portfolio-visualizer/internal/model"
	"github.com/atukutisuzume/portfolio-visualizer/internal/profitloss"
	"github.com/atukutisuzume/portfolio-visualizer/internal/service"
	"github.com/atukutisuzume/portfolio-visualizer/internal/valuation"
	"github.com/atukutisuzume/portfolio-visualizer/utils"
	"github.com/shopspring/decimal"
)

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
	InsertTrades(ctx context.Context, trades []model.Trade) error
	GetAllTrades(ctx context.Context) ([]model.Trade, error)
	GetTradesBetween(ctx context.Context, from, to time.Time) ([]model.Trade, error)
	InsertPortfolioSnapshot(ctx context.Context, snapshot model.PortfolioSnapshot) error
	GetSnapshotDates(ctx context.Context) ([]time.Time, error)
	GetHoldingsByDate(ctx context.Context, date time.Time) ([]model.HoldingSnapshot, error)
	GetHoldingsBetween(ctx context.Context, from, to time.Time) ([]model.HoldingSnapshot, error)
	GetSymbolHoldingsBetween(ctx context.Context, symbol string, from, to time.Time) ([]model.HoldingSnapshot, error)
	GetLatestSnapshotDate(ctx context.Context) (time.Time, error)
	GetTotalAssetByDate(ctx context.Context, date time.Time) (decimal.Decimal, error)
	GetDailyAssets(ctx context.Context) ([]model.DailyAsset, error)
	GetDailyAssetsBetween(ctx context.Context, from, to time.Time) ([]model.DailyAsset, error)
}

type Cache interface {
	GetMonthlyReconciliation(ctx context.Context, month string) (model.MonthlyReconciliation, error)
	SetMonthlyReconciliation(ctx context.Context, rec model.MonthlyReconciliation) error
	FlushMonthlyReconciliation(ctx context.Context, month string) error
}

// Auditor receives reconciliation audit entries, best effort.
type Auditor interface {
	Record(entry any)
}

type ReportGenerator interface {
	Generate(ctx context.Context, period string, result profitloss.Result) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
	DeleteOldFiles(ctx context.Context) error
}

type PortfolioService struct {
	cfg          *config.Config
	repo         Repository
	cache        Cache
	audit        Auditor
	reportGen    ReportGenerator
	cloudStorage CloudStorage
}

func New(
	cfg *config.Config,
	repo Repository,
	cache Cache,
	audit Auditor,
	reportGen ReportGenerator,
	cloudStorage CloudStorage,
) *PortfolioService {
	return &PortfolioService{
		cfg:          cfg,
		repo:         repo,
		cache:        cache,
		audit:        audit,
		reportGen:    reportGen,
		cloudStorage: cloudStorage,
	}
}

// ImportTradeHistory parses one brokerage trade-history CSV and stores
// its trades. Returns the inserted count and the detected source.
func (s *PortfolioService) ImportTradeHistory(ctx context.Context, raw []byte, filename string) (inserted int, source string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ImportTradeHistory"

	slog.Debug("ImportTradeHistory start", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", filename))
	defer func() {
		slog.Debug("ImportTradeHistory finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", filename))
	}()

	trades, source, err := csvimport.ParseTradeHistory(raw, filename)
	if err != nil {
		if errors.Is(err, csvimport.ErrUnknownFormat) {
			slog.Warn("unknown trade history format", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", filename))
			return 0, "", service.ErrUnknownFormat
		}
		slog.Error("got error from csvimport.ParseTradeHistory", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, "", err
	}

	if len(trades) == 0 {
		return 0, source, nil
	}

	err = s.repo.InsertTrades(ctx, trades)
	if err != nil {
		slog.Error("got error from repo.InsertTrades", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, "", err
	}

	// New trades change the touched months' reconciliation inputs.
	months := make(map[string]struct{})
	for _, t := range trades {
		months[t.TradeDate.Format("2006-01")] = struct{}{}
	}
	for month := range months {
		s.flushMonthCache(ctx, month)
	}

	return len(trades), source, nil
}

// flushMonthCache drops one month's cached reconciliation, best effort.
func (s *PortfolioService) flushMonthCache(ctx context.Context, month string) {
	err := s.cache.FlushMonthlyReconciliation(ctx, month)
	if err != nil {
		slog.Warn(
			"can't flush reconciliation cache",
			slog.String("rqID", utils.GetRequestIDFromCtx(ctx)),
			slog.String("month", month),
			slog.String("err", err.Error()),
		)
	}
}

// ImportHoldings parses one holdings export and stores it as a portfolio
// snapshot. When the format carries no portfolio total (moomoo) the
// total is the JPY-converted sum of item values.
func (s *PortfolioService) ImportHoldings(ctx context.Context, raw []byte, filename string) (model.PortfolioSnapshot, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ImportHoldings"

	slog.Debug("ImportHoldings start", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", filename))
	defer func() {
		slog.Debug("ImportHoldings finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", filename))
	}()

	holdings, err := csvimport.ParseHoldings(raw, filename)
	if err != nil {
		if errors.Is(err, csvimport.ErrUnknownFormat) {
			slog.Warn("unknown holdings format", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", filename))
			return model.PortfolioSnapshot{}, service.ErrUnknownFormat
		}
		slog.Error("got error from csvimport.ParseHoldings", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioSnapshot{}, err
	}

	snapshot := model.PortfolioSnapshot{
		DataDate: holdings.Items[0].DataDate,
		Broker:   holdings.Source,
		Items:    holdings.Items,
	}

	if holdings.TotalAsset != nil {
		snapshot.TotalAsset = *holdings.TotalAsset
	} else {
		for _, item := range holdings.Items {
			snapshot.TotalAsset = snapshot.TotalAsset.Add(item.MarketValue().Mul(item.Currency.Rate(s.cfg.Rates.UsdJpy)))
		}
	}

	err = s.SavePortfolioSnapshot(ctx, snapshot)
	if err != nil {
		return model.PortfolioSnapshot{}, err
	}

	return snapshot, nil
}

// SavePortfolioSnapshot stores the snapshot header and items atomically.
func (s *PortfolioService) SavePortfolioSnapshot(ctx context.Context, snapshot model.PortfolioSnapshot) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.SavePortfolioSnapshot"

	slog.Debug("SavePortfolioSnapshot start", slog.String("rqID", rqID), slog.String("op", op), slog.Time("dataDate", snapshot.DataDate), slog.String("broker", snapshot.Broker))
	defer func() {
		slog.Debug("SavePortfolioSnapshot finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	err := s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		return s.repo.InsertPortfolioSnapshot(ctx, snapshot)
	})
	if err != nil {
		slog.Error("got error from repo.InsertPortfolioSnapshot", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	// A new snapshot can shift the month's boundary dates.
	s.flushMonthCache(ctx, snapshot.DataDate.Format("2006-01"))

	return nil
}

func (s *PortfolioService) GetSnapshotDates(ctx context.Context) ([]time.Time, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetSnapshotDates"

	slog.Debug("GetSnapshotDates start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GetSnapshotDates finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	dates, err := s.repo.GetSnapshotDates(ctx)
	if err != nil {
		slog.Error("got error from repo.GetSnapshotDates", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return dates, nil
}

// GetLatestPortfolio returns the newest snapshot merged across brokers.
func (s *PortfolioService) GetLatestPortfolio(ctx context.Context) (model.PortfolioSnapshot, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetLatestPortfolio"

	slog.Debug("GetLatestPortfolio start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GetLatestPortfolio finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	date, err := s.repo.GetLatestSnapshotDate(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.PortfolioSnapshot{}, service.ErrNoSnapshots
		}
		slog.Error("got error from repo.GetLatestSnapshotDate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioSnapshot{}, err
	}

	return s.GetPortfolioByDate(ctx, date)
}

// GetPortfolioByDate returns one date's holdings with duplicate symbols
// merged across brokers, largest positions first.
func (s *PortfolioService) GetPortfolioByDate(ctx context.Context, date time.Time) (model.PortfolioSnapshot, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetPortfolioByDate"

	slog.Debug("GetPortfolioByDate start", slog.String("rqID", rqID), slog.String("op", op), slog.Time("date", date))
	defer func() {
		slog.Debug("GetPortfolioByDate finished", slog.String("rqID", rqID), slog.String("op", op), slog.Time("date", date))
	}()

	rows, err := s.repo.GetHoldingsByDate(ctx, date)
	if err != nil {
		slog.Error("got error from repo.GetHoldingsByDate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioSnapshot{}, err
	}

	if len(rows) == 0 {
		return model.PortfolioSnapshot{}, service.ErrNotFound
	}

	totalAsset, err := s.repo.GetTotalAssetByDate(ctx, date)
	if err != nil {
		slog.Error("got error from repo.GetTotalAssetByDate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioSnapshot{}, err
	}

	merged := valuation.MergeBySymbol(rows)
	items := make([]model.HoldingSnapshot, 0, len(merged))
	for _, item := range merged {
		items = append(items, *item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		vi, vj := items[i].MarketValue(), items[j].MarketValue()
		if !vi.Equal(vj) {
			return vi.GreaterThan(vj)
		}
		return items[i].Symbol < items[j].Symbol
	})

	return model.PortfolioSnapshot{
		DataDate:   date,
		TotalAsset: totalAsset,
		Items:      items,
	}, nil
}
