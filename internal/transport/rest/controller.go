package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/atukutisuzume/portfolio-visualizer/config"
	"github.com/atukutisuzume/portfolio-visualizer/internal/model"
	"github.com/atukutisuzume/portfolio-visualizer/internal/profitloss"
	"github.com/atukutisuzume/portfolio-visualizer/internal/service"
	"github.com/atukutisuzume/portfolio-visualizer/utils"
)

type PortfolioService interface {
	ImportTradeHistory(ctx context.Context, raw []byte, filename string) (inserted int, source string, err error)
	ImportHoldings(ctx context.Context, raw []byte, filename string) (model.PortfolioSnapshot, error)
	GetSnapshotDates(ctx context.Context) ([]time.Time, error)
	GetLatestPortfolio(ctx context.Context) (model.PortfolioSnapshot, error)
	GetPortfolioByDate(ctx context.Context, date time.Time) (model.PortfolioSnapshot, error)
	CalculateProfitLoss(ctx context.Context, period string) (profitloss.Result, error)
	MonthlySymbolProfitLoss(ctx context.Context, month string) (model.MonthlyReconciliation, error)
	DailyChange(ctx context.Context) ([]model.DailyChange, error)
	MonthlyComposition(ctx context.Context, month string) ([]model.CompositionPoint, error)
	SymbolHistory(ctx context.Context, symbol, month string) ([]model.SymbolHistoryPoint, error)
	GeneratePLReport(ctx context.Context, period string) (downloadLink string, err error)
}

type Controller struct {
	cfg *config.Config
	srv PortfolioService
}

func NewController(cfg *config.Config, srv PortfolioService) *Controller {
	return &Controller{cfg: cfg, srv: srv}
}

func (c *Controller) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", slog.String("err", err.Error()))
	}
}

func (c *Controller) respondError(w http.ResponseWriter, r *http.Request, err error) {
	rqID := utils.GetRequestIDFromCtx(r.Context())

	switch {
	case errors.Is(err, service.ErrInvalidPeriod):
		c.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "period must be YYYY, YYYY-MM or all"})
	case errors.Is(err, service.ErrInvalidMonth):
		c.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "month must be YYYY-MM"})
	case errors.Is(err, service.ErrUnknownFormat):
		c.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "unsupported csv format"})
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrNoSnapshots):
		c.respondJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, service.ErrDriveDisabled):
		c.respondJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "report storage is not configured"})
	default:
		slog.Error("request failed", slog.String("rqID", rqID), slog.String("path", r.URL.Path), slog.String("err", err.Error()))
		c.respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

// readUpload pulls the multipart "file" part, capped at the configured
// upload size.
func (c *Controller) readUpload(w http.ResponseWriter, r *http.Request) (raw []byte, filename string, err error) {
	r.Body = http.MaxBytesReader(w, r.Body, c.cfg.HTTP.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	raw, err = io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}

	return raw, header.Filename, nil
}

func (c *Controller) ImportTrades(w http.ResponseWriter, r *http.Request) {
	raw, filename, err := c.readUpload(w, r)
	if err != nil {
		c.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "file upload required"})
		return
	}

	inserted, source, err := c.srv.ImportTradeHistory(r.Context(), raw, filename)
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	c.respondJSON(w, http.StatusCreated, importTradesResponse{Inserted: inserted, Source: source})
}

func (c *Controller) ImportHoldings(w http.ResponseWriter, r *http.Request) {
	raw, filename, err := c.readUpload(w, r)
	if err != nil {
		c.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "file upload required"})
		return
	}

	snapshot, err := c.srv.ImportHoldings(r.Context(), raw, filename)
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	c.respondJSON(w, http.StatusCreated, toPortfolioResponse(snapshot))
}

func (c *Controller) SnapshotDates(w http.ResponseWriter, r *http.Request) {
	dates, err := c.srv.GetSnapshotDates(r.Context())
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	resp := datesResponse{Dates: make([]string, 0, len(dates))}
	for _, date := range dates {
		resp.Dates = append(resp.Dates, date.Format(model.DateLayout))
	}

	c.respondJSON(w, http.StatusOK, resp)
}

func (c *Controller) LatestPortfolio(w http.ResponseWriter, r *http.Request) {
	snapshot, err := c.srv.GetLatestPortfolio(r.Context())
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	c.respondJSON(w, http.StatusOK, toPortfolioResponse(snapshot))
}

func (c *Controller) PortfolioByDate(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse(model.DateLayout, r.URL.Query().Get("date"))
	if err != nil {
		c.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "date must be YYYY-MM-DD"})
		return
	}

	snapshot, err := c.srv.GetPortfolioByDate(r.Context(), date)
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	c.respondJSON(w, http.StatusOK, toPortfolioResponse(snapshot))
}

func (c *Controller) ProfitLoss(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = profitloss.PeriodAll
	}

	result, err := c.srv.CalculateProfitLoss(r.Context(), period)
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	c.respondJSON(w, http.StatusOK, toProfitLossResponse(period, result))
}

func (c *Controller) MonthlySymbolProfitLoss(w http.ResponseWriter, r *http.Request) {
	rec, err := c.srv.MonthlySymbolProfitLoss(r.Context(), r.URL.Query().Get("month"))
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	c.respondJSON(w, http.StatusOK, rec)
}

func (c *Controller) DailyChange(w http.ResponseWriter, r *http.Request) {
	changes, err := c.srv.DailyChange(r.Context())
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	resp := make([]dailyChangeDTO, 0, len(changes))
	for _, change := range changes {
		resp = append(resp, dailyChangeDTO{
			Date:          change.Date.Format(model.DateLayout),
			TotalAsset:    change.TotalAsset,
			ChangePercent: change.ChangePercent,
		})
	}

	c.respondJSON(w, http.StatusOK, resp)
}

func (c *Controller) MonthlyComposition(w http.ResponseWriter, r *http.Request) {
	points, err := c.srv.MonthlyComposition(r.Context(), r.URL.Query().Get("month"))
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	resp := make([]compositionPointDTO, 0, len(points))
	for _, point := range points {
		resp = append(resp, compositionPointDTO{
			Date:   point.Date.Format(model.DateLayout),
			Values: point.Values,
		})
	}

	c.respondJSON(w, http.StatusOK, resp)
}

func (c *Controller) SymbolHistory(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		c.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "symbol is required"})
		return
	}

	points, err := c.srv.SymbolHistory(r.Context(), symbol, r.URL.Query().Get("month"))
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	resp := make([]symbolHistoryPointDTO, 0, len(points))
	for _, point := range points {
		resp = append(resp, symbolHistoryPointDTO{
			Date:        point.Date.Format(model.DateLayout),
			Quantity:    point.Quantity,
			HoldingRate: point.HoldingRate,
		})
	}

	c.respondJSON(w, http.StatusOK, resp)
}

func (c *Controller) GenerateReport(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = profitloss.PeriodAll
	}

	link, err := c.srv.GeneratePLReport(r.Context(), period)
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	c.respondJSON(w, http.StatusCreated, reportResponse{DownloadLink: link})
}
