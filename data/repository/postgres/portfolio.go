package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/atukutisuzume/portfolio-visualizer/data/repository"
	"github.com/atukutisuzume/portfolio-visualizer/internal/converter/dbConverter"
	"github.com/atukutisuzume/portfolio-visualizer/internal/model"
	"github.com/atukutisuzume/portfolio-visualizer/internal/model/dbModel"
	"github.com/atukutisuzume/portfolio-visualizer/utils"
	"github.com/shopspring/decimal"
)

// InsertPortfolioSnapshot stores one broker's holdings export: the
// portfolio header row plus its items, inside the ambient transaction.
func (r *Postgres) InsertPortfolioSnapshot(ctx context.Context, snapshot model.PortfolioSnapshot) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertPortfolioSnapshot"
	headerQuery := `
		INSERT INTO portfolios(user_id, data_date, broker, total_asset)
		VALUES($1, $2, $3, $4)
		RETURNING portfolio_id
		`
	itemsQuery := `
        INSERT INTO portfolio_items(
            portfolio_id, data_date, code, name, quantity, price, value, average_price, gain_loss, currency
        )
        SELECT
            $1, -- portfolio_id
            $2, -- data_date
            u.code,
            u.name,
            u.quantity,
            u.price,
            u.value,
            u.average_price,
            u.gain_loss,
            u.currency
        FROM UNNEST(
            $3::text[],
            $4::text[],
            $5::decimal[],
            $6::decimal[],
            $7::decimal[],
            $8::decimal[],
            $9::decimal[],
            $10::text[]
        ) AS u(code, name, quantity, price, value, average_price, gain_loss, currency)`

	slog.Debug(
		"InsertPortfolioSnapshot start",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.String("broker", snapshot.Broker),
		slog.Time("dataDate", snapshot.DataDate),
		slog.Int("items", len(snapshot.Items)),
	)
	defer func() {
		if err != nil {
			slog.Error("InsertPortfolioSnapshot failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertPortfolioSnapshot completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	var portfolioID int64
	err = r.txOrDb(ctx).QueryRowContext(ctx, headerQuery, fixedUserID, snapshot.DataDate, snapshot.Broker, snapshot.TotalAsset).Scan(&portfolioID)
	if err != nil {
		return err
	}

	codes := make([]string, 0, len(snapshot.Items))
	names := make([]string, 0, len(snapshot.Items))
	quantities := make([]decimal.Decimal, 0, len(snapshot.Items))
	prices := make([]decimal.Decimal, 0, len(snapshot.Items))
	values := make([]decimal.Decimal, 0, len(snapshot.Items))
	avgPrices := make([]decimal.Decimal, 0, len(snapshot.Items))
	gainLosses := make([]decimal.Decimal, 0, len(snapshot.Items))
	currencies := make([]string, 0, len(snapshot.Items))

	for _, item := range snapshot.Items {
		codes = append(codes, item.Symbol)
		names = append(names, item.Name)
		quantities = append(quantities, item.Quantity)
		prices = append(prices, item.Price)
		values = append(values, item.Value)
		avgPrices = append(avgPrices, item.AveragePrice)
		gainLosses = append(gainLosses, item.GainLoss)
		currencies = append(currencies, string(item.Currency))
	}

	_, err = r.txOrDb(ctx).ExecContext(
		ctx,
		itemsQuery,
		portfolioID,
		snapshot.DataDate,
		codes,
		names,
		quantities,
		prices,
		values,
		avgPrices,
		gainLosses,
		currencies,
	)

	if err != nil {
		return err
	}
	return nil
}

// GetSnapshotDates lists every distinct valuation date, newest first.
func (r *Postgres) GetSnapshotDates(ctx context.Context) (dates []time.Time, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetSnapshotDates"
	query := `
		SELECT DISTINCT data_date FROM portfolios
		WHERE user_id = $1
		ORDER BY data_date DESC
		`

	slog.Debug("GetSnapshotDates start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetSnapshotDates failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetSnapshotDates completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).SelectContext(ctx, &dates, query, fixedUserID)
	if err != nil {
		return nil, err
	}

	return dates, nil
}

func (r *Postgres) getItems(ctx context.Context, op, query string, args ...any) (items []model.HoldingSnapshot, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error(op+" failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug(op+" completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var item dbModel.PortfolioItem
		err = rows.StructScan(&item)
		if err != nil {
			return nil, err
		}
		items = append(items, dbConverter.ConvertPortfolioItem(item))
	}

	return items, nil
}

// GetHoldingsByDate returns every item row at one valuation date, across
// brokers. Duplicate symbols are the caller's merge concern.
func (r *Postgres) GetHoldingsByDate(ctx context.Context, date time.Time) ([]model.HoldingSnapshot, error) {
	query := `
		SELECT i.id, i.portfolio_id, i.data_date, i.code, i.name, i.quantity, i.price, i.value, i.average_price, i.gain_loss, i.currency
		FROM portfolio_items i
		JOIN portfolios p USING(portfolio_id)
		WHERE p.user_id = $1
		AND i.data_date = $2
		`

	return r.getItems(ctx, "Postgres.GetHoldingsByDate", query, fixedUserID, date)
}

func (r *Postgres) GetHoldingsBetween(ctx context.Context, from, to time.Time) ([]model.HoldingSnapshot, error) {
	query := `
		SELECT i.id, i.portfolio_id, i.data_date, i.code, i.name, i.quantity, i.price, i.value, i.average_price, i.gain_loss, i.currency
		FROM portfolio_items i
		JOIN portfolios p USING(portfolio_id)
		WHERE p.user_id = $1
		AND i.data_date >= $2
		AND i.data_date <= $3
		ORDER BY i.data_date
		`

	return r.getItems(ctx, "Postgres.GetHoldingsBetween", query, fixedUserID, from, to)
}

func (r *Postgres) GetSymbolHoldingsBetween(ctx context.Context, symbol string, from, to time.Time) ([]model.HoldingSnapshot, error) {
	query := `
		SELECT i.id, i.portfolio_id, i.data_date, i.code, i.name, i.quantity, i.price, i.value, i.average_price, i.gain_loss, i.currency
		FROM portfolio_items i
		JOIN portfolios p USING(portfolio_id)
		WHERE p.user_id = $1
		AND i.code = $2
		AND i.data_date >= $3
		AND i.data_date <= $4
		ORDER BY i.data_date
		`

	return r.getItems(ctx, "Postgres.GetSymbolHoldingsBetween", query, fixedUserID, symbol, from, to)
}

// GetLatestSnapshotDate returns the newest valuation date, or
// repository.ErrNotFound when nothing has been imported yet.
func (r *Postgres) GetLatestSnapshotDate(ctx context.Context) (date time.Time, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetLatestSnapshotDate"
	query := `
		SELECT MAX(data_date) FROM portfolios
		WHERE user_id = $1
		`

	slog.Debug("GetLatestSnapshotDate start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetLatestSnapshotDate failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetLatestSnapshotDate completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	var maxDate sql.NullTime
	err = r.txOrDb(ctx).QueryRowContext(ctx, query, fixedUserID).Scan(&maxDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, repository.ErrNotFound
		}
		return time.Time{}, err
	}
	if !maxDate.Valid {
		return time.Time{}, repository.ErrNotFound
	}

	return maxDate.Time, nil
}

// GetTotalAssetByDate sums every broker's total asset at one date.
func (r *Postgres) GetTotalAssetByDate(ctx context.Context, date time.Time) (total decimal.Decimal, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetTotalAssetByDate"
	query := `
		SELECT COALESCE(SUM(total_asset), 0) FROM portfolios
		WHERE user_id = $1
		AND data_date = $2
		`

	slog.Debug("GetTotalAssetByDate start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetTotalAssetByDate failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetTotalAssetByDate completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, fixedUserID, date).Scan(&total)
	if err != nil {
		return decimal.Decimal{}, err
	}

	return total, nil
}

// GetDailyAssets returns per-date total assets summed across brokers,
// oldest first.
func (r *Postgres) GetDailyAssets(ctx context.Context) (assets []model.DailyAsset, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetDailyAssets"
	query := `
		SELECT data_date, SUM(total_asset) AS total_asset FROM portfolios
		WHERE user_id = $1
		GROUP BY data_date
		ORDER BY data_date
		`

	slog.Debug("GetDailyAssets start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetDailyAssets failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetDailyAssets completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, fixedUserID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var asset dbModel.DailyAsset
		err = rows.StructScan(&asset)
		if err != nil {
			return nil, err
		}
		assets = append(assets, dbConverter.ConvertDailyAsset(asset))
	}

	return assets, nil
}

// GetDailyAssetsBetween is GetDailyAssets clamped to one date range.
func (r *Postgres) GetDailyAssetsBetween(ctx context.Context, from, to time.Time) (assets []model.DailyAsset, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetDailyAssetsBetween"
	query := `
		SELECT data_date, SUM(total_asset) AS total_asset FROM portfolios
		WHERE user_id = $1
		AND data_date >= $2
		AND data_date <= $3
		GROUP BY data_date
		HAVING SUM(total_asset) > 0
		ORDER BY data_date
		`

	slog.Debug("GetDailyAssetsBetween start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetDailyAssetsBetween failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetDailyAssetsBetween completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, fixedUserID, from, to)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var asset dbModel.DailyAsset
		err = rows.StructScan(&asset)
		if err != nil {
			return nil, err
		}
		assets = append(assets, dbConverter.ConvertDailyAsset(asset))
	}

	return assets, nil
}
