package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/atukutisuzume/portfolio-visualizer/internal/converter/dbConverter"
	"github.com/atukutisuzume/portfolio-visualizer/internal/model"
	"github.com/atukutisuzume/portfolio-visualizer/internal/model/dbModel"
	"github.com/atukutisuzume/portfolio-visualizer/utils"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/shopspring/decimal"
)

// fixedUserID scopes every row to the tracker's single user identity.
const fixedUserID = "123e4567-e89b-12d3-a456-426614174000"

func (r *Postgres) InsertTrades(ctx context.Context, trades []model.Trade) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertTrades"
	query := `
        INSERT INTO trade_history(
            user_id, trade_date, symbol, name, market, account_type,
            trade_type, side, quantity, price, amount, currency, source
        )
        SELECT
            $1, -- user_id
            u.trade_date,
            u.symbol,
            u.name,
            u.market,
            u.account_type,
            u.trade_type,
            u.side,
            u.quantity,
            u.price,
            u.amount,
            u.currency,
            u.source
        FROM UNNEST(
            $2::date[],
            $3::text[],
            $4::text[],
            $5::text[],
            $6::text[],
            $7::text[],
            $8::text[],
            $9::decimal[],
            $10::decimal[],
            $11::decimal[],
            $12::text[],
            $13::text[]
        ) AS u(trade_date, symbol, name, market, account_type, trade_type, side, quantity, price, amount, currency, source)`

	tradeDates := make([]time.Time, 0, len(trades))
	symbols := make([]string, 0, len(trades))
	names := make([]string, 0, len(trades))
	markets := make([]string, 0, len(trades))
	accountTypes := make([]string, 0, len(trades))
	tradeTypes := make([]string, 0, len(trades))
	sides := make([]string, 0, len(trades))
	quantities := make([]decimal.Decimal, 0, len(trades))
	prices := make([]decimal.Decimal, 0, len(trades))
	amounts := make([]decimal.Decimal, 0, len(trades))
	currencies := make([]string, 0, len(trades))
	sources := make([]string, 0, len(trades))

	for _, t := range trades {
		tradeDates = append(tradeDates, t.TradeDate)
		symbols = append(symbols, t.Symbol)
		names = append(names, t.Name)
		markets = append(markets, t.Market)
		accountTypes = append(accountTypes, t.AccountType)
		tradeTypes = append(tradeTypes, t.TradeType)
		sides = append(sides, string(t.Side))
		quantities = append(quantities, t.Quantity)
		prices = append(prices, t.Price)
		amounts = append(amounts, t.Amount)
		currencies = append(currencies, string(t.Currency))
		sources = append(sources, t.Source)
	}

	slog.Debug("InsertTrades start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(trades)), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertTrades failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertTrades completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(
		ctx,
		query,
		fixedUserID,
		tradeDates,
		symbols,
		names,
		markets,
		accountTypes,
		tradeTypes,
		sides,
		quantities,
		prices,
		amounts,
		currencies,
		sources,
	)

	if err != nil {
		return err
	}
	return nil
}

func (r *Postgres) getTrades(ctx context.Context, op, query string, args ...any) (trades []model.Trade, err error) {
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
		var trade dbModel.Trade
		err = rows.StructScan(&trade)
		if err != nil {
			return nil, err
		}
		trades = append(trades, dbConverter.ConvertTrade(trade))
	}

	return trades, nil
}

// GetAllTrades returns the user's full trade history, oldest first, the
// order the FIFO matcher expects.
func (r *Postgres) GetAllTrades(ctx context.Context) ([]model.Trade, error) {
	query := `
		SELECT id, trade_date, symbol, name, market, account_type, trade_type, side, quantity, price, amount, currency, source
		FROM trade_history
		WHERE user_id = $1
		ORDER BY trade_date, id
		`

	return r.getTrades(ctx, "Postgres.GetAllTrades", query, fixedUserID)
}

func (r *Postgres) GetTradesBetween(ctx context.Context, from, to time.Time) ([]model.Trade, error) {
	query := `
		SELECT id, trade_date, symbol, name, market, account_type, trade_type, side, quantity, price, amount, currency, source
		FROM trade_history
		WHERE user_id = $1
		AND trade_date >= $2
		AND trade_date <= $3
		ORDER BY trade_date, id
		`

	return r.getTrades(ctx, "Postgres.GetTradesBetween", query, fixedUserID, from, to)
}
