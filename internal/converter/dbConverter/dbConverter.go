package dbConverter

import (
	"github.com/atukutisuzume/portfolio-visualizer/internal/model"
	"github.com/atukutisuzume/portfolio-visualizer/internal/model/dbModel"
)

func ConvertTrade(dbTrade dbModel.Trade) model.Trade {
	return model.Trade{
		ID:          dbTrade.ID,
		TradeDate:   dbTrade.TradeDate,
		Symbol:      dbTrade.Symbol,
		Name:        dbTrade.Name,
		Market:      dbTrade.Market,
		AccountType: dbTrade.AccountType,
		TradeType:   dbTrade.TradeType,
		Side:        model.TradeSide(dbTrade.Side),
		Quantity:    dbTrade.Quantity,
		Price:       dbTrade.Price,
		Amount:      dbTrade.Amount,
		Currency:    model.Currency(dbTrade.Currency),
		Source:      dbTrade.Source,
	}
}

func ConvertPortfolioItem(dbItem dbModel.PortfolioItem) model.HoldingSnapshot {
	return model.HoldingSnapshot{
		DataDate:     dbItem.DataDate,
		Symbol:       dbItem.Symbol,
		Name:         dbItem.Name,
		Quantity:     dbItem.Quantity,
		Price:        dbItem.Price,
		Value:        dbItem.Value,
		AveragePrice: dbItem.AveragePrice,
		GainLoss:     dbItem.GainLoss,
		Currency:     model.Currency(dbItem.Currency),
	}
}

func ConvertDailyAsset(dbAsset dbModel.DailyAsset) model.DailyAsset {
	return model.DailyAsset{
		Date:       dbAsset.DataDate,
		TotalAsset: dbAsset.TotalAsset,
	}
}
