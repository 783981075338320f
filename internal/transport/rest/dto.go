package rest

import (
	"github.com/atukutisuzume/portfolio-visualizer/internal/model"
	"github.com/atukutisuzume/portfolio-visualizer/internal/profitloss"
	"github.com/shopspring/decimal"
)

type errorResponse struct {
	Error string `json:"error"`
}

type importTradesResponse struct {
	Inserted int    `json:"inserted"`
	Source   string `json:"source"`
}

type holdingDTO struct {
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	Quantity     decimal.Decimal `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Value        decimal.Decimal `json:"value"`
	AveragePrice decimal.Decimal `json:"averagePrice"`
	GainLoss     decimal.Decimal `json:"gainLoss"`
	Currency     string          `json:"currency"`
}

type portfolioResponse struct {
	DataDate   string          `json:"dataDate"`
	TotalAsset decimal.Decimal `json:"totalAsset"`
	Items      []holdingDTO    `json:"items"`
}

type datesResponse struct {
	Dates []string `json:"dates"`
}

type profitLossRecordDTO struct {
	Symbol      string          `json:"symbol"`
	Name        string          `json:"name"`
	SellDate    string          `json:"sellDate"`
	Quantity    decimal.Decimal `json:"quantity"`
	SellPrice   decimal.Decimal `json:"sellPrice"`
	AvgBuyPrice decimal.Decimal `json:"avgBuyPrice"`
	ProfitLoss  decimal.Decimal `json:"profitLoss"`
	Currency    string          `json:"currency"`
}

type symbolProfitLossDTO struct {
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	Quantity     decimal.Decimal `json:"quantity"`
	AvgSellPrice decimal.Decimal `json:"avgSellPrice"`
	AvgBuyPrice  decimal.Decimal `json:"avgBuyPrice"`
	ProfitLoss   decimal.Decimal `json:"profitLoss"`
	Currency     string          `json:"currency"`
}

type profitLossSummaryDTO struct {
	TotalProfitLoss decimal.Decimal `json:"totalProfitLoss"`
	WinningTrades   int             `json:"winningTrades"`
	WinningAmount   decimal.Decimal `json:"winningAmount"`
	LosingTrades    int             `json:"losingTrades"`
	LosingAmount    decimal.Decimal `json:"losingAmount"`
	WinRate         decimal.Decimal `json:"winRate"`
	PayoffRatio     decimal.Decimal `json:"payoffRatio"`
}

type monthlyProfitLossDTO struct {
	Month      string          `json:"month"`
	ProfitLoss decimal.Decimal `json:"profitLoss"`
}

type profitLossResponse struct {
	Period  string                          `json:"period"`
	Records []profitLossRecordDTO           `json:"records"`
	Symbols []symbolProfitLossDTO           `json:"symbols"`
	Summary map[string]profitLossSummaryDTO `json:"summary"`
	Monthly []monthlyProfitLossDTO          `json:"monthly,omitempty"`
}

type dailyChangeDTO struct {
	Date          string          `json:"date"`
	TotalAsset    decimal.Decimal `json:"totalAsset"`
	ChangePercent decimal.Decimal `json:"changePercent"`
}

type compositionPointDTO struct {
	Date   string                     `json:"date"`
	Values map[string]decimal.Decimal `json:"values"`
}

type symbolHistoryPointDTO struct {
	Date        string           `json:"date"`
	Quantity    decimal.Decimal  `json:"quantity"`
	HoldingRate *decimal.Decimal `json:"holdingRate"`
}

type reportResponse struct {
	DownloadLink string `json:"downloadLink"`
}

func toPortfolioResponse(snapshot model.PortfolioSnapshot) portfolioResponse {
	items := make([]holdingDTO, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		items = append(items, holdingDTO{
			Symbol:       item.Symbol,
			Name:         item.Name,
			Quantity:     item.Quantity,
			Price:        item.Price,
			Value:        item.MarketValue(),
			AveragePrice: item.AveragePrice,
			GainLoss:     item.GainLoss,
			Currency:     string(item.Currency),
		})
	}
	return portfolioResponse{
		DataDate:   snapshot.DataDate.Format(model.DateLayout),
		TotalAsset: snapshot.TotalAsset,
		Items:      items,
	}
}

func toProfitLossResponse(period string, result profitloss.Result) profitLossResponse {
	resp := profitLossResponse{
		Period:  period,
		Records: make([]profitLossRecordDTO, 0, len(result.Records)),
		Symbols: make([]symbolProfitLossDTO, 0, len(result.Symbols)),
		Summary: make(map[string]profitLossSummaryDTO, len(result.SummaryByCurrency)),
	}
	for _, rec := range result.Records {
		resp.Records = append(resp.Records, profitLossRecordDTO{
			Symbol:      rec.Symbol,
			Name:        rec.Name,
			SellDate:    rec.SellDate,
			Quantity:    rec.Quantity,
			SellPrice:   rec.SellPrice,
			AvgBuyPrice: rec.AvgBuyPrice,
			ProfitLoss:  rec.ProfitLoss,
			Currency:    string(rec.Currency),
		})
	}
	for _, symbol := range result.Symbols {
		resp.Symbols = append(resp.Symbols, symbolProfitLossDTO{
			Symbol:       symbol.Symbol,
			Name:         symbol.Name,
			Quantity:     symbol.Quantity,
			AvgSellPrice: symbol.AvgSellPrice,
			AvgBuyPrice:  symbol.AvgBuyPrice,
			ProfitLoss:   symbol.ProfitLoss,
			Currency:     string(symbol.Currency),
		})
	}
	for currency, summary := range result.SummaryByCurrency {
		resp.Summary[string(currency)] = profitLossSummaryDTO{
			TotalProfitLoss: summary.TotalProfitLoss,
			WinningTrades:   summary.WinningTrades,
			WinningAmount:   summary.WinningAmount,
			LosingTrades:    summary.LosingTrades,
			LosingAmount:    summary.LosingAmount,
			WinRate:         summary.WinRate,
			PayoffRatio:     summary.PayoffRatio,
		}
	}
	for _, month := range result.Monthly {
		resp.Monthly = append(resp.Monthly, monthlyProfitLossDTO{Month: month.Month, ProfitLoss: month.ProfitLoss})
	}
	return resp
}
