package xlsxGenerator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/atukutisuzume/portfolio-visualizer/internal/model"
	"github.com/atukutisuzume/portfolio-visualizer/internal/profitloss"
	"github.com/atukutisuzume/portfolio-visualizer/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

func (g *XLSXGenerator) Generate(ctx context.Context, period string, result profitloss.Result) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op), slog.String("period", period))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := g.fillSummarySheet(ctx, f, period, result); err != nil {
		return nil, "", err
	}

	if err := g.fillRecordsSheet(ctx, f, result.Records); err != nil {
		return nil, "", err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
}

func (g *XLSXGenerator) fillSummarySheet(ctx context.Context, f *excelize.File, period string, result profitloss.Result) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.fillSummarySheet"

	sheetName := "サマリー"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		slog.Error("got error while creating NewSheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "H1"); err != nil {
		return err
	}
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("損益サマリー（%s）", period))

	styleID, err := headerStyle(f, "#cfe2f3")
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, "A2", "通貨")
	_ = f.SetCellStr(sheetName, "B2", "合計損益")
	_ = f.SetCellStr(sheetName, "C2", "勝ち")
	_ = f.SetCellStr(sheetName, "D2", "勝ち額")
	_ = f.SetCellStr(sheetName, "E2", "負け")
	_ = f.SetCellStr(sheetName, "F2", "負け額")
	_ = f.SetCellStr(sheetName, "G2", "勝率")
	_ = f.SetCellStr(sheetName, "H2", "ペイオフレシオ")

	currencies := make([]model.Currency, 0, len(result.SummaryByCurrency))
	for currency := range result.SummaryByCurrency {
		currencies = append(currencies, currency)
	}
	sort.Slice(currencies, func(i, j int) bool { return currencies[i] < currencies[j] })

	rowNum := 2
	for _, currency := range currencies {
		summary := result.SummaryByCurrency[currency]
		rowNum++
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), string(currency))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum), summary.TotalProfitLoss.InexactFloat64())
		_ = f.SetCellInt(sheetName, fmt.Sprintf("C%d", rowNum), summary.WinningTrades)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowNum), summary.WinningAmount.InexactFloat64())
		_ = f.SetCellInt(sheetName, fmt.Sprintf("E%d", rowNum), summary.LosingTrades)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", rowNum), summary.LosingAmount.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", rowNum), summary.WinRate.Mul(decimal.NewFromInt(100)).InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", rowNum), summary.PayoffRatio.InexactFloat64())
	}

	// per-symbol block
	rowNum += 3

	if err := f.MergeCell(sheetName, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("G%d", rowNum)); err != nil {
		return err
	}
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowNum), "銘柄別損益")

	styleID, err = headerStyle(f, "#d9ead3")
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("A%d", rowNum), styleID); err != nil {
		return err
	}

	rowNum++
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), "銘柄コード")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", rowNum), "銘柄名")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", rowNum), "数量")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("D%d", rowNum), "平均売却単価")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("E%d", rowNum), "平均取得単価")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("F%d", rowNum), "損益")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("G%d", rowNum), "通貨")

	for _, symbol := range result.Symbols {
		rowNum++
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), symbol.Symbol)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", rowNum), symbol.Name)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowNum), symbol.Quantity.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowNum), symbol.AvgSellPrice.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowNum), symbol.AvgBuyPrice.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", rowNum), symbol.ProfitLoss.InexactFloat64())
		_ = f.SetCellStr(sheetName, fmt.Sprintf("G%d", rowNum), string(symbol.Currency))
	}

	return nil
}

func (g *XLSXGenerator) fillRecordsSheet(ctx context.Context, f *excelize.File, records []model.ProfitLossRecord) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.fillRecordsSheet"

	sheetName := "売却明細"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		slog.Error("got error while creating NewSheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "H1"); err != nil {
		return err
	}
	f.SetCellValue(sheetName, "A1", "売却明細")

	styleID, err := headerStyle(f, "#f9cb9c")
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, "A2", "売却日")
	_ = f.SetCellStr(sheetName, "B2", "銘柄コード")
	_ = f.SetCellStr(sheetName, "C2", "銘柄名")
	_ = f.SetCellStr(sheetName, "D2", "数量")
	_ = f.SetCellStr(sheetName, "E2", "売却単価")
	_ = f.SetCellStr(sheetName, "F2", "平均取得単価")
	_ = f.SetCellStr(sheetName, "G2", "損益")
	_ = f.SetCellStr(sheetName, "H2", "通貨")

	for i, rec := range records {
		rowNum := i + 3
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), rec.SellDate)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", rowNum), rec.Symbol)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", rowNum), rec.Name)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowNum), rec.Quantity.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowNum), rec.SellPrice.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", rowNum), rec.AvgBuyPrice.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", rowNum), rec.ProfitLoss.InexactFloat64())
		_ = f.SetCellStr(sheetName, fmt.Sprintf("H%d", rowNum), string(rec.Currency))
	}

	return nil
}
