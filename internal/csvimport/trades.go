package csvimport

import (
	"encoding/csv"
	"strings"
	"time"

	"github.com/atukutisuzume/portfolio-visualizer/internal/model"
)

const (
	SourceRakuten = "rakuten"
	SourceMoomoo  = "moomoo"
)

// ParseTradeHistory sniffs the broker format from the file content and
// returns normalized trades plus the detected source.
func ParseTradeHistory(raw []byte, filename string) ([]model.Trade, string, error) {
	text, err := decodeText(raw)
	if err != nil {
		return nil, "", err
	}

	var trades []model.Trade
	var source string
	switch {
	case strings.Contains(text, "約定日,受渡日,銘柄コード"):
		trades, err = parseRakutenTrades(text)
		source = SourceRakuten
	case strings.Contains(text, `"売買方向","銘柄コード","銘柄名"`):
		isMargin := strings.Contains(filename, "信用") || strings.Contains(text, "信用区分")
		trades, err = parseMoomooTrades(text, isMargin)
		source = SourceMoomoo
	default:
		return nil, "", ErrUnknownFormat
	}
	if err != nil {
		return nil, "", err
	}
	if len(trades) == 0 {
		return nil, "", ErrUnknownFormat
	}
	return trades, source, nil
}

func readRecords(text string) (header []string, rows [][]string, err error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return nil, nil, nil
	}
	return all[0], all[1:], nil
}

func fieldMap(header, row []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, h := range header {
		if i < len(row) {
			m[strings.TrimSpace(h)] = row[i]
		}
	}
	return m
}

func parseRakutenTrades(text string) ([]model.Trade, error) {
	header, rows, err := readRecords(text)
	if err != nil {
		return nil, err
	}

	var trades []model.Trade
	for _, row := range rows {
		f := fieldMap(header, row)
		if f["約定日"] == "" || f["銘柄コード"] == "" || f["売買区分"] == "" {
			continue
		}

		tradeDate, ok := parseSlashDate(f["約定日"])
		if !ok {
			continue
		}

		side := model.SideSell
		if f["売買区分"] == "買付" {
			side = model.SideBuy
		}

		market := f["市場名称"]
		symbol := f["銘柄コード"]

		trades = append(trades, model.Trade{
			TradeDate:   tradeDate,
			Symbol:      symbol,
			Name:        f["銘柄名"],
			Market:      market,
			AccountType: f["口座区分"],
			TradeType:   f["取引区分"],
			Side:        side,
			Quantity:    parseNumber(f["数量［株］"]),
			Price:       parseNumber(f["単価［円］"]),
			Amount:      parseNumber(f["受渡金額［円］"]).Abs(),
			Currency:    determineCurrency(market, symbol),
			Source:      SourceRakuten,
		})
	}

	return trades, nil
}

func parseMoomooTrades(text string, isMargin bool) ([]model.Trade, error) {
	header, rows, err := readRecords(text)
	if err != nil {
		return nil, err
	}

	tradeType := "現物"
	if isMargin {
		tradeType = "信用"
	}

	var trades []model.Trade
	for _, row := range rows {
		f := fieldMap(header, row)
		// moomoo exports list pending orders too; only 約定済 rows are filled
		if f["取引状況"] != "約定済" || f["約定日時"] == "" || f["銘柄コード"] == "" {
			continue
		}

		tradeDate, ok := parseSlashDate(strings.SplitN(f["約定日時"], " ", 2)[0])
		if !ok {
			continue
		}

		currency := model.CurrencyUSD
		if f["通貨"] == "JPY" {
			currency = model.CurrencyJPY
		}

		trades = append(trades, model.Trade{
			TradeDate:   tradeDate,
			Symbol:      f["銘柄コード"],
			Name:        f["銘柄名"],
			Market:      f["市場"],
			AccountType: f["口座区分"],
			TradeType:   tradeType,
			Side:        determineMoomooSide(f["売買方向"]),
			Quantity:    parseNumber(f["約定数量"]),
			Price:       parseNumber(f["約定価格"]),
			Amount:      parseNumber(f["約定金額"]),
			Currency:    currency,
			Source:      SourceMoomoo,
		})
	}

	return trades, nil
}

// parseSlashDate reads broker dates like "2025/6/18".
func parseSlashDate(s string) (time.Time, bool) {
	cleaned := strings.Trim(strings.TrimSpace(s), `"`)
	t, err := time.Parse("2006/1/2", cleaned)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func determineMoomooSide(direction string) model.TradeSide {
	if strings.Contains(direction, "売") {
		return model.SideSell
	}
	return model.SideBuy
}

// determineCurrency infers the settlement currency from the market name,
// falling back to the symbol shape: all-alphabetic tickers are US
// listings, numeric codes are Japanese.
func determineCurrency(market, symbol string) model.Currency {
	switch {
	case strings.Contains(market, "米国"), market == "NASDAQ", market == "NYSE":
		return model.CurrencyUSD
	case strings.Contains(market, "東証"), strings.Contains(market, "JNX"), strings.Contains(market, "JAX"), market == "市場外":
		return model.CurrencyJPY
	}
	if symbol != "" && isAllUpperAlpha(symbol) {
		return model.CurrencyUSD
	}
	return model.CurrencyJPY
}

func isAllUpperAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
