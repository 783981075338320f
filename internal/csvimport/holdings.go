package csvimport

import (
	"encoding/csv"
	"strings"
	"time"

	"github.com/atukutisuzume/portfolio-visualizer/internal/model"
	"github.com/shopspring/decimal"
)

// Holdings is one parsed holdings export. TotalAsset is nil when the
// format doesn't carry a total (moomoo), so callers can distinguish
// "absent" from an actual zero.
type Holdings struct {
	Items      []model.HoldingSnapshot
	TotalAsset *decimal.Decimal
	Source     string
}

// ParseHoldings sniffs and parses a holdings snapshot CSV. The valuation
// date comes from the filename since neither format embeds it.
func ParseHoldings(raw []byte, filename string) (Holdings, error) {
	text, err := decodeText(raw)
	if err != nil {
		return Holdings{}, err
	}

	dataDate, err := ExtractDateFromFilename(filename)
	if err != nil {
		return Holdings{}, err
	}

	var h Holdings
	switch {
	case strings.Contains(text, "■現在の評価額合計"):
		h, err = parseRakutenHoldings(text, dataDate)
	case strings.Contains(text, `"コード","銘柄名","口座区分"`):
		h, err = parseMoomooHoldings(text, dataDate)
	default:
		return Holdings{}, ErrUnknownFormat
	}
	if err != nil {
		return Holdings{}, err
	}
	if len(h.Items) == 0 {
		return Holdings{}, ErrUnknownFormat
	}
	return h, nil
}

// parseRakutenHoldings reads the Rakuten asset-balance report: a preamble
// holding the portfolio total, then a positions table starting at the
// 銘柄コード header, terminated by per-account subtotal rows.
func parseRakutenHoldings(text string, dataDate time.Time) (Holdings, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	h := Holdings{Source: SourceRakuten}
	headerIdx := -1
	for i, line := range lines {
		if strings.HasPrefix(line, "■現在の評価額合計") {
			parts := splitCSVLine(line)
			if len(parts) > 2 {
				total := parseNumber(parts[2])
				h.TotalAsset = &total
			}
		}
		if strings.HasPrefix(line, "銘柄コード") {
			headerIdx = i
			break
		}
	}
	if headerIdx == -1 {
		return Holdings{}, ErrUnknownFormat
	}

	header := splitCSVLine(lines[headerIdx])
	for _, line := range lines[headerIdx+1:] {
		if strings.TrimSpace(line) == "" || strings.Contains(line, "特定口座合計") {
			continue
		}
		f := fieldMap(header, splitCSVLine(line))
		if f["銘柄コード"] == "" {
			continue
		}
		h.Items = append(h.Items, model.HoldingSnapshot{
			DataDate: dataDate,
			Symbol:   f["銘柄コード"],
			Name:     f["銘柄名"],
			Quantity: parseNumber(f["保有数量［株］"]),
			Price:    parseNumber(f["現在値［円］"]),
			Value:    parseNumber(f["時価評価額［円］"]),
			Currency: model.CurrencyJPY,
		})
	}

	return h, nil
}

func parseMoomooHoldings(text string, dataDate time.Time) (Holdings, error) {
	header, rows, err := readRecords(text)
	if err != nil {
		return Holdings{}, err
	}

	h := Holdings{Source: SourceMoomoo}
	for _, row := range rows {
		f := fieldMap(header, row)
		if f["コード"] == "" {
			continue
		}
		symbol := f["コード"]
		h.Items = append(h.Items, model.HoldingSnapshot{
			DataDate: dataDate,
			Symbol:   symbol,
			Name:     f["銘柄名"],
			Quantity: parseNumber(f["数量"]),
			Price:    parseNumber(f["現在値"]),
			Value:    parseNumber(f["評価額"]),
			Currency: determineCurrency(f["市場"], symbol),
		})
	}

	return h, nil
}

// splitCSVLine parses a single line with the csv reader so quoted fields
// containing commas survive.
func splitCSVLine(line string) []string {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	fields, err := r.Read()
	if err != nil {
		return nil
	}
	return fields
}
