// Package csvimport parses Rakuten Securities and moomoo Securities CSV
// exports into normalized trade and holding records. Both brokers ship
// Shift-JIS encoded files; UTF-8 exports pass through untouched.
package csvimport

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

var (
	ErrUnknownFormat = errors.New("unknown CSV format, expected a Rakuten or moomoo export")
	ErrNoDate        = errors.New("no YYYYMMDD date found in filename")
)

var filenameDateRe = regexp.MustCompile(`(\d{4})(\d{2})(\d{2})`)

// decodeText converts raw file bytes to a UTF-8 string, transcoding from
// Shift-JIS when the input isn't already valid UTF-8.
func decodeText(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	decoded, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// ExtractDateFromFilename pulls the snapshot date out of broker export
// filenames like assetbalance(report)20250809.csv.
func ExtractDateFromFilename(filename string) (time.Time, error) {
	m := filenameDateRe.FindStringSubmatch(filename)
	if m == nil {
		return time.Time{}, ErrNoDate
	}
	return time.Parse("20060102", m[0])
}

// parseNumber reads broker numerics, tolerating thousands separators and
// stray quotes. Unparseable input counts as zero, matching how the
// exports pad empty columns.
func parseNumber(s string) decimal.Decimal {
	cleaned := strings.NewReplacer(",", "", `"`, "", " ", "").Replace(s)
	if cleaned == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}
