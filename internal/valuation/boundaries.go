package valuation

import (
	"errors"
	"regexp"
	"sort"
	"time"

	"github.com/atukutisuzume/portfolio-visualizer/internal/model"
)

var monthRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

var ErrInvalidMonth = errors.New("month must be YYYY-MM")

// MonthRange returns the first and last calendar day of a YYYY-MM month.
func MonthRange(month string) (first, last time.Time, err error) {
	if !monthRe.MatchString(month) {
		return time.Time{}, time.Time{}, ErrInvalidMonth
	}
	first, err = time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidMonth
	}
	last = first.AddDate(0, 1, -1)
	return first, last, nil
}

// Boundaries are the four snapshot dates the reconciliation works from.
// JPY-denominated symbols value against JPYStart/JPYEnd; USD symbols
// against the snapshots one cycle earlier, because USD settlement lags
// the JPY snapshot cadence. A nil date means no snapshot exists on that
// side.
type Boundaries struct {
	JPYStart *time.Time
	USDStart *time.Time
	JPYEnd   *time.Time
	USDEnd   *time.Time
}

// SelectBoundaries picks the boundary dates for a month out of the full
// list of available snapshot dates: the latest date on or before the
// prior month's last day (JPY start) and the date immediately before it
// (USD start), plus the latest date inside the month (JPY end) and the
// date immediately before that (USD end).
func SelectBoundaries(available []time.Time, month string) (Boundaries, error) {
	first, last, err := MonthRange(month)
	if err != nil {
		return Boundaries{}, err
	}

	dates := dedupSorted(available)

	var b Boundaries
	priorEnd := first.AddDate(0, 0, -1)
	for i := len(dates) - 1; i >= 0; i-- {
		if !dates[i].After(priorEnd) {
			b.JPYStart = &dates[i]
			if i > 0 {
				b.USDStart = &dates[i-1]
			}
			break
		}
	}
	for i := len(dates) - 1; i >= 0; i-- {
		if !dates[i].After(last) && !dates[i].Before(first) {
			b.JPYEnd = &dates[i]
			if i > 0 {
				b.USDEnd = &dates[i-1]
			}
			break
		}
	}

	return b, nil
}

// StartFor returns the start boundary for a currency, EndFor the end
// boundary.
func (b Boundaries) StartFor(c model.Currency) *time.Time {
	if c == model.CurrencyUSD {
		return b.USDStart
	}
	return b.JPYStart
}

func (b Boundaries) EndFor(c model.Currency) *time.Time {
	if c == model.CurrencyUSD {
		return b.USDEnd
	}
	return b.JPYEnd
}

// Dates lists the distinct non-nil boundary dates, for fetching.
func (b Boundaries) Dates() []time.Time {
	seen := make(map[time.Time]struct{})
	var dates []time.Time
	for _, d := range []*time.Time{b.JPYStart, b.USDStart, b.JPYEnd, b.USDEnd} {
		if d == nil {
			continue
		}
		if _, ok := seen[*d]; ok {
			continue
		}
		seen[*d] = struct{}{}
		dates = append(dates, *d)
	}
	return dates
}

func dedupSorted(in []time.Time) []time.Time {
	out := make([]time.Time, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	dedup := out[:0]
	for _, d := range out {
		if len(dedup) == 0 || !dedup[len(dedup)-1].Equal(d) {
			dedup = append(dedup, d)
		}
	}
	return dedup
}
