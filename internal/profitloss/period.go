package profitloss

import (
	"errors"
	"regexp"
	"strings"
)

// PeriodAll selects every sell regardless of date.
const PeriodAll = "all"

var periodRe = regexp.MustCompile(`^\d{4}(-(0[1-9]|1[0-2]))?$`)

var ErrInvalidPeriod = errors.New("period must be YYYY, YYYY-MM or all")

// Period is a validated period selector: a 4-digit year, a year-month,
// or the literal "all". Matching against trade dates is string-prefix
// comparison on ISO date strings.
type Period struct {
	raw string
}

func ParsePeriod(s string) (Period, error) {
	if s == PeriodAll {
		return Period{raw: s}, nil
	}
	if !periodRe.MatchString(s) {
		return Period{}, ErrInvalidPeriod
	}
	return Period{raw: s}, nil
}

func (p Period) String() string {
	return p.raw
}

func (p Period) IsAll() bool {
	return p.raw == PeriodAll
}

// Month reports the year-month form, when the period has one.
func (p Period) Month() (string, bool) {
	if len(p.raw) == 7 {
		return p.raw, true
	}
	return "", false
}

func (p Period) Matches(isoDate string) bool {
	return p.IsAll() || strings.HasPrefix(isoDate, p.raw)
}
