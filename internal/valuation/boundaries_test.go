package valuation

import (
	"testing"
	"time"

	"github.com/atukutisuzume/portfolio-visualizer/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestMonthRange(t *testing.T) {
	first, last, err := MonthRange("2024-02")
	require.NoError(t, err)
	assert.Equal(t, day("2024-02-01"), first)
	assert.Equal(t, day("2024-02-29"), last)
}

func TestMonthRange_Invalid(t *testing.T) {
	for _, raw := range []string{"", "2024", "2024-13", "2024-00", "2024-1", "all"} {
		t.Run(raw, func(t *testing.T) {
			_, _, err := MonthRange(raw)
			assert.ErrorIs(t, err, ErrInvalidMonth)
		})
	}
}

func TestSelectBoundaries(t *testing.T) {
	available := []time.Time{
		day("2024-01-15"),
		day("2024-01-31"),
		day("2024-02-15"),
		day("2024-02-29"),
	}

	b, err := SelectBoundaries(available, "2024-02")
	require.NoError(t, err)

	require.NotNil(t, b.JPYStart)
	assert.Equal(t, day("2024-01-31"), *b.JPYStart)
	require.NotNil(t, b.USDStart)
	assert.Equal(t, day("2024-01-15"), *b.USDStart)
	require.NotNil(t, b.JPYEnd)
	assert.Equal(t, day("2024-02-29"), *b.JPYEnd)
	require.NotNil(t, b.USDEnd)
	assert.Equal(t, day("2024-02-15"), *b.USDEnd)
}

func TestSelectBoundaries_UnorderedInput(t *testing.T) {
	available := []time.Time{
		day("2024-02-29"),
		day("2024-01-15"),
		day("2024-02-15"),
		day("2024-01-31"),
	}

	b, err := SelectBoundaries(available, "2024-02")
	require.NoError(t, err)
	assert.Equal(t, day("2024-01-31"), *b.JPYStart)
	assert.Equal(t, day("2024-02-29"), *b.JPYEnd)
}

func TestSelectBoundaries_FirstMonthHasNoStart(t *testing.T) {
	available := []time.Time{
		day("2024-02-15"),
		day("2024-02-29"),
	}

	b, err := SelectBoundaries(available, "2024-02")
	require.NoError(t, err)

	assert.Nil(t, b.JPYStart)
	assert.Nil(t, b.USDStart)
	require.NotNil(t, b.JPYEnd)
	assert.Equal(t, day("2024-02-29"), *b.JPYEnd)
	require.NotNil(t, b.USDEnd)
	assert.Equal(t, day("2024-02-15"), *b.USDEnd)
}

func TestSelectBoundaries_NoSnapshotsInMonth(t *testing.T) {
	available := []time.Time{
		day("2024-01-15"),
		day("2024-01-31"),
	}

	b, err := SelectBoundaries(available, "2024-02")
	require.NoError(t, err)

	require.NotNil(t, b.JPYStart)
	assert.Equal(t, day("2024-01-31"), *b.JPYStart)
	assert.Nil(t, b.JPYEnd)
	assert.Nil(t, b.USDEnd)
}

func TestSelectBoundaries_SingleDate(t *testing.T) {
	b, err := SelectBoundaries([]time.Time{day("2024-02-15")}, "2024-02")
	require.NoError(t, err)

	assert.Nil(t, b.JPYStart)
	assert.Nil(t, b.USDStart)
	require.NotNil(t, b.JPYEnd)
	// no earlier date exists for the USD end
	assert.Nil(t, b.USDEnd)
}

func TestBoundaries_ForCurrency(t *testing.T) {
	jpyStart, usdStart := day("2024-01-31"), day("2024-01-15")
	b := Boundaries{JPYStart: &jpyStart, USDStart: &usdStart}

	assert.Equal(t, &jpyStart, b.StartFor(model.CurrencyJPY))
	assert.Equal(t, &usdStart, b.StartFor(model.CurrencyUSD))
	assert.Nil(t, b.EndFor(model.CurrencyJPY))
}

func TestBoundaries_DatesDeduplicates(t *testing.T) {
	d1, d2 := day("2024-01-31"), day("2024-02-29")
	b := Boundaries{JPYStart: &d1, USDStart: &d1, JPYEnd: &d2}

	assert.Equal(t, []time.Time{d1, d2}, b.Dates())
}
