package profitloss

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod_Valid(t *testing.T) {
	tests := []string{"all", "2024", "2024-01", "2024-12", "1999-09"}
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			p, err := ParsePeriod(raw)
			require.NoError(t, err)
			assert.Equal(t, raw, p.String())
		})
	}
}

func TestParsePeriod_Invalid(t *testing.T) {
	tests := []string{"", "2024-13", "2024-00", "2024-1", "24-01", "2024-01-15", "latest", "ALL"}
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			_, err := ParsePeriod(raw)
			assert.ErrorIs(t, err, ErrInvalidPeriod)
		})
	}
}

func TestPeriod_Matches(t *testing.T) {
	all, err := ParsePeriod("all")
	require.NoError(t, err)
	assert.True(t, all.Matches("2019-03-02"))
	assert.True(t, all.IsAll())

	year, err := ParsePeriod("2024")
	require.NoError(t, err)
	assert.True(t, year.Matches("2024-05-10"))
	assert.False(t, year.Matches("2023-12-31"))

	month, err := ParsePeriod("2024-05")
	require.NoError(t, err)
	assert.True(t, month.Matches("2024-05-01"))
	assert.False(t, month.Matches("2024-06-01"))
}

func TestPeriod_Month(t *testing.T) {
	month, err := ParsePeriod("2024-05")
	require.NoError(t, err)
	m, ok := month.Month()
	assert.True(t, ok)
	assert.Equal(t, "2024-05", m)

	year, err := ParsePeriod("2024")
	require.NoError(t, err)
	_, ok = year.Month()
	assert.False(t, ok)
}
