package periods

import (
	"testing"
	"time"

	"github.com/advisorly/feetrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAnchorMonthly(t *testing.T) {
	for m := time.February; m <= time.December; m++ {
		got := Anchor(models.ScheduleMonthly, date(2025, m, 15))
		assert.Equal(t, Key{Year: 2025, Period: int(m) - 1}, got, "month %s", m)
	}
	// January wraps to December of the previous year.
	assert.Equal(t, Key{Year: 2024, Period: 12}, Anchor(models.ScheduleMonthly, date(2025, time.January, 3)))
}

func TestAnchorQuarterly(t *testing.T) {
	cases := []struct {
		today time.Time
		want  Key
	}{
		{date(2025, time.February, 1), Key{2024, 4}}, // Q1 wraps
		{date(2025, time.April, 10), Key{2025, 1}},
		{date(2025, time.August, 31), Key{2025, 2}},
		{date(2025, time.December, 31), Key{2025, 3}},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Anchor(models.ScheduleQuarterly, c.today), "today=%s", c.today)
	}
}

func TestRangeInclusiveDescendingNoGaps(t *testing.T) {
	keys := Range(models.ScheduleMonthly, Key{2023, 1}, Key{2025, 6})
	require.Len(t, keys, 30) // Jan 2023 .. Jun 2025
	assert.Equal(t, Key{2025, 6}, keys[0])
	assert.Equal(t, Key{2023, 1}, keys[len(keys)-1])
	seen := map[Key]bool{}
	for i := 1; i < len(keys); i++ {
		assert.Negative(t, keys[i].Compare(keys[i-1]), "descending order at %d", i)
		require.False(t, seen[keys[i]], "duplicate %v", keys[i])
		seen[keys[i]] = true
	}
}

func TestRangeQuarterlyWrap(t *testing.T) {
	keys := Range(models.ScheduleQuarterly, Key{2024, 3}, Key{2025, 1})
	require.Equal(t, []Key{{2025, 1}, {2024, 4}, {2024, 3}}, keys)
}

func TestRangeEmptyWhenInverted(t *testing.T) {
	assert.Nil(t, Range(models.ScheduleMonthly, Key{2025, 7}, Key{2025, 6}))
}

func TestResolveWithoutHistoryUsesLookback(t *testing.T) {
	// Anchor is June 2025; two-year lookback starts at June 2023.
	keys := Resolve(models.ScheduleMonthly, nil, date(2025, time.July, 10), 2)
	require.NotEmpty(t, keys)
	assert.Equal(t, Key{2025, 6}, keys[0])
	assert.Equal(t, Key{2023, 6}, keys[len(keys)-1])
	assert.Len(t, keys, 25)
}

func TestResolveWithHistoryStartsAtEarliest(t *testing.T) {
	earliest := Key{2023, 1}
	keys := Resolve(models.ScheduleMonthly, &earliest, date(2025, time.July, 10), 2)
	assert.Equal(t, Key{2023, 1}, keys[len(keys)-1])
	assert.Len(t, keys, 30)
}

func TestValidPeriodBounds(t *testing.T) {
	assert.True(t, ValidPeriod(models.ScheduleMonthly, 12))
	assert.False(t, ValidPeriod(models.ScheduleMonthly, 13))
	assert.True(t, ValidPeriod(models.ScheduleQuarterly, 4))
	assert.False(t, ValidPeriod(models.ScheduleQuarterly, 5))
	assert.False(t, ValidPeriod(models.ScheduleMonthly, 0))
}

func TestLabelsAndTokens(t *testing.T) {
	assert.Equal(t, "December 2024", Label(models.ScheduleMonthly, Key{2024, 12}))
	assert.Equal(t, "Q4 2024", Label(models.ScheduleQuarterly, Key{2024, 4}))
	assert.Equal(t, "12-2024", Token(Key{2024, 12}))
}

func TestSpanMonthEnds(t *testing.T) {
	start, end := Span(models.ScheduleMonthly, Key{2024, 2})
	assert.Equal(t, date(2024, time.February, 1), start)
	assert.Equal(t, date(2024, time.February, 29), end) // leap year

	start, end = Span(models.ScheduleQuarterly, Key{2025, 4})
	assert.Equal(t, date(2025, time.October, 1), start)
	assert.Equal(t, date(2025, time.December, 31), end)
}

func TestGenerateCatalog(t *testing.T) {
	cat := Generate(2020, 2026, date(2025, time.July, 10))
	// 7 years x (12 monthly + 4 quarterly)
	require.Len(t, cat, 7*16)
	var current []models.PaymentPeriod
	for _, p := range cat {
		if p.IsCurrent {
			current = append(current, p)
		}
	}
	require.Len(t, current, 2)
	for _, p := range current {
		assert.Equal(t, 2025, p.Year)
		switch p.PeriodType {
		case models.ScheduleMonthly:
			assert.Equal(t, 7, p.Period)
		case models.ScheduleQuarterly:
			assert.Equal(t, 3, p.Period)
		}
	}
}
