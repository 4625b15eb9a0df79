package academic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestYearLabel(t *testing.T) {
	cal := NewCalendar(DefaultFiscalStart)

	cases := []struct {
		in   time.Time
		want string
	}{
		{date(2024, time.September, 1), "2024/2025"},
		{date(2024, time.November, 15), "2024/2025"},
		{date(2024, time.December, 31), "2024/2025"},
		{date(2025, time.January, 1), "2024/2025"},
		{date(2025, time.August, 31), "2024/2025"},
		{date(2025, time.September, 1), "2025/2026"},
		{date(2024, time.March, 10), "2023/2024"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, cal.Year(tc.in), "date %s", tc.in)
		// stable across repeated calls
		assert.Equal(t, cal.Year(tc.in), cal.Year(tc.in))
	}
}

func TestFiscalMonthsOrdering(t *testing.T) {
	cal := NewCalendar(DefaultFiscalStart)
	months := cal.FiscalMonths()
	require.Len(t, months, 12)
	assert.Equal(t, "Setembro", months[0])
	assert.Equal(t, "Agosto", months[11])

	idx, ok := cal.FiscalIndex("Novembro")
	require.True(t, ok)
	assert.Equal(t, 2, idx)

	_, ok = cal.FiscalIndex("Brumaire")
	assert.False(t, ok)
}

func TestFiscalStartFallback(t *testing.T) {
	cal := NewCalendar(0)
	assert.Equal(t, "Setembro", cal.FiscalMonths()[0])
}

func TestSortFiscal(t *testing.T) {
	cal := NewCalendar(DefaultFiscalStart)

	sorted, unknown := cal.SortFiscal([]string{"Janeiro", "Setembro", "Dezembro"})
	assert.Equal(t, []string{"Setembro", "Dezembro", "Janeiro"}, sorted)
	assert.Empty(t, unknown)

	sorted, unknown = cal.SortFiscal([]string{"Floreal", "Outubro"})
	assert.Equal(t, []string{"Outubro", "Floreal"}, sorted)
	assert.Equal(t, []string{"Floreal"}, unknown)
}

func TestCurrentNoPayments(t *testing.T) {
	cal := NewCalendar(DefaultFiscalStart)
	assert.False(t, cal.Current(nil, date(2024, time.November, 20), DefaultGraceDays))
	assert.False(t, cal.Current([]string{}, date(2025, time.March, 1), DefaultGraceDays))
}

func TestCurrentCoveringMonth(t *testing.T) {
	cal := NewCalendar(DefaultFiscalStart)

	// Paid November, asked in November: current.
	assert.True(t, cal.Current([]string{"Novembro"}, date(2024, time.November, 20), DefaultGraceDays))
	// Paid ahead: still current earlier in the year.
	assert.True(t, cal.Current([]string{"Dezembro"}, date(2024, time.October, 2), DefaultGraceDays))
	// Paid November only, asked late January: December unpaid, no grace.
	assert.False(t, cal.Current([]string{"Novembro"}, date(2025, time.January, 20), DefaultGraceDays))
}

func TestCurrentGraceWindow(t *testing.T) {
	cal := NewCalendar(DefaultFiscalStart)

	// Last fiscal month paid, within the first 10 days of the next.
	assert.True(t, cal.Current([]string{"Outubro"}, date(2024, time.November, 10), DefaultGraceDays))
	assert.False(t, cal.Current([]string{"Outubro"}, date(2024, time.November, 11), DefaultGraceDays))
	// Grace reaches across the calendar year boundary.
	assert.True(t, cal.Current([]string{"Dezembro"}, date(2025, time.January, 5), DefaultGraceDays))
}

func TestCurrentIgnoresUnknownMonths(t *testing.T) {
	cal := NewCalendar(DefaultFiscalStart)

	// A corrupt month name must not pass for the most recent payment.
	assert.False(t, cal.Current([]string{"Thermidor"}, date(2024, time.November, 1), DefaultGraceDays))
	assert.True(t, cal.Current([]string{"Thermidor", "Novembro"}, date(2024, time.November, 20), DefaultGraceDays))
}

func TestValidMonth(t *testing.T) {
	assert.True(t, ValidMonth("Março"))
	assert.False(t, ValidMonth("março"))
	assert.False(t, ValidMonth(""))
}
