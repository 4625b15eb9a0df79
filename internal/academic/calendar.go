package academic

import (
	"fmt"
	"sort"
	"time"
)

// Months lists the twelve tuition months in calendar order. The
// Portuguese names are the canonical values persisted on payment
// periods.
var Months = [12]string{
	"Janeiro",
	"Fevereiro",
	"Março",
	"Abril",
	"Maio",
	"Junho",
	"Julho",
	"Agosto",
	"Setembro",
	"Outubro",
	"Novembro",
	"Dezembro",
}

// DefaultFiscalStart is the calendar month the school year rolls over
// on. Angolan school years run September through August.
const DefaultFiscalStart = time.September

// DefaultGraceDays is how deep into a month last month's tuition still
// counts as current.
const DefaultGraceDays = 10

// Calendar maps calendar dates onto school-year labels and the fiscal
// ordering of tuition months.
type Calendar struct {
	fiscalStart time.Month
}

// NewCalendar builds a calendar rooted at the given fiscal start month.
// Zero or out-of-range values fall back to September.
func NewCalendar(fiscalStart time.Month) Calendar {
	if fiscalStart < time.January || fiscalStart > time.December {
		fiscalStart = DefaultFiscalStart
	}
	return Calendar{fiscalStart: fiscalStart}
}

// Year returns the school-year label covering t, e.g. "2024/2025".
// Dates on or after the fiscal start month belong to the year starting
// that calendar year; earlier dates belong to the year started the
// calendar year before.
func (c Calendar) Year(t time.Time) string {
	y := t.Year()
	if t.Month() >= c.fiscalStart {
		return fmt.Sprintf("%d/%d", y, y+1)
	}
	return fmt.Sprintf("%d/%d", y-1, y)
}

// FiscalMonths returns the twelve month names in fiscal order, starting
// at the fiscal start month.
func (c Calendar) FiscalMonths() []string {
	out := make([]string, 0, len(Months))
	start := int(c.fiscalStart) - 1
	for i := 0; i < len(Months); i++ {
		out = append(out, Months[(start+i)%len(Months)])
	}
	return out
}

// FiscalIndex returns the position of the named month in fiscal order,
// or false when the name is not one of the twelve canonical months.
func (c Calendar) FiscalIndex(month string) (int, bool) {
	for i, m := range c.FiscalMonths() {
		if m == month {
			return i, true
		}
	}
	return 0, false
}

// ValidMonth reports whether the name is one of the canonical months.
func ValidMonth(month string) bool {
	for _, m := range Months {
		if m == month {
			return true
		}
	}
	return false
}

// SortFiscal stable-sorts month names by fiscal order. Unknown names are
// kept, sorted after every known month, and also returned separately so
// callers can surface them as a data error instead of skipping them
// silently.
func (c Calendar) SortFiscal(months []string) (sorted []string, unknown []string) {
	sorted = append([]string(nil), months...)
	index := make(map[string]int, len(Months))
	for i, m := range c.FiscalMonths() {
		index[m] = i
	}
	sort.SliceStable(sorted, func(a, b int) bool {
		ia, oka := index[sorted[a]]
		ib, okb := index[sorted[b]]
		if oka != okb {
			return oka
		}
		if !oka {
			return false
		}
		return ia < ib
	})
	for _, m := range months {
		if _, ok := index[m]; !ok {
			unknown = append(unknown, m)
		}
	}
	return sorted, unknown
}

// Current decides whether tuition is up to date as of asOf given the set
// of paid month names. The fiscally latest known paid month must cover
// asOf's month, or be exactly the previous fiscal month while asOf is
// still within the grace window. Unknown month names never count as the
// latest payment. No payments means not current.
func (c Calendar) Current(paidMonths []string, asOf time.Time, graceDays int) bool {
	if graceDays <= 0 {
		graceDays = DefaultGraceDays
	}
	latest := -1
	for _, m := range paidMonths {
		if idx, ok := c.FiscalIndex(m); ok && idx > latest {
			latest = idx
		}
	}
	if latest < 0 {
		return false
	}
	asOfIdx, ok := c.FiscalIndex(Months[asOf.Month()-1])
	if !ok {
		return false
	}
	if latest >= asOfIdx {
		return true
	}
	return latest == asOfIdx-1 && asOf.Day() <= graceDays
}
