// Package periods implements the billing-period catalog arithmetic: arrears
// anchoring, inclusive range windowing and catalog generation.
//
// A billing period is addressed by a (year, period) key where period is a
// month number (1-12) for monthly schedules and a quarter number (1-4) for
// quarterly ones. Fees are billed in arrears: the "current" period for data
// entry is the most recently closed one, never the period in progress.
package periods

import (
	"fmt"
	"time"

	"github.com/advisorly/feetrack/internal/models"
)

var monthNames = [...]string{"", "January", "February", "March", "April", "May",
	"June", "July", "August", "September", "October", "November", "December"}

// Key addresses a single billing period within a schedule.
type Key struct {
	Year   int `json:"year"`
	Period int `json:"period"`
}

// Compare orders keys chronologically: negative when k precedes o.
func (k Key) Compare(o Key) int {
	if k.Year != o.Year {
		return k.Year - o.Year
	}
	return k.Period - o.Period
}

// PerYear returns the number of periods a schedule has in one year.
func PerYear(schedule string) int {
	if schedule == models.ScheduleQuarterly {
		return 4
	}
	return 12
}

// ValidPeriod reports whether period is in range for the schedule:
// 1-12 for monthly, 1-4 for quarterly.
func ValidPeriod(schedule string, period int) bool {
	return period >= 1 && period <= PerYear(schedule)
}

// Anchor returns the most recently closed period as of today. For monthly
// schedules that is the previous calendar month, wrapping to December of the
// prior year in January; quarterly schedules wrap Q1 to Q4 the same way.
func Anchor(schedule string, today time.Time) Key {
	year := today.Year()
	if schedule == models.ScheduleQuarterly {
		q := (int(today.Month())-1)/3 + 1
		if q == 1 {
			return Key{Year: year - 1, Period: 4}
		}
		return Key{Year: year, Period: q - 1}
	}
	m := int(today.Month())
	if m == 1 {
		return Key{Year: year - 1, Period: 12}
	}
	return Key{Year: year, Period: m - 1}
}

// LookbackStart returns the fallback earliest period for clients with no
// payment history: the same period number a fixed count of years before the
// anchor.
func LookbackStart(anchor Key, years int) Key {
	if years < 0 {
		years = 0
	}
	return Key{Year: anchor.Year - years, Period: anchor.Period}
}

// Range enumerates every period key in [earliest, anchor] inclusive, most
// recent first. Returns nil when earliest is after anchor.
func Range(schedule string, earliest, anchor Key) []Key {
	if earliest.Compare(anchor) > 0 {
		return nil
	}
	per := PerYear(schedule)
	var keys []Key
	k := anchor
	for {
		keys = append(keys, k)
		if k == earliest {
			return keys
		}
		if k.Period == 1 {
			k = Key{Year: k.Year - 1, Period: per}
		} else {
			k.Period--
		}
	}
}

// Resolve computes the eligible window for a client: from its earliest
// recorded payment period (or the lookback fallback when it has none) up to
// the arrears anchor, most recent first.
func Resolve(schedule string, earliest *Key, today time.Time, lookbackYears int) []Key {
	anchor := Anchor(schedule, today)
	start := LookbackStart(anchor, lookbackYears)
	if earliest != nil {
		start = *earliest
	}
	return Range(schedule, start, anchor)
}

// Label renders the human-readable period name: "December 2024" for monthly,
// "Q4 2024" for quarterly.
func Label(schedule string, k Key) string {
	if schedule == models.ScheduleQuarterly {
		return fmt.Sprintf("Q%d %d", k.Period, k.Year)
	}
	if k.Period < 1 || k.Period > 12 {
		return fmt.Sprintf("%d-%d", k.Period, k.Year)
	}
	return fmt.Sprintf("%s %d", monthNames[k.Period], k.Year)
}

// Token renders the compact form used as a dropdown value, e.g. "12-2024".
func Token(k Key) string {
	return fmt.Sprintf("%d-%d", k.Period, k.Year)
}

// Span returns the calendar start and end dates of a period.
func Span(schedule string, k Key) (start, end time.Time) {
	if schedule == models.ScheduleQuarterly {
		firstMonth := time.Month((k.Period-1)*3 + 1)
		start = time.Date(k.Year, firstMonth, 1, 0, 0, 0, 0, time.UTC)
		end = time.Date(k.Year, firstMonth+3, 0, 0, 0, 0, 0, time.UTC)
		return start, end
	}
	start = time.Date(k.Year, time.Month(k.Period), 1, 0, 0, 0, 0, time.UTC)
	end = time.Date(k.Year, time.Month(k.Period)+1, 0, 0, 0, 0, 0, time.UTC)
	return start, end
}

// Generate builds the immutable period catalog for [startYear, endYear]:
// twelve monthly and four quarterly entries per year, flagging the entries
// containing today as current.
func Generate(startYear, endYear int, today time.Time) []models.PaymentPeriod {
	var out []models.PaymentPeriod
	curMonth := Key{Year: today.Year(), Period: int(today.Month())}
	curQuarter := Key{Year: today.Year(), Period: (int(today.Month())-1)/3 + 1}
	for year := startYear; year <= endYear; year++ {
		for month := 1; month <= 12; month++ {
			k := Key{Year: year, Period: month}
			start, end := Span(models.ScheduleMonthly, k)
			out = append(out, models.PaymentPeriod{
				PeriodType: models.ScheduleMonthly,
				Year:       year,
				Period:     month,
				PeriodName: Label(models.ScheduleMonthly, k),
				StartDate:  start,
				EndDate:    end,
				IsCurrent:  k == curMonth,
			})
		}
		for quarter := 1; quarter <= 4; quarter++ {
			k := Key{Year: year, Period: quarter}
			start, end := Span(models.ScheduleQuarterly, k)
			out = append(out, models.PaymentPeriod{
				PeriodType: models.ScheduleQuarterly,
				Year:       year,
				Period:     quarter,
				PeriodName: Label(models.ScheduleQuarterly, k),
				StartDate:  start,
				EndDate:    end,
				IsCurrent:  k == curQuarter,
			})
		}
	}
	return out
}
