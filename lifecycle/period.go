package lifecycle

import (
	"fmt"
	"time"
)

// PeriodMeta is a calendar-month accounting window.
type PeriodMeta struct {
	PeriodStart string `json:"period_start"` // YYYY-MM-DD, inclusive
	PeriodEnd   string `json:"period_end"`   // YYYY-MM-DD, inclusive
	PeriodLabel string `json:"period_label"`
}

// DefaultPeriodMeta returns the calendar-month boundaries containing ref
// and a label naming that month. Pure function of its input.
func DefaultPeriodMeta(ref time.Time) PeriodMeta {
	year, month, _ := ref.Date()
	start := time.Date(year, month, 1, 0, 0, 0, 0, ref.Location())
	end := start.AddDate(0, 1, -1)
	return PeriodMeta{
		PeriodStart: start.Format("2006-01-02"),
		PeriodEnd:   end.Format("2006-01-02"),
		PeriodLabel: fmt.Sprintf("%s %d", month.String(), year),
	}
}

// NextPeriodMeta returns the calendar month following the given period end
// date. Used when seeding a new batch from the previous one; a malformed end
// date falls back to the month containing now.
func NextPeriodMeta(periodEnd string, now time.Time) PeriodMeta {
	end, err := time.Parse("2006-01-02", periodEnd)
	if err != nil {
		return DefaultPeriodMeta(now)
	}
	// Anchor on the first of the month so a 31st does not skip a month.
	first := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, end.Location())
	return DefaultPeriodMeta(first.AddDate(0, 1, 0))
}
