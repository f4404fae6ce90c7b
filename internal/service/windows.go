package service

import (
	"time"

	"dastak/backend/internal/domain"
	"dastak/backend/internal/store"
)

// Window is an inclusive reporting range. Both bounds land on second
// precision: 00:00:00 on the first day, 23:59:59 on the last.
type Window struct {
	From time.Time
	To   time.Time
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dayEnd(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}

func DayWindow(t time.Time) Window {
	return Window{From: dayStart(t), To: dayEnd(t)}
}

// WeekWindow returns the week containing t, where weeks begin on
// weekStart and span seven days.
func WeekWindow(t time.Time, weekStart time.Weekday) Window {
	start := dayStart(t)
	for start.Weekday() != weekStart {
		start = start.AddDate(0, 0, -1)
	}
	return Window{From: start, To: dayEnd(start.AddDate(0, 0, 6))}
}

func MonthWindow(t time.Time) Window {
	t = t.UTC()
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return Window{From: first, To: dayEnd(last)}
}

func YearWindow(t time.Time) Window {
	t = t.UTC()
	first := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(t.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
	return Window{From: first, To: dayEnd(last)}
}

func windowFor(period string, t time.Time, weekStart time.Weekday) (Window, error) {
	switch period {
	case domain.PeriodDay:
		return DayWindow(t), nil
	case domain.PeriodWeek:
		return WeekWindow(t, weekStart), nil
	case domain.PeriodMonth:
		return MonthWindow(t), nil
	case domain.PeriodYear:
		return YearWindow(t), nil
	default:
		return Window{}, store.ErrValidation
	}
}

// TotalAmount sums final bill amounts over a set of ledger entries.
// An empty set totals zero.
func TotalAmount(entries []domain.SalesEntry) int64 {
	total := int64(0)
	for _, e := range entries {
		total += e.AmountCents
	}
	return total
}

// TotalProfit sums profit over a set of ledger entries.
func TotalProfit(entries []domain.SalesEntry) int64 {
	total := int64(0)
	for _, e := range entries {
		total += e.ProfitCents
	}
	return total
}
