package entity

import (
	"fmt"
	"time"

	"github.com/diillson/sandbox-cost-collector/internal/shared/types"
)

const dateLayout = "2006-01-02"

// BillingWindow is the day-aligned, half-open [StartDate, EndDate) date range
// over which costs are queried for one lease. Dates are calendar days in UTC,
// formatted YYYY-MM-DD.
type BillingWindow struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// NewBillingWindow derives a billing window from the lease's start and end
// instants (RFC 3339, any offset) plus a padding duration. The padded start is
// floored to the start of its UTC day; the padded end is ceiled to the start
// of the following day unless it already falls exactly on midnight. The window
// therefore always fully contains the lease's active period plus padding,
// which the cost API's calendar-day granularity requires.
func NewBillingWindow(leaseStart, leaseEnd string, padding time.Duration) (BillingWindow, error) {
	start, err := time.Parse(time.RFC3339, leaseStart)
	if err != nil {
		return BillingWindow{}, types.ValidationError{Field: "leaseStart", Value: leaseStart, Reason: "must be a valid RFC 3339 timestamp"}
	}
	end, err := time.Parse(time.RFC3339, leaseEnd)
	if err != nil {
		return BillingWindow{}, types.ValidationError{Field: "leaseEnd", Value: leaseEnd, Reason: "must be a valid RFC 3339 timestamp"}
	}

	paddedStart := start.UTC().Add(-padding)
	paddedEnd := end.UTC().Add(padding)

	windowStart := floorToDay(paddedStart)
	windowEnd := paddedEnd
	if !windowEnd.Equal(floorToDay(windowEnd)) {
		windowEnd = floorToDay(windowEnd).AddDate(0, 0, 1)
	}

	return BillingWindow{
		StartDate: windowStart.Format(dateLayout),
		EndDate:   windowEnd.Format(dateLayout),
	}, nil
}

func floorToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Bounds parses the window's dates back into UTC instants.
func (w BillingWindow) Bounds() (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, w.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window start date %q: %w", w.StartDate, err)
	}
	end, err := time.Parse(dateLayout, w.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window end date %q: %w", w.EndDate, err)
	}
	return start, end, nil
}

// Days returns the number of whole calendar days the window spans.
func (w BillingWindow) Days() (int, error) {
	start, end, err := w.Bounds()
	if err != nil {
		return 0, err
	}
	return int(end.Sub(start).Hours() / 24), nil
}

// SplitAt divides the window into a recent sub-window of at most maxDays
// ending at EndDate and the remainder before it. The second window is nil
// when the whole range fits within maxDays.
func (w BillingWindow) SplitAt(maxDays int) (BillingWindow, *BillingWindow, error) {
	start, end, err := w.Bounds()
	if err != nil {
		return BillingWindow{}, nil, err
	}

	cut := end.AddDate(0, 0, -maxDays)
	if !cut.After(start) {
		return w, nil, nil
	}

	recent := BillingWindow{StartDate: cut.Format(dateLayout), EndDate: w.EndDate}
	earlier := BillingWindow{StartDate: w.StartDate, EndDate: cut.Format(dateLayout)}
	return recent, &earlier, nil
}
