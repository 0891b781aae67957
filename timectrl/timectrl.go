package timectrl

import (
	"fmt"
	"time"
)

// HoursPerYear is the reference year length used to annualize energy.
const HoursPerYear = 8760.0

// Period describes the time axis of a wind resource: where it starts, how far
// apart samples are, and how many there are.
type Period struct {
	Start   time.Time
	Step    time.Duration
	Samples int
}

// NewPeriod constructs a period. A non-positive step defaults to one hour.
func NewPeriod(start time.Time, step time.Duration, samples int) Period {
	if step <= 0 {
		step = time.Hour
	}
	return Period{Start: start, Step: step, Samples: samples}
}

// HoursPerSample is the step length in hours.
func (p Period) HoursPerSample() float64 {
	return p.Step.Hours()
}

// Hours is the span H covered by the samples.
func (p Period) Hours() float64 {
	return float64(p.Samples) * p.HoursPerSample()
}

// AnnualScale returns 8760/H, the factor that scales energy summed over the
// period to a full year. Partial years scale up, multi-year series scale
// down. An empty period has scale zero.
func (p Period) AnnualScale() float64 {
	h := p.Hours()
	if h <= 0 {
		return 0
	}
	return HoursPerYear / h
}

// End returns the time just after the last sample.
func (p Period) End() time.Time {
	return p.Start.Add(time.Duration(p.Samples) * p.Step)
}

// IsLeapYear reports whether year has 366 days.
func IsLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// HoursInYear returns 8784 for leap years and 8760 otherwise.
func HoursInYear(year int) int {
	if IsLeapYear(year) {
		return 8784
	}
	return 8760
}

// YearWindow returns the sample index range [from, to) that covers calendar
// year in the period's own time zone. The period must have a start time and
// fully contain the year.
func (p Period) YearWindow(year int) (from, to int, err error) {
	if p.Start.IsZero() {
		return 0, 0, fmt.Errorf("year window: period has no start time")
	}
	loc := p.Start.Location()
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	yearEnd := time.Date(year+1, time.January, 1, 0, 0, 0, 0, loc)
	if yearStart.Before(p.Start) || yearEnd.After(p.End()) {
		return 0, 0, fmt.Errorf("year window: %d not fully covered by %s..%s", year, p.Start.Format(time.RFC3339), p.End().Format(time.RFC3339))
	}
	from = int(yearStart.Sub(p.Start) / p.Step)
	to = int(yearEnd.Sub(p.Start) / p.Step)
	return from, to, nil
}
