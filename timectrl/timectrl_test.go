package timectrl

import (
	"math"
	"testing"
	"time"
)

func TestAnnualScaleFullYear(t *testing.T) {
	p := NewPeriod(time.Time{}, time.Hour, 8760)
	if got := p.AnnualScale(); got != 1 {
		t.Fatalf("AnnualScale() = %v, want 1", got)
	}
}

func TestAnnualScalePartialYear(t *testing.T) {
	p := NewPeriod(time.Time{}, time.Hour, 4380)
	if got := p.AnnualScale(); got != 2 {
		t.Fatalf("AnnualScale() = %v, want 2", got)
	}
}

func TestAnnualScaleUsesStepLength(t *testing.T) {
	p := NewPeriod(time.Time{}, 10*time.Minute, 6*8760)
	if got := p.Hours(); math.Abs(got-8760) > 1e-9 {
		t.Fatalf("Hours() = %v, want 8760", got)
	}
	if got := p.AnnualScale(); math.Abs(got-1) > 1e-12 {
		t.Fatalf("AnnualScale() = %v, want 1", got)
	}
}

func TestAnnualScaleEmptyPeriod(t *testing.T) {
	if got := NewPeriod(time.Time{}, 0, 0).AnnualScale(); got != 0 {
		t.Fatalf("AnnualScale() = %v, want 0", got)
	}
}

func TestDefaultStepIsOneHour(t *testing.T) {
	if got := NewPeriod(time.Time{}, 0, 3).HoursPerSample(); got != 1 {
		t.Fatalf("HoursPerSample() = %v, want 1", got)
	}
}

func TestHoursInYear(t *testing.T) {
	cases := map[int]int{2019: 8760, 2020: 8784, 1900: 8760, 2000: 8784}
	for year, want := range cases {
		if got := HoursInYear(year); got != want {
			t.Errorf("HoursInYear(%d) = %d, want %d", year, got, want)
		}
	}
}

func TestYearWindowSkipsLeapYear(t *testing.T) {
	start := time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)
	p := NewPeriod(start, time.Hour, 8760+8784+8760)

	from, to, err := p.YearWindow(2020)
	if err != nil {
		t.Fatalf("YearWindow(2020) error = %v", err)
	}
	if from != 8760 || to != 8760+8784 {
		t.Fatalf("YearWindow(2020) = [%d, %d), want [8760, 17544)", from, to)
	}

	from, to, err = p.YearWindow(2021)
	if err != nil {
		t.Fatalf("YearWindow(2021) error = %v", err)
	}
	if to-from != 8760 {
		t.Fatalf("YearWindow(2021) length = %d, want 8760", to-from)
	}
}

func TestYearWindowOutsidePeriod(t *testing.T) {
	start := time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)
	p := NewPeriod(start, time.Hour, 8760)
	if _, _, err := p.YearWindow(2020); err == nil {
		t.Fatalf("expected error for year outside period")
	}
	if _, _, err := NewPeriod(time.Time{}, time.Hour, 8760).YearWindow(2020); err == nil {
		t.Fatalf("expected error for period without start")
	}
}
