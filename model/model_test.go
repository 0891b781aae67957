package model

import (
	"errors"
	"math"
	"testing"
	"time"
)

func testTurbine(t *testing.T) *TurbineSpec {
	t.Helper()
	spec, err := NewTurbineSpec("T", 100, 120, 3000, []CurvePoint{
		{WindSpeed: 25, PowerKW: 3000, Ct: 0.2},
		{WindSpeed: 3, PowerKW: 0, Ct: 0.8},
		{WindSpeed: 13, PowerKW: 3000, Ct: 0.6},
	})
	if err != nil {
		t.Fatalf("NewTurbineSpec: %v", err)
	}
	return spec
}

func TestTurbineCurveInterpolation(t *testing.T) {
	spec := testTurbine(t)

	cases := []struct {
		ws    float64
		power float64
		ct    float64
	}{
		{ws: 2, power: 0, ct: 0},
		{ws: 3, power: 0, ct: 0.8},
		{ws: 8, power: 1.5e6, ct: 0.7},
		{ws: 13, power: 3e6, ct: 0.6},
		{ws: 26, power: 0, ct: 0},
	}
	for _, tc := range cases {
		if got := spec.PowerW(tc.ws); math.Abs(got-tc.power) > 1e-6 {
			t.Errorf("PowerW(%v) = %v, want %v", tc.ws, got, tc.power)
		}
		if got := spec.Ct(tc.ws); math.Abs(got-tc.ct) > 1e-12 {
			t.Errorf("Ct(%v) = %v, want %v", tc.ws, got, tc.ct)
		}
	}
	if got := spec.PowerW(math.NaN()); got != 0 {
		t.Errorf("PowerW(NaN) = %v, want 0", got)
	}
	if got := spec.Ct(math.NaN()); got != 0 {
		t.Errorf("Ct(NaN) = %v, want 0", got)
	}
	if curve := spec.Curve(); curve[0].WindSpeed != 3 || curve[2].WindSpeed != 25 {
		t.Fatalf("curve not sorted: %+v", curve)
	}
}

func TestTurbineValidation(t *testing.T) {
	good := []CurvePoint{{WindSpeed: 3}, {WindSpeed: 25, PowerKW: 1}}
	cases := map[string]func() error{
		"zero rotor": func() error { _, err := NewTurbineSpec("T", 100, 0, 1, good); return err },
		"zero rated": func() error { _, err := NewTurbineSpec("T", 100, 120, 0, good); return err },
		"short curve": func() error {
			_, err := NewTurbineSpec("T", 100, 120, 1, good[:1])
			return err
		},
		"duplicate speed": func() error {
			_, err := NewTurbineSpec("T", 100, 120, 1, []CurvePoint{{WindSpeed: 3}, {WindSpeed: 3}})
			return err
		},
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			if err := fn(); !errors.Is(err, ErrInvalidTurbine) {
				t.Fatalf("error = %v, want ErrInvalidTurbine", err)
			}
		})
	}
}

func TestLayout(t *testing.T) {
	if _, err := NewLayout(nil, ""); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("empty layout error = %v, want ErrInvalidLayout", err)
	}
	if _, err := NewLayout([]Position{{0, 0}, {0, 0}}, ""); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("coincident layout error = %v, want ErrInvalidLayout", err)
	}

	layout, err := NewLayout([]Position{{0, 0}, {100, 0}, {1000, 0}}, "EPSG:32632")
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	if layout.NTurbines() != 3 {
		t.Fatalf("NTurbines = %d, want 3", layout.NTurbines())
	}
	if got := layout.SpacingViolations(240); got != 1 {
		t.Fatalf("SpacingViolations(240) = %d, want 1", got)
	}
}

func TestWindResource(t *testing.T) {
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	res, err := NewWindResource([]WindSample{{4, 90}, {6, 180}, {8, 270}}, 100, "mast", start, 0)
	if err != nil {
		t.Fatalf("NewWindResource: %v", err)
	}
	if res.HoursPerSample() != 1 {
		t.Fatalf("HoursPerSample = %v, want 1", res.HoursPerSample())
	}
	if got := res.MeanSpeed(); got != 6 {
		t.Fatalf("MeanSpeed = %v, want 6", got)
	}

	sub, err := res.Slice(1, 3)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if sub.Len() != 2 || sub.Sample(0).Direction != 180 || !sub.Start.Equal(start.Add(time.Hour)) {
		t.Fatalf("unexpected slice: len %d start %v", sub.Len(), sub.Start)
	}
	if _, err := res.Slice(2, 2); !errors.Is(err, ErrInvalidResource) {
		t.Fatalf("empty slice error = %v, want ErrInvalidResource", err)
	}

	if _, err := NewWindResource([]WindSample{{-1, 0}}, 100, "", start, time.Hour); !errors.Is(err, ErrInvalidResource) {
		t.Fatalf("negative speed error = %v, want ErrInvalidResource", err)
	}
	if _, err := NewWindResource([]WindSample{{1, math.NaN()}}, 100, "", start, time.Hour); !errors.Is(err, ErrInvalidResource) {
		t.Fatalf("NaN direction error = %v, want ErrInvalidResource", err)
	}
}

func TestProductionSeries(t *testing.T) {
	if _, err := NewProductionSeries(VariantNoWake, 2, 2, []float64{1, 2, 3}); !errors.Is(err, ErrInvalidSeries) {
		t.Fatalf("short data error = %v, want ErrInvalidSeries", err)
	}

	data := []float64{1, 2, 3, 4, 5, 6}
	series, err := NewProductionSeries(VariantWithWake, 2, 3, data)
	if err != nil {
		t.Fatalf("NewProductionSeries: %v", err)
	}
	data[0] = 100
	if series.At(0, 0) != 1 {
		t.Fatalf("series should copy its input, At(0,0) = %v", series.At(0, 0))
	}
	if series.Turbines() != 2 || series.Steps() != 3 {
		t.Fatalf("shape = %dx%d, want 2x3", series.Turbines(), series.Steps())
	}
	if row := series.Row(1); row[2] != 6 {
		t.Fatalf("Row(1)[2] = %v, want 6", row[2])
	}
}
