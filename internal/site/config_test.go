package site

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/windfarm-yield/core"
	"github.com/signalsfoundry/windfarm-yield/model"
)

func TestSiteConfigurationRequiresInputs(t *testing.T) {
	base := testInputs(t)
	cases := map[string]func(*Inputs){
		"resource": func(in *Inputs) { in.Resource = nil },
		"turbine":  func(in *Inputs) { in.Turbine = nil },
		"layout":   func(in *Inputs) { in.Layout = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := base
			mutate(&in)
			if _, err := NewSiteConfiguration(in); !errors.Is(err, core.ErrConfiguration) {
				t.Fatalf("error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestSiteConfigurationRejectsSectorIDOutsideLayout(t *testing.T) {
	in := testInputs(t)
	sectors, err := core.NewSectorManagementConfig(map[int][]core.Sector{4: {{Start: 0, End: 90}}})
	if err != nil {
		t.Fatalf("NewSectorManagementConfig: %v", err)
	}
	in.Sectors = sectors
	if _, err := NewSiteConfiguration(in); !errors.Is(err, core.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
}

func TestSiteConfigurationWarnings(t *testing.T) {
	in := testInputs(t)
	res, err := model.NewWindResource([]model.WindSample{{Speed: 8, Direction: 0}}, 50, "mast", time.Time{}, 0)
	if err != nil {
		t.Fatalf("NewWindResource: %v", err)
	}
	in.Resource = res
	layout, err := model.NewLayout([]model.Position{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 2000, Y: 0}}, "local")
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	in.Layout = layout

	cfg, err := NewSiteConfiguration(in)
	if err != nil {
		t.Fatalf("NewSiteConfiguration: %v", err)
	}
	w := cfg.Warnings()
	if len(w) != 2 {
		t.Fatalf("warnings = %v, want height and spacing", w)
	}
	if !strings.Contains(w[0], "hub height") || !strings.Contains(w[1], "1 spacing violations") {
		t.Fatalf("unexpected warnings: %v", w)
	}
	if got := cfg.CapacityMW(); got != 9 {
		t.Fatalf("CapacityMW = %v, want 9", got)
	}
}

func TestSiteConfigurationAnalysisYear(t *testing.T) {
	in := testInputs(t)
	start := time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)
	samples := make([]model.WindSample, 8760+8784)
	for i := range samples {
		samples[i] = model.WindSample{Speed: 8, Direction: 270}
	}
	res, err := model.NewWindResource(samples, 100, "era5", start, time.Hour)
	if err != nil {
		t.Fatalf("NewWindResource: %v", err)
	}
	in.Resource = res
	in.AnalysisYear = 2020

	cfg, err := NewSiteConfiguration(in)
	if err != nil {
		t.Fatalf("NewSiteConfiguration: %v", err)
	}
	if got := cfg.Resource().Len(); got != 8784 {
		t.Fatalf("year length = %d, want 8784", got)
	}
	if got := cfg.Period().AnnualScale(); got != 8760.0/8784.0 {
		t.Fatalf("AnnualScale = %v, want %v", got, 8760.0/8784.0)
	}

	in.AnalysisYear = 2022
	if _, err := NewSiteConfiguration(in); !errors.Is(err, core.ErrConfiguration) {
		t.Fatalf("missing year error = %v, want ErrConfiguration", err)
	}
}
