package site

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/windfarm-yield/core"
	"github.com/signalsfoundry/windfarm-yield/model"
	"github.com/signalsfoundry/windfarm-yield/timectrl"
	"github.com/signalsfoundry/windfarm-yield/wake"
)

const (
	// maxHeightMismatch is the wind data height offset, in metres, above
	// which a profile correction is recommended.
	maxHeightMismatch = 20.0
	// minSpacingDiameters is the recommended minimum turbine spacing.
	minSpacingDiameters = 2.0
)

// Inputs are the raw pieces a SiteConfiguration is built from.
type Inputs struct {
	Name     string
	Resource *model.WindResource
	Layout   *model.Layout
	Turbine  *model.TurbineSpec
	Sectors  *core.SectorManagementConfig

	// AnalysisYear, when non-zero, restricts the resource to one calendar
	// year.
	AnalysisYear int

	// Capabilities narrows what the simulator is allowed to do. Nil keeps
	// the simulator's own capabilities.
	Capabilities *wake.Capabilities
}

// SiteConfiguration is the validated, immutable input of one analysis.
type SiteConfiguration struct {
	name     string
	resource *model.WindResource
	layout   *model.Layout
	turbine  *model.TurbineSpec
	sectors  *core.SectorManagementConfig
	caps     *wake.Capabilities
	warnings []string
}

// NewSiteConfiguration validates inputs eagerly. Missing pieces and sector
// IDs outside the layout fail with core.ErrConfiguration. Soft issues are
// kept as warnings.
func NewSiteConfiguration(in Inputs) (*SiteConfiguration, error) {
	if in.Resource == nil {
		return nil, fmt.Errorf("%w: wind resource not set", core.ErrConfiguration)
	}
	if in.Turbine == nil {
		return nil, fmt.Errorf("%w: turbine not set", core.ErrConfiguration)
	}
	if in.Layout == nil {
		return nil, fmt.Errorf("%w: layout not set", core.ErrConfiguration)
	}
	if err := in.Sectors.ValidateFor(in.Layout.NTurbines()); err != nil {
		return nil, err
	}

	resource := in.Resource
	if in.AnalysisYear != 0 {
		p := timectrl.NewPeriod(resource.Start, resource.Step, resource.Len())
		from, to, err := p.YearWindow(in.AnalysisYear)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrConfiguration, err)
		}
		if resource, err = resource.Slice(from, to); err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrConfiguration, err)
		}
	}

	cfg := &SiteConfiguration{
		name:     in.Name,
		resource: resource,
		layout:   in.Layout,
		turbine:  in.Turbine,
		sectors:  in.Sectors,
	}
	if in.Capabilities != nil {
		c := *in.Capabilities
		c.Models = append([]wake.Model(nil), in.Capabilities.Models...)
		cfg.caps = &c
	}

	if resource.Height > 0 {
		if diff := math.Abs(resource.Height - in.Turbine.HubHeight); diff > maxHeightMismatch {
			cfg.warnings = append(cfg.warnings, fmt.Sprintf(
				"wind data height %.1fm differs from hub height %.1fm by %.1fm; consider a wind profile correction",
				resource.Height, in.Turbine.HubHeight, diff))
		}
	}
	if n := in.Layout.SpacingViolations(minSpacingDiameters * in.Turbine.RotorDiameter); n > 0 {
		cfg.warnings = append(cfg.warnings, fmt.Sprintf("layout has %d spacing violations (minimum %.0fD recommended)", n, minSpacingDiameters))
	}
	return cfg, nil
}

// Name returns the site name.
func (c *SiteConfiguration) Name() string { return c.name }

// Resource returns the wind resource in use, after any year selection.
func (c *SiteConfiguration) Resource() *model.WindResource { return c.resource }

// Layout returns the turbine layout.
func (c *SiteConfiguration) Layout() *model.Layout { return c.layout }

// Turbine returns the turbine spec.
func (c *SiteConfiguration) Turbine() *model.TurbineSpec { return c.turbine }

// Sectors returns the sector management config, possibly nil.
func (c *SiteConfiguration) Sectors() *core.SectorManagementConfig { return c.sectors }

// Warnings returns non-fatal validation findings.
func (c *SiteConfiguration) Warnings() []string {
	return append([]string(nil), c.warnings...)
}

// CapacityMW is the installed farm capacity.
func (c *SiteConfiguration) CapacityMW() float64 {
	return c.turbine.RatedPowerKW * float64(c.layout.NTurbines()) / 1000
}

// Period returns the analysis time axis.
func (c *SiteConfiguration) Period() timectrl.Period {
	return timectrl.NewPeriod(c.resource.Start, c.resource.Step, c.resource.Len())
}

// effectiveCapabilities intersects simulator capabilities with the
// configured ones. Configured capabilities without models keep the
// simulator's model list.
func (c *SiteConfiguration) effectiveCapabilities(sim wake.Capabilities) wake.Capabilities {
	if c.caps == nil {
		return sim
	}
	out := wake.Capabilities{
		TimeSeries:       sim.TimeSeries && c.caps.TimeSeries,
		ParallelVariants: sim.ParallelVariants && c.caps.ParallelVariants,
	}
	if c.caps.Models == nil {
		out.Models = append([]wake.Model(nil), sim.Models...)
		return out
	}
	for _, m := range c.caps.Models {
		if sim.Supports(m) {
			out.Models = append(out.Models, m)
		}
	}
	return out
}
