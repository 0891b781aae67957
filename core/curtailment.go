package core

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/signalsfoundry/windfarm-yield/model"
)

// AccountingMode names how sector losses were derived.
type AccountingMode string

const (
	// ModeTimeSeries weights lost hours by the power produced in them.
	ModeTimeSeries AccountingMode = "time_series"
	// ModeDistribution scales total energy by the time-based availability
	// fraction. Only used when no per-timestep power exists.
	ModeDistribution AccountingMode = "distribution"
)

// CurtailmentResult holds per-turbine annual energies in GWh, indexed by
// turbine index (ID - 1).
type CurtailmentResult struct {
	Mode       AccountingMode
	WithWake   []float64
	SectorLoss []float64
	Adjusted   []float64
}

// ComputeSectorCurtailment performs energy-weighted sector accounting. For
// every restricted turbine the with-wake power produced while the direction
// is outside its allowed sectors is summed, annualized and subtracted.
// Unrestricted turbines get exactly zero sector loss.
func ComputeSectorCurtailment(cfg *SectorManagementConfig, directions []float64, withWake *model.ProductionSeries, hoursPerSample float64) (CurtailmentResult, error) {
	if withWake == nil {
		return CurtailmentResult{}, fmt.Errorf("%w: nil with-wake series", ErrShapeMismatch)
	}
	n, steps := withWake.Turbines(), withWake.Steps()
	if len(directions) != steps {
		return CurtailmentResult{}, fmt.Errorf("%w: %d wind directions, %d production timesteps", ErrShapeMismatch, len(directions), steps)
	}
	mask, err := NewOperatingMask(cfg, directions, n)
	if err != nil {
		return CurtailmentResult{}, err
	}

	res := CurtailmentResult{
		Mode:       ModeTimeSeries,
		WithWake:   AnnualEnergyPerTurbine(withWake, hoursPerSample),
		SectorLoss: make([]float64, n),
		Adjusted:   make([]float64, n),
	}
	for _, id := range cfg.TurbineIDs() {
		i := id - 1
		lost := floats.Dot(withWake.Row(i), mask.Stopped(i))
		res.SectorLoss[i] = AnnualizeGWh(lost, hoursPerSample, steps)
	}
	floats.SubTo(res.Adjusted, res.WithWake, res.SectorLoss)
	return res, nil
}

// ComputeSectorCurtailmentFromDistribution applies the time-based
// availability fraction to annual with-wake energies. It is materially less
// accurate than ComputeSectorCurtailment and is meant for simulators that
// do not produce per-timestep power.
func ComputeSectorCurtailmentFromDistribution(cfg *SectorManagementConfig, directions []float64, withWakeGWh []float64) (CurtailmentResult, error) {
	n := len(withWakeGWh)
	if err := cfg.ValidateFor(n); err != nil {
		return CurtailmentResult{}, err
	}
	res := CurtailmentResult{
		Mode:       ModeDistribution,
		WithWake:   append([]float64(nil), withWakeGWh...),
		SectorLoss: make([]float64, n),
		Adjusted:   make([]float64, n),
	}
	for _, id := range cfg.TurbineIDs() {
		sectors, _ := cfg.Sectors(id)
		i := id - 1
		res.SectorLoss[i] = withWakeGWh[i] * (1 - AvailabilityFraction(directions, sectors))
	}
	floats.SubTo(res.Adjusted, res.WithWake, res.SectorLoss)
	return res, nil
}
