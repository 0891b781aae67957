package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Simulation variants produced by the wake simulator.
const (
	VariantNoWake   = "no_wake"
	VariantWithWake = "with_wake"
)

// ProductionSeries is instantaneous power in watts indexed by
// [turbine, timestep]. It is read-only once produced.
type ProductionSeries struct {
	Variant string

	power *mat.Dense
}

// NewProductionSeries wraps row-major data of shape turbines x steps. The
// slice is copied.
func NewProductionSeries(variant string, turbines, steps int, data []float64) (*ProductionSeries, error) {
	if turbines <= 0 || steps <= 0 {
		return nil, fmt.Errorf("%w: shape %dx%d", ErrInvalidSeries, turbines, steps)
	}
	if len(data) != turbines*steps {
		return nil, fmt.Errorf("%w: %d values for shape %dx%d", ErrInvalidSeries, len(data), turbines, steps)
	}
	cp := make([]float64, len(data))
	copy(cp, data)
	return &ProductionSeries{Variant: variant, power: mat.NewDense(turbines, steps, cp)}, nil
}

// Turbines returns the size of the turbine axis.
func (p *ProductionSeries) Turbines() int {
	r, _ := p.power.Dims()
	return r
}

// Steps returns the size of the time axis.
func (p *ProductionSeries) Steps() int {
	_, c := p.power.Dims()
	return c
}

// At returns power for turbine index i at timestep t.
func (p *ProductionSeries) At(i, t int) float64 { return p.power.At(i, t) }

// Row returns the time series of turbine index i. Callers must not modify it.
func (p *ProductionSeries) Row(i int) []float64 { return p.power.RawRowView(i) }
