package model

import (
	"fmt"
	"math"
	"sort"
)

// CurvePoint is one row of a manufacturer power/thrust table.
type CurvePoint struct {
	WindSpeed float64 // m/s
	PowerKW   float64
	Ct        float64 // thrust coefficient
}

// TurbineSpec describes the turbine type installed at every layout position.
type TurbineSpec struct {
	Name          string
	HubHeight     float64 // m
	RotorDiameter float64 // m
	RatedPowerKW  float64

	curve []CurvePoint
}

// NewTurbineSpec validates the turbine geometry and sorts the curve by wind
// speed. Duplicate wind speeds are rejected.
func NewTurbineSpec(name string, hubHeight, rotorDiameter, ratedPowerKW float64, curve []CurvePoint) (*TurbineSpec, error) {
	if hubHeight <= 0 || rotorDiameter <= 0 {
		return nil, fmt.Errorf("%w: hub height and rotor diameter must be positive", ErrInvalidTurbine)
	}
	if ratedPowerKW <= 0 {
		return nil, fmt.Errorf("%w: rated power must be positive, got %v", ErrInvalidTurbine, ratedPowerKW)
	}
	if len(curve) < 2 {
		return nil, fmt.Errorf("%w: power curve needs at least two points", ErrInvalidTurbine)
	}
	cp := make([]CurvePoint, len(curve))
	copy(cp, curve)
	sort.Slice(cp, func(i, j int) bool { return cp[i].WindSpeed < cp[j].WindSpeed })
	for i, p := range cp {
		if p.WindSpeed < 0 || p.PowerKW < 0 || p.Ct < 0 {
			return nil, fmt.Errorf("%w: negative value in curve row %d", ErrInvalidTurbine, i)
		}
		if i > 0 && p.WindSpeed == cp[i-1].WindSpeed {
			return nil, fmt.Errorf("%w: duplicate wind speed %v in curve", ErrInvalidTurbine, p.WindSpeed)
		}
	}
	return &TurbineSpec{
		Name:          name,
		HubHeight:     hubHeight,
		RotorDiameter: rotorDiameter,
		RatedPowerKW:  ratedPowerKW,
		curve:         cp,
	}, nil
}

// Curve returns a copy of the sorted power/thrust table.
func (t *TurbineSpec) Curve() []CurvePoint {
	out := make([]CurvePoint, len(t.curve))
	copy(out, t.curve)
	return out
}

// PowerW interpolates electrical power in watts. Outside the tabulated range
// the turbine produces nothing (below cut-in, above cut-out).
func (t *TurbineSpec) PowerW(ws float64) float64 {
	return interpolate(t.curve, ws, func(p CurvePoint) float64 { return p.PowerKW }) * 1000
}

// Ct interpolates the thrust coefficient.
func (t *TurbineSpec) Ct(ws float64) float64 {
	return interpolate(t.curve, ws, func(p CurvePoint) float64 { return p.Ct })
}

func interpolate(curve []CurvePoint, ws float64, field func(CurvePoint) float64) float64 {
	n := len(curve)
	if math.IsNaN(ws) || ws < curve[0].WindSpeed || ws > curve[n-1].WindSpeed {
		return 0
	}
	i := sort.Search(n, func(i int) bool { return curve[i].WindSpeed >= ws })
	if curve[i].WindSpeed == ws {
		return field(curve[i])
	}
	lo, hi := curve[i-1], curve[i]
	frac := (ws - lo.WindSpeed) / (hi.WindSpeed - lo.WindSpeed)
	return field(lo) + frac*(field(hi)-field(lo))
}
