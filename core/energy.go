package core

import (
	"gonum.org/v1/gonum/floats"

	"github.com/signalsfoundry/windfarm-yield/model"
	"github.com/signalsfoundry/windfarm-yield/timectrl"
)

const wattHoursPerGWh = 1e9

// AnnualizeGWh converts a sum of instantaneous power samples in W into GWh
// per year: sum × hoursPerSample / 1e9 × 8760 / H, with H = steps ×
// hoursPerSample. A non-positive step defaults to one hour.
func AnnualizeGWh(powerSumW, hoursPerSample float64, steps int) float64 {
	if steps <= 0 {
		return 0
	}
	if hoursPerSample <= 0 {
		hoursPerSample = 1
	}
	h := float64(steps) * hoursPerSample
	return powerSumW * hoursPerSample / wattHoursPerGWh * timectrl.HoursPerYear / h
}

// AnnualEnergyPerTurbine returns the annualized energy of every turbine row
// of a production series.
func AnnualEnergyPerTurbine(series *model.ProductionSeries, hoursPerSample float64) []float64 {
	out := make([]float64, series.Turbines())
	for i := range out {
		out[i] = AnnualizeGWh(floats.Sum(series.Row(i)), hoursPerSample, series.Steps())
	}
	return out
}

// Percent returns 100 × part / whole, or 0 when whole is zero.
func Percent(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return 100 * part / whole
}
