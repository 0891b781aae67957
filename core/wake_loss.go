package core

import "fmt"

// negativeWakeTolerance absorbs floating noise before a negative wake loss
// is reported.
const negativeWakeTolerance = 1e-9

// ExtractWakeLoss returns ideal - withWake per turbine. Negative values are
// kept as-is and reported as warnings since they point at an inconsistent
// upstream simulation.
//
// All turbines are assumed to run continuously, so the reduced wake shadow
// of sector-curtailed turbines is ignored. Farm losses come out slightly
// high as a result.
func ExtractWakeLoss(ideal, withWake []float64) ([]float64, []DataConsistencyWarning, error) {
	if len(ideal) != len(withWake) {
		return nil, nil, fmt.Errorf("%w: %d ideal values, %d with-wake values", ErrShapeMismatch, len(ideal), len(withWake))
	}
	loss := make([]float64, len(ideal))
	var warnings []DataConsistencyWarning
	for i := range ideal {
		loss[i] = ideal[i] - withWake[i]
		if loss[i] < -negativeWakeTolerance {
			warnings = append(warnings, DataConsistencyWarning{
				TurbineID: i + 1,
				Message:   "negative wake loss: with-wake production exceeds ideal",
				Magnitude: loss[i],
			})
		}
	}
	return loss, warnings, nil
}
