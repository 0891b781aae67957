package core

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration covers invalid sector ranges, out-of-range turbine
	// IDs and loss fractions outside [0, 1].
	ErrConfiguration = errors.New("invalid configuration")
	// ErrSequence is returned when an operation is invoked before the
	// stage it depends on.
	ErrSequence = errors.New("operation out of sequence")
	// ErrShapeMismatch is returned when series lengths disagree.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrReconciliation is returned when a ledger does not balance.
	ErrReconciliation = errors.New("ledger does not reconcile")
)

// DataConsistencyWarning flags a suspicious but non-fatal condition in
// simulation output, such as a negative wake loss.
type DataConsistencyWarning struct {
	TurbineID int
	Message   string
	Magnitude float64
}

func (w DataConsistencyWarning) String() string {
	if w.TurbineID > 0 {
		return fmt.Sprintf("turbine %d: %s (%.6g)", w.TurbineID, w.Message, w.Magnitude)
	}
	return fmt.Sprintf("%s (%.6g)", w.Message, w.Magnitude)
}
