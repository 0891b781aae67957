package site

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/windfarm-yield/core"
	"github.com/signalsfoundry/windfarm-yield/wake"
)

// Pipeline stage names, in order.
const (
	StageIdeal             = "ideal"
	StageWithWake          = "with_wake"
	StageWithWakeAndSector = "with_wake_and_sector"
	StageFinal             = "final"
)

// StageSnapshot is the per-turbine annual production in GWh after one
// pipeline stage.
type StageSnapshot struct {
	Stage      string
	PerTurbine []float64
	Total      float64
}

func newSnapshot(stage string, perTurbine []float64) StageSnapshot {
	cp := append([]float64(nil), perTurbine...)
	var total float64
	for _, v := range cp {
		total += v
	}
	return StageSnapshot{Stage: stage, PerTurbine: cp, Total: total}
}

// FarmSummary describes the analysed site.
type FarmSummary struct {
	Name          string
	NTurbines     int
	TurbineName   string
	CapacityMW    float64
	HubHeight     float64
	RotorDiameter float64
	MeanWindSpeed float64
	Samples       int
	Hours         float64
	WakeModel     wake.Model
	FullLoadHours float64
}

// WindSimulationResult is the finalized outcome of one run.
type WindSimulationResult struct {
	RunID     string
	WakeModel wake.Model
	Mode      core.AccountingMode

	AEPGWh            float64
	GrossAEPGWh       float64
	WakeLossPercent   float64
	SectorLossPercent float64
	OtherLossPercent  float64
	CapacityFactor    float64
	TotalLossFactor   float64
	LossesApplied     bool

	Ledger           *core.Ledger
	RatedPowerMW     float64
	LossBreakdown    []core.LossBreakdownEntry
	SectorStatistics []core.SectorStatistics
	Snapshots        []StageSnapshot
	Warnings         []core.DataConsistencyWarning
	Summary          FarmSummary
}

// Reconcile checks the ledger and that each pair of adjacent snapshots
// differs by exactly the loss attributed between them.
func (r *WindSimulationResult) Reconcile() error {
	if err := r.Ledger.Reconcile(); err != nil {
		return err
	}
	losses := map[string]func(core.TurbineLedger) float64{
		StageWithWake:          func(e core.TurbineLedger) float64 { return e.WakeLoss },
		StageWithWakeAndSector: func(e core.TurbineLedger) float64 { return e.SectorLoss },
		StageFinal:             func(e core.TurbineLedger) float64 { return e.OtherLoss },
	}
	for k := 1; k < len(r.Snapshots); k++ {
		prev, next := r.Snapshots[k-1], r.Snapshots[k]
		loss, ok := losses[next.Stage]
		if !ok {
			return fmt.Errorf("%w: unknown stage %q", core.ErrReconciliation, next.Stage)
		}
		for i := range next.PerTurbine {
			diff := prev.PerTurbine[i] - next.PerTurbine[i] - loss(r.Ledger.Entry(i))
			if math.Abs(diff) > core.LedgerTolerance {
				return fmt.Errorf("%w: %s -> %s turbine %d off by %g GWh", core.ErrReconciliation, prev.Stage, next.Stage, i+1, diff)
			}
		}
	}
	return nil
}

// capacityFactor returns aep over the theoretical maximum, clamped to
// [0, 1]. Clamping is reported as a warning.
func capacityFactor(aepGWh, capacityMW float64) (float64, *core.DataConsistencyWarning) {
	maxGWh := capacityMW * 8760 / 1000
	if maxGWh <= 0 {
		return 0, nil
	}
	cf := aepGWh / maxGWh
	switch {
	case cf > 1:
		return 1, &core.DataConsistencyWarning{Message: "capacity factor above 1 clamped", Magnitude: cf}
	case cf < 0:
		return 0, &core.DataConsistencyWarning{Message: "capacity factor below 0 clamped", Magnitude: cf}
	}
	return cf, nil
}
