package core

import (
	"fmt"
	"math"
)

// LedgerTolerance is the allowed per-turbine imbalance in GWh.
const LedgerTolerance = 1e-6

// TurbineLedger holds annual energies in GWh for one turbine.
type TurbineLedger struct {
	TurbineID  int
	Ideal      float64
	WakeLoss   float64
	SectorLoss float64
	OtherLoss  float64
	Net        float64
}

// BeforeOther is the production left after wake and sector losses.
func (l TurbineLedger) BeforeOther() float64 {
	return l.Ideal - l.WakeLoss - l.SectorLoss
}

// Residual is ideal minus every loss and net. It is zero for a balanced
// entry.
func (l TurbineLedger) Residual() float64 {
	return l.Ideal - l.WakeLoss - l.SectorLoss - l.OtherLoss - l.Net
}

// Ledger is an immutable per-turbine loss ledger ordered by turbine ID.
type Ledger struct {
	entries []TurbineLedger
}

// NewLedger builds the ledger after simulation. Net is provisionally the
// with-wake-and-sector production and other losses are zero.
func NewLedger(ideal, wakeLoss, sectorLoss []float64) (*Ledger, error) {
	if len(wakeLoss) != len(ideal) || len(sectorLoss) != len(ideal) {
		return nil, fmt.Errorf("%w: ledger columns %d/%d/%d", ErrShapeMismatch, len(ideal), len(wakeLoss), len(sectorLoss))
	}
	entries := make([]TurbineLedger, len(ideal))
	for i := range ideal {
		entries[i] = TurbineLedger{
			TurbineID:  i + 1,
			Ideal:      ideal[i],
			WakeLoss:   wakeLoss[i],
			SectorLoss: sectorLoss[i],
			Net:        ideal[i] - wakeLoss[i] - sectorLoss[i],
		}
	}
	return &Ledger{entries: entries}, nil
}

// WithUniformLosses returns a new ledger with other losses and net derived
// from the cascade. Wake and sector columns are carried over unchanged.
func (l *Ledger) WithUniformLosses(cascade *LossCascade) *Ledger {
	before := make([]float64, len(l.entries))
	for i, e := range l.entries {
		before[i] = e.BeforeOther()
	}
	other, net := cascade.ApplyPerTurbine(before)
	entries := make([]TurbineLedger, len(l.entries))
	copy(entries, l.entries)
	for i := range entries {
		entries[i].OtherLoss = other[i]
		entries[i].Net = net[i]
	}
	return &Ledger{entries: entries}
}

// Len returns the number of turbines.
func (l *Ledger) Len() int { return len(l.entries) }

// Entry returns the entry for turbine index i.
func (l *Ledger) Entry(i int) TurbineLedger { return l.entries[i] }

// Entries returns a copy of all entries.
func (l *Ledger) Entries() []TurbineLedger {
	return append([]TurbineLedger(nil), l.entries...)
}

// Column extracts one field across turbines.
func (l *Ledger) Column(field func(TurbineLedger) float64) []float64 {
	out := make([]float64, len(l.entries))
	for i, e := range l.entries {
		out[i] = field(e)
	}
	return out
}

// Totals sums every column. TurbineID is zero.
func (l *Ledger) Totals() TurbineLedger {
	var t TurbineLedger
	for _, e := range l.entries {
		t.Ideal += e.Ideal
		t.WakeLoss += e.WakeLoss
		t.SectorLoss += e.SectorLoss
		t.OtherLoss += e.OtherLoss
		t.Net += e.Net
	}
	return t
}

// Reconcile checks ideal = wake + sector + other + net for every turbine.
func (l *Ledger) Reconcile() error {
	for _, e := range l.entries {
		if r := e.Residual(); math.Abs(r) > LedgerTolerance || math.IsNaN(r) {
			return fmt.Errorf("%w: turbine %d residual %g GWh", ErrReconciliation, e.TurbineID, r)
		}
	}
	return nil
}
