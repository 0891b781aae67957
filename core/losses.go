package core

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// LossType names a loss category.
type LossType string

const (
	LossWake                  LossType = "wake_losses"
	LossSectorManagement      LossType = "curtailment_sector_management"
	LossAvailabilityTurbines  LossType = "availability_turbines"
	LossAvailabilityGrid      LossType = "availability_grid"
	LossElectrical            LossType = "electrical_losses"
	LossHighHysteresis        LossType = "high_hysteresis_losses"
	LossEnvironmentalDegraded LossType = "environmental_performance_degradation"
	LossOther                 LossType = "other_losses"
)

// Stage names used in a loss breakdown.
const (
	AppliedInRunSimulation = "run_simulation"
	AppliedInApplyLosses   = "apply_losses"
)

var lossDescriptions = map[LossType]string{
	LossWake:                  "Energy lost to wake interaction between turbines",
	LossSectorManagement:      "Energy lost while turbines are stopped outside allowed sectors",
	LossAvailabilityTurbines:  "Turbine downtime for maintenance and faults",
	LossAvailabilityGrid:      "Grid outages and export limitations",
	LossElectrical:            "Cable, transformer and collection system losses",
	LossHighHysteresis:        "High wind speed cut-out hysteresis",
	LossEnvironmentalDegraded: "Blade soiling, icing and performance degradation",
	LossOther:                 "Other unclassified losses",
}

// defaultUniformLosses lists the uniform categories in the order they are
// reported.
var defaultUniformLosses = []struct {
	name  LossType
	value float64
}{
	{LossAvailabilityTurbines, 0.015},
	{LossAvailabilityGrid, 0.015},
	{LossElectrical, 0.020},
	{LossHighHysteresis, 0.003},
	{LossEnvironmentalDegraded, 0.030},
	{LossOther, 0.005},
}

// LossValues maps loss names to fractions. Presence of a key means the value
// was set explicitly, so zero is honored.
type LossValues map[LossType]float64

// DefaultLossValues returns the built-in uniform loss fractions.
func DefaultLossValues() LossValues {
	out := make(LossValues, len(defaultUniformLosses))
	for _, d := range defaultUniformLosses {
		out[d.name] = d.value
	}
	return out
}

// DescribeLoss returns the default description for a known loss type.
func DescribeLoss(name LossType) string {
	return lossDescriptions[name]
}

// LossCategory is one fractional loss. Computed categories come from
// simulation, the rest from configuration.
type LossCategory struct {
	Name        LossType
	Value       float64
	IsComputed  bool
	Description string
}

// NewLossCategory validates value in [0, 1]. An empty description is filled
// from the defaults for known types.
func NewLossCategory(name LossType, value float64, isComputed bool, description string) (LossCategory, error) {
	if name == "" {
		return LossCategory{}, fmt.Errorf("%w: empty loss name", ErrConfiguration)
	}
	if math.IsNaN(value) || value < 0 || value > 1 {
		return LossCategory{}, fmt.Errorf("%w: loss %q value %g outside [0, 1]", ErrConfiguration, name, value)
	}
	if description == "" {
		description = DescribeLoss(name)
	}
	return LossCategory{Name: name, Value: value, IsComputed: isComputed, Description: description}, nil
}

// Factor returns 1 - value.
func (c LossCategory) Factor() float64 { return 1 - c.Value }

// LossCascade is an immutable set of uniform loss categories combined
// multiplicatively.
type LossCascade struct {
	categories []LossCategory
}

// NewLossCascade builds a cascade from uniform categories. Computed
// categories are rejected: wake and sector losses are already in the ledger
// and multiplying them in again would count them twice.
func NewLossCascade(categories ...LossCategory) (*LossCascade, error) {
	seen := make(map[LossType]bool, len(categories))
	out := make([]LossCategory, 0, len(categories))
	for _, c := range categories {
		if c.IsComputed {
			return nil, fmt.Errorf("%w: computed loss %q cannot join the uniform cascade", ErrConfiguration, c.Name)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("%w: duplicate loss %q", ErrConfiguration, c.Name)
		}
		// Re-validate in case the struct was built by hand.
		v, err := NewLossCategory(c.Name, c.Value, false, c.Description)
		if err != nil {
			return nil, err
		}
		seen[c.Name] = true
		out = append(out, v)
	}
	return &LossCascade{categories: out}, nil
}

// ResolveLossCascade builds a cascade with precedence overrides > configured
// > defaults. Names outside the defaults are appended in sorted order.
func ResolveLossCascade(configured, overrides LossValues) (*LossCascade, error) {
	values := DefaultLossValues()
	for k, v := range configured {
		values[k] = v
	}
	for k, v := range overrides {
		values[k] = v
	}

	order := make([]LossType, 0, len(values))
	known := make(map[LossType]bool, len(defaultUniformLosses))
	for _, d := range defaultUniformLosses {
		order = append(order, d.name)
		known[d.name] = true
	}
	var extra []LossType
	for k := range values {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	order = append(order, extra...)

	cats := make([]LossCategory, 0, len(order))
	for _, name := range order {
		c, err := NewLossCategory(name, values[name], false, "")
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return NewLossCascade(cats...)
}

// Categories returns a copy of the cascade entries.
func (lc *LossCascade) Categories() []LossCategory {
	return append([]LossCategory(nil), lc.categories...)
}

// TotalLossFactor returns Π(1 - value).
func (lc *LossCascade) TotalLossFactor() float64 {
	f := 1.0
	for _, c := range lc.categories {
		f *= c.Factor()
	}
	return f
}

// TotalLossPercentage returns 100 × (1 - TotalLossFactor).
func (lc *LossCascade) TotalLossPercentage() float64 {
	return 100 * (1 - lc.TotalLossFactor())
}

// NetEnergy applies the cascade to a gross energy.
func (lc *LossCascade) NetEnergy(gross float64) float64 {
	return gross * lc.TotalLossFactor()
}

// ApplyPerTurbine splits each turbine's production before uniform losses
// into the uniform loss and the remaining net production.
func (lc *LossCascade) ApplyPerTurbine(before []float64) (other, net []float64) {
	f := lc.TotalLossFactor()
	net = append([]float64(nil), before...)
	floats.Scale(f, net)
	other = make([]float64, len(before))
	floats.SubTo(other, before, net)
	return other, net
}

// LossBreakdownEntry reports one category alongside where it was applied.
type LossBreakdownEntry struct {
	Name        LossType
	Value       float64
	Percentage  float64
	IsComputed  bool
	Description string
	AppliedIn   string
}

// LossBreakdown lists computed categories followed by the uniform cascade.
// Computed entries are reported only; the cascade factor never includes
// them.
func LossBreakdown(computed []LossCategory, cascade *LossCascade) []LossBreakdownEntry {
	var out []LossBreakdownEntry
	for _, c := range computed {
		out = append(out, LossBreakdownEntry{
			Name:        c.Name,
			Value:       c.Value,
			Percentage:  100 * c.Value,
			IsComputed:  true,
			Description: c.Description,
			AppliedIn:   AppliedInRunSimulation,
		})
	}
	if cascade == nil {
		return out
	}
	for _, c := range cascade.categories {
		out = append(out, LossBreakdownEntry{
			Name:        c.Name,
			Value:       c.Value,
			Percentage:  100 * c.Value,
			IsComputed:  false,
			Description: c.Description,
			AppliedIn:   AppliedInApplyLosses,
		})
	}
	return out
}
