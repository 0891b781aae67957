package core

import (
	"fmt"
	"math"
	"sort"
)

// Sector is an allowed azimuth range in degrees, inclusive on both ends.
type Sector struct {
	Start float64
	End   float64
}

// NewSector validates 0 <= start <= end <= 360.
func NewSector(start, end float64) (Sector, error) {
	if math.IsNaN(start) || math.IsNaN(end) {
		return Sector{}, fmt.Errorf("%w: sector bounds must be numbers", ErrConfiguration)
	}
	if start < 0 || end > 360 {
		return Sector{}, fmt.Errorf("%w: sector (%g, %g) outside [0, 360]", ErrConfiguration, start, end)
	}
	if start > end {
		return Sector{}, fmt.Errorf("%w: sector start %g greater than end %g", ErrConfiguration, start, end)
	}
	return Sector{Start: start, End: end}, nil
}

// Contains reports whether an already normalized direction lies in the
// sector.
func (s Sector) Contains(direction float64) bool {
	return direction >= s.Start && direction <= s.End
}

// Width returns the angular width of the sector in degrees.
func (s Sector) Width() float64 { return s.End - s.Start }

// AllowedSectors is the set of ranges a turbine may operate in. A nil value
// means the turbine is unrestricted.
type AllowedSectors []Sector

// NewAllowedSectors validates every range. An explicitly supplied empty list
// is rejected; use nil for an unrestricted turbine.
func NewAllowedSectors(ranges ...Sector) (AllowedSectors, error) {
	if len(ranges) == 0 {
		return nil, fmt.Errorf("%w: empty sector list", ErrConfiguration)
	}
	out := make(AllowedSectors, 0, len(ranges))
	for _, r := range ranges {
		s, err := NewSector(r.Start, r.End)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// NormalizeDirection maps any direction into [0, 360).
func NormalizeDirection(direction float64) float64 {
	d := math.Mod(direction, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0 // tiny negatives round up to 360
	}
	if d == 0 {
		return 0 // drop -0
	}
	return d
}

// IsAvailable reports whether a turbine with the given sectors may run at
// the given wind direction. No sectors means always available.
func IsAvailable(direction float64, sectors AllowedSectors) bool {
	if len(sectors) == 0 {
		return true
	}
	d := NormalizeDirection(direction)
	for _, s := range sectors {
		if s.Contains(d) {
			return true
		}
	}
	return false
}

// AvailabilityFraction is the time-based share of samples whose direction
// is allowed. It is a fallback for modes without per-timestep power.
func AvailabilityFraction(directions []float64, sectors AllowedSectors) float64 {
	if len(sectors) == 0 {
		return 1
	}
	if len(directions) == 0 {
		return 0
	}
	n := 0
	for _, d := range directions {
		if IsAvailable(d, sectors) {
			n++
		}
	}
	return float64(n) / float64(len(directions))
}

// SectorManagementConfig maps 1-based turbine IDs to their allowed sectors.
// Turbines absent from the mapping are unrestricted. It is immutable once
// constructed; a nil config restricts nothing.
type SectorManagementConfig struct {
	sectors map[int]AllowedSectors
}

// NewSectorManagementConfig validates every turbine ID and range eagerly.
func NewSectorManagementConfig(raw map[int][]Sector) (*SectorManagementConfig, error) {
	cfg := &SectorManagementConfig{sectors: make(map[int]AllowedSectors, len(raw))}
	for id, ranges := range raw {
		if id < 1 {
			return nil, fmt.Errorf("%w: turbine id %d must be positive", ErrConfiguration, id)
		}
		allowed, err := NewAllowedSectors(ranges...)
		if err != nil {
			return nil, fmt.Errorf("turbine %d: %w", id, err)
		}
		cfg.sectors[id] = allowed
	}
	return cfg, nil
}

// Sectors returns the allowed sectors for a turbine and whether it is
// restricted.
func (c *SectorManagementConfig) Sectors(turbineID int) (AllowedSectors, bool) {
	if c == nil {
		return nil, false
	}
	s, ok := c.sectors[turbineID]
	if !ok {
		return nil, false
	}
	out := make(AllowedSectors, len(s))
	copy(out, s)
	return out, true
}

// TurbineIDs returns the restricted turbine IDs in ascending order.
func (c *SectorManagementConfig) TurbineIDs() []int {
	if c == nil {
		return nil
	}
	ids := make([]int, 0, len(c.sectors))
	for id := range c.sectors {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len returns the number of restricted turbines.
func (c *SectorManagementConfig) Len() int {
	if c == nil {
		return 0
	}
	return len(c.sectors)
}

// ValidateFor checks that every turbine ID lies in [1, nTurbines].
func (c *SectorManagementConfig) ValidateFor(nTurbines int) error {
	for _, id := range c.TurbineIDs() {
		if id > nTurbines {
			return fmt.Errorf("%w: turbine id %d outside [1, %d]", ErrConfiguration, id, nTurbines)
		}
	}
	return nil
}

// OperatingMask records, per timestep and turbine, whether the turbine is
// allowed to run.
type OperatingMask struct {
	steps    int
	turbines int
	allowed  []bool
}

// NewOperatingMask evaluates the sector configuration against every
// direction sample.
func NewOperatingMask(cfg *SectorManagementConfig, directions []float64, nTurbines int) (*OperatingMask, error) {
	if err := cfg.ValidateFor(nTurbines); err != nil {
		return nil, err
	}
	m := &OperatingMask{steps: len(directions), turbines: nTurbines, allowed: make([]bool, len(directions)*nTurbines)}
	for i := range m.allowed {
		m.allowed[i] = true
	}
	for _, id := range cfg.TurbineIDs() {
		sectors, _ := cfg.Sectors(id)
		col := id - 1
		for t, d := range directions {
			m.allowed[t*nTurbines+col] = IsAvailable(d, sectors)
		}
	}
	return m, nil
}

// Steps returns the number of timesteps.
func (m *OperatingMask) Steps() int { return m.steps }

// Turbines returns the number of turbines.
func (m *OperatingMask) Turbines() int { return m.turbines }

// Allowed reports whether turbine index i may run at timestep t.
func (m *OperatingMask) Allowed(t, i int) bool { return m.allowed[t*m.turbines+i] }

// Stopped returns a 0/1 vector over time marking when turbine index i is
// curtailed.
func (m *OperatingMask) Stopped(i int) []float64 {
	out := make([]float64, m.steps)
	for t := range out {
		if !m.allowed[t*m.turbines+i] {
			out[t] = 1
		}
	}
	return out
}

// SectorStatistics summarises the time-based effect of sector management on
// one turbine.
type SectorStatistics struct {
	TurbineID           int
	Sectors             AllowedSectors
	Availability        float64
	CurtailmentFraction float64
	AllowedHours        float64
	StoppedHours        float64
}

// ComputeSectorStatistics returns statistics for every restricted turbine in
// ascending ID order.
func ComputeSectorStatistics(cfg *SectorManagementConfig, directions []float64, hoursPerSample float64) []SectorStatistics {
	if hoursPerSample <= 0 {
		hoursPerSample = 1
	}
	total := float64(len(directions)) * hoursPerSample
	var out []SectorStatistics
	for _, id := range cfg.TurbineIDs() {
		sectors, _ := cfg.Sectors(id)
		a := AvailabilityFraction(directions, sectors)
		out = append(out, SectorStatistics{
			TurbineID:           id,
			Sectors:             sectors,
			Availability:        a,
			CurtailmentFraction: 1 - a,
			AllowedHours:        a * total,
			StoppedHours:        (1 - a) * total,
		})
	}
	return out
}
