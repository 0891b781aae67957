package model

import (
	"fmt"
	"math"
)

// Position is a projected turbine coordinate in metres.
type Position struct {
	X float64
	Y float64
}

// Layout holds turbine positions. Turbine IDs are 1-based in slice order.
type Layout struct {
	positions []Position
	CRS       string
}

// NewLayout copies positions and rejects empty or coincident layouts.
func NewLayout(positions []Position, crs string) (*Layout, error) {
	if len(positions) == 0 {
		return nil, fmt.Errorf("%w: no turbines", ErrInvalidLayout)
	}
	seen := make(map[Position]int, len(positions))
	for i, p := range positions {
		if prev, ok := seen[p]; ok {
			return nil, fmt.Errorf("%w: turbines %d and %d share position (%v, %v)", ErrInvalidLayout, prev+1, i+1, p.X, p.Y)
		}
		seen[p] = i
	}
	cp := make([]Position, len(positions))
	copy(cp, positions)
	return &Layout{positions: cp, CRS: crs}, nil
}

// NTurbines returns the number of turbines.
func (l *Layout) NTurbines() int { return len(l.positions) }

// Position returns the coordinate of the turbine at 0-based index i.
func (l *Layout) Position(i int) Position { return l.positions[i] }

// Positions returns a copy of all coordinates.
func (l *Layout) Positions() []Position {
	out := make([]Position, len(l.positions))
	copy(out, l.positions)
	return out
}

// SpacingViolations counts turbine pairs closer than minDistance metres.
func (l *Layout) SpacingViolations(minDistance float64) int {
	count := 0
	for i := 0; i < len(l.positions); i++ {
		for j := i + 1; j < len(l.positions); j++ {
			dx := l.positions[i].X - l.positions[j].X
			dy := l.positions[i].Y - l.positions[j].Y
			if math.Hypot(dx, dy) < minDistance {
				count++
			}
		}
	}
	return count
}
