package model

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrInvalidResource indicates a wind resource failed validation.
	ErrInvalidResource = errors.New("invalid wind resource")
	// ErrInvalidTurbine indicates a turbine spec failed validation.
	ErrInvalidTurbine = errors.New("invalid turbine spec")
	// ErrInvalidLayout indicates a layout failed validation.
	ErrInvalidLayout = errors.New("invalid layout")
	// ErrInvalidSeries indicates a production series has an impossible shape.
	ErrInvalidSeries = errors.New("invalid production series")
)

// WindSample is a single hub-height observation.
type WindSample struct {
	Speed     float64 // m/s
	Direction float64 // degrees, meteorological convention
}

// WindResource is an ordered, index-aligned series of wind samples. It is
// immutable after construction; accessors return copies.
type WindResource struct {
	samples []WindSample

	Height float64 // measurement height in metres
	Source string
	Start  time.Time
	Step   time.Duration
}

// NewWindResource validates and copies samples. A zero step defaults to one
// hour.
func NewWindResource(samples []WindSample, height float64, source string, start time.Time, step time.Duration) (*WindResource, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrInvalidResource)
	}
	if step <= 0 {
		step = time.Hour
	}
	for i, s := range samples {
		if math.IsNaN(s.Speed) || math.IsInf(s.Speed, 0) || s.Speed < 0 {
			return nil, fmt.Errorf("%w: sample %d has wind speed %v", ErrInvalidResource, i, s.Speed)
		}
		if math.IsNaN(s.Direction) || math.IsInf(s.Direction, 0) {
			return nil, fmt.Errorf("%w: sample %d has wind direction %v", ErrInvalidResource, i, s.Direction)
		}
	}
	cp := make([]WindSample, len(samples))
	copy(cp, samples)
	return &WindResource{
		samples: cp,
		Height:  height,
		Source:  source,
		Start:   start,
		Step:    step,
	}, nil
}

// Len returns the number of samples.
func (w *WindResource) Len() int { return len(w.samples) }

// Sample returns the i-th sample.
func (w *WindResource) Sample(i int) WindSample { return w.samples[i] }

// Speeds returns a copy of the wind speed column.
func (w *WindResource) Speeds() []float64 {
	out := make([]float64, len(w.samples))
	for i, s := range w.samples {
		out[i] = s.Speed
	}
	return out
}

// Directions returns a copy of the wind direction column.
func (w *WindResource) Directions() []float64 {
	out := make([]float64, len(w.samples))
	for i, s := range w.samples {
		out[i] = s.Direction
	}
	return out
}

// HoursPerSample is the sample step expressed in hours.
func (w *WindResource) HoursPerSample() float64 {
	return w.Step.Hours()
}

// MeanSpeed returns the arithmetic mean wind speed.
func (w *WindResource) MeanSpeed() float64 {
	return floats.Sum(w.Speeds()) / float64(len(w.samples))
}

// Slice returns a new resource restricted to samples [from, to).
func (w *WindResource) Slice(from, to int) (*WindResource, error) {
	if from < 0 || to > len(w.samples) || from >= to {
		return nil, fmt.Errorf("%w: slice [%d, %d) out of range for %d samples", ErrInvalidResource, from, to, len(w.samples))
	}
	start := w.Start
	if !start.IsZero() {
		start = start.Add(time.Duration(from) * w.Step)
	}
	return NewWindResource(w.samples[from:to], w.Height, w.Source, start, w.Step)
}
