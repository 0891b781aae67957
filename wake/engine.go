package wake

import (
	"context"
	"fmt"
	"math"

	"github.com/signalsfoundry/windfarm-yield/model"
)

const (
	defaultJensenDecay   = 0.05
	defaultGaussianDecay = 0.04
	ctxCheckInterval     = 1024
)

// Engine is a reference steady-state wake engine. It evaluates NOJ and
// Bastankhah-Gaussian single-wake deficits per timestep and combines them
// with sum-of-squares superposition. Thrust is taken at the free-stream
// speed.
type Engine struct {
	jensenK   float64
	gaussianK float64
	caps      Capabilities
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithJensenDecay sets the NOJ wake expansion coefficient.
func WithJensenDecay(k float64) EngineOption {
	return func(e *Engine) { e.jensenK = k }
}

// WithGaussianDecay sets the Bastankhah wake growth rate.
func WithGaussianDecay(k float64) EngineOption {
	return func(e *Engine) { e.gaussianK = k }
}

// NewEngine builds the reference engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		jensenK:   defaultJensenDecay,
		gaussianK: defaultGaussianDecay,
		caps: Capabilities{
			TimeSeries:       true,
			ParallelVariants: true,
			Models:           []Model{ModelNOJ, ModelBastankhahGaussian},
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Capabilities implements Simulator.
func (e *Engine) Capabilities() Capabilities {
	c := e.caps
	c.Models = append([]Model(nil), e.caps.Models...)
	return c
}

// Simulate implements Simulator.
func (e *Engine) Simulate(ctx context.Context, req Request) (*model.ProductionSeries, error) {
	if req.Layout == nil || req.Turbine == nil || req.Resource == nil {
		return nil, fmt.Errorf("wake: layout, turbine and resource are required")
	}
	if err := e.caps.Require(req.Model); err != nil {
		return nil, err
	}

	positions := req.Layout.Positions()
	n, steps := len(positions), req.Resource.Len()
	variant := model.VariantWithWake
	if req.Model == ModelNone {
		variant = model.VariantNoWake
	}

	data := make([]float64, n*steps)
	deficits := make([]float64, n)
	for t := 0; t < steps; t++ {
		if t%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		s := req.Resource.Sample(t)
		if req.Model != ModelNone {
			e.deficits(deficits, positions, req.Turbine, s, req.Model)
		}
		for i := 0; i < n; i++ {
			u := s.Speed
			if req.Model != ModelNone {
				u *= 1 - deficits[i]
			}
			data[i*steps+t] = req.Turbine.PowerW(u)
		}
	}
	return model.NewProductionSeries(variant, n, steps, data)
}

// deficits fills out with the combined fractional velocity deficit of every
// turbine for one sample.
func (e *Engine) deficits(out []float64, positions []model.Position, turbine *model.TurbineSpec, s model.WindSample, m Model) {
	for i := range out {
		out[i] = 0
	}
	if s.Speed <= 0 {
		return
	}
	ct := turbine.Ct(s.Speed)
	if ct <= 0 {
		return
	}
	d := turbine.RotorDiameter

	// Meteorological direction is where the wind comes from; flow points the
	// other way.
	rad := s.Direction * math.Pi / 180
	fx, fy := -math.Sin(rad), -math.Cos(rad)

	for i, pi := range positions {
		var sumSq float64
		for j, pj := range positions {
			if i == j {
				continue
			}
			rx, ry := pi.X-pj.X, pi.Y-pj.Y
			down := rx*fx + ry*fy
			if down <= 0 {
				continue
			}
			cross := math.Abs(rx*fy - ry*fx)
			var def float64
			switch m {
			case ModelNOJ:
				def = jensenDeficit(ct, d, down, cross, e.jensenK)
			case ModelBastankhahGaussian:
				def = gaussianDeficit(ct, d, down, cross, e.gaussianK)
			}
			sumSq += def * def
		}
		out[i] = math.Min(math.Sqrt(sumSq), 1)
	}
}

func jensenDeficit(ct, d, down, cross, k float64) float64 {
	r := d / 2
	rw := r + k*down
	if cross > rw {
		return 0
	}
	return (1 - math.Sqrt(math.Max(1-ct, 0))) * (r / rw) * (r / rw)
}

func gaussianDeficit(ct, d, down, cross, k float64) float64 {
	sq := math.Sqrt(math.Max(1-ct, 1e-6))
	beta := 0.5 * (1 + sq) / sq
	eps := 0.2 * math.Sqrt(beta)
	sigma := k*down/d + eps
	arg := 1 - ct/(8*sigma*sigma)
	if arg < 0 {
		arg = 0
	}
	c := 1 - math.Sqrt(arg)
	sigmaM := sigma * d
	return c * math.Exp(-cross*cross/(2*sigmaM*sigmaM))
}
