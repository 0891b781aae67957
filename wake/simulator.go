package wake

import (
	"context"

	"github.com/signalsfoundry/windfarm-yield/model"
)

// Request is one simulation call.
type Request struct {
	Layout   *model.Layout
	Turbine  *model.TurbineSpec
	Resource *model.WindResource
	Model    Model
}

// Simulator turns a layout, turbine and wind series into per-turbine power
// in watts. Calling it with ModelNone yields the no-wake baseline.
type Simulator interface {
	Capabilities() Capabilities
	Simulate(ctx context.Context, req Request) (*model.ProductionSeries, error)
}
