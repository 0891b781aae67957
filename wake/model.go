// Package wake defines the boundary to wake-deficit simulators and ships a
// reference engine.
package wake

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownModel is returned for wake model names outside the supported set.
var ErrUnknownModel = errors.New("unknown wake model")

// Model is a closed set of wake-deficit models.
type Model int

const (
	// ModelNone disables wake interaction. It produces the ideal baseline.
	ModelNone Model = iota
	// ModelNOJ is the Jensen top-hat deficit model.
	ModelNOJ
	// ModelBastankhahGaussian is the self-similar Gaussian deficit model.
	ModelBastankhahGaussian
	// ModelTurboPark is the Ørsted TurbOPark model.
	ModelTurboPark
	// ModelFuga is the linearised RANS look-up model.
	ModelFuga
)

var modelNames = map[Model]string{
	ModelNone:               "None",
	ModelNOJ:                "NOJ",
	ModelBastankhahGaussian: "BastankhahGaussian",
	ModelTurboPark:          "TurboPark",
	ModelFuga:               "Fuga",
}

var modelAliases = map[string]Model{
	"none":               ModelNone,
	"nowake":             ModelNone,
	"noj":                ModelNOJ,
	"jensen":             ModelNOJ,
	"bastankhahgaussian": ModelBastankhahGaussian,
	"bastankhah":         ModelBastankhahGaussian,
	"gaussian":           ModelBastankhahGaussian,
	"turbopark":          ModelTurboPark,
	"fuga":               ModelFuga,
}

func (m Model) String() string {
	if s, ok := modelNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// ParseModel resolves a model name case-insensitively, ignoring '_' and '-'.
func ParseModel(name string) (Model, error) {
	key := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(name))
	if m, ok := modelAliases[key]; ok {
		return m, nil
	}
	return ModelNone, fmt.Errorf("%w: %q", ErrUnknownModel, name)
}

// MarshalText implements encoding.TextMarshaler.
func (m Model) MarshalText() ([]byte, error) {
	if _, ok := modelNames[m]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownModel, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Model) UnmarshalText(b []byte) error {
	v, err := ParseModel(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Capabilities describes what a simulator can do. They are resolved once
// when the simulator is built and passed through configuration.
type Capabilities struct {
	// TimeSeries is true when the simulator returns per-timestep power.
	TimeSeries bool
	// ParallelVariants allows the baseline and wake variants to run
	// concurrently.
	ParallelVariants bool
	// Models lists the supported wake models. ModelNone is always implied.
	Models []Model
}

// Supports reports whether m can be simulated.
func (c Capabilities) Supports(m Model) bool {
	if m == ModelNone {
		return true
	}
	for _, s := range c.Models {
		if s == m {
			return true
		}
	}
	return false
}

// Require returns an error when m is not supported.
func (c Capabilities) Require(m Model) error {
	if _, ok := modelNames[m]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownModel, int(m))
	}
	if !c.Supports(m) {
		names := make([]string, 0, len(c.Models))
		for _, s := range c.Models {
			names = append(names, s.String())
		}
		sort.Strings(names)
		return fmt.Errorf("%w: %s not supported by simulator (supported: %s)", ErrUnknownModel, m, strings.Join(names, ", "))
	}
	return nil
}
