package config

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/signalsfoundry/windfarm-yield/core"
	"github.com/signalsfoundry/windfarm-yield/internal/site"
	"github.com/signalsfoundry/windfarm-yield/model"
	"github.com/signalsfoundry/windfarm-yield/wake"
)

// Scenario is the on-disk description of a site. YAML and JSON share the
// same field names.
type Scenario struct {
	Name         string                 `yaml:"name" json:"name"`
	WakeModel    string                 `yaml:"wake_model" json:"wake_model"`
	AnalysisYear int                    `yaml:"analysis_year" json:"analysis_year"`
	Turbine      TurbineFile            `yaml:"turbine" json:"turbine"`
	Layout       LayoutFile             `yaml:"layout" json:"layout"`
	Wind         WindFile               `yaml:"wind" json:"wind"`
	Sectors      map[string][][]float64 `yaml:"sector_management" json:"sector_management"`
	Losses       map[string]float64     `yaml:"losses" json:"losses"`
	Overrides    map[string]float64     `yaml:"loss_overrides" json:"loss_overrides"`
	Capabilities *CapabilitiesFile      `yaml:"capabilities" json:"capabilities"`
	WakeDecay    *WakeDecayFile         `yaml:"wake_decay" json:"wake_decay"`

	dir string
}

// TurbineFile describes the turbine type.
type TurbineFile struct {
	Name          string      `yaml:"name" json:"name"`
	HubHeight     float64     `yaml:"hub_height" json:"hub_height"`
	RotorDiameter float64     `yaml:"rotor_diameter" json:"rotor_diameter"`
	RatedPowerKW  float64     `yaml:"rated_power_kw" json:"rated_power_kw"`
	PowerCurve    []CurveFile `yaml:"power_curve" json:"power_curve"`
}

// CurveFile is one power curve row.
type CurveFile struct {
	WindSpeed float64 `yaml:"ws" json:"ws"`
	PowerKW   float64 `yaml:"power_kw" json:"power_kw"`
	Ct        float64 `yaml:"ct" json:"ct"`
}

// LayoutFile lists turbine coordinates in metres; the order defines the
// 1-based turbine IDs.
type LayoutFile struct {
	CRS      string         `yaml:"crs" json:"crs"`
	Turbines []PositionFile `yaml:"turbines" json:"turbines"`
}

// PositionFile is one turbine position.
type PositionFile struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// WindFile points at a wind CSV or describes a synthetic series.
type WindFile struct {
	CSV       string         `yaml:"csv" json:"csv"`
	Height    float64        `yaml:"height" json:"height"`
	Source    string         `yaml:"source" json:"source"`
	Synthetic *SyntheticFile `yaml:"synthetic" json:"synthetic"`
}

// SyntheticFile generates a reproducible Weibull wind series with uniform
// directions.
type SyntheticFile struct {
	Seed     uint64  `yaml:"seed" json:"seed"`
	Samples  int     `yaml:"samples" json:"samples"`
	WeibullA float64 `yaml:"weibull_a" json:"weibull_a"`
	WeibullK float64 `yaml:"weibull_k" json:"weibull_k"`
	Start    string  `yaml:"start" json:"start"`
}

// CapabilitiesFile narrows the simulator capabilities for this site.
type CapabilitiesFile struct {
	TimeSeries       *bool `yaml:"time_series" json:"time_series"`
	ParallelVariants *bool `yaml:"parallel_variants" json:"parallel_variants"`
}

// WakeDecayFile tunes the reference engine's wake growth rates. Zero keeps
// the engine default.
type WakeDecayFile struct {
	Jensen   float64 `yaml:"jensen" json:"jensen"`
	Gaussian float64 `yaml:"gaussian" json:"gaussian"`
}

// SiteSpec is a scenario turned into orchestrator inputs.
type SiteSpec struct {
	Inputs    site.Inputs
	Losses    site.LossOptions
	WakeModel wake.Model
	// Engine holds reference-engine tuning from the scenario.
	Engine []wake.EngineOption
}

// LoadScenario reads a scenario file, choosing the decoder by extension.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	case ".json":
		format = "json"
	default:
		return nil, fmt.Errorf("%w: unsupported scenario extension %q", core.ErrConfiguration, filepath.Ext(path))
	}
	sc, err := ParseScenario(data, format)
	if err != nil {
		return nil, err
	}
	sc.dir = filepath.Dir(path)
	return sc, nil
}

// ParseScenario decodes a scenario in "yaml" or "json" format.
func ParseScenario(data []byte, format string) (*Scenario, error) {
	var sc Scenario
	var err error
	switch format {
	case "yaml":
		err = yaml.UnmarshalStrict(data, &sc)
	case "json":
		dec := json.NewDecoder(strings.NewReader(string(data)))
		dec.DisallowUnknownFields()
		err = dec.Decode(&sc)
	default:
		return nil, fmt.Errorf("%w: unknown scenario format %q", core.ErrConfiguration, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode scenario: %w", core.ErrConfiguration, err)
	}
	if sc.WakeModel != "" {
		if _, err := wake.ParseModel(sc.WakeModel); err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrConfiguration, err)
		}
	}
	return &sc, nil
}

// Build validates the scenario and produces orchestrator inputs. Relative
// wind CSV paths resolve against the scenario file's directory.
func (s *Scenario) Build() (*SiteSpec, error) {
	wm := wake.ModelNOJ
	if s.WakeModel != "" {
		m, err := wake.ParseModel(s.WakeModel)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrConfiguration, err)
		}
		wm = m
	}

	turbine, err := s.buildTurbine()
	if err != nil {
		return nil, err
	}
	layout, err := s.buildLayout()
	if err != nil {
		return nil, err
	}
	resource, err := s.buildWind()
	if err != nil {
		return nil, err
	}
	sectors, err := s.buildSectors()
	if err != nil {
		return nil, err
	}

	in := site.Inputs{
		Name:         s.Name,
		Resource:     resource,
		Layout:       layout,
		Turbine:      turbine,
		Sectors:      sectors,
		AnalysisYear: s.AnalysisYear,
	}
	if s.Capabilities != nil {
		caps := wake.Capabilities{TimeSeries: true, ParallelVariants: true}
		if s.Capabilities.TimeSeries != nil {
			caps.TimeSeries = *s.Capabilities.TimeSeries
		}
		if s.Capabilities.ParallelVariants != nil {
			caps.ParallelVariants = *s.Capabilities.ParallelVariants
		}
		in.Capabilities = &caps
	}

	engine, err := s.engineOptions()
	if err != nil {
		return nil, err
	}

	return &SiteSpec{
		Inputs:    in,
		Losses:    site.LossOptions{Configured: lossValues(s.Losses), Overrides: lossValues(s.Overrides)},
		WakeModel: wm,
		Engine:    engine,
	}, nil
}

func (s *Scenario) engineOptions() ([]wake.EngineOption, error) {
	d := s.WakeDecay
	if d == nil {
		return nil, nil
	}
	if d.Jensen < 0 || d.Gaussian < 0 {
		return nil, fmt.Errorf("%w: wake decay must not be negative", core.ErrConfiguration)
	}
	var opts []wake.EngineOption
	if d.Jensen > 0 {
		opts = append(opts, wake.WithJensenDecay(d.Jensen))
	}
	if d.Gaussian > 0 {
		opts = append(opts, wake.WithGaussianDecay(d.Gaussian))
	}
	return opts, nil
}

func (s *Scenario) buildTurbine() (*model.TurbineSpec, error) {
	curve := make([]model.CurvePoint, 0, len(s.Turbine.PowerCurve))
	for _, p := range s.Turbine.PowerCurve {
		curve = append(curve, model.CurvePoint{WindSpeed: p.WindSpeed, PowerKW: p.PowerKW, Ct: p.Ct})
	}
	t, err := model.NewTurbineSpec(s.Turbine.Name, s.Turbine.HubHeight, s.Turbine.RotorDiameter, s.Turbine.RatedPowerKW, curve)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrConfiguration, err)
	}
	return t, nil
}

func (s *Scenario) buildLayout() (*model.Layout, error) {
	pos := make([]model.Position, 0, len(s.Layout.Turbines))
	for _, p := range s.Layout.Turbines {
		pos = append(pos, model.Position{X: p.X, Y: p.Y})
	}
	l, err := model.NewLayout(pos, s.Layout.CRS)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrConfiguration, err)
	}
	return l, nil
}

func (s *Scenario) buildWind() (*model.WindResource, error) {
	w := s.Wind
	switch {
	case w.CSV != "" && w.Synthetic != nil:
		return nil, fmt.Errorf("%w: wind csv and synthetic are mutually exclusive", core.ErrConfiguration)
	case w.CSV != "":
		path := w.CSV
		if !filepath.IsAbs(path) && s.dir != "" {
			path = filepath.Join(s.dir, path)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open wind csv: %w", err)
		}
		defer f.Close()
		source := w.Source
		if source == "" {
			source = filepath.Base(path)
		}
		return ReadWindCSV(f, w.Height, source)
	case w.Synthetic != nil:
		return w.Synthetic.generate(w.Height, w.Source)
	default:
		return nil, fmt.Errorf("%w: no wind data configured", core.ErrConfiguration)
	}
}

func (g *SyntheticFile) generate(height float64, source string) (*model.WindResource, error) {
	if g.Samples <= 0 || g.WeibullA <= 0 || g.WeibullK <= 0 {
		return nil, fmt.Errorf("%w: synthetic wind needs positive samples, weibull_a and weibull_k", core.ErrConfiguration)
	}
	var start time.Time
	if g.Start != "" {
		t, err := time.Parse(time.RFC3339, g.Start)
		if err != nil {
			return nil, fmt.Errorf("%w: synthetic start: %w", core.ErrConfiguration, err)
		}
		start = t
	}
	if source == "" {
		source = "synthetic"
	}

	rng := rand.New(rand.NewPCG(g.Seed, g.Seed^0x9e3779b97f4a7c15))
	samples := make([]model.WindSample, g.Samples)
	for i := range samples {
		p := math.Min(rng.Float64(), 1-1e-12)
		samples[i] = model.WindSample{
			Speed:     weibullQuantile(p, g.WeibullA, g.WeibullK),
			Direction: rng.Float64() * 360,
		}
	}
	return model.NewWindResource(samples, height, source, start, time.Hour)
}

// weibullQuantile inverts the Weibull CDF: a(-ln(1-p))^(1/k).
func weibullQuantile(p, a, k float64) float64 {
	return a * math.Pow(-math.Log1p(-p), 1/k)
}

func (s *Scenario) buildSectors() (*core.SectorManagementConfig, error) {
	if len(s.Sectors) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(s.Sectors))
	for k := range s.Sectors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	raw := make(map[int][]core.Sector, len(s.Sectors))
	for _, k := range keys {
		id, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, fmt.Errorf("%w: sector management key %q is not a turbine id", core.ErrConfiguration, k)
		}
		for _, pair := range s.Sectors[k] {
			if len(pair) != 2 {
				return nil, fmt.Errorf("%w: turbine %d sector %v must be [start, end]", core.ErrConfiguration, id, pair)
			}
			raw[id] = append(raw[id], core.Sector{Start: pair[0], End: pair[1]})
		}
		if _, ok := raw[id]; !ok {
			raw[id] = []core.Sector{}
		}
	}
	return core.NewSectorManagementConfig(raw)
}

func lossValues(m map[string]float64) core.LossValues {
	if len(m) == 0 {
		return nil
	}
	out := make(core.LossValues, len(m))
	for k, v := range m {
		out[core.LossType(k)] = v
	}
	return out
}
