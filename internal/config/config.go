// Package config loads process settings from the environment and site
// scenarios from YAML or JSON files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/signalsfoundry/windfarm-yield/internal/logging"
	"github.com/signalsfoundry/windfarm-yield/internal/observability"
	"github.com/signalsfoundry/windfarm-yield/wake"
)

// Environment variable names.
const (
	EnvScenario         = "WINDYIELD_SCENARIO"
	EnvWakeModel        = "WINDYIELD_WAKE_MODEL"
	EnvOutput           = "WINDYIELD_OUTPUT"
	EnvMetricsAddr      = "WINDYIELD_METRICS_ADDR"
	EnvParallelVariants = "WINDYIELD_PARALLEL_VARIANTS"
	EnvTimeSeries       = "WINDYIELD_TIME_SERIES"

	EnvTracingEnabled     = "WINDYIELD_TRACING_ENABLED"
	EnvTracingExporter    = "WINDYIELD_TRACING_EXPORTER"
	EnvTracingService     = "WINDYIELD_TRACING_SERVICE_NAME"
	EnvTracingSampleRatio = "WINDYIELD_TRACING_SAMPLE_RATIO"
	EnvOTLPEndpoint       = "WINDYIELD_OTLP_ENDPOINT"
)

// Config is the resolved process configuration.
type Config struct {
	ScenarioPath string
	// WakeModel is set only when the environment names one; scenario files
	// may also choose a model.
	WakeModel        *wake.Model
	OutputPath       string
	MetricsAddr      string
	ParallelVariants bool
	TimeSeries       bool

	Log     logging.Config
	Tracing observability.TracingConfig
}

// Load reads an optional .env file set (defaulting to ".env") and then the
// process environment. Missing .env files are ignored. Invalid values fail
// here rather than at run time.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Config{
		ScenarioPath: os.Getenv(EnvScenario),
		OutputPath:   os.Getenv(EnvOutput),
		MetricsAddr:  os.Getenv(EnvMetricsAddr),
		Log: logging.Config{
			Level:  os.Getenv("LOG_LEVEL"),
			Format: os.Getenv("LOG_FORMAT"),
		},
	}

	if raw := strings.TrimSpace(os.Getenv(EnvWakeModel)); raw != "" {
		m, err := wake.ParseModel(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvWakeModel, err)
		}
		cfg.WakeModel = &m
	}

	var err error
	if cfg.ParallelVariants, err = boolEnv(EnvParallelVariants, true); err != nil {
		return Config{}, err
	}
	if cfg.TimeSeries, err = boolEnv(EnvTimeSeries, true); err != nil {
		return Config{}, err
	}
	if cfg.Tracing, err = tracingFromEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// tracingFromEnv reads the WINDYIELD_TRACING_* keys. Unset values are left
// for observability to default.
func tracingFromEnv() (observability.TracingConfig, error) {
	enabled, err := boolEnv(EnvTracingEnabled, false)
	if err != nil {
		return observability.TracingConfig{}, err
	}
	tc := observability.TracingConfig{
		Enabled:     enabled,
		Exporter:    strings.ToLower(strings.TrimSpace(os.Getenv(EnvTracingExporter))),
		ServiceName: strings.TrimSpace(os.Getenv(EnvTracingService)),
		Endpoint:    strings.TrimSpace(os.Getenv(EnvOTLPEndpoint)),
	}
	if raw := strings.TrimSpace(os.Getenv(EnvTracingSampleRatio)); raw != "" {
		ratio, err := strconv.ParseFloat(raw, 64)
		if err != nil || ratio <= 0 || ratio > 1 {
			return observability.TracingConfig{}, fmt.Errorf("%s: sample ratio %q must be in (0, 1]", EnvTracingSampleRatio, raw)
		}
		tc.SampleRatio = ratio
	}
	return tc, nil
}

// Capabilities merges the process capability flags with an optional
// scenario block. Models are left to the scenario, or to the simulator when
// the scenario names none.
func (c Config) Capabilities(scenario *wake.Capabilities) *wake.Capabilities {
	caps := wake.Capabilities{
		TimeSeries:       c.TimeSeries,
		ParallelVariants: c.ParallelVariants,
	}
	if scenario != nil {
		caps.TimeSeries = caps.TimeSeries && scenario.TimeSeries
		caps.ParallelVariants = caps.ParallelVariants && scenario.ParallelVariants
		caps.Models = append([]wake.Model(nil), scenario.Models...)
	}
	return &caps
}

func boolEnv(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
