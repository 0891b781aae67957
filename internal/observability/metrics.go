package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes recorded by YieldCollector.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// FarmMetrics are the farm-level figures exported after a run is finalized.
type FarmMetrics struct {
	AEPGWh            float64
	GrossAEPGWh       float64
	WakeLossPercent   float64
	SectorLossPercent float64
	CapacityFactor    float64
}

// YieldCollector bundles Prometheus metrics for yield assessment runs.
type YieldCollector struct {
	gatherer prometheus.Gatherer

	Runs           *prometheus.CounterVec
	StageDurations *prometheus.HistogramVec

	FarmAEP        prometheus.Gauge
	FarmGrossAEP   prometheus.Gauge
	WakeLoss       prometheus.Gauge
	SectorLoss     prometheus.Gauge
	CapacityFactor prometheus.Gauge
	TurbineNet     *prometheus.GaugeVec
}

// NewYieldCollector registers yield metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewYieldCollector(reg prometheus.Registerer) (*YieldCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "windyield_runs_total",
		Help: "Total number of finalized or failed yield runs, labeled by outcome.",
	}, []string{"outcome"}), "windyield_runs_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "windyield_stage_duration_seconds",
		Help:    "Duration of orchestrator stages in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	}, []string{"stage"}), "windyield_stage_duration_seconds")
	if err != nil {
		return nil, err
	}

	gauge := func(name, help string) (prometheus.Gauge, error) {
		return registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help}), name)
	}
	aep, err := gauge("windyield_farm_aep_gwh", "Net farm annual energy production in GWh.")
	if err != nil {
		return nil, err
	}
	gross, err := gauge("windyield_farm_gross_aep_gwh", "Ideal farm annual energy production in GWh.")
	if err != nil {
		return nil, err
	}
	wake, err := gauge("windyield_wake_loss_percent", "Farm wake loss as a percentage of ideal production.")
	if err != nil {
		return nil, err
	}
	sector, err := gauge("windyield_sector_loss_percent", "Farm sector management loss as a percentage of ideal production.")
	if err != nil {
		return nil, err
	}
	cf, err := gauge("windyield_capacity_factor", "Farm net capacity factor in [0, 1].")
	if err != nil {
		return nil, err
	}

	turbineNet, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "windyield_turbine_net_gwh",
		Help: "Net annual energy production per turbine in GWh.",
	}, []string{"turbine"}), "windyield_turbine_net_gwh")
	if err != nil {
		return nil, err
	}

	return &YieldCollector{
		gatherer:       gatherer,
		Runs:           runs,
		StageDurations: durations,
		FarmAEP:        aep,
		FarmGrossAEP:   gross,
		WakeLoss:       wake,
		SectorLoss:     sector,
		CapacityFactor: cf,
		TurbineNet:     turbineNet,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *YieldCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveStage records how long an orchestrator stage took.
func (c *YieldCollector) ObserveStage(stage string, d time.Duration) {
	if c == nil || c.StageDurations == nil {
		return
	}
	c.StageDurations.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRun counts a run outcome.
func (c *YieldCollector) RecordRun(outcome string) {
	if c == nil || c.Runs == nil {
		return
	}
	c.Runs.WithLabelValues(outcome).Inc()
}

// SetFarmMetrics publishes farm-level results.
func (c *YieldCollector) SetFarmMetrics(m FarmMetrics) {
	if c == nil {
		return
	}
	if c.FarmAEP != nil {
		c.FarmAEP.Set(m.AEPGWh)
	}
	if c.FarmGrossAEP != nil {
		c.FarmGrossAEP.Set(m.GrossAEPGWh)
	}
	if c.WakeLoss != nil {
		c.WakeLoss.Set(m.WakeLossPercent)
	}
	if c.SectorLoss != nil {
		c.SectorLoss.Set(m.SectorLossPercent)
	}
	if c.CapacityFactor != nil {
		c.CapacityFactor.Set(m.CapacityFactor)
	}
}

// SetTurbineNet publishes the net production of one turbine.
func (c *YieldCollector) SetTurbineNet(turbineID int, gwh float64) {
	if c == nil || c.TurbineNet == nil {
		return
	}
	c.TurbineNet.WithLabelValues(strconv.Itoa(turbineID)).Set(gwh)
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
