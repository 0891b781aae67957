package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestYieldCollectorRecordsStagesAndRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewYieldCollector(reg)
	if err != nil {
		t.Fatalf("NewYieldCollector: %v", err)
	}

	collector.ObserveStage("run_simulation", 25*time.Millisecond)
	collector.RecordRun(OutcomeSuccess)
	collector.RecordRun(OutcomeSuccess)
	collector.RecordRun(OutcomeFailure)

	if got := testutil.ToFloat64(collector.Runs.WithLabelValues(OutcomeSuccess)); got != 2 {
		t.Fatalf("windyield_runs_total{success} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.Runs.WithLabelValues(OutcomeFailure)); got != 1 {
		t.Fatalf("windyield_runs_total{failure} = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "windyield_stage_duration_seconds", map[string]string{"stage": "run_simulation"}); count != 1 {
		t.Fatalf("windyield_stage_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestYieldCollectorReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewYieldCollector(reg)
	if err != nil {
		t.Fatalf("NewYieldCollector: %v", err)
	}
	second, err := NewYieldCollector(reg)
	if err != nil {
		t.Fatalf("second NewYieldCollector: %v", err)
	}
	second.RecordRun(OutcomeSuccess)
	if got := testutil.ToFloat64(first.Runs.WithLabelValues(OutcomeSuccess)); got != 1 {
		t.Fatalf("shared counter = %v, want 1", got)
	}
}

func TestMetricsHandlerExposesFarmGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewYieldCollector(reg)
	if err != nil {
		t.Fatalf("NewYieldCollector: %v", err)
	}
	collector.SetFarmMetrics(FarmMetrics{AEPGWh: 123.5, GrossAEPGWh: 140, WakeLossPercent: 7.5, SectorLossPercent: 1.25, CapacityFactor: 0.41})
	collector.SetTurbineNet(3, 41.2)

	if got := testutil.ToFloat64(collector.TurbineNet.WithLabelValues("3")); got != 41.2 {
		t.Fatalf("windyield_turbine_net_gwh{turbine=3} = %v, want 41.2", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"windyield_farm_aep_gwh 123.5",
		"windyield_farm_gross_aep_gwh 140",
		"windyield_wake_loss_percent 7.5",
		"windyield_sector_loss_percent 1.25",
		"windyield_capacity_factor 0.41",
		`windyield_turbine_net_gwh{turbine="3"} 41.2`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in /metrics output:\n%s", want, body)
		}
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *YieldCollector
	c.RecordRun(OutcomeSuccess)
	c.ObserveStage("x", time.Second)
	c.SetFarmMetrics(FarmMetrics{})
	c.SetTurbineNet(1, 1)
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
