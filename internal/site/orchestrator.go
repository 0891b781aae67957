package site

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/windfarm-yield/core"
	"github.com/signalsfoundry/windfarm-yield/internal/logging"
	"github.com/signalsfoundry/windfarm-yield/internal/observability"
	"github.com/signalsfoundry/windfarm-yield/model"
	"github.com/signalsfoundry/windfarm-yield/wake"
)

// State is the orchestrator's position in the analysis lifecycle.
type State int

const (
	StateUnconfigured State = iota
	StateConfigured
	StateSimulated
	StateAccounted
	StateLossesApplied
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConfigured:
		return "configured"
	case StateSimulated:
		return "simulated"
	case StateAccounted:
		return "accounted"
	case StateLossesApplied:
		return "losses_applied"
	case StateFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// LossOptions selects the uniform loss values for ApplyLosses. Precedence is
// Overrides > Configured > built-in defaults. A key present with value 0
// disables that loss.
type LossOptions struct {
	Configured core.LossValues
	Overrides  core.LossValues
}

// MetricsRecorder receives run and stage measurements.
type MetricsRecorder interface {
	ObserveStage(stage string, d time.Duration)
	RecordRun(outcome string)
	SetFarmMetrics(m observability.FarmMetrics)
	SetTurbineNet(turbineID int, gwh float64)
}

// Archiver stores finalized results.
type Archiver interface {
	Archive(res *WindSimulationResult) error
}

// OrchestratorState is everything one run produces. It never holds the
// site inputs themselves.
type OrchestratorState struct {
	Stage     State
	RunID     string
	WakeModel wake.Model
	Mode      core.AccountingMode

	accounted *core.Ledger
	final     *core.Ledger
	cascade   *core.LossCascade
	computed  []core.LossCategory
	snapshots []StageSnapshot
	warnings  []core.DataConsistencyWarning
	stats     []core.SectorStatistics
	result    *WindSimulationResult
}

// Orchestrator sequences configuration, simulation, loss application and
// result queries for one wind site.
type Orchestrator struct {
	mu sync.Mutex

	sim     wake.Simulator
	simCaps wake.Capabilities
	log     logging.Logger
	metrics MetricsRecorder
	archive Archiver
	now     func() time.Time

	cfg   *SiteConfiguration
	caps  wake.Capabilities
	state *OrchestratorState
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithArchiver stores every finalized result.
func WithArchiver(a Archiver) Option {
	return func(o *Orchestrator) { o.archive = a }
}

// WithClock overrides the time source used for stage durations.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// NewOrchestrator wraps a wake simulator. Its capabilities are read once
// here.
func NewOrchestrator(sim wake.Simulator, log logging.Logger, opts ...Option) *Orchestrator {
	if log == nil {
		log = logging.Noop()
	}
	o := &Orchestrator{
		sim:   sim,
		log:   log,
		now:   time.Now,
		state: &OrchestratorState{Stage: StateUnconfigured},
	}
	if sim != nil {
		o.simCaps = sim.Capabilities()
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Configure installs the site inputs. It does no computation and discards
// any previous run.
func (o *Orchestrator) Configure(cfg *SiteConfiguration) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil site configuration", core.ErrConfiguration)
	}
	if o.sim == nil {
		return fmt.Errorf("%w: no wake simulator", core.ErrConfiguration)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cfg = cfg
	o.caps = cfg.effectiveCapabilities(o.simCaps)
	o.state = &OrchestratorState{Stage: StateConfigured}
	for _, w := range cfg.Warnings() {
		o.log.Warn(context.Background(), "site configuration warning", logging.String("site", cfg.Name()), logging.String("warning", w))
	}
	return nil
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Stage
}

// Capabilities returns the effective capabilities after configuration.
func (o *Orchestrator) Capabilities() wake.Capabilities {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.caps
}

// RunSimulation runs the no-wake baseline and the selected wake model,
// then derives wake and sector losses. Each call starts a fresh run with
// its own ledger.
func (o *Orchestrator) RunSimulation(ctx context.Context, m wake.Model) (err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cfg == nil {
		return fmt.Errorf("%w: run_simulation before configure", core.ErrSequence)
	}
	if err := o.caps.Require(m); err != nil {
		return fmt.Errorf("%w: %w", core.ErrConfiguration, err)
	}

	ctx, log := logging.WithRunLogger(logging.ContextWithRunID(ctx, logging.NewRunID()), o.log)
	runID := logging.RunIDFromContext(ctx)
	ctx, span := observability.StartSpan(ctx, "run_simulation",
		attribute.String("wake_model", m.String()),
		attribute.Int("turbines", o.cfg.Layout().NTurbines()),
		attribute.Int("samples", o.cfg.Resource().Len()),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			o.recordRun(observability.OutcomeFailure)
		}
		span.End()
	}()
	start := o.now()

	noWake, withWake, err := o.simulateVariants(ctx, m)
	if err != nil {
		log.Error(ctx, "wake simulation failed", logging.Err(err))
		return err
	}
	st := &OrchestratorState{Stage: StateSimulated, RunID: runID, WakeModel: m}
	log.Info(ctx, "stage complete", logging.String("stage", st.Stage.String()), logging.String("wake_model", m.String()))

	if err := o.account(ctx, log, st, noWake, withWake); err != nil {
		return err
	}
	st.Stage = StateAccounted
	o.state = st
	o.observe("run_simulation", start)
	log.Info(ctx, "stage complete",
		logging.String("stage", st.Stage.String()),
		logging.String("mode", string(st.Mode)),
		logging.Int("warnings", len(st.warnings)),
		logging.Duration("elapsed", o.now().Sub(start)),
	)
	return nil
}

func (o *Orchestrator) simulateVariants(ctx context.Context, m wake.Model) (*model.ProductionSeries, *model.ProductionSeries, error) {
	req := wake.Request{
		Layout:   o.cfg.Layout(),
		Turbine:  o.cfg.Turbine(),
		Resource: o.cfg.Resource(),
	}
	var noWake, withWake *model.ProductionSeries
	run := func(ctx context.Context, variant wake.Model, out **model.ProductionSeries) error {
		r := req
		r.Model = variant
		s, err := o.sim.Simulate(ctx, r)
		if err != nil {
			return fmt.Errorf("simulate %s: %w", variant, err)
		}
		*out = s
		return nil
	}

	if o.caps.ParallelVariants {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return run(gctx, wake.ModelNone, &noWake) })
		g.Go(func() error { return run(gctx, m, &withWake) })
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}
	} else {
		if err := run(ctx, wake.ModelNone, &noWake); err != nil {
			return nil, nil, err
		}
		if err := run(ctx, m, &withWake); err != nil {
			return nil, nil, err
		}
	}

	n, steps := o.cfg.Layout().NTurbines(), o.cfg.Resource().Len()
	for _, s := range []*model.ProductionSeries{noWake, withWake} {
		if s.Turbines() != n || s.Steps() != steps {
			return nil, nil, fmt.Errorf("%w: %s series is %dx%d, want %dx%d", core.ErrShapeMismatch, s.Variant, s.Turbines(), s.Steps(), n, steps)
		}
	}
	return noWake, withWake, nil
}

// account fills st with the wake and sector ledger.
func (o *Orchestrator) account(ctx context.Context, log logging.Logger, st *OrchestratorState, noWake, withWake *model.ProductionSeries) error {
	_, span := observability.StartSpan(ctx, "account_losses")
	defer span.End()

	hours := o.cfg.Resource().HoursPerSample()
	directions := o.cfg.Resource().Directions()
	sectors := o.cfg.Sectors()

	ideal := core.AnnualEnergyPerTurbine(noWake, hours)

	var curt core.CurtailmentResult
	var err error
	if o.caps.TimeSeries {
		curt, err = core.ComputeSectorCurtailment(sectors, directions, withWake, hours)
	} else {
		curt, err = core.ComputeSectorCurtailmentFromDistribution(sectors, directions, core.AnnualEnergyPerTurbine(withWake, hours))
	}
	if err != nil {
		return err
	}

	wakeLoss, warnings, err := core.ExtractWakeLoss(ideal, curt.WithWake)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		log.Warn(ctx, "data consistency warning", logging.Int("turbine", w.TurbineID), logging.String("detail", w.Message), logging.Float64("magnitude_gwh", w.Magnitude))
	}

	ledger, err := core.NewLedger(ideal, wakeLoss, curt.SectorLoss)
	if err != nil {
		return err
	}
	if err := ledger.Reconcile(); err != nil {
		return err
	}
	for _, e := range ledger.Entries() {
		log.Debug(ctx, "turbine accounted",
			logging.Int("turbine", e.TurbineID),
			logging.Float64("ideal_gwh", e.Ideal),
			logging.Float64("wake_loss_gwh", e.WakeLoss),
			logging.Float64("sector_loss_gwh", e.SectorLoss),
		)
	}

	tot := ledger.Totals()
	wakeCat, err := core.NewLossCategory(core.LossWake, clampFraction(tot.WakeLoss, tot.Ideal), true, "")
	if err != nil {
		return err
	}
	sectorCat, err := core.NewLossCategory(core.LossSectorManagement, clampFraction(tot.SectorLoss, tot.Ideal), true, "")
	if err != nil {
		return err
	}

	st.Mode = curt.Mode
	st.accounted = ledger
	st.computed = []core.LossCategory{wakeCat, sectorCat}
	st.warnings = warnings
	st.stats = core.ComputeSectorStatistics(sectors, directions, hours)
	st.snapshots = []StageSnapshot{
		newSnapshot(StageIdeal, ideal),
		newSnapshot(StageWithWake, curt.WithWake),
		newSnapshot(StageWithWakeAndSector, curt.Adjusted),
	}
	return nil
}

// ApplyLosses builds the uniform loss cascade and derives other losses and
// net production. Calling it again replaces only those columns.
func (o *Orchestrator) ApplyLosses(ctx context.Context, opts LossOptions) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := o.state
	if st.Stage != StateAccounted && st.Stage != StateLossesApplied {
		return fmt.Errorf("%w: apply_losses in state %s", core.ErrSequence, st.Stage)
	}
	cascade, err := core.ResolveLossCascade(opts.Configured, opts.Overrides)
	if err != nil {
		return err
	}

	ctx, log := logging.WithRunLogger(logging.ContextWithRunID(ctx, st.RunID), o.log)
	ctx, span := observability.StartSpan(ctx, "apply_losses", attribute.Float64("total_loss_factor", cascade.TotalLossFactor()))
	defer span.End()
	start := o.now()

	final := st.accounted.WithUniformLosses(cascade)
	if err := final.Reconcile(); err != nil {
		span.RecordError(err)
		return err
	}
	st.final = final
	st.cascade = cascade
	st.snapshots = append(st.snapshots[:3:3], newSnapshot(StageFinal, final.Column(func(e core.TurbineLedger) float64 { return e.Net })))
	st.Stage = StateLossesApplied

	o.observe("apply_losses", start)
	log.Info(ctx, "stage complete",
		logging.String("stage", st.Stage.String()),
		logging.Float64("total_loss_percent", cascade.TotalLossPercentage()),
		logging.Duration("elapsed", o.now().Sub(start)),
	)
	return nil
}

// CalculateProduction finalizes the run and returns its result. Without a
// prior ApplyLosses no uniform losses are included. Repeated calls return
// the same result.
func (o *Orchestrator) CalculateProduction(ctx context.Context) (*WindSimulationResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := o.state
	switch st.Stage {
	case StateFinalized:
		return st.result, nil
	case StateAccounted, StateLossesApplied:
	default:
		return nil, fmt.Errorf("%w: calculate_production before run_simulation", core.ErrSequence)
	}

	ctx, log := logging.WithRunLogger(logging.ContextWithRunID(ctx, st.RunID), o.log)
	ctx, span := observability.StartSpan(ctx, "calculate_production")
	defer span.End()
	start := o.now()

	res, err := o.buildResult(st)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.recordRun(observability.OutcomeFailure)
		return nil, err
	}
	st.result = res
	st.Stage = StateFinalized

	if o.archive != nil {
		if err := o.archive.Archive(res); err != nil {
			log.Warn(ctx, "archive result failed", logging.Err(err))
		}
	}
	o.publish(res)
	o.observe("calculate_production", start)
	o.recordRun(observability.OutcomeSuccess)
	log.Info(ctx, "run finalized",
		logging.Float64("aep_gwh", res.AEPGWh),
		logging.Float64("gross_aep_gwh", res.GrossAEPGWh),
		logging.Float64("capacity_factor", res.CapacityFactor),
		logging.Duration("elapsed", o.now().Sub(start)),
	)
	return res, nil
}

func (o *Orchestrator) buildResult(st *OrchestratorState) (*WindSimulationResult, error) {
	ledger := st.final
	snapshots := st.snapshots
	applied := ledger != nil
	if !applied {
		ledger = st.accounted
		snapshots = append(snapshots[:3:3], newSnapshot(StageFinal, ledger.Column(func(e core.TurbineLedger) float64 { return e.Net })))
	}

	tot := ledger.Totals()
	capacity := o.cfg.CapacityMW()
	warnings := append([]core.DataConsistencyWarning(nil), st.warnings...)
	cf, w := capacityFactor(tot.Net, capacity)
	if w != nil {
		warnings = append(warnings, *w)
	}

	factor := 1.0
	if st.cascade != nil {
		factor = st.cascade.TotalLossFactor()
	}
	var flh float64
	if capacity > 0 {
		flh = tot.Net * 1000 / capacity
	}

	resource := o.cfg.Resource()
	res := &WindSimulationResult{
		RunID:             st.RunID,
		WakeModel:         st.WakeModel,
		Mode:              st.Mode,
		AEPGWh:            tot.Net,
		GrossAEPGWh:       tot.Ideal,
		WakeLossPercent:   core.Percent(tot.WakeLoss, tot.Ideal),
		SectorLossPercent: core.Percent(tot.SectorLoss, tot.Ideal),
		OtherLossPercent:  core.Percent(tot.OtherLoss, tot.Ideal),
		CapacityFactor:    cf,
		TotalLossFactor:   factor,
		LossesApplied:     applied,
		Ledger:            ledger,
		RatedPowerMW:      o.cfg.Turbine().RatedPowerKW / 1000,
		LossBreakdown:     core.LossBreakdown(st.computed, st.cascade),
		SectorStatistics:  st.stats,
		Snapshots:         snapshots,
		Warnings:          warnings,
		Summary: FarmSummary{
			Name:          o.cfg.Name(),
			NTurbines:     o.cfg.Layout().NTurbines(),
			TurbineName:   o.cfg.Turbine().Name,
			CapacityMW:    capacity,
			HubHeight:     o.cfg.Turbine().HubHeight,
			RotorDiameter: o.cfg.Turbine().RotorDiameter,
			MeanWindSpeed: resource.MeanSpeed(),
			Samples:       resource.Len(),
			Hours:         o.cfg.Period().Hours(),
			WakeModel:     st.WakeModel,
			FullLoadHours: flh,
		},
	}
	if err := res.Reconcile(); err != nil {
		return nil, err
	}
	return res, nil
}

// Result returns the finalized result, if any.
func (o *Orchestrator) Result() (*WindSimulationResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.result == nil {
		return nil, fmt.Errorf("%w: run not finalized", core.ErrSequence)
	}
	return o.state.result, nil
}

func (o *Orchestrator) publish(res *WindSimulationResult) {
	if o.metrics == nil {
		return
	}
	o.metrics.SetFarmMetrics(observability.FarmMetrics{
		AEPGWh:            res.AEPGWh,
		GrossAEPGWh:       res.GrossAEPGWh,
		WakeLossPercent:   res.WakeLossPercent,
		SectorLossPercent: res.SectorLossPercent,
		CapacityFactor:    res.CapacityFactor,
	})
	for _, e := range res.Ledger.Entries() {
		o.metrics.SetTurbineNet(e.TurbineID, e.Net)
	}
}

func (o *Orchestrator) observe(stage string, start time.Time) {
	if o.metrics != nil {
		o.metrics.ObserveStage(stage, o.now().Sub(start))
	}
}

func (o *Orchestrator) recordRun(outcome string) {
	if o.metrics != nil {
		o.metrics.RecordRun(outcome)
	}
}

// clampFraction returns part/whole limited to [0, 1].
func clampFraction(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	f := part / whole
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
