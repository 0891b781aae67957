package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/signalsfoundry/windfarm-yield/internal/config"
	"github.com/signalsfoundry/windfarm-yield/internal/logging"
	"github.com/signalsfoundry/windfarm-yield/internal/observability"
	"github.com/signalsfoundry/windfarm-yield/internal/report"
	"github.com/signalsfoundry/windfarm-yield/internal/site"
	"github.com/signalsfoundry/windfarm-yield/kb"
	"github.com/signalsfoundry/windfarm-yield/wake"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

// options are the resolved command-line settings for one run.
type options struct {
	cfg           config.Config
	breakdownPath string
	year          int
	places        int32
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	var (
		envFile       string
		scenarioPath  string
		wakeModel     string
		outputPath    string
		breakdownPath string
		metricsAddr   string
		year          int
		places        int
	)

	cmd := &cobra.Command{
		Use:   "windyield",
		Short: "Wind farm annual energy production and loss decomposition",
		Long: `windyield runs a wake simulation for a wind farm scenario and reports
annual energy production per turbine with wake, sector management and
uniform losses broken out.

Environment Variables:
  WINDYIELD_SCENARIO           Scenario file (YAML or JSON)
  WINDYIELD_WAKE_MODEL         Wake model override (NOJ, BastankhahGaussian)
  WINDYIELD_OUTPUT             CSV output path for the production table
  WINDYIELD_METRICS_ADDR       Address for the Prometheus /metrics endpoint
  WINDYIELD_PARALLEL_VARIANTS  Simulate wake and no-wake variants in parallel
  WINDYIELD_TIME_SERIES        Allow time-series accounting
  WINDYIELD_TRACING_ENABLED    Export OpenTelemetry spans (stdout or otlp)
  WINDYIELD_OTLP_ENDPOINT      OTLP collector address`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var envFiles []string
			if envFile != "" {
				envFiles = []string{envFile}
			}
			cfg, err := config.Load(envFiles...)
			if err != nil {
				return err
			}
			if scenarioPath != "" {
				cfg.ScenarioPath = scenarioPath
			}
			if wakeModel != "" {
				m, err := wake.ParseModel(wakeModel)
				if err != nil {
					return err
				}
				cfg.WakeModel = &m
			}
			if outputPath != "" {
				cfg.OutputPath = outputPath
			}
			if metricsAddr != "" {
				cfg.MetricsAddr = metricsAddr
			}
			if cfg.ScenarioPath == "" {
				return fmt.Errorf("no scenario given: use --scenario or %s", config.EnvScenario)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, options{
				cfg:           cfg,
				breakdownPath: breakdownPath,
				year:          year,
				places:        int32(places),
			}, stdout)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&envFile, "env-file", "", "Optional .env file (default .env)")
	flags.StringVarP(&scenarioPath, "scenario", "s", "", "Scenario file (overrides "+config.EnvScenario+")")
	flags.StringVar(&wakeModel, "wake-model", "", "Wake model (overrides scenario and "+config.EnvWakeModel+")")
	flags.StringVarP(&outputPath, "output", "o", "", "Write the production table as CSV to this path")
	flags.StringVar(&breakdownPath, "breakdown", "", "Write the loss breakdown as CSV to this path")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	flags.IntVar(&year, "year", 0, "Restrict the analysis to one calendar year")
	flags.IntVar(&places, "places", int(report.DefaultPlaces), "Decimal places in reported values")
	return cmd
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	cfg := opts.cfg
	log := logging.New(cfg.Log)

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		log.Warn(ctx, "tracing disabled", logging.Err(err))
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewYieldCollector(nil)
	if err != nil {
		return fmt.Errorf("metrics collector: %w", err)
	}
	metricsSrv := serveMetrics(cfg.MetricsAddr, collector, log)
	defer func() {
		if metricsSrv == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	sc, err := config.LoadScenario(cfg.ScenarioPath)
	if err != nil {
		return err
	}
	spec, err := sc.Build()
	if err != nil {
		return err
	}
	if opts.year != 0 {
		spec.Inputs.AnalysisYear = opts.year
	}
	spec.Inputs.Capabilities = cfg.Capabilities(spec.Inputs.Capabilities)
	wakeModel := spec.WakeModel
	if cfg.WakeModel != nil {
		wakeModel = *cfg.WakeModel
	}

	siteCfg, err := site.NewSiteConfiguration(spec.Inputs)
	if err != nil {
		return err
	}
	for _, w := range siteCfg.Warnings() {
		log.Warn(ctx, "site configuration warning", logging.String("warning", w))
	}

	archive := kb.NewKnowledgeBase()
	unsubscribe := archive.Subscribe(func(e kb.Event) {
		log.Info(ctx, "run archived",
			logging.String("run_id", e.RunID),
			logging.String("site", e.Site),
			logging.String("wake_model", e.WakeModel),
			logging.Float64("aep_gwh", e.AEPGWh),
		)
	})
	defer unsubscribe()

	engine := wake.NewEngine(spec.Engine...)
	orch := site.NewOrchestrator(engine, log,
		site.WithMetricsRecorder(collector),
		site.WithArchiver(archive),
	)

	if err := orch.Configure(siteCfg); err != nil {
		return err
	}
	if err := orch.RunSimulation(ctx, wakeModel); err != nil {
		return err
	}
	if err := orch.ApplyLosses(ctx, spec.Losses); err != nil {
		return err
	}
	res, err := orch.CalculateProduction(ctx)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		log.Warn(ctx, "data consistency warning", logging.String("warning", w.String()))
	}

	table := report.BuildTable(res)
	if err := report.WriteText(stdout, table, opts.places); err != nil {
		return err
	}
	if cfg.OutputPath != "" {
		if err := writeFile(cfg.OutputPath, func(w io.Writer) error {
			return report.WriteCSV(w, table, opts.places)
		}); err != nil {
			return err
		}
		log.Info(ctx, "wrote production table", logging.String("path", cfg.OutputPath))
	}
	if opts.breakdownPath != "" {
		if err := writeFile(opts.breakdownPath, func(w io.Writer) error {
			return report.WriteBreakdownCSV(w, res.LossBreakdown, opts.places)
		}); err != nil {
			return err
		}
		log.Info(ctx, "wrote loss breakdown", logging.String("path", opts.breakdownPath))
	}
	return nil
}

func writeFile(path string, fn func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(f)
}

func serveMetrics(addr string, collector *observability.YieldCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
