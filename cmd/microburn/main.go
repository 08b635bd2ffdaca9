package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/microburn/microburn"
	"github.com/microburn/microburn/internal/baseline"
	"github.com/microburn/microburn/internal/command"
	"github.com/microburn/microburn/internal/config"
	"github.com/microburn/microburn/internal/dashboard"
	"github.com/microburn/microburn/internal/output"
	"github.com/microburn/microburn/internal/threshold"
	"github.com/microburn/microburn/internal/tracing"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	builder, err := command.NewBuilder(ctx, cfg.Shell)
	if err != nil {
		return err
	}

	r := microburn.New().
		SetWarmupTime(cfg.WarmupTime).
		SetMaxUnitTime(cfg.MaxUnitTime).
		SetRunsPerUnit(cfg.Runs)
	for _, uc := range cfg.Units {
		r.Add(uc.Name, builder.Unit(uc))
	}

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		_ = provider.Shutdown(shutdownCtx)
	}()

	var opts microburn.RunOptions

	var dash *dashboard.Dashboard
	var progress *output.ProgressReporter
	if cfg.Dashboard {
		dash, err = dashboard.New(dashboard.RunConfig{
			WarmupTime:  r.WarmupTime(),
			MaxUnitTime: r.MaxUnitTime(),
			RunsPerUnit: r.RunsPerUnit(),
			UnitCount:   len(cfg.Units),
			Shell:       cfg.Shell,
			ConfigFile:  cfg.ConfigFile,
		}, func() { r.Abort() })
		if err != nil {
			return err
		}
		opts.OnUnitStart = dash.UnitStarted
		opts.OnSample = dash.SampleDone
		opts.OnCycle = dash.CycleDone
		dash.Start()
	} else if !cfg.JSONOutput && !cfg.YAMLOutput {
		progress = output.NewProgressReporter(progressInterval, os.Stdout, len(cfg.Units))
		opts.OnUnitStart = progress.UnitStarted
		opts.OnSample = progress.SampleDone
		progress.Start()
	}

	stopUI := func() {
		if progress != nil {
			progress.Stop()
			fmt.Fprintln(os.Stdout)
			progress = nil
		}
		if dash != nil {
			dash.Stop()
			dash = nil
		}
	}
	defer stopUI()

	// The report and the trace share one run id.
	runID := ulid.Make().String()
	tracer := provider.Tracer()
	runCtx, runSpan := tracing.StartRunSpan(ctx, tracer, runID, len(cfg.Units))

	// Units run sequentially so a single in-flight unit span suffices.
	var unitSpan trace.Span
	startUnit := opts.OnUnitStart
	opts.OnUnitStart = func(name string) {
		_, unitSpan = tracing.StartUnitSpan(runCtx, tracer, name)
		if startUnit != nil {
			startUnit(name)
		}
	}
	endUnit := opts.OnCycle
	opts.OnCycle = func(res microburn.UnitResult) {
		if unitSpan != nil {
			tracing.EndUnitSpan(unitSpan, res)
			unitSpan = nil
		}
		if endUnit != nil {
			endUnit(res)
		}
	}

	results, runErr := r.Run(ctx, opts)
	if unitSpan != nil {
		tracing.EndSpan(unitSpan, runErr)
	}
	tracing.EndSpan(runSpan, runErr)

	stopUI()

	if runErr != nil {
		return runErr
	}

	rep := output.NewReport(results, r.WarmupTime(), r.MaxUnitTime(), r.RunsPerUnit())
	rep.ID = runID

	switch {
	case cfg.JSONOutput:
		if err := output.PrintJSONReport(os.Stdout, rep); err != nil {
			return err
		}
	case cfg.YAMLOutput:
		if err := output.PrintYAMLReport(os.Stdout, rep); err != nil {
			return err
		}
	default:
		output.PrintReport(os.Stdout, rep)
	}

	if cfg.SaveBaseline != "" {
		if err := baseline.Save(cfg.SaveBaseline, rep); err != nil {
			return err
		}
	}

	if cfg.BaselineFile != "" {
		if err := compareBaseline(cfg, results); err != nil {
			return err
		}
	}

	if len(cfg.Thresholds) > 0 {
		if err := evaluateThresholds(cfg.Thresholds, results); err != nil {
			return err
		}
	}

	return nil
}

func compareBaseline(cfg *config.Config, results []microburn.UnitResult) error {
	base, err := baseline.Load(cfg.BaselineFile)
	if err != nil {
		return err
	}

	deltas := base.Compare(results)
	if !cfg.JSONOutput && !cfg.YAMLOutput {
		printDeltas(deltas)
	}

	regressions := baseline.Regressions(deltas, cfg.Tolerance)
	if len(regressions) > 0 {
		return fmt.Errorf("%d unit(s) regressed beyond %.1f%% tolerance", len(regressions), cfg.Tolerance)
	}
	return nil
}

func printDeltas(deltas []baseline.Delta) {
	fmt.Fprintln(os.Stdout, "Baseline comparison:")
	for _, d := range deltas {
		if d.Missing {
			fmt.Fprintf(os.Stdout, "  %s: not in baseline\n", d.Name)
			continue
		}
		fmt.Fprintf(os.Stdout, "  %s: %.1f -> %.1f hits/sec (%+.1f%%)\n", d.Name, d.BaselineAvg, d.CurrentAvg, d.ChangePct)
	}
}

func evaluateThresholds(exprs []string, results []microburn.UnitResult) error {
	thresholds, err := threshold.ParseMultiple(exprs)
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range threshold.NewEvaluator(thresholds).Evaluate(results) {
		if !res.Pass {
			failed++
			fmt.Fprintf(os.Stderr, "Threshold failed: %s\n", res.Message)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d threshold check(s) failed", failed)
	}
	return nil
}
