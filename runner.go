package microburn

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Defaults applied by New.
const (
	DefaultWarmupTime  = 50 * time.Millisecond
	DefaultMaxUnitTime = 5 * time.Second
	DefaultRunsPerUnit = 10
)

// Runner owns the unit registry, the sampling configuration, and the
// cancellation flag. Units execute strictly sequentially in registration
// order. A Runner must not be used for two concurrent Run calls.
type Runner struct {
	units       []*unit
	warmupTime  time.Duration
	maxUnitTime time.Duration
	runsPerUnit int
	aborted     atomic.Bool
}

// RunOptions configure one Run invocation. All callbacks are invoked from
// the Run goroutine.
type RunOptions struct {
	// OnUnitStart fires before a unit's prepare, once per unit.
	OnUnitStart func(name string)
	// OnSample fires after each closed sample window, warmup included.
	// index counts chronological windows; total is the window count for
	// the unit.
	OnSample func(unit string, index, total int, s Sample)
	// OnCycle fires once per completed unit, after teardown and
	// aggregation, in result order.
	OnCycle func(UnitResult)
}

// New returns a Runner with default sampling parameters.
func New() *Runner {
	return &Runner{
		warmupTime:  DefaultWarmupTime,
		maxUnitTime: DefaultMaxUnitTime,
		runsPerUnit: DefaultRunsPerUnit,
	}
}

// Add registers a unit. spec is either a bare work function (func(),
// func() error, or func() any) or a UnitOptions value carrying prepare and
// teardown hooks. A func() any unit may return an error channel to signal
// asynchronous completion; whether it does is detected once, by a single
// untimed probe call, before the unit's timed sampling starts.
//
// Add performs no validation; an unusable work function surfaces as an
// error when Run reaches the unit.
func (r *Runner) Add(name string, spec any) *Runner {
	r.units = append(r.units, newUnit(name, spec))
	return r
}

// Abort requests cancellation of the in-flight run. It is idempotent, safe
// to call from any goroutine, and observed cooperatively: the run stops at
// the next checkpoint, at worst after the current sample window closes.
func (r *Runner) Abort() *Runner {
	r.aborted.Store(true)
	return r
}

// SetWarmupTime sets the warmup window duration. A non-positive value
// disables the warmup sample. Takes effect on the next Run call.
func (r *Runner) SetWarmupTime(d time.Duration) *Runner {
	if d < 0 {
		d = 0
	}
	r.warmupTime = d
	return r
}

// WarmupTime reports the configured warmup window duration.
func (r *Runner) WarmupTime() time.Duration { return r.warmupTime }

// SetMaxUnitTime sets the total measured time budget per unit. The budget is
// divided evenly across RunsPerUnit sample windows. Takes effect on the next
// Run call.
func (r *Runner) SetMaxUnitTime(d time.Duration) *Runner {
	r.maxUnitTime = d
	return r
}

// MaxUnitTime reports the configured per-unit time budget.
func (r *Runner) MaxUnitTime() time.Duration { return r.maxUnitTime }

// SetRunsPerUnit sets how many sample windows each unit's budget is divided
// into, clamped to at least 1. Takes effect on the next Run call.
func (r *Runner) SetRunsPerUnit(n int) *Runner {
	if n < 1 {
		n = 1
	}
	r.runsPerUnit = n
	return r
}

// RunsPerUnit reports the configured sample count per unit.
func (r *Runner) RunsPerUnit() int { return r.runsPerUnit }

// SampleWindow reports the nominal duration of one measured sample window.
func (r *Runner) SampleWindow() time.Duration {
	return r.maxUnitTime / time.Duration(r.runsPerUnit)
}

// Run executes every registered unit in order and returns their results.
// The cancellation flag is reset first, so an Abort from a previous run
// does not leak in. For each unit: prepare (untimed), sampling, teardown
// (untimed), aggregation, OnCycle.
//
// Run fails with ErrAborted as soon as an Abort is observed, with ctx.Err()
// when the context is done, and with the unit's own error when a prepare,
// work, or teardown function fails. Failures are not caught or retried; no
// partial result list is returned, though results already delivered through
// OnCycle remain with the caller.
func (r *Runner) Run(ctx context.Context, opts RunOptions) ([]UnitResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	r.aborted.Store(false)

	window := r.SampleWindow()
	results := make([]UnitResult, 0, len(r.units))
	for _, u := range r.units {
		if err := r.interrupted(ctx); err != nil {
			return nil, err
		}
		if opts.OnUnitStart != nil {
			opts.OnUnitStart(u.name)
		}

		if u.prepare != nil {
			if err := u.prepare(); err != nil {
				return nil, fmt.Errorf("unit %q: prepare: %w", u.name, err)
			}
		}

		hist := newLatencyHistogram()
		samples, warmup, err := r.sampleUnit(ctx, u, window, hist, opts)
		if err != nil {
			return nil, err
		}

		if u.teardown != nil {
			if err := u.teardown(); err != nil {
				return nil, fmt.Errorf("unit %q: teardown: %w", u.name, err)
			}
		}

		// A mid-window abort can leave the sampling loop without an
		// error; surface it before aggregating.
		if err := r.interrupted(ctx); err != nil {
			return nil, err
		}

		res := UnitResult{
			Name:    u.name,
			Totals:  aggregate(samples, window),
			Samples: samples,
			Warmup:  warmup,
			Latency: latencyStats(hist),
		}
		if opts.OnCycle != nil {
			opts.OnCycle(res)
		}
		results = append(results, res)
	}
	return results, nil
}

// interrupted is the cancellation checkpoint shared by the run loop and the
// sampling engine.
func (r *Runner) interrupted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.aborted.Load() {
		return ErrAborted
	}
	return nil
}
