package microburn

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Sample is one measured window: how many completed unit invocations fit
// into it and how long it actually ran. Duration may exceed the nominal
// window by up to one in-flight call.
type Sample struct {
	Hits       int64         `json:"hits"`
	Duration   time.Duration `json:"-"`
	DurationMs float64       `json:"duration_ms"`
}

// newLatencyHistogram tracks per-call latencies from 1µs up to 60s with
// 3 significant figures.
func newLatencyHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(1, 60_000_000, 3)
}

func recordLatency(h *hdrhistogram.Histogram, latency time.Duration) {
	us := latency.Microseconds()
	if us < h.LowestTrackableValue() {
		us = h.LowestTrackableValue()
	}
	if us > h.HighestTrackableValue() {
		us = h.HighestTrackableValue()
	}
	_ = h.RecordValue(us)
}

// sampleUnit runs one unit's full sampling phase: an untimed probe to pick
// the invoker, then runsPerUnit measured windows preceded by a warmup window
// when warmup is enabled. The first recorded sample is split off as the
// warmup sample. Per-call latencies from measured windows go into hist.
func (r *Runner) sampleUnit(ctx context.Context, u *unit, window time.Duration, hist *hdrhistogram.Histogram, opts RunOptions) ([]Sample, *Sample, error) {
	call, err := resolveCall(u.fn)
	if err != nil {
		return nil, nil, fmt.Errorf("unit %q: %w", u.name, err)
	}

	warm := r.warmupTime > 0
	total := r.runsPerUnit
	if warm {
		total++
	}

	var samples []Sample
	for i := 0; i < total; i++ {
		if err := r.interrupted(ctx); err != nil {
			return nil, nil, err
		}
		// Scheduling point between windows so an Abort from another
		// goroutine is observed even when the unit never yields.
		runtime.Gosched()

		win := window
		timed := true
		if warm && i == 0 {
			win = r.warmupTime
			timed = false
		}

		s, closed, err := r.runWindow(ctx, call, win, timed, hist)
		if err != nil {
			return nil, nil, fmt.Errorf("unit %q: %w", u.name, err)
		}
		if !closed {
			// Window abandoned mid-flight; the next iteration's
			// cancellation check (or the runner's final check)
			// surfaces the abort.
			continue
		}
		samples = append(samples, s)
		if opts.OnSample != nil {
			opts.OnSample(u.name, i, total, s)
		}
	}

	var warmup *Sample
	if warm && len(samples) > 0 {
		w := samples[0]
		warmup = &w
		samples = samples[1:]
	}
	return samples, warmup, nil
}

// runWindow executes a single sample window. The cancellation flag is the
// loop's continuation condition: an abort observed between calls abandons
// the window without recording a sample (closed=false). The window closes
// once elapsed time reaches the nominal duration, checked after every call
// rather than by a timer, so the recorded duration can overrun by at most
// one call.
func (r *Runner) runWindow(ctx context.Context, call callFunc, window time.Duration, timed bool, hist *hdrhistogram.Histogram) (Sample, bool, error) {
	start := time.Now()
	var hits int64
	for !r.aborted.Load() && ctx.Err() == nil {
		callStart := time.Now()
		if err := call(); err != nil {
			return Sample{}, false, err
		}
		hits++
		if timed && hist != nil {
			recordLatency(hist, time.Since(callStart))
		}
		if elapsed := time.Since(start); elapsed >= window {
			return Sample{
				Hits:       hits,
				Duration:   elapsed,
				DurationMs: float64(elapsed) / float64(time.Millisecond),
			}, true, nil
		}
	}
	return Sample{}, false, nil
}
