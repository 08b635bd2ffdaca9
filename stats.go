package microburn

import (
	"math"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Totals summarizes a unit's measured samples as normalized rates.
// Avg and StdDev are in hits per second, scaled from raw hit counts by the
// nominal sample window (not the recorded duration, which may slightly
// overrun). When Runs is zero nothing was measured and both rates are zero.
type Totals struct {
	Runs   int     `json:"runs"`
	Avg    float64 `json:"avg"`
	StdDev float64 `json:"std_dev"`
}

// LatencyStats describes per-call latencies observed during a unit's
// measured windows. Warmup calls are excluded.
type LatencyStats struct {
	Min  time.Duration `json:"-"`
	Max  time.Duration `json:"-"`
	Mean time.Duration `json:"-"`
	P50  time.Duration `json:"-"`
	P90  time.Duration `json:"-"`
	P99  time.Duration `json:"-"`

	// JSON-friendly millisecond fields.
	MinMs  float64 `json:"min_ms"`
	MaxMs  float64 `json:"max_ms"`
	MeanMs float64 `json:"mean_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P90Ms  float64 `json:"p90_ms"`
	P99Ms  float64 `json:"p99_ms"`
}

// UnitResult is the public output for one unit.
type UnitResult struct {
	Name    string       `json:"name"`
	Totals  Totals       `json:"totals"`
	Samples []Sample     `json:"samples"`
	Warmup  *Sample      `json:"warmup,omitempty"`
	Latency LatencyStats `json:"latency"`
}

// aggregate reduces measured samples to mean and population standard
// deviation of hits, converted to hits/second using the nominal window.
func aggregate(samples []Sample, window time.Duration) Totals {
	n := len(samples)
	if n == 0 || window <= 0 {
		return Totals{Runs: n}
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s.Hits)
	}
	mean := sum / float64(n)

	var sq float64
	for _, s := range samples {
		d := float64(s.Hits) - mean
		sq += d * d
	}
	stdDev := math.Sqrt(sq / float64(n))

	scale := float64(time.Second) / float64(window)
	return Totals{
		Runs:   n,
		Avg:    mean * scale,
		StdDev: stdDev * scale,
	}
}

func latencyStats(h *hdrhistogram.Histogram) LatencyStats {
	var ls LatencyStats
	if h == nil || h.TotalCount() == 0 {
		return ls
	}

	ls.Min = time.Duration(h.Min()) * time.Microsecond
	ls.Max = time.Duration(h.Max()) * time.Microsecond
	ls.Mean = time.Duration(h.Mean()) * time.Microsecond
	ls.P50 = time.Duration(h.ValueAtQuantile(50)) * time.Microsecond
	ls.P90 = time.Duration(h.ValueAtQuantile(90)) * time.Microsecond
	ls.P99 = time.Duration(h.ValueAtQuantile(99)) * time.Microsecond

	ls.MinMs = float64(ls.Min) / float64(time.Millisecond)
	ls.MaxMs = float64(ls.Max) / float64(time.Millisecond)
	ls.MeanMs = float64(ls.Mean) / float64(time.Millisecond)
	ls.P50Ms = float64(ls.P50) / float64(time.Millisecond)
	ls.P90Ms = float64(ls.P90) / float64(time.Millisecond)
	ls.P99Ms = float64(ls.P99) / float64(time.Millisecond)
	return ls
}
