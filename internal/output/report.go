// Package output renders benchmark reports and live progress for the CLI.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/microburn/microburn"
)

// Report wraps one run's ordered results with its identity and the
// effective sampling configuration, so saved reports stay comparable.
type Report struct {
	ID          string                 `json:"id" yaml:"id"`
	CreatedAt   time.Time              `json:"created_at" yaml:"created_at"`
	WarmupMs    float64                `json:"warmup_ms" yaml:"warmup_ms"`
	MaxUnitMs   float64                `json:"max_unit_ms" yaml:"max_unit_ms"`
	RunsPerUnit int                    `json:"runs_per_unit" yaml:"runs_per_unit"`
	Results     []microburn.UnitResult `json:"results" yaml:"results"`
}

// NewReport stamps results with a ULID run id and the runner configuration
// they were measured under.
func NewReport(results []microburn.UnitResult, warmup, maxUnit time.Duration, runs int) Report {
	return Report{
		ID:          ulid.Make().String(),
		CreatedAt:   time.Now().UTC(),
		WarmupMs:    float64(warmup) / float64(time.Millisecond),
		MaxUnitMs:   float64(maxUnit) / float64(time.Millisecond),
		RunsPerUnit: runs,
		Results:     results,
	}
}

// PrintReport outputs a human-readable summary, fastest unit first.
func PrintReport(w io.Writer, rep Report) {
	fmt.Fprintln(w, "\n--- Benchmark Results ---")
	fmt.Fprintf(w, "Run ID:            %s\n", rep.ID)
	fmt.Fprintf(w, "Units:             %d\n", len(rep.Results))
	fmt.Fprintf(w, "Samples per unit:  %d\n", rep.RunsPerUnit)
	fmt.Fprintf(w, "Budget per unit:   %.0fms (warmup %.0fms)\n", rep.MaxUnitMs, rep.WarmupMs)

	ordered := make([]microburn.UnitResult, len(rep.Results))
	copy(ordered, rep.Results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Totals.Avg > ordered[j].Totals.Avg
	})

	var fastest float64
	if len(ordered) > 0 {
		fastest = ordered[0].Totals.Avg
	}

	for _, res := range ordered {
		fmt.Fprintf(w, "\n%s\n", res.Name)
		fmt.Fprintf(w, "  Rate:            %.1f ± %.1f hits/sec (%d samples)\n",
			res.Totals.Avg, res.Totals.StdDev, res.Totals.Runs)
		if fastest > 0 && res.Totals.Avg > 0 {
			fmt.Fprintf(w, "  Relative:        %.2fx slower than fastest\n", fastest/res.Totals.Avg)
		}
		if res.Latency.Max > 0 {
			fmt.Fprintf(w, "  Latency:         p50 %s, p90 %s, p99 %s, max %s\n",
				res.Latency.P50, res.Latency.P90, res.Latency.P99, res.Latency.Max)
		}
		if res.Warmup != nil {
			fmt.Fprintf(w, "  Warmup:          %d hits in %s (excluded)\n",
				res.Warmup.Hits, res.Warmup.Duration)
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, rep Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// PrintYAMLReport outputs a YAML-formatted report.
func PrintYAMLReport(w io.Writer, rep Report) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(rep)
}
