// Package baseline persists benchmark reports and compares runs against a
// previously saved report, for catching throughput regressions in CI.
package baseline

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gofrs/flock"
	"github.com/tidwall/gjson"

	"github.com/microburn/microburn"
	"github.com/microburn/microburn/internal/output"
)

// Entry is one unit's summary lifted from a stored report.
type Entry struct {
	Name   string
	Avg    float64
	StdDev float64
	Runs   int
}

// Baseline is a previously saved report, reduced to per-unit summaries.
type Baseline struct {
	ID      string
	entries map[string]Entry
}

// Delta describes one unit's rate change against the baseline. ChangePct is
// negative when the unit got slower. Missing marks units absent from the
// baseline.
type Delta struct {
	Name        string
	BaselineAvg float64
	CurrentAvg  float64
	ChangePct   float64
	Missing     bool
}

// Save writes the report as indented JSON, serialized against concurrent
// writers by a sidecar lock file.
func Save(path string, rep output.Report) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock baseline %s: %w", path, err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encode baseline: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write baseline %s: %w", path, err)
	}
	return nil
}

// Load reads a stored report. Field extraction goes through gjson so a
// baseline written by an older build stays readable as long as the fields
// used for comparison exist.
func Load(path string) (*Baseline, error) {
	lock := flock.New(path + ".lock")
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock baseline %s: %w", path, err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read baseline %s: %w", path, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("baseline %s is not valid JSON", path)
	}

	b := &Baseline{
		ID:      gjson.GetBytes(data, "id").String(),
		entries: make(map[string]Entry),
	}
	gjson.GetBytes(data, "results").ForEach(func(_, res gjson.Result) bool {
		name := res.Get("name").String()
		if name == "" {
			return true
		}
		if _, dup := b.entries[name]; dup {
			// Duplicate unit names: first occurrence wins.
			return true
		}
		b.entries[name] = Entry{
			Name:   name,
			Avg:    res.Get("totals.avg").Float(),
			StdDev: res.Get("totals.std_dev").Float(),
			Runs:   int(res.Get("totals.runs").Int()),
		}
		return true
	})
	if len(b.entries) == 0 {
		return nil, fmt.Errorf("baseline %s contains no unit results", path)
	}
	return b, nil
}

// Lookup returns the stored entry for a unit name.
func (b *Baseline) Lookup(name string) (Entry, bool) {
	e, ok := b.entries[name]
	return e, ok
}

// Compare produces one delta per current result, in result order.
func (b *Baseline) Compare(results []microburn.UnitResult) []Delta {
	deltas := make([]Delta, 0, len(results))
	for _, res := range results {
		d := Delta{Name: res.Name, CurrentAvg: res.Totals.Avg}
		prev, ok := b.Lookup(res.Name)
		if !ok {
			d.Missing = true
			deltas = append(deltas, d)
			continue
		}
		d.BaselineAvg = prev.Avg
		if prev.Avg > 0 {
			d.ChangePct = (res.Totals.Avg - prev.Avg) / prev.Avg * 100
		}
		deltas = append(deltas, d)
	}
	return deltas
}

// Regressions filters deltas to units slower than the baseline by more than
// tolerancePct percent. Units missing from the baseline never regress.
func Regressions(deltas []Delta, tolerancePct float64) []Delta {
	var out []Delta
	for _, d := range deltas {
		if d.Missing {
			continue
		}
		if d.ChangePct < -tolerancePct {
			out = append(out, d)
		}
	}
	return out
}
