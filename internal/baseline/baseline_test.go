package baseline

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/microburn/microburn"
	"github.com/microburn/microburn/internal/output"
)

func reportWith(avgs map[string]float64) output.Report {
	results := make([]microburn.UnitResult, 0, len(avgs))
	for _, name := range []string{"alpha", "beta", "gamma"} {
		avg, ok := avgs[name]
		if !ok {
			continue
		}
		results = append(results, microburn.UnitResult{
			Name:   name,
			Totals: microburn.Totals{Runs: 5, Avg: avg, StdDev: avg / 100},
		})
	}
	return output.NewReport(results, 50*time.Millisecond, time.Second, 5)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.json")
	rep := reportWith(map[string]float64{"alpha": 1000, "beta": 250})

	if err := Save(path, rep); err != nil {
		t.Fatalf("save: %v", err)
	}

	b, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.ID != rep.ID {
		t.Fatalf("id = %q, want %q", b.ID, rep.ID)
	}
	entry, ok := b.Lookup("alpha")
	if !ok {
		t.Fatal("alpha missing from baseline")
	}
	if math.Abs(entry.Avg-1000) > 1e-9 || entry.Runs != 5 {
		t.Fatalf("entry = %+v", entry)
	}
	if _, ok := b.Lookup("gamma"); ok {
		t.Fatal("unexpected entry for unsaved unit")
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatal("expected error for invalid JSON")
	}

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte(`{"id":"x","results":[]}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(empty); err == nil {
		t.Fatal("expected error for report without results")
	}
}

func TestCompareAndRegressions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.json")
	if err := Save(path, reportWith(map[string]float64{"alpha": 1000, "beta": 200})); err != nil {
		t.Fatalf("save: %v", err)
	}
	b, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	current := []microburn.UnitResult{
		{Name: "alpha", Totals: microburn.Totals{Avg: 900}}, // 10% slower
		{Name: "beta", Totals: microburn.Totals{Avg: 210}},  // 5% faster
		{Name: "gamma", Totals: microburn.Totals{Avg: 50}},  // not in baseline
	}

	deltas := b.Compare(current)
	if len(deltas) != 3 {
		t.Fatalf("expected 3 deltas, got %d", len(deltas))
	}
	if math.Abs(deltas[0].ChangePct+10) > 1e-9 {
		t.Fatalf("alpha change = %g, want -10", deltas[0].ChangePct)
	}
	if math.Abs(deltas[1].ChangePct-5) > 1e-9 {
		t.Fatalf("beta change = %g, want +5", deltas[1].ChangePct)
	}
	if !deltas[2].Missing {
		t.Fatal("gamma should be marked missing")
	}

	regressions := Regressions(deltas, 5.0)
	if len(regressions) != 1 || regressions[0].Name != "alpha" {
		t.Fatalf("regressions = %+v", regressions)
	}
	if len(Regressions(deltas, 15.0)) != 0 {
		t.Fatal("tolerance not honored")
	}
}
