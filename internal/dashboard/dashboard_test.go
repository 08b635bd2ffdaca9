package dashboard

import (
	"strings"
	"testing"
	"time"

	"github.com/microburn/microburn"
)

func TestRunStateTracksProgress(t *testing.T) {
	state := &runState{}

	state.unitStarted("alpha")
	state.sampleDone(0, 10, microburn.Sample{Hits: 50, Duration: 500 * time.Millisecond})
	state.sampleDone(1, 10, microburn.Sample{Hits: 60, Duration: 500 * time.Millisecond})

	snap := state.snapshot()
	if snap.unit != "alpha" {
		t.Errorf("unit = %q, expected alpha", snap.unit)
	}
	if snap.unitIndex != 1 {
		t.Errorf("unitIndex = %d, expected 1", snap.unitIndex)
	}
	if snap.sampleIndex != 2 || snap.sampleTotal != 10 {
		t.Errorf("sample progress = %d/%d, expected 2/10", snap.sampleIndex, snap.sampleTotal)
	}
	if snap.totalHits != 110 {
		t.Errorf("totalHits = %d, expected 110", snap.totalHits)
	}
	if snap.lastRate != 120 {
		t.Errorf("lastRate = %g, expected 120", snap.lastRate)
	}
	if len(snap.rateHistory) != 2 {
		t.Errorf("rateHistory length = %d, expected 2", len(snap.rateHistory))
	}
}

func TestRunStateResetsPerUnit(t *testing.T) {
	state := &runState{}

	state.unitStarted("alpha")
	state.sampleDone(4, 10, microburn.Sample{Hits: 50, Duration: 500 * time.Millisecond})
	state.unitStarted("beta")

	snap := state.snapshot()
	if snap.unit != "beta" || snap.unitIndex != 2 {
		t.Errorf("unit = %q index %d, expected beta index 2", snap.unit, snap.unitIndex)
	}
	if snap.sampleIndex != 0 || snap.sampleTotal != 0 {
		t.Errorf("sample progress not reset: %d/%d", snap.sampleIndex, snap.sampleTotal)
	}
	if snap.lastRate != 0 {
		t.Errorf("lastRate not reset: %g", snap.lastRate)
	}
	// Cross-unit values survive unit boundaries.
	if snap.totalHits != 50 {
		t.Errorf("totalHits = %d, expected 50", snap.totalHits)
	}
	if len(snap.rateHistory) != 1 {
		t.Errorf("rateHistory length = %d, expected 1", len(snap.rateHistory))
	}
}

func TestRunStateBoundsRateHistory(t *testing.T) {
	state := &runState{}
	state.unitStarted("alpha")
	for i := 0; i < rateHistoryLen+20; i++ {
		state.sampleDone(i, rateHistoryLen+20, microburn.Sample{Hits: 10, Duration: 100 * time.Millisecond})
	}

	snap := state.snapshot()
	if len(snap.rateHistory) != rateHistoryLen {
		t.Errorf("rateHistory length = %d, expected %d", len(snap.rateHistory), rateHistoryLen)
	}
}

func TestGaugePercent(t *testing.T) {
	tests := []struct {
		name     string
		index    int
		total    int
		expected int
	}{
		{"zero total", 3, 0, 0},
		{"halfway", 5, 10, 50},
		{"complete", 10, 10, 100},
		{"overflow clamps", 12, 10, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := gaugePercent(tt.index, tt.total)
			if result != tt.expected {
				t.Errorf("gaugePercent(%d, %d) = %d, expected %d", tt.index, tt.total, result, tt.expected)
			}
		})
	}
}

func TestFormatSummary(t *testing.T) {
	cfg := RunConfig{
		WarmupTime:  50 * time.Millisecond,
		MaxUnitTime: 5 * time.Second,
		RunsPerUnit: 10,
		UnitCount:   3,
	}
	snap := runSnapshot{unit: "alpha", unitIndex: 2, totalHits: 1234}

	text := formatSummary(cfg, snap, 7*time.Second)
	for _, want := range []string{"Unit 2/3: alpha", "Runs: 10", "Total hits: 1234", "Elapsed: 7s"} {
		if !strings.Contains(text, want) {
			t.Errorf("summary missing %q:\n%s", want, text)
		}
	}
}

func TestFormatSummaryPlaceholderUnit(t *testing.T) {
	text := formatSummary(RunConfig{UnitCount: 1}, runSnapshot{}, 0)
	if !strings.Contains(text, "Unit 0/1: -") {
		t.Errorf("expected placeholder unit name, got:\n%s", text)
	}
}

func TestFormatResultRows(t *testing.T) {
	rows := formatResultRows(nil)
	if len(rows) != 1 || rows[0] != "None yet" {
		t.Errorf("empty rows = %v", rows)
	}

	rows = formatResultRows([]microburn.UnitResult{
		{Name: "alpha", Totals: microburn.Totals{Runs: 10, Avg: 120.5, StdDev: 3.2}},
	})
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if !strings.Contains(rows[0], "alpha") || !strings.Contains(rows[0], "120.5") {
		t.Errorf("unexpected row: %s", rows[0])
	}
}

func TestFormatLatency(t *testing.T) {
	text := formatLatency(microburn.UnitResult{
		Name:    "alpha",
		Latency: microburn.LatencyStats{MinMs: 0.1, MeanMs: 0.5, P50Ms: 0.4, P90Ms: 0.9, P99Ms: 1.2},
	})
	for _, want := range []string{"Unit: alpha", "P99:  1.20ms"} {
		if !strings.Contains(text, want) {
			t.Errorf("latency text missing %q:\n%s", want, text)
		}
	}
}
