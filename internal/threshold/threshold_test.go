package threshold

import (
	"testing"
	"time"

	"github.com/microburn/microburn"
)

func TestParseValidThresholds(t *testing.T) {
	cases := []struct {
		in        string
		metric    string
		aggregate string
		operator  string
		value     float64
	}{
		{"rate:avg >= 1000", "rate", "avg", ">=", 1000},
		{"rate:stddev < 50", "rate", "stddev", "<", 50},
		{"latency:p99 < 5", "latency", "p99", "<", 5},
		{"latency:max<20.5", "latency", "max", "<", 20.5},
		{"latency:mean == 1", "latency", "mean", "==", 1},
	}
	for _, tc := range cases {
		th, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.in, err)
		}
		if th.Metric != tc.metric || th.Aggregate != tc.aggregate || th.Operator != tc.operator || th.Value != tc.value {
			t.Fatalf("Parse(%q) = %+v", tc.in, th)
		}
	}
}

func TestParseInvalidThresholds(t *testing.T) {
	for _, in := range []string{
		"",
		"nonsense",
		"rate:p99 < 5",       // percentiles are latency aggregates
		"latency:stddev < 5", // stddev is a rate aggregate
		"rate:avg ~ 100",
		"rate:avg > abc",
		"cpu:avg > 1",
	} {
		if _, err := Parse(in); err == nil {
			t.Fatalf("Parse(%q): expected error", in)
		}
	}
}

func TestParseMultipleCollectsErrors(t *testing.T) {
	ths, err := ParseMultiple([]string{"rate:avg > 10", "latency:p50 < 2"})
	if err != nil {
		t.Fatalf("ParseMultiple: %v", err)
	}
	if len(ths) != 2 {
		t.Fatalf("expected 2 thresholds, got %d", len(ths))
	}

	if _, err := ParseMultiple([]string{"rate:avg > 10", "bogus"}); err == nil {
		t.Fatal("expected aggregate parse error")
	}

	if ths, err := ParseMultiple(nil); err != nil || ths != nil {
		t.Fatalf("empty input: %v, %v", ths, err)
	}
}

func TestEvaluatePerUnit(t *testing.T) {
	results := []microburn.UnitResult{
		{
			Name:    "fast",
			Totals:  microburn.Totals{Runs: 5, Avg: 2000, StdDev: 10},
			Latency: microburn.LatencyStats{P99: 2 * time.Millisecond, P99Ms: 2},
		},
		{
			Name:    "slow",
			Totals:  microburn.Totals{Runs: 5, Avg: 500, StdDev: 10},
			Latency: microburn.LatencyStats{P99: 9 * time.Millisecond, P99Ms: 9},
		},
	}

	ths, err := ParseMultiple([]string{"rate:avg >= 1000", "latency:p99 < 5"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	evaluated := NewEvaluator(ths).Evaluate(results)
	if len(evaluated) != 4 {
		t.Fatalf("expected 4 evaluations, got %d", len(evaluated))
	}

	pass := map[string]bool{}
	for _, r := range evaluated {
		pass[r.Threshold.Raw+"/"+r.Unit] = r.Pass
	}
	if !pass["rate:avg >= 1000/fast"] || pass["rate:avg >= 1000/slow"] {
		t.Fatalf("rate evaluation wrong: %+v", pass)
	}
	if !pass["latency:p99 < 5/fast"] || pass["latency:p99 < 5/slow"] {
		t.Fatalf("latency evaluation wrong: %+v", pass)
	}
}

func TestEvaluateNoThresholds(t *testing.T) {
	if got := NewEvaluator(nil).Evaluate([]microburn.UnitResult{{Name: "x"}}); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestCompareBoundaries(t *testing.T) {
	if !compareValues(5, "<=", 5) || !compareValues(5, ">=", 5) || !compareValues(5, "==", 5) {
		t.Fatal("boundary comparisons must pass with epsilon")
	}
	if compareValues(5, "<", 5) || compareValues(5, ">", 5) {
		t.Fatal("strict comparisons must fail at the boundary")
	}
}
