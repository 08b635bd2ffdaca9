// Package threshold evaluates performance assertions against benchmark
// results, so CI runs can fail on absolute throughput or latency limits.
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/microburn/microburn"
)

// Threshold represents a performance assertion that can pass or fail.
// Assertions are evaluated against every completed unit.
type Threshold struct {
	Metric    string  // "rate" or "latency"
	Aggregate string  // rate: "avg", "stddev"; latency: "p50", "p90", "p99", "avg", "min", "max"
	Operator  string  // "<", "<=", ">", ">=", "=="
	Value     float64 // rate in hits/sec, latency in milliseconds
	Raw       string  // original threshold string for display
}

// Result represents the outcome of evaluating a threshold against one unit.
type Result struct {
	Threshold Threshold
	Unit      string
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates thresholds against benchmark results.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate checks every threshold against every unit result.
func (e *Evaluator) Evaluate(results []microburn.UnitResult) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	out := make([]Result, 0, len(e.thresholds)*len(results))
	for _, t := range e.thresholds {
		for _, res := range results {
			out = append(out, evaluateOne(t, res))
		}
	}
	return out
}

func evaluateOne(t Threshold, res microburn.UnitResult) Result {
	actual, err := extractMetricValue(t, res)
	if err != nil {
		return Result{
			Threshold: t,
			Unit:      res.Name,
			Pass:      false,
			Message:   fmt.Sprintf("error: %v", err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	return Result{
		Threshold: t,
		Unit:      res.Name,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s [%s]: %.2f %s %.2f", status, t.Raw, res.Name, actual, t.Operator, t.Value),
	}
}

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
//   - "rate:avg >= 1000"     (mean throughput in hits/sec)
//   - "rate:stddev < 50"     (throughput deviation in hits/sec)
//   - "latency:p99 < 5"      (per-call latency percentile in ms)
//   - "latency:max < 20"     (worst per-call latency in ms)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	pattern := regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)
	matches := pattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected metric:aggregate operator value, e.g. 'rate:avg >= 1000')", s)
	}

	metric := matches[1]
	aggregate := matches[2]
	operator := matches[3]

	value, err := strconv.ParseFloat(matches[4], 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", matches[4], err)
	}

	if !isValidPair(metric, aggregate) {
		return Threshold{}, fmt.Errorf("unsupported threshold %q: use rate:{avg,stddev} or latency:{p50,p90,p99,avg,min,max}", s)
	}
	if !isValidOperator(operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errs []string
	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errs, "; "))
	}
	return result, nil
}

func isValidPair(metric, aggregate string) bool {
	switch metric {
	case "rate":
		return aggregate == "avg" || aggregate == "stddev"
	case "latency":
		switch aggregate {
		case "p50", "p90", "p99", "avg", "mean", "min", "max":
			return true
		}
	}
	return false
}

func isValidOperator(operator string) bool {
	switch operator {
	case "<", "<=", ">", ">=", "==":
		return true
	}
	return false
}

func extractMetricValue(t Threshold, res microburn.UnitResult) (float64, error) {
	switch t.Metric {
	case "rate":
		switch t.Aggregate {
		case "avg":
			return res.Totals.Avg, nil
		case "stddev":
			return res.Totals.StdDev, nil
		}
	case "latency":
		switch t.Aggregate {
		case "p50":
			return res.Latency.P50Ms, nil
		case "p90":
			return res.Latency.P90Ms, nil
		case "p99":
			return res.Latency.P99Ms, nil
		case "avg", "mean":
			return res.Latency.MeanMs, nil
		case "min":
			return res.Latency.MinMs, nil
		case "max":
			return res.Latency.MaxMs, nil
		}
	}
	return 0, fmt.Errorf("unknown metric: %s:%s", t.Metric, t.Aggregate)
}

func compareValues(actual float64, operator string, expected float64) bool {
	// Floating point comparison with a small epsilon.
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
