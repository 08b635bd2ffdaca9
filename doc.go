// Package microburn is a micro-benchmark runner: it repeatedly executes
// named units of work inside fixed-duration sample windows and reports
// throughput statistics per unit.
//
// Each unit's time budget (MaxUnitTime) is divided into RunsPerUnit sample
// windows. A window loops calling the unit's work function, counting one
// "hit" per completed call, and closes once its nominal duration has
// elapsed. An optional warmup window runs first and is excluded from
// statistics. Per-unit results carry the mean and population standard
// deviation of hits, normalized to hits/second, plus per-call latency
// percentiles.
//
// # Basic Usage
//
//	r := microburn.New().
//		SetMaxUnitTime(2 * time.Second).
//		SetRunsPerUnit(10)
//
//	r.Add("concat", func() { _ = "a" + "b" })
//	r.Add("builder", microburn.UnitOptions{
//		Prepare: setup,
//		Unit:    work,
//		Teardown: cleanup,
//	})
//
//	results, err := r.Run(ctx, microburn.RunOptions{
//		OnCycle: func(res microburn.UnitResult) {
//			fmt.Printf("%s: %.0f ops/sec\n", res.Name, res.Totals.Avg)
//		},
//	})
//
// # Asynchronous Units
//
// A unit declared as func() any may return an error channel; the runner
// then awaits the channel on every call, counting a hit when it settles.
// The choice is made once per sampling phase by a single untimed probe
// call, so detection never counts toward measured time:
//
//	r.Add("fetch", func() any {
//		ch := make(chan error, 1)
//		go func() { ch <- doWork() }()
//		return ch
//	})
//
// # Cancellation
//
// Abort may be called from any goroutine (for example from a timer or an
// OnCycle callback). It is observed cooperatively at checkpoints between
// and inside sample windows; Run then fails with [ErrAborted]. An in-flight
// work call is never interrupted, so worst-case abort latency is roughly
// one sample window. Cancelling the Run context behaves the same way but
// surfaces ctx.Err().
//
// Units execute strictly sequentially; there is no parallelism to protect
// against, and a Runner must not be shared between concurrent Run calls.
package microburn
