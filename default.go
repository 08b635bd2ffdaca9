package microburn

import "context"

// Default is the shared package-level Runner used by the top-level
// convenience functions, for callers that don't need their own instance.
var Default = New()

// Add registers a unit on the Default runner.
func Add(name string, spec any) *Runner { return Default.Add(name, spec) }

// Abort cancels the Default runner's in-flight run.
func Abort() *Runner { return Default.Abort() }

// Run executes the Default runner.
func Run(ctx context.Context, opts RunOptions) ([]UnitResult, error) {
	return Default.Run(ctx, opts)
}
