package microburn

import "errors"

// ErrAborted is returned by Run when the run was stopped via Abort.
// Callers distinguish cancellation from unit failures with errors.Is:
//
//	results, err := r.Run(ctx, microburn.RunOptions{})
//	if errors.Is(err, microburn.ErrAborted) {
//		// cancelled, not failed
//	}
//
// Cancellation through the run's context surfaces as ctx.Err() instead.
var ErrAborted = errors.New("benchmark run aborted")
