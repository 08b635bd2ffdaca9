package microburn

import "fmt"

// UnitOptions configures a unit registered with Runner.Add when it needs
// setup or cleanup around the measured work.
type UnitOptions struct {
	// Prepare runs once before sampling begins. Not timed.
	Prepare func() error
	// Unit is the work function under measurement. Accepts the same forms
	// as a bare function passed to Add: func(), func() error, or
	// func() any (see Add for the asynchronous contract).
	Unit any
	// Teardown runs once after sampling ends. Not timed.
	Teardown func() error
}

// unit is the canonical descriptor every Add form normalizes into.
type unit struct {
	name     string
	prepare  func() error
	teardown func() error
	fn       any // nil surfaces as an error when Run tries to invoke it
}

func newUnit(name string, spec any) *unit {
	u := &unit{name: name}
	switch s := spec.(type) {
	case UnitOptions:
		u.prepare = s.Prepare
		u.teardown = s.Teardown
		u.fn = s.Unit
	case *UnitOptions:
		if s != nil {
			u.prepare = s.Prepare
			u.teardown = s.Teardown
			u.fn = s.Unit
		}
	default:
		u.fn = spec
	}
	return u
}

// callFunc executes one unit invocation and reports its failure, if any.
// For asynchronous units the call does not return until the work settles.
type callFunc func() error

// resolveCall selects the invoker for a unit's work function. For func() any
// units this performs the single untimed probe invocation: if the probe
// returns an error channel the unit is treated as asynchronous for the whole
// sampling phase, otherwise return values are discarded. The probe's result
// is not awaited; a probe channel is drained in the background so its
// producer can finish.
func resolveCall(fn any) (callFunc, error) {
	switch f := fn.(type) {
	case func():
		return func() error {
			f()
			return nil
		}, nil
	case func() error:
		return f, nil
	case func() any:
		if ch, ok := awaitable(f()); ok {
			go func() { <-ch }()
			return func() error {
				ch, ok := awaitable(f())
				if !ok {
					return fmt.Errorf("asynchronous unit stopped returning an error channel")
				}
				return <-ch
			}, nil
		}
		return func() error {
			_ = f()
			return nil
		}, nil
	case nil:
		return nil, fmt.Errorf("no work function")
	default:
		return nil, fmt.Errorf("unsupported unit function type %T", fn)
	}
}

func awaitable(v any) (<-chan error, bool) {
	switch ch := v.(type) {
	case <-chan error:
		return ch, true
	case chan error:
		return ch, true
	}
	return nil, false
}
