package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/microburn/microburn"
)

// syncBuffer guards a bytes.Buffer against the reporter goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestProgressReporterRendersState(t *testing.T) {
	var buf syncBuffer
	p := NewProgressReporter(5*time.Millisecond, &buf, 3)

	p.UnitStarted("alpha")
	p.SampleDone("alpha", 1, 11, microburn.Sample{Hits: 500, Duration: 100 * time.Millisecond})

	p.Start()
	time.Sleep(30 * time.Millisecond)
	p.Stop()

	out := buf.String()
	if !strings.Contains(out, "Unit 1/3: alpha") {
		t.Fatalf("unit position missing: %q", out)
	}
	if !strings.Contains(out, "window 2/11") {
		t.Fatalf("window position missing: %q", out)
	}
	if !strings.Contains(out, "hits/sec") {
		t.Fatalf("rate missing: %q", out)
	}
}

func TestProgressReporterStartStopIdempotent(t *testing.T) {
	p := NewProgressReporter(time.Millisecond, nil, 1)
	p.Start()
	p.Start() // second start is a no-op
	p.Stop()
	p.Stop() // second stop must not panic or block
}

func TestUnitStartedResetsWindowState(t *testing.T) {
	p := NewProgressReporter(time.Minute, nil, 2)
	p.UnitStarted("one")
	p.SampleDone("one", 4, 5, microburn.Sample{Hits: 10, Duration: time.Millisecond})
	p.UnitStarted("two")

	line := p.line()
	if !strings.Contains(line, "Unit 2/2: two") {
		t.Fatalf("unexpected line: %q", line)
	}
	if strings.Contains(line, "window") {
		t.Fatalf("stale window state: %q", line)
	}
}
