package output

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/microburn/microburn"
)

// ProgressReporter displays a single-line progress update during a run,
// fed by the runner's OnUnitStart/OnSample callbacks.
type ProgressReporter struct {
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
	unitCount int

	mu          sync.Mutex
	unit        string
	unitIndex   int
	sampleIndex int
	sampleTotal int
	lastRate    float64
}

// NewProgressReporter creates a progress reporter that redraws at the given
// interval for a run of unitCount units.
func NewProgressReporter(interval time.Duration, writer io.Writer, unitCount int) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
		unitCount: unitCount,
	}
}

// UnitStarted records that the runner moved on to the named unit.
func (p *ProgressReporter) UnitStarted(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unit = name
	p.unitIndex++
	p.sampleIndex = 0
	p.sampleTotal = 0
	p.lastRate = 0
}

// SampleDone records a closed sample window for the current unit.
func (p *ProgressReporter) SampleDone(unit string, index, total int, s microburn.Sample) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unit = unit
	p.sampleIndex = index + 1
	p.sampleTotal = total
	if s.Duration > 0 {
		p.lastRate = float64(s.Hits) / s.Duration.Seconds()
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			fmt.Fprint(p.writer, p.line())
		case <-p.done:
			return
		}
	}
}

func (p *ProgressReporter) line() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unit == "" {
		return "\rWaiting for first unit..."
	}
	line := fmt.Sprintf("\rUnit %d/%d: %s", p.unitIndex, p.unitCount, p.unit)
	if p.sampleTotal > 0 {
		line += fmt.Sprintf(" | window %d/%d", p.sampleIndex, p.sampleTotal)
	}
	if p.lastRate > 0 {
		line += fmt.Sprintf(" | %.1f hits/sec", p.lastRate)
	}
	return line
}
