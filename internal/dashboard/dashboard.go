// Package dashboard renders a live terminal UI for benchmark runs.
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/microburn/microburn"
)

const rateHistoryLen = 100

// RunConfig holds benchmark configuration parameters for display.
type RunConfig struct {
	WarmupTime  time.Duration
	MaxUnitTime time.Duration
	RunsPerUnit int
	UnitCount   int
	Shell       string
	ConfigFile  string
}

// runState is the mutable view of the run, guarded by its own mutex so
// callbacks from the runner goroutine never touch termui directly.
type runState struct {
	mu          sync.Mutex
	unit        string
	unitIndex   int
	sampleIndex int
	sampleTotal int
	lastRate    float64
	totalHits   int64
	rateHistory []float64
	completed   []microburn.UnitResult
}

func (s *runState) unitStarted(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unit = name
	s.unitIndex++
	s.sampleIndex = 0
	s.sampleTotal = 0
	s.lastRate = 0
}

func (s *runState) sampleDone(index, total int, sample microburn.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sampleIndex = index + 1
	s.sampleTotal = total
	s.totalHits += sample.Hits
	if sample.Duration > 0 {
		s.lastRate = float64(sample.Hits) / sample.Duration.Seconds()
		s.rateHistory = append(s.rateHistory, s.lastRate)
		if len(s.rateHistory) > rateHistoryLen {
			s.rateHistory = s.rateHistory[1:]
		}
	}
}

func (s *runState) cycleDone(res microburn.UnitResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, res)
}

// snapshot copies the state under lock so rendering works on stable values.
func (s *runState) snapshot() runSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := runSnapshot{
		unit:        s.unit,
		unitIndex:   s.unitIndex,
		sampleIndex: s.sampleIndex,
		sampleTotal: s.sampleTotal,
		lastRate:    s.lastRate,
		totalHits:   s.totalHits,
		rateHistory: append([]float64(nil), s.rateHistory...),
		completed:   append([]microburn.UnitResult(nil), s.completed...),
	}
	return snap
}

type runSnapshot struct {
	unit        string
	unitIndex   int
	sampleIndex int
	sampleTotal int
	lastRate    float64
	totalHits   int64
	rateHistory []float64
	completed   []microburn.UnitResult
}

// Dashboard renders live benchmark progress with termui.
type Dashboard struct {
	state     *runState
	cfg       RunConfig
	abortFunc func()
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startTime time.Time

	grid         *ui.Grid
	summaryPara  *widgets.Paragraph
	sampleGauge  *widgets.Gauge
	rateSparkle  *widgets.SparklineGroup
	latencyPara  *widgets.Paragraph
	resultList   *widgets.List
}

// New initializes the terminal UI. abortFunc is invoked when the user
// presses q or Ctrl-C.
func New(cfg RunConfig, abortFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		state:     &runState{},
		cfg:       cfg,
		abortFunc: abortFunc,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

func (d *Dashboard) initWidgets() {
	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Benchmark"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.sampleGauge = widgets.NewGauge()
	d.sampleGauge.Title = "Sample Windows"
	d.sampleGauge.Percent = 0
	d.sampleGauge.BarColor = ui.ColorBlue
	d.sampleGauge.BorderStyle.Fg = ui.ColorCyan
	d.sampleGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	sparkline := widgets.NewSparkline()
	sparkline.Title = "hits/sec"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.rateSparkle = widgets.NewSparklineGroup(sparkline)
	d.rateSparkle.Title = "Throughput"
	d.rateSparkle.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Last Unit Latency"
	d.latencyPara.Text = "Awaiting data"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.resultList = widgets.NewList()
	d.resultList.Title = "Completed Units"
	d.resultList.Rows = []string{"None yet"}
	d.resultList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.resultList.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.22,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.16,
			ui.NewCol(1.0, d.sampleGauge),
		),
		ui.NewRow(0.28,
			ui.NewCol(0.65, d.rateSparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.34,
			ui.NewCol(1.0, d.resultList),
		),
	)
}

// UnitStarted records that a new unit began executing.
func (d *Dashboard) UnitStarted(name string) {
	d.state.unitStarted(name)
}

// SampleDone records a completed sample window.
func (d *Dashboard) SampleDone(unit string, index, total int, s microburn.Sample) {
	d.state.sampleDone(index, total, s)
}

// CycleDone records a completed unit result.
func (d *Dashboard) CycleDone(res microburn.UnitResult) {
	d.state.cycleDone(res)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.abortFunc != nil {
					d.abortFunc()
				}
				// Wait for Stop() to cancel the context
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

func (d *Dashboard) update() {
	snap := d.state.snapshot()

	d.summaryPara.Text = formatSummary(d.cfg, snap, time.Since(d.startTime))

	d.sampleGauge.Percent = gaugePercent(snap.sampleIndex, snap.sampleTotal)
	d.sampleGauge.Label = fmt.Sprintf("%d/%d windows | %.1f hits/sec", snap.sampleIndex, snap.sampleTotal, snap.lastRate)

	if len(snap.rateHistory) > 0 {
		d.rateSparkle.Sparklines[0].Data = snap.rateHistory
		d.rateSparkle.Title = fmt.Sprintf("Throughput | Current: %.1f hits/sec", snap.lastRate)
	}

	if n := len(snap.completed); n > 0 {
		d.latencyPara.Text = formatLatency(snap.completed[n-1])
	}

	d.resultList.Rows = formatResultRows(snap.completed)
}

func (d *Dashboard) render() {
	ui.Render(d.grid)
}

func formatSummary(cfg RunConfig, snap runSnapshot, elapsed time.Duration) string {
	unit := snap.unit
	if unit == "" {
		unit = "-"
	}
	return fmt.Sprintf(
		"Unit %d/%d: %s\nWarmup: %s | Window budget: %s | Runs: %d\nElapsed: %s | Total hits: %d\nPress q to abort",
		snap.unitIndex,
		cfg.UnitCount,
		unit,
		cfg.WarmupTime,
		cfg.MaxUnitTime,
		cfg.RunsPerUnit,
		elapsed.Round(time.Second),
		snap.totalHits,
	)
}

func formatLatency(res microburn.UnitResult) string {
	return fmt.Sprintf(
		"Unit: %s\nMin:  %.2fms\nMean: %.2fms\nP50:  %.2fms\nP90:  %.2fms\nP99:  %.2fms",
		res.Name,
		res.Latency.MinMs,
		res.Latency.MeanMs,
		res.Latency.P50Ms,
		res.Latency.P90Ms,
		res.Latency.P99Ms,
	)
}

func formatResultRows(completed []microburn.UnitResult) []string {
	if len(completed) == 0 {
		return []string{"None yet"}
	}
	rows := make([]string, 0, len(completed))
	for _, res := range completed {
		rows = append(rows, fmt.Sprintf("%s: %.1f ± %.1f hits/sec (%d samples)", res.Name, res.Totals.Avg, res.Totals.StdDev, res.Totals.Runs))
	}
	return rows
}

func gaugePercent(index, total int) int {
	if total <= 0 {
		return 0
	}
	pct := index * 100 / total
	if pct > 100 {
		pct = 100
	}
	return pct
}
