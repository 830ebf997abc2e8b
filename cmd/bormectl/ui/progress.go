package ui

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/schollz/progressbar/v3"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Spinner shows indeterminate progress for a single step.
type Spinner struct {
	spinner *spinner.Spinner
}

// NewSpinner creates a new spinner with the given message.
func NewSpinner(message string) *Spinner {
	if quiet {
		return &Spinner{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = os.Stderr
	return &Spinner{spinner: s}
}

// Start starts the spinner animation.
func (s *Spinner) Start() {
	if s.spinner != nil {
		s.spinner.Start()
	}
}

// Stop stops the spinner animation and clears the line.
func (s *Spinner) Stop() {
	if s.spinner != nil {
		s.spinner.Stop()
	}
}

// DateBar renders document progress for a single gazette date. The total is
// unknown until the day index resolves and is corrected on the first update.
type DateBar struct {
	mu    sync.Mutex
	bar   *progressbar.ProgressBar
	total int
}

// NewDateBar creates a progress bar labeled with the gazette date.
func NewDateBar(date string) *DateBar {
	if quiet {
		return &DateBar{}
	}
	bar := progressbar.NewOptions64(
		1,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(date),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
	)
	return &DateBar{bar: bar}
}

// Update moves the bar. Safe to call from the pipeline's worker goroutines.
func (b *DateBar) Update(done, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar == nil {
		return
	}
	if total != b.total {
		b.total = total
		b.bar.ChangeMax64(int64(total))
	}
	_ = b.bar.Set64(int64(done))
}

// Finish completes the bar and clears the line.
func (b *DateBar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar != nil {
		_ = b.bar.Finish()
	}
}

// MultiBar renders one bar per gazette date during a range run. Bars appear
// as dates start and advance independently.
type MultiBar struct {
	mu       sync.Mutex
	progress *mpb.Progress
	bars     map[string]*mpb.Bar
}

// NewMultiBar creates the multi-bar container.
func NewMultiBar() *MultiBar {
	if quiet {
		return &MultiBar{}
	}
	return &MultiBar{
		progress: mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr)),
		bars:     make(map[string]*mpb.Bar),
	}
}

// Update advances the bar for a date, creating it on first sight.
func (m *MultiBar) Update(date string, done, total int) {
	if m.progress == nil {
		return
	}
	m.mu.Lock()
	bar, ok := m.bars[date]
	if !ok {
		bar = m.progress.AddBar(int64(total),
			mpb.PrependDecorators(
				decor.Name(date, decor.WC{W: len(date) + 1, C: decor.DSyncSpaceR}),
				decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
			),
			mpb.AppendDecorators(
				decor.Percentage(decor.WC{W: 5}),
				decor.OnComplete(decor.Elapsed(decor.ET_STYLE_GO, decor.WC{W: 8}), " done"),
			),
		)
		m.bars[date] = bar
	}
	m.mu.Unlock()

	bar.SetTotal(int64(total), false)
	bar.SetCurrent(int64(done))
}

// Stop shuts rendering down. Bars of failed or interrupted dates never
// complete, so rendering is shut down rather than awaited.
func (m *MultiBar) Stop() {
	if m.progress != nil {
		m.progress.Shutdown()
	}
}
