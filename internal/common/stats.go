package common

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"
)

// Stats holds atomic counters for fetch and pipeline telemetry.
type Stats struct {
	BytesReceived uint64 // Atomic counter for response bytes read
	RecordsBuilt  uint64 // Atomic counter for table rows produced
	FetchFailures uint64 // Atomic counter for absorbed fetch failures

	// Internal state for reporter
	out       io.Writer
	running   atomic.Bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	silent    bool
	lastBytes uint64
	lastTime  time.Time
	interval  time.Duration

	// Moving average window for MiB/s
	rateWindow     []float64
	rateWindowSize int
	rateIndex      int
}

// NewStats creates a Stats instance reporting to out (stdout when nil).
func NewStats(out io.Writer) *Stats {
	if out == nil {
		out = os.Stdout
	}
	return &Stats{
		out:            out,
		interval:       500 * time.Millisecond,
		rateWindow:     make([]float64, 10), // 10-sample moving average (5 seconds)
		rateWindowSize: 10,
	}
}

// AddBytes atomically increments the bytes received counter
func (s *Stats) AddBytes(count uint64) {
	atomic.AddUint64(&s.BytesReceived, count)
}

// AddRecords atomically increments the rows built counter
func (s *Stats) AddRecords(count uint64) {
	atomic.AddUint64(&s.RecordsBuilt, count)
}

// AddFailure atomically increments the fetch failure counter
func (s *Stats) AddFailure() {
	atomic.AddUint64(&s.FetchFailures, 1)
}

// GetBytes atomically reads the bytes received
func (s *Stats) GetBytes() uint64 {
	return atomic.LoadUint64(&s.BytesReceived)
}

// GetRecords atomically reads the rows built
func (s *Stats) GetRecords() uint64 {
	return atomic.LoadUint64(&s.RecordsBuilt)
}

// GetFailures atomically reads the fetch failures
func (s *Stats) GetFailures() uint64 {
	return atomic.LoadUint64(&s.FetchFailures)
}

// SetSilent enables or disables silent mode
func (s *Stats) SetSilent(silent bool) {
	s.silent = silent
}

// StartReporter starts a background goroutine that prints download progress
// every 500ms while a DONKI request is in flight.
func (s *Stats) StartReporter() {
	if s.running.Load() {
		return // Already running
	}

	s.running.Store(true)
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.lastTime = time.Now()
	s.lastBytes = s.GetBytes()

	go s.reporterLoop(s.stopCh, s.doneCh)
}

// StopReporter stops the background reporter and waits for it to exit.
func (s *Stats) StopReporter() {
	if !s.running.Load() {
		return
	}

	s.running.Store(false)
	close(s.stopCh)
	<-s.doneCh
}

func (s *Stats) reporterLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.printStatus()
		}
	}
}

// printStatus prints the current transfer status, one line per tick
func (s *Stats) printStatus() {
	if s.silent {
		return
	}

	now := time.Now()
	elapsed := now.Sub(s.lastTime).Seconds()
	if elapsed < 0.001 {
		return
	}

	currentBytes := s.GetBytes()
	deltaBytes := currentBytes - s.lastBytes
	mibPerSec := (float64(deltaBytes) / (1024 * 1024)) / elapsed

	s.rateWindow[s.rateIndex] = mibPerSec
	s.rateIndex = (s.rateIndex + 1) % s.rateWindowSize

	var sum float64
	var count int
	for _, r := range s.rateWindow {
		if r > 0 {
			sum += r
			count++
		}
	}
	smoothed := 0.0
	if count > 0 {
		smoothed = sum / float64(count)
	}

	fmt.Fprintf(s.out, "[Progress] Received: %.2f MiB | Rate: %.2f MiB/s (avg: %.2f)\n",
		float64(currentBytes)/(1024*1024),
		mibPerSec,
		smoothed,
	)

	s.lastBytes = currentBytes
	s.lastTime = now
}

// Summary formats the counters for the end-of-run report.
func (s *Stats) Summary() string {
	return fmt.Sprintf("Received: %.2f MiB | Rows: %d | Failed fetches: %d",
		float64(s.GetBytes())/(1024*1024), s.GetRecords(), s.GetFailures())
}

// Reset resets all counters (useful for testing or restarting)
func (s *Stats) Reset() {
	atomic.StoreUint64(&s.BytesReceived, 0)
	atomic.StoreUint64(&s.RecordsBuilt, 0)
	atomic.StoreUint64(&s.FetchFailures, 0)
	s.lastBytes = 0
	s.lastTime = time.Now()

	for i := range s.rateWindow {
		s.rateWindow[i] = 0
	}
	s.rateIndex = 0
}

// CountingReader adds every byte read through it to a Stats counter.
type CountingReader struct {
	R     io.Reader
	Stats *Stats
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	if n > 0 && c.Stats != nil {
		c.Stats.AddBytes(uint64(n))
	}
	return n, err
}
