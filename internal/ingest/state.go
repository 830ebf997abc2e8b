package ingest

import (
	"errors"
	"sync"
)

// ErrAlreadyRunning is returned when a run is requested while another is
// active. A single writer at a time keeps the per-date transactions serial.
var ErrAlreadyRunning = errors.New("an ingestion run is already active")

// RunStatus is a snapshot of the engine's run state. After a run finishes
// the range and counters of the last run remain visible with Running false.
type RunStatus struct {
	Running      bool   `json:"is_running"`
	DateFrom     string `json:"date_from,omitempty"`
	DateTo       string `json:"date_to,omitempty"`
	CurrentBatch string `json:"current_batch,omitempty"`
	Processed    int    `json:"processed_count"`
	Total        int    `json:"total_count"`
}

// TriggerResult reports whether a background run was started and, when it
// was not, why.
type TriggerResult struct {
	Started bool   `json:"started"`
	Reason  string `json:"reason,omitempty"`
}

// runState tracks the single active run. All access goes through the mutex;
// only snapshot copies leave the struct.
type runState struct {
	mu        sync.Mutex
	running   bool
	from, to  string
	batch     string
	processed int
	total     int
}

// begin claims the run slot. Returns false when a run is already active.
func (s *runState) begin(from, to string, total int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	s.from = from
	s.to = to
	s.batch = ""
	s.processed = 0
	s.total = total
	return true
}

func (s *runState) setBatch(first, last string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if first == last {
		s.batch = first
	} else {
		s.batch = first + " .. " + last
	}
}

func (s *runState) advance(n int) {
	s.mu.Lock()
	s.processed += n
	s.mu.Unlock()
}

func (s *runState) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.batch = ""
}

func (s *runState) snapshot() RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RunStatus{
		Running:      s.running,
		DateFrom:     s.from,
		DateTo:       s.to,
		CurrentBatch: s.batch,
		Processed:    s.processed,
		Total:        s.total,
	}
}
