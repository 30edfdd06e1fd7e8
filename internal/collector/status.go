package collector

import (
	"sync"
	"time"
)

// Job states reported by the status tracker.
const (
	StatusIdle    = "idle"
	StatusRunning = "running"
	StatusError   = "error"
)

// JobStatus is the scheduler state exposed on the status endpoint. Current
// and Stored count successful symbol fetches this cycle; Error holds the
// most recent failure message, cleared when a new cycle starts.
type JobStatus struct {
	Status    string    `json:"status"`
	Job       string    `json:"job,omitempty"`
	Current   int       `json:"current"`
	Total     int       `json:"total"`
	Stored    int       `json:"stored"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusTracker guards the job status. The collector is the sole writer;
// readers take consistent copies through Snapshot.
type StatusTracker struct {
	mu     sync.RWMutex
	status JobStatus
	now    func() time.Time
}

// NewStatusTracker creates a tracker in the idle state.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		status: JobStatus{Status: StatusIdle},
		now:    time.Now,
	}
}

// StartCycle resets the status for a new fetch cycle.
func (t *StatusTracker) StartCycle(job string, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = JobStatus{
		Status:    StatusRunning,
		Job:       job,
		Total:     total,
		UpdatedAt: t.now(),
	}
}

// RecordSuccess counts one symbol fetched and stored.
func (t *StatusTracker) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.Current++
	t.status.Stored++
	t.status.UpdatedAt = t.now()
}

// RecordError notes a failure without stopping the cycle.
func (t *StatusTracker) RecordError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.Error = err.Error()
	t.status.UpdatedAt = t.now()
}

// FinishCycle closes the cycle: error when every symbol failed, idle
// otherwise.
func (t *StatusTracker) FinishCycle(allFailed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if allFailed {
		t.status.Status = StatusError
	} else {
		t.status.Status = StatusIdle
	}
	t.status.UpdatedAt = t.now()
}

// Snapshot returns a copy of the current status.
func (t *StatusTracker) Snapshot() JobStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.status
}
