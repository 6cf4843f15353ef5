package probe

import (
	"fmt"
	"sync"
	"time"
)

const timestampLayout = "2006-01-02 15:04:05"

// Result accumulates the outcome of one probe session. Methods are
// safe for concurrent use: the owning task records lines while the
// orchestrator may finalize the result during shutdown. The mutex is
// never held across I/O.
type Result struct {
	ServerAddress string
	Hostname      string
	Target        string
	StartTime     time.Time

	mu                sync.Mutex
	endTime           time.Time
	totalProbes       int
	lostProbes        int
	consecutiveLosses int
	outputLines       []string
	lossLines         []string
	logPath           string
}

// NewResult starts accounting for one (server, target) session.
func NewResult(serverAddress, hostname, target string, start time.Time) *Result {
	return &Result{
		ServerAddress: serverAddress,
		Hostname:      hostname,
		Target:        target,
		StartTime:     start,
	}
}

// RecordSuccess notes a reply observed at ts and returns the length of
// the loss streak the reply ended, 0 when none was running.
func (r *Result) RecordSuccess(ts time.Time, line string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	streak := r.consecutiveLosses
	r.totalProbes++
	r.consecutiveLosses = 0
	r.outputLines = append(r.outputLines, formatLine(ts, line))
	return streak
}

// RecordLoss notes a lost probe and returns the running streak length.
func (r *Result) RecordLoss(ts time.Time, line string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalProbes++
	r.lostProbes++
	r.consecutiveLosses++
	formatted := formatLine(ts, line)
	r.outputLines = append(r.outputLines, formatted)
	r.lossLines = append(r.lossLines, formatted)
	return r.consecutiveLosses
}

// RecordOther keeps a line in the output history without touching the
// probe counters.
func (r *Result) RecordOther(ts time.Time, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputLines = append(r.outputLines, formatLine(ts, line))
}

// Finalize stamps the end time. Only the first call wins; later calls
// return false so a task finishing after a forced shutdown cannot move
// the recorded end.
func (r *Result) Finalize(t time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.endTime.IsZero() {
		return false
	}
	r.endTime = t
	return true
}

// Finished reports whether the session end was stamped.
func (r *Result) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.endTime.IsZero()
}

// Duration returns the session length, valid only once finished.
func (r *Result) Duration() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.endTime.IsZero() {
		return 0, false
	}
	return r.endTime.Sub(r.StartTime), true
}

// EndTime returns the stamped end, valid only once finished.
func (r *Result) EndTime() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.endTime, !r.endTime.IsZero()
}

// TotalProbes returns how many probes were observed so far.
func (r *Result) TotalProbes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalProbes
}

// LostProbes returns how many probes were lost so far.
func (r *Result) LostProbes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lostProbes
}

// ConsecutiveLosses returns the length of the currently running loss
// streak.
func (r *Result) ConsecutiveLosses() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.consecutiveLosses
}

// HasLoss reports whether any probe was lost during the session.
func (r *Result) HasLoss() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lostProbes > 0
}

// LossRate returns the loss percentage, 0 when nothing was probed yet.
func (r *Result) LossRate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.totalProbes == 0 {
		return 0
	}
	return float64(r.lostProbes) / float64(r.totalProbes) * 100
}

// OutputLines returns a copy of the timestamped output history.
func (r *Result) OutputLines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.outputLines...)
}

// LossLines returns a copy of the timestamped loss lines.
func (r *Result) LossLines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lossLines...)
}

// SetLogPath records where the durable session log lives.
func (r *Result) SetLogPath(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logPath = path
}

// LogPath returns the durable session log location, empty when logging
// was disabled.
func (r *Result) LogPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logPath
}

func formatLine(ts time.Time, line string) string {
	return fmt.Sprintf("[%s] %s", ts.Format(timestampLayout), line)
}
