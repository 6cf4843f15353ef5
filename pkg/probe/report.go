package probe

import "time"

// Report is the aggregate outcome of one run: every session result in
// task launch order plus the run level counts a renderer needs. Tasks
// that never connected have no result.
type Report struct {
	RunID       string
	GeneratedAt time.Time
	Servers     int
	TasksTotal  int
	Results     []*Result
}

// WithLoss counts the sessions that recorded at least one lost probe.
func (rep *Report) WithLoss() int {
	n := 0
	for _, r := range rep.Results {
		if r.HasLoss() {
			n++
		}
	}
	return n
}

// WithoutLoss counts the sessions that saw no loss at all.
func (rep *Report) WithoutLoss() int {
	return len(rep.Results) - rep.WithLoss()
}
