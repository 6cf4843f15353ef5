package fleetx

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/projectdiscovery/fleetping/pkg/probe"
	"github.com/projectdiscovery/gologger"
	syncutil "github.com/projectdiscovery/utils/sync"
)

const (
	// DefaultLaunchStagger spaces out task launches so connection
	// attempts do not hit the fleet as a single burst.
	DefaultLaunchStagger = 300 * time.Millisecond

	// readPollInterval is the sleep between non-blocking reads while a
	// session is quiet.
	readPollInterval = 100 * time.Millisecond

	// Shutdown windows: how long Stop waits for tasks to wind down,
	// how often it reports progress, and the final grace period before
	// stragglers are reported.
	stopTimeout      = 5 * time.Second
	stopPollInterval = 200 * time.Millisecond
	stopFinalGrace   = 500 * time.Millisecond

	// Drain windows: the pause for the interrupted command to flush
	// its closing output and the bounded reads that collect it.
	drainGrace        = 300 * time.Millisecond
	drainMaxReads     = 10
	drainPollInterval = 50 * time.Millisecond

	// lossNotifyEvery throttles the continuing-loss signal to every
	// n-th consecutive loss.
	lossNotifyEvery = 10
)

// Options configure a probing run.
type Options struct {
	// Tasks to execute, one probe session each, launched in order.
	Tasks []ProbeTask
	// Dialer opens the remote sessions.
	Dialer probe.Dialer
	// Notifier receives live loss and recovery signals, nil disables
	// them.
	Notifier probe.Notifier
	// LogDir receives one durable session log per task, empty disables
	// session logs.
	LogDir string
	// MaxConcurrency overrides the computed ceiling when positive.
	MaxConcurrency int
	// LaunchStagger is the pause between task launches.
	LaunchStagger time.Duration
}

// Orchestrator drives one probing run over the whole task set. The
// zero value is not usable, construct it with New.
//
// mu guards the session registry, the result slots, and the liveness
// counters, and is never held across I/O or channel operations.
type Orchestrator struct {
	opts     Options
	ceiling  int
	gate     *syncutil.AdaptiveWaitGroup
	notifier probe.Notifier

	mu       sync.Mutex
	sessions map[int]probe.Session
	results  []*probe.Result
	launched int
	live     int

	wg       sync.WaitGroup
	allDone  chan struct{}
	started  atomic.Bool
	stopFlag atomic.Bool
	stopOnce sync.Once
}

// New prepares a run over the given tasks. The concurrency ceiling is
// fixed here and holds for the lifetime of the run.
func New(opts Options) (*Orchestrator, error) {
	if opts.LaunchStagger <= 0 {
		opts.LaunchStagger = DefaultLaunchStagger
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = probe.NopNotifier{}
	}

	ceiling := ComputeCeiling(len(opts.Tasks), opts.MaxConcurrency)
	gate, err := syncutil.New(syncutil.WithSize(ceiling))
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		opts:     opts,
		ceiling:  ceiling,
		gate:     gate,
		notifier: notifier,
		sessions: make(map[int]probe.Session),
		results:  make([]*probe.Result, len(opts.Tasks)),
		allDone:  make(chan struct{}),
	}, nil
}

// Ceiling reports the admission limit chosen for this run.
func (o *Orchestrator) Ceiling() int {
	return o.ceiling
}

// Start launches every task, pausing the stagger interval between
// launches. Launching is cheap and never blocks on the admission gate,
// only the connect step inside each task does. Start returns once all
// tasks are handed off.
func (o *Orchestrator) Start(ctx context.Context) {
	if !o.started.CompareAndSwap(false, true) {
		return
	}

	gologger.Info().Msgf("starting %d probe sessions (max %d concurrent)", len(o.opts.Tasks), o.ceiling)

	for i, task := range o.opts.Tasks {
		if o.stopRequested() || ctx.Err() != nil {
			gologger.Verbose().Msgf("stop requested, %d tasks not launched", len(o.opts.Tasks)-i)
			break
		}

		o.mu.Lock()
		o.launched++
		o.live++
		o.mu.Unlock()

		o.wg.Add(1)
		go o.runTask(ctx, i, task)

		if i < len(o.opts.Tasks)-1 {
			time.Sleep(o.opts.LaunchStagger)
		}
	}

	go func() {
		o.wg.Wait()
		close(o.allDone)
	}()
}

// WaitForCompletion blocks until every launched task has finished.
// Valid after Start.
func (o *Orchestrator) WaitForCompletion() {
	<-o.allDone
}

// Done exposes the completion signal for select loops. Valid after
// Start.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.allDone
}

// Stop interrupts every live session and waits a bounded window for
// tasks to wind down. It is safe to call more than once and
// concurrently with WaitForCompletion; tasks that ignore the window
// are reported, never waited on forever.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(o.stop)
}

func (o *Orchestrator) stop() {
	o.stopFlag.Store(true)
	if !o.started.Load() {
		return
	}

	gologger.Info().Msg("stopping all probe sessions")

	// One pass under the lock: interrupt every registered session and
	// stamp an end time on every result so the report is complete even
	// if a task never acknowledges the stop.
	now := time.Now()
	o.mu.Lock()
	for _, session := range o.sessions {
		_ = session.SignalStop()
	}
	for _, result := range o.results {
		if result != nil {
			result.Finalize(now)
		}
	}
	launched := o.launched
	last := o.live
	o.mu.Unlock()

	deadline := time.NewTimer(stopTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(stopPollInterval)
	defer ticker.Stop()

	waiting := last > 0
	for waiting {
		select {
		case <-o.allDone:
			waiting = false
		case <-deadline.C:
			waiting = false
		case <-ticker.C:
			if live := o.liveCount(); live != last {
				gologger.Info().Msgf("stopped %d/%d probe sessions", launched-live, launched)
				last = live
			}
		}
	}

	select {
	case <-o.allDone:
	case <-time.After(stopFinalGrace):
	}

	if live := o.liveCount(); live > 0 {
		gologger.Warning().Msgf("%d probe sessions did not stop cleanly", live)
	} else {
		gologger.Info().Msg("all probe sessions stopped")
	}
}

// Report assembles the final run report in task launch order. Call it
// after the run completed or was stopped; tasks that never connected
// contribute no result.
func (o *Orchestrator) Report(runID string, servers int) *probe.Report {
	o.mu.Lock()
	defer o.mu.Unlock()

	results := make([]*probe.Result, 0, len(o.results))
	for _, result := range o.results {
		if result != nil {
			results = append(results, result)
		}
	}
	return &probe.Report{
		RunID:       runID,
		GeneratedAt: time.Now(),
		Servers:     servers,
		TasksTotal:  len(o.opts.Tasks),
		Results:     results,
	}
}

func (o *Orchestrator) stopRequested() bool {
	return o.stopFlag.Load()
}

// register makes a session reachable by the stop protocol and parks
// its result in the launch order slot.
func (o *Orchestrator) register(idx int, session probe.Session, result *probe.Result) {
	o.mu.Lock()
	o.sessions[idx] = session
	o.results[idx] = result
	o.mu.Unlock()
}

func (o *Orchestrator) taskDone() {
	o.mu.Lock()
	o.live--
	o.mu.Unlock()
}

func (o *Orchestrator) liveCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.live
}
