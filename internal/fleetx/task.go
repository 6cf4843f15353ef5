package fleetx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/projectdiscovery/fleetping/pkg/probe"
	"github.com/projectdiscovery/gologger"
	stringsutil "github.com/projectdiscovery/utils/strings"
)

// runTask owns the full lifecycle of one probe session. Errors never
// escape: they end this task and are reported while sibling tasks keep
// running.
func (o *Orchestrator) runTask(ctx context.Context, idx int, task ProbeTask) {
	defer o.wg.Done()
	defer o.taskDone()

	// The admission gate bounds how many tasks hold a connection at
	// once; launched tasks park here until a slot frees up.
	o.gate.Add()
	defer o.gate.Done()

	if o.stopRequested() || ctx.Err() != nil {
		return
	}

	session, err := o.opts.Dialer.Dial(ctx, task.Server, task.Target)
	if err != nil {
		gologger.Error().Msgf("could not connect to %s: %s", task.Server.Address, err)
		return
	}
	defer func() {
		_ = session.Close()
	}()

	result := probe.NewResult(task.Server.Address, session.Hostname(), task.Target, time.Now())

	var recorder *probe.Recorder
	if o.opts.LogDir != "" {
		recorder, err = probe.NewRecorder(o.opts.LogDir, result)
		if err != nil {
			gologger.Warning().Msgf("could not create session log for %s -> %s: %s", task.Server.Address, task.Target, err)
			recorder = nil
		} else {
			defer func() {
				_ = recorder.Close()
			}()
		}
	}

	o.register(idx, session, result)
	gologger.Info().Msgf("connected: %s (%s) -> pinging %s", task.Server.Address, session.Hostname(), task.Target)

	o.stream(session, result, recorder)
	o.drain(session, result, recorder)

	result.Finalize(time.Now())
}

// stream consumes session output until the stream ends or a stop is
// requested, pushing every usable line through the classifier.
func (o *Orchestrator) stream(session probe.Session, result *probe.Result, recorder *probe.Recorder) {
	for !o.stopRequested() {
		line, err := session.ReadLine()
		switch {
		case err == nil:
			o.dispatch(result, recorder, line)
		case errors.Is(err, probe.ErrNoData):
			time.Sleep(readPollInterval)
		case errors.Is(err, io.EOF):
			return
		default:
			o.recordStreamError(result, recorder, err)
			return
		}
	}
}

// drain gives an interrupted command a moment to flush its closing
// output, the statistics block ping prints after Ctrl-C, and consumes
// whatever is left through the same classification path as live lines.
func (o *Orchestrator) drain(session probe.Session, result *probe.Result, recorder *probe.Recorder) {
	time.Sleep(drainGrace)
	for i := 0; i < drainMaxReads; i++ {
		line, err := session.ReadLine()
		switch {
		case err == nil:
			o.dispatch(result, recorder, line)
		case errors.Is(err, probe.ErrNoData):
			time.Sleep(drainPollInterval)
		default:
			return
		}
	}
}

// dispatch classifies one raw line and fans it out to the result, the
// session log, and the notifier. Shell prompt artifacts are dropped
// here, before they can reach the counters.
func (o *Orchestrator) dispatch(result *probe.Result, recorder *probe.Recorder, raw string) {
	line := strings.TrimSpace(raw)
	if line == "" || stringsutil.HasSuffixAny(line, "$", "#") {
		return
	}

	ts := probe.EventTime(result.StartTime, line, time.Now())
	class := probe.Classify(line)

	switch class {
	case probe.ClassSuccess:
		if streak := result.RecordSuccess(ts, line); streak > 0 {
			o.notifier.Recovered(result, streak)
		}
	case probe.ClassLoss:
		streak := result.RecordLoss(ts, line)
		switch {
		case streak == 1:
			o.notifier.LossStarted(result)
		case streak%lossNotifyEvery == 0:
			o.notifier.LossContinuing(result, streak)
		}
	default:
		result.RecordOther(ts, line)
	}

	if recorder != nil {
		recorder.WriteLine(line, class == probe.ClassLoss)
	}
}

// recordStreamError keeps a transport failure in the output history so
// the report shows why a session ended early. The synthetic line never
// touches the probe counters.
func (o *Orchestrator) recordStreamError(result *probe.Result, recorder *probe.Recorder, err error) {
	line := fmt.Sprintf("stream error: %s", err)
	gologger.Error().Msgf("%s -> %s: %s", result.ServerAddress, result.Target, line)
	result.RecordOther(time.Now(), line)
	if recorder != nil {
		recorder.WriteLine(line, false)
	}
}
