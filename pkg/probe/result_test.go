package probe

import (
	"strings"
	"testing"
	"time"
)

func TestResultCounters(t *testing.T) {
	start := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	r := NewResult("10.0.0.1", "edge-1", "10.1.0.1", start)

	// reply, reply, loss, loss, reply: streaks must reset on recovery
	if streak := r.RecordSuccess(start, "64 bytes from 10.1.0.1: icmp_seq=1"); streak != 0 {
		t.Errorf("RecordSuccess() streak = %d, want 0", streak)
	}
	r.RecordSuccess(start.Add(time.Second), "64 bytes from 10.1.0.1: icmp_seq=2")
	if streak := r.RecordLoss(start.Add(2*time.Second), "no answer yet for icmp_seq=3"); streak != 1 {
		t.Errorf("RecordLoss() streak = %d, want 1", streak)
	}
	if streak := r.RecordLoss(start.Add(3*time.Second), "no answer yet for icmp_seq=4"); streak != 2 {
		t.Errorf("RecordLoss() streak = %d, want 2", streak)
	}
	if streak := r.RecordSuccess(start.Add(4*time.Second), "64 bytes from 10.1.0.1: icmp_seq=5"); streak != 2 {
		t.Errorf("RecordSuccess() ended streak = %d, want 2", streak)
	}
	r.RecordOther(start.Add(5*time.Second), "--- 10.1.0.1 ping statistics ---")

	if got := r.TotalProbes(); got != 5 {
		t.Errorf("TotalProbes() = %d, want 5", got)
	}
	if got := r.LostProbes(); got != 2 {
		t.Errorf("LostProbes() = %d, want 2", got)
	}
	if got := r.ConsecutiveLosses(); got != 0 {
		t.Errorf("ConsecutiveLosses() = %d, want 0", got)
	}
	if !r.HasLoss() {
		t.Error("HasLoss() = false, want true")
	}
	if got, want := r.LossRate(), 40.0; got != want {
		t.Errorf("LossRate() = %f, want %f", got, want)
	}
	if got := len(r.OutputLines()); got != 6 {
		t.Errorf("OutputLines() len = %d, want 6", got)
	}
	if got := len(r.LossLines()); got != 2 {
		t.Errorf("LossLines() len = %d, want 2", got)
	}
	if r.LostProbes() > r.TotalProbes() {
		t.Error("lost probes exceed total probes")
	}
}

func TestResultLossRateEmpty(t *testing.T) {
	r := NewResult("10.0.0.1", "edge-1", "10.1.0.1", time.Now())
	if got := r.LossRate(); got != 0 {
		t.Errorf("LossRate() = %f, want 0 for empty result", got)
	}
}

func TestResultLineFormat(t *testing.T) {
	ts := time.Date(2026, 8, 25, 10, 2, 3, 0, time.UTC)
	r := NewResult("10.0.0.1", "edge-1", "10.1.0.1", ts)
	r.RecordLoss(ts, "no answer yet for icmp_seq=1")

	lines := r.LossLines()
	if len(lines) != 1 {
		t.Fatalf("LossLines() len = %d, want 1", len(lines))
	}
	if !strings.HasPrefix(lines[0], "[2026-08-25 10:02:03] ") {
		t.Errorf("loss line %q missing timestamp prefix", lines[0])
	}
}

func TestResultFinalize(t *testing.T) {
	start := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	r := NewResult("10.0.0.1", "edge-1", "10.1.0.1", start)

	if r.Finished() {
		t.Error("Finished() = true before Finalize")
	}
	if _, ok := r.Duration(); ok {
		t.Error("Duration() valid before Finalize")
	}

	first := start.Add(90 * time.Second)
	if !r.Finalize(first) {
		t.Error("Finalize() first call = false, want true")
	}
	if r.Finalize(first.Add(time.Hour)) {
		t.Error("Finalize() second call = true, want false")
	}

	end, ok := r.EndTime()
	if !ok || !end.Equal(first) {
		t.Errorf("EndTime() = %v, %v, want %v kept from first call", end, ok, first)
	}
	if d, ok := r.Duration(); !ok || d != 90*time.Second {
		t.Errorf("Duration() = %v, %v, want 90s", d, ok)
	}
}
