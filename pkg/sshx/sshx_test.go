package sshx

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/projectdiscovery/fleetping/pkg/probe"
)

func TestProbeCommand(t *testing.T) {
	if got, want := ProbeCommand("10.1.0.1"), "ping 10.1.0.1 -O"; got != want {
		t.Errorf("ProbeCommand() = %q, want %q", got, want)
	}
}

func TestBackoffFor(t *testing.T) {
	if got := backoffFor(0); got != 2*time.Second {
		t.Errorf("backoffFor(0) = %v, want 2s", got)
	}
	if got := backoffFor(1); got != 4*time.Second {
		t.Errorf("backoffFor(1) = %v, want 4s", got)
	}
}

func TestSessionReadLine(t *testing.T) {
	s := &Session{lines: make(chan string, 4)}

	// quiet stream
	if _, err := s.ReadLine(); !errors.Is(err, probe.ErrNoData) {
		t.Errorf("ReadLine() error = %v, want ErrNoData", err)
	}

	s.lines <- "64 bytes from 10.1.0.1: icmp_seq=1"
	s.lines <- "no answer yet for icmp_seq=2"

	if line, err := s.ReadLine(); err != nil || line != "64 bytes from 10.1.0.1: icmp_seq=1" {
		t.Errorf("ReadLine() = %q, %v", line, err)
	}
	if line, err := s.ReadLine(); err != nil || line != "no answer yet for icmp_seq=2" {
		t.Errorf("ReadLine() = %q, %v", line, err)
	}

	// closed stream drains to EOF
	close(s.lines)
	if _, err := s.ReadLine(); !errors.Is(err, io.EOF) {
		t.Errorf("ReadLine() error = %v, want EOF", err)
	}
	if _, err := s.ReadLine(); !errors.Is(err, io.EOF) {
		t.Errorf("ReadLine() repeated error = %v, want EOF", err)
	}
}

func TestSessionReadLineStreamError(t *testing.T) {
	s := &Session{lines: make(chan string, 1)}
	s.readErr = errors.New("connection reset")
	s.lines <- "last line"
	close(s.lines)

	if line, err := s.ReadLine(); err != nil || line != "last line" {
		t.Errorf("ReadLine() = %q, %v, want buffered line first", line, err)
	}
	if _, err := s.ReadLine(); err == nil || errors.Is(err, io.EOF) {
		t.Errorf("ReadLine() error = %v, want stream error", err)
	}
}
