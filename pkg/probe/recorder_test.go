package probe

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestRecorder(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	r := NewResult("10.0.0.1", "edge-1", "10.1.0.1", start)

	rec, err := NewRecorder(dir, r)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	if want := "10_0_0_1_to_10_1_0_1.log"; !strings.HasSuffix(rec.Path(), want) {
		t.Errorf("Path() = %s, want suffix %s", rec.Path(), want)
	}
	if r.LogPath() != rec.Path() {
		t.Errorf("LogPath() = %s, want %s", r.LogPath(), rec.Path())
	}

	rec.WriteLine("64 bytes from 10.1.0.1: icmp_seq=1 ttl=63 time=0.5 ms", false)
	rec.WriteLine("no answer yet for icmp_seq=2", true)
	if err := rec.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// second close must not append a second trailer
	if err := rec.Close(); err != nil {
		t.Fatalf("Close() second call error = %v", err)
	}
	rec.WriteLine("late line after close", false)

	data, err := os.ReadFile(rec.Path())
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)

	for _, want := range []string{
		"Ping session log",
		"Server: 10.0.0.1",
		"Hostname: edge-1",
		"Target: 10.1.0.1",
		"Started: 2026-08-25 10:00:00",
		"64 bytes from 10.1.0.1",
		"⚠ no answer yet for icmp_seq=2",
		"Ended: ",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("session log missing %q", want)
		}
	}

	if strings.Contains(content, "late line after close") {
		t.Error("session log contains line written after close")
	}
	if got := strings.Count(content, "Ended: "); got != 1 {
		t.Errorf("session log has %d trailers, want 1", got)
	}
	if got := strings.Count(content, headerRule); got != 5 {
		t.Errorf("session log has %d rules, want 5 (three header, two trailer)", got)
	}
}

func TestRecorderBadDirectory(t *testing.T) {
	r := NewResult("10.0.0.1", "edge-1", "10.1.0.1", time.Now())
	if _, err := NewRecorder("/nonexistent/sessions", r); err == nil {
		t.Error("NewRecorder() expected error for missing directory")
	}
}

func TestSanitizeAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.0.0.1", "10_0_0_1"},
		{"fe80::1", "fe80__1"},
		{"edge-1.example.com", "edge-1_example_com"},
	}
	for _, tt := range tests {
		if got := sanitizeAddress(tt.in); got != tt.want {
			t.Errorf("sanitizeAddress(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
