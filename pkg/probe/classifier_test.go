package probe

import (
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Class
	}{
		{
			name: "reply line",
			line: "64 bytes from 10.0.0.1: icmp_seq=3 ttl=63 time=0.52 ms",
			want: ClassSuccess,
		},
		{
			name: "no answer yet",
			line: "no answer yet for icmp_seq=4",
			want: ClassLoss,
		},
		{
			name: "timeout lowercase",
			line: "request timeout for icmp_seq 7",
			want: ClassLoss,
		},
		{
			name: "timeout mixed case",
			line: "Request Timeout for icmp_seq 7",
			want: ClassLoss,
		},
		{
			name: "preamble",
			line: "PING 10.0.0.1 (10.0.0.1) 56(84) bytes of data.",
			want: ClassOther,
		},
		{
			name: "statistics header",
			line: "--- 10.0.0.1 ping statistics ---",
			want: ClassOther,
		},
		{
			name: "packet counts line mentions nothing known",
			line: "5 packets transmitted, 5 received, 0% packet loss, time 4005ms",
			want: ClassOther,
		},
		{
			name: "reply wins over loss markers",
			line: "64 bytes from 10.0.0.1: icmp_seq=9 ttl=63 time=1201 ms (timeout recovered)",
			want: ClassSuccess,
		},
		{
			name: "empty line",
			line: "",
			want: ClassOther,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.line); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestSequenceNumber(t *testing.T) {
	tests := []struct {
		name string
		line string
		want int
	}{
		{
			name: "equals form",
			line: "64 bytes from 10.0.0.1: icmp_seq=5 ttl=63 time=0.52 ms",
			want: 5,
		},
		{
			name: "colon form",
			line: "no answer yet for icmp_seq:12",
			want: 12,
		},
		{
			name: "no sequence",
			line: "PING 10.0.0.1 (10.0.0.1) 56(84) bytes of data.",
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SequenceNumber(tt.line); got != tt.want {
				t.Errorf("SequenceNumber(%q) = %d, want %d", tt.line, got, tt.want)
			}
		})
	}
}

func TestEventTime(t *testing.T) {
	start := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	observed := start.Add(42 * time.Second)

	// icmp_seq=5 was sent four seconds after the first probe
	got := EventTime(start, "no answer yet for icmp_seq=5", observed)
	if want := start.Add(4 * time.Second); !got.Equal(want) {
		t.Errorf("EventTime() = %v, want %v", got, want)
	}

	// lines without a sequence keep the observation time
	got = EventTime(start, "--- 10.0.0.1 ping statistics ---", observed)
	if !got.Equal(observed) {
		t.Errorf("EventTime() = %v, want observation time %v", got, observed)
	}
}
