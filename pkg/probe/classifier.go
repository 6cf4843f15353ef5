package probe

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Class is the outcome of classifying one line of probe output.
type Class int

const (
	// ClassOther marks lines that are neither a reply nor a loss
	// indication, such as the ping preamble or its closing statistics.
	ClassOther Class = iota
	// ClassSuccess marks a reply line, for example
	// "64 bytes from 10.0.0.1: icmp_seq=3 ttl=63 time=0.52 ms".
	ClassSuccess
	// ClassLoss marks a missed probe, for example
	// "no answer yet for icmp_seq=4" or a timeout variant.
	ClassLoss
)

const (
	successMarker = "bytes from"
	lossMarker    = "no answer yet"
)

// icmpSeqRe matches the sequence counter carried by both reply and
// loss lines.
var icmpSeqRe = regexp.MustCompile(`icmp_seq[=:](\d+)`)

// Classify buckets a single line of remote ping output. The success
// marker is checked first, so a line carrying both markers counts as a
// reply.
func Classify(line string) Class {
	if strings.Contains(line, successMarker) {
		return ClassSuccess
	}
	if strings.Contains(line, lossMarker) || strings.Contains(strings.ToLower(line), "timeout") {
		return ClassLoss
	}
	return ClassOther
}

// SequenceNumber extracts the icmp_seq counter from a line, returning
// 0 when the line carries none.
func SequenceNumber(line string) int {
	match := icmpSeqRe.FindStringSubmatch(line)
	if match == nil {
		return 0
	}
	seq, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return seq
}

// EventTime maps a line to the moment its probe was sent. ping emits
// one probe per second with icmp_seq=1 aligned to the session start,
// so the sequence number pins the event even when transport buffering
// delays the read. Lines without a sequence number keep the
// observation time.
func EventTime(sessionStart time.Time, line string, observed time.Time) time.Time {
	if seq := SequenceNumber(line); seq > 0 {
		return sessionStart.Add(time.Duration(seq-1) * time.Second)
	}
	return observed
}
