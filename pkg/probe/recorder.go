package probe

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const recorderTimestampLayout = "2006-01-02 15:04:05.000"

var headerRule = strings.Repeat("=", 80)

// Recorder writes the durable log of a single probe session. Every
// line is flushed as it arrives so an interrupted run still leaves a
// readable log, and Close is safe to call more than once.
type Recorder struct {
	path string

	mu     sync.Mutex
	file   *os.File
	w      *bufio.Writer
	closed bool
}

// NewRecorder creates the session log under dir and writes the header
// block. The file name derives from the server and target addresses so
// every (server, target) pair of a run gets its own log.
func NewRecorder(dir string, r *Result) (*Recorder, error) {
	name := fmt.Sprintf("%s_to_%s.log", sanitizeAddress(r.ServerAddress), sanitizeAddress(r.Target))
	path := filepath.Join(dir, name)

	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	rec := &Recorder{path: path, file: file, w: bufio.NewWriter(file)}
	rec.writeHeader(r)
	r.SetLogPath(path)
	return rec, nil
}

// Path returns the log file location.
func (rec *Recorder) Path() string {
	return rec.path
}

// WriteLine appends one observed line. Loss lines carry a marker so
// they stand out when scanning the log.
func (rec *Recorder) WriteLine(line string, loss bool) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.closed {
		return
	}
	mark := ""
	if loss {
		mark = "⚠ "
	}
	fmt.Fprintf(rec.w, "[%s] %s%s\n", time.Now().Format(recorderTimestampLayout), mark, line)
	rec.w.Flush()
}

// Close writes the trailer block and releases the file. Repeated calls
// are no-ops.
func (rec *Recorder) Close() error {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.closed {
		return nil
	}
	rec.closed = true
	fmt.Fprintln(rec.w)
	fmt.Fprintln(rec.w, headerRule)
	fmt.Fprintf(rec.w, "Ended: %s\n", time.Now().Format(timestampLayout))
	fmt.Fprintln(rec.w, headerRule)
	rec.w.Flush()
	return rec.file.Close()
}

func (rec *Recorder) writeHeader(r *Result) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	fmt.Fprintln(rec.w, headerRule)
	fmt.Fprintln(rec.w, "Ping session log")
	fmt.Fprintln(rec.w, headerRule)
	fmt.Fprintf(rec.w, "Server: %s\n", r.ServerAddress)
	fmt.Fprintf(rec.w, "Hostname: %s\n", r.Hostname)
	fmt.Fprintf(rec.w, "Target: %s\n", r.Target)
	fmt.Fprintf(rec.w, "Started: %s\n", r.StartTime.Format(timestampLayout))
	fmt.Fprintln(rec.w, headerRule)
	fmt.Fprintln(rec.w)
	rec.w.Flush()
}

// sanitizeAddress makes an address safe as a file name component.
func sanitizeAddress(address string) string {
	address = strings.ReplaceAll(address, ".", "_")
	return strings.ReplaceAll(address, ":", "_")
}
