package probe

import (
	"context"
	"errors"

	"github.com/projectdiscovery/fleetping/pkg/inventory"
)

// ErrNoData reports that a session has no buffered output line right
// now. Callers sleep briefly and poll again.
var ErrNoData = errors.New("no data available")

// Session is one live remote probe: an interactive channel running a
// continuous ping whose output is consumed line by line.
//
// ReadLine never blocks. It returns ErrNoData while the remote side is
// quiet and io.EOF once the stream ended and every buffered line was
// consumed. SignalStop interrupts the remote command, the equivalent
// of typing Ctrl-C, so it can emit its closing statistics; the
// transport stays open for the drain that follows. Close is idempotent
// and safe on every cleanup path.
type Session interface {
	Hostname() string
	ReadLine() (string, error)
	SignalStop() error
	Close() error
}

// Dialer connects to a server and starts the probe toward target,
// retrying transient connect failures internally.
type Dialer interface {
	Dial(ctx context.Context, server inventory.Server, target string) (Session, error)
}
