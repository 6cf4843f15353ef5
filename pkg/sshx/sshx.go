// Package sshx drives remote probes over SSH: password authenticated
// connections with retry, an interactive shell for the probe command,
// and a non-blocking line reader over the session output.
package sshx

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/projectdiscovery/fleetping/pkg/inventory"
	"github.com/projectdiscovery/fleetping/pkg/probe"
	"github.com/projectdiscovery/gcache"
	"github.com/projectdiscovery/gologger"
	errorutil "github.com/projectdiscovery/utils/errors"
	"golang.org/x/crypto/ssh"
)

const (
	connectTimeout  = 15 * time.Second
	connectAttempts = 3

	// interrupt is the terminal interrupt character. Sending it over
	// the PTY makes the remote ping print its statistics and exit.
	interrupt = "\x03"

	lineBuffer  = 1024
	maxLineSize = 1024 * 1024
)

// ProbeCommand returns the remote command for one continuous probe.
// The -O flag makes iputils ping report unanswered probes as they
// happen instead of staying silent.
func ProbeCommand(target string) string {
	return fmt.Sprintf("ping %s -O", target)
}

// backoffFor returns the wait before the next connect attempt: 2s
// after the first failure, 4s after the second.
func backoffFor(attempt int) time.Duration {
	return time.Duration(attempt+1) * 2 * time.Second
}

// Dialer opens probe sessions over SSH. Hostname lookups are cached by
// server address so several targets on one server resolve it once.
type Dialer struct {
	hostnames gcache.Cache[string, string]
}

// NewDialer returns a Dialer ready for concurrent use.
func NewDialer() *Dialer {
	return &Dialer{
		hostnames: gcache.New[string, string](1024).LRU().Expiration(time.Hour).Build(),
	}
}

// Dial connects to server, resolves its hostname, and starts a
// continuous ping toward target on an interactive shell.
func (d *Dialer) Dial(ctx context.Context, server inventory.Server, target string) (probe.Session, error) {
	client, err := d.connect(ctx, server)
	if err != nil {
		return nil, err
	}

	hostname := d.resolveHostname(client, server.Address)

	session, err := d.startProbe(client, target)
	if err != nil {
		client.Close()
		return nil, errorutil.NewWithErr(err).Msgf("could not start probe on %s", server.Address)
	}
	session.hostname = hostname
	return session, nil
}

// connect dials with retries, backing off between attempts so a
// briefly unreachable server still joins the run.
func (d *Dialer) connect(ctx context.Context, server inventory.Server) (*ssh.Client, error) {
	config := &ssh.ClientConfig{
		User:            server.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(server.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         connectTimeout,
	}
	address := net.JoinHostPort(server.Address, strconv.Itoa(server.Port))

	var lastErr error
	for attempt := 0; attempt < connectAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		client, err := ssh.Dial("tcp", address, config)
		if err == nil {
			return client, nil
		}
		lastErr = err
		if attempt < connectAttempts-1 {
			backoff := backoffFor(attempt)
			gologger.Verbose().Msgf("connect to %s failed (attempt %d/%d), retrying in %s: %s", address, attempt+1, connectAttempts, backoff, err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return nil, errorutil.NewWithErr(lastErr).Msgf("could not connect to %s after %d attempts", address, connectAttempts)
}

// resolveHostname asks the server for its own name, falling back to
// the dialed address when the lookup fails.
func (d *Dialer) resolveHostname(client *ssh.Client, address string) string {
	if name, err := d.hostnames.Get(address); err == nil && name != "" {
		return name
	}

	session, err := client.NewSession()
	if err != nil {
		return address
	}
	defer session.Close()

	out, err := session.Output("hostname")
	if err != nil {
		return address
	}
	name := strings.TrimSpace(string(out))
	if name == "" {
		return address
	}
	_ = d.hostnames.Set(address, name)
	return name
}

func (d *Dialer) startProbe(client *ssh.Client, target string) (*Session, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, err
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("xterm", 40, 120, modes); err != nil {
		session.Close()
		return nil, err
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, err
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, err
	}
	if err := session.Shell(); err != nil {
		session.Close()
		return nil, err
	}

	if _, err := fmt.Fprintf(stdin, "%s\n", ProbeCommand(target)); err != nil {
		session.Close()
		return nil, err
	}

	s := &Session{
		client:  client,
		session: session,
		stdin:   stdin,
		lines:   make(chan string, lineBuffer),
	}
	go s.pump(stdout)
	return s, nil
}

// Session is one remote probe shell. It implements probe.Session.
type Session struct {
	client   *ssh.Client
	session  *ssh.Session
	stdin    io.WriteCloser
	hostname string

	lines chan string

	mu      sync.Mutex
	closed  bool
	readErr error
}

// Hostname returns the server identity resolved at connect time.
func (s *Session) Hostname() string {
	return s.hostname
}

// ReadLine returns the next buffered output line without blocking. It
// returns probe.ErrNoData while the remote side is quiet and io.EOF
// once the stream ended and the buffer is empty.
func (s *Session) ReadLine() (string, error) {
	select {
	case line, ok := <-s.lines:
		if !ok {
			s.mu.Lock()
			err := s.readErr
			s.mu.Unlock()
			if err != nil {
				return "", err
			}
			return "", io.EOF
		}
		return line, nil
	default:
		return "", probe.ErrNoData
	}
}

// SignalStop interrupts the remote ping so it prints its statistics.
// The transport stays open for the drain that follows.
func (s *Session) SignalStop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	_, err := io.WriteString(s.stdin, interrupt)
	return err
}

// Close tears down the channel and the connection. Cleanup errors are
// logged, never returned, and repeated calls are no-ops.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.session.Close(); err != nil && err != io.EOF {
		gologger.Debug().Msgf("closing probe channel: %s", err)
	}
	if err := s.client.Close(); err != nil {
		gologger.Debug().Msgf("closing ssh connection: %s", err)
	}
	return nil
}

// pump moves stdout lines into the read buffer until the stream ends.
// When the buffer is full the line is dropped rather than blocking, so
// the pump always winds down once the session closes.
func (s *Session) pump(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 4096), maxLineSize)
	for scanner.Scan() {
		select {
		case s.lines <- scanner.Text():
		default:
			gologger.Debug().Msgf("probe output buffer full, dropping line")
		}
	}
	if err := scanner.Err(); err != nil {
		s.mu.Lock()
		if !s.closed {
			s.readErr = err
		}
		s.mu.Unlock()
	}
	close(s.lines)
}
