package probe

import (
	"github.com/logrusorgru/aurora/v4"
	"github.com/projectdiscovery/gologger"
)

// Notifier receives advisory loss and recovery signals while a session
// streams. Implementations must not touch the result counters: the
// durable state lives in Result and the session log.
type Notifier interface {
	// LossStarted fires on the first loss of a new streak.
	LossStarted(r *Result)
	// LossContinuing fires periodically while a streak keeps growing.
	LossContinuing(r *Result, streak int)
	// Recovered fires on the first reply after a streak, with the
	// length of the streak that just ended.
	Recovered(r *Result, streak int)
}

// NopNotifier discards all signals.
type NopNotifier struct{}

func (NopNotifier) LossStarted(*Result)         {}
func (NopNotifier) LossContinuing(*Result, int) {}
func (NopNotifier) Recovered(*Result, int)      {}

// NewConsoleNotifier returns a Notifier that reports through the
// default logger, colored unless noColor is set.
func NewConsoleNotifier(noColor bool) Notifier {
	return &consoleNotifier{au: aurora.New(aurora.WithColors(!noColor))}
}

type consoleNotifier struct {
	au *aurora.Aurora
}

func (n *consoleNotifier) LossStarted(r *Result) {
	gologger.Warning().Msgf("%s %s (%s) -> %s: packet loss started", n.au.Red("⚠"), r.ServerAddress, r.Hostname, r.Target)
}

func (n *consoleNotifier) LossContinuing(r *Result, streak int) {
	gologger.Warning().Msgf("%s %s (%s) -> %s: %d consecutive probes lost", n.au.Red("⚠"), r.ServerAddress, r.Hostname, r.Target, streak)
}

func (n *consoleNotifier) Recovered(r *Result, streak int) {
	gologger.Info().Msgf("%s %s (%s) -> %s: recovered after %d lost probes", n.au.Green("✓"), r.ServerAddress, r.Hostname, r.Target, streak)
}
