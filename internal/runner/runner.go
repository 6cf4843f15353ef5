package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kr/pretty"
	"github.com/logrusorgru/aurora/v4"
	"github.com/projectdiscovery/fleetping/internal/fleetx"
	"github.com/projectdiscovery/fleetping/pkg/inventory"
	"github.com/projectdiscovery/fleetping/pkg/preflight"
	"github.com/projectdiscovery/fleetping/pkg/probe"
	"github.com/projectdiscovery/fleetping/pkg/report"
	"github.com/projectdiscovery/fleetping/pkg/sshx"
	"github.com/projectdiscovery/gologger"
	errorutil "github.com/projectdiscovery/utils/errors"
	fileutil "github.com/projectdiscovery/utils/file"
	sliceutil "github.com/projectdiscovery/utils/slice"
	"github.com/rs/xid"
)

// Runner contains the internal logic of the program: it loads the
// fleet, drives one probing run, and writes the report.
type Runner struct {
	options *Options
	runID   string
}

// NewRunner instance.
func NewRunner(options *Options) (*Runner, error) {
	if err := validateOptions(options); err != nil {
		return nil, err
	}
	if au == nil {
		au = aurora.New(aurora.WithColors(!options.NoColor))
	}
	return &Runner{
		options: options,
		runID:   fmt.Sprintf("%s_%s", time.Now().Format("20060102_150405"), xid.New().String()),
	}, nil
}

func validateOptions(options *Options) error {
	if options.Inventory == "" && len(options.Servers) == 0 {
		return errors.New("no input provided, pass -inventory or -server")
	}
	if options.Duration < 0 {
		return errors.New("duration must not be negative")
	}
	if options.OutputDir == "" {
		options.OutputDir = "results"
	}
	return nil
}

// Close releases runner resources.
func (r *Runner) Close() {}

// Run executes a probing run end to end: inventory, optional
// preflight, the orchestrated probe sessions, and the final report.
// Cancel the context to stop the run early; the report is written
// either way.
func (r *Runner) Run(ctx context.Context) error {
	gologger.Verbose().Msgf("run options: %s", pretty.Sprint(r.options))

	servers, err := r.loadServers()
	if err != nil {
		return err
	}

	tasks := fleetx.ExpandTasks(servers)
	if len(tasks) == 0 {
		return errors.New("no probe tasks, every server record lacks targets")
	}
	gologger.Info().Msgf("loaded %d servers, %d probe tasks (run %s)", len(servers), len(tasks), r.runID)

	if r.options.Preflight {
		r.runPreflight(servers)
	}

	logDir := filepath.Join(r.options.OutputDir, "sessions", r.runID)
	if !fileutil.FolderExists(logDir) {
		if err := fileutil.CreateFolder(logDir); err != nil {
			return errorutil.NewWithErr(err).Msgf("could not create session log directory %s", logDir)
		}
	}

	orchestrator, err := fleetx.New(fleetx.Options{
		Tasks:          tasks,
		Dialer:         sshx.NewDialer(),
		Notifier:       probe.NewConsoleNotifier(r.options.NoColor),
		LogDir:         logDir,
		MaxConcurrency: r.options.MaxConcurrency,
		LaunchStagger:  time.Duration(r.options.Stagger) * time.Millisecond,
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		orchestrator.Stop()
	}()

	orchestrator.Start(ctx)

	if r.options.Duration > 0 {
		select {
		case <-orchestrator.Done():
		case <-time.After(time.Duration(r.options.Duration) * time.Second):
			gologger.Info().Msgf("run duration reached")
		}
	} else {
		orchestrator.WaitForCompletion()
	}
	orchestrator.Stop()

	return r.writeReport(orchestrator.Report(r.runID, len(servers)), logDir)
}

// loadServers merges the inventory file and any -server flag entries
// into one normalized fleet.
func (r *Runner) loadServers() ([]inventory.Server, error) {
	var servers []inventory.Server

	if r.options.Inventory != "" {
		loaded, err := inventory.Load(r.options.Inventory, r.options.Targets)
		if err != nil {
			return nil, errorutil.NewWithErr(err).Msgf("could not load inventory %s", r.options.Inventory)
		}
		servers = append(servers, loaded...)
	}

	if len(r.options.Servers) > 0 {
		parsed, err := inventory.ParseServerEntries(r.options.Servers, r.options.Targets)
		if err != nil {
			return nil, err
		}
		servers = append(servers, parsed...)
	}

	if len(servers) == 0 {
		return nil, errors.New("no usable server records")
	}
	return servers, nil
}

// runPreflight pings every server address from the local host and
// reports the unanswered ones. Unanswered servers are still probed:
// ICMP filtered on the path from here says nothing about SSH.
func (r *Runner) runPreflight(servers []inventory.Server) {
	addresses := make([]string, 0, len(servers))
	for _, server := range servers {
		addresses = append(addresses, server.Address)
	}
	addresses = sliceutil.Dedupe(addresses)

	gologger.Info().Msgf("preflight: probing %d server addresses over ICMP", len(addresses))
	outcomes, err := preflight.Run(addresses)
	if err != nil {
		gologger.Warning().Msgf("preflight skipped: %s", err)
		return
	}
	if unreachable := preflight.Review(outcomes); len(unreachable) > 0 {
		gologger.Warning().Msgf("preflight: %d/%d servers unanswered over ICMP, attempting SSH anyway: %s",
			len(unreachable), len(addresses), strings.Join(unreachable, ", "))
	} else {
		gologger.Info().Msgf("preflight: all %d servers answered", len(addresses))
	}
}

func (r *Runner) writeReport(rep *probe.Report, logDir string) error {
	reportPath := filepath.Join(r.options.OutputDir, fmt.Sprintf("ping_report_%s.txt", r.runID))
	if err := report.Write(rep, reportPath); err != nil {
		return errorutil.NewWithErr(err).Msgf("could not write report %s", reportPath)
	}

	withLoss := rep.WithLoss()
	if withLoss > 0 {
		gologger.Info().Msgf("sessions with packet loss: %s of %d", au.Red(withLoss), len(rep.Results))
	} else {
		gologger.Info().Msgf("sessions with packet loss: %s of %d", au.Green(withLoss), len(rep.Results))
	}
	gologger.Info().Msgf("report written to %s", reportPath)
	gologger.Info().Msgf("session logs under %s", logDir)
	return nil
}
