package runner

import (
	"os"

	"github.com/logrusorgru/aurora/v4"
	"github.com/projectdiscovery/fleetping/pkg/version"
	"github.com/projectdiscovery/goflags"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/formatter"
	"github.com/projectdiscovery/gologger/levels"
	fileutil "github.com/projectdiscovery/utils/file"
	updateutils "github.com/projectdiscovery/utils/update"
)

var au *aurora.Aurora

// Options contains the configuration for a probing run.
type Options struct {
	Inventory string              `yaml:"inventory"`
	Servers   goflags.StringSlice `yaml:"servers"`
	Targets   goflags.StringSlice `yaml:"targets"`

	ConfigFile string `yaml:"-"`
	OutputDir  string `yaml:"output"`
	Duration   int    `yaml:"duration"`

	MaxConcurrency int `yaml:"concurrency"`
	Stagger        int `yaml:"stagger"`

	Preflight bool `yaml:"preflight"`

	Version            bool `yaml:"-"`
	Verbose            bool `yaml:"verbose"`
	Silent             bool `yaml:"silent"`
	NoColor            bool `yaml:"no-color"`
	DisableUpdateCheck bool `yaml:"-"`
}

// ParseOptions parses the command line flags provided by a user.
func ParseOptions() *Options {
	options := &Options{}

	flagSet := goflags.NewFlagSet()
	flagSet.SetDescription(`fleetping opens SSH sessions across a server fleet and runs continuous
reachability probes from every server toward its targets, reporting packet
loss as it happens.`)

	flagSet.CreateGroup("input", "Input",
		flagSet.StringVarP(&options.Inventory, "inventory", "l", "", "inventory file with server records (yaml, json, or ansible style ini)"),
		flagSet.StringSliceVarP(&options.Servers, "server", "s", nil, "server to probe from as user:pass@host:port (comma separated)", goflags.CommaSeparatedStringSliceOptions),
		flagSet.StringSliceVarP(&options.Targets, "targets", "t", nil, "targets for servers that specify none of their own (comma separated)", goflags.CommaSeparatedStringSliceOptions),
	)

	flagSet.CreateGroup("config", "Config",
		flagSet.StringVar(&options.ConfigFile, "config", "", "path to the fleetping configuration file"),
		flagSet.StringVarP(&options.OutputDir, "output", "o", "results", "directory for session logs and the final report"),
		flagSet.IntVarP(&options.Duration, "duration", "d", 0, "run duration in seconds (0 probes until interrupted)"),
	)

	flagSet.CreateGroup("rate-limit", "Rate-limit",
		flagSet.IntVarP(&options.MaxConcurrency, "concurrency", "c", 0, "maximum concurrent ssh sessions (default derived from system limits)"),
		flagSet.IntVar(&options.Stagger, "stagger", 300, "pause between session launches in milliseconds"),
	)

	flagSet.CreateGroup("probe", "Probe",
		flagSet.BoolVarP(&options.Preflight, "preflight", "pf", false, "icmp ping every server from this host before connecting"),
	)

	flagSet.CreateGroup("debug", "Debug",
		flagSet.BoolVar(&options.Version, "version", false, "show version of the project"),
		flagSet.BoolVarP(&options.Verbose, "verbose", "v", false, "show verbose output"),
		flagSet.BoolVar(&options.Silent, "silent", false, "show only results in output"),
		flagSet.BoolVarP(&options.NoColor, "no-color", "nc", false, "disable output content coloring (ANSI escape codes)"),
		flagSet.BoolVarP(&options.DisableUpdateCheck, "disable-update-check", "duc", false, "disable automatic fleetping update check"),
	)

	if err := flagSet.Parse(); err != nil {
		gologger.Fatal().Msgf("could not parse flags: %s\n", err)
	}

	au = aurora.New(aurora.WithColors(true))

	options.configureOutput()

	showBanner()

	if options.Version {
		gologger.Info().Msgf("Current Version: %s\n", version.GetVersion())
		os.Exit(0)
	}

	if !options.DisableUpdateCheck {
		latestVersion, err := updateutils.GetToolVersionCallback("fleetping", version.GetVersion())()
		if err != nil {
			if options.Verbose {
				gologger.Error().Msgf("fleetping version check failed: %v", err.Error())
			}
		} else {
			gologger.Info().Msgf("Current fleetping version %v %v", version.GetVersion(), updateutils.GetVersionDescription(version.GetVersion(), latestVersion))
		}
	}

	if options.ConfigFile != "" {
		if err := options.loadConfigFrom(options.ConfigFile); err != nil {
			gologger.Error().Msgf("could not read config file %s: %s", options.ConfigFile, err)
		}
	}

	return options
}

// configureOutput configures the output on the screen.
func (options *Options) configureOutput() {
	if options.Verbose {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelVerbose)
	}
	if options.NoColor {
		gologger.DefaultLogger.SetFormatter(formatter.NewCLI(true))
		au = aurora.New(aurora.WithColors(false))
	}
	if options.Silent {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelSilent)
	}
}

func (options *Options) loadConfigFrom(location string) error {
	data, err := os.ReadFile(location)
	if err != nil {
		return err
	}
	return fileutil.Unmarshal(fileutil.YAML, data, options)
}
