// Package cli implements the connectivity-watchdog command line.
package cli

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/amartya2002/connectivity-watchdog/internal/config"
	"github.com/amartya2002/connectivity-watchdog/internal/connman"
	"github.com/amartya2002/connectivity-watchdog/internal/metrics"
	"github.com/amartya2002/connectivity-watchdog/internal/statusapi"
	"github.com/amartya2002/connectivity-watchdog/internal/supervisor"
	"github.com/amartya2002/connectivity-watchdog/watchdog"
)

var rootCmd = &cobra.Command{
	Use:   "connectivity-watchdog",
	Short: "Restart the network service when internet connectivity is lost",
	Long: `connectivity-watchdog periodically checks that at least one of the
configured URLs is reachable, through the proxy of the active network
service if one is set.

After connectivity has been established once, max-num-failures
consecutive failed rounds make the watchdog restart the network service.
Recent ConnMan service property changes postpone checks for
setting-change-delay seconds so that reconfiguration is not mistaken for
an outage.

Every option can also be given in a YAML file passed with --config;
flags given on the command line take precedence.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runWatchdog,
}

var flagConfigPath string

// flagValues collects flag targets; only flags the user set are merged
// over the config file.
var flagValues config.Config

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flagConfigPath, "config", "", "YAML configuration file")
	f.StringArrayVar(&flagValues.CheckURLs, "check-url", nil, "URL to check; flag can be repeated multiple times")
	f.Float64Var(&flagValues.CheckInterval, "check-interval", 0, "seconds between checks")
	f.IntVar(&flagValues.MaxNumFailures, "max-num-failures", 0, "consecutive failed rounds before restarting the network service")
	f.Float64Var(&flagValues.CheckURLTimeout, "check-url-timeout", 0, "timeout in seconds for a single URL check")
	f.Float64Var(&flagValues.SettingChangeDelay, "setting-change-delay", 0, "seconds to wait after a network setting change")
	f.BoolVar(&flagValues.Debug, "debug", false, "enable debug logging")
	f.StringVar(&flagValues.RestartCommand, "restart-command", supervisor.DefaultRestartCommand, "shell command restarting the network service")
	f.StringArrayVar(&flagValues.IgnoredProperties, "ignore-property", nil, "service property whose changes are ignored; repeatable (default Strength)")
	f.StringVar(&flagValues.UserAgent, "user-agent", watchdog.DefaultUserAgent, "User-Agent header of check requests")
	f.StringVar(&flagValues.StatusListen, "status-listen", "", "address of the status API, e.g. 127.0.0.1:9099 (disabled when empty)")
	f.StringArrayVar(&flagValues.LogFiles, "log-file", nil, "additional log file; repeatable")
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func runWatchdog(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}

	logger := watchdog.NewLogger(watchdog.LogOptions{Debug: cfg.Debug, Files: cfg.LogFiles})
	defer func() { _ = logger.Sync() }()

	bus, err := connman.Dial(logger)
	if err != nil {
		return err
	}
	defer bus.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	w, err := watchdog.New(cfg.Watchdog(),
		watchdog.WithLogger(logger),
		watchdog.WithServiceLister(bus),
		watchdog.WithSubscriber(bus),
		watchdog.WithRecoverer(supervisor.New(cfg.RestartCommand, logger)),
		watchdog.WithRecorder(metrics.New(reg)),
	)
	if err != nil {
		return err
	}

	if cfg.StatusListen != "" {
		statusapi.Serve(cfg.StatusListen, statusapi.NewRouter(w, reg), logger)
	}

	return w.Run(cmd.Context())
}

// loadConfig reads --config if given and overlays the flags that were
// set explicitly, then validates and normalizes the result.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	cfg := &config.Config{}
	if flagConfigPath != "" {
		loaded, err := config.Load(flagConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	mergeFlags(cfg, &flagValues, flags)

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	config.Normalize(cfg)
	return cfg, nil
}

func mergeFlags(dst, src *config.Config, flags *pflag.FlagSet) {
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("check-url", func() { dst.CheckURLs = src.CheckURLs })
	set("check-interval", func() { dst.CheckInterval = src.CheckInterval })
	set("max-num-failures", func() { dst.MaxNumFailures = src.MaxNumFailures })
	set("check-url-timeout", func() { dst.CheckURLTimeout = src.CheckURLTimeout })
	set("setting-change-delay", func() { dst.SettingChangeDelay = src.SettingChangeDelay })
	set("debug", func() { dst.Debug = src.Debug })
	set("ignore-property", func() { dst.IgnoredProperties = src.IgnoredProperties })
	set("status-listen", func() { dst.StatusListen = src.StatusListen })
	set("log-file", func() { dst.LogFiles = src.LogFiles })

	// Flags with defaults also apply when the file leaves them empty.
	if flags.Changed("restart-command") || dst.RestartCommand == "" {
		dst.RestartCommand = src.RestartCommand
	}
	if flags.Changed("user-agent") || dst.UserAgent == "" {
		dst.UserAgent = src.UserAgent
	}
}
