package cmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lazy-sim/lazy-sim/sim"
	"github.com/lazy-sim/lazy-sim/sim/trace"
	"github.com/lazy-sim/lazy-sim/sim/workload"
)

var (
	// CLI flags for the run command
	scriptPath  string        // Script or scenario file; empty or "-" reads a text script from stdin
	configPath  string        // YAML/TOML config overlaid on the script header
	logLevel    string        // Log verbosity level
	logFormat   string        // text or json
	tick        time.Duration // Wall-clock length of one virtual second
	stagger     time.Duration // Pause between worker launches
	maxUsers    int           // Occupancy cap override
	waitTimeout int64         // Wait timeout override (virtual seconds)
	traceLevel  string        // Transition trace level
	traceOut    string        // File to write the transition trace to (YAML)
	summarize   bool          // Print the trace summary after the metrics
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "lazy-sim",
	Short: "Simulator for concurrent read/write/delete access to shared files",
}

// runOptions carries everything the run command needs, so it can be driven from tests.
type runOptions struct {
	ScriptPath  string
	ConfigPath  string
	Tick        *time.Duration
	Stagger     *time.Duration
	MaxUsers    *int
	WaitTimeout *int64
	TraceLevel  string
	TraceOut    string
	Summarize   bool
}

// runCmd executes the simulation for one script
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the file-access simulation",
	Run: func(cmd *cobra.Command, args []string) {
		if err := setupLogging(logLevel, logFormat); err != nil {
			logrus.Fatalf("%v", err)
		}

		opts := runOptions{
			ScriptPath: scriptPath,
			ConfigPath: configPath,
			TraceLevel: traceLevel,
			TraceOut:   traceOut,
			Summarize:  summarize,
		}
		// Only flags the user actually set override file values.
		if cmd.Flags().Changed("tick") {
			opts.Tick = &tick
		}
		if cmd.Flags().Changed("stagger") {
			opts.Stagger = &stagger
		}
		if cmd.Flags().Changed("max-users") {
			opts.MaxUsers = &maxUsers
		}
		if cmd.Flags().Changed("timeout") {
			opts.WaitTimeout = &waitTimeout
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := runSimulation(ctx, opts, os.Stdin, os.Stdout); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

// setupLogging applies the level and formatter to the standard logrus logger.
func setupLogging(level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level: %s", level)
	}
	logrus.SetLevel(lvl)
	switch format {
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("invalid log format %q (want text or json)", format)
	}
	return nil
}

// loadRunScenario reads the scenario and applies the config file and flag overrides, in that order.
func loadRunScenario(opts runOptions, stdin io.Reader) (*workload.Scenario, error) {
	var (
		sc  *workload.Scenario
		err error
	)
	if opts.ScriptPath == "" || opts.ScriptPath == "-" {
		sc, err = workload.ParseScript(stdin)
	} else {
		sc, err = workload.LoadScenario(opts.ScriptPath)
	}
	if err != nil {
		return nil, err
	}

	if opts.ConfigPath != "" {
		if err := sim.DecodeFile(opts.ConfigPath, &sc.Config); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}
	if opts.Tick != nil {
		sc.Config.Tick = sim.Duration{Duration: *opts.Tick}
	}
	if opts.Stagger != nil {
		sc.Config.Stagger = sim.Duration{Duration: *opts.Stagger}
	}
	if opts.MaxUsers != nil {
		sc.Config.MaxConcurrentUsers = *opts.MaxUsers
	}
	if opts.WaitTimeout != nil {
		sc.Config.WaitTimeout = *opts.WaitTimeout
	}
	return sc, nil
}

// runSimulation runs one scenario and writes the metrics report (and optional
// trace summary) to out.
func runSimulation(ctx context.Context, opts runOptions, stdin io.Reader, out io.Writer) error {
	sc, err := loadRunScenario(opts, stdin)
	if err != nil {
		return err
	}
	level := trace.TraceLevel(opts.TraceLevel)
	if level == "" {
		level = trace.TraceLevelNone
	}
	if (opts.TraceOut != "" || opts.Summarize) && level == trace.TraceLevelNone {
		level = trace.TraceLevelTransitions
	}

	s, err := sim.NewSimulator(sc.Config, sc.SimRequests(), level)
	if err != nil {
		return err
	}
	logrus.Infof("Run %s: %d request(s) over %d file(s)", s.RunID, len(sc.Requests), sc.Config.ResourceCount)

	_, runErr := s.Run(ctx)
	logrus.Infof("Run %s: wait p99=%.3fs max=%.3fs", s.RunID, s.Metrics.WaitQuantile(99), s.Metrics.MaxWait())
	s.Metrics.Print(out)

	if opts.Summarize {
		printTraceSummary(out, trace.Summarize(s.Trace))
	}
	if opts.TraceOut != "" {
		if err := writeTrace(opts.TraceOut, s.Trace); err != nil {
			return err
		}
		logrus.Infof("Trace written to %s", opts.TraceOut)
	}
	return runErr
}

// traceFile is the on-disk layout of a transition trace.
type traceFile struct {
	Config      trace.TraceConfig        `yaml:"config"`
	Transitions []trace.TransitionRecord `yaml:"transitions"`
}

func writeTrace(path string, st *trace.SimulationTrace) error {
	data, err := yaml.Marshal(traceFile{Config: st.Config, Transitions: st.Records()})
	if err != nil {
		return fmt.Errorf("YAML marshal failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}
	return nil
}

func printTraceSummary(w io.Writer, summary *trace.TraceSummary) {
	fmt.Fprintln(w, "=== Trace Summary ===")
	fmt.Fprintf(w, "Arrivals             : %d\n", summary.TotalArrivals)
	fmt.Fprintf(w, "Served               : %d\n", summary.ServedCount)
	fmt.Fprintf(w, "Declined             : %d\n", summary.DeclinedCount)
	fmt.Fprintf(w, "Canceled             : %d\n", summary.CanceledCount)
	fmt.Fprintf(w, "Files touched        : %d\n", summary.UniqueFiles)
	files := make(map[int]bool)
	for id := range summary.ServedPerFile {
		files[id] = true
	}
	for id := range summary.PeakReaders {
		files[id] = true
	}
	for _, id := range slices.Sorted(maps.Keys(files)) {
		fmt.Fprintf(w, "  file %d: served=%d peak_readers=%d\n", id+1, summary.ServedPerFile[id], summary.PeakReaders[id])
	}
	if len(summary.ExclusionFaults) > 0 {
		fmt.Fprintf(w, "Exclusion faults     : %d\n", len(summary.ExclusionFaults))
		for _, f := range summary.ExclusionFaults {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	defaults := sim.DefaultConfig()

	runCmd.Flags().StringVar(&scriptPath, "script", "", "Script (.txt) or scenario (.yaml/.toml) file; reads a script from stdin when empty")
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML or TOML config overriding the script header")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")

	runCmd.Flags().DurationVar(&tick, "tick", defaults.Tick.Duration, "Wall-clock length of one virtual second")
	runCmd.Flags().DurationVar(&stagger, "stagger", defaults.Stagger.Duration, "Pause between worker launches")
	runCmd.Flags().IntVar(&maxUsers, "max-users", 0, "Override the per-file occupancy cap")
	runCmd.Flags().Int64Var(&waitTimeout, "timeout", 0, "Override the wait timeout (virtual seconds)")

	runCmd.Flags().StringVar(&traceLevel, "trace", string(trace.TraceLevelNone), "Transition trace level (none, transitions)")
	runCmd.Flags().StringVar(&traceOut, "trace-out", "", "Write the transition trace to this YAML file")
	runCmd.Flags().BoolVar(&summarize, "summary", false, "Print a trace summary after the metrics")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
