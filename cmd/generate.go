package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lazy-sim/lazy-sim/sim"
	"github.com/lazy-sim/lazy-sim/sim/workload"
)

var (
	// CLI flags for the generate command
	genSeed          int64   // Seed for request generation
	genRequests      int     // Number of request lines
	genUsers         int     // Number of distinct users
	genHorizon       int64   // Latest arrival time (virtual seconds)
	genFiles         int     // Number of files
	genMaxUsers      int     // Per-file occupancy cap
	genTimeout       int64   // Wait timeout (virtual seconds)
	genReadDuration  int64   // READ service time
	genWriteDuration int64   // WRITE service time
	genDeleteDur     int64   // DELETE service time
	genReadWeight    float64 // Relative weight of READ
	genWriteWeight   float64 // Relative weight of WRITE
	genDeleteWeight  float64 // Relative weight of DELETE
	genInvalidRate   float64 // Fraction of requests aimed past the last file
	genFormat        string  // Output format
	genConfigPath    string  // Base config file; explicit flags override it
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a random script",
	Long:  "Synthesize a random request script from a seed. The same flags always produce the same script. Output is written to stdout.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := generateConfig(genConfigPath, cmd.Flags())
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		sc, err := workload.Generate(workload.GeneratorSpec{
			Seed:            genSeed,
			Config:          cfg,
			Requests:        genRequests,
			Users:           genUsers,
			Horizon:         genHorizon,
			Mix:             workload.OpMix{Read: genReadWeight, Write: genWriteWeight, Delete: genDeleteWeight},
			InvalidFileRate: genInvalidRate,
		})
		if err != nil {
			logrus.Fatalf("Generation failed: %v", err)
		}
		if err := workload.WriteScenario(os.Stdout, sc, workload.Format(genFormat)); err != nil {
			logrus.Fatalf("Writing scenario failed: %v", err)
		}
	},
}

// generateConfig returns the config embedded in a generated scenario: the file
// at path (or the defaults), then every config flag the user set explicitly.
// Without a file, unset flags still apply their own defaults.
func generateConfig(path string, flags *pflag.FlagSet) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = sim.LoadConfig(path); err != nil {
			return cfg, err
		}
	}
	apply := func(name string) bool { return path == "" || flags.Changed(name) }
	if apply("read-duration") {
		cfg.ReadDuration = genReadDuration
	}
	if apply("write-duration") {
		cfg.WriteDuration = genWriteDuration
	}
	if apply("delete-duration") {
		cfg.DeleteDuration = genDeleteDur
	}
	if apply("files") {
		cfg.ResourceCount = genFiles
	}
	if apply("max-users") {
		cfg.MaxConcurrentUsers = genMaxUsers
	}
	if apply("timeout") {
		cfg.WaitTimeout = genTimeout
	}
	return cfg, cfg.Validate()
}

func init() {
	generateCmd.Flags().StringVar(&genConfigPath, "config", "", "Base config file (.yaml or .toml); explicit flags override it")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 42, "Seed for random request generation")
	generateCmd.Flags().IntVar(&genRequests, "requests", 20, "Number of requests")
	generateCmd.Flags().IntVar(&genUsers, "users", 10, "Number of distinct users")
	generateCmd.Flags().Int64Var(&genHorizon, "horizon", 20, "Latest arrival time (virtual seconds)")

	generateCmd.Flags().IntVar(&genFiles, "files", 3, "Number of files")
	generateCmd.Flags().IntVar(&genMaxUsers, "max-users", 2, "Per-file occupancy cap")
	generateCmd.Flags().Int64Var(&genTimeout, "timeout", 5, "Wait timeout (virtual seconds)")
	generateCmd.Flags().Int64Var(&genReadDuration, "read-duration", 2, "READ service time (virtual seconds)")
	generateCmd.Flags().Int64Var(&genWriteDuration, "write-duration", 3, "WRITE service time (virtual seconds)")
	generateCmd.Flags().Int64Var(&genDeleteDur, "delete-duration", 1, "DELETE service time (virtual seconds)")

	generateCmd.Flags().Float64Var(&genReadWeight, "read-weight", workload.DefaultOpMix.Read, "Relative weight of READ")
	generateCmd.Flags().Float64Var(&genWriteWeight, "write-weight", workload.DefaultOpMix.Write, "Relative weight of WRITE")
	generateCmd.Flags().Float64Var(&genDeleteWeight, "delete-weight", workload.DefaultOpMix.Delete, "Relative weight of DELETE")
	generateCmd.Flags().Float64Var(&genInvalidRate, "invalid-file-rate", 0, "Fraction of requests aimed past the last file")
	generateCmd.Flags().StringVar(&genFormat, "format", string(workload.FormatScript), "Output format (yaml, toml, script)")

	rootCmd.AddCommand(generateCmd)
}
