package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lazy-sim/lazy-sim/sim/workload"
)

var (
	composeFromPaths []string
	composeFormat    string
)

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Merge multiple scenarios into one",
	Long:  "Load multiple scripts or scenarios and concatenate their request lists. The first file's config is kept. Output is written to stdout.",
	Run: func(cmd *cobra.Command, args []string) {
		if len(composeFromPaths) == 0 {
			logrus.Fatalf("at least one --from flag is required")
		}
		if err := composeScenarios(composeFromPaths, workload.Format(composeFormat), os.Stdout); err != nil {
			logrus.Fatalf("Compose failed: %v", err)
		}
	},
}

func composeScenarios(paths []string, format workload.Format, out io.Writer) error {
	var scenarios []*workload.Scenario
	for _, path := range paths {
		sc, err := workload.LoadScenario(path)
		if err != nil {
			return fmt.Errorf("failed to load scenario %s: %w", path, err)
		}
		if len(scenarios) > 0 && sc.Config.MaxConcurrentUsers != scenarios[0].Config.MaxConcurrentUsers {
			logrus.Warnf("%s: cap %d ignored, keeping %d from %s",
				path, sc.Config.MaxConcurrentUsers, scenarios[0].Config.MaxConcurrentUsers, paths[0])
		}
		scenarios = append(scenarios, sc)
	}

	merged, err := workload.ComposeScenarios(scenarios)
	if err != nil {
		return err
	}
	return workload.WriteScenario(out, merged, format)
}

func init() {
	composeCmd.Flags().StringArrayVar(&composeFromPaths, "from", nil, "Path to a script or scenario file (can be repeated)")
	composeCmd.Flags().StringVar(&composeFormat, "format", string(workload.FormatYAML), "Output format (yaml, toml, script)")
	_ = composeCmd.MarkFlagRequired("from")

	rootCmd.AddCommand(composeCmd)
}
