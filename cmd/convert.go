package cmd

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lazy-sim/lazy-sim/sim/workload"
)

var (
	convertFromPath string
	convertFormat   string
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a script or scenario to another format",
	Long:  "Load a text script or a YAML/TOML scenario and re-encode it as yaml, toml or script. Output is written to stdout for piping.",
	Run: func(cmd *cobra.Command, args []string) {
		if err := convertScenario(convertFromPath, workload.Format(convertFormat), os.Stdin, os.Stdout); err != nil {
			logrus.Fatalf("Conversion failed: %v", err)
		}
	},
}

// convertScenario loads from (stdin when empty or "-") and writes it to out in format.
func convertScenario(from string, format workload.Format, stdin io.Reader, out io.Writer) error {
	var (
		sc  *workload.Scenario
		err error
	)
	if from == "" || from == "-" {
		sc, err = workload.ParseScript(stdin)
	} else {
		sc, err = workload.LoadScenario(from)
	}
	if err != nil {
		return err
	}
	return workload.WriteScenario(out, sc, format)
}

func init() {
	convertCmd.Flags().StringVar(&convertFromPath, "from", "", "Script or scenario file; reads a script from stdin when empty")
	convertCmd.Flags().StringVar(&convertFormat, "format", string(workload.FormatYAML), "Output format (yaml, toml, script)")

	rootCmd.AddCommand(convertCmd)
}
