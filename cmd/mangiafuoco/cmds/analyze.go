package cmds

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/mangiafuoco/pkg/analyze"
)

var AnalyzeCmd = &cobra.Command{
	Use:   "analyze [directory]",
	Short: "Analyze a repository and suggest tasks to run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		directory := "."
		if len(args) > 0 {
			directory = args[0]
		}

		ignore, _ := cmd.Flags().GetStringSlice("ignore")
		analyzer, err := analyze.NewAnalyzer(directory, analyze.WithIgnorePatterns(ignore...))
		if err != nil {
			return err
		}
		report, err := analyzer.Analyze()
		if err != nil {
			return err
		}

		switch {
		case mustBool(cmd, "summary-only"):
			fmt.Print(report.Summary())
		case mustBool(cmd, "yaml"):
			return yaml.NewEncoder(os.Stdout).Encode(report)
		default:
			fmt.Print(report.Render())
		}
		return nil
	},
}

func init() {
	AnalyzeCmd.Flags().Bool("summary-only", false, "Show only a brief summary")
	AnalyzeCmd.Flags().Bool("yaml", false, "Output the full report as YAML")
	AnalyzeCmd.Flags().StringSlice("ignore", nil, "Additional directory glob patterns to ignore")
}
