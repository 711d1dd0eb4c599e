package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/systragroup/SG-DataDashboard/engine/study"
)

// Output format constants
const (
	OutputFormatJSON  = "json"
	OutputFormatTable = "table"
)

// isRunningInCI checks if we're running in a CI/CD environment
func isRunningInCI() bool {
	if os.Getenv("CI") != "" {
		return true
	}
	return hasAnyEnvVar([]string{
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"JENKINS_URL",
		"BUILDKITE",
		"TF_BUILD",
		"CONTINUOUS_INTEGRATION",
	})
}

func hasAnyEnvVar(vars []string) bool {
	for _, v := range vars {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

func isInteractiveEnvironment() bool {
	if isRunningInCI() {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// DetectOutputFormat honors --output and otherwise prints tables on a
// terminal and JSON everywhere else.
func DetectOutputFormat(cmd *cobra.Command) (string, error) {
	format, err := cmd.Flags().GetString("output")
	if err != nil {
		return "", fmt.Errorf("failed to get output flag: %w", err)
	}
	switch format {
	case OutputFormatJSON, OutputFormatTable:
		return format, nil
	case "":
		if isInteractiveEnvironment() {
			return OutputFormatTable, nil
		}
		return OutputFormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use %s or %s)", format, OutputFormatJSON, OutputFormatTable)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeStudiesTable renders one row per study.
func writeStudiesTable(w io.Writer, studies []*study.Study) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Name", "Lat", "Lon", "Visible", "Created"})
	for _, s := range studies {
		t.AppendRow(table.Row{
			s.ID,
			s.Name,
			fmt.Sprintf("%.5f", s.Lat),
			fmt.Sprintf("%.5f", s.Lon),
			s.Visible,
			humanize.Time(s.CreatedAt),
		})
	}
	t.SetCaption("%d studies", len(studies))
	t.Render()
}
