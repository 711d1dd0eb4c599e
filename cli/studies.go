package cli

import (
	"github.com/spf13/cobra"
	"github.com/systragroup/SG-DataDashboard/engine/infra/server"
	"github.com/systragroup/SG-DataDashboard/engine/study"
	"github.com/systragroup/SG-DataDashboard/engine/study/uc"
	"github.com/systragroup/SG-DataDashboard/pkg/config"
)

// StudiesCmd groups the catalog inspection commands.
func StudiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "studies",
		Short: "Inspect the study catalog",
	}
	cmd.AddCommand(studiesListCmd())
	return cmd
}

func studiesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered studies",
		Args:  cobra.NoArgs,
		RunE:  runStudiesList,
	}
	cmd.Flags().Bool("visible", false, "Only list studies shown on the dashboard")
	cmd.Flags().StringP("output", "o", "", "Output format (json or table)")
	return cmd
}

func runStudiesList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	format, err := DetectOutputFormat(cmd)
	if err != nil {
		return err
	}
	visibleOnly, err := cmd.Flags().GetBool("visible")
	if err != nil {
		return err
	}
	state, cleanup, err := server.SetupDependencies(ctx, config.FromContext(ctx))
	if err != nil {
		return err
	}
	defer cleanup()
	studies, err := uc.NewListStudies(state.Studies, study.ListFilter{VisibleOnly: visibleOnly}).Execute(ctx)
	if err != nil {
		return err
	}
	if studies == nil {
		studies = []*study.Study{}
	}
	if format == OutputFormatJSON {
		return writeJSON(cmd.OutOrStdout(), studies)
	}
	writeStudiesTable(cmd.OutOrStdout(), studies)
	return nil
}
