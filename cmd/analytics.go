package cmd

import (
	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/adaptly/internal/analytics"
	"github.com/abhisek/adaptly/internal/ui/report"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show the score breakdown for a student and microskill",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		q := analytics.Query{}
		q.StudentID, _ = cmd.Flags().GetString("student")
		q.MicroskillID, _ = cmd.Flags().GetString("skill")
		q.Limit, _ = cmd.Flags().GetInt("limit")
		q.DateFrom, _ = cmd.Flags().GetString("from")
		q.DateTo, _ = cmd.Flags().GetString("to")
		q.Phase, _ = cmd.Flags().GetString("phase")

		rep, err := rt.engine.ScoreBreakdown(cmd.Context(), q)
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(rep)
		}
		lipgloss.Println(report.Breakdown(rep))
		return nil
	},
}

func init() {
	addPairFlags(analyticsCmd)
	analyticsCmd.Flags().IntP("limit", "n", analytics.DefaultLimit, "Number of attempts to show")
	analyticsCmd.Flags().String("from", "", "First day to include (YYYY-MM-DD, UTC)")
	analyticsCmd.Flags().String("to", "", "Last day to include (YYYY-MM-DD, UTC)")
	analyticsCmd.Flags().String("phase", "", "Only attempts in this phase (warmup, core, challenge, recovery, done)")
}
