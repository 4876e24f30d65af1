package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Inspect learner skill state",
}

var skillsListCmd = &cobra.Command{
	Use:   "list <student-id>",
	Short: "List a student's mastery per microskill",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		states, err := rt.store.ListSkillStates(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("list skill states: %w", err)
		}
		if jsonOutput(cmd) {
			return printJSON(states)
		}
		if len(states) == 0 {
			fmt.Printf("No skill state for %s.\n", args[0])
			return nil
		}

		fmt.Printf("%-28s  %7s  %5s  %6s  %6s  %8s  %-10s  %s\n",
			"Microskill", "Mastery", "Conf", "Band", "Streak", "Attempts", "Status", "Next review")
		fmt.Println(strings.Repeat("─", 100))
		for _, s := range states {
			review := "-"
			if s.NextReviewAt != nil {
				review = s.NextReviewAt.Local().Format("2006-01-02 15:04")
			}
			fmt.Printf("%-28s  %7.2f  %5.2f  %6s  %6d  %8d  %-10s  %s\n",
				truncate(s.MicroskillID, 28), s.Mastery, s.Confidence, s.Band,
				s.Streak, s.AttemptsTotal, s.Status, review)
		}
		return nil
	},
}

var skillsMisconceptionsCmd = &cobra.Command{
	Use:   "misconceptions",
	Short: "List detected misconceptions for a student and microskill",
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		skill, _ := cmd.Flags().GetString("skill")
		limit, _ := cmd.Flags().GetInt("limit")

		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		recs, err := rt.store.ListMisconceptions(cmd.Context(), student, skill, limit)
		if err != nil {
			return fmt.Errorf("list misconceptions: %w", err)
		}
		if jsonOutput(cmd) {
			return printJSON(recs)
		}
		if len(recs) == 0 {
			fmt.Println("No misconceptions detected.")
			return nil
		}

		fmt.Printf("%-19s  %-24s  %-24s  %-10s  %s\n", "Timestamp", "Question", "Code", "Classifier", "Conf")
		fmt.Println(strings.Repeat("─", 92))
		for _, r := range recs {
			fmt.Printf("%-19s  %-24s  %-24s  %-10s  %.2f\n",
				r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				truncate(r.QuestionID, 24), truncate(r.Code, 24), r.Classifier, r.Confidence)
		}
		return nil
	},
}

func init() {
	addPairFlags(skillsMisconceptionsCmd)
	skillsMisconceptionsCmd.Flags().IntP("limit", "n", 20, "Number of records to show")

	skillsCmd.AddCommand(skillsListCmd)
	skillsCmd.AddCommand(skillsMisconceptionsCmd)
}
