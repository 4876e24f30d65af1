package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var mergeGuestCmd = &cobra.Command{
	Use:   "merge-guest <guest-id> <student-id>",
	Short: "Fold a guest's skill progress into a student account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		res, err := rt.engine.MergeGuest(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(res)
		}
		if !res.Merged {
			fmt.Printf("Nothing merged (%s).\n", res.Reason)
			return nil
		}
		fmt.Printf("Merged %d skill rows from %s into %s.\n", res.MergedSkillRows, res.GuestStudentID, res.StudentID)
		return nil
	},
}
