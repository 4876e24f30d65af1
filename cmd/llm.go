package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect misconception-refinement model usage",
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregated LLM requests and token usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		since, _ := cmd.Flags().GetDuration("since")

		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		usage, err := rt.store.LLMUsageSince(cmd.Context(), time.Now().Add(-since))
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		if jsonOutput(cmd) {
			return printJSON(usage)
		}
		if len(usage) == 0 {
			fmt.Println("No LLM usage recorded yet.")
			return nil
		}

		fmt.Printf("%-10s  %-32s  %6s  %6s  %10s  %10s\n",
			"Provider", "Model", "Calls", "Failed", "Input", "Output")
		fmt.Println(strings.Repeat("─", 82))

		var calls, failed, in, out int
		for _, u := range usage {
			fmt.Printf("%-10s  %-32s  %6d  %6d  %10d  %10d\n",
				u.Provider, truncate(u.Model, 32), u.Requests, u.Failures, u.InputTokens, u.OutputTokens)
			calls += u.Requests
			failed += u.Failures
			in += u.InputTokens
			out += u.OutputTokens
		}

		fmt.Println(strings.Repeat("─", 82))
		fmt.Printf("%-10s  %-32s  %6d  %6d  %10d  %10d\n", "TOTAL", "", calls, failed, in, out)
		return nil
	},
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func init() {
	llmStatsCmd.Flags().Duration("since", 7*24*time.Hour, "How far back to aggregate")

	llmCmd.AddCommand(llmStatsCmd)
}
