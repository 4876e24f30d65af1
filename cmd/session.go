package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/adaptly/internal/engine"
	"github.com/abhisek/adaptly/internal/ui/report"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start or resume a practice session",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		student, _ := cmd.Flags().GetString("student")
		skill, _ := cmd.Flags().GetString("skill")
		session, _ := cmd.Flags().GetString("session")

		resp, err := rt.engine.StartSession(cmd.Context(), engine.StartRequest{
			StudentID:    student,
			MicroskillID: skill,
			SessionID:    session,
		})
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(resp)
		}
		lipgloss.Println(report.Start(resp))
		return nil
	},
}

var nextCmd = &cobra.Command{
	Use:   "next <session-id>",
	Short: "Show the next question for a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		student, _ := cmd.Flags().GetString("student")
		skill, _ := cmd.Flags().GetString("skill")

		resp, err := rt.engine.NextQuestion(cmd.Context(), engine.NextRequest{
			SessionID:    args[0],
			StudentID:    student,
			MicroskillID: skill,
		})
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(resp)
		}
		lipgloss.Println(report.Question(resp.Question, resp.SelectionMeta))
		return nil
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit <session-id>",
	Short: "Submit an answer and get the next question",
	Long: `Submit an answer. --answer is the JSON answer value, e.g. 2 for an
option index, '"seven"' for text, or '{"a":"3"}' for fill-in fields.
Repeating a submission with the same --attempt-id returns the stored result.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		skill, _ := cmd.Flags().GetString("skill")
		qid, _ := cmd.Flags().GetString("question")
		answer, _ := cmd.Flags().GetString("answer")
		attemptID, _ := cmd.Flags().GetString("attempt-id")
		responseMs, _ := cmd.Flags().GetInt("response-ms")
		hint, _ := cmd.Flags().GetBool("hint")
		attempts, _ := cmd.Flags().GetInt("attempts")

		if !json.Valid([]byte(answer)) {
			return fmt.Errorf("--answer is not valid JSON: %s", answer)
		}

		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		res, err := rt.engine.SubmitAndNext(cmd.Context(), engine.SubmitRequest{
			SessionID:          args[0],
			StudentID:          student,
			MicroskillID:       skill,
			QuestionID:         qid,
			Answer:             json.RawMessage(answer),
			AttemptID:          attemptID,
			ResponseMs:         responseMs,
			HintUsed:           hint,
			AttemptsOnQuestion: attempts,
		})
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			_, err := os.Stdout.Write(append(res.Payload, '\n'))
			return err
		}

		var resp engine.SubmitResponse
		if err := json.Unmarshal(res.Payload, &resp); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		lipgloss.Println(report.Submit(resp, res.Replay()))
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func addPairFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("student", "s", "", "Student id")
	cmd.Flags().StringP("skill", "k", "", "Microskill id")
	cmd.MarkFlagRequired("student")
	cmd.MarkFlagRequired("skill")
}

func init() {
	addPairFlags(startCmd)
	startCmd.Flags().String("session", "", "Resume or create this session id")

	addPairFlags(nextCmd)

	addPairFlags(submitCmd)
	submitCmd.Flags().StringP("question", "q", "", "Question id being answered")
	submitCmd.Flags().StringP("answer", "a", "", "Answer as JSON")
	submitCmd.Flags().String("attempt-id", "", "Client attempt id for idempotent retries")
	submitCmd.Flags().Int("response-ms", 0, "Time taken to answer, in milliseconds")
	submitCmd.Flags().Bool("hint", false, "A hint was used")
	submitCmd.Flags().Int("attempts", 1, "Attempts made on this question")
	submitCmd.MarkFlagRequired("question")
	submitCmd.MarkFlagRequired("answer")
}
