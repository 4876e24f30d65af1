package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptly/internal/catalog"
	"github.com/abhisek/adaptly/internal/question"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the question catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import questions from a JSON or XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		skill, _ := cmd.Flags().GetString("skill")
		sheet, _ := cmd.Flags().GetString("sheet")

		docs, err := readDocuments(args[0], skill, sheet)
		if err != nil {
			return err
		}

		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		n, err := catalog.Import(cmd.Context(), rt.catalogSink, docs)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d questions into the %s catalog.\n", n, rt.cfg.Catalog)
		return nil
	},
}

func readDocuments(path, skill, sheet string) ([]question.Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return catalog.ImportXLSX(catalog.XLSXConfig{Path: path, Sheet: sheet, Microskill: skill})
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return catalog.LoadJSON(f, skill)
	default:
		return nil, fmt.Errorf("unsupported catalog file %q: want .json or .xlsx", path)
	}
}

var catalogListCmd = &cobra.Command{
	Use:   "list [microskill-id]",
	Short: "List microskills, or the questions of one microskill",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		if len(args) == 0 {
			skills, err := rt.store.ListMicroskills(cmd.Context())
			if err != nil {
				return fmt.Errorf("list microskills: %w", err)
			}
			if len(skills) == 0 {
				fmt.Println("No questions imported.")
				return nil
			}
			fmt.Printf("%-36s  %s\n", "Microskill", "Questions")
			fmt.Println(strings.Repeat("─", 48))
			for _, s := range skills {
				fmt.Printf("%-36s  %9d\n", s.MicroskillID, s.Questions)
			}
			return nil
		}

		qs, err := rt.catalog.Questions(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(qs) == 0 {
			fmt.Printf("No questions for %s.\n", args[0])
			return nil
		}

		fmt.Printf("%-24s  %-16s  %-6s  %5s  %s\n", "ID", "Type", "Band", "Order", "Remediates")
		fmt.Println(strings.Repeat("─", 80))
		for _, q := range qs {
			fmt.Printf("%-24s  %-16s  %-6s  %5d  %s\n",
				truncate(q.ID, 24), q.Type, q.Difficulty, q.SortOrder, strings.Join(q.RemediationCodes(), ","))
		}
		fmt.Printf("\n%d questions, %d remediation codes\n", len(qs), len(catalog.Codes(qs)))
		return nil
	},
}

func init() {
	catalogImportCmd.Flags().StringP("skill", "k", "", "Microskill id for documents that do not name one")
	catalogImportCmd.Flags().String("sheet", "", "Spreadsheet sheet (defaults to the first)")

	catalogCmd.AddCommand(catalogImportCmd)
	catalogCmd.AddCommand(catalogListCmd)
}
