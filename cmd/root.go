package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptly/internal/config"
	"github.com/abhisek/adaptly/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "adaptly",
	Short: "Adaptive practice engine",
	Long:  "Adaptly runs adaptive practice sessions: it grades answers, tracks per-skill mastery, diagnoses misconceptions and picks the next question.",

	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Database DSN or SQLite file (overrides ADAPTLY_DB env var)")
	rootCmd.PersistentFlags().String("driver", "", "Database driver: sqlite, postgres or mysql (overrides ADAPTLY_DB_DRIVER)")
	rootCmd.PersistentFlags().Bool("json", false, "Print raw JSON instead of formatted output")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(analyticsCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(skillsCmd)
	rootCmd.AddCommand(mergeGuestCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the environment and applies persistent flag
// overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if d, _ := cmd.Flags().GetString("driver"); d != "" {
		cfg.DBDriver = d
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DBPath = p
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// resolveDBPath returns the DSN to open: the configured one, or the
// default SQLite file path.
func resolveDBPath(cfg config.Config) (string, error) {
	if cfg.DBPath == "" {
		return store.DefaultDBPath()
	}
	if cfg.DBDriver == store.DriverSQLite {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return cfg.DBPath, nil
}

func openStore(cmd *cobra.Command, cfg config.Config) (*store.Store, error) {
	dsn, err := resolveDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(cmd.Context(), cfg.DBDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	return cfg.NewLogger(os.Stderr)
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}
