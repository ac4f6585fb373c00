package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prophetable/prophetable/internal/store"
	"github.com/prophetable/prophetable/pkg/database"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent forecast runs",
	Long: `Lists recent runs from the run-history store. Requires DATABASE_URL.

Example:
  go run ./cmd/prophetable history
  go run ./cmd/prophetable history --limit 5`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to list")
}

func runHistory(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Prophetable: Run History ===")

	cfg, _, err := initDeps()
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled() {
		return errors.New("DATABASE_URL is not set, run history is unavailable")
	}

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	repo := store.NewRepository(db.Pool)
	runs, err := repo.GetRecentRuns(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("\nNo runs recorded yet.")
		return nil
	}

	fmt.Printf("\n%-36s  %-12s  %-10s  %-5s  %7s  %8s  %s\n",
		"RUN ID", "HASH", "GROWTH", "FREQ", "HORIZON", "MAPE", "CREATED")
	for _, r := range runs {
		fmt.Printf("%-36s  %-12s  %-10s  %-5s  %7d  %7.2f%%  %s\n",
			r.ID, r.ConfigHash[:12], r.Growth, r.Frequency,
			r.FuturePeriods, r.MAPE*100, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
