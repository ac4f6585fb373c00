package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prophetable/prophetable/internal/pipeline"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Prepare training data only",
	Long: `Reads the input series and resamples it onto the configured
calendar without training. Useful for inspecting the training data a
run would see; set train_uri in the config to save it.

Example:
  go run ./cmd/prophetable prepare --config config.json`,
	RunE: runPrepare,
}

func init() {
	rootCmd.AddCommand(prepareCmd)
}

func runPrepare(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Prophetable: Prepare Data ===")

	if err := requireConfigFlag(); err != nil {
		return err
	}
	_, log, err := initDeps()
	if err != nil {
		return err
	}

	p, err := pipeline.New(configFile, log)
	if err != nil {
		return fmt.Errorf("load pipeline config: %w", err)
	}
	if err := p.Prepare(); err != nil {
		return err
	}

	fmt.Printf("\n✅ Prepared %d rows (%d observed) from %s to %s\n",
		p.Data.Len(), p.Data.Observed(),
		p.Data.Start().Format("2006-01-02"), p.Data.End().Format("2006-01-02"))
	if p.Config.TrainURI == "" {
		fmt.Println("   (set train_uri in the config to save the prepared data)")
	}
	return nil
}
