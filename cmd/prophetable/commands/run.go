package commands

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/prophetable/prophetable/internal/engine"
	"github.com/prophetable/prophetable/internal/pipeline"
	"github.com/prophetable/prophetable/internal/store"
	"github.com/prophetable/prophetable/pkg/config"
	"github.com/prophetable/prophetable/pkg/database"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline (prepare → train → predict)",
	Long: `Reads the input series, resamples it onto the configured calendar,
fits the model, and forecasts future_periods beyond the training window.

Artifacts are written wherever the config names an output:
  train_uri           prepared training data (CSV)
  model_uri           fitted model (JSON)
  output_uri          forecast (CSV)
  holiday_output_uri  resolved holidays (CSV)

When DATABASE_URL is set, the run and its forecast are also recorded
in the run-history store.

Example:
  go run ./cmd/prophetable run --config config.json`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Prophetable: Full Pipeline ===")

	if err := requireConfigFlag(); err != nil {
		return err
	}
	cfg, log, err := initDeps()
	if err != nil {
		return err
	}

	p, err := pipeline.New(configFile, log)
	if err != nil {
		return fmt.Errorf("load pipeline config: %w", err)
	}

	started := time.Now()
	if err := p.Run(); err != nil {
		return err
	}

	fmt.Printf("\n✅ Forecast completed: %d rows in %s\n", p.Forecast.Len(), time.Since(started).Round(time.Millisecond))

	if cfg.Database.Enabled() {
		if err := recordRun(cmd, cfg, log, p); err != nil {
			// run history is best effort, the forecast already landed
			log.Warn().Err(err).Msg("failed to record run history")
		}
	}
	return nil
}

func recordRun(cmd *cobra.Command, cfg *config.Config, log zerolog.Logger, p *pipeline.Pipeline) error {
	ctx := cmd.Context()

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	repo := store.NewRepository(db.Pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	hash, err := p.Config.Hash()
	if err != nil {
		return fmt.Errorf("hash config: %w", err)
	}

	rec := store.RunRecord{
		ID:            uuid.New(),
		ConfigHash:    hash,
		DataURI:       p.Config.DataURI,
		Growth:        p.Config.Growth,
		Frequency:     p.Config.Frequency.String(),
		FuturePeriods: p.Config.FuturePeriods,
		TrainRows:     p.Data.Len(),
		ForecastRows:  p.Forecast.Len(),
	}
	if m, ok := p.Model().(*engine.Engine); ok {
		rec.MAPE = m.Scores().MAPE
	}

	if err := repo.SaveRun(ctx, rec, p.Forecast); err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	log.Info().Str("run_id", rec.ID.String()).Str("config_hash", hash[:12]).Msg("run recorded")
	return nil
}
