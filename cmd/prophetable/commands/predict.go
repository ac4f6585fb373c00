package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prophetable/prophetable/internal/dataset"
	"github.com/prophetable/prophetable/internal/engine"
	"github.com/prophetable/prophetable/internal/pipeline"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Forecast from a previously saved model",
	Long: `Loads the fitted model from model_uri and forecasts future_periods
beyond its training window, skipping data preparation and training.
The forecast is written to output_uri when set.

Example:
  go run ./cmd/prophetable predict --config config.json`,
	RunE: runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)
}

func runPredict(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Prophetable: Predict ===")

	if err := requireConfigFlag(); err != nil {
		return err
	}
	_, log, err := initDeps()
	if err != nil {
		return err
	}

	cfg, err := pipeline.LoadConfig(configFile, log)
	if err != nil {
		return fmt.Errorf("load pipeline config: %w", err)
	}
	if cfg.ModelURI == "" {
		return errors.New("model_uri must be set to predict from a saved model")
	}

	blob, err := engine.LoadModel(cfg.ModelURI)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	model, err := engine.NewFromModel(blob)
	if err != nil {
		return fmt.Errorf("restore model: %w", err)
	}
	log.Info().Str("uri", cfg.ModelURI).
		Time("train_start", blob.TrainStart).
		Time("train_end", blob.TrainEnd).
		Msg("model loaded")

	calendar, err := model.MakeFutureCalendar(cfg.FuturePeriods, cfg.Frequency)
	if err != nil {
		return fmt.Errorf("future calendar: %w", err)
	}
	forecast, err := model.Predict(calendar)
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}

	if cfg.OutputURI != "" {
		if err := dataset.WriteForecast(cfg.OutputURI, forecast); err != nil {
			return fmt.Errorf("write forecast: %w", err)
		}
		log.Info().Str("uri", cfg.OutputURI).Msg("forecast saved")
	}

	fmt.Printf("\n✅ Forecast completed: %d rows (%d future)\n", forecast.Len(), cfg.FuturePeriods)
	return nil
}
