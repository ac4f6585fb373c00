package contracts

import "time"

// Forecaster is the narrow surface the pipeline consumes from the
// forecasting engine. Keeping it this small lets the engine be swapped or
// stubbed in tests without touching any pipeline logic.
type Forecaster interface {
	// Fit trains the model against the prepared series. NaN values are
	// treated as unobserved slots.
	Fit(series *Series) error

	// MakeFutureCalendar extends the training calendar by periods steps at
	// the given frequency, returning history plus future.
	MakeFutureCalendar(periods int, freq Frequency) ([]time.Time, error)

	// Predict produces a forecast for the given calendar.
	Predict(t []time.Time) (*Forecast, error)
}
