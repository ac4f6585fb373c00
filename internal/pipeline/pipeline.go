package pipeline

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prophetable/prophetable/internal/contracts"
	"github.com/prophetable/prophetable/internal/dataset"
	"github.com/prophetable/prophetable/internal/engine"
	"github.com/prophetable/prophetable/internal/holiday"
)

// Stage tracks pipeline progress. Each operation requires the stage its
// predecessor left behind; nothing is implicit.
type Stage int

const (
	StageUnconfigured Stage = iota
	StageConfigured
	StageDataPrepared
	StageTrained
	StagePredicted
)

func (s Stage) String() string {
	switch s {
	case StageUnconfigured:
		return "unconfigured"
	case StageConfigured:
		return "configured"
	case StageDataPrepared:
		return "data-prepared"
	case StageTrained:
		return "trained"
	case StagePredicted:
		return "predicted"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// StageError reports an operation invoked out of order.
type StageError struct {
	Op       string
	Current  Stage
	Required Stage
}

func (e StageError) Error() string {
	return fmt.Sprintf("cannot %s: pipeline is %s, requires %s", e.Op, e.Current, e.Required)
}

// BuildFunc constructs the forecaster a pipeline trains. Tests swap it
// out for a stub.
type BuildFunc func(opt *engine.Options) (contracts.Forecaster, error)

func defaultBuild(opt *engine.Options) (contracts.Forecaster, error) {
	return engine.New(opt)
}

// Pipeline drives a single forecast run: Prepare reads and resamples the
// input series, Train fits the model, Predict extends the calendar and
// writes the forecast. Operations must run in that order.
type Pipeline struct {
	Config *Config

	log   zerolog.Logger
	build BuildFunc
	stage Stage

	Data     *contracts.Series
	Holidays []contracts.Holiday
	Forecast *contracts.Forecast

	model contracts.Forecaster
}

// New loads the config document at path and returns a configured pipeline.
func New(configPath string, log zerolog.Logger) (*Pipeline, error) {
	cfg, err := LoadConfig(configPath, log)
	if err != nil {
		return nil, err
	}
	return FromConfig(cfg, log), nil
}

// FromConfig wraps an already resolved config.
func FromConfig(cfg *Config, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		Config: cfg,
		log:    log.With().Str("component", "pipeline").Logger(),
		build:  defaultBuild,
		stage:  StageConfigured,
	}
}

// SetBuilder replaces the forecaster constructor. Must be called before Train.
func (p *Pipeline) SetBuilder(b BuildFunc) { p.build = b }

// Stage returns the current pipeline stage.
func (p *Pipeline) Stage() Stage { return p.stage }

// Model returns the trained forecaster, nil before Train.
func (p *Pipeline) Model() contracts.Forecaster { return p.model }

func (p *Pipeline) require(op string, s Stage) error {
	if p.stage != s {
		return StageError{Op: op, Current: p.stage, Required: s}
	}
	return nil
}

// Prepare reads the raw series, resamples it onto the configured calendar
// between the train dates, and saves the result when train_uri is set.
// Train dates not configured are derived from the observed data and
// written back into the config.
func (p *Pipeline) Prepare() error {
	if err := p.require("prepare", StageConfigured); err != nil {
		return err
	}
	cfg := p.Config

	raw, err := dataset.ReadDelimited(cfg.DataURI, cfg.Delimiter, cfg.DSColumn, cfg.YColumn)
	if err != nil {
		return fmt.Errorf("read data: %w", err)
	}
	p.log.Info().Str("uri", cfg.DataURI).Int("rows", len(raw.T)).Msg("data loaded")

	params := dataset.PrepareParams{
		Freq:          cfg.Frequency,
		NAFill:        cfg.NAFill,
		SaturatingMin: cfg.SaturatingMin,
		SaturatingMax: cfg.SaturatingMax,
	}
	if cfg.MinTrainDate.Known() {
		t := cfg.MinTrainDate.Value
		params.MinDate = &t
	}
	if cfg.MaxTrainDate.Known() {
		t := cfg.MaxTrainDate.Value
		params.MaxDate = &t
	}

	series, minDate, maxDate, err := dataset.Prepare(raw, params)
	if err != nil {
		return fmt.Errorf("prepare data: %w", err)
	}
	if !cfg.MinTrainDate.Known() {
		cfg.MinTrainDate = DateSetting{Value: minDate, Derived: true}
		p.log.Debug().Time("min_train_date", minDate).Msg("train start derived from data")
	}
	if !cfg.MaxTrainDate.Known() {
		cfg.MaxTrainDate = DateSetting{Value: maxDate, Derived: true}
		p.log.Debug().Time("max_train_date", maxDate).Msg("train end derived from data")
	}

	if cfg.TrainURI != "" {
		if err := dataset.WriteSeries(cfg.TrainURI, series); err != nil {
			return fmt.Errorf("write training data: %w", err)
		}
		p.log.Info().Str("uri", cfg.TrainURI).Msg("training data saved")
	}

	p.Data = series
	p.stage = StageDataPrepared
	p.log.Info().
		Int("rows", series.Len()).
		Int("observed", series.Observed()).
		Time("start", series.Start()).
		Time("end", series.End()).
		Msg("data prepared")
	return nil
}

// Train resolves holidays, fits the forecaster on the prepared series,
// and serializes the fitted model when model_uri is set. A holiday file
// configured via holiday_input_uri replaces any inline holidays.
func (p *Pipeline) Train() error {
	if err := p.require("train", StageDataPrepared); err != nil {
		return err
	}
	cfg := p.Config

	holidays := cfg.Holidays
	if cfg.HolidayInputURI != "" {
		fromFile, err := holiday.ReadCSV(cfg.HolidayInputURI)
		if err != nil {
			return fmt.Errorf("read holidays: %w", err)
		}
		p.log.Info().Str("uri", cfg.HolidayInputURI).Int("holidays", len(fromFile)).Msg("holidays loaded")
		holidays = fromFile
	}
	if cfg.HolidayOutputURI != "" && len(holidays) > 0 {
		if err := holiday.WriteCSV(cfg.HolidayOutputURI, holidays); err != nil {
			return fmt.Errorf("write holidays: %w", err)
		}
		p.log.Info().Str("uri", cfg.HolidayOutputURI).Msg("holidays saved")
	}
	p.Holidays = holidays

	opt, err := p.engineOptions(holidays)
	if err != nil {
		return err
	}
	model, err := p.build(opt)
	if err != nil {
		return fmt.Errorf("build forecaster: %w", err)
	}
	if err := model.Fit(p.Data); err != nil {
		return fmt.Errorf("fit: %w", err)
	}
	p.model = model

	if cfg.ModelURI != "" {
		if err := p.saveModel(); err != nil {
			return err
		}
	}

	p.stage = StageTrained
	p.log.Info().Msg("model trained")
	return nil
}

// modeler is the optional serialization side of a forecaster.
type modeler interface {
	Model() (*engine.Model, error)
}

func (p *Pipeline) saveModel() error {
	m, ok := p.model.(modeler)
	if !ok {
		p.log.Warn().Str("uri", p.Config.ModelURI).Msg("forecaster does not support serialization, model not saved")
		return nil
	}
	blob, err := m.Model()
	if err != nil {
		return fmt.Errorf("snapshot model: %w", err)
	}
	if err := blob.Save(p.Config.ModelURI); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	p.log.Info().Str("uri", p.Config.ModelURI).Msg("model saved")
	return nil
}

// Predict extends the training calendar by future_periods, forecasts over
// the combined calendar, and writes the result when output_uri is set.
func (p *Pipeline) Predict() error {
	if err := p.require("predict", StageTrained); err != nil {
		return err
	}
	cfg := p.Config

	calendar, err := p.model.MakeFutureCalendar(cfg.FuturePeriods, cfg.Frequency)
	if err != nil {
		return fmt.Errorf("future calendar: %w", err)
	}
	forecast, err := p.model.Predict(calendar)
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}

	if cfg.OutputURI != "" {
		if err := dataset.WriteForecast(cfg.OutputURI, forecast); err != nil {
			return fmt.Errorf("write forecast: %w", err)
		}
		p.log.Info().Str("uri", cfg.OutputURI).Msg("forecast saved")
	}

	p.Forecast = forecast
	p.stage = StagePredicted
	p.log.Info().
		Int("rows", forecast.Len()).
		Int("horizon", cfg.FuturePeriods).
		Msg("forecast complete")
	return nil
}

// Run executes the three stages in order.
func (p *Pipeline) Run() error {
	if err := p.Prepare(); err != nil {
		return err
	}
	if err := p.Train(); err != nil {
		return err
	}
	return p.Predict()
}

func (p *Pipeline) engineOptions(holidays []contracts.Holiday) (*engine.Options, error) {
	cfg := p.Config
	opt := engine.NewDefaultOptions()

	switch cfg.Growth {
	case "linear":
		opt.Growth = engine.GrowthLinear
	case "logistic":
		opt.Growth = engine.GrowthLogistic
	default:
		return nil, contracts.ConfigTypeError{Setting: "growth", Want: "linear or logistic", Got: cfg.Growth}
	}
	switch cfg.SeasonalityMode {
	case "additive":
		opt.SeasonalityMode = engine.SeasonalityAdditive
	case "multiplicative":
		opt.SeasonalityMode = engine.SeasonalityMultiplicative
	default:
		return nil, contracts.ConfigTypeError{Setting: "seasonality_mode", Want: "additive or multiplicative", Got: cfg.SeasonalityMode}
	}

	opt.Changepoints = cfg.Changepoints
	opt.NChangepoints = cfg.NChangepoints
	opt.ChangepointRange = cfg.ChangepointRange
	opt.YearlySeasonality = cfg.YearlySeasonality
	opt.WeeklySeasonality = cfg.WeeklySeasonality
	opt.DailySeasonality = cfg.DailySeasonality
	opt.Holidays = holidays
	opt.SeasonalityPriorScale = cfg.SeasonalityPriorScale
	opt.HolidaysPriorScale = cfg.HolidaysPriorScale
	opt.ChangepointPriorScale = cfg.ChangepointPriorScale
	opt.MCMCSamples = cfg.MCMCSamples
	opt.IntervalWidth = cfg.IntervalWidth
	opt.UncertaintySamples = cfg.UncertaintySamples
	if cfg.Backend == engine.BackendGonum {
		opt.Backend = cfg.Backend
	} else if cfg.Backend != "" {
		// only one solver exists, legacy backend names are accepted and ignored
		p.log.Debug().Str("stan_backend", cfg.Backend).Msg("backend setting ignored")
	}
	return opt, nil
}
