package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/prophetable/prophetable/internal/contracts"
	"github.com/prophetable/prophetable/internal/dataset"
	"github.com/prophetable/prophetable/internal/engine"
)

// DateSetting is a config date that may be back-filled from observed data:
// either configured explicitly, derived during preparation, or still unset.
type DateSetting struct {
	Value   time.Time
	Set     bool // configured in the document
	Derived bool // filled in from the observed series
}

// Known reports whether the date has a usable value.
func (d DateSetting) Known() bool { return d.Set || d.Derived }

// Config is the fully resolved pipeline configuration. It is immutable
// after Load except for the two train-date settings, which Prepare
// back-fills when they were not configured.
type Config struct {
	// File related
	DataURI          string
	TrainURI         string
	OutputURI        string
	ModelURI         string
	HolidayInputURI  string
	HolidayOutputURI string
	Delimiter        string

	// Data preparation
	DSColumn     string
	YColumn      string
	Frequency    contracts.Frequency
	MinTrainDate DateSetting
	MaxTrainDate DateSetting
	NAFill       *float64

	// Saturating bounds
	SaturatingMin *float64
	SaturatingMax *float64

	// Model hyperparameters
	Growth                string
	Changepoints          []time.Time
	NChangepoints         int
	ChangepointRange      float64
	YearlySeasonality     engine.Seasonality
	WeeklySeasonality     engine.Seasonality
	DailySeasonality      engine.Seasonality
	Holidays              []contracts.Holiday
	SeasonalityMode       string
	SeasonalityPriorScale float64
	HolidaysPriorScale    float64
	ChangepointPriorScale float64
	MCMCSamples           int
	IntervalWidth         float64
	UncertaintySamples    int
	Backend               string

	// Prediction
	FuturePeriods int
}

// LoadConfig parses the JSON config document and resolves every recognized
// setting in one pass, aggregating all missing/mistyped settings into a
// single error. Unrecognized keys are ignored.
func LoadConfig(path string, log zerolog.Logger) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	r := &resolver{doc: doc, log: log}
	cfg := &Config{}

	// File related
	cfg.DataURI = r.str("data_uri", true, "")
	cfg.TrainURI = r.str("train_uri", false, "")
	cfg.OutputURI = r.str("output_uri", false, "")
	cfg.ModelURI = r.str("model_uri", false, "")
	cfg.HolidayInputURI = r.str("holiday_input_uri", false, "")
	cfg.HolidayOutputURI = r.str("holiday_output_uri", false, "")
	cfg.Delimiter = r.str("delimiter", false, ",")

	// Data preparation
	cfg.DSColumn = r.str("ds", false, "ds")
	cfg.YColumn = r.str("y", false, "y")
	cfg.Frequency = r.frequency("ts_frequency", "D")
	cfg.MinTrainDate = r.date("min_train_date")
	cfg.MaxTrainDate = r.date("max_train_date")
	cfg.NAFill = r.number("na_fill")

	cfg.SaturatingMin = r.number("saturating_min")
	cfg.SaturatingMax = r.number("saturating_max")

	// Model hyperparameters
	cfg.Growth = r.str("growth", false, "linear")
	cfg.Changepoints = r.dateList("changepoints")
	cfg.NChangepoints = r.integer("n_changepoints", 25)
	cfg.ChangepointRange = r.float("changepoint_range", 0.8)
	cfg.YearlySeasonality = r.seasonality("yearly_seasonality")
	cfg.WeeklySeasonality = r.seasonality("weekly_seasonality")
	cfg.DailySeasonality = r.seasonality("daily_seasonality")
	cfg.Holidays = r.holidays("holidays")
	cfg.SeasonalityMode = r.str("seasonality_mode", false, "additive")
	cfg.SeasonalityPriorScale = r.float("seasonality_prior_scale", 10.0)
	cfg.HolidaysPriorScale = r.float("holidays_prior_scale", 10.0)
	cfg.ChangepointPriorScale = r.float("changepoint_prior_scale", 0.05)
	cfg.MCMCSamples = r.integer("mcmc_samples", 0)
	cfg.IntervalWidth = r.float("interval_width", 0.8)
	cfg.UncertaintySamples = r.integer("uncertainty_samples", 1000)
	cfg.Backend = r.str("stan_backend", false, "")

	// Prediction
	cfg.FuturePeriods = r.integer("future_periods", 365)

	if err := r.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Hash returns the sha256 of the resolved config's canonical JSON form,
// identifying a run in the history store. Struct marshalling keeps field
// order deterministic.
func (c *Config) Hash() (string, error) {
	jsonBytes, err := json.Marshal(struct {
		DataURI       string              `json:"data_uri"`
		Delimiter     string              `json:"delimiter"`
		DS            string              `json:"ds"`
		Y             string              `json:"y"`
		Freq          string              `json:"ts_frequency"`
		Growth        string              `json:"growth"`
		Changepoints  []time.Time         `json:"changepoints"`
		NChangepoints int                 `json:"n_changepoints"`
		CPRange       float64             `json:"changepoint_range"`
		Mode          string              `json:"seasonality_mode"`
		SeasPrior     float64             `json:"seasonality_prior_scale"`
		HolPrior      float64             `json:"holidays_prior_scale"`
		CPPrior       float64             `json:"changepoint_prior_scale"`
		MCMC          int                 `json:"mcmc_samples"`
		Width         float64             `json:"interval_width"`
		Samples       int                 `json:"uncertainty_samples"`
		Holidays      []contracts.Holiday `json:"holidays"`
		FuturePeriods int                 `json:"future_periods"`
	}{
		c.DataURI, c.Delimiter, c.DSColumn, c.YColumn, c.Frequency.String(),
		c.Growth, c.Changepoints, c.NChangepoints, c.ChangepointRange,
		c.SeasonalityMode, c.SeasonalityPriorScale, c.HolidaysPriorScale,
		c.ChangepointPriorScale, c.MCMCSamples, c.IntervalWidth,
		c.UncertaintySamples, c.Holidays, c.FuturePeriods,
	})
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// resolver walks the raw document applying per-setting
// required/default/type rules, collecting every failure.
type resolver struct {
	doc  map[string]json.RawMessage
	log  zerolog.Logger
	errs []error
}

func (r *resolver) err() error {
	return errors.Join(r.errs...)
}

func (r *resolver) fail(err error) {
	r.errs = append(r.errs, err)
}

// raw returns the raw value for key. A JSON null counts as absent, like an
// omitted key.
func (r *resolver) raw(key string) (json.RawMessage, bool) {
	v, ok := r.doc[key]
	if !ok || string(v) == "null" {
		return nil, false
	}
	return v, true
}

func (r *resolver) logSet(key string, value any) {
	r.log.Debug().Str("setting", key).Interface("value", value).Msg("config set")
}

func jsonTypeName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "empty"
	}
	switch raw[0] {
	case '"':
		return "string"
	case '{':
		return "object"
	case '[':
		return "list"
	case 't', 'f':
		return "bool"
	default:
		return "number"
	}
}

func (r *resolver) str(key string, required bool, def string) string {
	raw, ok := r.raw(key)
	if !ok {
		if required {
			r.fail(contracts.ConfigMissingError{Setting: key})
			return def
		}
		r.logSet(key, def)
		return def
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		r.fail(contracts.ConfigTypeError{Setting: key, Want: "string", Got: jsonTypeName(raw)})
		return def
	}
	r.logSet(key, v)
	return v
}

func (r *resolver) number(key string) *float64 {
	raw, ok := r.raw(key)
	if !ok {
		r.logSet(key, nil)
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		r.fail(contracts.ConfigTypeError{Setting: key, Want: "number", Got: jsonTypeName(raw)})
		return nil
	}
	r.logSet(key, v)
	return &v
}

func (r *resolver) float(key string, def float64) float64 {
	if v := r.number(key); v != nil {
		return *v
	}
	return def
}

func (r *resolver) integer(key string, def int) int {
	raw, ok := r.raw(key)
	if !ok {
		r.logSet(key, def)
		return def
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil || v != math.Trunc(v) {
		r.fail(contracts.ConfigTypeError{Setting: key, Want: "integer", Got: jsonTypeName(raw)})
		return def
	}
	r.logSet(key, int(v))
	return int(v)
}

func (r *resolver) frequency(key, def string) contracts.Frequency {
	code := r.str(key, false, def)
	freq, err := contracts.ParseFrequency(code)
	if err != nil {
		r.fail(err)
		freq, _ = contracts.ParseFrequency(def)
	}
	return freq
}

func (r *resolver) date(key string) DateSetting {
	raw, ok := r.raw(key)
	if !ok {
		r.logSet(key, nil)
		return DateSetting{}
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		r.fail(contracts.ConfigTypeError{Setting: key, Want: "string", Got: jsonTypeName(raw)})
		return DateSetting{}
	}
	t, err := dataset.ParseDate(key, v)
	if err != nil {
		r.fail(err)
		return DateSetting{}
	}
	r.logSet(key, t)
	return DateSetting{Value: t, Set: true}
}

func (r *resolver) dateList(key string) []time.Time {
	raw, ok := r.raw(key)
	if !ok {
		r.logSet(key, nil)
		return nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		r.fail(contracts.ConfigTypeError{Setting: key, Want: "list", Got: jsonTypeName(raw)})
		return nil
	}
	out := make([]time.Time, 0, len(values))
	for _, v := range values {
		t, err := dataset.ParseDate(key, v)
		if err != nil {
			r.fail(err)
			continue
		}
		out = append(out, t)
	}
	r.logSet(key, out)
	return out
}

func (r *resolver) seasonality(key string) engine.Seasonality {
	raw, ok := r.raw(key)
	if !ok {
		r.logSet(key, "auto")
		return engine.AutoSeasonality()
	}
	var s engine.Seasonality
	if err := s.UnmarshalJSON(raw); err != nil {
		r.fail(contracts.ConfigTypeError{Setting: key, Want: "auto, bool, or integer", Got: jsonTypeName(raw)})
		return engine.AutoSeasonality()
	}
	r.logSet(key, s)
	return s
}

// holidayDoc is the inline config shape of a holiday entry; dates are
// plain strings and go through the usual layout inference.
type holidayDoc struct {
	Holiday     string   `json:"holiday"`
	DS          string   `json:"ds"`
	LowerWindow int      `json:"lower_window"`
	UpperWindow int      `json:"upper_window"`
	PriorScale  *float64 `json:"prior_scale"`
}

func (r *resolver) holidays(key string) []contracts.Holiday {
	raw, ok := r.raw(key)
	if !ok {
		r.logSet(key, nil)
		return nil
	}
	var docs []holidayDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		r.fail(contracts.ConfigTypeError{Setting: key, Want: "list", Got: jsonTypeName(raw)})
		return nil
	}
	out := make([]contracts.Holiday, 0, len(docs))
	for _, d := range docs {
		ds, err := dataset.ParseDate(key, d.DS)
		if err != nil {
			r.fail(err)
			continue
		}
		out = append(out, contracts.Holiday{
			Name:        d.Holiday,
			DS:          ds,
			LowerWindow: d.LowerWindow,
			UpperWindow: d.UpperWindow,
			PriorScale:  d.PriorScale,
		})
	}
	r.logSet(key, len(out))
	return out
}
