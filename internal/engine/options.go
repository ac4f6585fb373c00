package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prophetable/prophetable/internal/contracts"
)

// Growth selects the trend shape.
type Growth string

const (
	GrowthLinear   Growth = "linear"
	GrowthLogistic Growth = "logistic"
)

// SeasonalityMode selects how seasonal components combine with the trend.
type SeasonalityMode string

const (
	SeasonalityAdditive       SeasonalityMode = "additive"
	SeasonalityMultiplicative SeasonalityMode = "multiplicative"
)

// BackendGonum is the only fitting backend currently implemented. The
// selector exists so the config surface keeps its backend key and another
// solver can slot in later.
const BackendGonum = "gonum"

// Seasonality is the tri-state seasonality toggle: auto (enabled when the
// history supports it), a fixed Fourier order, or disabled. It marshals as
// "auto", a number, or false, matching the config vocabulary.
type Seasonality struct {
	Auto    bool
	Enabled bool
	Order   int
}

// AutoSeasonality defers the enable decision to the training history.
func AutoSeasonality() Seasonality { return Seasonality{Auto: true} }

// FixedSeasonality enables the component with an explicit Fourier order.
func FixedSeasonality(order int) Seasonality { return Seasonality{Enabled: order > 0, Order: order} }

// DisabledSeasonality turns the component off.
func DisabledSeasonality() Seasonality { return Seasonality{} }

func (s Seasonality) MarshalJSON() ([]byte, error) {
	if s.Auto {
		return json.Marshal("auto")
	}
	if !s.Enabled {
		return json.Marshal(false)
	}
	return json.Marshal(s.Order)
}

func (s *Seasonality) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		if v != "auto" {
			return fmt.Errorf("invalid seasonality %q", v)
		}
		*s = AutoSeasonality()
	case bool:
		if v {
			*s = Seasonality{Enabled: true} // default order resolved at fit
		} else {
			*s = DisabledSeasonality()
		}
	case float64:
		*s = FixedSeasonality(int(v))
	default:
		return fmt.Errorf("invalid seasonality value %v", raw)
	}
	return nil
}

// Options carries every model hyperparameter the trainer maps from config.
type Options struct {
	Growth           Growth      `json:"growth"`
	Changepoints     []time.Time `json:"changepoints,omitempty"`
	NChangepoints    int         `json:"n_changepoints"`
	ChangepointRange float64     `json:"changepoint_range"`

	YearlySeasonality Seasonality     `json:"yearly_seasonality"`
	WeeklySeasonality Seasonality     `json:"weekly_seasonality"`
	DailySeasonality  Seasonality     `json:"daily_seasonality"`
	SeasonalityMode   SeasonalityMode `json:"seasonality_mode"`

	Holidays []contracts.Holiday `json:"holidays,omitempty"`

	SeasonalityPriorScale float64 `json:"seasonality_prior_scale"`
	HolidaysPriorScale    float64 `json:"holidays_prior_scale"`
	ChangepointPriorScale float64 `json:"changepoint_prior_scale"`

	MCMCSamples        int     `json:"mcmc_samples"`
	IntervalWidth      float64 `json:"interval_width"`
	UncertaintySamples int     `json:"uncertainty_samples"`

	Backend string `json:"backend,omitempty"`
	Seed    int64  `json:"seed,omitempty"`
}

// NewDefaultOptions returns the documented defaults for every
// hyperparameter.
func NewDefaultOptions() *Options {
	return &Options{
		Growth:                GrowthLinear,
		NChangepoints:         25,
		ChangepointRange:      0.8,
		YearlySeasonality:     AutoSeasonality(),
		WeeklySeasonality:     AutoSeasonality(),
		DailySeasonality:      AutoSeasonality(),
		SeasonalityMode:       SeasonalityAdditive,
		SeasonalityPriorScale: 10.0,
		HolidaysPriorScale:    10.0,
		ChangepointPriorScale: 0.05,
		MCMCSamples:           0,
		IntervalWidth:         0.8,
		UncertaintySamples:    1000,
	}
}

func (o *Options) validate() error {
	if o.Growth != GrowthLinear && o.Growth != GrowthLogistic {
		return fmt.Errorf("unsupported growth %q", o.Growth)
	}
	if o.SeasonalityMode != SeasonalityAdditive && o.SeasonalityMode != SeasonalityMultiplicative {
		return fmt.Errorf("unsupported seasonality_mode %q", o.SeasonalityMode)
	}
	if o.IntervalWidth <= 0 || o.IntervalWidth >= 1 {
		return errors.New("interval_width must be in (0, 1)")
	}
	if o.ChangepointRange < 0 || o.ChangepointRange > 1 {
		return errors.New("changepoint_range must be in [0, 1]")
	}
	if o.SeasonalityPriorScale <= 0 || o.HolidaysPriorScale <= 0 || o.ChangepointPriorScale <= 0 {
		return errors.New("prior scales must be positive")
	}
	if o.Backend != "" && o.Backend != BackendGonum {
		return fmt.Errorf("unknown backend %q", o.Backend)
	}
	return nil
}
