// Package engine implements the forecasting model behind the
// contracts.Forecaster interface: a Prophet-style additive model with a
// piecewise-linear trend over changepoints, Fourier seasonalities, holiday
// indicators, and optional saturating growth, fit by ridge regression.
package engine

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/prophetable/prophetable/internal/contracts"
)

var (
	ErrInsufficientTrainingData = errors.New("insufficient training data after removing missing values")
	ErrUntrained                = errors.New("model has not been trained yet")
	ErrMissingCap               = errors.New("logistic growth requires saturating_max")
	ErrNonPositiveSeries        = errors.New("multiplicative seasonality requires positive values")
)

type transformKind int

const (
	transformIdentity transformKind = iota
	transformLog
	transformLogit
)

// Engine fits and predicts a single univariate series.
type Engine struct {
	opt *Options

	// training context
	trainT     []time.Time
	trainStart time.Time
	trainEnd   time.Time
	spanSecs   float64

	// state resolved at fit time
	changepoints []time.Time
	yearlyOrder  int
	weeklyOrder  int
	dailyOrder   int
	floor        *float64
	cap          *float64
	transform    transformKind

	// fitted coefficients, in design column order
	intercept float64
	labels    []Label
	coef      []float64

	residuals []float64 // transformed space, observed slots only
	sigma     float64
	scores    Scores
	trained   bool

	rng *rand.Rand
}

// New constructs an engine with the given options; nil selects defaults.
func New(opt *Options) (*Engine, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if err := opt.validate(); err != nil {
		return nil, err
	}

	var rng *rand.Rand
	if opt.Seed != 0 {
		rng = rand.New(rand.NewSource(opt.Seed))
	} else {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Engine{opt: opt, rng: rng}, nil
}

// Fit trains the model against the prepared series. NaN observations are
// treated as unobserved and dropped; the calendar itself is retained for
// future extension.
func (e *Engine) Fit(series *contracts.Series) error {
	if series == nil || series.Len() == 0 {
		return ErrInsufficientTrainingData
	}

	e.floor = series.Floor
	e.cap = series.Cap
	if err := e.resolveTransform(); err != nil {
		return err
	}

	// Drop unobserved slots.
	obsT := make([]time.Time, 0, series.Len())
	obsY := make([]float64, 0, series.Len())
	for i, y := range series.Y {
		if math.IsNaN(y) {
			continue
		}
		z, err := e.transformValue(y)
		if err != nil {
			return err
		}
		obsT = append(obsT, series.T[i])
		obsY = append(obsY, z)
	}
	if len(obsT) < 2 {
		return ErrInsufficientTrainingData
	}

	e.trainT = append([]time.Time(nil), series.T...)
	e.trainStart = obsT[0]
	e.trainEnd = obsT[len(obsT)-1]
	e.spanSecs = e.trainEnd.Sub(e.trainStart).Seconds()

	e.resolveSeasonalities(obsT)
	e.resolveChangepoints(obsT)

	cols := e.buildColumns(obsT)
	intercept, coef, err := solveRidge(cols, obsY)
	if err != nil {
		return fmt.Errorf("fit: %w", err)
	}
	e.intercept = intercept
	e.coef = coef
	e.labels = make([]Label, len(cols))
	for i, c := range cols {
		e.labels[i] = c.label
	}
	e.trained = true

	// Residuals and scores against the observed points.
	fitted := e.rawPredict(cols)
	e.residuals = make([]float64, len(obsY))
	for i := range obsY {
		e.residuals[i] = obsY[i] - fitted[i]
	}
	e.sigma = stddev(e.residuals)
	e.scores = newScores(e, obsY, fitted)

	return nil
}

// MakeFutureCalendar extends the training calendar by periods steps at the
// given frequency, returning history plus future.
func (e *Engine) MakeFutureCalendar(periods int, freq contracts.Frequency) ([]time.Time, error) {
	if !e.trained {
		return nil, ErrUntrained
	}
	if len(e.trainT) == 0 {
		// Rehydrated from a serialized model: regenerate the history
		// calendar from the recorded training range.
		e.trainT = freq.Sequence(e.trainStart, e.trainEnd)
	}
	return freq.Extend(e.trainT, periods), nil
}

// Predict produces a forecast for the given calendar, with uncertainty
// bounds and the additive component breakdown.
func (e *Engine) Predict(t []time.Time) (*contracts.Forecast, error) {
	if !e.trained {
		return nil, ErrUntrained
	}
	if len(t) == 0 {
		return &contracts.Forecast{}, nil
	}

	cols := e.buildColumns(t)
	yhat := e.rawPredict(cols)
	lower, upper := e.intervals(yhat)

	fc := &contracts.Forecast{Rows: make([]contracts.ForecastRow, len(t))}
	for i := range t {
		row := contracts.ForecastRow{
			DS:        t[i],
			YHat:      e.inverseTransform(yhat[i]),
			YHatLower: e.inverseTransform(lower[i]),
			YHatUpper: e.inverseTransform(upper[i]),
			Trend:     e.intercept,
		}
		for j, c := range cols {
			v := e.coef[j] * c.values[i]
			switch c.label.Type {
			case FeatureTrend, FeatureChangepoint:
				row.Trend += v
			case FeatureHoliday:
				row.Holidays += v
			case FeatureSeasonality:
				switch {
				case len(c.label.Name) >= 6 && c.label.Name[:6] == "yearly":
					row.Yearly += v
				case len(c.label.Name) >= 6 && c.label.Name[:6] == "weekly":
					row.Weekly += v
				default:
					row.Daily += v
				}
			}
		}
		row.Trend = e.inverseTransform(row.Trend)
		fc.Rows[i] = row
	}

	return fc, nil
}

// Scores returns the training fit scores.
func (e *Engine) Scores() Scores { return e.scores }

// Residuals returns the training residuals in fitting space.
func (e *Engine) Residuals() []float64 {
	out := make([]float64, len(e.residuals))
	copy(out, e.residuals)
	return out
}

// rawPredict evaluates intercept + X*coef over prebuilt columns.
func (e *Engine) rawPredict(cols []column) []float64 {
	if len(cols) == 0 {
		return nil
	}
	n := len(cols[0].values)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := e.intercept
		for j, c := range cols {
			v += e.coef[j] * c.values[i]
		}
		out[i] = v
	}
	return out
}

func (e *Engine) resolveTransform() error {
	if e.opt.Growth == GrowthLogistic {
		if e.cap == nil {
			return ErrMissingCap
		}
		e.transform = transformLogit
		return nil
	}
	if e.opt.SeasonalityMode == SeasonalityMultiplicative {
		e.transform = transformLog
		return nil
	}
	e.transform = transformIdentity
	return nil
}

func (e *Engine) transformValue(y float64) (float64, error) {
	switch e.transform {
	case transformLogit:
		floor := 0.0
		if e.floor != nil {
			floor = *e.floor
		}
		cap := *e.cap
		// Clamp just inside the bounds so boundary observations stay finite.
		eps := (cap - floor) * 1e-9
		if y <= floor {
			y = floor + eps
		}
		if y >= cap {
			y = cap - eps
		}
		return math.Log((y - floor) / (cap - y)), nil
	case transformLog:
		if y <= 0 {
			return 0, ErrNonPositiveSeries
		}
		return math.Log(y), nil
	default:
		return y, nil
	}
}

func (e *Engine) inverseTransform(z float64) float64 {
	switch e.transform {
	case transformLogit:
		floor := 0.0
		if e.floor != nil {
			floor = *e.floor
		}
		cap := *e.cap
		return floor + (cap-floor)/(1+math.Exp(-z))
	case transformLog:
		return math.Exp(z)
	default:
		return z
	}
}

// resolveSeasonalities applies the auto rules: a component is enabled when
// the observed history spans at least two of its periods and, for the
// shorter components, the sampling is finer than the period.
func (e *Engine) resolveSeasonalities(obsT []time.Time) {
	span := e.trainEnd.Sub(e.trainStart)
	spacing := minSpacing(obsT)

	e.yearlyOrder = resolveOrder(e.opt.YearlySeasonality, defaultYearlyOrder,
		span >= 2*yearlyPeriod)
	e.weeklyOrder = resolveOrder(e.opt.WeeklySeasonality, defaultWeeklyOrder,
		span >= 2*weeklyPeriod && spacing < weeklyPeriod)
	e.dailyOrder = resolveOrder(e.opt.DailySeasonality, defaultDailyOrder,
		span >= 2*dailyPeriod && spacing < dailyPeriod)
}

func resolveOrder(s Seasonality, def int, autoEnabled bool) int {
	if s.Auto {
		if autoEnabled {
			return def
		}
		return 0
	}
	if !s.Enabled {
		return 0
	}
	if s.Order > 0 {
		return s.Order
	}
	return def
}

func minSpacing(t []time.Time) time.Duration {
	min := time.Duration(math.MaxInt64)
	for i := 1; i < len(t); i++ {
		if d := t[i].Sub(t[i-1]); d > 0 && d < min {
			min = d
		}
	}
	return min
}

// resolveChangepoints uses the explicit list when given, otherwise places
// n_changepoints uniformly over the first changepoint_range proportion of
// the observed history.
func (e *Engine) resolveChangepoints(obsT []time.Time) {
	if len(e.opt.Changepoints) > 0 {
		cps := make([]time.Time, 0, len(e.opt.Changepoints))
		for _, cp := range e.opt.Changepoints {
			if cp.After(e.trainStart) && cp.Before(e.trainEnd) {
				cps = append(cps, cp)
			}
		}
		e.changepoints = cps
		return
	}

	histLen := int(math.Floor(float64(len(obsT)) * e.opt.ChangepointRange))
	if histLen < 2 || e.opt.NChangepoints <= 0 {
		e.changepoints = nil
		return
	}
	ncp := e.opt.NChangepoints
	if ncp > histLen-1 {
		ncp = histLen - 1
	}

	cps := make([]time.Time, 0, ncp)
	seen := make(map[int]bool, ncp)
	for j := 1; j <= ncp; j++ {
		idx := j * histLen / (ncp + 1)
		if idx <= 0 || idx >= len(obsT) || seen[idx] {
			continue
		}
		seen[idx] = true
		cps = append(cps, obsT[idx])
	}
	e.changepoints = cps
}

// solveRidge solves the penalty-augmented least squares problem. Each
// penalized column contributes one extra row with sqrt(lambda) on its own
// coefficient; intercept and unpenalized columns are left free.
func solveRidge(cols []column, y []float64) (float64, []float64, error) {
	n := len(y)
	p := len(cols)

	penalized := 0
	for _, c := range cols {
		if c.lambda > 0 {
			penalized++
		}
	}

	a := mat.NewDense(n+penalized, p+1, nil)
	b := mat.NewDense(n+penalized, 1, nil)
	for i := 0; i < n; i++ {
		a.Set(i, 0, 1)
		for j, c := range cols {
			a.Set(i, j+1, c.values[i])
		}
		b.Set(i, 0, y[i])
	}
	row := n
	for j, c := range cols {
		if c.lambda > 0 {
			a.Set(row, j+1, math.Sqrt(c.lambda))
			row++
		}
	}

	var sol mat.Dense
	if err := sol.Solve(a, b); err != nil {
		// A Condition error still carries a usable solution; anything
		// else is fatal.
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return 0, nil, err
		}
	}

	coef := make([]float64, p)
	for j := 0; j < p; j++ {
		coef[j] = sol.At(j+1, 0)
	}
	return sol.At(0, 0), coef, nil
}

func stddev(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	_, sd := stat.MeanStdDev(x, nil)
	return sd
}
