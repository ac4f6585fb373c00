package engine

import (
	"fmt"
	"math"
	"time"
)

// Feature kinds for labelling design matrix columns.
const (
	FeatureTrend       = "trend"
	FeatureChangepoint = "changepoint"
	FeatureSeasonality = "seasonality"
	FeatureHoliday     = "holiday"
)

// Label identifies one design matrix column.
type Label struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

func (l Label) String() string { return l.Type + ":" + l.Name }

// column is one design matrix column with its ridge penalty.
type column struct {
	label  Label
	lambda float64
	values []float64
}

// Seasonal periods and default Fourier orders.
const (
	yearlyPeriod = 365.25 * 24 * time.Hour
	weeklyPeriod = 7 * 24 * time.Hour
	dailyPeriod  = 24 * time.Hour

	defaultYearlyOrder = 10
	defaultWeeklyOrder = 3
	defaultDailyOrder  = 4
)

// scaledTime maps t onto [0,1] over the training span. Times past the
// training end extrapolate beyond 1 so trend and changepoint slopes carry
// forward.
func (e *Engine) scaledTime(t time.Time) float64 {
	if e.spanSecs <= 0 {
		return 0
	}
	return t.Sub(e.trainStart).Seconds() / e.spanSecs
}

// buildColumns assembles the design matrix columns for the given calendar,
// using the changepoints, seasonal orders, and holidays resolved at fit.
func (e *Engine) buildColumns(t []time.Time) []column {
	n := len(t)
	s := make([]float64, n)
	for i, ti := range t {
		s[i] = e.scaledTime(ti)
	}

	var cols []column

	// Base trend slope. Unpenalized, like the intercept.
	cols = append(cols, column{
		label:  Label{Type: FeatureTrend, Name: "slope"},
		values: s,
	})

	// Hinge features, one per changepoint: max(0, s - s_cp). The slope
	// delta stays active past the training window so future trend keeps
	// the final rate.
	cpLambda := 1.0 / (e.opt.ChangepointPriorScale * e.opt.ChangepointPriorScale)
	for j, cp := range e.changepoints {
		sj := e.scaledTime(cp)
		vals := make([]float64, n)
		for i := range s {
			if d := s[i] - sj; d > 0 {
				vals[i] = d
			}
		}
		cols = append(cols, column{
			label:  Label{Type: FeatureChangepoint, Name: fmt.Sprintf("cp_%02d", j)},
			lambda: cpLambda,
			values: vals,
		})
	}

	// Fourier seasonality pairs.
	seasLambda := 1.0 / (e.opt.SeasonalityPriorScale * e.opt.SeasonalityPriorScale)
	cols = append(cols, fourierColumns(t, "yearly", yearlyPeriod, e.yearlyOrder, seasLambda)...)
	cols = append(cols, fourierColumns(t, "weekly", weeklyPeriod, e.weeklyOrder, seasLambda)...)
	cols = append(cols, fourierColumns(t, "daily", dailyPeriod, e.dailyOrder, seasLambda)...)

	// Holiday indicators, one column per holiday name, set over each
	// occurrence's window.
	cols = append(cols, e.holidayColumns(t)...)

	return cols
}

func fourierColumns(t []time.Time, name string, period time.Duration, order int, lambda float64) []column {
	if order <= 0 {
		return nil
	}

	n := len(t)
	cols := make([]column, 0, 2*order)
	p := period.Seconds()
	for k := 1; k <= order; k++ {
		sin := make([]float64, n)
		cos := make([]float64, n)
		for i, ti := range t {
			x := 2 * math.Pi * float64(k) * float64(ti.Unix()) / p
			sin[i] = math.Sin(x)
			cos[i] = math.Cos(x)
		}
		cols = append(cols,
			column{label: Label{Type: FeatureSeasonality, Name: fmt.Sprintf("%s_sin_%d", name, k)}, lambda: lambda, values: sin},
			column{label: Label{Type: FeatureSeasonality, Name: fmt.Sprintf("%s_cos_%d", name, k)}, lambda: lambda, values: cos},
		)
	}
	return cols
}

func (e *Engine) holidayColumns(t []time.Time) []column {
	if len(e.opt.Holidays) == 0 {
		return nil
	}

	// Group window dates by holiday name; repeated occurrences of the
	// same holiday share a single column.
	windows := make(map[string]map[int64]bool)
	scales := make(map[string]float64)
	order := make([]string, 0)
	for _, h := range e.opt.Holidays {
		if _, ok := windows[h.Name]; !ok {
			windows[h.Name] = make(map[int64]bool)
			order = append(order, h.Name)
			scale := e.opt.HolidaysPriorScale
			if h.PriorScale != nil && *h.PriorScale > 0 {
				scale = *h.PriorScale
			}
			scales[h.Name] = scale
		}
		for _, d := range h.Window() {
			windows[h.Name][dateKey(d)] = true
		}
	}

	cols := make([]column, 0, len(order))
	for _, name := range order {
		vals := make([]float64, len(t))
		for i, ti := range t {
			if windows[name][dateKey(ti)] {
				vals[i] = 1
			}
		}
		scale := scales[name]
		cols = append(cols, column{
			label:  Label{Type: FeatureHoliday, Name: name},
			lambda: 1.0 / (scale * scale),
			values: vals,
		})
	}
	return cols
}

// dateKey truncates a timestamp to its calendar date for holiday matching.
func dateKey(t time.Time) int64 {
	y, m, d := t.Date()
	return int64(y)*10000 + int64(m)*100 + int64(d)
}
