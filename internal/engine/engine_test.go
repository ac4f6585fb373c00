package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prophetable/prophetable/internal/contracts"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dailyFreq(t *testing.T) contracts.Frequency {
	t.Helper()
	f, err := contracts.ParseFrequency("D")
	require.NoError(t, err)
	return f
}

// dailySeries builds n daily observations starting at start with y = f(i).
func dailySeries(start time.Time, n int, f func(i int) float64) *contracts.Series {
	s := &contracts.Series{
		T: make([]time.Time, n),
		Y: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		s.T[i] = start.AddDate(0, 0, i)
		s.Y[i] = f(i)
	}
	return s
}

func linearOptions() *Options {
	opt := NewDefaultOptions()
	opt.YearlySeasonality = DisabledSeasonality()
	opt.WeeklySeasonality = DisabledSeasonality()
	opt.DailySeasonality = DisabledSeasonality()
	opt.Seed = 42
	return opt
}

func TestFitRecoversLinearTrend(t *testing.T) {
	series := dailySeries(date(2020, 1, 1), 100, func(i int) float64 {
		return 10 + 2*float64(i)
	})

	e, err := New(linearOptions())
	require.NoError(t, err)
	require.NoError(t, e.Fit(series))

	fc, err := e.Predict(series.T)
	require.NoError(t, err)
	require.Equal(t, 100, fc.Len())

	// Clean linear data fits exactly: the penalized changepoint weights
	// collapse to zero and intercept+slope carry the line.
	for i, row := range fc.Rows {
		want := 10 + 2*float64(i)
		assert.InDelta(t, want, row.YHat, 1e-6, "row %d", i)
		assert.InDelta(t, want, row.Trend, 1e-6, "trend %d", i)
	}
	assert.InDelta(t, 0, e.Scores().MAPE, 1e-9)
	assert.InDelta(t, 1, e.Scores().R2, 1e-9)
}

func TestPredictExtrapolatesLinearTrend(t *testing.T) {
	series := dailySeries(date(2020, 1, 1), 50, func(i int) float64 {
		return 5 + 3*float64(i)
	})

	e, err := New(linearOptions())
	require.NoError(t, err)
	require.NoError(t, e.Fit(series))

	calendar, err := e.MakeFutureCalendar(10, dailyFreq(t))
	require.NoError(t, err)
	require.Len(t, calendar, 60)
	assert.True(t, calendar[59].Equal(date(2020, 2, 29)), "last slot = %v", calendar[59])

	fc, err := e.Predict(calendar)
	require.NoError(t, err)
	for i := 50; i < 60; i++ {
		want := 5 + 3*float64(i)
		assert.InDelta(t, want, fc.Rows[i].YHat, 1e-6, "future row %d", i)
	}
}

func TestFitDropsMissingValues(t *testing.T) {
	series := dailySeries(date(2020, 1, 1), 30, func(i int) float64 {
		return float64(i)
	})
	series.Y[5] = math.NaN()
	series.Y[17] = math.NaN()

	e, err := New(linearOptions())
	require.NoError(t, err)
	require.NoError(t, e.Fit(series))

	fc, err := e.Predict(series.T)
	require.NoError(t, err)
	// Missing slots still get a prediction from the surrounding trend.
	assert.InDelta(t, 5, fc.Rows[5].YHat, 1e-6)
	assert.InDelta(t, 17, fc.Rows[17].YHat, 1e-6)
}

func TestFitInsufficientData(t *testing.T) {
	e, err := New(linearOptions())
	require.NoError(t, err)

	err = e.Fit(&contracts.Series{T: []time.Time{date(2020, 1, 1)}, Y: []float64{1}})
	assert.ErrorIs(t, err, ErrInsufficientTrainingData)

	all := dailySeries(date(2020, 1, 1), 5, func(int) float64 { return math.NaN() })
	err = e.Fit(all)
	assert.ErrorIs(t, err, ErrInsufficientTrainingData)
}

func TestLogisticGrowthRequiresCap(t *testing.T) {
	opt := linearOptions()
	opt.Growth = GrowthLogistic

	e, err := New(opt)
	require.NoError(t, err)

	series := dailySeries(date(2020, 1, 1), 10, func(i int) float64 { return float64(i) })
	assert.ErrorIs(t, e.Fit(series), ErrMissingCap)
}

func TestLogisticGrowthStaysWithinBounds(t *testing.T) {
	opt := linearOptions()
	opt.Growth = GrowthLogistic
	opt.UncertaintySamples = 0

	e, err := New(opt)
	require.NoError(t, err)

	cap := 100.0
	series := dailySeries(date(2020, 1, 1), 60, func(i int) float64 {
		return 100 / (1 + math.Exp(-0.1*(float64(i)-30)))
	})
	series.Cap = &cap
	require.NoError(t, e.Fit(series))

	calendar, err := e.MakeFutureCalendar(120, dailyFreq(t))
	require.NoError(t, err)
	fc, err := e.Predict(calendar)
	require.NoError(t, err)

	for _, row := range fc.Rows {
		assert.Greater(t, row.YHat, 0.0)
		assert.Less(t, row.YHat, 100.0)
	}
	// Far future approaches the cap.
	assert.Greater(t, fc.Rows[len(fc.Rows)-1].YHat, 90.0)
}

func TestMultiplicativeRejectsNonPositive(t *testing.T) {
	opt := linearOptions()
	opt.SeasonalityMode = SeasonalityMultiplicative

	e, err := New(opt)
	require.NoError(t, err)

	series := dailySeries(date(2020, 1, 1), 10, func(i int) float64 { return float64(i) - 5 })
	assert.ErrorIs(t, e.Fit(series), ErrNonPositiveSeries)
}

func TestPredictBeforeFit(t *testing.T) {
	e, err := New(linearOptions())
	require.NoError(t, err)

	_, err = e.Predict([]time.Time{date(2020, 1, 1)})
	assert.ErrorIs(t, err, ErrUntrained)

	_, err = e.MakeFutureCalendar(10, dailyFreq(t))
	assert.ErrorIs(t, err, ErrUntrained)
}

func TestAutoSeasonalityRules(t *testing.T) {
	tests := []struct {
		name       string
		series     *contracts.Series
		wantYearly int
		wantWeekly int
		wantDaily  int
	}{
		{
			name: "three years daily enables yearly and weekly",
			series: dailySeries(date(2018, 1, 1), 3*365, func(i int) float64 {
				return float64(i)
			}),
			wantYearly: defaultYearlyOrder,
			wantWeekly: defaultWeeklyOrder,
			wantDaily:  0,
		},
		{
			name: "one month daily enables weekly only",
			series: dailySeries(date(2020, 1, 1), 30, func(i int) float64 {
				return float64(i)
			}),
			wantYearly: 0,
			wantWeekly: defaultWeeklyOrder,
			wantDaily:  0,
		},
		{
			name: "ten days daily has no seasonality",
			series: dailySeries(date(2020, 1, 1), 10, func(i int) float64 {
				return float64(i)
			}),
			wantYearly: 0,
			wantWeekly: 0,
			wantDaily:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt := NewDefaultOptions()
			opt.Seed = 1
			e, err := New(opt)
			require.NoError(t, err)
			require.NoError(t, e.Fit(tt.series))

			assert.Equal(t, tt.wantYearly, e.yearlyOrder, "yearly")
			assert.Equal(t, tt.wantWeekly, e.weeklyOrder, "weekly")
			assert.Equal(t, tt.wantDaily, e.dailyOrder, "daily")
		})
	}
}

func TestHourlyDataEnablesDailySeasonality(t *testing.T) {
	n := 3 * 24
	series := &contracts.Series{
		T: make([]time.Time, n),
		Y: make([]float64, n),
	}
	start := date(2020, 1, 1)
	for i := 0; i < n; i++ {
		series.T[i] = start.Add(time.Duration(i) * time.Hour)
		series.Y[i] = math.Sin(2 * math.Pi * float64(i) / 24)
	}

	opt := NewDefaultOptions()
	opt.Seed = 1
	e, err := New(opt)
	require.NoError(t, err)
	require.NoError(t, e.Fit(series))

	assert.Equal(t, defaultDailyOrder, e.dailyOrder)
	assert.Equal(t, 0, e.weeklyOrder)
}

func TestWeeklySeasonalityRecovered(t *testing.T) {
	// Linear trend plus a strong weekend bump.
	series := dailySeries(date(2020, 1, 6), 20*7, func(i int) float64 {
		y := 100 + 0.5*float64(i)
		if i%7 == 5 || i%7 == 6 {
			y += 25
		}
		return y
	})

	opt := NewDefaultOptions()
	opt.YearlySeasonality = DisabledSeasonality()
	opt.DailySeasonality = DisabledSeasonality()
	opt.Seed = 7
	e, err := New(opt)
	require.NoError(t, err)
	require.NoError(t, e.Fit(series))
	require.Equal(t, defaultWeeklyOrder, e.weeklyOrder)

	fc, err := e.Predict(series.T)
	require.NoError(t, err)

	// The weekly component separates bump days from flat days.
	var bump, flat float64
	var nBump, nFlat int
	for i, row := range fc.Rows {
		if i%7 == 5 || i%7 == 6 {
			bump += row.Weekly
			nBump++
		} else {
			flat += row.Weekly
			nFlat++
		}
	}
	assert.Greater(t, bump/float64(nBump), flat/float64(nFlat)+10)
}

func TestExplicitChangepoints(t *testing.T) {
	series := dailySeries(date(2020, 1, 1), 60, func(i int) float64 {
		if i < 30 {
			return float64(i)
		}
		return 30 + 5*float64(i-30)
	})

	opt := linearOptions()
	opt.Changepoints = []time.Time{
		date(2020, 1, 31),
		date(2019, 6, 1), // outside the training window, dropped
	}
	opt.ChangepointPriorScale = 10 // allow a sharp slope change

	e, err := New(opt)
	require.NoError(t, err)
	require.NoError(t, e.Fit(series))

	require.Len(t, e.changepoints, 1)
	assert.True(t, e.changepoints[0].Equal(date(2020, 1, 31)))

	fc, err := e.Predict(series.T)
	require.NoError(t, err)
	assert.InDelta(t, series.Y[59], fc.Rows[59].YHat, 1.0)
}

func TestHolidayEffect(t *testing.T) {
	holiday := date(2020, 2, 14)
	series := dailySeries(date(2020, 1, 1), 90, func(i int) float64 {
		y := 50.0
		if date(2020, 1, 1).AddDate(0, 0, i).Equal(holiday) {
			y += 40
		}
		return y
	})

	opt := linearOptions()
	opt.Holidays = []contracts.Holiday{{Name: "valentine", DS: holiday}}

	e, err := New(opt)
	require.NoError(t, err)
	require.NoError(t, e.Fit(series))

	fc, err := e.Predict(series.T)
	require.NoError(t, err)

	idx := 44 // 2020-02-14
	require.True(t, series.T[idx].Equal(holiday))
	assert.Greater(t, fc.Rows[idx].Holidays, 20.0)
	assert.Less(t, fc.Rows[idx-1].Holidays, 1.0)
}

func TestIntervalsCoverPointForecast(t *testing.T) {
	series := dailySeries(date(2020, 1, 1), 80, func(i int) float64 {
		return 10 + float64(i) + 3*math.Sin(float64(i)*1.7)
	})

	opt := linearOptions()
	e, err := New(opt)
	require.NoError(t, err)
	require.NoError(t, e.Fit(series))

	calendar, err := e.MakeFutureCalendar(20, dailyFreq(t))
	require.NoError(t, err)
	fc, err := e.Predict(calendar)
	require.NoError(t, err)

	for i, row := range fc.Rows {
		assert.LessOrEqual(t, row.YHatLower, row.YHat, "row %d", i)
		assert.GreaterOrEqual(t, row.YHatUpper, row.YHat, "row %d", i)
	}
	// Noisy data must give a real band.
	last := fc.Rows[len(fc.Rows)-1]
	assert.Greater(t, last.YHatUpper, last.YHatLower)
}

func TestBootstrapIntervals(t *testing.T) {
	series := dailySeries(date(2020, 1, 1), 80, func(i int) float64 {
		return 10 + float64(i) + 3*math.Sin(float64(i)*1.7)
	})

	opt := linearOptions()
	opt.MCMCSamples = 50
	opt.UncertaintySamples = 200

	e, err := New(opt)
	require.NoError(t, err)
	require.NoError(t, e.Fit(series))

	fc, err := e.Predict(series.T)
	require.NoError(t, err)
	for i, row := range fc.Rows {
		assert.LessOrEqual(t, row.YHatLower, row.YHatUpper, "row %d", i)
	}

	// Same seed, same band.
	e2, err := New(opt)
	require.NoError(t, err)
	require.NoError(t, e2.Fit(series))
	fc2, err := e2.Predict(series.T)
	require.NoError(t, err)
	for i := range fc.Rows {
		assert.Equal(t, fc.Rows[i].YHatLower, fc2.Rows[i].YHatLower, "row %d", i)
	}
}

func TestDisabledUncertainty(t *testing.T) {
	series := dailySeries(date(2020, 1, 1), 40, func(i int) float64 {
		return float64(i) + math.Sin(float64(i))
	})

	opt := linearOptions()
	opt.UncertaintySamples = 0

	e, err := New(opt)
	require.NoError(t, err)
	require.NoError(t, e.Fit(series))

	fc, err := e.Predict(series.T)
	require.NoError(t, err)
	for _, row := range fc.Rows {
		assert.Equal(t, row.YHat, row.YHatLower)
		assert.Equal(t, row.YHat, row.YHatUpper)
	}
}

func TestModelRoundTrip(t *testing.T) {
	series := dailySeries(date(2020, 1, 1), 70, func(i int) float64 {
		return 20 + 1.5*float64(i) + 2*math.Sin(float64(i))
	})

	e, err := New(linearOptions())
	require.NoError(t, err)
	require.NoError(t, e.Fit(series))

	blob, err := e.Model()
	require.NoError(t, err)
	data, err := blob.Encode()
	require.NoError(t, err)

	decoded, err := DecodeModel(data)
	require.NoError(t, err)
	restored, err := NewFromModel(decoded)
	require.NoError(t, err)

	calendar, err := restored.MakeFutureCalendar(15, dailyFreq(t))
	require.NoError(t, err)
	require.Len(t, calendar, 85)

	want, err := e.Predict(calendar)
	require.NoError(t, err)
	got, err := restored.Predict(calendar)
	require.NoError(t, err)

	for i := range want.Rows {
		assert.InDelta(t, want.Rows[i].YHat, got.Rows[i].YHat, 1e-9, "row %d", i)
		assert.InDelta(t, want.Rows[i].YHatLower, got.Rows[i].YHatLower, 1e-9, "row %d", i)
		assert.InDelta(t, want.Rows[i].Trend, got.Rows[i].Trend, 1e-9, "row %d", i)
	}
}

func TestModelBeforeFit(t *testing.T) {
	e, err := New(linearOptions())
	require.NoError(t, err)

	_, err = e.Model()
	assert.ErrorIs(t, err, ErrUntrained)
}

func TestSeasonalityJSON(t *testing.T) {
	tests := []struct {
		raw  string
		want Seasonality
	}{
		{`"auto"`, AutoSeasonality()},
		{`true`, Seasonality{Enabled: true}},
		{`false`, DisabledSeasonality()},
		{`12`, FixedSeasonality(12)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var s Seasonality
			require.NoError(t, s.UnmarshalJSON([]byte(tt.raw)))
			assert.Equal(t, tt.want.Auto, s.Auto)
			assert.Equal(t, tt.want.Enabled, s.Enabled)
			assert.Equal(t, tt.want.Order, s.Order)
		})
	}

	var s Seasonality
	assert.Error(t, s.UnmarshalJSON([]byte(`"sometimes"`)))
}
