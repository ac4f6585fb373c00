package dataset

import (
	"errors"
	"math"
	"time"

	"github.com/prophetable/prophetable/internal/contracts"
)

// PrepareParams carries the resolved config that shapes preparation.
// MinDate/MaxDate are nil when they should be derived from the data.
type PrepareParams struct {
	Freq          contracts.Frequency
	MinDate       *time.Time
	MaxDate       *time.Time
	NAFill        *float64
	SaturatingMin *float64
	SaturatingMax *float64
}

// Prepare resamples the raw series onto the gap-free calendar between the
// min and max train dates at the configured frequency. Calendar slots with
// no matching raw observation get NaN, or the fill value when one is
// configured. Returns the prepared series and the resolved date range.
func Prepare(raw *Raw, p PrepareParams) (*contracts.Series, time.Time, time.Time, error) {
	if raw == nil || len(raw.T) == 0 {
		return nil, time.Time{}, time.Time{}, errors.New("no rows in raw series")
	}

	minDate := raw.Min()
	if p.MinDate != nil {
		minDate = *p.MinDate
	}
	maxDate := raw.Max()
	if p.MaxDate != nil {
		maxDate = *p.MaxDate
	}
	if maxDate.Before(minDate) {
		return nil, time.Time{}, time.Time{}, errors.New("max_train_date is before min_train_date")
	}

	// Left join on timestamp. Later duplicates win, matching read order.
	byTime := make(map[int64]float64, len(raw.T))
	for i, t := range raw.T {
		byTime[t.UnixNano()] = raw.Y[i]
	}

	calendar := p.Freq.Sequence(minDate, maxDate)
	series := &contracts.Series{
		T: calendar,
		Y: make([]float64, len(calendar)),
	}
	for i, t := range calendar {
		y, ok := byTime[t.UnixNano()]
		if !ok {
			y = math.NaN()
		}
		if math.IsNaN(y) && p.NAFill != nil {
			y = *p.NAFill
		}
		series.Y[i] = y
	}

	if p.SaturatingMin != nil {
		floor := *p.SaturatingMin
		series.Floor = &floor
	}
	if p.SaturatingMax != nil {
		cap := *p.SaturatingMax
		series.Cap = &cap
	}

	return series, minDate, maxDate, nil
}
