package contracts

import "time"

// ForecastRow is a single predicted calendar slot with uncertainty bounds
// and the additive component breakdown.
type ForecastRow struct {
	DS        time.Time `json:"ds"`
	YHat      float64   `json:"yhat"`
	YHatLower float64   `json:"yhat_lower"`
	YHatUpper float64   `json:"yhat_upper"`
	Trend     float64   `json:"trend"`
	Yearly    float64   `json:"yearly"`
	Weekly    float64   `json:"weekly"`
	Daily     float64   `json:"daily"`
	Holidays  float64   `json:"holidays"`
}

// Forecast covers the historical calendar plus the future extension.
type Forecast struct {
	Rows []ForecastRow `json:"rows"`
}

// Len returns the number of forecast rows.
func (f *Forecast) Len() int { return len(f.Rows) }

// Horizon returns the first and last forecast timestamps.
func (f *Forecast) Horizon() (time.Time, time.Time) {
	if len(f.Rows) == 0 {
		return time.Time{}, time.Time{}
	}
	return f.Rows[0].DS, f.Rows[len(f.Rows)-1].DS
}
