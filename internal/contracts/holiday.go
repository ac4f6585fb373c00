package contracts

import "time"

// Holiday is a named recurring or one-off event with an optional window of
// surrounding days and an optional per-holiday prior scale overriding the
// global holidays_prior_scale.
type Holiday struct {
	Name        string    `json:"holiday"`
	DS          time.Time `json:"ds"`
	LowerWindow int       `json:"lower_window"` // days before DS, <= 0
	UpperWindow int       `json:"upper_window"` // days after DS, >= 0
	PriorScale  *float64  `json:"prior_scale,omitempty"`
}

// Window returns every date covered by the holiday including its
// lower/upper window expansion.
func (h Holiday) Window() []time.Time {
	lo := h.LowerWindow
	if lo > 0 {
		lo = -lo
	}
	hi := h.UpperWindow
	if hi < 0 {
		hi = -hi
	}
	out := make([]time.Time, 0, hi-lo+1)
	for d := lo; d <= hi; d++ {
		out = append(out, h.DS.AddDate(0, 0, d))
	}
	return out
}
