package contracts

import (
	"math"
	"time"
)

// Series is a prepared univariate series on a gap-free calendar.
// Missing observations are carried as NaN rather than dropped, so the
// calendar invariant survives preparation; the engine decides what to do
// with unobserved slots at fit time.
type Series struct {
	T []time.Time
	Y []float64

	// Saturating bounds, attached when configured. Constant across rows.
	Floor *float64
	Cap   *float64
}

// Len returns the number of calendar rows.
func (s *Series) Len() int { return len(s.T) }

// Observed returns the count of non-NaN values.
func (s *Series) Observed() int {
	n := 0
	for _, v := range s.Y {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Start returns the first calendar timestamp, or the zero time when empty.
func (s *Series) Start() time.Time {
	if len(s.T) == 0 {
		return time.Time{}
	}
	return s.T[0]
}

// End returns the last calendar timestamp, or the zero time when empty.
func (s *Series) End() time.Time {
	if len(s.T) == 0 {
		return time.Time{}
	}
	return s.T[len(s.T)-1]
}
