package contracts

import (
	"fmt"
	"time"
)

// Frequency is a calendar step size for resampling and future extension.
// The shorthand codes follow the input config vocabulary: D (daily),
// W (weekly), M (monthly), H (hourly). Anything else is parsed as a Go
// duration string, e.g. "30m".
type Frequency struct {
	code   string
	months int
	days   int
	dur    time.Duration
}

// ParseFrequency resolves a frequency code. An empty code means daily.
func ParseFrequency(code string) (Frequency, error) {
	switch code {
	case "", "D":
		return Frequency{code: "D", days: 1}, nil
	case "W":
		return Frequency{code: "W", days: 7}, nil
	case "M":
		return Frequency{code: "M", months: 1}, nil
	case "H":
		return Frequency{code: "H", dur: time.Hour}, nil
	}
	d, err := time.ParseDuration(code)
	if err != nil || d <= 0 {
		return Frequency{}, fmt.Errorf("unsupported ts_frequency %q", code)
	}
	return Frequency{code: code, dur: d}, nil
}

// String returns the original frequency code.
func (f Frequency) String() string { return f.code }

// Next returns the calendar slot following t.
func (f Frequency) Next(t time.Time) time.Time {
	if f.months != 0 || f.days != 0 {
		return t.AddDate(0, f.months, f.days)
	}
	return t.Add(f.dur)
}

// Sequence builds the gap-free calendar from start to end inclusive.
// end is included even when it does not land exactly on a step boundary,
// matching how the preparer derives end from observed data.
func (f Frequency) Sequence(start, end time.Time) []time.Time {
	var out []time.Time
	for t := start; !t.After(end); t = f.Next(t) {
		out = append(out, t)
	}
	return out
}

// Extend appends periods additional slots after the last element of t.
func (f Frequency) Extend(t []time.Time, periods int) []time.Time {
	out := make([]time.Time, 0, len(t)+periods)
	out = append(out, t...)
	if len(t) == 0 || periods <= 0 {
		return out
	}
	cur := t[len(t)-1]
	for i := 0; i < periods; i++ {
		cur = f.Next(cur)
		out = append(out, cur)
	}
	return out
}
