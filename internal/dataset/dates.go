package dataset

import (
	"strings"
	"time"

	"github.com/prophetable/prophetable/internal/contracts"
)

// dateLayouts are tried in order for timestamp inference. Once a layout
// matches, it is preferred for the remaining rows of the same column.
var dateLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"20060102",
}

// dateParser parses timestamp strings with best-effort layout inference.
type dateParser struct {
	column string
	layout string // layout inferred from the first successful parse
}

func newDateParser(column string) *dateParser {
	return &dateParser{column: column}
}

func (p *dateParser) parse(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if p.layout != "" {
		if t, err := time.Parse(p.layout, v); err == nil {
			return t, nil
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			p.layout = layout
			return t, nil
		}
	}
	return time.Time{}, contracts.DateParseError{Column: p.column, Value: value}
}

// ParseDate parses a single standalone date value, e.g. a configured
// min_train_date, with the same layout inference as column parsing.
func ParseDate(setting, value string) (time.Time, error) {
	return newDateParser(setting).parse(value)
}
