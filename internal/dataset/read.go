package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Raw is the ordered sequence of (timestamp, value) pairs read from the
// delimited source, before calendar resampling.
type Raw struct {
	T []time.Time
	Y []float64
}

// ReadDelimited reads a delimited file with a header row, parsing the
// configured timestamp and value columns. Value cells that are empty or
// literal NA markers become NaN.
func ReadDelimited(path, delimiter, dsCol, yCol string) (*Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if delimiter != "" {
		r.Comma = []rune(delimiter)[0]
	}
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	dsIdx, yIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case dsCol:
			dsIdx = i
		case yCol:
			yIdx = i
		}
	}
	if dsIdx < 0 {
		return nil, fmt.Errorf("column %q not found in %s", dsCol, path)
	}
	if yIdx < 0 {
		return nil, fmt.Errorf("column %q not found in %s", yCol, path)
	}

	parser := newDateParser(dsCol)
	raw := &Raw{}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		ts, err := parser.parse(record[dsIdx])
		if err != nil {
			return nil, err
		}

		raw.T = append(raw.T, ts)
		raw.Y = append(raw.Y, parseValue(record[yIdx]))
	}

	return raw, nil
}

func parseValue(cell string) float64 {
	v := strings.TrimSpace(cell)
	if v == "" || v == "NA" || v == "NaN" {
		return math.NaN()
	}
	y, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return math.NaN()
	}
	return y
}

// Min returns the earliest raw timestamp.
func (r *Raw) Min() time.Time {
	min := r.T[0]
	for _, t := range r.T[1:] {
		if t.Before(min) {
			min = t
		}
	}
	return min
}

// Max returns the latest raw timestamp.
func (r *Raw) Max() time.Time {
	max := r.T[0]
	for _, t := range r.T[1:] {
		if t.After(max) {
			max = t
		}
	}
	return max
}
