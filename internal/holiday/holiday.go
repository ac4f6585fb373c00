// Package holiday loads and persists holiday tables consumed by the
// forecasting engine. A table can come from the inline holidays config list
// or from a CSV at holiday_input_uri; the CSV takes priority when both are
// given.
package holiday

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/prophetable/prophetable/internal/contracts"
	"github.com/prophetable/prophetable/internal/dataset"
)

// ReadCSV loads a holiday table. Required columns: holiday, ds. Optional:
// lower_window, upper_window, prior_scale.
func ReadCSV(path string) ([]contracts.Holiday, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read holidays: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read holiday header of %s: %w", path, err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"holiday", "ds"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("column %q not found in %s", required, path)
		}
	}

	var out []contracts.Holiday
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		ds, err := dataset.ParseDate("ds", record[col["ds"]])
		if err != nil {
			return nil, err
		}

		h := contracts.Holiday{
			Name: strings.TrimSpace(record[col["holiday"]]),
			DS:   ds,
		}
		if i, ok := col["lower_window"]; ok {
			h.LowerWindow = parseIntCell(record[i])
		}
		if i, ok := col["upper_window"]; ok {
			h.UpperWindow = parseIntCell(record[i])
		}
		if i, ok := col["prior_scale"]; ok {
			if v := strings.TrimSpace(record[i]); v != "" {
				if scale, err := strconv.ParseFloat(v, 64); err == nil {
					h.PriorScale = &scale
				}
			}
		}
		out = append(out, h)
	}

	return out, nil
}

func parseIntCell(cell string) int {
	v := strings.TrimSpace(cell)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// lower_window is often written as a float by exporters
		if f, ferr := strconv.ParseFloat(v, 64); ferr == nil {
			return int(f)
		}
		return 0
	}
	return n
}

// WriteCSV persists a holiday table, creating parent directories as needed.
func WriteCSV(path string, holidays []contracts.Holiday) error {
	if err := dataset.EnsureParentDir(path); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write holidays: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if err := w.Write([]string{"holiday", "ds", "lower_window", "upper_window"}); err != nil {
		return err
	}
	for _, h := range holidays {
		record := []string{
			h.Name,
			dataset.FormatTimestamp(h.DS),
			strconv.Itoa(h.LowerWindow),
			strconv.Itoa(h.UpperWindow),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
