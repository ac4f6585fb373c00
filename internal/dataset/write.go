package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prophetable/prophetable/internal/contracts"
)

// EnsureParentDir creates the parent directory tree of path if needed.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// FormatTimestamp renders a calendar timestamp, using the bare date form
// when the slot has no clock component.
func FormatTimestamp(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteSeries persists a prepared series as CSV, creating parent
// directories as needed. NaN values serialize as empty cells so a
// round-trip restores them as missing.
func WriteSeries(path string, s *contracts.Series) error {
	if err := EnsureParentDir(path); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write training data: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{"ds", "y"}
	if s.Floor != nil {
		header = append(header, "floor")
	}
	if s.Cap != nil {
		header = append(header, "cap")
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, t := range s.T {
		record := []string{FormatTimestamp(t), formatValue(s.Y[i])}
		if s.Floor != nil {
			record = append(record, formatValue(*s.Floor))
		}
		if s.Cap != nil {
			record = append(record, formatValue(*s.Cap))
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// WriteForecast persists a forecast as CSV with uncertainty bounds and
// component columns, creating parent directories as needed.
func WriteForecast(path string, fc *contracts.Forecast) error {
	if err := EnsureParentDir(path); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write forecast: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{"ds", "yhat", "yhat_lower", "yhat_upper", "trend", "yearly", "weekly", "daily", "holidays"}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, row := range fc.Rows {
		record := []string{
			FormatTimestamp(row.DS),
			formatValue(row.YHat),
			formatValue(row.YHatLower),
			formatValue(row.YHatUpper),
			formatValue(row.Trend),
			formatValue(row.Yearly),
			formatValue(row.Weekly),
			formatValue(row.Daily),
			formatValue(row.Holidays),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
