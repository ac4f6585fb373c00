package holiday

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prophetable/prophetable/internal/contracts"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestReadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holidays.csv")
	content := "holiday,ds,lower_window,upper_window,prior_scale\n" +
		"newyear,2021-01-01,-1,1,5.0\n" +
		"mayday,2021-05-01,0,0,\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	holidays, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(holidays) != 2 {
		t.Fatalf("expected 2 holidays, got %d", len(holidays))
	}

	ny := holidays[0]
	if ny.Name != "newyear" || !ny.DS.Equal(date(2021, 1, 1)) {
		t.Errorf("first holiday = %+v", ny)
	}
	if ny.LowerWindow != -1 || ny.UpperWindow != 1 {
		t.Errorf("window = [%d, %d]", ny.LowerWindow, ny.UpperWindow)
	}
	if ny.PriorScale == nil || *ny.PriorScale != 5.0 {
		t.Errorf("prior scale = %v", ny.PriorScale)
	}
	if holidays[1].PriorScale != nil {
		t.Errorf("empty prior scale should stay nil, got %v", *holidays[1].PriorScale)
	}
}

func TestReadCSVFloatWindows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holidays.csv")
	content := "holiday,ds,lower_window,upper_window\nnewyear,2021-01-01,-1.0,2.0\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	holidays, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if holidays[0].LowerWindow != -1 || holidays[0].UpperWindow != 2 {
		t.Errorf("float windows = [%d, %d]", holidays[0].LowerWindow, holidays[0].UpperWindow)
	}
}

func TestReadCSVMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holidays.csv")
	if err := os.WriteFile(path, []byte("name,ds\nnewyear,2021-01-01\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadCSV(path); err == nil {
		t.Error("expected error for missing holiday column")
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	in := []contracts.Holiday{
		{Name: "newyear", DS: date(2021, 1, 1), LowerWindow: -1, UpperWindow: 1},
		{Name: "chuseok", DS: date(2021, 9, 21)},
	}

	path := filepath.Join(t.TempDir(), "out", "holidays.csv")
	if err := WriteCSV(path, in); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	out, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 holidays, got %d", len(out))
	}
	if out[0].Name != "newyear" || out[0].LowerWindow != -1 || out[0].UpperWindow != 1 {
		t.Errorf("round trip holiday = %+v", out[0])
	}
	if !out[1].DS.Equal(date(2021, 9, 21)) {
		t.Errorf("round trip ds = %v", out[1].DS)
	}
}
