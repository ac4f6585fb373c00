package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prophetable/prophetable/internal/contracts"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	pool, err := pgxpool.New(context.Background(), url)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestSaveAndGetRun(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	repo := NewRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	rec := RunRecord{
		ID:            uuid.New(),
		ConfigHash:    "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef",
		DataURI:       "testdata/data.csv",
		Growth:        "linear",
		Frequency:     "D",
		FuturePeriods: 5,
		TrainRows:     3,
		ForecastRows:  8,
		MAPE:          0.01,
	}
	forecast := &contracts.Forecast{Rows: []contracts.ForecastRow{
		{DS: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), YHat: 1, YHatLower: 0.5, YHatUpper: 1.5, Trend: 1},
		{DS: time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC), YHat: 2, YHatLower: 1.5, YHatUpper: 2.5, Trend: 2},
	}}

	if err := repo.SaveRun(ctx, rec, forecast); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := repo.GetRun(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.ConfigHash != rec.ConfigHash || got.ForecastRows != 8 {
		t.Errorf("GetRun = %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not populated")
	}

	points, err := repo.GetPoints(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetPoints failed: %v", err)
	}
	if len(points) != 2 || points[1].YHat != 2 {
		t.Errorf("points = %+v", points)
	}

	runs, err := repo.GetRecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecentRuns failed: %v", err)
	}
	found := false
	for _, r := range runs {
		if r.ID == rec.ID {
			found = true
		}
	}
	if !found {
		t.Error("saved run missing from recent runs")
	}

	// cleanup, cascade removes points
	if _, err := pool.Exec(ctx, "DELETE FROM forecast_runs WHERE id = $1", rec.ID); err != nil {
		t.Errorf("cleanup failed: %v", err)
	}
}
