package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prophetable/prophetable/internal/contracts"
)

// RunRecord is one completed forecast run.
type RunRecord struct {
	ID            uuid.UUID
	ConfigHash    string
	DataURI       string
	Growth        string
	Frequency     string
	FuturePeriods int
	TrainRows     int
	ForecastRows  int
	MAPE          float64
	CreatedAt     time.Time
}

// Repository persists run history and forecast rows.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the run-history tables when they do not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS forecast_runs (
			id UUID PRIMARY KEY,
			config_hash TEXT NOT NULL,
			data_uri TEXT NOT NULL,
			growth TEXT NOT NULL,
			frequency TEXT NOT NULL,
			future_periods INT NOT NULL,
			train_rows INT NOT NULL,
			forecast_rows INT NOT NULL,
			mape DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS forecast_points (
			run_id UUID NOT NULL REFERENCES forecast_runs(id) ON DELETE CASCADE,
			ds TIMESTAMPTZ NOT NULL,
			yhat DOUBLE PRECISION NOT NULL,
			yhat_lower DOUBLE PRECISION NOT NULL,
			yhat_upper DOUBLE PRECISION NOT NULL,
			trend DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (run_id, ds)
		)`,
	}
	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun inserts the run record and its forecast rows.
func (r *Repository) SaveRun(ctx context.Context, rec RunRecord, forecast *contracts.Forecast) error {
	query := `
		INSERT INTO forecast_runs
			(id, config_hash, data_uri, growth, frequency, future_periods, train_rows, forecast_rows, mape)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.ConfigHash, rec.DataURI, rec.Growth, rec.Frequency,
		rec.FuturePeriods, rec.TrainRows, rec.ForecastRows, rec.MAPE,
	)
	if err != nil {
		return err
	}

	return r.savePoints(ctx, rec.ID, forecast)
}

func (r *Repository) savePoints(ctx context.Context, runID uuid.UUID, forecast *contracts.Forecast) error {
	if forecast == nil || forecast.Len() == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO forecast_points (run_id, ds, yhat, yhat_lower, yhat_upper, trend)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id, ds) DO UPDATE SET
			yhat = EXCLUDED.yhat,
			yhat_lower = EXCLUDED.yhat_lower,
			yhat_upper = EXCLUDED.yhat_upper,
			trend = EXCLUDED.trend`

	for _, row := range forecast.Rows {
		batch.Queue(query, runID, row.DS, row.YHat, row.YHatLower, row.YHatUpper, row.Trend)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range forecast.Rows {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}

	return nil
}

// GetRun fetches a run record by id.
func (r *Repository) GetRun(ctx context.Context, id uuid.UUID) (*RunRecord, error) {
	query := `
		SELECT id, config_hash, data_uri, growth, frequency, future_periods,
			   train_rows, forecast_rows, mape, created_at
		FROM forecast_runs
		WHERE id = $1`

	var rec RunRecord
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.ConfigHash, &rec.DataURI, &rec.Growth, &rec.Frequency,
		&rec.FuturePeriods, &rec.TrainRows, &rec.ForecastRows, &rec.MAPE, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// GetRecentRuns lists the most recent runs, newest first.
func (r *Repository) GetRecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
		SELECT id, config_hash, data_uri, growth, frequency, future_periods,
			   train_rows, forecast_rows, mape, created_at
		FROM forecast_runs
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(
			&rec.ID, &rec.ConfigHash, &rec.DataURI, &rec.Growth, &rec.Frequency,
			&rec.FuturePeriods, &rec.TrainRows, &rec.ForecastRows, &rec.MAPE, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetPoints fetches the forecast rows of a run ordered by timestamp.
func (r *Repository) GetPoints(ctx context.Context, runID uuid.UUID) ([]contracts.ForecastRow, error) {
	query := `
		SELECT ds, yhat, yhat_lower, yhat_upper, trend
		FROM forecast_points
		WHERE run_id = $1
		ORDER BY ds`

	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []contracts.ForecastRow
	for rows.Next() {
		var p contracts.ForecastRow
		if err := rows.Scan(&p.DS, &p.YHat, &p.YHatLower, &p.YHatUpper, &p.Trend); err != nil {
			return nil, err
		}
		points = append(points, p)
	}

	return points, rows.Err()
}
