package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/delivery-fee-service/internal/domain"
)

//go:embed sql/postgres.sql
var postgresSchema string

const postgresUpsertHistory = `
INSERT INTO observations (station, observed_at, wmo_code, air_temperature, wind_speed, phenomenon)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (station, observed_at) DO UPDATE SET
  wmo_code = EXCLUDED.wmo_code,
  air_temperature = EXCLUDED.air_temperature,
  wind_speed = EXCLUDED.wind_speed,
  phenomenon = EXCLUDED.phenomenon`

const postgresUpsertLatest = `
INSERT INTO latest_observations (station, observed_at, wmo_code, air_temperature, wind_speed, phenomenon)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (station) DO UPDATE SET
  observed_at = EXCLUDED.observed_at,
  wmo_code = EXCLUDED.wmo_code,
  air_temperature = EXCLUDED.air_temperature,
  wind_speed = EXCLUDED.wind_speed,
  phenomenon = EXCLUDED.phenomenon`

const postgresSelectLatest = `
SELECT station, observed_at, wmo_code, air_temperature, wind_speed, phenomenon
FROM latest_observations`

// Postgres persists observations with the same layout as SQLite.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Put(ctx context.Context, obs domain.Observation) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		args := []any{obs.Station, obs.ObservedAt, obs.WMOCode, obs.AirTemperature, obs.WindSpeed, obs.Phenomenon}
		if _, err := tx.Exec(ctx, postgresUpsertHistory, args...); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
		if _, err := tx.Exec(ctx, postgresUpsertLatest, args...); err != nil {
			return fmt.Errorf("upsert latest: %w", err)
		}
		return nil
	})
}

func (p *Postgres) PutAll(ctx context.Context, obs []domain.Observation) error {
	return putEach(ctx, obs, p.Put)
}

func (p *Postgres) GetLatest(ctx context.Context, station string) (domain.Observation, bool, error) {
	row := p.pool.QueryRow(ctx, postgresSelectLatest+" WHERE station = $1", station)
	obs, err := scanPostgresObservation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Observation{}, false, nil
	}
	if err != nil {
		return domain.Observation{}, false, err
	}
	return obs, true, nil
}

func (p *Postgres) ListLatest(ctx context.Context) ([]domain.Observation, error) {
	rows, err := p.pool.Query(ctx, postgresSelectLatest+" ORDER BY station")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Observation
	for rows.Next() {
		obs, err := scanPostgresObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}

// Close releases the pool. It never fails.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func scanPostgresObservation(row rowScanner) (domain.Observation, error) {
	var obs domain.Observation
	err := row.Scan(&obs.Station, &obs.ObservedAt, &obs.WMOCode, &obs.AirTemperature, &obs.WindSpeed, &obs.Phenomenon)
	return obs, err
}
