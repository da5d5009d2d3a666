package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/couchcryptid/delivery-fee-service/internal/domain"
)

//go:embed sql/sqlite.sql
var sqliteSchema string

const sqliteUpsertHistory = `
INSERT INTO observations (station, observed_unix, observed_at, wmo_code, air_temperature, wind_speed, phenomenon)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (station, observed_unix) DO UPDATE SET
  observed_at = excluded.observed_at,
  wmo_code = excluded.wmo_code,
  air_temperature = excluded.air_temperature,
  wind_speed = excluded.wind_speed,
  phenomenon = excluded.phenomenon`

const sqliteUpsertLatest = `
INSERT INTO latest_observations (station, observed_unix, observed_at, wmo_code, air_temperature, wind_speed, phenomenon)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (station) DO UPDATE SET
  observed_unix = excluded.observed_unix,
  observed_at = excluded.observed_at,
  wmo_code = excluded.wmo_code,
  air_temperature = excluded.air_temperature,
  wind_speed = excluded.wind_speed,
  phenomenon = excluded.phenomenon`

const sqliteSelectLatest = `
SELECT station, observed_at, wmo_code, air_temperature, wind_speed, phenomenon
FROM latest_observations`

// SQLite persists observations in a local database file. Every write appends
// to the observations history and replaces the station's latest row in one
// transaction.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLite, error) {
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db, logger: logger}, nil
}

func sqliteDSN(path string) (string, error) {
	if dir := filepath.Dir(strings.TrimPrefix(path, "file:")); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	params := "_busy_timeout=5000&_journal_mode=WAL"
	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + params, nil
	}
	return fmt.Sprintf("file:%s?%s", path, params), nil
}

func (s *SQLite) Put(ctx context.Context, obs domain.Observation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	args := []any{
		obs.Station,
		obs.ObservedAt.Unix(),
		obs.ObservedAt.Format(time.RFC3339Nano),
		obs.WMOCode,
		obs.AirTemperature,
		obs.WindSpeed,
		obs.Phenomenon,
	}
	if _, err := tx.ExecContext(ctx, sqliteUpsertHistory, args...); err != nil {
		return errors.Join(fmt.Errorf("insert history: %w", err), tx.Rollback())
	}
	if _, err := tx.ExecContext(ctx, sqliteUpsertLatest, args...); err != nil {
		return errors.Join(fmt.Errorf("upsert latest: %w", err), tx.Rollback())
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLite) PutAll(ctx context.Context, obs []domain.Observation) error {
	return putEach(ctx, obs, s.Put)
}

func (s *SQLite) GetLatest(ctx context.Context, station string) (domain.Observation, bool, error) {
	row := s.db.QueryRowContext(ctx, sqliteSelectLatest+" WHERE station = ?", station)
	obs, err := scanSQLiteObservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Observation{}, false, nil
	}
	if err != nil {
		return domain.Observation{}, false, err
	}
	return obs, true, nil
}

func (s *SQLite) ListLatest(ctx context.Context) ([]domain.Observation, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelectLatest+" ORDER BY station")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("close latest observation rows", "error", err)
		}
	}()

	var out []domain.Observation
	for rows.Next() {
		obs, err := scanSQLiteObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteObservation(row rowScanner) (domain.Observation, error) {
	var obs domain.Observation
	var ts string
	if err := row.Scan(&obs.Station, &ts, &obs.WMOCode, &obs.AirTemperature, &obs.WindSpeed, &obs.Phenomenon); err != nil {
		return domain.Observation{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	obs.ObservedAt = t
	return obs, nil
}
