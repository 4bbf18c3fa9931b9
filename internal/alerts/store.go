package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relabs-tech/dsa_handheld/internal/metrics"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// OpenPool connects to Postgres and checks the connection.
func OpenPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Store persists condition specs in the alert_conditions table, keyed
// by name.
type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	return &Store{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS alert_conditions (
	name        TEXT PRIMARY KEY,
	level       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	enabled     BOOLEAN NOT NULL DEFAULT TRUE,
	latitude    DOUBLE PRECISION NOT NULL,
	longitude   DOUBLE PRECISION NOT NULL,
	radius_m    DOUBLE PRECISION NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func (s *Store) EnsureSchema(ctx context.Context) (err error) {
	defer record("ensure_schema", time.Now(), &err)

	if _, err = s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create alert_conditions: %w", err)
	}
	return nil
}

// LoadAll returns every stored spec in creation order.
func (s *Store) LoadAll(ctx context.Context) (specs []ConditionSpec, err error) {
	defer record("load_all", time.Now(), &err)

	rows, err := s.db.Query(ctx, `
		SELECT name, level, description, enabled, latitude, longitude, radius_m
		FROM alert_conditions
		ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("query alert_conditions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			spec    ConditionSpec
			enabled bool
		)
		if err = rows.Scan(&spec.Name, &spec.Level, &spec.Description, &enabled,
			&spec.Latitude, &spec.Longitude, &spec.RadiusMeters); err != nil {
			return nil, fmt.Errorf("scan alert condition: %w", err)
		}
		spec.Enabled = &enabled
		specs = append(specs, spec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("read alert_conditions: %w", err)
	}
	return specs, nil
}

// Save inserts spec or replaces the stored spec with the same name.
func (s *Store) Save(ctx context.Context, spec ConditionSpec) (err error) {
	defer record("save", time.Now(), &err)

	if err = spec.Validate(); err != nil {
		return err
	}
	level, _ := ParseLevel(spec.Level)
	enabled := spec.Enabled == nil || *spec.Enabled

	_, err = s.db.Exec(ctx, `
		INSERT INTO alert_conditions (name, level, description, enabled, latitude, longitude, radius_m)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name) DO UPDATE SET
			level = EXCLUDED.level,
			description = EXCLUDED.description,
			enabled = EXCLUDED.enabled,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			radius_m = EXCLUDED.radius_m,
			updated_at = now()`,
		spec.Name, level.String(), spec.Description, enabled, spec.Latitude, spec.Longitude, spec.RadiusMeters)
	if err != nil {
		return fmt.Errorf("save alert condition %q: %w", spec.Name, err)
	}
	return nil
}

// Delete removes the spec named name. Deleting a missing name is not an
// error.
func (s *Store) Delete(ctx context.Context, name string) (err error) {
	defer record("delete", time.Now(), &err)

	if _, err = s.db.Exec(ctx, `DELETE FROM alert_conditions WHERE name = $1`, name); err != nil {
		return fmt.Errorf("delete alert condition %q: %w", name, err)
	}
	return nil
}

func record(operation string, start time.Time, err *error) {
	metrics.RecordDatabaseQuery(operation, *err, time.Since(start))
}
