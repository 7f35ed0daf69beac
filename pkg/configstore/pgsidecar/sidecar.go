// Package pgsidecar is an optional write-behind audit log for
// pkg/configstore, durably appending every ConfigSnapshot and golden
// baseline to Postgres. The in-memory configstore.Store remains the
// source of truth for reads; this sidecar never blocks or fails a
// caller's BackupConfig/Golden call on its own errors.
package pgsidecar

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/netopshub/netopshub/pkg/model"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Sidecar persists config snapshots and golden baselines to Postgres.
type Sidecar struct {
	db *sqlx.DB
}

// Open connects to dsn and applies pending migrations.
func Open(dsn string) (*Sidecar, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("pgsidecar: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pgsidecar: ping: %w", err)
	}
	if err := applyMigrations(db.DB); err != nil {
		return nil, fmt.Errorf("pgsidecar: migrate: %w", err)
	}
	return &Sidecar{db: db}, nil
}

// NewWithDB wraps an already-open, already-migrated *sql.DB, used by
// tests against a sqlmock connection.
func NewWithDB(db *sql.DB) *Sidecar {
	return &Sidecar{db: sqlx.NewDb(db, "postgres")}
}

func applyMigrations(db *sql.DB) error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return err
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Sidecar) Close() error {
	return s.db.Close()
}

// AppendSnapshot durably records snap, keyed by (device_id, content_sha)
// so replaying the same snapshot is a no-op, mirroring the in-memory
// store's own idempotence.
func (s *Sidecar) AppendSnapshot(ctx context.Context, snap model.ConfigSnapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config_snapshots (id, device_id, raw_config, content_sha, captured_at, source)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (device_id, content_sha) DO NOTHING
	`, snap.ID, snap.DeviceID, snap.RawConfig, snap.ContentSHA, snap.CapturedAt, snap.Source)
	return err
}

// UpsertGolden durably records device's golden baseline, replacing any
// prior one.
func (s *Sidecar) UpsertGolden(ctx context.Context, snap model.ConfigSnapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config_golden (device_id, raw_config, content_sha, captured_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (device_id) DO UPDATE
		SET raw_config = EXCLUDED.raw_config, content_sha = EXCLUDED.content_sha, captured_at = EXCLUDED.captured_at
	`, snap.DeviceID, snap.RawConfig, snap.ContentSHA, snap.CapturedAt)
	return err
}

// Snapshots returns every durably stored snapshot for device, oldest first.
func (s *Sidecar) Snapshots(ctx context.Context, device string) ([]model.ConfigSnapshot, error) {
	var rows []struct {
		ID         string `db:"id"`
		DeviceID   string `db:"device_id"`
		RawConfig  string `db:"raw_config"`
		ContentSHA string `db:"content_sha"`
		CapturedAt sql.NullTime `db:"captured_at"`
		Source     string `db:"source"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, device_id, raw_config, content_sha, captured_at, source
		FROM config_snapshots
		WHERE device_id = $1
		ORDER BY captured_at ASC
	`, device)
	if err != nil {
		return nil, err
	}

	out := make([]model.ConfigSnapshot, 0, len(rows))
	for _, r := range rows {
		snap := model.ConfigSnapshot{
			ID:         r.ID,
			DeviceID:   r.DeviceID,
			RawConfig:  r.RawConfig,
			ContentSHA: r.ContentSHA,
			Source:     r.Source,
		}
		if r.CapturedAt.Valid {
			snap.CapturedAt = r.CapturedAt.Time
		}
		out = append(out, snap)
	}
	return out, nil
}
