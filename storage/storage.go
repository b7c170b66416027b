// Package storage is the relational backing store consumed by the sync
// layer. It is the only component that writes to the database; single-record
// atomicity comes from SQLite's transaction guarantees.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/propscout/propscout/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS properties (
	id            INTEGER PRIMARY KEY,
	identity_key  TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	category      TEXT NOT NULL DEFAULT '',
	district      TEXT NOT NULL DEFAULT '',
	address       TEXT NOT NULL DEFAULT '',
	tenure        TEXT NOT NULL DEFAULT '',
	snapshot_hash TEXT NOT NULL,
	first_seen_at TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS unit_rows (
	id              INTEGER PRIMARY KEY,
	property_id     INTEGER NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
	type_label      TEXT NOT NULL,
	bedrooms        INTEGER NOT NULL,
	size_min_sqft   INTEGER NOT NULL DEFAULT 0,
	size_max_sqft   INTEGER NOT NULL DEFAULT 0,
	price_min       INTEGER NOT NULL DEFAULT 0,
	price_max       INTEGER NOT NULL DEFAULT 0,
	units_available INTEGER NOT NULL DEFAULT 0,
	units_total     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS image_assets (
	id          INTEGER PRIMARY KEY,
	property_id INTEGER NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
	label       TEXT NOT NULL,
	source_url  TEXT NOT NULL,
	fetchable   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS scrape_sessions (
	id         TEXT PRIMARY KEY,
	started_at TIMESTAMP NOT NULL,
	ended_at   TIMESTAMP,
	status     TEXT NOT NULL,
	processed  INTEGER NOT NULL DEFAULT 0,
	new        INTEGER NOT NULL DEFAULT 0,
	updated    INTEGER NOT NULL DEFAULT 0,
	duplicates INTEGER NOT NULL DEFAULT 0,
	errors     INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_unit_rows_property ON unit_rows(property_id);
CREATE INDEX IF NOT EXISTS idx_image_assets_property ON image_assets(property_id);
`

// PropertyRecord is the stored form of a property, as read back from the
// properties table.
type PropertyRecord struct {
	ID           int64     `db:"id"`
	IdentityKey  string    `db:"identity_key"`
	Name         string    `db:"name"`
	Category     string    `db:"category"`
	District     string    `db:"district"`
	Address      string    `db:"address"`
	Tenure       string    `db:"tenure"`
	SnapshotHash string    `db:"snapshot_hash"`
	FirstSeenAt  time.Time `db:"first_seen_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Store wraps the SQLite database.
type Store struct {
	db *sqlx.DB
}

// Open connects to the SQLite database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	// modernc sqlite serializes internally; one writer avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetPropertyByKey returns the stored property for an identity key, or
// (nil, nil) when absent.
func (s *Store) GetPropertyByKey(ctx context.Context, identityKey string) (*PropertyRecord, error) {
	var rec PropertyRecord
	err := s.db.GetContext(ctx, &rec,
		`SELECT id, identity_key, name, category, district, address, tenure,
			snapshot_hash, first_seen_at, updated_at
		FROM properties WHERE identity_key = ?`, identityKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get property %s: %w", identityKey, err)
	}
	return &rec, nil
}

// UpsertProperty inserts or updates the property row and replaces its child
// sets in one transaction. It returns the property's row id.
func (s *Store) UpsertProperty(ctx context.Context, p *models.Property, snapshotHash string) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO properties
			(identity_key, name, category, district, address, tenure, snapshot_hash, first_seen_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (identity_key) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			district = excluded.district,
			address = excluded.address,
			tenure = excluded.tenure,
			snapshot_hash = excluded.snapshot_hash,
			updated_at = excluded.updated_at
		RETURNING id`,
		p.IdentityKey, p.Name, p.Category, p.District, p.Address, p.Tenure,
		snapshotHash, now, now).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert property %s: %w", p.IdentityKey, err)
	}

	if err := replaceUnitRowsTx(ctx, tx, id, p.UnitRows); err != nil {
		return 0, err
	}
	if err := replaceImageAssetsTx(ctx, tx, id, p.Images); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert for %s: %w", p.IdentityKey, err)
	}
	return id, nil
}

// ReplaceUnitRows deletes and reinserts the unit-row set for a property.
// Child sets are small; full replacement sidesteps partial-merge bugs.
func (s *Store) ReplaceUnitRows(ctx context.Context, propertyID int64, rows []models.UnitRow) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tx: %w", err)
	}
	defer tx.Rollback()
	if err := replaceUnitRowsTx(ctx, tx, propertyID, rows); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceImageAssets deletes and reinserts the image-asset set for a property.
func (s *Store) ReplaceImageAssets(ctx context.Context, propertyID int64, assets []models.ImageAsset) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tx: %w", err)
	}
	defer tx.Rollback()
	if err := replaceImageAssetsTx(ctx, tx, propertyID, assets); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceUnitRowsTx(ctx context.Context, tx *sqlx.Tx, propertyID int64, rows []models.UnitRow) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM unit_rows WHERE property_id = ?`, propertyID); err != nil {
		return fmt.Errorf("clear unit rows: %w", err)
	}
	for _, r := range rows {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO unit_rows
				(property_id, type_label, bedrooms, size_min_sqft, size_max_sqft,
				 price_min, price_max, units_available, units_total)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			propertyID, r.TypeLabel, r.Bedrooms, r.SizeMinSqft, r.SizeMaxSqft,
			r.PriceMin, r.PriceMax, r.UnitsAvailable, r.UnitsTotal)
		if err != nil {
			return fmt.Errorf("insert unit row %q: %w", r.TypeLabel, err)
		}
	}
	return nil
}

func replaceImageAssetsTx(ctx context.Context, tx *sqlx.Tx, propertyID int64, assets []models.ImageAsset) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM image_assets WHERE property_id = ?`, propertyID); err != nil {
		return fmt.Errorf("clear image assets: %w", err)
	}
	for _, a := range assets {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO image_assets (property_id, label, source_url, fetchable)
			VALUES (?, ?, ?, ?)`,
			propertyID, a.Label, a.SourceURL, a.Fetchable)
		if err != nil {
			return fmt.Errorf("insert image asset %q: %w", a.Label, err)
		}
	}
	return nil
}

// GetUnitRows reads a property's stored unit rows in insertion order.
func (s *Store) GetUnitRows(ctx context.Context, propertyID int64) ([]models.UnitRow, error) {
	var rows []models.UnitRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT type_label AS typelabel, bedrooms, size_min_sqft AS sizeminsqft,
			size_max_sqft AS sizemaxsqft, price_min AS pricemin,
			price_max AS pricemax, units_available AS unitsavailable,
			units_total AS unitstotal
		FROM unit_rows WHERE property_id = ? ORDER BY id`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("get unit rows: %w", err)
	}
	return rows, nil
}

// GetImageAssets reads a property's stored image assets in insertion order.
func (s *Store) GetImageAssets(ctx context.Context, propertyID int64) ([]models.ImageAsset, error) {
	var assets []models.ImageAsset
	err := s.db.SelectContext(ctx, &assets,
		`SELECT label, source_url AS sourceurl, fetchable
		FROM image_assets WHERE property_id = ? ORDER BY id`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("get image assets: %w", err)
	}
	return assets, nil
}

// CountProperties returns the number of stored properties.
func (s *Store) CountProperties(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM properties`); err != nil {
		return 0, fmt.Errorf("count properties: %w", err)
	}
	return n, nil
}

// RecordSessionSummary writes or updates the summary row for a session.
func (s *Store) RecordSessionSummary(ctx context.Context, sess *models.ScrapeSession) error {
	var endedAt any
	if !sess.EndedAt.IsZero() {
		endedAt = sess.EndedAt
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scrape_sessions
			(id, started_at, ended_at, status, processed, new, updated, duplicates, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			ended_at = excluded.ended_at,
			status = excluded.status,
			processed = excluded.processed,
			new = excluded.new,
			updated = excluded.updated,
			duplicates = excluded.duplicates,
			errors = excluded.errors`,
		sess.ID, sess.StartedAt, endedAt, string(sess.Status),
		sess.Processed, sess.New, sess.Updated, sess.Duplicates, sess.Errors)
	if err != nil {
		return fmt.Errorf("record session %s: %w", sess.ID, err)
	}
	return nil
}
