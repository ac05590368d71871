// Package store persists batch sessions, roughness values and spot
// measurements in a SQLite results database.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"spm-spots/internal/batch"
	"spm-spots/internal/contour"
	"spm-spots/internal/roughness"
	"spm-spots/internal/scan"
	"spm-spots/internal/spot"
)

// Store is an open results database.
type Store struct {
	db *sql.DB
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
}

// Open opens or creates the database at path and migrates it to the
// latest schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSession inserts or updates the session row.
func (s *Store) SaveSession(sess *batch.Session) error {
	var cfg []byte
	if sess.Config != nil {
		var err error
		if cfg, err = json.Marshal(sess.Config); err != nil {
			return fmt.Errorf("failed to encode session config: %w", err)
		}
	}
	_, err := s.db.Exec(`
		INSERT INTO sessions (session_id, created, modified, config_json)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET modified = excluded.modified, config_json = excluded.config_json`,
		sess.ID, sess.Created.UTC(), sess.Modified.UTC(), string(cfg))
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", sess.ID, err)
	}
	return nil
}

// SaveRoughness records one l0 value.
func (s *Store) SaveRoughness(sessionID string, u batch.RoughnessUnit) error {
	_, err := s.db.Exec(`INSERT INTO roughness (session_id, source, frame, l0) VALUES (?, ?, ?, ?)`,
		sessionID, u.Source, u.Frame, u.L0)
	if err != nil {
		return fmt.Errorf("failed to save l0 for %s: %w", u.Unit, err)
	}
	return nil
}

// SaveSpots records the spots of one unit in a single transaction.
func (s *Store) SaveSpots(sessionID string, u batch.SpotUnit) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO spots (session_id, source, frame, name, spot_index, area_px, perimeter_px,
			circularity, area_nm2, centroid_x, centroid_y, nearest_name, nearest_distance_nm)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare spot insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range u.Records {
		var cx, cy sql.NullFloat64
		if r.HasCentroid {
			cx = sql.NullFloat64{Float64: r.CentroidPx.X, Valid: true}
			cy = sql.NullFloat64{Float64: r.CentroidPx.Y, Valid: true}
		}
		if _, err := stmt.Exec(sessionID, u.Source, u.Frame, r.Name, r.Index,
			r.Contour.AreaPx, r.Contour.PerimeterPx, r.Contour.Circularity, r.AreaNm2,
			cx, cy, r.NearestName, r.NearestDistanceNm); err != nil {
			return fmt.Errorf("failed to save spot %s of %s: %w", r.Name, u.Unit, err)
		}
	}
	return tx.Commit()
}

// SaveAll writes the session row and every unit it holds.
func (s *Store) SaveAll(sess *batch.Session) error {
	if err := s.SaveSession(sess); err != nil {
		return err
	}
	for _, u := range sess.Roughness {
		if err := s.SaveRoughness(sess.ID, u); err != nil {
			return err
		}
	}
	for _, u := range sess.Spots {
		if err := s.SaveSpots(sess.ID, u); err != nil {
			return err
		}
	}
	return nil
}

// StoredSpot is a spot row. The contour outline is not persisted; only its
// scalar measurements are.
type StoredSpot struct {
	batch.Unit
	Record spot.Record
}

// Spots returns the spots of a session in insertion order.
func (s *Store) Spots(sessionID string) ([]StoredSpot, error) {
	rows, err := s.db.Query(`
		SELECT source, frame, name, spot_index, area_px, perimeter_px, circularity, area_nm2,
			centroid_x, centroid_y, nearest_name, nearest_distance_nm
		FROM spots WHERE session_id = ? ORDER BY spot_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query spots: %w", err)
	}
	defer rows.Close()

	var out []StoredSpot
	for rows.Next() {
		var st StoredSpot
		var cx, cy sql.NullFloat64
		r := &st.Record
		c := contour.Contour{}
		if err := rows.Scan(&st.Source, &st.Frame, &r.Name, &r.Index, &c.AreaPx, &c.PerimeterPx,
			&c.Circularity, &r.AreaNm2, &cx, &cy, &r.NearestName, &r.NearestDistanceNm); err != nil {
			return nil, fmt.Errorf("failed to scan spot: %w", err)
		}
		c.Index, c.Name = r.Index, r.Name
		r.Contour = c
		if cx.Valid && cy.Valid {
			r.CentroidPx.X, r.CentroidPx.Y = cx.Float64, cy.Float64
			r.HasCentroid = true
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Roughness returns the l0 values of a session in insertion order.
func (s *Store) Roughness(sessionID string) ([]batch.RoughnessUnit, error) {
	rows, err := s.db.Query(`SELECT source, frame, l0 FROM roughness WHERE session_id = ? ORDER BY roughness_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roughness: %w", err)
	}
	defer rows.Close()

	var out []batch.RoughnessUnit
	for rows.Next() {
		var u batch.RoughnessUnit
		if err := rows.Scan(&u.Source, &u.Frame, &u.L0); err != nil {
			return nil, fmt.Errorf("failed to scan roughness: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Sink records each batch unit as soon as it completes. The session row
// must exist first.
type Sink struct {
	Store     *Store
	SessionID string
}

// Spots implements batch.Sink.
func (k Sink) Spots(_ *scan.Dataset, _ *scan.Frame, u batch.SpotUnit) error {
	return k.Store.SaveSpots(k.SessionID, u)
}

// Roughness implements batch.Sink.
func (k Sink) Roughness(_ *scan.Dataset, _ *scan.Frame, u batch.RoughnessUnit, _ roughness.Result) error {
	return k.Store.SaveRoughness(k.SessionID, u)
}
