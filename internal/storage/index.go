/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "gosceneeditor/internal/log"
	"gosceneeditor/internal/scene"
	"gosceneeditor/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName stores all per-workspace index data under the workspace root.
	IndexDirName  = ".gse"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema for the embedded index.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2
)

// IndexPath returns the full path to the workspace index database file.
func IndexPath(root string) string {
	return filepath.Join(root, IndexDirName, IndexFileName)
}

// InitOrOpenIndex ensures that the workspace SQLite index exists at .gse/index.sqlite,
// opens the database, enables WAL mode, and ensures the schema is current.
// Callers close the returned *sql.DB.
func InitOrOpenIndex(root string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("root", root),
	)
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace root is required")
	}
	if err := os.MkdirAll(filepath.Join(root, IndexDirName), 0o755); err != nil {
		l.Error("create .gse dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .gse dir: %w", err)
	}

	path := IndexPath(root)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// keep the stored schema for migrations
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		switch next {
		case 2:
			// lookup indexes for the object catalog and snapshot history
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin migration %d: %w", next, err)
			}
			stmts := []string{
				`CREATE INDEX IF NOT EXISTS idx_objects_scene ON objects(scene_id);`,
				`CREATE INDEX IF NOT EXISTS idx_objects_kind ON objects(kind);`,
			}
			for _, q := range stmts {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					_ = tx.Rollback()
					return fmt.Errorf("migration %d stmt failed: %w", next, err)
				}
			}
			if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d update version: %w", next, err)
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("migration %d commit: %w", next, err)
			}
			// best-effort FTS optimize outside the tx
			_, _ = db.ExecContext(ctx, `INSERT INTO fts_objects(fts_objects) VALUES('optimize')`)
		}
		cur = next
	}
	return nil
}

// ensureIndexSchema creates the catalog, FTS, snapshot and preview tables if missing.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS scenes (
			id          TEXT    PRIMARY KEY,
			path        TEXT    NOT NULL UNIQUE,
			background  TEXT,
			width       REAL,
			height      REAL,
			objects     INTEGER NOT NULL DEFAULT 0,
			updated_at  TEXT    NOT NULL
		);`,
		// One row per object, nested group members included.
		`CREATE TABLE IF NOT EXISTS objects (
			id         INTEGER PRIMARY KEY,
			scene_id   TEXT    NOT NULL,
			object_id  TEXT    NOT NULL,
			kind       TEXT    NOT NULL,
			z          INTEGER NOT NULL,
			text       TEXT,
			FOREIGN KEY(scene_id) REFERENCES scenes(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_objects_scene ON objects(scene_id);`,
		`CREATE INDEX IF NOT EXISTS idx_objects_kind ON objects(kind);`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_objects USING fts5(
			text,
			content='',
			tokenize = 'unicode61'
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id         INTEGER PRIMARY KEY,
			scene_id   TEXT    NOT NULL,
			ts         TEXT    NOT NULL,
			blob       BLOB    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_scene_ts ON snapshots(scene_id, ts);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS objects_ai AFTER INSERT ON objects WHEN new.text IS NOT NULL BEGIN
			INSERT INTO fts_objects(rowid, text) VALUES (new.id, new.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS objects_ad AFTER DELETE ON objects WHEN old.text IS NOT NULL BEGIN
			INSERT INTO fts_objects(fts_objects, rowid, text) VALUES ('delete', old.id, old.text);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return ensurePreviewsSchema(ctx, db)
}

// SceneEntry is one catalog row.
type SceneEntry struct {
	ID         string
	Path       string
	Background string
	Width      float64
	Height     float64
	Objects    int
	UpdatedAt  time.Time
}

// UpdateIndex replaces the catalog row and object rows of the scene.
func UpdateIndex(ctx context.Context, sh *SceneHandle) error {
	if sh == nil {
		return errors.New("nil SceneHandle")
	}
	db, err := InitOrOpenIndex(sh.Root)
	if err != nil {
		return err
	}
	defer db.Close()
	return indexScene(ctx, db, sh.Path, sh.Doc)
}

func indexScene(ctx context.Context, db *sql.DB, path string, doc scene.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("index %s: scene has no id", path)
	}
	type row struct {
		id, kind string
		z        int
		text     sql.NullString
	}
	var rows []row
	var walk func(objs []*scene.Object)
	walk = func(objs []*scene.Object) {
		for _, o := range objs {
			r := row{id: o.ID, kind: string(o.Kind), z: len(rows)}
			if o.Text != nil && strings.TrimSpace(o.Text.Text) != "" {
				r.text = sql.NullString{String: o.Text.Text, Valid: true}
			}
			rows = append(rows, r)
			walk(o.Children)
		}
	}
	walk(doc.Objects)

	abs, _ := filepath.Abs(path)
	now := time.Now().UTC().Format(tsFormat)
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// a scene file may have been re-created with a new id at the same path
	if _, err := tx.ExecContext(ctx, `DELETE FROM objects WHERE scene_id IN (SELECT id FROM scenes WHERE path=? AND id<>?)`, abs, doc.ID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear stale objects: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM scenes WHERE path=? AND id<>?`, abs, doc.ID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear stale scene: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO scenes(id, path, background, width, height, objects, updated_at) VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET path=excluded.path, background=excluded.background, width=excluded.width,
		height=excluded.height, objects=excluded.objects, updated_at=excluded.updated_at`,
		doc.ID, abs, doc.Background, doc.Width, doc.Height, len(rows), now); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("upsert scene: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM objects WHERE scene_id=?`, doc.ID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear objects: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, `INSERT INTO objects(scene_id, object_id, kind, z, text) VALUES(?,?,?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	for _, r := range rows {
		if _, err := ins.ExecContext(ctx, doc.ID, r.id, r.kind, r.z, r.text); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert object: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListScenes returns the catalog ordered by most recent update.
func ListScenes(ctx context.Context, root string) ([]SceneEntry, error) {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx, `SELECT id, path, COALESCE(background,''), COALESCE(width,0), COALESCE(height,0), objects, updated_at
		FROM scenes ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	defer rows.Close()
	var out []SceneEntry
	for rows.Next() {
		var e SceneEntry
		var ts string
		if err := rows.Scan(&e.ID, &e.Path, &e.Background, &e.Width, &e.Height, &e.Objects, &ts); err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// TextHit is a text object matching a search.
type TextHit struct {
	SceneID  string
	Path     string
	ObjectID string
	Kind     string
	Snippet  string
}

// SearchText runs an FTS5 query over the text objects of every indexed scene.
func SearchText(ctx context.Context, root, query string, limit int) ([]TextHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx, `SELECT o.scene_id, s.path, o.object_id, o.kind, snippet(fts_objects, 0, '[', ']', '…', 10)
		FROM fts_objects
		JOIN objects o ON fts_objects.rowid = o.id
		JOIN scenes s ON s.id = o.scene_id
		WHERE fts_objects MATCH ?
		ORDER BY s.path, o.z
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []TextHit
	for rows.Next() {
		var h TextHit
		var sn sql.NullString
		if err := rows.Scan(&h.SceneID, &h.Path, &h.ObjectID, &h.Kind, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		h.Snippet = sn.String
		out = append(out, h)
	}
	return out, rows.Err()
}

// RebuildIndex drops the catalog tables and re-indexes every scene file in
// root. Files that fail to load are skipped and logged. Cached previews are
// dropped; autosave snapshots are kept.
func RebuildIndex(ctx context.Context, root string) (int, error) {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	drops := []string{
		"DROP TRIGGER IF EXISTS objects_ai;",
		"DROP TRIGGER IF EXISTS objects_ad;",
		"DROP TABLE IF EXISTS objects;",
		"DROP TABLE IF EXISTS fts_objects;",
		"DROP TABLE IF EXISTS scenes;",
		"DROP TABLE IF EXISTS previews;",
	}
	for _, q := range drops {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("drop schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("drop commit: %w", err)
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		return 0, err
	}
	return indexWorkspaceFiles(ctx, db, root)
}

func indexWorkspaceFiles(ctx context.Context, db *sql.DB, root string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_rebuild")
	matches, err := filepath.Glob(filepath.Join(root, "*"+SceneExt))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range matches {
		b, err := os.ReadFile(p)
		if err != nil {
			l.Warn("skip unreadable scene", slog.String("path", p), slog.Any("err", err))
			continue
		}
		doc, err := scene.LoadDocument(b)
		if err != nil || doc.ID == "" {
			l.Debug("skip non-scene file", slog.String("path", p))
			continue
		}
		if err := indexScene(ctx, db, p, doc); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// DetectAndRebuildIndex checks for corruption or missing schema and rebuilds the index if needed.
// It returns true when a rebuild was performed.
func DetectAndRebuildIndex(ctx context.Context, root string) (bool, error) {
	path := IndexPath(root)
	db, err := InitOrOpenIndex(root)
	if err != nil {
		backupIndexFile(path)
		_ = os.Remove(path)
		if _, rbErr := RebuildIndex(ctx, root); rbErr != nil {
			return false, fmt.Errorf("rebuild after open failure: %w (open err: %v)", rbErr, err)
		}
		return true, nil
	}
	needs := false
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		needs = true
	}
	if !needs {
		if _, err := db.ExecContext(ctx, `SELECT 1 FROM scenes LIMIT 1;`); err != nil {
			needs = true
		}
	}
	_ = db.Close()
	if !needs {
		return false, nil
	}
	backupIndexFile(path)
	_ = os.Remove(path)
	if _, err := RebuildIndex(ctx, root); err != nil {
		return false, err
	}
	return true, nil
}

// backupIndexFile copies the current index file into a timestamped backup in .gse/backups.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}
