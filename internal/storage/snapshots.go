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
	"time"
)

// language=SQL
// dialect=SQLite
const insertSnapshotSQL = `INSERT INTO snapshots(scene_id, ts, blob) VALUES (?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestSnapshotSQL = `SELECT ts, blob FROM snapshots WHERE scene_id = ? ORDER BY ts DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listSnapshotsSQL = `SELECT ts, blob FROM snapshots WHERE scene_id = ? ORDER BY ts DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldSnapshotsSQL = `DELETE FROM snapshots WHERE scene_id = ? AND id NOT IN (
	SELECT id FROM snapshots WHERE scene_id = ? ORDER BY ts DESC LIMIT ?
)`

// Snapshot is one autosaved scene document.
type Snapshot struct {
	TS   time.Time
	Blob []byte
}

func sceneID(sh *SceneHandle) (string, error) {
	if sh == nil {
		return "", errors.New("nil SceneHandle")
	}
	if sh.Doc.ID == "" {
		return "", errors.New("scene has no id; save it first")
	}
	return sh.Doc.ID, nil
}

// SaveSnapshot stores an autosave blob for the scene.
func SaveSnapshot(ctx context.Context, sh *SceneHandle, blob []byte, ts time.Time) error {
	id, err := sceneID(sh)
	if err != nil {
		return err
	}
	db, err := InitOrOpenIndex(sh.Root)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	_, err = db.ExecContext(ctx, insertSnapshotSQL, id, ts.UTC().Format(tsFormat), blob)
	return err
}

// GetLatestSnapshot returns the latest snapshot blob for the scene or nil if none.
func GetLatestSnapshot(ctx context.Context, sh *SceneHandle) ([]byte, time.Time, error) {
	id, err := sceneID(sh)
	if err != nil {
		return nil, time.Time{}, err
	}
	db, err := InitOrOpenIndex(sh.Root)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer func() { _ = db.Close() }()
	var tsStr string
	var blob []byte
	err = db.QueryRowContext(ctx, selectLatestSnapshotSQL, id).Scan(&tsStr, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, tsStr)
	if err != nil {
		return blob, time.Time{}, nil // return blob even if ts parse fails
	}
	return blob, ts, nil
}

// ListSnapshots returns up to limit most recent snapshots, newest first.
func ListSnapshots(ctx context.Context, sh *SceneHandle, limit int) ([]Snapshot, error) {
	id, err := sceneID(sh)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	db, err := InitOrOpenIndex(sh.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	rows, err := db.QueryContext(ctx, listSnapshotsSQL, id, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Snapshot
	for rows.Next() {
		var tsStr string
		var blob []byte
		if err := rows.Scan(&tsStr, &blob); err != nil {
			return nil, err
		}
		ts, _ := time.Parse(time.RFC3339Nano, tsStr)
		out = append(out, Snapshot{TS: ts, Blob: blob})
	}
	return out, rows.Err()
}

// PruneOldSnapshots keeps at most keepLast snapshots for the scene and deletes older ones.
func PruneOldSnapshots(ctx context.Context, sh *SceneHandle, keepLast int) (int64, error) {
	id, err := sceneID(sh)
	if err != nil {
		return 0, err
	}
	if keepLast <= 0 {
		return 0, nil
	}
	db, err := InitOrOpenIndex(sh.Root)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	res, err := db.ExecContext(ctx, pruneOldSnapshotsSQL, id, id, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
