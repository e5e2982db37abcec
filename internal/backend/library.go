/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gosceneeditor/internal/scene"
)

// ErrSceneNotFound is returned when a scene id is not in the library.
var ErrSceneNotFound = errors.New("scene not in library")

// SceneSummary is one library listing row.
type SceneSummary struct {
	SceneID     string    `json:"scene_id"`
	Name        string    `json:"name"`
	Version     int64     `json:"version"`
	Objects     int       `json:"objects"`
	PublishedBy string    `json:"published_by"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SceneRecord is a published scene with its document.
type SceneRecord struct {
	SceneSummary
	Document json.RawMessage `json:"document"`
}

// SearchHit is a scene matching a text search.
type SearchHit struct {
	SceneID string `json:"scene_id"`
	Name    string `json:"name"`
	Snippet string `json:"snippet"`
}

// Library stores published scenes.
type Library interface {
	List(ctx context.Context) ([]SceneSummary, error)
	// Put stores doc under its scene id and returns the new version.
	Put(ctx context.Context, name, publisher string, doc scene.Document) (int64, error)
	Get(ctx context.Context, sceneID string) (*SceneRecord, error)
	Search(ctx context.Context, text string, limit int) ([]SearchHit, error)
	Ping(ctx context.Context) error
}

// SceneText joins the text of every text object in doc, depth first.
func SceneText(doc scene.Document) string {
	var parts []string
	var walk func(objs []*scene.Object)
	walk = func(objs []*scene.Object) {
		for _, o := range objs {
			if o.Text != nil && strings.TrimSpace(o.Text.Text) != "" {
				parts = append(parts, o.Text.Text)
			}
			walk(o.Children)
		}
	}
	walk(doc.Objects)
	return strings.Join(parts, "\n")
}

// PGLibrary is the Postgres-backed library.
type PGLibrary struct {
	DB *sql.DB
}

func (l *PGLibrary) Ping(ctx context.Context) error { return l.DB.PingContext(ctx) }

func (l *PGLibrary) List(ctx context.Context) ([]SceneSummary, error) {
	rows, err := l.DB.QueryContext(ctx, `SELECT scene_id, name, version, object_count, published_by, updated_at FROM scenes ORDER BY updated_at DESC, scene_id`)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []SceneSummary
	for rows.Next() {
		var s SceneSummary
		if err := rows.Scan(&s.SceneID, &s.Name, &s.Version, &s.Objects, &s.PublishedBy, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (l *PGLibrary) Put(ctx context.Context, name, publisher string, doc scene.Document) (int64, error) {
	if doc.ID == "" {
		return 0, fmt.Errorf("publish: scene has no id: %w", scene.ErrInvalidObject)
	}
	data, err := scene.MarshalDocument(doc)
	if err != nil {
		return 0, fmt.Errorf("publish: %w", err)
	}
	var version int64
	err = l.DB.QueryRowContext(ctx, `INSERT INTO scenes(scene_id, name, document, object_count, raw_text, published_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (scene_id) DO UPDATE SET name = EXCLUDED.name, document = EXCLUDED.document,
			object_count = EXCLUDED.object_count, raw_text = EXCLUDED.raw_text, published_by = EXCLUDED.published_by,
			version = scenes.version + 1, updated_at = now()
		RETURNING version`,
		doc.ID, name, string(data), len(doc.Objects), SceneText(doc), publisher).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("publish %s: %w", doc.ID, err)
	}
	return version, nil
}

func (l *PGLibrary) Get(ctx context.Context, sceneID string) (*SceneRecord, error) {
	var r SceneRecord
	var doc []byte
	err := l.DB.QueryRowContext(ctx, `SELECT scene_id, name, version, object_count, published_by, updated_at, document FROM scenes WHERE scene_id = $1`, sceneID).
		Scan(&r.SceneID, &r.Name, &r.Version, &r.Objects, &r.PublishedBy, &r.UpdatedAt, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSceneNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", sceneID, err)
	}
	r.Document = doc
	return &r, nil
}

// Search runs a full-text query over scene names and text objects.
func (l *PGLibrary) Search(ctx context.Context, text string, limit int) ([]SearchHit, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.DB.QueryContext(ctx, `SELECT scene_id, name,
		COALESCE(ts_headline('simple', raw_text, plainto_tsquery('simple', $1), 'StartSel=[, StopSel=], MaxFragments=1, MaxWords=12'), '')
		FROM scenes WHERE search_vector @@ plainto_tsquery('simple', $1)
		ORDER BY updated_at DESC, scene_id LIMIT $2`, text, limit)
	if err != nil {
		return nil, fmt.Errorf("search pg query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.SceneID, &h.Name, &h.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
