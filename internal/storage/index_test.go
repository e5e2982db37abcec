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
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func TestIndexInitCreatesWALAndSchema(t *testing.T) {
	root := t.TempDir()
	if _, err := InitScene(filepath.Join(root, "i.json"), sampleDoc("hello world")); err != nil {
		t.Fatalf("InitScene error: %v", err)
	}
	idxPath := IndexPath(root)
	if _, err := os.Stat(idxPath); err != nil {
		t.Fatalf("index file missing at %s: %v", idxPath, err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(2000)", filepath.ToSlash(idxPath))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var mode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode;").Scan(&mode); err != nil {
		t.Fatalf("read journal_mode: %v", err)
	}
	if mode != "wal" && mode != "WAL" {
		t.Fatalf("expected WAL mode, got %s", mode)
	}
	var cnt int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('meta','version','scenes','objects','fts_objects','snapshots','previews')").Scan(&cnt); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if cnt != 7 {
		t.Fatalf("expected 7 tables, got %d", cnt)
	}
}

func TestSaveIndexesSceneAndText(t *testing.T) {
	root := t.TempDir()
	sh, err := InitScene(filepath.Join(root, "s.json"), sampleDoc("quarterly roadmap"))
	if err != nil {
		t.Fatalf("InitScene error: %v", err)
	}
	ctx := context.Background()
	list, err := ListScenes(ctx, root)
	if err != nil {
		t.Fatalf("ListScenes: %v", err)
	}
	if len(list) != 1 || list[0].ID != sh.Doc.ID || list[0].Objects != 2 {
		t.Fatalf("unexpected catalog %+v", list)
	}
	hits, err := SearchText(ctx, root, "roadmap", 10)
	if err != nil {
		t.Fatalf("SearchText: %v", err)
	}
	if len(hits) != 1 || hits[0].ObjectID != sh.Doc.Objects[1].ID {
		t.Fatalf("expected one text hit, got %+v", hits)
	}

	// re-saving with new text replaces the old rows
	sh.Doc.Objects[1].Text.Text = "budget"
	if err := Save(sh); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if hits, _ := SearchText(ctx, root, "roadmap", 10); len(hits) != 0 {
		t.Fatalf("stale text still indexed: %+v", hits)
	}
	if hits, _ := SearchText(ctx, root, "budget", 10); len(hits) != 1 {
		t.Fatalf("new text not indexed")
	}
}

func TestRebuildIndexScansWorkspace(t *testing.T) {
	root := t.TempDir()
	for _, n := range []string{"a.json", "b.json"} {
		if _, err := InitScene(filepath.Join(root, n), sampleDoc(n)); err != nil {
			t.Fatalf("InitScene %s: %v", n, err)
		}
	}
	// unrelated json is ignored
	_ = os.WriteFile(filepath.Join(root, "notes.json"), []byte(`{"hello":1}`), 0o644)
	n, err := RebuildIndex(context.Background(), root)
	if err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 scenes indexed, got %d", n)
	}
}
