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
	"path/filepath"
	"testing"
	"time"
)

func TestSnapshotsCRUD(t *testing.T) {
	root := t.TempDir()
	sh, err := InitScene(filepath.Join(root, "snap.json"), sampleDoc("s"))
	if err != nil {
		t.Fatalf("InitScene: %v", err)
	}
	ctx := context.Background()
	if blob, _, err := GetLatestSnapshot(ctx, sh); err != nil || blob != nil {
		t.Fatalf("expected no snapshot yet, got %q err %v", blob, err)
	}
	t0 := time.Now()
	if err := SaveSnapshot(ctx, sh, []byte("hello"), t0); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	blob, _, err := GetLatestSnapshot(ctx, sh)
	if err != nil || string(blob) != "hello" {
		t.Fatalf("GetLatestSnapshot got %q err %v", string(blob), err)
	}
	for i := 0; i < 5; i++ {
		if err := SaveSnapshot(ctx, sh, []byte{byte('a' + i)}, t0.Add(time.Duration(i+1)*time.Millisecond)); err != nil {
			t.Fatalf("SaveSnapshot %d: %v", i, err)
		}
	}
	list, err := ListSnapshots(ctx, sh, 10)
	if err != nil || len(list) != 6 {
		t.Fatalf("ListSnapshots got %d err %v", len(list), err)
	}
	if string(list[0].Blob) != "e" {
		t.Fatalf("expected newest first, got %q", string(list[0].Blob))
	}
	n, err := PruneOldSnapshots(ctx, sh, 3)
	if err != nil || n != 3 {
		t.Fatalf("PruneOldSnapshots deleted %d err %v", n, err)
	}
	list, err = ListSnapshots(ctx, sh, 10)
	if err != nil || len(list) != 3 {
		t.Fatalf("ListSnapshots after prune got %d err %v", len(list), err)
	}
}

func TestSnapshotsRequireSceneID(t *testing.T) {
	sh := &SceneHandle{Root: t.TempDir()}
	if err := SaveSnapshot(context.Background(), sh, []byte("x"), time.Now()); err == nil {
		t.Fatalf("expected error for scene without id")
	}
}
