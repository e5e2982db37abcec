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
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDetectAndRebuildIndex_OnCorruption(t *testing.T) {
	root := t.TempDir()
	if _, err := InitScene(filepath.Join(root, "corrupt.json"), sampleDoc("hi there")); err != nil {
		t.Fatalf("InitScene error: %v", err)
	}
	idx := IndexPath(root)
	_ = os.Remove(idx + "-wal")
	_ = os.Remove(idx + "-shm")
	if err := os.WriteFile(idx, []byte("THIS IS NOT SQLITE"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rebuilt, err := DetectAndRebuildIndex(ctx, root)
	if err != nil {
		t.Fatalf("DetectAndRebuildIndex: %v", err)
	}
	if !rebuilt {
		t.Fatalf("expected rebuild to occur")
	}
	list, err := ListScenes(ctx, root)
	if err != nil || len(list) != 1 {
		t.Fatalf("rebuilt index should list the scene, got %d err=%v", len(list), err)
	}
	entries, _ := os.ReadDir(filepath.Join(root, IndexDirName, "backups"))
	if len(entries) == 0 {
		t.Fatalf("expected backup of the corrupt index")
	}
}

func TestDetectAndRebuildIndex_HealthyIsNoop(t *testing.T) {
	root := t.TempDir()
	if _, err := InitScene(filepath.Join(root, "ok.json"), sampleDoc("fine")); err != nil {
		t.Fatalf("InitScene error: %v", err)
	}
	rebuilt, err := DetectAndRebuildIndex(context.Background(), root)
	if err != nil || rebuilt {
		t.Fatalf("healthy index should not be rebuilt: %v %v", rebuilt, err)
	}
}
