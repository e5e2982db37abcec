/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

func TestUndoRedoBasic(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024 * 1024, MaxPerScene: 10, MinInterval: 10 * time.Millisecond})
	sc := "scene_a"
	t0 := time.Now()
	m.Record(Snapshot{Scene: sc, Blob: []byte("a"), TS: t0})
	m.Record(Snapshot{Scene: sc, Blob: []byte("b"), TS: t0.Add(20 * time.Millisecond)})
	if _, scenes, total := m.Stats(); scenes != 1 || total != 2 {
		t.Fatalf("expected 1 scene and 2 snapshots, got scenes=%d total=%d", scenes, total)
	}
	s, ok := m.Undo(sc, []byte("c"))
	if !ok || string(s.Blob) != "b" {
		t.Fatalf("undo expected 'b', got ok=%v blob=%q", ok, string(s.Blob))
	}
	if !m.CanRedo(sc) {
		t.Fatalf("undo should fill redo")
	}
	s, ok = m.Redo(sc, []byte("b"))
	if !ok || string(s.Blob) != "c" {
		t.Fatalf("redo expected 'c', got ok=%v blob=%q", ok, string(s.Blob))
	}
	s, _ = m.Undo(sc, []byte("c"))
	s, ok = m.Undo(sc, s.Blob)
	if !ok || string(s.Blob) != "a" {
		t.Fatalf("second undo expected 'a', got %q", string(s.Blob))
	}
	if _, ok := m.Undo(sc, nil); ok {
		t.Fatalf("stack should be empty")
	}
}

func TestRecordClearsRedo(t *testing.T) {
	m := NewManager(Config{})
	sc := "scene_b"
	m.Record(Snapshot{Scene: sc, Blob: []byte("1"), TS: time.Now()})
	m.Undo(sc, []byte("2"))
	m.Record(Snapshot{Scene: sc, Blob: []byte("1"), TS: time.Now()})
	if m.CanRedo(sc) {
		t.Fatalf("new change must invalidate redo")
	}
}

func TestCoalesceKeepsEarliestState(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024 * 1024, MaxPerScene: 10, MinInterval: 50 * time.Millisecond})
	sc := "scene_c"
	t0 := time.Now()
	m.Record(Snapshot{Scene: sc, Blob: []byte("1"), TS: t0})
	m.Record(Snapshot{Scene: sc, Blob: []byte("2"), TS: t0.Add(10 * time.Millisecond)})
	m.Record(Snapshot{Scene: sc, Blob: []byte("3"), TS: t0.Add(40 * time.Millisecond)})
	_, _, total := m.Stats()
	if total != 1 {
		t.Fatalf("expected coalesced to 1 snapshot, got %d", total)
	}
	s, ok := m.Undo(sc, []byte("4"))
	if !ok || string(s.Blob) != "1" {
		t.Fatalf("expected the state before the burst, got ok=%v blob=%q", ok, string(s.Blob))
	}
}

func TestCaps(t *testing.T) {
	m := NewManager(Config{MaxBytes: 20, MaxPerScene: 2, MinInterval: time.Millisecond})
	sc := "scene_d"
	t0 := time.Now()
	for i := 0; i < 10; i++ {
		m.Record(Snapshot{Scene: sc, Blob: []byte("xxxxx"), TS: t0.Add(time.Duration(i) * 10 * time.Millisecond)})
	}
	_, _, total := m.Stats()
	if total > 2 {
		t.Fatalf("expected MaxPerScene cap to limit to 2, got %d", total)
	}
}
