/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"
	"log/slog"
	"time"

	"gosceneeditor/internal/scene"
	"gosceneeditor/internal/undo"
)

func (e *Editor) sceneKey() string { return e.id }

func (e *Editor) snapshot() []byte {
	data, err := scene.MarshalDocument(e.document())
	if err != nil {
		e.log.Error("snapshot failed", slog.Any("err", err))
		return nil
	}
	return data
}

// record stores the state before a change.
func (e *Editor) record() {
	blob := e.snapshot()
	if blob == nil {
		return
	}
	e.history.Record(undoSnapshot(e.sceneKey(), blob, e.now()))
}

// Undo restores the state before the last change. It reports false when
// there is nothing to undo.
func (e *Editor) Undo() (bool, error) {
	var ok bool
	err := e.do("undo", func() error {
		s, found := e.history.Undo(e.sceneKey(), e.snapshot())
		if !found {
			return nil
		}
		ok = true
		return e.restore(s.Blob)
	})
	return ok, err
}

// Redo re-applies the last undone change.
func (e *Editor) Redo() (bool, error) {
	var ok bool
	err := e.do("redo", func() error {
		s, found := e.history.Redo(e.sceneKey(), e.snapshot())
		if !found {
			return nil
		}
		ok = true
		return e.restore(s.Blob)
	})
	return ok, err
}

// CanUndo reports whether Undo would change anything.
func (e *Editor) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanUndo(e.sceneKey())
}

// CanRedo reports whether Redo would change anything.
func (e *Editor) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanRedo(e.sceneKey())
}

func (e *Editor) restore(blob []byte) error {
	doc, err := scene.UnmarshalDocument(blob)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	for _, o := range doc.Objects {
		e.reattachPixels(o)
	}
	e.endDrag()
	if err := e.store.Replace(doc.Objects); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	e.menu.Hide()
	e.menu.ClearTarget()
	e.background = doc.Background
	e.width, e.height = doc.Width, doc.Height
	return nil
}

func undoSnapshot(scene string, blob []byte, ts time.Time) undo.Snapshot {
	return undo.Snapshot{Scene: scene, Blob: blob, TS: ts}
}
