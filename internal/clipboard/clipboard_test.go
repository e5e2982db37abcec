/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package clipboard

import (
	"errors"
	"testing"

	"gosceneeditor/internal/scene"
)

type fakeMenu struct{ hides, clears int }

func (m *fakeMenu) Hide()        { m.hides++ }
func (m *fakeMenu) ClearTarget() { m.clears++ }

func rect(x, y float64) *scene.Object {
	o := scene.New(scene.KindRect)
	o.Left, o.Top, o.Width, o.Height = x, y, 10, 10
	return o
}

func TestPasteTwiceProducesIndependentObjects(t *testing.T) {
	s := scene.NewStore()
	src := rect(100, 50)
	_ = s.Add(src)
	m := &fakeMenu{}
	c := New(m, 0, 0)

	c.Copy(src)
	src.Left = 500 // later edits must not leak into the buffer
	p1, err := c.Paste(s)
	if err != nil {
		t.Fatalf("paste 1: %v", err)
	}
	p2, err := c.Paste(s)
	if err != nil {
		t.Fatalf("paste 2: %v", err)
	}
	if p1 == p2 || p1.ID == p2.ID {
		t.Fatalf("pastes alias each other")
	}
	for _, p := range []*scene.Object{p1, p2} {
		if p.Left != 110 || p.Top != 60 || !p.Evented {
			t.Fatalf("paste should land at source+10 and be evented, got %+v", p)
		}
	}
	p1.Left = 0
	if p2.Left != 110 {
		t.Fatalf("editing one paste changed the other")
	}
	if s.Active() != p2 || s.Len() != 3 {
		t.Fatalf("last paste should be the sole selection")
	}
	if m.hides != 3 {
		t.Fatalf("each operation should hide the menu, got %d", m.hides)
	}
}

func TestPasteEmptyBufferIsNoop(t *testing.T) {
	s := scene.NewStore()
	c := New(nil, 0, 0)
	o, err := c.Paste(s)
	if o != nil || err != nil || s.Len() != 0 {
		t.Fatalf("expected no-op, got %v %v", o, err)
	}
}

func TestDuplicateOffsetsAndLeavesSourceAlone(t *testing.T) {
	s := scene.NewStore()
	src := rect(30, 40)
	_ = s.Add(src)
	c := New(nil, 0, 0)
	d, err := c.Duplicate(s, src)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if d.Left != 50 || d.Top != 60 {
		t.Fatalf("expected +20 offset, got %v,%v", d.Left, d.Top)
	}
	if src.Left != 30 || src.Top != 40 {
		t.Fatalf("source mutated")
	}
	if c.HasContent() {
		t.Fatalf("duplicate must not fill the clipboard buffer")
	}
	if s.Active() != d {
		t.Fatalf("duplicate should be selected")
	}
}

func TestDeleteClearsTarget(t *testing.T) {
	s := scene.NewStore()
	src := rect(0, 0)
	_ = s.Add(src)
	m := &fakeMenu{}
	c := New(m, 0, 0)
	if err := c.Delete(s, src); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if s.Len() != 0 || m.clears != 1 {
		t.Fatalf("expected removal and cleared target")
	}
	if err := c.Delete(s, src); !errors.Is(err, scene.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := c.Delete(s, nil); err != nil {
		t.Fatalf("nil delete should be a no-op, got %v", err)
	}
}
