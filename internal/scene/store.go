/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import "fmt"

// Store owns the ordered top-level objects (index = z-order, later = on top),
// the selection and the derived active layer. It is the only place that
// mutates membership or order.
//
// Every mutating call mutates, recomputes the active layer, then notifies
// observers once. Store is not safe for concurrent use; callers serialize
// access (see editor.Editor).
type Store struct {
	objects   []*Object
	selection []*Object
	layer     int

	observers []observerEntry
	nextObs   int

	batchDepth     int
	captured       bool
	pendingObjects bool
	selBefore      []*Object
	layerBefore    int
}

type observerEntry struct {
	id  int
	obs Observer
}

// NewStore returns an empty store.
func NewStore() *Store { return &Store{layer: -1} }

// Subscribe registers an observer and returns a function that removes it.
func (s *Store) Subscribe(o Observer) (unsubscribe func()) {
	s.nextObs++
	id := s.nextObs
	s.observers = append(s.observers, observerEntry{id: id, obs: o})
	return func() {
		for i, e := range s.observers {
			if e.id == id {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// ---- queries ----

// Objects returns a copy of the order sequence.
func (s *Store) Objects() []*Object { return append([]*Object(nil), s.objects...) }

func (s *Store) Len() int { return len(s.objects) }

// At returns the object at z-index i or nil.
func (s *Store) At(i int) *Object {
	if i < 0 || i >= len(s.objects) {
		return nil
	}
	return s.objects[i]
}

// IndexOf returns the z-index of o or -1.
func (s *Store) IndexOf(o *Object) int {
	for i, x := range s.objects {
		if x == o {
			return i
		}
	}
	return -1
}

func (s *Store) Contains(o *Object) bool { return o != nil && s.IndexOf(o) >= 0 }

// ByID finds a top-level object by ID.
func (s *Store) ByID(id string) *Object {
	for _, x := range s.objects {
		if x.ID == id {
			return x
		}
	}
	return nil
}

// Selection returns a copy of the current selection.
func (s *Store) Selection() []*Object { return append([]*Object(nil), s.selection...) }

// Active returns the sole selected object, or nil for zero or many.
func (s *Store) Active() *Object {
	if len(s.selection) == 1 {
		return s.selection[0]
	}
	return nil
}

// Primary returns the first selected object or nil.
func (s *Store) Primary() *Object {
	if len(s.selection) == 0 {
		return nil
	}
	return s.selection[0]
}

// ActiveLayer returns the z-index of the sole selected object.
func (s *Store) ActiveLayer() (int, bool) { return s.layer, s.layer >= 0 }

// IsSelected reports whether o is part of the selection.
func (s *Store) IsSelected(o *Object) bool {
	for _, x := range s.selection {
		if x == o {
			return true
		}
	}
	return false
}

// Layers returns the objects in display order, topmost first.
func (s *Store) Layers() []*Object {
	out := make([]*Object, len(s.objects))
	for i, o := range s.objects {
		out[len(s.objects)-1-i] = o
	}
	return out
}

// ---- mutations ----

// Add appends o on top of the z-order.
func (s *Store) Add(o *Object) error {
	if err := s.checkNew(o); err != nil {
		return err
	}
	s.begin()
	s.objects = append(s.objects, o)
	s.pendingObjects = true
	s.end()
	return nil
}

// InsertAt inserts objs at z-index i in the given order.
func (s *Store) InsertAt(i int, objs ...*Object) error {
	if i < 0 || i > len(s.objects) {
		return fmt.Errorf("insert at %d of %d: %w", i, len(s.objects), ErrIndexOutOfRange)
	}
	seen := map[*Object]bool{}
	for _, o := range objs {
		if err := s.checkNew(o); err != nil {
			return err
		}
		if seen[o] {
			return fmt.Errorf("duplicate %s in insert: %w", o.ID, ErrInvalidObject)
		}
		seen[o] = true
	}
	if len(objs) == 0 {
		return nil
	}
	s.begin()
	tail := append([]*Object(nil), s.objects[i:]...)
	s.objects = append(append(s.objects[:i], objs...), tail...)
	s.pendingObjects = true
	s.end()
	return nil
}

func (s *Store) checkNew(o *Object) error {
	if o == nil {
		return fmt.Errorf("nil object: %w", ErrInvalidObject)
	}
	if !o.Kind.Valid() {
		return fmt.Errorf("object %s has unknown kind %q: %w", o.ID, o.Kind, ErrInvalidObject)
	}
	if s.Contains(o) {
		return fmt.Errorf("object %s already in scene: %w", o.ID, ErrInvalidObject)
	}
	if o.ID != "" && s.ByID(o.ID) != nil {
		return fmt.Errorf("duplicate id %s: %w", o.ID, ErrInvalidObject)
	}
	return nil
}

// Remove removes o by identity. If o was selected the selection is cleared.
func (s *Store) Remove(o *Object) error {
	idx := s.IndexOf(o)
	if o == nil || idx < 0 {
		return ErrNotFound
	}
	s.begin()
	s.objects = append(s.objects[:idx], s.objects[idx+1:]...)
	if s.IsSelected(o) {
		s.selection = nil
	}
	s.pendingObjects = true
	s.end()
	return nil
}

// Reorder moves the object at from to to, shifting the members in between.
func (s *Store) Reorder(from, to int) error {
	n := len(s.objects)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("reorder %d -> %d of %d: %w", from, to, n, ErrIndexOutOfRange)
	}
	if from == to {
		return nil
	}
	s.begin()
	o := s.objects[from]
	if from < to {
		copy(s.objects[from:to], s.objects[from+1:to+1])
	} else {
		copy(s.objects[to+1:from+1], s.objects[to:from])
	}
	s.objects[to] = o
	s.pendingObjects = true
	s.end()
	return nil
}

// SendBackwards swaps o with its lower neighbour; no-op at the bottom.
func (s *Store) SendBackwards(o *Object) error {
	idx := s.IndexOf(o)
	if idx < 0 {
		return ErrNotFound
	}
	if idx == 0 {
		return nil
	}
	return s.Reorder(idx, idx-1)
}

// BringForward swaps o with its upper neighbour; no-op at the top.
func (s *Store) BringForward(o *Object) error {
	idx := s.IndexOf(o)
	if idx < 0 {
		return ErrNotFound
	}
	if idx == len(s.objects)-1 {
		return nil
	}
	return s.Reorder(idx, idx+1)
}

// SendToBack moves o to index 0.
func (s *Store) SendToBack(o *Object) error {
	idx := s.IndexOf(o)
	if idx < 0 {
		return ErrNotFound
	}
	return s.Reorder(idx, 0)
}

// BringToFront moves o to the top.
func (s *Store) BringToFront(o *Object) error {
	idx := s.IndexOf(o)
	if idx < 0 {
		return ErrNotFound
	}
	return s.Reorder(idx, len(s.objects)-1)
}

// SetSelection replaces the selection. Every object must be in the store.
func (s *Store) SetSelection(objs ...*Object) error {
	sel := make([]*Object, 0, len(objs))
	for _, o := range objs {
		if !s.Contains(o) {
			return fmt.Errorf("select: %w", ErrNotFound)
		}
		dup := false
		for _, x := range sel {
			if x == o {
				dup = true
				break
			}
		}
		if !dup {
			sel = append(sel, o)
		}
	}
	s.begin()
	s.selection = sel
	s.end()
	return nil
}

// ClearSelection empties the selection.
func (s *Store) ClearSelection() {
	s.begin()
	s.selection = nil
	s.end()
}

// Update applies an in-place property edit to o and notifies.
func (s *Store) Update(o *Object, fn func(*Object)) error {
	if !s.Contains(o) {
		return ErrNotFound
	}
	s.begin()
	fn(o)
	s.pendingObjects = true
	s.end()
	return nil
}

// Touch reports an out-of-band edit to o (for example a transform applied
// by a drag) without changing it.
func (s *Store) Touch(o *Object) error { return s.Update(o, func(*Object) {}) }

// Clear removes all objects and clears the selection.
func (s *Store) Clear() {
	s.begin()
	if len(s.objects) > 0 {
		s.pendingObjects = true
	}
	s.objects = nil
	s.selection = nil
	s.end()
}

// Replace swaps the whole order sequence (load, undo) and clears the selection.
func (s *Store) Replace(objs []*Object) error {
	seen := map[*Object]bool{}
	ids := map[string]bool{}
	for _, o := range objs {
		if o == nil || !o.Kind.Valid() || seen[o] || (o.ID != "" && ids[o.ID]) {
			return fmt.Errorf("replace: %w", ErrInvalidObject)
		}
		seen[o] = true
		ids[o.ID] = true
	}
	s.begin()
	s.objects = append([]*Object(nil), objs...)
	s.selection = nil
	s.pendingObjects = true
	s.end()
	return nil
}

// Batch runs fn with notifications deferred to a single pass at the end. If
// fn returns an error, membership, order and selection are rolled back and
// the error is returned. In-place property edits are not rolled back.
func (s *Store) Batch(fn func() error) error {
	s.begin()
	savedObjs := append([]*Object(nil), s.objects...)
	savedSel := append([]*Object(nil), s.selection...)
	savedPending := s.pendingObjects
	s.batchDepth++
	err := fn()
	s.batchDepth--
	if err != nil {
		s.objects = savedObjs
		s.selection = savedSel
		s.pendingObjects = savedPending
	}
	s.end()
	return err
}

func (s *Store) begin() {
	if s.captured {
		return
	}
	s.captured = true
	s.selBefore = append([]*Object(nil), s.selection...)
	s.layerBefore = s.layer
}

func (s *Store) end() {
	if s.batchDepth > 0 {
		return
	}
	s.recomputeLayer()
	objsChanged := s.pendingObjects
	selChanged := s.layer != s.layerBefore || !sameObjects(s.selBefore, s.selection)
	s.captured = false
	s.pendingObjects = false
	s.selBefore = nil

	if objsChanged {
		objs := s.Objects()
		for _, e := range s.snapshotObservers() {
			e.obs.ObjectsChanged(objs)
		}
	}
	if selChanged {
		primary := s.Primary()
		for _, e := range s.snapshotObservers() {
			e.obs.SelectionChanged(primary, s.layer)
		}
	}
}

func (s *Store) snapshotObservers() []observerEntry {
	return append([]observerEntry(nil), s.observers...)
}

func (s *Store) recomputeLayer() {
	s.layer = -1
	if len(s.selection) == 1 {
		s.layer = s.IndexOf(s.selection[0])
	}
}

func sameObjects(a, b []*Object) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
