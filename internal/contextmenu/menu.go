/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package contextmenu resolves secondary clicks into a menu state machine:
// Hidden, ObjectContext(target, p) or CanvasContext(p).
package contextmenu

import (
	"gosceneeditor/internal/scene"
	"gosceneeditor/internal/vector"
)

// Kind is the menu state tag.
type Kind int

const (
	Hidden Kind = iota
	ObjectContext
	CanvasContext
)

func (k Kind) String() string {
	switch k {
	case ObjectContext:
		return "object"
	case CanvasContext:
		return "canvas"
	default:
		return "hidden"
	}
}

// Item is one menu entry.
type Item string

const (
	Copy      Item = "Copy"
	Duplicate Item = "Duplicate"
	Delete    Item = "Delete"
	Paste     Item = "Paste"
)

// State is the current menu. Target is set only for ObjectContext.
type State struct {
	Kind   Kind
	Target *scene.Object
	At     vector.Pt
}

// Items derives the menu entries from the state.
func (s State) Items() []Item {
	switch s.Kind {
	case ObjectContext:
		return []Item{Copy, Duplicate, Delete}
	case CanvasContext:
		return []Item{Paste}
	default:
		return nil
	}
}

// Layout sizes the rendered menu: items stack downwards from the click point.
type Layout struct {
	ItemWidth  float64
	ItemHeight float64
}

// DefaultLayout matches the desktop menu widget.
var DefaultLayout = Layout{ItemWidth: 140, ItemHeight: 28}

// Resolver owns the menu state and the stored target reference. The target
// outlives the open menu so an action chosen from it can still reach it.
type Resolver struct {
	state    State
	target   *scene.Object
	layout   Layout
	onChange func(State)
}

// New returns a hidden resolver. onChange may be nil.
func New(layout Layout, onChange func(State)) *Resolver {
	if layout.ItemWidth <= 0 || layout.ItemHeight <= 0 {
		layout = DefaultLayout
	}
	return &Resolver{layout: layout, onChange: onChange}
}

// OnChange replaces the state-change callback.
func (r *Resolver) OnChange(fn func(State)) { r.onChange = fn }

func (r *Resolver) State() State { return r.state }

// Target is the object the menu was last opened on, or nil.
func (r *Resolver) Target() *scene.Object { return r.target }

// Visible reports whether the menu is shown.
func (r *Resolver) Visible() bool { return r.state.Kind != Hidden }

// Items returns the entries for the current state.
func (r *Resolver) Items() []Item { return r.state.Items() }

// TopmostAt returns the topmost evented object whose box contains p.
func TopmostAt(s *scene.Store, p vector.Pt) *scene.Object {
	objs := s.Objects()
	for i := len(objs) - 1; i >= 0; i-- {
		if objs[i].Hit(p) {
			return objs[i]
		}
	}
	return nil
}

// SecondaryClick opens the menu at p on the topmost object under p, or on
// the canvas when nothing is hit.
func (r *Resolver) SecondaryClick(s *scene.Store, p vector.Pt) State {
	hit := TopmostAt(s, p)
	r.target = hit
	if hit != nil {
		r.set(State{Kind: ObjectContext, Target: hit, At: p})
	} else {
		r.set(State{Kind: CanvasContext, At: p})
	}
	return r.state
}

// Region is the rectangle the menu occupies while visible.
func (r *Resolver) Region() vector.Rect {
	if r.state.Kind == Hidden {
		return vector.Rect{}
	}
	n := float64(len(r.state.Items()))
	return vector.R(r.state.At.X, r.state.At.Y, r.layout.ItemWidth, n*r.layout.ItemHeight)
}

// ItemAt returns the item rendered under p.
func (r *Resolver) ItemAt(p vector.Pt) (Item, bool) {
	if r.state.Kind == Hidden {
		return "", false
	}
	reg := r.Region()
	if !reg.Contains(p) {
		return "", false
	}
	items := r.state.Items()
	i := int((p.Y - reg.Y) / r.layout.ItemHeight)
	if i >= len(items) {
		i = len(items) - 1
	}
	return items[i], true
}

// PrimaryClick handles a primary click while the menu may be open. Inside
// the menu it returns the item under p; outside it hides the menu and clears
// the stored target.
func (r *Resolver) PrimaryClick(p vector.Pt) (Item, bool) {
	if r.state.Kind == Hidden {
		return "", false
	}
	if it, ok := r.ItemAt(p); ok {
		return it, true
	}
	r.target = nil
	r.set(State{})
	return "", false
}

// Hide closes the menu and keeps the stored target.
func (r *Resolver) Hide() {
	if r.state.Kind == Hidden {
		return
	}
	r.set(State{})
}

// ClearTarget drops the stored target reference.
func (r *Resolver) ClearTarget() { r.target = nil }

// Forget drops the target when it is o (o left the scene) and closes a menu
// that was opened on it.
func (r *Resolver) Forget(o *scene.Object) {
	if o == nil || r.target != o {
		return
	}
	r.target = nil
	if r.state.Target == o {
		r.set(State{})
	}
}

func (r *Resolver) set(s State) {
	r.state = s
	if r.onChange != nil {
		r.onChange(s)
	}
}
