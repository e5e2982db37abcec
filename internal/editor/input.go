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

	"gosceneeditor/internal/contextmenu"
	"gosceneeditor/internal/scene"
	"gosceneeditor/internal/vector"
)

// Delete control placement relative to the top-right corner of the
// selected object's box.
const (
	DeleteControlOffsetX = 16
	DeleteControlOffsetY = -16
	DeleteControlSize    = 24
)

type dragState struct {
	target  *scene.Object
	members []*scene.Object
	last    vector.Pt
	moved   bool
}

// DeleteControlRect returns the delete handle of the sole selected object.
func (e *Editor) DeleteControlRect() (vector.Rect, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return deleteControl(e.store.Active())
}

func deleteControl(o *scene.Object) (vector.Rect, bool) {
	if o == nil || !o.Selectable {
		return vector.Rect{}, false
	}
	c := o.Corner(1, 0)
	c.X += DeleteControlOffsetX
	c.Y += DeleteControlOffsetY
	return vector.R(c.X-DeleteControlSize/2, c.Y-DeleteControlSize/2, DeleteControlSize, DeleteControlSize), true
}

// PointerDown handles a primary press at p. additive toggles p's object in
// the selection instead of replacing it. A press inside an open context
// menu runs the item under p.
func (e *Editor) PointerDown(p vector.Pt, additive bool) error {
	return e.do("pointer-down", func() error {
		if e.menu.Visible() {
			if it, ok := e.menu.PrimaryClick(p); ok {
				return e.runItem(it)
			}
		}
		if r, ok := deleteControl(e.store.Active()); ok && r.Contains(p) {
			o := e.store.Active()
			e.record()
			if err := e.store.Remove(o); err != nil {
				return err
			}
			e.menu.Forget(o)
			e.log.Debug("removed by delete control", slog.String("id", o.ID))
			return nil
		}
		e.endDrag()

		hit := contextmenu.TopmostAt(e.store, p)
		if hit == nil || !hit.Selectable {
			if !additive {
				e.store.ClearSelection()
			}
			return nil
		}
		if additive {
			sel := e.store.Selection()
			if e.store.IsSelected(hit) {
				sel = without(sel, hit)
				if err := e.store.SetSelection(sel...); err != nil {
					return err
				}
				return nil
			}
			if err := e.store.SetSelection(append(sel, hit)...); err != nil {
				return err
			}
		} else if !e.store.IsSelected(hit) {
			if err := e.store.SetSelection(hit); err != nil {
				return err
			}
		}
		e.drag = &dragState{target: hit, members: e.store.Selection(), last: p}
		e.collide.BeginDrag(hit)
		return nil
	})
}

// PointerMove moves the dragged selection to follow p and samples for
// collisions. Without a drag it does nothing.
func (e *Editor) PointerMove(p vector.Pt) error {
	return e.do("pointer-move", func() error {
		return e.moveTo(p)
	})
}

// PointerUp ends the drag. It is the only way a drag ends.
func (e *Editor) PointerUp(p vector.Pt) error {
	return e.do("pointer-up", func() error {
		if e.drag == nil {
			return nil
		}
		err := e.moveTo(p)
		e.endDrag()
		return err
	})
}

func (e *Editor) moveTo(p vector.Pt) error {
	d := e.drag
	if d == nil {
		return nil
	}
	// members removed mid-drag (menu delete, undo, scripts) drop out; the
	// drag ends with its target
	kept := d.members[:0]
	for _, o := range d.members {
		if e.store.Contains(o) {
			kept = append(kept, o)
		}
	}
	d.members = kept
	if !e.store.Contains(d.target) {
		e.endDrag()
		return nil
	}
	dx, dy := p.X-d.last.X, p.Y-d.last.Y
	if dx == 0 && dy == 0 {
		return nil
	}
	if !d.moved {
		e.record()
		d.moved = true
	}
	d.last = p
	err := e.store.Batch(func() error {
		for _, o := range d.members {
			mx, my := dx, dy
			if o.LockMovementX {
				mx = 0
			}
			if o.LockMovementY {
				my = 0
			}
			if err := e.store.Update(o, func(o *scene.Object) { o.Translate(mx, my) }); err != nil {
				return fmt.Errorf("move %s: %w", o.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.collide.Sample(e.store, d.target)
	return nil
}

func (e *Editor) endDrag() {
	if e.drag == nil {
		return
	}
	e.collide.EndDrag()
	e.drag = nil
}

// Dragging reports whether a drag is in progress.
func (e *Editor) Dragging() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drag != nil
}

// KeyDelete removes every selected object.
func (e *Editor) KeyDelete() error {
	return e.do("key-delete", func() error {
		sel := e.store.Selection()
		if len(sel) == 0 {
			return nil
		}
		e.endDrag()
		e.record()
		return e.store.Batch(func() error {
			for _, o := range sel {
				if err := e.store.Remove(o); err != nil {
					return err
				}
				e.menu.Forget(o)
			}
			return nil
		})
	})
}

// SecondaryClick opens the context menu at p.
func (e *Editor) SecondaryClick(p vector.Pt) contextmenu.State {
	var st contextmenu.State
	_ = e.do("secondary-click", func() error {
		st = e.menu.SecondaryClick(e.store, p)
		return nil
	})
	return st
}

// HideMenu closes the context menu.
func (e *Editor) HideMenu() {
	_ = e.do("hide-menu", func() error {
		e.menu.Hide()
		return nil
	})
}

// MenuAction runs a context menu item against the menu's stored target.
func (e *Editor) MenuAction(it contextmenu.Item) error {
	return e.do("menu-"+string(it), func() error { return e.runItem(it) })
}

func (e *Editor) runItem(it contextmenu.Item) error {
	target := e.menu.Target()
	switch it {
	case contextmenu.Copy:
		e.clip.Copy(target)
		return nil
	case contextmenu.Paste:
		if !e.clip.HasContent() {
			e.menu.Hide()
			return nil
		}
		e.record()
		o, err := e.clip.Paste(e.store)
		if err == nil && o != nil {
			e.rememberPixels(o)
		}
		return err
	case contextmenu.Duplicate:
		if target == nil {
			e.menu.Hide()
			return nil
		}
		e.record()
		_, err := e.clip.Duplicate(e.store, target)
		return err
	case contextmenu.Delete:
		if target == nil {
			e.menu.Hide()
			return nil
		}
		e.record()
		return e.clip.Delete(e.store, target)
	}
	return fmt.Errorf("unknown menu item %q", it)
}

func without(objs []*scene.Object, o *scene.Object) []*scene.Object {
	out := objs[:0]
	for _, x := range objs {
		if x != o {
			out = append(out, x)
		}
	}
	return out
}
