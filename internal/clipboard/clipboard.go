/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package clipboard implements copy, paste, duplicate and delete over a
// scene store with a single detached clipboard buffer.
package clipboard

import (
	"fmt"

	applog "gosceneeditor/internal/log"
	"gosceneeditor/internal/scene"
	"gosceneeditor/internal/vector"
)

// Menu is the part of the context menu the clipboard closes and clears.
type Menu interface {
	Hide()
	ClearTarget()
}

// Offsets applied to pasted and duplicated objects.
const (
	DefaultPasteOffset     = 10
	DefaultDuplicateOffset = 20
)

// Controller holds the clipboard buffer. The buffer is always a detached
// clone and never a scene member.
type Controller struct {
	buf             *scene.Object
	menu            Menu
	pasteOffset     vector.Pt
	duplicateOffset vector.Pt
}

// New returns a controller. Non-positive offsets fall back to the defaults.
func New(menu Menu, pasteOffset, duplicateOffset float64) *Controller {
	if pasteOffset <= 0 {
		pasteOffset = DefaultPasteOffset
	}
	if duplicateOffset <= 0 {
		duplicateOffset = DefaultDuplicateOffset
	}
	return &Controller{
		menu:            menu,
		pasteOffset:     vector.Pt{X: pasteOffset, Y: pasteOffset},
		duplicateOffset: vector.Pt{X: duplicateOffset, Y: duplicateOffset},
	}
}

// SetOffsets changes the paste and duplicate offsets. Non-positive values
// keep the current offset.
func (c *Controller) SetOffsets(pasteOffset, duplicateOffset float64) {
	if pasteOffset > 0 {
		c.pasteOffset = vector.Pt{X: pasteOffset, Y: pasteOffset}
	}
	if duplicateOffset > 0 {
		c.duplicateOffset = vector.Pt{X: duplicateOffset, Y: duplicateOffset}
	}
}

// HasContent reports whether Paste would do anything.
func (c *Controller) HasContent() bool { return c.buf != nil }

// Buffer returns a clone of the buffered object, or nil.
func (c *Controller) Buffer() *scene.Object { return c.buf.Clone() }

// Copy stores a detached clone of target. nil is a no-op.
func (c *Controller) Copy(target *scene.Object) {
	defer c.hideMenu()
	if target == nil {
		return
	}
	c.buf = target.Clone()
	applog.WithComponent("clipboard").Debug("copied", "kind", target.Kind, "id", target.ID)
}

// Paste adds a fresh clone of the buffer, offset from the buffered position,
// and selects it. With an empty buffer it returns (nil, nil).
func (c *Controller) Paste(s *scene.Store) (*scene.Object, error) {
	defer c.hideMenu()
	if c.buf == nil {
		return nil, nil
	}
	o := c.buf.Clone()
	o.Translate(c.pasteOffset.X, c.pasteOffset.Y)
	o.Evented = true
	if err := addAndSelect(s, o); err != nil {
		return nil, fmt.Errorf("paste: %w", err)
	}
	return o, nil
}

// Duplicate clones target directly (the buffer is untouched), offsets the
// clone and selects it. nil is a no-op.
func (c *Controller) Duplicate(s *scene.Store, target *scene.Object) (*scene.Object, error) {
	defer c.hideMenu()
	if target == nil {
		return nil, nil
	}
	o := target.Clone()
	o.Translate(c.duplicateOffset.X, c.duplicateOffset.Y)
	if err := addAndSelect(s, o); err != nil {
		return nil, fmt.Errorf("duplicate: %w", err)
	}
	return o, nil
}

// Delete removes target from the store and clears the menu's target
// reference. nil is a no-op.
func (c *Controller) Delete(s *scene.Store, target *scene.Object) error {
	defer c.hideMenu()
	if target == nil {
		return nil
	}
	if err := s.Remove(target); err != nil {
		return fmt.Errorf("delete %s: %w", target.ID, err)
	}
	if c.menu != nil {
		c.menu.ClearTarget()
	}
	return nil
}

func (c *Controller) hideMenu() {
	if c.menu != nil {
		c.menu.Hide()
	}
}

func addAndSelect(s *scene.Store, o *scene.Object) error {
	return s.Batch(func() error {
		if err := s.Add(o); err != nil {
			return err
		}
		return s.SetSelection(o)
	})
}
