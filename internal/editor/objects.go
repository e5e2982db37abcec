/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gosceneeditor/internal/media"
	"gosceneeditor/internal/scene"
	"gosceneeditor/internal/svgimport"
	"gosceneeditor/internal/vector"
)

// Lock names a movement, scaling or rotation lock.
type Lock string

const (
	LockMovementX   Lock = "lockMovementX"
	LockMovementY   Lock = "lockMovementY"
	LockScalingX    Lock = "lockScalingX"
	LockScalingY    Lock = "lockScalingY"
	LockRotation    Lock = "lockRotation"
	LockScalingFlip Lock = "lockScalingFlip"
)

// Property names accepted by SetProperty.
const (
	PropFill          = "fill"
	PropStroke        = "stroke"
	PropStrokeWidth   = "strokeWidth"
	PropStrokeUniform = "strokeUniform"
	PropOpacity       = "opacity"
	PropAngle         = "angle"
	PropScaleX        = "scaleX"
	PropScaleY        = "scaleY"
	PropText          = "text"
	PropFontSize      = "fontSize"
)

// OriginChoices lists the origin values offered by the properties panel.
var OriginChoices = []string{"left", "center", "right", "0.3", "0.5", "0.7", "1"}

// Add places o on top of the scene and selects it.
func (e *Editor) Add(o *scene.Object) error {
	return e.do("add", func() error { return e.addLocked(o) })
}

func (e *Editor) addLocked(o *scene.Object) error {
	if o == nil {
		return fmt.Errorf("add: %w", scene.ErrInvalidObject)
	}
	e.record()
	err := e.store.Batch(func() error {
		if err := e.store.Add(o); err != nil {
			return err
		}
		return e.store.SetSelection(o)
	})
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}
	e.rememberPixels(o)
	return nil
}

// AddFromPalette builds the named palette entry and adds it.
func (e *Editor) AddFromPalette(name string) (*scene.Object, error) {
	var o *scene.Object
	err := e.do("palette", func() error {
		var err error
		if o, err = e.factory.Create(name); err != nil {
			return err
		}
		return e.addLocked(o)
	})
	return o, err
}

// PlaceResource adds an image object for a loaded resource. A resource
// still loading fails with scene.ErrResourceNotReady.
func (e *Editor) PlaceResource(r *media.Resource) (*scene.Object, error) {
	var o *scene.Object
	err := e.do("place-resource", func() error {
		if r == nil || !r.Ready() {
			return scene.ErrResourceNotReady
		}
		img, err := r.Image()
		if err != nil {
			return fmt.Errorf("place %s: %w", r.Src, err)
		}
		o = e.factory.Image(r.Src, img)
		return e.addLocked(o)
	})
	return o, err
}

// LoadImage decodes src in the background and places it when ready.
// done, when non-nil, receives the placed object or the failure.
func (e *Editor) LoadImage(ctx context.Context, src string, done func(*scene.Object, error)) {
	e.loader.Load(ctx, src, func(r *media.Resource) {
		o, err := e.PlaceResource(r)
		if done != nil {
			done(o, err)
		}
	})
}

// WaitLoads blocks until pending image loads have been placed.
func (e *Editor) WaitLoads() { e.loader.Wait() }

// LoadPolygons replaces the scene with the regular polygons described by
// data and switches to the polygons background.
func (e *Editor) LoadPolygons(data []byte) (int, error) {
	var n int
	err := e.do("load-polygons", func() error {
		objs, err := e.factory.PolygonsFromJSON(data)
		if err != nil {
			return err
		}
		e.record()
		e.endDrag()
		if err := e.store.Replace(objs); err != nil {
			return err
		}
		e.menu.Hide()
		e.menu.ClearTarget()
		e.background = scene.PolygonsBackground
		n = len(objs)
		return nil
	})
	return n, err
}

// ImportSVG adds the shapes of an SVG document as one object (a group when
// there is more than one shape).
func (e *Editor) ImportSVG(r io.Reader) (*scene.Object, error) {
	var o *scene.Object
	err := e.do("import-svg", func() error {
		opt := svgimport.DefaultOptions()
		opt.Controls = e.factory.Style
		var err error
		if o, err = svgimport.Import(r, opt); err != nil {
			return err
		}
		return e.addLocked(o)
	})
	return o, err
}

// ClearCanvas removes every object and resets the background to white.
func (e *Editor) ClearCanvas() {
	_ = e.do("clear", func() error {
		e.record()
		e.endDrag()
		e.store.Clear()
		e.menu.Hide()
		e.menu.ClearTarget()
		e.background = "white"
		return nil
	})
}

// SetBackground changes the canvas colour.
func (e *Editor) SetBackground(color string) error {
	return e.do("background", func() error {
		if _, ok := vector.ParseColor(color); !ok {
			return fmt.Errorf("background %q: %w", color, scene.ErrInvalidObject)
		}
		e.record()
		e.background = color
		return nil
	})
}

func (e *Editor) primary() (*scene.Object, error) {
	o := e.store.Primary()
	if o == nil {
		return nil, scene.ErrInsufficientSelection
	}
	return o, nil
}

// SetProperty edits one property of the primary selected object. value
// must be a string for colours and text, a float64 for numbers and a bool
// for strokeUniform.
func (e *Editor) SetProperty(name string, value any) error {
	return e.do("set-property", func() error {
		o, err := e.primary()
		if err != nil {
			return err
		}
		apply, err := propertySetter(o, name, value)
		if err != nil {
			return err
		}
		e.record()
		return e.store.Update(o, func(o *scene.Object) {
			apply(o)
			if name == PropText || name == PropFontSize {
				scene.FitText(o, e.factory.Provider)
			}
		})
	})
}

func propertySetter(o *scene.Object, name string, value any) (func(*scene.Object), error) {
	bad := func() error {
		return fmt.Errorf("property %s: bad value %v: %w", name, value, scene.ErrInvalidObject)
	}
	switch name {
	case PropFill, PropStroke:
		s, ok := value.(string)
		if !ok {
			return nil, bad()
		}
		if _, valid := vector.ParseColor(s); !valid && s != "" {
			return nil, bad()
		}
		if name == PropFill {
			return func(o *scene.Object) { o.Fill = s; o.Gradient = nil }, nil
		}
		return func(o *scene.Object) { o.Stroke = s }, nil
	case PropText:
		s, ok := value.(string)
		if !ok || o.Text == nil {
			return nil, bad()
		}
		return func(o *scene.Object) { o.Text.Text = s }, nil
	case PropStrokeUniform:
		b, ok := value.(bool)
		if !ok {
			return nil, bad()
		}
		return func(o *scene.Object) { o.StrokeUniform = b }, nil
	}
	f, ok := value.(float64)
	if !ok {
		return nil, bad()
	}
	switch name {
	case PropOpacity:
		if f < 0 || f > 1 {
			return nil, bad()
		}
		return func(o *scene.Object) { o.Opacity = f }, nil
	case PropStrokeWidth:
		if f < 0 {
			return nil, bad()
		}
		return func(o *scene.Object) { o.StrokeWidth = f }, nil
	case PropAngle:
		return func(o *scene.Object) { o.Angle = f }, nil
	case PropScaleX, PropScaleY:
		if f == 0 || (f < 0 && o.LockScalingFlip) {
			return nil, bad()
		}
		if name == PropScaleX {
			if o.LockScalingX {
				return nil, bad()
			}
			return func(o *scene.Object) { o.ScaleX = f }, nil
		}
		if o.LockScalingY {
			return nil, bad()
		}
		return func(o *scene.Object) { o.ScaleY = f }, nil
	case PropFontSize:
		if o.Text == nil || f <= 0 {
			return nil, bad()
		}
		return func(o *scene.Object) { o.Text.FontSize = f }, nil
	}
	return nil, fmt.Errorf("unknown property %q: %w", name, scene.ErrInvalidObject)
}

// ToggleLock flips a lock on the primary selected object and returns the
// new value.
func (e *Editor) ToggleLock(l Lock) (bool, error) {
	var on bool
	err := e.do("toggle-lock", func() error {
		o, err := e.primary()
		if err != nil {
			return err
		}
		field := lockField(o, l)
		if field == nil {
			return fmt.Errorf("unknown lock %q: %w", l, scene.ErrInvalidObject)
		}
		e.record()
		return e.store.Update(o, func(*scene.Object) {
			*field = !*field
			on = *field
		})
	})
	return on, err
}

func lockField(o *scene.Object, l Lock) *bool {
	switch l {
	case LockMovementX:
		return &o.LockMovementX
	case LockMovementY:
		return &o.LockMovementY
	case LockScalingX:
		return &o.LockScalingX
	case LockScalingY:
		return &o.LockScalingY
	case LockRotation:
		return &o.LockRotation
	case LockScalingFlip:
		return &o.LockScalingFlip
	}
	return nil
}

// SetOrigin changes the anchor of the primary selected object. The object
// keeps its place on the canvas.
func (e *Editor) SetOrigin(originX, originY string) error {
	return e.do("set-origin", func() error {
		o, err := e.primary()
		if err != nil {
			return err
		}
		if !validOrigin(originX) || !validOrigin(originY) {
			return fmt.Errorf("origin %q,%q: %w", originX, originY, scene.ErrInvalidObject)
		}
		e.record()
		return e.store.Update(o, func(o *scene.Object) {
			before := o.Corner(0, 0)
			if originX != "" {
				o.OriginX = originX
			}
			if originY != "" {
				o.OriginY = originY
			}
			after := o.Corner(0, 0)
			o.Translate(before.X-after.X, before.Y-after.Y)
			e.log.Debug("origin changed", slog.String("id", o.ID), slog.String("x", o.OriginX), slog.String("y", o.OriginY))
		})
	})
}

func validOrigin(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", scene.OriginLeft, scene.OriginCenter, scene.OriginRight, scene.OriginTop, scene.OriginBottom:
		return true
	}
	f := scene.OriginFraction(s)
	return f != 0 || strings.TrimSpace(s) == "0"
}

// Select replaces the selection.
func (e *Editor) Select(objs ...*scene.Object) error {
	return e.do("select", func() error { return e.store.SetSelection(objs...) })
}

// SelectLayer selects the object at a display index (0 is topmost).
func (e *Editor) SelectLayer(display int) error {
	return e.do("select-layer", func() error {
		n := e.store.Len()
		if display < 0 || display >= n {
			return scene.ErrIndexOutOfRange
		}
		return e.store.SetSelection(e.store.At(n - 1 - display))
	})
}

// Reorder moves the object at z-index from to z-index to.
func (e *Editor) Reorder(from, to int) error {
	return e.do("reorder", func() error {
		n := e.store.Len()
		if from < 0 || from >= n || to < 0 || to >= n {
			return scene.ErrIndexOutOfRange
		}
		e.record()
		return e.store.Reorder(from, to)
	})
}

// ReorderLayers moves a layer in display order (0 is topmost), as a drag in
// the layer list does.
func (e *Editor) ReorderLayers(fromDisplay, toDisplay int) error {
	return e.do("reorder-layers", func() error {
		n := e.store.Len()
		if fromDisplay < 0 || fromDisplay >= n || toDisplay < 0 || toDisplay >= n {
			return scene.ErrIndexOutOfRange
		}
		e.record()
		return e.store.Reorder(n-1-fromDisplay, n-1-toDisplay)
	})
}

// BringToFront moves the primary selected object to the top.
func (e *Editor) BringToFront() error { return e.zorder("bring-to-front", (*scene.Store).BringToFront) }

// SendToBack moves the primary selected object to the bottom.
func (e *Editor) SendToBack() error { return e.zorder("send-to-back", (*scene.Store).SendToBack) }

// BringForward moves the primary selected object up one step.
func (e *Editor) BringForward() error { return e.zorder("bring-forward", (*scene.Store).BringForward) }

// SendBackwards moves the primary selected object down one step.
func (e *Editor) SendBackwards() error {
	return e.zorder("send-backwards", (*scene.Store).SendBackwards)
}

func (e *Editor) zorder(op string, fn func(*scene.Store, *scene.Object) error) error {
	return e.do(op, func() error {
		o, err := e.primary()
		if err != nil {
			return err
		}
		e.record()
		return fn(e.store, o)
	})
}

// Group replaces the selection with one group.
func (e *Editor) Group() (*scene.Object, error) {
	var g *scene.Object
	err := e.do("group", func() error {
		sel := e.store.Selection()
		if len(sel) < 2 {
			return scene.ErrInsufficientSelection
		}
		e.endDrag()
		e.record()
		var err error
		g, err = e.groups.Group(e.store, sel)
		if err != nil {
			return err
		}
		for _, o := range sel {
			e.menu.Forget(o)
		}
		return nil
	})
	return g, err
}

// Ungroup dissolves the primary selected group into its members.
func (e *Editor) Ungroup() ([]*scene.Object, error) {
	var out []*scene.Object
	err := e.do("ungroup", func() error {
		g, err := e.primary()
		if err != nil {
			return err
		}
		if !g.IsGroup() {
			return scene.ErrNotAGroup
		}
		e.endDrag()
		e.record()
		if out, err = e.groups.Ungroup(e.store, g); err != nil {
			return err
		}
		e.menu.Forget(g)
		return nil
	})
	return out, err
}
