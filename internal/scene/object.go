/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"image"

	"gosceneeditor/internal/ids"
	"gosceneeditor/internal/vector"
)

// ColorStop is one stop of a gradient.
type ColorStop struct {
	Offset float64
	Color  string
}

// Gradient paints a fill between stops. Coordinates are in the object's
// local box (0..Width, 0..Height).
type Gradient struct {
	Type   string // "linear" or "radial"
	X1, Y1 float64
	X2, Y2 float64
	R1, R2 float64 // radial only
	Stops  []ColorStop
}

// TextPayload is the base text capability shared by text variants.
type TextPayload struct {
	Text       string
	FontSize   float64
	FontFamily string
	TextAlign  string
	LineHeight float64
}

// Padded extends a text object with a padded, rounded background.
type Padded struct {
	PaddingX       float64
	PaddingY       float64
	CornerRadius   float64
	BackgroundFill string
}

// ControlStyle is the selection-handle styling applied at construction.
type ControlStyle struct {
	CornerStyle        string // "rect" or "circle"
	CornerColor        string
	TransparentCorners bool
	CornerSize         float64
}

// Object is one scene object. Kind selects which variant fields are used:
// Radius for circles, Points for lines and polygons, PathData for paths,
// Src/Pixels for images, Text (and Padded) for text, Children for groups.
//
// All geometry is expressed in a local box of Width x Height that Matrix
// places into the parent frame.
type Object struct {
	ID   string
	Kind Kind

	Left, Top        float64
	Width, Height    float64
	ScaleX, ScaleY   float64
	Angle            float64 // degrees, clockwise
	OriginX, OriginY string

	Fill        string
	Stroke      string
	StrokeWidth float64
	Opacity     float64
	Gradient    *Gradient

	Selectable      bool
	Evented         bool
	LockMovementX   bool
	LockMovementY   bool
	LockScalingX    bool
	LockScalingY    bool
	LockRotation    bool
	LockScalingFlip bool
	StrokeUniform   bool

	// StashedFill holds the fill from before a collision highlight.
	// Set on the first highlight, cleared on restore.
	StashedFill *string

	Controls ControlStyle

	Radius   float64
	Rx, Ry   float64
	Points   []vector.Pt
	PathData string
	Src      string
	Pixels   image.Image // decoded image data, not persisted
	Text     *TextPayload
	Padded   *Padded
	Children []*Object
}

// New returns an object of kind k with neutral defaults and a fresh ID.
func New(k Kind) *Object {
	return &Object{
		ID:         ids.NewObjectID(),
		Kind:       k,
		ScaleX:     1,
		ScaleY:     1,
		OriginX:    OriginLeft,
		OriginY:    OriginTop,
		Opacity:    1,
		Selectable: true,
		Evented:    true,
	}
}

// NewGroup returns an empty group at the given top-left with size w x h.
func NewGroup(left, top, w, h float64) *Object {
	g := New(KindGroup)
	g.Left, g.Top, g.Width, g.Height = left, top, w, h
	g.Fill = ""
	return g
}

// IsGroup reports whether o is a group.
func (o *Object) IsGroup() bool { return o != nil && o.Kind == KindGroup }

// Position returns the anchor point (Left, Top) in the parent frame.
func (o *Object) Position() vector.Pt { return vector.Pt{X: o.Left, Y: o.Top} }

// SetPosition moves the anchor point.
func (o *Object) SetPosition(p vector.Pt) { o.Left, o.Top = p.X, p.Y }

// Translate moves the object by dx, dy.
func (o *Object) Translate(dx, dy float64) {
	o.Left += dx
	o.Top += dy
}

// Label is a short human-readable name for layer lists.
func (o *Object) Label() string {
	if o == nil {
		return ""
	}
	if o.Text != nil && o.Text.Text != "" {
		t := o.Text.Text
		if len(t) > 24 {
			t = t[:24] + "…"
		}
		return string(o.Kind) + " \"" + t + "\""
	}
	return string(o.Kind)
}
