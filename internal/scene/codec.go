/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"gosceneeditor/internal/ids"
	"gosceneeditor/internal/vector"
)

// DocumentVersion is written into every persisted document.
const DocumentVersion = "1"

// Document is the persisted unit: canvas metadata plus top-level objects.
type Document struct {
	ID         string    `json:"id,omitempty"`
	Version    string    `json:"version"`
	Background string    `json:"background"`
	Width      float64   `json:"width"`
	Height     float64   `json:"height"`
	Objects    []*Object `json:"objects"`
}

// NewDocument returns an empty white 800x600 document.
func NewDocument() Document {
	return Document{Version: DocumentVersion, Background: "white", Width: 800, Height: 600}
}

// Reviver finishes decoding the variant-specific fields of o from raw.
// It runs after the common fields are decoded.
type Reviver func(raw json.RawMessage, o *Object) error

// encoder adds variant-specific fields to the wire form of o.
type encoder func(o *Object, w *wireObject)

var (
	codecMu  sync.RWMutex
	revivers = map[Kind]Reviver{}
	encoders = map[Kind]encoder{}
)

// RegisterReviver installs the decode hook for kind k.
func RegisterReviver(k Kind, r Reviver) {
	codecMu.Lock()
	defer codecMu.Unlock()
	revivers[k] = r
}

func registerEncoder(k Kind, e encoder) {
	codecMu.Lock()
	defer codecMu.Unlock()
	encoders[k] = e
}

func reviverFor(k Kind) Reviver {
	codecMu.RLock()
	defer codecMu.RUnlock()
	return revivers[k]
}

func encoderFor(k Kind) encoder {
	codecMu.RLock()
	defer codecMu.RUnlock()
	return encoders[k]
}

type wireGradient struct {
	Type       string          `json:"type"`
	Coords     wireCoords      `json:"coords"`
	ColorStops []wireColorStop `json:"colorStops"`
}

type wireCoords struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
	R1 float64 `json:"r1,omitempty"`
	R2 float64 `json:"r2,omitempty"`
}

type wireColorStop struct {
	Offset float64 `json:"offset"`
	Color  string  `json:"color"`
}

type wireObject struct {
	Type Kind   `json:"type"`
	ID   string `json:"id,omitempty"`

	Left    float64  `json:"left"`
	Top     float64  `json:"top"`
	Width   float64  `json:"width"`
	Height  float64  `json:"height"`
	ScaleX  *float64 `json:"scaleX,omitempty"`
	ScaleY  *float64 `json:"scaleY,omitempty"`
	Angle   float64  `json:"angle"`
	OriginX string   `json:"originX,omitempty"`
	OriginY string   `json:"originY,omitempty"`

	Fill        string        `json:"fill"`
	Stroke      string        `json:"stroke,omitempty"`
	StrokeWidth float64       `json:"strokeWidth"`
	Opacity     *float64      `json:"opacity,omitempty"`
	Gradient    *wireGradient `json:"gradient,omitempty"`

	Selectable      *bool `json:"selectable,omitempty"`
	Evented         *bool `json:"evented,omitempty"`
	LockMovementX   bool  `json:"lockMovementX,omitempty"`
	LockMovementY   bool  `json:"lockMovementY,omitempty"`
	LockScalingX    bool  `json:"lockScalingX,omitempty"`
	LockScalingY    bool  `json:"lockScalingY,omitempty"`
	LockRotation    bool  `json:"lockRotation,omitempty"`
	LockScalingFlip bool  `json:"lockScalingFlip,omitempty"`
	StrokeUniform   bool  `json:"strokeUniform,omitempty"`

	StashedFill *string `json:"stashedFill,omitempty"`

	CornerStyle        string  `json:"cornerStyle,omitempty"`
	CornerColor        string  `json:"cornerColor,omitempty"`
	TransparentCorners bool    `json:"transparentCorners,omitempty"`
	CornerSize         float64 `json:"cornerSize,omitempty"`

	Radius   float64     `json:"radius,omitempty"`
	Rx       float64     `json:"rx,omitempty"`
	Ry       float64     `json:"ry,omitempty"`
	Points   []vector.Pt `json:"points,omitempty"`
	Path     string      `json:"path,omitempty"`
	Src      string      `json:"src,omitempty"`
	Text     *string     `json:"text,omitempty"`
	FontSize float64     `json:"fontSize,omitempty"`
	Family   string      `json:"fontFamily,omitempty"`
	Align    string      `json:"textAlign,omitempty"`
	LineH    float64     `json:"lineHeight,omitempty"`
	Objects  []*Object   `json:"objects,omitempty"`

	// padded text extension
	PaddingX              *float64 `json:"paddingX,omitempty"`
	PaddingY              *float64 `json:"paddingY,omitempty"`
	BorderRadius          *float64 `json:"borderRadius,omitempty"`
	CustomBackgroundColor *string  `json:"customBackgroundColor,omitempty"`
}

// MarshalJSON writes the tagged wire form.
func (o *Object) MarshalJSON() ([]byte, error) {
	w := wireObject{
		Type: o.Kind, ID: o.ID,
		Left: o.Left, Top: o.Top, Width: o.Width, Height: o.Height,
		ScaleX: fptr(o.ScaleX), ScaleY: fptr(o.ScaleY), Angle: o.Angle,
		OriginX: o.OriginX, OriginY: o.OriginY,
		Fill: o.Fill, Stroke: o.Stroke, StrokeWidth: o.StrokeWidth, Opacity: fptr(o.Opacity),
		Selectable: bptr(o.Selectable), Evented: bptr(o.Evented),
		LockMovementX: o.LockMovementX, LockMovementY: o.LockMovementY,
		LockScalingX: o.LockScalingX, LockScalingY: o.LockScalingY,
		LockRotation: o.LockRotation, LockScalingFlip: o.LockScalingFlip,
		StrokeUniform: o.StrokeUniform, StashedFill: o.StashedFill,
		CornerStyle: o.Controls.CornerStyle, CornerColor: o.Controls.CornerColor,
		TransparentCorners: o.Controls.TransparentCorners, CornerSize: o.Controls.CornerSize,
		Radius: o.Radius, Rx: o.Rx, Ry: o.Ry, Points: o.Points, Path: o.PathData, Src: o.Src,
		Objects: o.Children,
	}
	if o.Gradient != nil {
		g := &wireGradient{Type: o.Gradient.Type, Coords: wireCoords{
			X1: o.Gradient.X1, Y1: o.Gradient.Y1, X2: o.Gradient.X2, Y2: o.Gradient.Y2,
			R1: o.Gradient.R1, R2: o.Gradient.R2,
		}}
		for _, s := range o.Gradient.Stops {
			g.ColorStops = append(g.ColorStops, wireColorStop(s))
		}
		w.Gradient = g
	}
	if o.Text != nil {
		t := o.Text.Text
		w.Text = &t
		w.FontSize = o.Text.FontSize
		w.Family = o.Text.FontFamily
		w.Align = o.Text.TextAlign
		w.LineH = o.Text.LineHeight
	}
	if enc := encoderFor(o.Kind); enc != nil {
		enc(o, &w)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire form and runs the reviver registered for
// the object's type.
func (o *Object) UnmarshalJSON(data []byte) error {
	var w wireObject
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if !w.Type.Valid() {
		return fmt.Errorf("unknown object type %q: %w", w.Type, ErrInvalidObject)
	}
	*o = Object{
		ID: w.ID, Kind: w.Type,
		Left: w.Left, Top: w.Top, Width: w.Width, Height: w.Height,
		ScaleX: fval(w.ScaleX, 1), ScaleY: fval(w.ScaleY, 1), Angle: w.Angle,
		OriginX: w.OriginX, OriginY: w.OriginY,
		Fill: w.Fill, Stroke: w.Stroke, StrokeWidth: w.StrokeWidth, Opacity: fval(w.Opacity, 1),
		Selectable: bval(w.Selectable, true), Evented: bval(w.Evented, true),
		LockMovementX: w.LockMovementX, LockMovementY: w.LockMovementY,
		LockScalingX: w.LockScalingX, LockScalingY: w.LockScalingY,
		LockRotation: w.LockRotation, LockScalingFlip: w.LockScalingFlip,
		StrokeUniform: w.StrokeUniform, StashedFill: w.StashedFill,
		Controls: ControlStyle{
			CornerStyle: w.CornerStyle, CornerColor: w.CornerColor,
			TransparentCorners: w.TransparentCorners, CornerSize: w.CornerSize,
		},
		Radius: w.Radius, Rx: w.Rx, Ry: w.Ry, Points: w.Points, PathData: w.Path, Src: w.Src,
		Children: w.Objects,
	}
	if o.OriginX == "" {
		o.OriginX = OriginLeft
	}
	if o.OriginY == "" {
		o.OriginY = OriginTop
	}
	if o.ID == "" {
		o.ID = ids.NewObjectID()
	}
	if w.Gradient != nil {
		c := w.Gradient.Coords
		g := &Gradient{Type: w.Gradient.Type, X1: c.X1, Y1: c.Y1, X2: c.X2, Y2: c.Y2, R1: c.R1, R2: c.R2}
		for _, s := range w.Gradient.ColorStops {
			g.Stops = append(g.Stops, ColorStop(s))
		}
		o.Gradient = g
	}
	if o.Kind.IsText() {
		o.Text = &TextPayload{FontSize: w.FontSize, FontFamily: w.Family, TextAlign: w.Align, LineHeight: w.LineH}
		if w.Text != nil {
			o.Text.Text = *w.Text
		}
	}
	if r := reviverFor(o.Kind); r != nil {
		if err := r(data, o); err != nil {
			return fmt.Errorf("revive %s: %w", o.Kind, err)
		}
	}
	return nil
}

// MarshalDocument encodes d as indented JSON.
func MarshalDocument(d Document) ([]byte, error) {
	if d.Version == "" {
		d.Version = DocumentVersion
	}
	if d.Objects == nil {
		d.Objects = []*Object{}
	}
	return json.MarshalIndent(d, "", "  ")
}

// UnmarshalDocument decodes a document and fills canvas defaults.
func UnmarshalDocument(data []byte) (Document, error) {
	d := NewDocument()
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&d); err != nil {
		return Document{}, fmt.Errorf("decode scene document: %w", err)
	}
	if d.Background == "" {
		d.Background = "white"
	}
	if d.Width <= 0 {
		d.Width = 800
	}
	if d.Height <= 0 {
		d.Height = 600
	}
	return d, nil
}

func fptr(v float64) *float64 { return &v }
func bptr(v bool) *bool       { return &v }

func fval(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func bval(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
