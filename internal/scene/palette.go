/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"fmt"
	"image"
	"sort"

	"gosceneeditor/internal/textlayout"
	"gosceneeditor/internal/vector"
)

// DefaultControlStyle is the selection-handle styling used when no
// configuration is supplied.
func DefaultControlStyle() ControlStyle {
	return ControlStyle{CornerStyle: "circle", CornerColor: "blue", TransparentCorners: false, CornerSize: 13}
}

// Factory builds palette objects with construction-time styling.
type Factory struct {
	Style    ControlStyle
	Provider textlayout.Provider
}

// NewFactory returns a factory applying style to every object it builds.
func NewFactory(style ControlStyle, provider textlayout.Provider) *Factory {
	if provider == nil {
		provider = textlayout.BasicProvider{}
	}
	return &Factory{Style: style, Provider: provider}
}

func (f *Factory) base(k Kind) *Object {
	o := New(k)
	o.Controls = f.Style
	return o
}

func (f *Factory) Rect() *Object {
	o := f.base(KindRect)
	o.Left, o.Top, o.Width, o.Height = 100, 100, 100, 100
	o.Fill = "red"
	return o
}

func (f *Factory) Circle() *Object {
	o := f.base(KindCircle)
	o.Left, o.Top, o.Radius = 150, 150, 50
	o.Fill = "green"
	return o
}

func (f *Factory) Triangle() *Object {
	o := f.base(KindTriangle)
	o.Left, o.Top, o.Width, o.Height = 100, 100, 100, 100
	o.Fill = "blue"
	return o
}

// Line builds a line between two scene points.
func (f *Factory) Line(x1, y1, x2, y2 float64) *Object {
	o := f.base(KindLine)
	b := vector.Path{}
	b.MoveTo(x1, y1)
	b.LineTo(x2, y2)
	r := b.Bounds()
	o.Left, o.Top, o.Width, o.Height = r.X, r.Y, r.W, r.H
	o.Points = []vector.Pt{{X: x1 - r.X, Y: y1 - r.Y}, {X: x2 - r.X, Y: y2 - r.Y}}
	o.Stroke, o.StrokeWidth = "black", 3
	o.Fill = ""
	return o
}

// Polygon builds a polygon from scene points; the box is their extent.
func (f *Factory) Polygon(pts []vector.Pt) *Object {
	o := f.base(KindPolygon)
	r := vector.PolygonPath(pts).Bounds()
	o.Left, o.Top, o.Width, o.Height = r.X, r.Y, r.W, r.H
	o.Points = make([]vector.Pt, len(pts))
	for i, p := range pts {
		o.Points[i] = vector.ToLocal(p, r.Min())
	}
	o.Fill, o.Stroke, o.StrokeWidth = "purple", "black", 2
	return o
}

// DefaultPolygon is the five-point palette polygon.
func (f *Factory) DefaultPolygon() *Object {
	return f.Polygon([]vector.Pt{{X: 200, Y: 100}, {X: 250, Y: 150}, {X: 300, Y: 100}, {X: 275, Y: 200}, {X: 225, Y: 200}})
}

// Path builds a path object whose box is the extent of data.
func (f *Factory) Path(data string) (*Object, error) {
	p, err := vector.ParsePathData(data)
	if err != nil {
		return nil, fmt.Errorf("path object: %w", err)
	}
	o := f.base(KindPath)
	r := p.Bounds()
	o.Left, o.Top, o.Width, o.Height = r.X, r.Y, r.W, r.H
	o.PathData = data
	o.Fill = ""
	return o, nil
}

// Arc is the palette arc: a quarter turn from (100,100) to (150,150).
func (f *Factory) Arc() *Object {
	o, _ := f.Path("M 100 100 A 50 50 0 0 1 150 150")
	o.Stroke, o.StrokeWidth = "black", 3
	return o
}

// CustomArc builds an arc from start to end with radius r.
func (f *Factory) CustomArc(startX, startY, r, endX, endY float64) (*Object, error) {
	o, err := f.Path(fmt.Sprintf("M %g %g A %g %g 0 0 1 %g %g", startX, startY, r, r, endX, endY))
	if err != nil {
		return nil, err
	}
	o.Stroke, o.StrokeWidth = "blue", 2
	return o, nil
}

func (f *Factory) text(k Kind, s string, left, top, width, size float64) *Object {
	o := f.base(k)
	o.Left, o.Top, o.Width = left, top, width
	o.Fill = "black"
	o.Text = &TextPayload{Text: s, FontSize: size, FontFamily: "Times New Roman", TextAlign: "left", LineHeight: textlayout.DefaultLineHeight}
	FitText(o, f.Provider)
	return o
}

// Text is the palette text box "Hello Fabric.js!".
func (f *Factory) Text() *Object { return f.text(KindText, "Hello Fabric.js!", 200, 200, 200, 40) }

// EditableText is single-line text that sizes to its content.
func (f *Factory) EditableText() *Object {
	return f.text(KindText, "Click to edit", 250, 250, 0, 24)
}

// Textbox is the multi-line palette text box.
func (f *Factory) Textbox() *Object {
	return f.text(KindText, "Multiline\nText Box", 200, 300, 250, 20)
}

// PaddedText builds a padded text box and sizes it to its content.
func (f *Factory) PaddedText(s string, left, top, width float64, pad Padded) *Object {
	o := f.text(KindPaddedText, s, left, top, width, 20)
	if pad.CornerRadius < 0 {
		pad.CornerRadius = 0
	}
	o.Padded = &pad
	return o
}

// DefaultPaddedText is the palette padded label.
func (f *Factory) DefaultPaddedText() *Object {
	return f.PaddedText("Padded text", 120, 120, 200, Padded{PaddingX: 20, PaddingY: 12, CornerRadius: 10, BackgroundFill: "lightblue"})
}

func (f *Factory) GradientRect() *Object {
	o := f.base(KindRect)
	o.Left, o.Top, o.Width, o.Height = 100, 100, 200, 200
	o.Gradient = &Gradient{Type: "linear", X2: 200, Stops: []ColorStop{{0, "red"}, {1, "blue"}}}
	return o
}

func (f *Factory) GradientCircle() *Object {
	o := f.base(KindCircle)
	o.Left, o.Top, o.Radius = 150, 150, 80
	o.Gradient = &Gradient{Type: "radial", R2: 80, Stops: []ColorStop{{0, "yellow"}, {1, "green"}}}
	return o
}

// Image places a decoded image at (150,150) at half scale.
func (f *Factory) Image(src string, img image.Image) *Object {
	o := f.base(KindImage)
	o.Left, o.Top = 150, 150
	o.ScaleX, o.ScaleY = 0.5, 0.5
	o.Src = src
	o.Pixels = img
	if img != nil {
		b := img.Bounds()
		o.Width, o.Height = float64(b.Dx()), float64(b.Dy())
	}
	o.Fill = ""
	return o
}

var paletteNames = map[string]func(f *Factory) *Object{
	"rect":            (*Factory).Rect,
	"circle":          (*Factory).Circle,
	"triangle":        (*Factory).Triangle,
	"line":            func(f *Factory) *Object { return f.Line(50, 50, 200, 200) },
	"polygon":         (*Factory).DefaultPolygon,
	"arc":             (*Factory).Arc,
	"custom-arc":      func(f *Factory) *Object { o, _ := f.CustomArc(200, 200, 80, 300, 300); return o },
	"text":            (*Factory).Text,
	"editable-text":   (*Factory).EditableText,
	"textbox":         (*Factory).Textbox,
	"padded-text":     (*Factory).DefaultPaddedText,
	"gradient-rect":   (*Factory).GradientRect,
	"gradient-circle": (*Factory).GradientCircle,
}

// Create builds the palette entry called name.
func (f *Factory) Create(name string) (*Object, error) {
	fn, ok := paletteNames[name]
	if !ok {
		return nil, fmt.Errorf("unknown palette entry %q: %w", name, ErrInvalidObject)
	}
	return fn(f), nil
}

// PaletteNames lists the entries accepted by Create.
func PaletteNames() []string {
	out := make([]string, 0, len(paletteNames))
	for k := range paletteNames {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
