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
	"math"

	"gosceneeditor/internal/textlayout"
	"gosceneeditor/internal/vector"
)

// Paint describes how a path is filled and stroked. StrokeWidth is in the
// path's local units; surfaces scale it with the matrix.
type Paint struct {
	Fill        vector.Color
	HasFill     bool
	Gradient    *Gradient
	Stroke      vector.Color
	StrokeWidth float64
	HasStroke   bool
	Opacity     float64
}

// TextRun is a text box to draw at the local origin, wrapped to Width.
type TextRun struct {
	Text       string
	FontSize   float64
	FontFamily string
	Align      string
	Width      float64
	LineHeight float64
}

// Surface is a render target. Exporters and the desktop canvas implement it.
type Surface interface {
	DrawPath(p vector.Path, m vector.Affine2D, paint Paint)
	DrawText(t TextRun, m vector.Affine2D, paint Paint)
	DrawImage(img image.Image, src string, w, h float64, m vector.Affine2D, opacity float64)
}

// RenderAll draws objects in z-order.
func RenderAll(s Surface, objects []*Object) {
	for _, o := range objects {
		o.Render(s)
	}
}

// Render draws o and its children onto s.
func (o *Object) Render(s Surface) { o.renderUnder(s, vector.Identity, 1) }

func (o *Object) renderUnder(s Surface, parent vector.Affine2D, parentOpacity float64) {
	m := parent.Mul(o.Matrix())
	opacity := parentOpacity * o.Opacity
	paint := o.paint(m, opacity)
	w, h := o.Size()
	box := vector.R(0, 0, w, h)

	switch o.Kind {
	case KindRect:
		s.DrawPath(vector.RoundedRectPath(box, o.Rx), m, paint)
	case KindCircle:
		s.DrawPath(vector.EllipsePath(box), m, paint)
	case KindTriangle:
		s.DrawPath(vector.PolygonPath([]vector.Pt{{X: w / 2, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}}), m, paint)
	case KindLine:
		if len(o.Points) >= 2 {
			var p vector.Path
			p.MoveTo(o.Points[0].X, o.Points[0].Y)
			p.LineTo(o.Points[1].X, o.Points[1].Y)
			paint.HasFill = false
			s.DrawPath(p, m, paint)
		}
	case KindPolygon:
		s.DrawPath(vector.PolygonPath(o.Points), m, paint)
	case KindPath:
		if p, b, err := o.LocalPath(); err == nil {
			s.DrawPath(p.Transform(vector.Translate(-b.X, -b.Y)), m, paint)
		}
	case KindImage:
		s.DrawImage(o.Pixels, o.Src, w, h, m, opacity)
	case KindText, KindPaddedText:
		if bg, r, ok := o.BackgroundBox(); ok {
			if c, ok := vector.ParseColor(o.Padded.BackgroundFill); ok {
				s.DrawPath(vector.RoundedRectPath(bg, r), m, Paint{Fill: c, HasFill: true, Opacity: opacity})
			}
		}
		if o.Text != nil {
			s.DrawText(TextRun{
				Text:       o.Text.Text,
				FontSize:   o.Text.FontSize,
				FontFamily: o.Text.FontFamily,
				Align:      o.Text.TextAlign,
				Width:      w,
				LineHeight: o.Text.LineHeight,
			}, m, paint)
		}
	case KindGroup:
		for _, ch := range o.Children {
			ch.renderUnder(s, m, opacity)
		}
	}
}

// LocalPath parses PathData and returns it with its raw bounds.
func (o *Object) LocalPath() (vector.Path, vector.Rect, error) {
	p, err := vector.ParsePathData(o.PathData)
	if err != nil {
		return vector.Path{}, vector.Rect{}, err
	}
	return p, p.Bounds(), nil
}

func (o *Object) paint(m vector.Affine2D, opacity float64) Paint {
	p := Paint{Opacity: opacity, Gradient: o.Gradient}
	if o.Gradient != nil {
		p.HasFill = true
	} else if c, ok := vector.ParseColor(o.Fill); ok && c.A > 0 {
		p.Fill, p.HasFill = c, true
	}
	if c, ok := vector.ParseColor(o.Stroke); ok && o.StrokeWidth > 0 {
		p.Stroke, p.HasStroke = c, true
		p.StrokeWidth = o.StrokeWidth
		if o.StrokeUniform {
			if sc := math.Sqrt(math.Abs(m.A*m.D - m.B*m.C)); sc > 0 {
				p.StrokeWidth /= sc
			}
		}
	}
	return p
}

// FitText sets Height (and Width when unset) of a text object from its
// laid-out lines. Width acts as the wrap width.
func FitText(o *Object, provider textlayout.Provider) {
	if o == nil || o.Text == nil {
		return
	}
	spec := textlayout.FontSpec{Family: o.Text.FontFamily, SizePx: o.Text.FontSize}
	box, err := textlayout.NewWordWrap(provider).Layout(o.Text.Text, spec, o.Width, o.Text.LineHeight)
	if err != nil {
		return
	}
	if o.Width <= 0 {
		o.Width = math.Ceil(box.Width)
	}
	o.Height = box.Height
}
