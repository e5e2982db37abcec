/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
	rast "golang.org/x/image/vector"

	"gosceneeditor/internal/scene"
	"gosceneeditor/internal/textlayout"
	"gosceneeditor/internal/vector"
)

// Render rasterizes doc into a new RGBA image at opt.Scale.
func Render(doc scene.Document, opt Options) *image.RGBA {
	cw, ch := canvasSize(doc)
	sc := opt.scale()
	pw := int(math.Ceil(cw * sc))
	ph := int(math.Ceil(ch * sc))
	img := image.NewRGBA(image.Rect(0, 0, pw, ph))
	if bg, ok := opt.background(doc); ok && bg.A > 0 {
		draw.Draw(img, img.Bounds(), image.NewUniform(bg.RGBA()), image.Point{}, draw.Src)
	}
	s := &rasterSurface{dst: img, dev: vector.Scale(sc, sc), provider: opt.provider()}
	scene.RenderAll(s, doc.Objects)
	return img
}

// PNG writes the rasterized document as PNG.
func PNG(w io.Writer, doc scene.Document, opt Options) error {
	return png.Encode(w, Render(doc, opt))
}

type rasterSurface struct {
	dst      *image.RGBA
	dev      vector.Affine2D
	provider textlayout.Provider
}

func (s *rasterSurface) DrawPath(p vector.Path, m vector.Affine2D, paint scene.Paint) {
	if p.Empty() {
		return
	}
	full := s.dev.Mul(m)
	dp := p.Transform(full)
	b := s.dst.Bounds()

	if paint.HasFill {
		z := rast.NewRasterizer(b.Dx(), b.Dy())
		addPath(z, dp)
		var src image.Image = image.NewUniform(withOpacity(paint.Fill, paint.Opacity))
		if g := paint.Gradient; g != nil && len(g.Stops) > 0 {
			src = newGradientImage(g, full.Invert(), paint.Opacity)
		}
		z.Draw(s.dst, b, src, image.Point{})
	}
	if paint.HasStroke {
		sw := paint.StrokeWidth * strokeScale(full)
		if sw <= 0 {
			return
		}
		z := rast.NewRasterizer(b.Dx(), b.Dy())
		for _, poly := range dp.Flatten(16) {
			strokePolyline(z, poly, sw/2)
		}
		z.Draw(s.dst, b, image.NewUniform(withOpacity(paint.Stroke, paint.Opacity)), image.Point{})
	}
}

// DrawText draws each laid-out line at its transformed baseline. Rotation is
// not applied to glyphs.
func (s *rasterSurface) DrawText(t scene.TextRun, m vector.Affine2D, paint scene.Paint) {
	full := s.dev.Mul(m)
	sc := strokeScale(full)
	box := layoutLines(s.provider, t)
	spec := textlayout.FontSpec{Family: t.FontFamily, SizePx: t.FontSize * sc}
	face, _ := s.provider.Resolve(spec)
	col := vector.Black
	if paint.HasFill && paint.Gradient == nil {
		col = paint.Fill
	}
	d := &font.Drawer{Dst: s.dst, Src: image.NewUniform(withOpacity(col, paint.Opacity)), Face: face}
	step := lineStep(t)
	y := box.Metrics.Ascent
	for _, ln := range box.Lines {
		at := full.Apply(vector.Pt{X: alignOffset(t.Align, t.Width, ln.Width), Y: y})
		d.Dot = fixed.P(int(math.Round(at.X)), int(math.Round(at.Y)))
		d.DrawString(ln.Text)
		y += step
	}
}

func (s *rasterSurface) DrawImage(img image.Image, _ string, w, h float64, m vector.Affine2D, opacity float64) {
	if img == nil {
		return
	}
	ib := img.Bounds()
	if ib.Dx() == 0 || ib.Dy() == 0 {
		return
	}
	full := s.dev.Mul(m).Mul(vector.Scale(w/float64(ib.Dx()), h/float64(ib.Dy()))).Mul(vector.Translate(-float64(ib.Min.X), -float64(ib.Min.Y)))
	aff := f64.Aff3{full.A, full.C, full.E, full.B, full.D, full.F}
	var opts *xdraw.Options
	if opacity < 1 {
		opts = &xdraw.Options{SrcMask: image.NewUniform(color.Alpha{A: uint8(math.Round(255 * math.Max(0, opacity)))})}
	}
	xdraw.BiLinear.Transform(s.dst, aff, img, ib, xdraw.Over, opts)
}

func addPath(z *rast.Rasterizer, p vector.Path) {
	open := false
	for _, c := range p.Cmds {
		d := c.Data
		switch c.Op {
		case vector.MoveTo:
			if open {
				z.ClosePath()
			}
			z.MoveTo(float32(d[0]), float32(d[1]))
			open = true
		case vector.LineTo:
			z.LineTo(float32(d[0]), float32(d[1]))
		case vector.QuadTo:
			z.QuadTo(float32(d[0]), float32(d[1]), float32(d[2]), float32(d[3]))
		case vector.CubicTo:
			z.CubeTo(float32(d[0]), float32(d[1]), float32(d[2]), float32(d[3]), float32(d[4]), float32(d[5]))
		case vector.Close:
			z.ClosePath()
			open = false
		}
	}
	if open {
		z.ClosePath()
	}
}

// strokePolyline covers every segment with a quad and every vertex with an
// octagon. All pieces share one winding so overlaps stay opaque.
func strokePolyline(z *rast.Rasterizer, pts []vector.Pt, hw float64) {
	for i := 0; i+1 < len(pts); i++ {
		a, b := pts[i], pts[i+1]
		dx, dy := b.X-a.X, b.Y-a.Y
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*hw, dx/l*hw
		z.MoveTo(float32(a.X+nx), float32(a.Y+ny))
		z.LineTo(float32(b.X+nx), float32(b.Y+ny))
		z.LineTo(float32(b.X-nx), float32(b.Y-ny))
		z.LineTo(float32(a.X-nx), float32(a.Y-ny))
		z.ClosePath()
	}
	if len(pts) < 3 {
		return
	}
	for _, p := range pts[1 : len(pts)-1] {
		for k := 0; k < 8; k++ {
			ang := float64(k) * math.Pi / 4
			x, y := float32(p.X+hw*math.Cos(ang)), float32(p.Y+hw*math.Sin(ang))
			if k == 0 {
				z.MoveTo(x, y)
			} else {
				z.LineTo(x, y)
			}
		}
		z.ClosePath()
	}
}

func withOpacity(c vector.Color, o float64) color.NRGBA {
	c = c.WithOpacity(o)
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// gradientImage evaluates a gradient per device pixel through the inverse
// object matrix.
type gradientImage struct {
	g       *scene.Gradient
	inv     vector.Affine2D
	stops   []vector.Color
	opacity float64
}

func newGradientImage(g *scene.Gradient, inv vector.Affine2D, opacity float64) *gradientImage {
	gi := &gradientImage{g: g, inv: inv, opacity: opacity}
	for _, st := range g.Stops {
		c, _ := vector.ParseColor(st.Color)
		gi.stops = append(gi.stops, c)
	}
	return gi
}

func (gi *gradientImage) ColorModel() color.Model { return color.NRGBAModel }

func (gi *gradientImage) Bounds() image.Rectangle {
	return image.Rect(-1<<20, -1<<20, 1<<20, 1<<20)
}

func (gi *gradientImage) At(x, y int) color.Color {
	p := gi.inv.Apply(vector.Pt{X: float64(x) + 0.5, Y: float64(y) + 0.5})
	g := gi.g
	var t float64
	if g.Type == "radial" {
		d := math.Hypot(p.X-g.X2, p.Y-g.Y2)
		if span := g.R2 - g.R1; span != 0 {
			t = (d - g.R1) / span
		}
	} else {
		dx, dy := g.X2-g.X1, g.Y2-g.Y1
		if l2 := dx*dx + dy*dy; l2 > 0 {
			t = ((p.X-g.X1)*dx + (p.Y-g.Y1)*dy) / l2
		}
	}
	return withOpacity(gi.colorAt(math.Max(0, math.Min(1, t))), gi.opacity)
}

func (gi *gradientImage) colorAt(t float64) vector.Color {
	st := gi.g.Stops
	if t <= st[0].Offset {
		return gi.stops[0]
	}
	for i := 1; i < len(st); i++ {
		if t <= st[i].Offset {
			span := st[i].Offset - st[i-1].Offset
			if span <= 0 {
				return gi.stops[i]
			}
			return vector.Lerp(gi.stops[i-1], gi.stops[i], (t-st[i-1].Offset)/span)
		}
	}
	return gi.stops[len(gi.stops)-1]
}
