/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	applog "gosceneeditor/internal/log"
	"gosceneeditor/internal/scene"
	"gosceneeditor/internal/textlayout"
	"gosceneeditor/internal/vector"
)

// PDF writes doc as a single-page PDF sized to the canvas.
//
// Coordinates:
// - Units are points and one scene unit is one point.
// - Page origin is top-left, matching the scene.
// Paths are transformed on our side so curves stay vector; text and images
// use gofpdf's rotate transform.
func PDF(w io.Writer, doc scene.Document, opt Options) error {
	cw, ch := canvasSize(doc)
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: cw, Ht: ch},
	})
	pdf.SetTitle("Scene", true)
	pdf.SetAuthor(applog.AppName, false)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Helvetica", "", 12)
	pdf.AddPageFormat("", gofpdf.SizeType{Wd: cw, Ht: ch})

	if bg, ok := opt.background(doc); ok && bg.A > 0 {
		setFillColor(pdf, bg)
		pdf.Rect(0, 0, cw, ch, "F")
	}

	s := &pdfSurface{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), provider: opt.provider()}
	scene.RenderAll(s, doc.Objects)
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

type pdfSurface struct {
	pdf      *gofpdf.Fpdf
	tr       func(string) string
	provider textlayout.Provider
	images   int
}

func (s *pdfSurface) DrawPath(p vector.Path, m vector.Affine2D, paint scene.Paint) {
	if p.Empty() || (!paint.HasFill && !paint.HasStroke) {
		return
	}
	pdf := s.pdf
	dp := p.Transform(m)
	s.alpha(paint.Opacity)
	defer s.alpha(1)

	if g := paint.Gradient; g != nil && len(g.Stops) > 0 {
		s.gradientFill(dp, g, m)
		if !paint.HasStroke {
			return
		}
		paint.HasFill = false
	}

	style := ""
	if paint.HasFill {
		setFillColor(pdf, paint.Fill)
		style += "F"
	}
	if paint.HasStroke {
		setDrawColor(pdf, paint.Stroke)
		pdf.SetLineWidth(paint.StrokeWidth * strokeScale(m))
		style += "D"
	}
	tracePath(pdf, dp)
	pdf.DrawPath(style)
}

// gradientFill clips to the path and paints a two-stop gradient over its
// bounding box. Inner stops are dropped.
func (s *pdfSurface) gradientFill(dp vector.Path, g *scene.Gradient, m vector.Affine2D) {
	pdf := s.pdf
	var pts []gofpdf.PointType
	for _, poly := range dp.Flatten(16) {
		for _, q := range poly {
			pts = append(pts, gofpdf.PointType{X: q.X, Y: q.Y})
		}
	}
	if len(pts) < 3 {
		return
	}
	bb := dp.Bounds()
	if bb.IsEmpty() {
		return
	}
	c1, _ := vector.ParseColor(g.Stops[0].Color)
	c2, _ := vector.ParseColor(g.Stops[len(g.Stops)-1].Color)
	norm := func(p vector.Pt) (float64, float64) {
		q := m.Apply(p)
		// gofpdf gradient coordinates run bottom-up inside the box
		return (q.X - bb.X) / bb.W, 1 - (q.Y-bb.Y)/bb.H
	}
	pdf.ClipPolygon(pts, false)
	if g.Type == "radial" {
		x1, y1 := norm(vector.Pt{X: g.X1, Y: g.Y1})
		x2, y2 := norm(vector.Pt{X: g.X2, Y: g.Y2})
		r := g.R2 * strokeScale(m) / math.Max(bb.W, bb.H)
		pdf.RadialGradient(bb.X, bb.Y, bb.W, bb.H, int(c1.R), int(c1.G), int(c1.B), int(c2.R), int(c2.G), int(c2.B), x1, y1, x2, y2, r)
	} else {
		x1, y1 := norm(vector.Pt{X: g.X1, Y: g.Y1})
		x2, y2 := norm(vector.Pt{X: g.X2, Y: g.Y2})
		pdf.LinearGradient(bb.X, bb.Y, bb.W, bb.H, int(c1.R), int(c1.G), int(c1.B), int(c2.R), int(c2.G), int(c2.B), x1, y1, x2, y2)
	}
	pdf.ClipEnd()
}

func (s *pdfSurface) DrawText(t scene.TextRun, m vector.Affine2D, paint scene.Paint) {
	pdf := s.pdf
	box := layoutLines(s.provider, t)
	o, deg, sx, sy := decompose(m)
	size := t.FontSize
	if size <= 0 {
		size = 12
	}
	col := vector.Black
	if paint.HasFill && paint.Gradient == nil {
		col = paint.Fill
	}
	s.alpha(paint.Opacity)
	defer s.alpha(1)
	pdf.SetTextColor(int(col.R), int(col.G), int(col.B))
	pdf.SetFont("Helvetica", "", size*sy)

	pdf.TransformBegin()
	pdf.TransformRotate(-deg, o.X, o.Y)
	step := lineStep(t)
	y := box.Metrics.Ascent
	for _, ln := range box.Lines {
		pdf.Text(o.X+alignOffset(t.Align, t.Width, ln.Width)*sx, o.Y+y*sy, s.tr(ln.Text))
		y += step
	}
	pdf.TransformEnd()
}

func (s *pdfSurface) DrawImage(img image.Image, _ string, w, h float64, m vector.Affine2D, opacity float64) {
	if img == nil {
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return
	}
	s.images++
	name := "img" + strconv.Itoa(s.images)
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	s.pdf.RegisterImageOptionsReader(name, opts, &buf)
	o, deg, sx, sy := decompose(m)
	s.alpha(opacity)
	defer s.alpha(1)
	s.pdf.TransformBegin()
	s.pdf.TransformRotate(-deg, o.X, o.Y)
	s.pdf.ImageOptions(name, o.X, o.Y, w*sx, h*sy, false, opts, 0, "")
	s.pdf.TransformEnd()
}

func (s *pdfSurface) alpha(a float64) {
	s.pdf.SetAlpha(math.Max(0, math.Min(1, a)), "Normal")
}

// decompose splits m into translation, clockwise rotation in degrees and
// axis scales. Skew is dropped.
func decompose(m vector.Affine2D) (o vector.Pt, deg, sx, sy float64) {
	o = vector.Pt{X: m.E, Y: m.F}
	deg = math.Atan2(m.B, m.A) * 180 / math.Pi
	sx = math.Hypot(m.A, m.B)
	sy = math.Hypot(m.C, m.D)
	return
}

func tracePath(pdf *gofpdf.Fpdf, p vector.Path) {
	for _, c := range p.Cmds {
		d := c.Data
		switch c.Op {
		case vector.MoveTo:
			pdf.MoveTo(d[0], d[1])
		case vector.LineTo:
			pdf.LineTo(d[0], d[1])
		case vector.QuadTo:
			pdf.CurveTo(d[0], d[1], d[2], d[3])
		case vector.CubicTo:
			pdf.CurveBezierCubicTo(d[0], d[1], d[2], d[3], d[4], d[5])
		case vector.Close:
			pdf.ClosePath()
		}
	}
}

func setDrawColor(pdf *gofpdf.Fpdf, c vector.Color) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c vector.Color) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
