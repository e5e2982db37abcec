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
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"strconv"
	"strings"

	"gosceneeditor/internal/scene"
	"gosceneeditor/internal/textlayout"
	"gosceneeditor/internal/vector"
)

// SVG writes doc as a standalone SVG document. Each object keeps its own
// transform as a matrix() so the output stays editable.
func SVG(w io.Writer, doc scene.Document, opt Options) error {
	cw, ch := canvasSize(doc)
	s := &svgSurface{provider: opt.provider()}
	s.wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	s.wf("<svg xmlns=\"http://www.w3.org/2000/svg\" xmlns:xlink=\"http://www.w3.org/1999/xlink\" version=\"1.1\" width=\"%g\" height=\"%g\" viewBox=\"0 0 %g %g\">\n", cw, ch, cw, ch)
	if bg, ok := opt.background(doc); ok && bg.A > 0 {
		s.wf("  <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" fill=\"%s\"/>\n", cw, ch, bg.Hex())
	}
	scene.RenderAll(s, doc.Objects)
	s.wf("</svg>\n")
	if s.err != nil {
		return fmt.Errorf("build svg: %w", s.err)
	}
	_, err := w.Write(s.buf.Bytes())
	return err
}

type svgSurface struct {
	buf      bytes.Buffer
	err      error
	grads    int
	provider textlayout.Provider
}

func (s *svgSurface) wf(format string, args ...any) {
	if s.err != nil {
		return
	}
	_, s.err = fmt.Fprintf(&s.buf, format, args...)
}

func (s *svgSurface) DrawPath(p vector.Path, m vector.Affine2D, paint scene.Paint) {
	if p.Empty() {
		return
	}
	fill := s.fillAttr(paint)
	s.wf("  <path d=\"%s\" transform=\"%s\" fill=\"%s\"%s%s%s/>\n",
		pathData(p), matrixAttr(m), fill, fillOpacity(paint), strokeAttrs(paint), opacityAttr(paint.Opacity))
}

func (s *svgSurface) DrawText(t scene.TextRun, m vector.Affine2D, paint scene.Paint) {
	box := layoutLines(s.provider, t)
	size := t.FontSize
	if size <= 0 {
		size = 12
	}
	family := t.FontFamily
	if family == "" {
		family = "Helvetica, Arial, sans-serif"
	}
	fill := "#000000"
	if paint.HasFill && paint.Gradient == nil {
		fill = paint.Fill.Hex()
	}
	s.wf("  <text transform=\"%s\" font-family=\"%s\" font-size=\"%g\" fill=\"%s\"%s>", matrixAttr(m), escAttr(family), size, fill, opacityAttr(paint.Opacity))
	step := lineStep(t)
	y := box.Metrics.Ascent
	for _, ln := range box.Lines {
		s.wf("<tspan x=\"%g\" y=\"%g\">%s</tspan>", alignOffset(t.Align, t.Width, ln.Width), y, escText(ln.Text))
		y += step
	}
	s.wf("</text>\n")
}

func (s *svgSurface) DrawImage(img image.Image, src string, w, h float64, m vector.Affine2D, opacity float64) {
	href := src
	if img != nil {
		var pb bytes.Buffer
		if err := png.Encode(&pb, img); err == nil {
			href = "data:image/png;base64," + base64.StdEncoding.EncodeToString(pb.Bytes())
		}
	}
	if href == "" {
		return
	}
	s.wf("  <image x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" preserveAspectRatio=\"none\" xlink:href=\"%s\" transform=\"%s\"%s/>\n",
		w, h, escAttr(href), matrixAttr(m), opacityAttr(opacity))
}

// fillAttr returns the fill value, emitting a gradient definition first when needed.
func (s *svgSurface) fillAttr(p scene.Paint) string {
	if !p.HasFill {
		return "none"
	}
	g := p.Gradient
	if g == nil || len(g.Stops) == 0 {
		return p.Fill.Hex()
	}
	s.grads++
	id := "g" + strconv.Itoa(s.grads)
	if g.Type == "radial" {
		s.wf("  <defs><radialGradient id=\"%s\" gradientUnits=\"userSpaceOnUse\" fx=\"%g\" fy=\"%g\" fr=\"%g\" cx=\"%g\" cy=\"%g\" r=\"%g\">", id, g.X1, g.Y1, g.R1, g.X2, g.Y2, g.R2)
		s.stops(g)
		s.wf("</radialGradient></defs>\n")
	} else {
		s.wf("  <defs><linearGradient id=\"%s\" gradientUnits=\"userSpaceOnUse\" x1=\"%g\" y1=\"%g\" x2=\"%g\" y2=\"%g\">", id, g.X1, g.Y1, g.X2, g.Y2)
		s.stops(g)
		s.wf("</linearGradient></defs>\n")
	}
	return "url(#" + id + ")"
}

func (s *svgSurface) stops(g *scene.Gradient) {
	for _, st := range g.Stops {
		c, _ := vector.ParseColor(st.Color)
		s.wf("<stop offset=\"%g\" stop-color=\"%s\"", st.Offset, c.Hex())
		if c.A < 255 {
			s.wf(" stop-opacity=\"%g\"", vector.FloatRound(float64(c.A)/255, 3))
		}
		s.wf("/>")
	}
}

func pathData(p vector.Path) string {
	var b strings.Builder
	for _, c := range p.Cmds {
		d := c.Data
		switch c.Op {
		case vector.MoveTo:
			fmt.Fprintf(&b, "M%g %g ", d[0], d[1])
		case vector.LineTo:
			fmt.Fprintf(&b, "L%g %g ", d[0], d[1])
		case vector.QuadTo:
			fmt.Fprintf(&b, "Q%g %g %g %g ", d[0], d[1], d[2], d[3])
		case vector.CubicTo:
			fmt.Fprintf(&b, "C%g %g %g %g %g %g ", d[0], d[1], d[2], d[3], d[4], d[5])
		case vector.Close:
			b.WriteString("Z ")
		}
	}
	return strings.TrimSpace(b.String())
}

func matrixAttr(m vector.Affine2D) string {
	r := func(v float64) float64 { return vector.FloatRound(v, 6) }
	return fmt.Sprintf("matrix(%g %g %g %g %g %g)", r(m.A), r(m.B), r(m.C), r(m.D), r(m.E), r(m.F))
}

func fillOpacity(p scene.Paint) string {
	if !p.HasFill || p.Gradient != nil || p.Fill.A == 255 {
		return ""
	}
	return fmt.Sprintf(" fill-opacity=\"%g\"", vector.FloatRound(float64(p.Fill.A)/255, 3))
}

func strokeAttrs(p scene.Paint) string {
	if !p.HasStroke {
		return ""
	}
	return fmt.Sprintf(" stroke=\"%s\" stroke-width=\"%g\"", p.Stroke.Hex(), p.StrokeWidth)
}

func opacityAttr(o float64) string {
	if o >= 1 {
		return ""
	}
	return fmt.Sprintf(" opacity=\"%g\"", vector.FloatRound(o, 3))
}

func escAttr(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString("&quot;")
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '\n':
			b.WriteByte(' ')
		case '\r':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func escText(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
