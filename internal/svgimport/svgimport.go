/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package svgimport turns the basic shapes of an SVG document into scene
// objects. Supported: rect, circle, ellipse, line, polygon, polyline, path,
// text and nested g with translate/scale/rotate/matrix transforms.
package svgimport

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	applog "gosceneeditor/internal/log"
	"gosceneeditor/internal/scene"
	"gosceneeditor/internal/vector"
)

// Options places the imported result on the canvas.
type Options struct {
	Left, Top float64
	Scale     float64
	Controls  scene.ControlStyle
}

// DefaultOptions drops imports at (20,20) at half size.
func DefaultOptions() Options {
	return Options{Left: 20, Top: 20, Scale: 0.5, Controls: scene.DefaultControlStyle()}
}

// node keeps document order across element types.
type node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []node     `xml:",any"`
}

func (n node) attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func (n node) num(name string) float64 { return parseNum(n.attr(name)) }

// style is the inherited presentation state.
type style struct {
	fill, stroke string
	strokeWidth  float64
	opacity      float64
	fontSize     float64
	fontFamily   string
}

// ImportFile reads path and calls Import.
func ImportFile(path string, opt Options) (*scene.Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Import(f, opt)
}

// Import parses an SVG document. Several elements come back as one group;
// a single element comes back on its own. Either way the result sits at
// (opt.Left, opt.Top) scaled by opt.Scale.
func Import(r io.Reader, opt Options) (*scene.Object, error) {
	var root node
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}
	if root.XMLName.Local != "svg" {
		return nil, fmt.Errorf("root element %q is not svg: %w", root.XMLName.Local, scene.ErrInvalidObject)
	}
	if opt.Scale <= 0 {
		opt.Scale = 1
	}
	im := &importer{controls: opt.Controls, log: applog.WithComponent("svgimport")}
	base := style{fill: "black", opacity: 1, fontSize: 16, strokeWidth: 1}
	im.walk(root.Children, vector.Identity, base)
	if len(im.out) == 0 {
		return nil, fmt.Errorf("svg has no supported elements: %w", scene.ErrInvalidObject)
	}

	if len(im.out) == 1 {
		o := im.out[0]
		o.Left, o.Top = opt.Left, opt.Top
		o.ScaleX *= opt.Scale
		o.ScaleY *= opt.Scale
		return o, nil
	}

	w, h := viewportSize(root)
	var rs []vector.Rect
	for _, o := range im.out {
		rs = append(rs, o.Bounds())
	}
	u, _ := vector.UnionAll(rs)
	if w <= 0 || h <= 0 {
		w, h = math.Max(u.X+u.W, 1), math.Max(u.Y+u.H, 1)
	}
	g := scene.NewGroup(opt.Left, opt.Top, w, h)
	g.ScaleX, g.ScaleY = opt.Scale, opt.Scale
	g.Controls = opt.Controls
	g.Children = im.out
	im.log.Info("svg imported", slog.Int("objects", len(im.out)), slog.Int("skipped", im.skipped))
	return g, nil
}

func viewportSize(root node) (float64, float64) {
	if vb := strings.Fields(strings.ReplaceAll(root.attr("viewBox"), ",", " ")); len(vb) == 4 {
		return parseNum(vb[2]), parseNum(vb[3])
	}
	return root.num("width"), root.num("height")
}

type importer struct {
	controls scene.ControlStyle
	out      []*scene.Object
	skipped  int
	log      *slog.Logger
}

func (im *importer) walk(nodes []node, m vector.Affine2D, parent style) {
	for _, n := range nodes {
		st := inherit(parent, n)
		nm := m.Mul(parseTransform(n.attr("transform")))
		switch n.XMLName.Local {
		case "g", "a":
			im.walk(n.Children, nm, st)
			continue
		case "defs", "title", "desc", "metadata", "style":
			continue
		}
		o, err := im.element(n, st)
		if err != nil {
			im.skipped++
			im.log.Debug("svg element skipped", slog.String("element", n.XMLName.Local), slog.Any("err", err))
			continue
		}
		if o == nil {
			im.skipped++
			continue
		}
		place(o, nm)
		im.out = append(im.out, o)
	}
}

func (im *importer) element(n node, st style) (*scene.Object, error) {
	var o *scene.Object
	switch n.XMLName.Local {
	case "rect":
		o = scene.New(scene.KindRect)
		o.Left, o.Top = n.num("x"), n.num("y")
		o.Width, o.Height = n.num("width"), n.num("height")
		o.Rx = math.Max(n.num("rx"), n.num("ry"))
	case "circle":
		r := n.num("r")
		if r <= 0 {
			return nil, nil
		}
		o = scene.New(scene.KindCircle)
		o.Radius = r
		o.Left, o.Top = n.num("cx")-r, n.num("cy")-r
	case "ellipse":
		rx, ry := n.num("rx"), n.num("ry")
		if rx <= 0 || ry <= 0 {
			return nil, nil
		}
		o = scene.New(scene.KindCircle)
		o.Radius = rx
		o.ScaleY = ry / rx
		o.Left, o.Top = n.num("cx")-rx, n.num("cy")-ry
	case "line":
		o = fromPoints(scene.KindLine, []vector.Pt{{X: n.num("x1"), Y: n.num("y1")}, {X: n.num("x2"), Y: n.num("y2")}})
		st.fill = ""
	case "polygon", "polyline":
		pts := parsePoints(n.attr("points"))
		if len(pts) < 2 {
			return nil, nil
		}
		o = fromPoints(scene.KindPolygon, pts)
		if n.XMLName.Local == "polyline" {
			st.fill = ""
		}
	case "path":
		d := n.attr("d")
		p, err := vector.ParsePathData(d)
		if err != nil {
			return nil, err
		}
		b := p.Bounds()
		o = scene.New(scene.KindPath)
		o.PathData = d
		o.Left, o.Top, o.Width, o.Height = b.X, b.Y, b.W, b.H
	case "text":
		txt := strings.TrimSpace(collectText(n))
		if txt == "" {
			return nil, nil
		}
		o = scene.New(scene.KindText)
		o.Text = &scene.TextPayload{Text: txt, FontSize: st.fontSize, FontFamily: st.fontFamily, TextAlign: "left"}
		o.Width = math.Ceil(float64(len([]rune(txt))) * st.fontSize * 0.6)
		o.Height = st.fontSize * 1.13
		// SVG text is positioned at the baseline
		o.Left, o.Top = n.num("x"), n.num("y")-st.fontSize*0.8
	default:
		return nil, nil
	}
	o.Fill = st.fill
	o.Stroke = st.stroke
	if st.stroke != "" {
		o.StrokeWidth = st.strokeWidth
	}
	o.Opacity = st.opacity
	o.Controls = im.controls
	return o, nil
}

func fromPoints(k scene.Kind, pts []vector.Pt) *scene.Object {
	o := scene.New(k)
	r := vector.PolygonPath(pts).Bounds()
	o.Left, o.Top, o.Width, o.Height = r.X, r.Y, r.W, r.H
	o.Points = make([]vector.Pt, len(pts))
	for i, p := range pts {
		o.Points[i] = vector.ToLocal(p, r.Min())
	}
	return o
}

func collectText(n node) string {
	var b strings.Builder
	b.WriteString(n.Text)
	for _, c := range n.Children {
		if c.XMLName.Local == "tspan" {
			b.WriteString(" ")
			b.WriteString(collectText(c))
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// place folds the accumulated transform m into o. Skew is dropped.
func place(o *scene.Object, m vector.Affine2D) {
	if m == vector.Identity {
		return
	}
	o.SetPosition(m.Apply(o.Position()))
	sx := math.Hypot(m.A, m.B)
	if sx == 0 {
		return
	}
	sy := (m.A*m.D - m.B*m.C) / sx
	o.Angle += math.Atan2(m.B, m.A) * 180 / math.Pi
	o.ScaleX *= sx
	o.ScaleY *= sy
}

func inherit(p style, n node) style {
	st := p
	props := map[string]string{}
	for _, k := range []string{"fill", "stroke", "stroke-width", "opacity", "font-size", "font-family"} {
		if v := n.attr(k); v != "" {
			props[k] = v
		}
	}
	for _, decl := range strings.Split(n.attr("style"), ";") {
		k, v, ok := strings.Cut(decl, ":")
		if ok {
			props[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	for k, v := range props {
		switch k {
		case "fill":
			st.fill = paint(v)
		case "stroke":
			st.stroke = paint(v)
		case "stroke-width":
			st.strokeWidth = parseNum(v)
		case "opacity":
			st.opacity *= parseNum(v)
		case "font-size":
			if f := parseNum(v); f > 0 {
				st.fontSize = f
			}
		case "font-family":
			st.fontFamily = strings.Trim(v, "'\"")
		}
	}
	return st
}

func paint(v string) string {
	v = strings.TrimSpace(v)
	if v == "none" || strings.HasPrefix(v, "url(") {
		return ""
	}
	return v
}

func parseNum(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "px")
	s = strings.TrimSuffix(s, "pt")
	if strings.HasSuffix(s, "%") {
		return 0
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parsePoints(s string) []vector.Pt {
	f := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\n' || r == '\t' || r == '\r' })
	var pts []vector.Pt
	for i := 0; i+1 < len(f); i += 2 {
		pts = append(pts, vector.Pt{X: parseNum(f[i]), Y: parseNum(f[i+1])})
	}
	return pts
}

// parseTransform composes an SVG transform list left to right.
func parseTransform(s string) vector.Affine2D {
	m := vector.Identity
	s = strings.TrimSpace(s)
	for s != "" {
		open := strings.IndexByte(s, '(')
		closeAt := strings.IndexByte(s, ')')
		if open < 0 || closeAt < open {
			break
		}
		name := strings.TrimSpace(strings.Trim(s[:open], ", "))
		var args []float64
		for _, a := range strings.FieldsFunc(s[open+1:closeAt], func(r rune) bool { return r == ',' || r == ' ' }) {
			args = append(args, parseNum(a))
		}
		m = m.Mul(transformOf(name, args))
		s = strings.TrimSpace(s[closeAt+1:])
	}
	return m
}

func transformOf(name string, a []float64) vector.Affine2D {
	arg := func(i int, def float64) float64 {
		if i < len(a) {
			return a[i]
		}
		return def
	}
	switch name {
	case "translate":
		return vector.Translate(arg(0, 0), arg(1, 0))
	case "scale":
		sx := arg(0, 1)
		return vector.Scale(sx, arg(1, sx))
	case "rotate":
		cx, cy := arg(1, 0), arg(2, 0)
		return vector.Translate(cx, cy).Mul(vector.RotateDeg(arg(0, 0))).Mul(vector.Translate(-cx, -cy))
	case "matrix":
		if len(a) == 6 {
			return vector.Affine2D{A: a[0], B: a[1], C: a[2], D: a[3], E: a[4], F: a[5]}
		}
	}
	return vector.Identity
}
