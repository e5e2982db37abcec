/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Path commands and shape builders.

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

type PathOp uint8

const (
	MoveTo PathOp = iota
	LineTo
	QuadTo  // quadratic bezier (cx, cy, x, y)
	CubicTo // cubic bezier (cx1, cy1, cx2, cy2, x, y)
	Close
)

type PathCmd struct {
	Op   PathOp
	Data [6]float64 // enough for cubic; unused slots are zero
}

type Path struct{ Cmds []PathCmd }

func (p *Path) MoveTo(x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: MoveTo, Data: [6]float64{x, y}})
}
func (p *Path) LineTo(x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: LineTo, Data: [6]float64{x, y}})
}
func (p *Path) QuadTo(cx, cy, x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: QuadTo, Data: [6]float64{cx, cy, x, y}})
}
func (p *Path) CubicTo(cx1, cy1, cx2, cy2, x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: CubicTo, Data: [6]float64{cx1, cy1, cx2, cy2, x, y}})
}
func (p *Path) Close() { p.Cmds = append(p.Cmds, PathCmd{Op: Close}) }

// Empty reports whether the path has no drawing commands.
func (p Path) Empty() bool { return len(p.Cmds) == 0 }

// Transform returns a copy of p with every point mapped through m.
func (p Path) Transform(m Affine2D) Path {
	out := Path{Cmds: make([]PathCmd, len(p.Cmds))}
	for i, c := range p.Cmds {
		nc := PathCmd{Op: c.Op}
		n := 0
		switch c.Op {
		case MoveTo, LineTo:
			n = 1
		case QuadTo:
			n = 2
		case CubicTo:
			n = 3
		}
		for k := 0; k < n; k++ {
			q := m.Apply(Pt{c.Data[2*k], c.Data[2*k+1]})
			nc.Data[2*k], nc.Data[2*k+1] = q.X, q.Y
		}
		out.Cmds[i] = nc
	}
	return out
}

// Bounds returns an axis-aligned bounding box of the path using a simple
// approximation by considering control points.
func (p Path) Bounds() Rect {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	add := func(x, y float64) {
		minX = math.Min(minX, x)
		minY = math.Min(minY, y)
		maxX = math.Max(maxX, x)
		maxY = math.Max(maxY, y)
	}
	for _, c := range p.Cmds {
		switch c.Op {
		case MoveTo, LineTo:
			add(c.Data[0], c.Data[1])
		case QuadTo:
			add(c.Data[0], c.Data[1])
			add(c.Data[2], c.Data[3])
		case CubicTo:
			add(c.Data[0], c.Data[1])
			add(c.Data[2], c.Data[3])
			add(c.Data[4], c.Data[5])
		}
	}
	if minX > maxX || minY > maxY {
		return Rect{}
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Flatten converts curves to line segments and returns one polyline per subpath.
func (p Path) Flatten(steps int) [][]Pt {
	if steps <= 0 {
		steps = 16
	}
	var out [][]Pt
	var cur []Pt
	var at, start Pt
	flush := func() {
		if len(cur) > 0 {
			out = append(out, cur)
		}
		cur = nil
	}
	for _, c := range p.Cmds {
		switch c.Op {
		case MoveTo:
			flush()
			at = Pt{c.Data[0], c.Data[1]}
			start = at
			cur = []Pt{at}
		case LineTo:
			if cur == nil {
				cur = []Pt{at}
			}
			at = Pt{c.Data[0], c.Data[1]}
			cur = append(cur, at)
		case QuadTo:
			if cur == nil {
				cur = []Pt{at}
			}
			c1 := Pt{c.Data[0], c.Data[1]}
			end := Pt{c.Data[2], c.Data[3]}
			for i := 1; i <= steps; i++ {
				t := float64(i) / float64(steps)
				u := 1 - t
				cur = append(cur, Pt{
					X: u*u*at.X + 2*u*t*c1.X + t*t*end.X,
					Y: u*u*at.Y + 2*u*t*c1.Y + t*t*end.Y,
				})
			}
			at = end
		case CubicTo:
			if cur == nil {
				cur = []Pt{at}
			}
			c1 := Pt{c.Data[0], c.Data[1]}
			c2 := Pt{c.Data[2], c.Data[3]}
			end := Pt{c.Data[4], c.Data[5]}
			for i := 1; i <= steps; i++ {
				t := float64(i) / float64(steps)
				u := 1 - t
				cur = append(cur, Pt{
					X: u*u*u*at.X + 3*u*u*t*c1.X + 3*u*t*t*c2.X + t*t*t*end.X,
					Y: u*u*u*at.Y + 3*u*u*t*c1.Y + 3*u*t*t*c2.Y + t*t*t*end.Y,
				})
			}
			at = end
		case Close:
			if cur != nil {
				cur = append(cur, start)
			}
			at = start
			flush()
		}
	}
	flush()
	return out
}

// kappa is the cubic control distance for a quarter circle.
const kappa = 0.5522847498

// RoundedRectPath builds a rectangle outline with corner radius rad clamped to half the shorter side.
func RoundedRectPath(r Rect, rad float64) Path {
	rad = ClampRadius(rad, r.W, r.H)
	var p Path
	if rad <= 0 {
		p.MoveTo(r.X, r.Y)
		p.LineTo(r.X+r.W, r.Y)
		p.LineTo(r.X+r.W, r.Y+r.H)
		p.LineTo(r.X, r.Y+r.H)
		p.Close()
		return p
	}
	k := rad * kappa
	x0, y0, x1, y1 := r.X, r.Y, r.X+r.W, r.Y+r.H
	p.MoveTo(x0+rad, y0)
	p.LineTo(x1-rad, y0)
	p.CubicTo(x1-rad+k, y0, x1, y0+rad-k, x1, y0+rad)
	p.LineTo(x1, y1-rad)
	p.CubicTo(x1, y1-rad+k, x1-rad+k, y1, x1-rad, y1)
	p.LineTo(x0+rad, y1)
	p.CubicTo(x0+rad-k, y1, x0, y1-rad+k, x0, y1-rad)
	p.LineTo(x0, y0+rad)
	p.CubicTo(x0, y0+rad-k, x0+rad-k, y0, x0+rad, y0)
	p.Close()
	return p
}

// ClampRadius limits a corner radius to half the shorter side of a w×h box.
func ClampRadius(rad, w, h float64) float64 {
	if rad < 0 {
		return 0
	}
	lim := math.Min(w, h) / 2
	if lim < 0 {
		lim = 0
	}
	return math.Min(rad, lim)
}

// EllipsePath builds an ellipse inscribed in r.
func EllipsePath(r Rect) Path {
	cx, cy := r.X+r.W/2, r.Y+r.H/2
	rx, ry := r.W/2, r.H/2
	kx, ky := rx*kappa, ry*kappa
	var p Path
	p.MoveTo(cx+rx, cy)
	p.CubicTo(cx+rx, cy+ky, cx+kx, cy+ry, cx, cy+ry)
	p.CubicTo(cx-kx, cy+ry, cx-rx, cy+ky, cx-rx, cy)
	p.CubicTo(cx-rx, cy-ky, cx-kx, cy-ry, cx, cy-ry)
	p.CubicTo(cx+kx, cy-ry, cx+rx, cy-ky, cx+rx, cy)
	p.Close()
	return p
}

// PolygonPath builds a closed polygon through pts.
func PolygonPath(pts []Pt) Path {
	var p Path
	for i, q := range pts {
		if i == 0 {
			p.MoveTo(q.X, q.Y)
			continue
		}
		p.LineTo(q.X, q.Y)
	}
	if len(pts) > 0 {
		p.Close()
	}
	return p
}

// ParsePathData parses SVG path data (M L H V C S Q T A Z, absolute and relative).
// Arcs are converted to cubic segments.
func ParsePathData(d string) (Path, error) {
	toks, err := tokenizePath(d)
	if err != nil {
		return Path{}, err
	}
	var p Path
	var cur, start, lastCtl Pt
	var lastOp byte
	i := 0
	num := func() (float64, error) {
		if i >= len(toks) || toks[i].cmd != 0 {
			return 0, fmt.Errorf("path data: expected number at token %d", i)
		}
		v := toks[i].num
		i++
		return v, nil
	}
	nums := func(n int) ([]float64, error) {
		out := make([]float64, n)
		for k := range out {
			v, err := num()
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	}
	var op byte
	for i < len(toks) {
		if toks[i].cmd != 0 {
			op = toks[i].cmd
			i++
		} else if op == 0 {
			return Path{}, fmt.Errorf("path data: missing command")
		}
		rel := unicode.IsLower(rune(op))
		base := Pt{}
		if rel {
			base = cur
		}
		switch unicode.ToUpper(rune(op)) {
		case 'M':
			v, err := nums(2)
			if err != nil {
				return Path{}, err
			}
			cur = Pt{base.X + v[0], base.Y + v[1]}
			start = cur
			p.MoveTo(cur.X, cur.Y)
			// subsequent pairs are implicit lineto
			if rel {
				op = 'l'
			} else {
				op = 'L'
			}
		case 'L':
			v, err := nums(2)
			if err != nil {
				return Path{}, err
			}
			cur = Pt{base.X + v[0], base.Y + v[1]}
			p.LineTo(cur.X, cur.Y)
		case 'H':
			v, err := num()
			if err != nil {
				return Path{}, err
			}
			cur = Pt{base.X + v, cur.Y}
			p.LineTo(cur.X, cur.Y)
		case 'V':
			v, err := num()
			if err != nil {
				return Path{}, err
			}
			cur = Pt{cur.X, base.Y + v}
			p.LineTo(cur.X, cur.Y)
		case 'C':
			v, err := nums(6)
			if err != nil {
				return Path{}, err
			}
			c2 := Pt{base.X + v[2], base.Y + v[3]}
			end := Pt{base.X + v[4], base.Y + v[5]}
			p.CubicTo(base.X+v[0], base.Y+v[1], c2.X, c2.Y, end.X, end.Y)
			lastCtl, cur = c2, end
		case 'S':
			v, err := nums(4)
			if err != nil {
				return Path{}, err
			}
			c1 := cur
			if lastOp == 'C' || lastOp == 'S' {
				c1 = Pt{2*cur.X - lastCtl.X, 2*cur.Y - lastCtl.Y}
			}
			c2 := Pt{base.X + v[0], base.Y + v[1]}
			end := Pt{base.X + v[2], base.Y + v[3]}
			p.CubicTo(c1.X, c1.Y, c2.X, c2.Y, end.X, end.Y)
			lastCtl, cur = c2, end
		case 'Q':
			v, err := nums(4)
			if err != nil {
				return Path{}, err
			}
			c := Pt{base.X + v[0], base.Y + v[1]}
			end := Pt{base.X + v[2], base.Y + v[3]}
			p.QuadTo(c.X, c.Y, end.X, end.Y)
			lastCtl, cur = c, end
		case 'T':
			v, err := nums(2)
			if err != nil {
				return Path{}, err
			}
			c := cur
			if lastOp == 'Q' || lastOp == 'T' {
				c = Pt{2*cur.X - lastCtl.X, 2*cur.Y - lastCtl.Y}
			}
			end := Pt{base.X + v[0], base.Y + v[1]}
			p.QuadTo(c.X, c.Y, end.X, end.Y)
			lastCtl, cur = c, end
		case 'A':
			v, err := nums(7)
			if err != nil {
				return Path{}, err
			}
			end := Pt{base.X + v[5], base.Y + v[6]}
			arcTo(&p, cur, v[0], v[1], v[2], v[3] != 0, v[4] != 0, end)
			cur = end
		case 'Z':
			p.Close()
			cur = start
		default:
			return Path{}, fmt.Errorf("path data: unsupported command %q", op)
		}
		lastOp = byte(unicode.ToUpper(rune(op)))
	}
	return p, nil
}

type pathTok struct {
	cmd byte
	num float64
}

func tokenizePath(d string) ([]pathTok, error) {
	var out []pathTok
	s := strings.TrimSpace(d)
	for len(s) > 0 {
		c := s[0]
		switch {
		case c == ' ' || c == ',' || c == '\t' || c == '\n' || c == '\r':
			s = s[1:]
		case strings.IndexByte("MmLlHhVvCcSsQqTtAaZz", c) >= 0:
			out = append(out, pathTok{cmd: c})
			s = s[1:]
		default:
			n := numberPrefix(s)
			if n == 0 {
				return nil, fmt.Errorf("path data: unexpected %q", c)
			}
			v, err := strconv.ParseFloat(s[:n], 64)
			if err != nil {
				return nil, fmt.Errorf("path data: %w", err)
			}
			out = append(out, pathTok{num: v})
			s = s[n:]
		}
	}
	return out, nil
}

func numberPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	dot, exp, digits := false, false, false
	for i < len(s) {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits = true
			i++
		case c == '.' && !dot && !exp:
			dot = true
			i++
		case (c == 'e' || c == 'E') && digits && !exp:
			exp = true
			i++
			if i < len(s) && (s[i] == '-' || s[i] == '+') {
				i++
			}
		default:
			if !digits {
				return 0
			}
			return i
		}
	}
	if !digits {
		return 0
	}
	return i
}

// arcTo appends an elliptical arc from p0 to p1 as cubic segments (SVG endpoint parameterization).
func arcTo(p *Path, p0 Pt, rx, ry, phiDeg float64, large, sweep bool, p1 Pt) {
	if p0 == p1 {
		return
	}
	rx, ry = math.Abs(rx), math.Abs(ry)
	if rx == 0 || ry == 0 {
		p.LineTo(p1.X, p1.Y)
		return
	}
	phi := phiDeg * math.Pi / 180
	cosP, sinP := math.Cos(phi), math.Sin(phi)
	dx, dy := (p0.X-p1.X)/2, (p0.Y-p1.Y)/2
	x1p := cosP*dx + sinP*dy
	y1p := -sinP*dx + cosP*dy
	lambda := (x1p*x1p)/(rx*rx) + (y1p*y1p)/(ry*ry)
	if lambda > 1 {
		s := math.Sqrt(lambda)
		rx *= s
		ry *= s
	}
	num := rx*rx*ry*ry - rx*rx*y1p*y1p - ry*ry*x1p*x1p
	den := rx*rx*y1p*y1p + ry*ry*x1p*x1p
	coef := 0.0
	if den != 0 && num > 0 {
		coef = math.Sqrt(num / den)
	}
	if large == sweep {
		coef = -coef
	}
	cxp := coef * rx * y1p / ry
	cyp := -coef * ry * x1p / rx
	cx := cosP*cxp - sinP*cyp + (p0.X+p1.X)/2
	cy := sinP*cxp + cosP*cyp + (p0.Y+p1.Y)/2

	angle := func(ux, uy, vx, vy float64) float64 {
		return math.Atan2(ux*vy-uy*vx, ux*vx+uy*vy)
	}
	ux, uy := (x1p-cxp)/rx, (y1p-cyp)/ry
	vx, vy := (-x1p-cxp)/rx, (-y1p-cyp)/ry
	theta := angle(1, 0, ux, uy)
	delta := angle(ux, uy, vx, vy)
	if !sweep && delta > 0 {
		delta -= 2 * math.Pi
	} else if sweep && delta < 0 {
		delta += 2 * math.Pi
	}

	segs := int(math.Ceil(math.Abs(delta) / (math.Pi / 2)))
	if segs < 1 {
		segs = 1
	}
	step := delta / float64(segs)
	t := 4.0 / 3.0 * math.Tan(step/4)
	pointAt := func(a float64) (Pt, Pt) {
		ca, sa := math.Cos(a), math.Sin(a)
		pos := Pt{
			X: cx + rx*ca*cosP - ry*sa*sinP,
			Y: cy + rx*ca*sinP + ry*sa*cosP,
		}
		der := Pt{
			X: -rx*sa*cosP - ry*ca*sinP,
			Y: -rx*sa*sinP + ry*ca*cosP,
		}
		return pos, der
	}
	a := theta
	for k := 0; k < segs; k++ {
		s0, d0 := pointAt(a)
		e, d1 := pointAt(a + step)
		if k == segs-1 {
			e = p1
		}
		p.CubicTo(s0.X+t*d0.X, s0.Y+t*d0.Y, e.X-t*d1.X, e.Y-t*d1.Y, e.X, e.Y)
		a += step
	}
}

// PointInPolygon reports whether pt lies inside the closed polygon (even-odd rule).
func PointInPolygon(pt Pt, poly []Pt) bool {
	n := len(poly)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		pi, pj := poly[i], poly[j]
		if (pi.Y > pt.Y) != (pj.Y > pt.Y) &&
			pt.X < (pj.X-pi.X)*(pt.Y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
		j = i
	}
	return inside
}

// DistToSegment returns the distance from p to the segment ab.
func DistToSegment(p, a, b Pt) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}
