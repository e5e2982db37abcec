/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import "gosceneeditor/internal/vector"

// Size returns the local box size. Circles derive it from Radius.
func (o *Object) Size() (w, h float64) {
	if o.Kind == KindCircle {
		return 2 * o.Radius, 2 * o.Radius
	}
	return o.Width, o.Height
}

// Origin returns the resolved origin point inside the local box.
func (o *Object) Origin() vector.Pt {
	w, h := o.Size()
	return vector.Pt{X: OriginFraction(o.OriginX) * w, Y: OriginFraction(o.OriginY) * h}
}

// Matrix maps the local box into the parent frame:
// T(left,top) · R(angle) · S(scaleX,scaleY) · T(-origin).
func (o *Object) Matrix() vector.Affine2D {
	org := o.Origin()
	return vector.Translate(o.Left, o.Top).
		Mul(vector.RotateDeg(o.Angle)).
		Mul(vector.Scale(o.ScaleX, o.ScaleY)).
		Mul(vector.Translate(-org.X, -org.Y))
}

// LocalBox is the box the object occupies in its own coordinates. Padded
// text grows by its padding on every side.
func (o *Object) LocalBox() vector.Rect {
	w, h := o.Size()
	r := vector.R(0, 0, w, h)
	if o.Kind == KindPaddedText && o.Padded != nil {
		r = r.Inset(-o.Padded.PaddingX, -o.Padded.PaddingY)
	}
	return r
}

// Bounds returns the axis-aligned bounding rect in the parent frame
// (scene space for top-level objects). Stroke width is not included.
func (o *Object) Bounds() vector.Rect { return o.BoundsUnder(vector.Identity) }

// BoundsUnder returns the bounds after applying parent to the object's matrix.
// Groups report the union of their children.
func (o *Object) BoundsUnder(parent vector.Affine2D) vector.Rect {
	m := parent.Mul(o.Matrix())
	if o.Kind == KindGroup && len(o.Children) > 0 {
		rs := make([]vector.Rect, 0, len(o.Children))
		for _, ch := range o.Children {
			rs = append(rs, ch.BoundsUnder(m))
		}
		u, _ := vector.UnionAll(rs)
		return u
	}
	return m.TransformRect(o.LocalBox())
}

// ToLocal maps a parent-frame point into the object's local box.
func (o *Object) ToLocal(p vector.Pt) vector.Pt { return o.Matrix().Invert().Apply(p) }

// Hit reports whether the parent-frame point p falls inside the object's
// transformed box. Objects with Evented=false never hit.
func (o *Object) Hit(p vector.Pt) bool {
	if o == nil || !o.Evented {
		return false
	}
	return o.LocalBox().Contains(o.ToLocal(p))
}

// Corner returns a corner of the transformed box. fx, fy are fractions of the
// local box in [0,1] (1,0 is the top-right corner).
func (o *Object) Corner(fx, fy float64) vector.Pt {
	b := o.LocalBox()
	return o.Matrix().Apply(vector.Pt{X: b.X + fx*b.W, Y: b.Y + fy*b.H})
}
