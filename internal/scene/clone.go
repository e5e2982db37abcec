/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import "gosceneeditor/internal/ids"

// Clone returns a detached deep copy with a fresh ID (children get fresh IDs too).
func (o *Object) Clone() *Object { return o.clone(false) }

// CloneKeepID returns a detached deep copy that keeps every ID. Used when the
// original leaves the scene as the copy enters it.
func (o *Object) CloneKeepID() *Object { return o.clone(true) }

func (o *Object) clone(keepID bool) *Object {
	if o == nil {
		return nil
	}
	c := *o
	if !keepID {
		c.ID = ids.NewObjectID()
	}
	if o.Gradient != nil {
		g := *o.Gradient
		g.Stops = append([]ColorStop(nil), o.Gradient.Stops...)
		c.Gradient = &g
	}
	if o.StashedFill != nil {
		s := *o.StashedFill
		c.StashedFill = &s
	}
	if o.Points != nil {
		c.Points = append(c.Points[:0:0], o.Points...)
	}
	if o.Text != nil {
		t := *o.Text
		c.Text = &t
	}
	if o.Padded != nil {
		p := *o.Padded
		c.Padded = &p
	}
	if o.Children != nil {
		c.Children = make([]*Object, len(o.Children))
		for i, ch := range o.Children {
			c.Children[i] = ch.clone(keepID)
		}
	}
	return &c
}
