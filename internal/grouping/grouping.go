/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package grouping converts a multi-selection into a group object and back,
// keeping every member's absolute placement.
package grouping

import (
	"fmt"
	"log/slog"
	"sort"

	applog "gosceneeditor/internal/log"
	"gosceneeditor/internal/scene"
	"gosceneeditor/internal/vector"
)

// Controller groups and ungroups store members.
type Controller struct {
	log *slog.Logger
}

func New() *Controller { return &Controller{log: applog.WithComponent("grouping")} }

// Group replaces the members of sel with one group anchored at the top-left
// of their union bounds, then selects it. Members become children in their
// z-order with positions relative to the group origin.
func (c *Controller) Group(s *scene.Store, sel []*scene.Object) (*scene.Object, error) {
	if len(sel) <= 1 {
		return nil, fmt.Errorf("group %d objects: %w", len(sel), scene.ErrInsufficientSelection)
	}
	members := make([]*scene.Object, 0, len(sel))
	seen := map[*scene.Object]bool{}
	for _, o := range sel {
		if seen[o] {
			continue
		}
		if !s.Contains(o) {
			return nil, fmt.Errorf("group member: %w", scene.ErrNotFound)
		}
		seen[o] = true
		members = append(members, o)
	}
	if len(members) <= 1 {
		return nil, fmt.Errorf("group %d distinct objects: %w", len(members), scene.ErrInsufficientSelection)
	}
	sort.SliceStable(members, func(i, j int) bool { return s.IndexOf(members[i]) < s.IndexOf(members[j]) })

	rs := make([]vector.Rect, len(members))
	for i, o := range members {
		rs[i] = o.Bounds()
	}
	u, _ := vector.UnionAll(rs)

	g := scene.NewGroup(u.X, u.Y, u.W, u.H)
	g.Controls = members[len(members)-1].Controls
	for _, o := range members {
		ch := o.CloneKeepID()
		ch.SetPosition(vector.ToLocal(o.Position(), u.Min()))
		g.Children = append(g.Children, ch)
	}

	err := s.Batch(func() error {
		for _, o := range members {
			if err := s.Remove(o); err != nil {
				return err
			}
		}
		if err := s.Add(g); err != nil {
			return err
		}
		return s.SetSelection(g)
	})
	if err != nil {
		return nil, fmt.Errorf("group: %w", err)
	}
	c.log.Debug("grouped", "count", len(members), "id", g.ID)
	return g, nil
}

// Ungroup dissolves g. Children are placed back in the scene frame at g's
// z-index in their child order and selected together.
func (c *Controller) Ungroup(s *scene.Store, g *scene.Object) ([]*scene.Object, error) {
	if !g.IsGroup() {
		return nil, fmt.Errorf("ungroup: %w", scene.ErrNotAGroup)
	}
	idx := s.IndexOf(g)
	if idx < 0 {
		return nil, fmt.Errorf("ungroup %s: %w", g.ID, scene.ErrNotFound)
	}
	m := g.Matrix()
	out := make([]*scene.Object, 0, len(g.Children))
	for _, ch := range g.Children {
		o := ch.CloneKeepID()
		o.SetPosition(m.Apply(ch.Position()))
		o.Angle = ch.Angle + g.Angle
		o.ScaleX = ch.ScaleX * g.ScaleX
		o.ScaleY = ch.ScaleY * g.ScaleY
		out = append(out, o)
	}

	err := s.Batch(func() error {
		if err := s.Remove(g); err != nil {
			return err
		}
		if len(out) == 0 {
			return nil
		}
		if err := s.InsertAt(idx, out...); err != nil {
			return err
		}
		return s.SetSelection(out...)
	})
	if err != nil {
		return nil, fmt.Errorf("ungroup: %w", err)
	}
	c.log.Debug("ungrouped", "count", len(out), "id", g.ID)
	return out, nil
}
