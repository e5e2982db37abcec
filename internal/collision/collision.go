/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package collision highlights a dragged object while its bounds overlap any
// other scene object.
package collision

import (
	"log/slog"

	applog "gosceneeditor/internal/log"
	"gosceneeditor/internal/scene"
)

// Colors used for the highlight.
type Colors struct {
	HitFill      string
	HitAccent    string
	FallbackFill string
	MissAccent   string
}

// DefaultColors are gray/red while colliding and blue accents otherwise.
var DefaultColors = Colors{
	HitFill:      "gray",
	HitAccent:    "red",
	FallbackFill: "yellow",
	MissAccent:   "blue",
}

// Monitor tracks one drag at a time.
type Monitor struct {
	Enabled bool
	colors  Colors
	target  *scene.Object
	log     *slog.Logger
}

// New returns an enabled monitor. Empty colour fields take the defaults.
func New(c Colors) *Monitor {
	if c.HitFill == "" {
		c.HitFill = DefaultColors.HitFill
	}
	if c.HitAccent == "" {
		c.HitAccent = DefaultColors.HitAccent
	}
	if c.FallbackFill == "" {
		c.FallbackFill = DefaultColors.FallbackFill
	}
	if c.MissAccent == "" {
		c.MissAccent = DefaultColors.MissAccent
	}
	return &Monitor{Enabled: true, colors: c, log: applog.WithComponent("collision")}
}

// Colors returns the configured colours.
func (m *Monitor) Colors() Colors { return m.colors }

// BeginDrag starts sampling for target.
func (m *Monitor) BeginDrag(target *scene.Object) { m.target = target }

// EndDrag stops sampling. The last highlight stays as it is.
func (m *Monitor) EndDrag() { m.target = nil }

// Dragging returns the current drag target, or nil.
func (m *Monitor) Dragging() *scene.Object { return m.target }

// Sample tests target against every other object and applies the highlight.
// It reports whether a collision was found. Outside a drag of target, or when
// disabled, it does nothing.
func (m *Monitor) Sample(s *scene.Store, target *scene.Object) bool {
	if !m.Enabled || target == nil || target != m.target || !s.Contains(target) {
		return false
	}
	hit := Colliding(s, target)
	err := s.Update(target, func(o *scene.Object) {
		if hit {
			m.highlight(o)
		} else {
			m.restore(o)
		}
	})
	if err != nil {
		m.log.Warn("highlight update failed", slog.String("id", target.ID), slog.Any("err", err))
		return false
	}
	return hit
}

// Colliding reports whether target's bounds overlap any other object's
// bounds by a positive area.
func Colliding(s *scene.Store, target *scene.Object) bool {
	tb := target.Bounds()
	for _, o := range s.Objects() {
		if o == target {
			continue
		}
		if tb.Intersects(o.Bounds()) {
			return true
		}
	}
	return false
}

func (m *Monitor) highlight(o *scene.Object) {
	if o.StashedFill == nil {
		f := o.Fill
		o.StashedFill = &f
		m.log.Debug("collision started", "id", o.ID)
	}
	o.Fill = m.colors.HitFill
	o.Controls.CornerColor = m.colors.HitAccent
}

func (m *Monitor) restore(o *scene.Object) {
	if o.StashedFill != nil {
		o.Fill = *o.StashedFill
		o.StashedFill = nil
		m.log.Debug("collision cleared", "id", o.ID)
	} else {
		o.Fill = m.colors.FallbackFill
	}
	o.Controls.CornerColor = m.colors.MissAccent
}
