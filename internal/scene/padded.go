/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"encoding/json"
	"math"

	"gosceneeditor/internal/vector"
)

func init() {
	RegisterReviver(KindPaddedText, revivePadded)
	registerEncoder(KindPaddedText, encodePadded)
}

// NewPaddedText returns a text object with a padded background.
func NewPaddedText(text string, pad Padded) *Object {
	o := New(KindPaddedText)
	o.Text = &TextPayload{Text: text, FontSize: 16, FontFamily: "sans-serif", TextAlign: "left"}
	o.Fill = "black"
	p := pad
	if p.CornerRadius < 0 {
		p.CornerRadius = 0
	}
	o.Padded = &p
	return o
}

// BackgroundBox returns the padded local box and the corner radius clamped
// to half of its shorter side. ok is false when no background is painted.
func (o *Object) BackgroundBox() (box vector.Rect, radius float64, ok bool) {
	if o.Kind != KindPaddedText || o.Padded == nil || o.Padded.BackgroundFill == "" {
		return vector.Rect{}, 0, false
	}
	box = o.LocalBox()
	radius = math.Min(o.Padded.CornerRadius, math.Min(box.W/2, box.H/2))
	if radius < 0 {
		radius = 0
	}
	return box, radius, true
}

type paddedWire struct {
	PaddingX              *float64 `json:"paddingX"`
	PaddingY              *float64 `json:"paddingY"`
	BorderRadius          *float64 `json:"borderRadius"`
	CornerRadius          *float64 `json:"cornerRadius"`
	CustomBackgroundColor *string  `json:"customBackgroundColor"`
	BackgroundFill        *string  `json:"backgroundFill"`
	BackgroundColor       *string  `json:"backgroundColor"`
}

func revivePadded(raw json.RawMessage, o *Object) error {
	var w paddedWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return err
	}
	p := Padded{
		PaddingX:     fval(w.PaddingX, 0),
		PaddingY:     fval(w.PaddingY, 0),
		CornerRadius: fval(w.BorderRadius, fval(w.CornerRadius, 0)),
	}
	switch {
	case w.CustomBackgroundColor != nil:
		p.BackgroundFill = *w.CustomBackgroundColor
	case w.BackgroundFill != nil:
		p.BackgroundFill = *w.BackgroundFill
	case w.BackgroundColor != nil:
		p.BackgroundFill = *w.BackgroundColor
	}
	if p.CornerRadius < 0 {
		p.CornerRadius = 0
	}
	o.Padded = &p
	if o.Text == nil {
		o.Text = &TextPayload{}
	}
	return nil
}

func encodePadded(o *Object, w *wireObject) {
	p := o.Padded
	if p == nil {
		p = &Padded{}
	}
	w.PaddingX = fptr(p.PaddingX)
	w.PaddingY = fptr(p.PaddingY)
	w.BorderRadius = fptr(p.CornerRadius)
	bg := p.BackgroundFill
	w.CustomBackgroundColor = &bg
}
