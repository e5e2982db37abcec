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
	"errors"
	"strings"
	"testing"
)

func TestPaddedTextSurvivesDocumentRoundTrip(t *testing.T) {
	f := NewFactory(DefaultControlStyle(), nil)
	p := f.PaddedText("label", 10, 20, 150, Padded{PaddingX: 8, PaddingY: 4, CornerRadius: 6, BackgroundFill: "#ffcc00"})
	g := NewGroup(0, 0, 300, 300)
	g.Children = []*Object{f.Rect()}
	doc := NewDocument()
	doc.Objects = []*Object{p, g}

	data, err := MarshalDocument(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"type": "textbox-with-padding"`) {
		t.Fatalf("discriminant tag missing:\n%s", data)
	}
	if err := ValidateDocument(data); err != nil {
		t.Fatalf("emitted document fails schema: %v", err)
	}
	back, err := LoadDocument(data)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got := back.Objects[0]
	if got.Kind != KindPaddedText || got.Padded == nil {
		t.Fatalf("expected padded variant, got %+v", got)
	}
	if *got.Padded != *p.Padded || got.Text.Text != "label" || got.ID != p.ID {
		t.Fatalf("padded fields not restored: %+v", got.Padded)
	}
	if len(back.Objects[1].Children) != 1 || back.Objects[1].Children[0].Kind != KindRect {
		t.Fatalf("group children not restored")
	}
	if got.Controls.CornerStyle != "circle" {
		t.Fatalf("control style not restored: %+v", got.Controls)
	}
}

func TestReviverAcceptsAliases(t *testing.T) {
	raw := `{"type":"textbox-with-padding","left":1,"top":2,"text":"x","paddingX":3,"paddingY":4,"cornerRadius":5,"backgroundFill":"red"}`
	var o Object
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := Padded{PaddingX: 3, PaddingY: 4, CornerRadius: 5, BackgroundFill: "red"}
	if o.Padded == nil || *o.Padded != want {
		t.Fatalf("aliases not honoured: %+v", o.Padded)
	}
	if o.ScaleX != 1 || !o.Evented || o.OriginX != OriginLeft || o.ID == "" {
		t.Fatalf("defaults not applied: %+v", o)
	}
}

func TestUnmarshalRejectsUnknownType(t *testing.T) {
	var o Object
	err := json.Unmarshal([]byte(`{"type":"hexagon","left":0,"top":0}`), &o)
	if !errors.Is(err, ErrInvalidObject) {
		t.Fatalf("expected ErrInvalidObject, got %v", err)
	}
}

func TestValidateDocumentRejectsMissingPaddingFields(t *testing.T) {
	raw := `{"version":"1","background":"white","width":10,"height":10,"objects":[{"type":"textbox-with-padding","left":0,"top":0,"text":"x"}]}`
	if err := ValidateDocument([]byte(raw)); err == nil {
		t.Fatalf("expected schema violation")
	}
}
