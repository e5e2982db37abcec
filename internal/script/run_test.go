/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"gosceneeditor/internal/scene"
)

func newEnv() *Env {
	return &Env{Store: scene.NewStore(), Background: "white", Width: 800, Height: 600}
}

func TestAddSetAndObjects(t *testing.T) {
	env := newEnv()
	src := `
r = add("rect", left=10, top=20, fill="orange")
set(r, width=40, angle=15)
c = add("circle")
n = len(objects())
kinds = [o["type"] for o in objects()]
`
	res, err := Run(context.Background(), env, "t.star", src)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if env.Store.Len() != 2 {
		t.Fatalf("want 2 objects, got %d", env.Store.Len())
	}
	r := env.Store.At(0)
	if r.Left != 10 || r.Top != 20 || r.Fill != "orange" || r.Width != 40 || r.Angle != 15 {
		t.Fatalf("unexpected rect %+v", r)
	}
	if id, _ := res.Globals["r"].(string); id != r.ID {
		t.Fatalf("global r = %v, want %s", res.Globals["r"], r.ID)
	}
	if n, _ := res.Globals["n"].(int); n != 2 {
		t.Fatalf("n = %v", res.Globals["n"])
	}
	kinds, _ := res.Globals["kinds"].([]any)
	if len(kinds) != 2 || kinds[0] != "rect" || kinds[1] != "circle" {
		t.Fatalf("kinds = %v", kinds)
	}
	if res.Steps == 0 {
		t.Fatalf("expected step count")
	}
}

func TestPolygonAndBackground(t *testing.T) {
	env := newEnv()
	var printed []string
	env.Print = func(msg string) { printed = append(printed, msg) }
	src := `
p = polygon(6, 40, 100, 120)
background("#336699")
print(get(p)["fill"], canvas["width"])
`
	if _, err := Run(context.Background(), env, "poly.star", src); err != nil {
		t.Fatalf("run: %v", err)
	}
	p := env.Store.At(0)
	if p == nil || p.Kind != scene.KindPolygon || len(p.Points) != 6 {
		t.Fatalf("unexpected polygon %+v", p)
	}
	if p.Left != 100 || p.Top != 120 {
		t.Fatalf("polygon at %v,%v", p.Left, p.Top)
	}
	if env.Background != "#336699" {
		t.Fatalf("background = %q", env.Background)
	}
	if len(printed) != 1 || printed[0] != "red 800.0" {
		t.Fatalf("printed %q", printed)
	}
}

func TestGroupAndUngroup(t *testing.T) {
	env := newEnv()
	src := `
a = add("rect", left=0, top=0)
b = add("rect", left=50, top=50)
g = group(a, b)
kids = get(g)["children"]
parts = ungroup(g)
`
	res, err := Run(context.Background(), env, "g.star", src)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	kids, _ := res.Globals["kids"].([]any)
	if len(kids) != 2 {
		t.Fatalf("children = %v", kids)
	}
	parts, _ := res.Globals["parts"].([]any)
	if len(parts) != 2 || env.Store.Len() != 2 {
		t.Fatalf("ungroup gave %v, store has %d", parts, env.Store.Len())
	}
	if o := env.Store.ByID(res.Globals["b"].(string)); o == nil || o.Left != 50 || o.Top != 50 {
		t.Fatalf("member position not restored: %+v", o)
	}
}

func TestSyntaxErrorHasPosition(t *testing.T) {
	env := newEnv()
	_, err := Run(context.Background(), env, "bad.star", "x = 1\ny = (\n")
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("want *Error, got %T %v", err, err)
	}
	if se.Line < 2 {
		t.Fatalf("line = %d", se.Line)
	}
	if !strings.HasPrefix(se.Error(), "script:") {
		t.Fatalf("message %q", se.Error())
	}
}

func TestFailureRollsBack(t *testing.T) {
	env := newEnv()
	keep := scene.New(scene.KindRect)
	_ = env.Store.Add(keep)
	_ = env.Store.SetSelection(keep)
	src := `
background("black")
add("rect")
remove(objects()[0]["id"])
set("missing", left=1)
`
	_, err := Run(context.Background(), env, "fail.star", src)
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("want *Error, got %v", err)
	}
	if se.Line != 5 {
		t.Fatalf("error line = %d, want 5 (%v)", se.Line, se)
	}
	if env.Store.Len() != 1 || env.Store.At(0) != keep || env.Store.Primary() != keep {
		t.Fatalf("store not rolled back")
	}
	if env.Background != "white" {
		t.Fatalf("background not restored: %q", env.Background)
	}
}

func TestUnknownProperty(t *testing.T) {
	env := newEnv()
	_, err := Run(context.Background(), env, "p.star", `add("rect", colour="red")`)
	if err == nil || !strings.Contains(err.Error(), "colour") {
		t.Fatalf("want unknown property error, got %v", err)
	}
	if env.Store.Len() != 0 {
		t.Fatalf("object added despite error")
	}
}

func TestStepLimit(t *testing.T) {
	env := newEnv()
	env.MaxSteps = 1000
	_, err := Run(context.Background(), env, "loop.star", "while True:\n    pass\n")
	if err == nil || !strings.Contains(err.Error(), "too many steps") {
		t.Fatalf("want step limit error, got %v", err)
	}
}

func TestCancelledContext(t *testing.T) {
	env := newEnv()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, env, "loop.star", "while True:\n    pass\n")
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestClearResetsBackground(t *testing.T) {
	env := newEnv()
	env.Background = "navy"
	_ = env.Store.Add(scene.New(scene.KindRect))
	if _, err := Run(context.Background(), env, "c.star", "clear()"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if env.Store.Len() != 0 || env.Background != "white" {
		t.Fatalf("clear left %d objects, bg %q", env.Store.Len(), env.Background)
	}
}

func TestTextPropsRefitHeight(t *testing.T) {
	env := newEnv()
	src := `
p = add("padded-text")
set(p, text="a\nb\nc\nd\ne\nf")
set(p, font_size=60)
q = add("padded-text", text="x\ny")
`
	if _, err := Run(context.Background(), env, "fit.star", src); err != nil {
		t.Fatalf("run: %v", err)
	}
	p, q := env.Store.At(0), env.Store.At(1)
	one := p.Clone()
	one.Text.Text = "x"
	scene.FitText(one, env.Factory.Provider)
	if p.Height <= one.Height*3 {
		t.Fatalf("six lines at 60px kept height %v", p.Height)
	}
	b := p.Bounds()
	if math.Abs(b.H-(p.Height+2*p.Padded.PaddingY)) > 1e-9 {
		t.Fatalf("padded bounds %v do not follow text height %v", b.H, p.Height)
	}
	two := q.Clone()
	two.Text.Text = "x"
	scene.FitText(two, env.Factory.Provider)
	if q.Height <= two.Height {
		t.Fatalf("add with two lines kept one line height %v", q.Height)
	}
}
