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
	"fmt"
	"log/slog"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"gosceneeditor/internal/grouping"
	applog "gosceneeditor/internal/log"
	"gosceneeditor/internal/scene"
	"gosceneeditor/internal/vector"
)

var fileOptions = &syntax.FileOptions{Set: true, While: true, TopLevelControl: true, GlobalReassign: true}

// Run executes src against env. Mutations are applied as one store batch.
func Run(ctx context.Context, env *Env, filename, src string) (Result, error) {
	if env == nil || env.Store == nil {
		return Result{}, errors.New("script: env has no store")
	}
	if env.Factory == nil {
		env.Factory = scene.NewFactory(scene.DefaultControlStyle(), nil)
	}
	l := applog.WithOperation(applog.WithComponent("script"), "run").With(slog.String("file", filename))

	r := &runner{env: env, groups: grouping.New()}
	thread := &starlark.Thread{Name: filename, Print: func(_ *starlark.Thread, msg string) {
		if env.Print != nil {
			env.Print(msg)
			return
		}
		l.Info("print", slog.String("msg", msg))
	}}
	steps := env.MaxSteps
	if steps == 0 {
		steps = DefaultMaxSteps
	}
	thread.SetMaxExecutionSteps(steps)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()

	bg := env.Background
	var globals starlark.StringDict
	err := env.Store.Batch(func() error {
		var err error
		globals, err = starlark.ExecFileOptions(fileOptions, thread, filename, src, r.predeclared())
		return err
	})
	res := Result{Steps: thread.ExecutionSteps()}
	if err != nil {
		env.Background = bg
		serr := asScriptError(err)
		l.Warn("script failed", slog.Any("err", serr))
		return res, serr
	}
	res.Globals = make(map[string]any, len(globals))
	for k, v := range globals {
		if gv := FromStarlarkValue(v); gv != nil {
			res.Globals[k] = gv
		}
	}
	l.Info("script finished", slog.Uint64("steps", res.Steps), slog.Int("objects", env.Store.Len()))
	return res, nil
}

func asScriptError(err error) error {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		e := &Error{Message: evalErr.Msg}
		// innermost frame with a source position; builtins have none
		for i := len(evalErr.CallStack) - 1; i >= 0; i-- {
			if pos := evalErr.CallStack[i].Pos; pos.Line > 0 {
				e.Line, e.Column = int(pos.Line), int(pos.Col)
				break
			}
		}
		return e
	}
	var synErr syntax.Error
	if errors.As(err, &synErr) {
		return &Error{Line: int(synErr.Pos.Line), Column: int(synErr.Pos.Col), Message: synErr.Msg}
	}
	return &Error{Message: err.Error()}
}

type runner struct {
	env    *Env
	groups *grouping.Controller
}

func (r *runner) predeclared() starlark.StringDict {
	b := func(name string, fn func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error)) *starlark.Builtin {
		return starlark.NewBuiltin(name, fn)
	}
	canvas := starlark.NewDict(2)
	_ = canvas.SetKey(starlark.String("width"), starlark.Float(r.env.Width))
	_ = canvas.SetKey(starlark.String("height"), starlark.Float(r.env.Height))
	canvas.Freeze()
	return starlark.StringDict{
		"canvas":         canvas,
		"palette":        paletteList(),
		"add":            b("add", r.add),
		"polygon":        b("polygon", r.polygon),
		"set":            b("set", r.set),
		"get":            b("get", r.get),
		"remove":         b("remove", r.remove),
		"objects":        b("objects", r.objects),
		"select":         b("select", r.selectObjs),
		"group":          b("group", r.group),
		"ungroup":        b("ungroup", r.ungroup),
		"bring_to_front": b("bring_to_front", r.bringToFront),
		"send_to_back":   b("send_to_back", r.sendToBack),
		"reorder":        b("reorder", r.reorder),
		"clear":          b("clear", r.clear),
		"background":     b("background", r.background),
	}
}

func paletteList() *starlark.List {
	names := scene.PaletteNames()
	vals := make([]starlark.Value, len(names))
	for i, n := range names {
		vals[i] = starlark.String(n)
	}
	l := starlark.NewList(vals)
	l.Freeze()
	return l
}

// add(kind, **props) -> id
func (r *runner) add(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var kind string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, nil, 1, &kind); err != nil {
		return nil, err
	}
	o, err := r.env.Factory.Create(kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	if err := applyProps(o, kwargs); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	r.fitText(o)
	if err := r.env.Store.Add(o); err != nil {
		return nil, err
	}
	return starlark.String(o.ID), nil
}

// polygon(sides, radius, x=0, y=0, **props) -> id
func (r *runner) polygon(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var sides int
	var radius, x, y starlark.Value = starlark.None, starlark.MakeInt(0), starlark.MakeInt(0)
	if err := starlark.UnpackPositionalArgs(b.Name(), args, nil, 2, &sides, &radius, &x, &y); err != nil {
		return nil, err
	}
	rad, ok := starlark.AsFloat(radius)
	if !ok || sides < 3 || rad <= 0 {
		return nil, fmt.Errorf("%s: need sides >= 3 and radius > 0", b.Name())
	}
	fx, _ := starlark.AsFloat(x)
	fy, _ := starlark.AsFloat(y)
	o := r.env.Factory.Polygon(scene.RegularPolygon(sides, rad))
	o.Left, o.Top = fx, fy
	o.Fill = "red"
	if err := applyProps(o, kwargs); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	if err := r.env.Store.Add(o); err != nil {
		return nil, err
	}
	return starlark.String(o.ID), nil
}

// set(id, **props)
func (r *runner) set(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	o, err := r.oneObject(b, args)
	if err != nil {
		return nil, err
	}
	var perr error
	if err := r.env.Store.Update(o, func(o *scene.Object) {
		if perr = applyProps(o, kwargs); perr == nil {
			r.fitText(o)
		}
	}); err != nil {
		return nil, err
	}
	if perr != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), perr)
	}
	return starlark.None, nil
}

// get(id) -> dict
func (r *runner) get(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
	o, err := r.oneObject(b, args)
	if err != nil {
		return nil, err
	}
	return toStarlarkValue(describe(o))
}

func (r *runner) remove(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
	o, err := r.oneObject(b, args)
	if err != nil {
		return nil, err
	}
	return starlark.None, r.env.Store.Remove(o)
}

// objects() -> list of dicts in z-order (bottom first)
func (r *runner) objects(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	objs := r.env.Store.Objects()
	vals := make([]starlark.Value, 0, len(objs))
	for _, o := range objs {
		v, err := toStarlarkValue(describe(o))
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return starlark.NewList(vals), nil
}

func (r *runner) selectObjs(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
	objs, err := r.manyObjects(b, args)
	if err != nil {
		return nil, err
	}
	return starlark.None, r.env.Store.SetSelection(objs...)
}

// group(*ids) -> id
func (r *runner) group(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
	objs, err := r.manyObjects(b, args)
	if err != nil {
		return nil, err
	}
	g, err := r.groups.Group(r.env.Store, objs)
	if err != nil {
		return nil, err
	}
	return starlark.String(g.ID), nil
}

// ungroup(id) -> list of ids
func (r *runner) ungroup(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
	g, err := r.oneObject(b, args)
	if err != nil {
		return nil, err
	}
	out, err := r.groups.Ungroup(r.env.Store, g)
	if err != nil {
		return nil, err
	}
	ids := make([]starlark.Value, len(out))
	for i, o := range out {
		ids[i] = starlark.String(o.ID)
	}
	return starlark.NewList(ids), nil
}

func (r *runner) bringToFront(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
	o, err := r.oneObject(b, args)
	if err != nil {
		return nil, err
	}
	return starlark.None, r.env.Store.BringToFront(o)
}

func (r *runner) sendToBack(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
	o, err := r.oneObject(b, args)
	if err != nil {
		return nil, err
	}
	return starlark.None, r.env.Store.SendToBack(o)
}

func (r *runner) reorder(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var from, to int
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &from, &to); err != nil {
		return nil, err
	}
	return starlark.None, r.env.Store.Reorder(from, to)
}

func (r *runner) clear(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	r.env.Store.Clear()
	r.env.Background = "white"
	return starlark.None, nil
}

// background(color=None) -> current background
func (r *runner) background(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var c string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0, &c); err != nil {
		return nil, err
	}
	if c != "" {
		if _, ok := vector.ParseColor(c); !ok {
			return nil, fmt.Errorf("%s: invalid color %q", b.Name(), c)
		}
		r.env.Background = c
	}
	return starlark.String(r.env.Background), nil
}

func (r *runner) oneObject(b *starlark.Builtin, args starlark.Tuple) (*scene.Object, error) {
	var id string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, nil, 1, &id); err != nil {
		return nil, err
	}
	o := r.env.Store.ByID(id)
	if o == nil {
		return nil, fmt.Errorf("%s: %q: %w", b.Name(), id, scene.ErrNotFound)
	}
	return o, nil
}

func (r *runner) manyObjects(b *starlark.Builtin, args starlark.Tuple) ([]*scene.Object, error) {
	out := make([]*scene.Object, 0, len(args))
	for _, a := range args {
		id, ok := starlark.AsString(a)
		if !ok {
			return nil, fmt.Errorf("%s: want object ids, got %s", b.Name(), a.Type())
		}
		o := r.env.Store.ByID(id)
		if o == nil {
			return nil, fmt.Errorf("%s: %q: %w", b.Name(), id, scene.ErrNotFound)
		}
		out = append(out, o)
	}
	return out, nil
}

func describe(o *scene.Object) map[string]any {
	b := o.Bounds()
	d := map[string]any{
		"id":       o.ID,
		"type":     string(o.Kind),
		"left":     o.Left,
		"top":      o.Top,
		"width":    o.Width,
		"height":   o.Height,
		"angle":    o.Angle,
		"scale_x":  o.ScaleX,
		"scale_y":  o.ScaleY,
		"fill":     o.Fill,
		"stroke":   o.Stroke,
		"opacity":  o.Opacity,
		"bounds_w": b.W,
		"bounds_h": b.H,
	}
	if o.Text != nil {
		d["text"] = o.Text.Text
	}
	if o.IsGroup() {
		ids := make([]string, len(o.Children))
		for i, ch := range o.Children {
			ids[i] = ch.ID
		}
		d["children"] = ids
	}
	return d
}

// fitText recomputes the text box of text kinds after their text or font
// size changed.
func (r *runner) fitText(o *scene.Object) {
	if o.Text == nil {
		return
	}
	scene.FitText(o, r.env.Factory.Provider)
}

// applyProps sets the keyword arguments of add/set on o.
func applyProps(o *scene.Object, kwargs []starlark.Tuple) error {
	for _, kv := range kwargs {
		key, _ := starlark.AsString(kv[0])
		v := kv[1]
		num := func() (float64, error) {
			f, ok := starlark.AsFloat(v)
			if !ok {
				return 0, fmt.Errorf("%s: want number, got %s", key, v.Type())
			}
			return f, nil
		}
		str := func() (string, error) {
			s, ok := starlark.AsString(v)
			if !ok {
				return "", fmt.Errorf("%s: want string, got %s", key, v.Type())
			}
			return s, nil
		}
		var err error
		switch strings.ToLower(key) {
		case "left":
			o.Left, err = num()
		case "top":
			o.Top, err = num()
		case "width":
			o.Width, err = num()
		case "height":
			o.Height, err = num()
		case "radius":
			o.Radius, err = num()
		case "angle":
			o.Angle, err = num()
		case "scale_x":
			o.ScaleX, err = num()
		case "scale_y":
			o.ScaleY, err = num()
		case "opacity":
			o.Opacity, err = num()
		case "stroke_width":
			o.StrokeWidth, err = num()
		case "fill":
			o.Fill, err = str()
		case "stroke":
			o.Stroke, err = str()
		case "origin_x":
			o.OriginX, err = str()
		case "origin_y":
			o.OriginY, err = str()
		case "text", "font_size":
			if o.Text == nil {
				return fmt.Errorf("%s: %s has no text", key, o.Kind)
			}
			if key == "text" {
				o.Text.Text, err = str()
			} else {
				o.Text.FontSize, err = num()
			}
		case "evented":
			o.Evented = bool(v.Truth())
		case "selectable":
			o.Selectable = bool(v.Truth())
		default:
			return fmt.Errorf("unknown property %q", key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
