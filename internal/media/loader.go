/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package media decodes images off the input path. A Resource becomes ready
// exactly once; until then placing it on the canvas fails with
// scene.ErrResourceNotReady.
package media

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register GIF
	_ "image/jpeg" // register JPEG
	_ "image/png"  // register PNG
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/bmp"  // register BMP
	_ "golang.org/x/image/webp" // register WebP

	applog "gosceneeditor/internal/log"
	"gosceneeditor/internal/scene"
)

// MaxBytes bounds a single image read.
const MaxBytes = 64 << 20

// Resource is an image being loaded.
type Resource struct {
	Src string

	done   chan struct{}
	once   sync.Once
	img    image.Image
	format string
	err    error
}

func newResource(src string) *Resource {
	return &Resource{Src: src, done: make(chan struct{})}
}

// Ready reports whether loading finished, successfully or not.
func (r *Resource) Ready() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Image returns the decoded image, scene.ErrResourceNotReady while loading,
// or the load error.
func (r *Resource) Image() (image.Image, error) {
	if !r.Ready() {
		return nil, scene.ErrResourceNotReady
	}
	return r.img, r.err
}

// Format is the registered decoder name once ready ("png", "webp", ...).
func (r *Resource) Format() string {
	if !r.Ready() {
		return ""
	}
	return r.format
}

// Wait blocks until the resource is ready or ctx ends.
func (r *Resource) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Resource) finish(img image.Image, format string, err error) {
	r.once.Do(func() {
		r.img, r.format, r.err = img, format, err
		close(r.done)
	})
}

// Ready wraps an already decoded image.
func Ready(src string, img image.Image) *Resource {
	r := newResource(src)
	r.finish(img, "memory", nil)
	return r
}

// Loader decodes images on a bounded number of goroutines.
type Loader struct {
	sem    chan struct{}
	client *http.Client
	log    *slog.Logger
	wg     sync.WaitGroup
}

// NewLoader allows up to workers concurrent decodes (minimum 1).
func NewLoader(workers int) *Loader {
	if workers < 1 {
		workers = 1
	}
	return &Loader{
		sem:    make(chan struct{}, workers),
		client: &http.Client{Timeout: 30 * time.Second},
		log:    applog.WithComponent("media"),
	}
}

// Load starts decoding src (a file path or http(s) URL) and returns at once.
// onReady, when non-nil, runs on the loader goroutine after the resource is
// ready, successful or not.
func (l *Loader) Load(ctx context.Context, src string, onReady func(*Resource)) *Resource {
	r := newResource(src)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		select {
		case l.sem <- struct{}{}:
		case <-ctx.Done():
			r.finish(nil, "", ctx.Err())
			if onReady != nil {
				onReady(r)
			}
			return
		}
		img, format, err := l.decode(ctx, src)
		<-l.sem
		if err != nil {
			l.log.Warn("image load failed", slog.String("src", src), slog.Any("err", err))
		} else {
			b := img.Bounds()
			l.log.Debug("image loaded", slog.String("src", src), slog.String("format", format), slog.Int("w", b.Dx()), slog.Int("h", b.Dy()))
		}
		r.finish(img, format, err)
		if onReady != nil {
			onReady(r)
		}
	}()
	return r
}

// Wait blocks until every started load has finished.
func (l *Loader) Wait() { l.wg.Wait() }

func (l *Loader) decode(ctx context.Context, src string) (image.Image, string, error) {
	rc, err := l.open(ctx, src)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = rc.Close() }()
	img, format, err := image.Decode(io.LimitReader(rc, MaxBytes))
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", src, err)
	}
	return img, format, nil
}

func (l *Loader) open(ctx context.Context, src string) (io.ReadCloser, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, err
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode/100 != 2 {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("fetch %s: status %d", src, resp.StatusCode)
		}
		return resp.Body, nil
	}
	return os.Open(src)
}

// DecodeConfig reads only the header of the image at path.
func DecodeConfig(path string) (image.Config, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", err
	}
	defer func() { _ = f.Close() }()
	return image.DecodeConfig(f)
}
