/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gosceneeditor/internal/scene"
)

// Client is a minimal HTTP client for the scene library API.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new library client. baseURL may include a trailing slash; it will be normalized.
// A zero timeout uses 10s.
func NewClient(baseURL, token string, timeout time.Duration, tlsInsecure bool) *Client {
	b := strings.TrimRight(baseURL, "/")
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hc := &http.Client{Timeout: timeout}
	if tlsInsecure {
		hc.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}} //nolint:gosec // opt-in for dev servers
	}
	return &Client{BaseURL: b, Token: token, client: hc}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("server %s %s: %w", method, u.Path, ErrSceneNotFound)
		}
		return fmt.Errorf("server %s %s: %s: %s", method, u.Path, resp.Status, strings.TrimSpace(string(msg)))
	}
	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// Token is a bearer token issued by the server.
type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RequestToken asks the server for a token for subject and stores it on the client.
func (c *Client) RequestToken(ctx context.Context, subject string, ttl time.Duration) (Token, error) {
	var tok Token
	req := map[string]any{"subject": subject, "ttl_seconds": int64(ttl / time.Second)}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/token", req, &tok); err != nil {
		return Token{}, err
	}
	c.Token = tok.Token
	return tok, nil
}

// ListScenes returns the published scenes.
func (c *Client) ListScenes(ctx context.Context) ([]SceneSummary, error) {
	var list []SceneSummary
	if err := c.doJSON(ctx, http.MethodGet, "/api/scenes", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Search runs a full-text query over the text objects of published scenes.
func (c *Client) Search(ctx context.Context, q string, limit int) ([]SearchHit, error) {
	var hits []SearchHit
	v := url.Values{"q": {q}}
	if limit > 0 {
		v.Set("limit", fmt.Sprint(limit))
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/scenes?"+v.Encode(), nil, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

// Publish uploads doc under its id and returns the stored version.
func (c *Client) Publish(ctx context.Context, name string, doc scene.Document) (int64, error) {
	if doc.ID == "" {
		return 0, fmt.Errorf("publish: document has no id")
	}
	raw, err := scene.MarshalDocument(doc)
	if err != nil {
		return 0, err
	}
	var res struct {
		Version int64 `json:"version"`
	}
	body := publishRequest{Name: name, Document: raw}
	if err := c.doJSON(ctx, http.MethodPut, "/api/scenes/"+url.PathEscape(doc.ID), body, &res); err != nil {
		return 0, err
	}
	return res.Version, nil
}

// Pull downloads a published scene and validates it.
func (c *Client) Pull(ctx context.Context, id string) (scene.Document, *SceneSummary, error) {
	var rec SceneRecord
	if err := c.doJSON(ctx, http.MethodGet, "/api/scenes/"+url.PathEscape(id), nil, &rec); err != nil {
		return scene.Document{}, nil, err
	}
	doc, err := scene.LoadDocument(rec.Document)
	if err != nil {
		return scene.Document{}, nil, fmt.Errorf("pull %s: %w", id, err)
	}
	return doc, &rec.SceneSummary, nil
}
