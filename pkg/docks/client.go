/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package docks

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carverauto/stackdock/pkg/logger"
	"github.com/carverauto/stackdock/pkg/models"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultPageSize = 100
	maxBodyBytes    = 32 << 20
	errorBodyBytes  = 512
)

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a small JSON client for provider REST APIs.
type Client struct {
	provider string
	base     string
	header   http.Header
	http     HTTPClient
	tracer   trace.Tracer
	logger   logger.Logger
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithHTTPClient swaps the transport, mainly for tests.
func WithHTTPClient(h HTTPClient) ClientOption {
	return func(c *Client) {
		c.http = h
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.header.Set(key, value)
	}
}

// NewClient builds a client for cfg. defaultBase is used when cfg.Endpoint is empty.
func NewClient(provider, defaultBase string, cfg *models.DockConfig, log logger.Logger, opts ...ClientOption) *Client {
	base := defaultBase
	if cfg.Endpoint != "" {
		base = cfg.Endpoint
	}

	timeout := time.Duration(cfg.Timeout)
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		provider: provider,
		base:     strings.TrimRight(base, "/"),
		header:   make(http.Header),
		tracer:   logger.GetTracer("stackdock/docks"),
		logger:   log,
		//nolint:gosec // InsecureSkipVerify is an explicit opt-in for self-hosted endpoints
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify},
			},
		},
	}

	c.header.Set("Accept", "application/json")

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BearerToken returns the option that authenticates with an API token.
func BearerToken(token string) ClientOption {
	return WithHeader("Authorization", "Bearer "+token)
}

// GetJSON fetches path (relative to the base URL, or absolute) and decodes the
// body into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	target, err := c.resolve(path, query)
	if err != nil {
		return err
	}

	ctx, span := c.tracer.Start(ctx, "dock.get", trace.WithAttributes(
		attribute.String("dock.provider", c.provider),
		attribute.String("http.path", strings.SplitN(path, "?", 2)[0]),
	))
	defer span.End()

	err = c.get(ctx, target, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}

func (c *Client) get(ctx context.Context, target string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return err
	}

	for k, v := range c.header {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", c.provider, err)
	}
	defer c.closeResponse(resp)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyBytes))

		return fmt.Errorf("%w: %s returned %d: %s", ErrUnexpectedStatus, c.provider, resp.StatusCode,
			strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("%s: decode %s: %w", c.provider, req.URL.Path, err)
	}

	return nil
}

func (c *Client) resolve(path string, query url.Values) (string, error) {
	raw := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		raw = c.base + "/" + strings.TrimLeft(path, "/")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%s: bad url %q: %w", c.provider, raw, err)
	}

	if len(query) > 0 {
		q := u.Query()

		for k, vs := range query {
			for _, v := range vs {
				q.Set(k, v)
			}
		}

		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

func (c *Client) closeResponse(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		c.logger.Debug().Err(err).Str("dock", c.provider).Msg("Failed to close response body")
	}
}

// PageSize returns the configured page size or the default.
func PageSize(cfg *models.DockConfig) int {
	if cfg.PageSize > 0 {
		return cfg.PageSize
	}

	return defaultPageSize
}

// NewRecord builds a record carrying the provider payload verbatim.
func NewRecord(provider string, rt models.ResourceType, id string, raw json.RawMessage) *models.ResourceRecord {
	payload := make(json.RawMessage, len(raw))
	copy(payload, raw)

	return &models.ResourceRecord{
		ID:           id,
		ResourceType: rt,
		ProviderName: provider,
		ProviderData: models.ExtensionBlob{Provider: provider, Raw: payload},
	}
}
