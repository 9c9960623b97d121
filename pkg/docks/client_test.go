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
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/stackdock/pkg/logger"
	"github.com/carverauto/stackdock/pkg/models"
)

func TestClientGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/droplets", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("per_page"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	cfg := &models.DockConfig{Type: "digitalocean", Endpoint: server.URL + "/"}
	c := NewClient("digitalocean", "https://unused.invalid", cfg, logger.NewTestLogger(), BearerToken("secret"))

	var out struct {
		OK bool `json:"ok"`
	}

	err := c.GetJSON(context.Background(), "/v2/droplets", url.Values{"per_page": {"50"}}, &out)

	require.NoError(t, err)
	assert.True(t, out.OK)
}

func TestClientGetJSONAbsoluteURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewClient("digitalocean", "https://unused.invalid", &models.DockConfig{}, logger.NewTestLogger())

	var out map[string]interface{}
	require.NoError(t, c.GetJSON(context.Background(), server.URL+"/v2/droplets?page=2", nil, &out))
}

func TestClientUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer server.Close()

	c := NewClient("vercel", server.URL, &models.DockConfig{}, logger.NewTestLogger())

	var out map[string]interface{}
	err := c.GetJSON(context.Background(), "/v5/domains", nil, &out)

	require.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "nope")
}

func TestClientTransportError(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := NewMockHTTPClient(ctrl)

	errDial := errors.New("dial failed")
	transport.EXPECT().Do(gomock.Any()).Return(nil, errDial)

	c := NewClient("gridpane", "https://my.gridpane.com", &models.DockConfig{}, logger.NewTestLogger(),
		WithHTTPClient(transport))

	var out map[string]interface{}
	err := c.GetJSON(context.Background(), "/oauth/api/v1/server", nil, &out)

	require.ErrorIs(t, err, errDial)
}

func TestClientDecodeError(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := NewMockHTTPClient(ctrl)

	transport.EXPECT().Do(gomock.Any()).Return(&http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("{not json")),
	}, nil)

	c := NewClient("gridpane", "https://my.gridpane.com", &models.DockConfig{}, logger.NewTestLogger(),
		WithHTTPClient(transport))

	var out map[string]interface{}
	err := c.GetJSON(context.Background(), "/oauth/api/v1/site", nil, &out)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestNewRecordCopiesPayload(t *testing.T) {
	raw := json.RawMessage(`{"id":1}`)
	rec := NewRecord("digitalocean", models.ResourceTypeServer, "1", raw)

	raw[1] = 'X'

	assert.JSONEq(t, `{"id":1}`, string(rec.ProviderData.Raw))
	assert.Equal(t, "digitalocean", rec.ProviderData.Provider)
}

func TestPageSize(t *testing.T) {
	assert.Equal(t, 100, PageSize(&models.DockConfig{}))
	assert.Equal(t, 20, PageSize(&models.DockConfig{PageSize: 20}))
}
