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

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/stackdock/pkg/logger"
	"github.com/carverauto/stackdock/pkg/models"
	"github.com/carverauto/stackdock/pkg/reconcile"
	"github.com/carverauto/stackdock/pkg/snapshot"
)

//nolint:gochecknoglobals // fixed test clock
var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type staticStatus []models.DockStatus

func (s staticStatus) Status() []models.DockStatus { return s }

func serverRecord(provider, id, ip string, synced time.Time) *models.ResourceRecord {
	return &models.ResourceRecord{
		ID:           id,
		ResourceType: models.ResourceTypeServer,
		ProviderName: provider,
		Name:         provider + "-" + id,
		Fingerprint:  models.Fingerprint{PublicIP: ip},
		ProviderData: models.ExtensionBlob{Provider: provider},
		LastSyncedAt: synced,
	}
}

func serverView(revision uint64) *models.View {
	input := []*models.ResourceRecord{
		serverRecord("digitalocean", "1", "203.0.113.5", t0),
		serverRecord("gridpane", "11", "203.0.113.5", t0.Add(time.Minute)),
		serverRecord("vercel", "v", "198.51.100.1", t0),
	}

	return &models.View{
		ResourceType: models.ResourceTypeServer,
		Rows:         reconcile.Reconcile(input),
		SourceCount:  len(input),
		Revision:     revision,
		UpdatedAt:    t0,
	}
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *snapshot.Views, *httptest.Server) {
	t.Helper()

	views := snapshot.NewViews()
	s := NewServer("127.0.0.1:0", views, logger.NewTestLogger(), opts...)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	return s, views, ts
}

func getJSON(t *testing.T, url string, dst interface{}) int {
	t.Helper()

	resp, err := http.Get(url) //nolint:noctx // test helper
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	if dst != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
	}

	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	_, _, ts := newTestServer(t, WithAPIKey("secret"))

	var body map[string]string

	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/health", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestResourcesLoading(t *testing.T) {
	_, _, ts := newTestServer(t)

	var table models.ResourceTable

	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, ts.URL+"/api/v1/resources/servers", &table))
	assert.Equal(t, "loading", table.Status)
	assert.Equal(t, models.ResourceTypeServer, table.ResourceType)
	assert.Empty(t, table.Rows)
}

func TestResourcesReady(t *testing.T) {
	_, views, ts := newTestServer(t)

	views.Publish(serverView(3))

	var table models.ResourceTable

	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/resources/server", &table))
	assert.Equal(t, "ready", table.Status)
	assert.Equal(t, uint64(3), table.Revision)
	assert.Equal(t, 3, table.SourceCount)
	require.Len(t, table.Rows, 2)

	merged := table.Rows[0]
	assert.Equal(t, 2, merged.MergedCount)
	assert.Equal(t, "gridpane", merged.Representative.ProviderName, "newest record represents the group")
	assert.Equal(t, []string{"digitalocean", "gridpane"}, merged.Providers)
	assert.NotEmpty(t, merged.LogicalID)
	assert.Empty(t, merged.Sources, "provenance is opt-in")

	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/resources/SERVERS?provenance=true", &table))
	assert.Len(t, table.Rows[0].Sources, 2)
	assert.Len(t, table.Rows[1].Sources, 1)
}

func TestResourcesUnknownType(t *testing.T) {
	_, _, ts := newTestServer(t)

	var body models.ErrorResponse

	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/v1/resources/kubernetes", &body))
	assert.Equal(t, http.StatusNotFound, body.Status)
	assert.Contains(t, body.Message, "unknown resource type")
}

func TestDocks(t *testing.T) {
	status := staticStatus{{Name: "do-main", Type: "digitalocean", RecordCount: 4, CircuitState: "closed"}}
	_, _, ts := newTestServer(t, WithStatus(status))

	var got []models.DockStatus

	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/docks", &got))
	assert.Equal(t, []models.DockStatus(status), got)

	_, _, bare := newTestServer(t)
	require.Equal(t, http.StatusOK, getJSON(t, bare.URL+"/api/v1/docks", &got))
	assert.Empty(t, got)
}

func TestAPIKeyRequired(t *testing.T) {
	_, _, ts := newTestServer(t, WithAPIKey("secret"))

	resp, err := http.Get(ts.URL + "/api/v1/docks") //nolint:noctx // test
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/docks", http.NoBody) //nolint:noctx // test
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "secret")

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func readMessage(t *testing.T, conn *websocket.Conn) StreamMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg StreamMessage
	require.NoError(t, conn.ReadJSON(&msg))

	return msg
}

func dial(t *testing.T, ts *httptest.Server, path string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path

	return websocket.DefaultDialer.Dial(url, header)
}

func TestLiveStream(t *testing.T) {
	s, views, ts := newTestServer(t)

	conn, _, err := dial(t, ts, "/api/v1/resources/servers/live", nil)
	require.NoError(t, err)

	defer func() { _ = conn.Close() }()

	assert.Equal(t, MessageLoading, readMessage(t, conn).Type)

	views.Publish(serverView(1))

	msg := readMessage(t, conn)
	require.Equal(t, MessageData, msg.Type)
	require.NotNil(t, msg.Table)
	assert.Equal(t, uint64(1), msg.Table.Revision)
	assert.Len(t, msg.Table.Rows, 2)

	views.Publish(serverView(2))
	assert.Equal(t, uint64(2), readMessage(t, conn).Table.Revision)

	require.NoError(t, s.Stop(context.Background()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestLiveStreamStartsWithCurrentView(t *testing.T) {
	_, views, ts := newTestServer(t)

	views.Publish(serverView(7))

	conn, _, err := dial(t, ts, "/api/v1/resources/server/live?provenance=1", nil)
	require.NoError(t, err)

	defer func() { _ = conn.Close() }()

	msg := readMessage(t, conn)
	require.Equal(t, MessageData, msg.Type)
	assert.Equal(t, uint64(7), msg.Table.Revision)
	assert.Len(t, msg.Table.Rows[0].Sources, 2)
}

func TestLiveStreamRejectsForeignOrigin(t *testing.T) {
	_, _, ts := newTestServer(t, WithCORS(models.CORSConfig{AllowedOrigins: []string{"https://dash.example.com"}}))

	header := http.Header{"Origin": []string{"https://evil.example.com"}}

	_, resp, err := dial(t, ts, "/api/v1/resources/server/live", header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStartStop(t *testing.T) {
	s := NewServer("127.0.0.1:0", snapshot.NewViews(), logger.NewTestLogger())

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	require.ErrorIs(t, s.Start(ctx), errAlreadyStarted)

	var body map[string]string

	assert.Equal(t, http.StatusOK, getJSON(t, "http://"+s.Addr()+"/health", &body))

	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
}
