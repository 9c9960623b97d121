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

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/stackdock/internal/natstest"
	"github.com/carverauto/stackdock/pkg/models"
)

var errNameRequired = errors.New("name is required")

type testDB struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type testConfig struct {
	Name     string                        `json:"name"`
	Interval models.Duration               `json:"poll_interval"`
	Tags     []string                      `json:"tags"`
	Types    []models.ResourceType         `json:"resource_types"`
	Debug    bool                          `json:"debug"`
	DB       *testDB                       `json:"db,omitempty"`
	NATS     *models.NATSConfig            `json:"nats,omitempty"`
	CORS     models.CORSConfig             `json:"cors"`
	Docks    map[string]*models.DockConfig `json:"docks"`
}

func (c *testConfig) Validate() error {
	if c.Name == "" {
		return errNameRequired
	}

	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "stackdock.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoadAndValidateFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := writeFile(t, `{"name":"file","poll_interval":"90s","docks":{"do":{"credentials":{"api_token":"x"}}}}`)

	var cfg testConfig
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, "file", cfg.Name)
	assert.Equal(t, 90*time.Second, time.Duration(cfg.Interval))
	assert.Equal(t, "x", cfg.Docks["do"].Credentials["api_token"])
}

func TestLoadAndValidateRunsValidate(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "file")

	path := writeFile(t, `{"debug":true}`)

	var cfg testConfig
	require.ErrorIs(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg), errNameRequired)
}

func TestLoadAndValidateErrors(t *testing.T) {
	var cfg testConfig

	t.Setenv("CONFIG_SOURCE", "consul")
	require.ErrorIs(t, NewConfig(nil).LoadAndValidate(context.Background(), "x.json", &cfg), errInvalidConfigSource)

	t.Setenv("CONFIG_SOURCE", "kv")
	require.ErrorIs(t, NewConfig(nil).LoadAndValidate(context.Background(), "x.json", &cfg), errKVNotSet)

	t.Setenv("CONFIG_SOURCE", "file")
	require.Error(t, NewConfig(nil).LoadAndValidate(context.Background(), filepath.Join(t.TempDir(), "missing.json"), &cfg))

	path := writeFile(t, `{"name":`)
	require.ErrorContains(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg), "unmarshal")
}

func TestEnvLoader(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("STACKDOCK_NAME", "from-env")
	t.Setenv("STACKDOCK_POLL_INTERVAL", "2m")
	t.Setenv("STACKDOCK_TAGS", "a, b,,c")
	t.Setenv("STACKDOCK_RESOURCE_TYPES", "server,domain")
	t.Setenv("STACKDOCK_DEBUG", "true")
	t.Setenv("STACKDOCK_DB_HOST", "db.internal")
	t.Setenv("STACKDOCK_DB_PORT", "not-a-number")
	t.Setenv("STACKDOCK_CORS_ALLOWED_ORIGINS", "https://app.example.com")
	t.Setenv("STACKDOCK_DOCKS", `{"vercel":{"credentials":{"api_token":"v"}}}`)

	var cfg testConfig
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), "ignored.json", &cfg))

	assert.Equal(t, "from-env", cfg.Name)
	assert.Equal(t, 2*time.Minute, time.Duration(cfg.Interval))
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Tags)
	assert.Equal(t, []models.ResourceType{models.ResourceTypeServer, models.ResourceTypeDomain}, cfg.Types)
	assert.True(t, cfg.Debug)
	require.NotNil(t, cfg.DB)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Zero(t, cfg.DB.Port, "unparseable values are skipped")
	assert.Nil(t, cfg.NATS, "untouched pointers stay nil")
	assert.Equal(t, []string{"https://app.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "v", cfg.Docks["vercel"].Credentials["api_token"])
}

func TestEnvLoaderCustomPrefixAndJSON(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("CONFIG_ENV_PREFIX", "SD_")
	t.Setenv("SD_CONFIG_JSON", `{"name":"json","nats":{"url":"nats://localhost:4222"}}`)

	var cfg testConfig
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg))

	assert.Equal(t, "json", cfg.Name)
	require.NotNil(t, cfg.NATS)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
}

func TestEnvLoaderRejectsNonStruct(t *testing.T) {
	l := NewEnvLoader(nil, DefaultEnvPrefix)

	var s string
	require.ErrorIs(t, l.Load(context.Background(), "", &s), ErrDstMustBePointerToStruct)
	require.ErrorIs(t, l.Load(context.Background(), "", testConfig{}), ErrDstMustBeNonNilPointer)
}

func TestKVLoader(t *testing.T) {
	kv := natstest.Bucket(t, "stackdock-config")
	ctx := context.Background()

	_, err := kv.Put(ctx, KVKey("/etc/stackdock/stackdock.json"), []byte(`{"name":"from-kv"}`))
	require.NoError(t, err)

	t.Setenv("CONFIG_SOURCE", "kv")

	c := NewConfig(nil)
	c.SetKeyValue(kv)

	var cfg testConfig
	require.NoError(t, c.LoadAndValidate(ctx, "/etc/stackdock/stackdock.json", &cfg))
	assert.Equal(t, "from-kv", cfg.Name)

	fallback := filepath.Join(t.TempDir(), "local.json")
	require.NoError(t, os.WriteFile(fallback, []byte(`{"name":"fallback"}`), 0o600))

	cfg = testConfig{}
	require.NoError(t, c.LoadAndValidate(ctx, fallback, &cfg), "a missing key falls back to the file")
	assert.Equal(t, "fallback", cfg.Name)

	err = c.LoadAndValidate(ctx, filepath.Join(t.TempDir(), "nowhere.json"), &cfg)
	require.ErrorIs(t, err, errLoadConfigFailed)
	require.ErrorIs(t, err, errKVKeyNotFound)
}

func TestKVKey(t *testing.T) {
	assert.Equal(t, "config.stackdock.json", KVKey("/etc/stackdock/stackdock.json"))
	assert.Equal(t, "config.stackdock.json", KVKey("stackdock.json"))
}
