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

package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/stackdock/pkg/models"
)

func validConfig() *Config {
	return &Config{
		Docks: map[string]*models.DockConfig{
			"digitalocean": {Credentials: map[string]string{"api_token": "t"}},
			"agency-gridpane": {
				Type:          "GridPane",
				Credentials:   map[string]string{"api_token": "t"},
				ResourceTypes: []models.ResourceType{"servers", "domain"},
			},
		},
	}
}

func TestConfigValidateDefaults(t *testing.T) {
	cfg := validConfig()

	require.NoError(t, cfg.Validate())

	assert.Equal(t, "digitalocean", cfg.Docks["digitalocean"].Type, "type defaults to the dock name")
	assert.Equal(t, "gridpane", cfg.Docks["agency-gridpane"].Type)
	assert.Equal(t, []models.ResourceType{models.ResourceTypeServer, models.ResourceTypeDomain},
		cfg.Docks["agency-gridpane"].ResourceTypes)
	assert.Equal(t, 5*time.Minute, time.Duration(cfg.PollInterval))
	assert.Equal(t, 15*time.Second, time.Duration(cfg.SnapshotInterval))
	assert.Equal(t, ":8090", cfg.ListenAddr)
}

func TestConfigValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{
			name:   "no docks",
			mutate: func(c *Config) { c.Docks = nil },
			want:   errMissingDocks,
		},
		{
			name:   "missing token",
			mutate: func(c *Config) { c.Docks["digitalocean"].Credentials = nil },
			want:   errMissingAPIToken,
		},
		{
			name:   "nil dock",
			mutate: func(c *Config) { c.Docks["vercel"] = nil },
			want:   errMissingDockType,
		},
		{
			name: "bad resource type",
			mutate: func(c *Config) {
				c.Docks["digitalocean"].ResourceTypes = []models.ResourceType{"kubernetes"}
			},
			want: models.ErrUnknownResourceType,
		},
		{
			name:   "poll too fast",
			mutate: func(c *Config) { c.PollInterval = models.Duration(time.Second) },
			want:   errPollTooFrequent,
		},
		{
			name:   "blank priority",
			mutate: func(c *Config) { c.ProviderPriority = []string{"vercel", " "} },
			want:   errInvalidPriority,
		},
		{
			name:   "nats bucket without url",
			mutate: func(c *Config) { c.NATS = &models.NATSConfig{Bucket: "b"} },
			want:   errMissingNATSBucket,
		},
		{
			name:   "postgres without host",
			mutate: func(c *Config) { c.Postgres = &models.PostgresDatabase{Database: "stackdock"} },
			want:   errMissingPostgresURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			require.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}
