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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carverauto/stackdock/pkg/logger"
	"github.com/carverauto/stackdock/pkg/models"
)

const (
	defaultPollInterval     = 5 * time.Minute
	defaultSnapshotInterval = 15 * time.Second
	defaultListenAddr       = ":8090"
	minPollInterval         = 10 * time.Second
)

var (
	errMissingDocks       = errors.New("at least one dock must be defined")
	errMissingDockType    = errors.New("dock type is required")
	errMissingAPIToken    = errors.New("dock credentials need an api_token")
	errPollTooFrequent    = errors.New("poll_interval must be at least 10s")
	errInvalidPriority    = errors.New("provider_priority entries must be non-empty")
	errMissingNATSBucket  = errors.New("nats url is required when a bucket is set")
	errMissingPostgresURL = errors.New("postgres host and database are required")
)

// Config is the service configuration.
type Config struct {
	Docks            map[string]*models.DockConfig `json:"docks"`
	PollInterval     models.Duration               `json:"poll_interval"`
	SnapshotInterval models.Duration               `json:"snapshot_interval"`
	ProviderPriority []string                      `json:"provider_priority,omitempty"`
	ListenAddr       string                        `json:"listen_addr"`
	APIKey           string                        `json:"api_key,omitempty"`
	CORS             models.CORSConfig             `json:"cors"`
	Postgres         *models.PostgresDatabase      `json:"postgres,omitempty"`
	NATS             *models.NATSConfig            `json:"nats,omitempty"`
	Logging          *logger.Config                `json:"logging,omitempty"`
}

// Validate checks required fields and fills defaults.
func (c *Config) Validate() error {
	if len(c.Docks) == 0 {
		return errMissingDocks
	}

	for name, dock := range c.Docks {
		if dock == nil {
			return fmt.Errorf("dock %s: %w", name, errMissingDockType)
		}

		if dock.Type == "" {
			dock.Type = name
		}

		dock.Type = strings.ToLower(strings.TrimSpace(dock.Type))
		if dock.Type == "" {
			return fmt.Errorf("dock %s: %w", name, errMissingDockType)
		}

		if strings.TrimSpace(dock.Credentials["api_token"]) == "" {
			return fmt.Errorf("dock %s: %w", name, errMissingAPIToken)
		}

		for i, rt := range dock.ResourceTypes {
			parsed, err := models.ParseResourceType(string(rt))
			if err != nil {
				return fmt.Errorf("dock %s: %w", name, err)
			}

			dock.ResourceTypes[i] = parsed
		}
	}

	if c.PollInterval == 0 {
		c.PollInterval = models.Duration(defaultPollInterval)
	}

	if time.Duration(c.PollInterval) < minPollInterval {
		return errPollTooFrequent
	}

	if c.SnapshotInterval <= 0 {
		c.SnapshotInterval = models.Duration(defaultSnapshotInterval)
	}

	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}

	for _, p := range c.ProviderPriority {
		if strings.TrimSpace(p) == "" {
			return errInvalidPriority
		}
	}

	if c.NATS != nil && c.NATS.URL == "" && c.NATS.Bucket != "" {
		return errMissingNATSBucket
	}

	if c.Postgres != nil && (c.Postgres.Host == "" || c.Postgres.Database == "") {
		return errMissingPostgresURL
	}

	return nil
}
