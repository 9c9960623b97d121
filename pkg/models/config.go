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

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var errInvalidDuration = errors.New("invalid duration")

// Duration is a time.Duration that unmarshals from either a Go duration string
// ("30s") or a number of nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidDuration, err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// DockConfig configures one connected provider account.
type DockConfig struct {
	// Type selects the adapter: "digitalocean", "vercel" or "gridpane".
	Type string `json:"type"`
	// Endpoint overrides the provider's public API base URL.
	Endpoint string `json:"endpoint,omitempty"`
	// Credentials holds provider secrets such as "api_token" and "team_id".
	Credentials map[string]string `json:"credentials"`
	// ResourceTypes restricts which tables this dock feeds. Empty means all the
	// adapter supports.
	ResourceTypes []ResourceType `json:"resource_types,omitempty"`
	// PageSize is passed to paginated provider endpoints.
	PageSize int `json:"page_size,omitempty"`
	// Timeout bounds a single HTTP request to the provider.
	Timeout Duration `json:"timeout,omitempty"`
	// InsecureSkipVerify disables TLS verification for self-hosted endpoints.
	InsecureSkipVerify bool `json:"insecure_skip_verify,omitempty"`
}

// Wants reports whether the dock is configured to feed the given table.
func (c *DockConfig) Wants(rt ResourceType) bool {
	if len(c.ResourceTypes) == 0 {
		return true
	}

	for _, t := range c.ResourceTypes {
		if t == rt {
			return true
		}
	}

	return false
}

// TLSConfig names client certificate material.
type TLSConfig struct {
	CertFile string `json:"cert_file"`
	KeyFile  string `json:"key_file"`
	CAFile   string `json:"ca_file"`
}

// PostgresDatabase configures the record store connection pool.
type PostgresDatabase struct {
	Host               string            `json:"host"`
	Port               int               `json:"port"`
	Database           string            `json:"database"`
	Username           string            `json:"username"`
	Password           string            `json:"password"`
	SSLMode            string            `json:"ssl_mode"`
	ApplicationName    string            `json:"application_name"`
	MaxConnections     int32             `json:"max_connections"`
	MinConnections     int32             `json:"min_connections"`
	MaxConnLifetime    Duration          `json:"max_conn_lifetime"`
	HealthCheckPeriod  Duration          `json:"health_check_period"`
	StatementTimeout   Duration          `json:"statement_timeout"`
	ExtraRuntimeParams map[string]string `json:"extra_runtime_params"`
	TLS                *TLSConfig        `json:"tls,omitempty"`
}

// NATSConfig configures the JetStream key-value bucket that mirrors records.
type NATSConfig struct {
	URL    string     `json:"url"`
	Bucket string     `json:"bucket"`
	TLS    *TLSConfig `json:"tls,omitempty"`
}

// CORSConfig configures cross-origin access to the API.
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowCredentials bool     `json:"allow_credentials"`
}
