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

package digitalocean

import "encoding/json"

// links is the pagination block shared by every list endpoint.
type links struct {
	Pages struct {
		Next string `json:"next"`
	} `json:"pages"`
}

// page decodes any list response; items stay raw so payloads survive untouched.
type page struct {
	Droplets  []json.RawMessage `json:"droplets"`
	Domains   []json.RawMessage `json:"domains"`
	Databases []json.RawMessage `json:"databases"`
	Snapshots []json.RawMessage `json:"snapshots"`
	Policies  []json.RawMessage `json:"policies"`
	Links     links             `json:"links"`
}

type droplet struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Region   region `json:"region"`
	Networks struct {
		V4 []network `json:"v4"`
		V6 []network `json:"v6"`
	} `json:"networks"`
}

type region struct {
	Slug string `json:"slug"`
}

type network struct {
	IPAddress string `json:"ip_address"`
	Type      string `json:"type"`
}

type domain struct {
	Name string `json:"name"`
}

type database struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Engine     string `json:"engine"`
	Status     string `json:"status"`
	Region     string `json:"region"`
	Connection struct {
		Host string `json:"host"`
	} `json:"connection"`
}

type snapshot struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	ResourceID   string   `json:"resource_id"`
	ResourceType string   `json:"resource_type"`
	Regions      []string `json:"regions"`
}

type alertPolicy struct {
	UUID        string `json:"uuid"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Enabled     bool   `json:"enabled"`
}
