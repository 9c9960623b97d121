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

import "time"

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// ResourceRow is one line of a unified table.
type ResourceRow struct {
	LogicalID      string           `json:"logical_id"`
	FingerprintKey string           `json:"fingerprint_key,omitempty"`
	Representative ResourceRecord   `json:"representative"`
	MergedCount    int              `json:"merged_count"`
	Providers      []string         `json:"providers"`
	Sources        []ResourceRecord `json:"sources,omitempty"`
}

// ResourceTable is the API response for one resource type.
type ResourceTable struct {
	ResourceType ResourceType  `json:"resource_type"`
	Status       string        `json:"status"`
	Revision     uint64        `json:"revision"`
	UpdatedAt    time.Time     `json:"updated_at"`
	SourceCount  int           `json:"source_count"`
	Rows         []ResourceRow `json:"rows"`
}

// DockStatus reports the health of one dock's last sync.
type DockStatus struct {
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	LastSyncAt   time.Time `json:"last_sync_at,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	RecordCount  int       `json:"record_count"`
	CircuitState string    `json:"circuit_state"`
}
