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
	"strings"
	"time"
)

// ResourceType names one of the unified dashboard tables.
type ResourceType string

const (
	ResourceTypeServer   ResourceType = "server"
	ResourceTypeDomain   ResourceType = "domain"
	ResourceTypeDatabase ResourceType = "database"
	ResourceTypeBackup   ResourceType = "backup"
	ResourceTypeAlert    ResourceType = "alert"
)

// AllResourceTypes lists every resource type in display order.
//
//nolint:gochecknoglobals // shared lookup table
var AllResourceTypes = []ResourceType{
	ResourceTypeServer,
	ResourceTypeDomain,
	ResourceTypeDatabase,
	ResourceTypeBackup,
	ResourceTypeAlert,
}

// ErrUnknownResourceType is returned for table names that do not map to a resource type.
var ErrUnknownResourceType = errors.New("unknown resource type")

// ParseResourceType accepts both singular and plural table names ("servers", "server").
func ParseResourceType(s string) (ResourceType, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	for _, rt := range AllResourceTypes {
		if s == string(rt) || s == string(rt)+"s" {
			return rt, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownResourceType, s)
}

// Fingerprint holds the attributes used to recognise the same real-world resource
// when it is reported by more than one dock.
type Fingerprint struct {
	// CrossRefID is a provider-assigned reference that other docks can also expose,
	// e.g. "digitalocean:droplet:4815" reported by both DigitalOcean and GridPane.
	CrossRefID string `json:"cross_ref_id,omitempty"`
	Hostname   string `json:"hostname,omitempty"`
	PublicIP   string `json:"public_ip,omitempty"`
}

// IsEmpty reports whether no fingerprint field is set.
func (f Fingerprint) IsEmpty() bool {
	return f.CrossRefID == "" && f.Hostname == "" && f.PublicIP == ""
}

// ExtensionBlob is the provider payload attached to a record. It is passed through
// untouched; only the dock that produced it knows how to decode Raw.
type ExtensionBlob struct {
	Provider string          `json:"provider"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// ResourceRecord is one infrastructure item as reported by one dock.
type ResourceRecord struct {
	ID           string        `json:"id"`
	ResourceType ResourceType  `json:"resource_type"`
	ProviderName string        `json:"provider_name"`
	Fingerprint  Fingerprint   `json:"fingerprint"`
	Name         string        `json:"name,omitempty"`
	Status       string        `json:"status,omitempty"`
	Region       string        `json:"region,omitempty"`
	ProviderData ExtensionBlob `json:"provider_data"`
	LastSyncedAt time.Time     `json:"last_synced_at"`

	// Sources holds the original records merged into this one. It is empty for a
	// record that was never merged.
	Sources []ResourceRecord `json:"sources,omitempty"`
}

// SourceKey identifies a record within its dock's namespace.
func (r *ResourceRecord) SourceKey() string {
	return r.ProviderName + "/" + r.ID
}

// MergedCount returns how many original records this record stands for.
func (r *ResourceRecord) MergedCount() int {
	if len(r.Sources) == 0 {
		return 1
	}

	return len(r.Sources)
}

// Originals returns the source records behind r, or r itself when it was never merged.
func (r *ResourceRecord) Originals() []ResourceRecord {
	if len(r.Sources) == 0 {
		cp := *r
		cp.Sources = nil

		return []ResourceRecord{cp}
	}

	return r.Sources
}
