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

package reconcile

import (
	"bytes"
	"cmp"
	"strings"

	"github.com/carverauto/stackdock/pkg/models"
)

// DefaultProviderPriority ranks docks when two records were synced at the same
// instant. Infrastructure providers rank ahead of the platforms layered on them.
//
//nolint:gochecknoglobals // shared configuration constant
var DefaultProviderPriority = []string{
	"digitalocean",
	"vercel",
	"gridpane",
}

type providerRank map[string]int

func newProviderRank(order []string) providerRank {
	rank := make(providerRank, len(order))

	for i, name := range order {
		key := providerKey(name)
		if _, seen := rank[key]; !seen {
			rank[key] = i
		}
	}

	return rank
}

// of returns the rank of a provider; unknown providers rank after every known one.
func (p providerRank) of(provider string) int {
	if r, ok := p[providerKey(provider)]; ok {
		return r
	}

	return len(p)
}

// prefer reports whether a should represent a group over b. It is a strict
// total order over distinct records so the choice never depends on input order.
func (p providerRank) prefer(a, b *models.ResourceRecord) bool {
	if !a.LastSyncedAt.Equal(b.LastSyncedAt) {
		return a.LastSyncedAt.After(b.LastSyncedAt)
	}

	if ra, rb := p.of(a.ProviderName), p.of(b.ProviderName); ra != rb {
		return ra < rb
	}

	if a.ProviderName != b.ProviderName {
		return a.ProviderName < b.ProviderName
	}

	if a.ID != b.ID {
		return a.ID < b.ID
	}

	if c := cmp.Or(
		strings.Compare(a.Name, b.Name),
		strings.Compare(a.Status, b.Status),
		strings.Compare(a.Region, b.Region),
		strings.Compare(string(a.ResourceType), string(b.ResourceType)),
		strings.Compare(a.Fingerprint.CrossRefID, b.Fingerprint.CrossRefID),
		strings.Compare(a.Fingerprint.Hostname, b.Fingerprint.Hostname),
		strings.Compare(a.Fingerprint.PublicIP, b.Fingerprint.PublicIP),
		strings.Compare(a.ProviderData.Provider, b.ProviderData.Provider),
		bytes.Compare(a.ProviderData.Raw, b.ProviderData.Raw),
		strings.Compare(a.LastSyncedAt.Location().String(), b.LastSyncedAt.Location().String()),
	); c != 0 {
		return c < 0
	}

	return false
}

func providerKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// sourceLess orders provenance entries.
func sourceLess(a, b *models.ResourceRecord) bool {
	if a.ProviderName != b.ProviderName {
		return a.ProviderName < b.ProviderName
	}

	return a.ID < b.ID
}
