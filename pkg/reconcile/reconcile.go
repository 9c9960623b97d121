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

// Package reconcile merges resource records that several docks report for the
// same real-world resource.
//
// Grouping:
//  1. Fingerprint key from the highest-precedence field present
//     (cross reference id > hostname > public IP), case-insensitive.
//  2. Records without a usable field are singletons and never merge.
//  3. Within a group the newest LastSyncedAt represents the group, then the
//     provider priority order, then provider name and id.
//
// Reconcile is pure: it never mutates its input and keeps every source record
// reachable through the merged record's Sources.
package reconcile

import (
	"sort"

	"github.com/carverauto/stackdock/pkg/models"
)

// Reconciler deduplicates resource records. The zero value is not usable; build
// one with New. A Reconciler is immutable and safe for concurrent use.
type Reconciler struct {
	rank providerRank
}

type Option func(*Reconciler)

// WithProviderPriority sets the order used to break LastSyncedAt ties.
func WithProviderPriority(order []string) Option {
	return func(r *Reconciler) {
		if len(order) > 0 {
			r.rank = newProviderRank(order)
		}
	}
}

func New(opts ...Option) *Reconciler {
	r := &Reconciler{rank: newProviderRank(DefaultProviderPriority)}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

//nolint:gochecknoglobals // default instance for the package-level helper
var defaultReconciler = New()

// Reconcile deduplicates records with the default provider priority.
func Reconcile(records []*models.ResourceRecord) []*models.ResourceRecord {
	return defaultReconciler.Reconcile(records)
}

type group struct {
	members []*models.ResourceRecord
}

// Reconcile returns one record per logical resource, in the order each logical
// resource was first seen. Records that did not collide are returned as-is;
// collisions produce a new record carrying the representative's fields and the
// contributing source records in Sources. Nil entries are skipped.
func (r *Reconciler) Reconcile(records []*models.ResourceRecord) []*models.ResourceRecord {
	groups := make([]*group, 0, len(records))
	byKey := make(map[string]*group, len(records))

	for _, rec := range records {
		if rec == nil {
			continue
		}

		key := FingerprintKey(rec)
		if key == "" {
			groups = append(groups, &group{members: []*models.ResourceRecord{rec}})
			continue
		}

		if g, ok := byKey[key]; ok {
			g.members = append(g.members, rec)
			continue
		}

		g := &group{members: []*models.ResourceRecord{rec}}
		byKey[key] = g
		groups = append(groups, g)
	}

	out := make([]*models.ResourceRecord, 0, len(groups))

	for _, g := range groups {
		if len(g.members) == 1 {
			out = append(out, g.members[0])
			continue
		}

		out = append(out, r.merge(g.members))
	}

	return out
}

func (r *Reconciler) merge(members []*models.ResourceRecord) *models.ResourceRecord {
	sources := r.flatten(members)

	winner := 0
	for i := 1; i < len(sources); i++ {
		if r.rank.prefer(&sources[i], &sources[winner]) {
			winner = i
		}
	}

	merged := sources[winner]

	// the same source reported twice is not a merge
	if len(sources) > 1 {
		merged.Sources = sources
	}

	return &merged
}

// flatten expands already-merged members into their sources so that merging is
// associative, drops repeated copies of the same source and sorts the result.
func (r *Reconciler) flatten(members []*models.ResourceRecord) []models.ResourceRecord {
	index := make(map[string]int, len(members))
	out := make([]models.ResourceRecord, 0, len(members))

	for _, m := range members {
		for _, src := range m.Originals() {
			src.Sources = nil

			key := src.SourceKey()
			if i, ok := index[key]; ok {
				if r.rank.prefer(&src, &out[i]) {
					out[i] = src
				}

				continue
			}

			index[key] = len(out)
			out = append(out, src)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return sourceLess(&out[i], &out[j])
	})

	return out
}
