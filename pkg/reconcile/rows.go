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
	"sort"

	"github.com/carverauto/stackdock/pkg/models"
)

// Rows turns reconciled records into table rows. Provenance is attached only
// when withSources is set.
func Rows(records []*models.ResourceRecord, withSources bool) []models.ResourceRow {
	rows := make([]models.ResourceRow, 0, len(records))

	for _, rec := range records {
		if rec == nil {
			continue
		}

		rep := *rec
		rep.Sources = nil

		row := models.ResourceRow{
			LogicalID:      LogicalID(rec),
			FingerprintKey: FingerprintKey(rec),
			Representative: rep,
			MergedCount:    rec.MergedCount(),
			Providers:      providers(rec),
		}

		if withSources {
			row.Sources = rec.Originals()
		}

		rows = append(rows, row)
	}

	return rows
}

func providers(rec *models.ResourceRecord) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, 1)

	for _, src := range rec.Originals() {
		if _, ok := seen[src.ProviderName]; ok {
			continue
		}

		seen[src.ProviderName] = struct{}{}
		out = append(out, src.ProviderName)
	}

	sort.Strings(out)

	return out
}

// Summary describes one reconciliation pass.
type Summary struct {
	Input        int
	Output       int
	MergedGroups int
}

// Summarize counts how much a pass collapsed.
func Summarize(input, output []*models.ResourceRecord) Summary {
	s := Summary{Output: len(output)}

	for _, rec := range input {
		if rec != nil {
			s.Input++
		}
	}

	for _, rec := range output {
		if rec != nil && len(rec.Sources) > 0 {
			s.MergedGroups++
		}
	}

	return s
}
