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

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/carverauto/stackdock/pkg/models"
)

// MemoryStore keeps records in process. It backs tests and single-node runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[models.ResourceType]map[string]*models.ResourceRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[models.ResourceType]map[string]*models.ResourceRecord)}
}

func (m *MemoryStore) UpsertRecords(_ context.Context, records []*models.ResourceRecord) error {
	for _, rec := range records {
		if err := validate(rec); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range records {
		byKey, ok := m.records[rec.ResourceType]
		if !ok {
			byKey = make(map[string]*models.ResourceRecord)
			m.records[rec.ResourceType] = byKey
		}

		byKey[rec.SourceKey()] = sourceOnly(rec)
	}

	return nil
}

func (m *MemoryStore) PruneStale(_ context.Context, provider string, rt models.ResourceType, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0

	for key, rec := range m.records[rt] {
		if rec.ProviderName == provider && rec.LastSyncedAt.Before(before) {
			delete(m.records[rt], key)
			removed++
		}
	}

	return removed, nil
}

func (m *MemoryStore) ListRecords(_ context.Context, rt models.ResourceType) ([]*models.ResourceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.ResourceRecord, 0, len(m.records[rt]))
	for _, rec := range m.records[rt] {
		out = append(out, sourceOnly(rec))
	}

	sortRecords(out)

	return out, nil
}

func (*MemoryStore) Close() error {
	return nil
}

func sortRecords(records []*models.ResourceRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].ProviderName != records[j].ProviderName {
			return records[i].ProviderName < records[j].ProviderName
		}

		return records[i].ID < records[j].ID
	})
}
