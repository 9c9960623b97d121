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

// Package store persists the records docks report so that snapshot sources
// can serve them to the reconciler.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/carverauto/stackdock/pkg/models"
)

//go:generate mockgen -destination=mock_store.go -package=store github.com/carverauto/stackdock/pkg/store RecordWriter,RecordReader

var (
	ErrInvalidRecord = errors.New("record needs id, resource type and provider")
	ErrNotConfigured = errors.New("store not configured")
)

// RecordWriter receives fresh records from the sync service.
type RecordWriter interface {
	// UpsertRecords inserts or replaces records keyed by (provider, type, id).
	UpsertRecords(ctx context.Context, records []*models.ResourceRecord) error
	// PruneStale removes a provider's records of one type last synced before the cutoff.
	PruneStale(ctx context.Context, provider string, rt models.ResourceType, before time.Time) (int, error)
}

// RecordReader lists stored source records.
type RecordReader interface {
	// ListRecords returns every stored record of a type ordered by (provider, id).
	ListRecords(ctx context.Context, rt models.ResourceType) ([]*models.ResourceRecord, error)
}

// Store is a full read/write record store.
type Store interface {
	RecordWriter
	RecordReader
	Close() error
}

func validate(rec *models.ResourceRecord) error {
	if rec == nil || rec.ID == "" || rec.ResourceType == "" || rec.ProviderName == "" {
		return ErrInvalidRecord
	}

	return nil
}

// sourceOnly strips provenance; stores only ever hold source records.
func sourceOnly(rec *models.ResourceRecord) *models.ResourceRecord {
	cp := *rec
	cp.Sources = nil

	return &cp
}
