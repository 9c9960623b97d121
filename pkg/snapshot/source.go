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

// Package snapshot turns stored records into reconciled views. Sources emit
// immutable snapshots per resource type; the Watcher reconciles each loaded
// snapshot and publishes the result to Views.
package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"io"
	"time"

	"github.com/carverauto/stackdock/pkg/models"
)

var ErrNoResourceType = errors.New("resource type is required")

// DataSource yields snapshots of one resource type over time. The first
// snapshot may be a loading one; the channel closes when ctx is done.
type DataSource interface {
	Subscribe(ctx context.Context, rt models.ResourceType) (<-chan models.Snapshot, error)
}

// contentHash fingerprints a record list so unchanged reads are not re-emitted.
// Fields are hashed length-prefixed, so provider payloads need not be valid JSON.
func contentHash(records []*models.ResourceRecord) [sha256.Size]byte {
	h := sha256.New()

	for _, rec := range records {
		hashRecord(h, rec)
	}

	var sum [sha256.Size]byte

	copy(sum[:], h.Sum(nil))

	return sum
}

func hashRecord(w io.Writer, rec *models.ResourceRecord) {
	if rec == nil {
		writeLen(w, -1)
		return
	}

	for _, f := range []string{
		rec.ID,
		string(rec.ResourceType),
		rec.ProviderName,
		rec.Fingerprint.CrossRefID,
		rec.Fingerprint.Hostname,
		rec.Fingerprint.PublicIP,
		rec.Name,
		rec.Status,
		rec.Region,
		rec.ProviderData.Provider,
	} {
		writeField(w, []byte(f))
	}

	writeField(w, rec.ProviderData.Raw)
	writeField(w, rec.LastSyncedAt.AppendFormat(nil, time.RFC3339Nano))

	writeLen(w, len(rec.Sources))

	for i := range rec.Sources {
		hashRecord(w, &rec.Sources[i])
	}
}

func writeField(w io.Writer, b []byte) {
	writeLen(w, len(b))
	_, _ = w.Write(b)
}

func writeLen(w io.Writer, n int) {
	var buf [binary.MaxVarintLen64]byte

	_, _ = w.Write(buf[:binary.PutVarint(buf[:], int64(n))])
}

func send(ctx context.Context, ch chan<- models.Snapshot, snap models.Snapshot) bool {
	select {
	case ch <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}
