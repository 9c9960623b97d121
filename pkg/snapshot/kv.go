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

package snapshot

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/stackdock/pkg/logger"
	"github.com/carverauto/stackdock/pkg/models"
	"github.com/carverauto/stackdock/pkg/store"
)

// KVSource follows a JetStream key-value bucket. Initial values accumulate
// while the snapshot is loading; the watcher's end-of-initial marker flips it
// to loaded and every later put or delete emits a new snapshot.
type KVSource struct {
	kv     jetstream.KeyValue
	logger logger.Logger
	now    func() time.Time
}

func NewKVSource(kv jetstream.KeyValue, log logger.Logger) *KVSource {
	return &KVSource{kv: kv, logger: log, now: time.Now}
}

func (k *KVSource) Subscribe(ctx context.Context, rt models.ResourceType) (<-chan models.Snapshot, error) {
	if rt == "" {
		return nil, ErrNoResourceType
	}

	filter := store.KVPrefix(rt) + ">"

	w, err := k.kv.Watch(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", filter, err)
	}

	ch := make(chan models.Snapshot, 1)

	go k.run(ctx, rt, w, ch)

	return ch, nil
}

func (k *KVSource) run(ctx context.Context, rt models.ResourceType, w jetstream.KeyWatcher, ch chan<- models.Snapshot) {
	defer func() {
		if err := w.Stop(); err != nil {
			k.logger.Debug().Err(err).Str("resource_type", string(rt)).Msg("Failed to stop KV watcher")
		}

		close(ch)
	}()

	var revision uint64

	state := make(map[string]*models.ResourceRecord)
	loading := true

	if !send(ctx, ch, models.Snapshot{ResourceType: rt, Loading: true, TakenAt: k.now()}) {
		return
	}

	for {
		var (
			entry jetstream.KeyValueEntry
			ok    bool
		)

		select {
		case <-ctx.Done():
			return
		case entry, ok = <-w.Updates():
			if !ok {
				return
			}
		}

		if entry == nil {
			loading = false
		} else {
			k.apply(state, entry)
		}

		if loading {
			continue
		}

		revision++

		if !send(ctx, ch, models.Snapshot{
			ResourceType: rt,
			Records:      records(state),
			Revision:     revision,
			TakenAt:      k.now(),
		}) {
			return
		}
	}
}

func (k *KVSource) apply(state map[string]*models.ResourceRecord, entry jetstream.KeyValueEntry) {
	if entry.Operation() != jetstream.KeyValuePut {
		delete(state, entry.Key())
		return
	}

	rec, err := store.DecodeEntry(entry.Value())
	if err != nil {
		k.logger.Warn().Err(err).Str("key", entry.Key()).Msg("Skipping undecodable record")
		delete(state, entry.Key())

		return
	}

	state[entry.Key()] = rec
}

// records copies the state into a (provider, id) ordered slice so snapshots
// never share memory with the watcher.
func records(state map[string]*models.ResourceRecord) []*models.ResourceRecord {
	out := make([]*models.ResourceRecord, 0, len(state))

	for _, rec := range state {
		cp := *rec
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ProviderName != out[j].ProviderName {
			return out[i].ProviderName < out[j].ProviderName
		}

		return out[i].ID < out[j].ID
	})

	return out
}
