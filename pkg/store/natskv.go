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
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/stackdock/pkg/logger"
	"github.com/carverauto/stackdock/pkg/models"
)

// DefaultBucket is the JetStream key-value bucket records are mirrored into.
const DefaultBucket = "stackdock-resources"

// KVKey returns "<type>.<provider>.<id>" with the id encoded so that dots and
// other characters NATS keys reject stay inside a single token.
func KVKey(rec *models.ResourceRecord) string {
	return KVPrefix(rec.ResourceType) + rec.ProviderName + "." + base64.RawURLEncoding.EncodeToString([]byte(rec.ID))
}

// KVPrefix is the key prefix shared by every record of a type.
func KVPrefix(rt models.ResourceType) string {
	return string(rt) + "."
}

// KVStore mirrors records into a JetStream key-value bucket.
type KVStore struct {
	nc     *nats.Conn
	kv     jetstream.KeyValue
	logger logger.Logger
}

// ConnectKV dials NATS and opens (creating if needed) the records bucket.
func ConnectKV(ctx context.Context, cfg *models.NATSConfig, log logger.Logger) (*KVStore, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, ErrNotConfigured
	}

	opts := []nats.Option{nats.Name("stackdock")}

	if cfg.TLS != nil {
		opts = append(opts,
			nats.ClientCert(cfg.TLS.CertFile, cfg.TLS.KeyFile),
			nats.RootCAs(cfg.TLS.CAFile),
		)
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = DefaultBucket
	}

	kv, err := OpenBucket(ctx, nc, bucket)
	if err != nil {
		nc.Close()
		return nil, err
	}

	log.Info().Str("url", cfg.URL).Str("bucket", bucket).Msg("Connected to NATS KV")

	return &KVStore{nc: nc, kv: kv, logger: log}, nil
}

// OpenBucket returns the bucket, creating it on first use.
func OpenBucket(ctx context.Context, nc *nats.Conn, bucket string) (jetstream.KeyValue, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "StackDock bucket " + bucket,
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open KV bucket %s: %w", bucket, err)
	}

	return kv, nil
}

// NewKVStore wraps an already opened bucket.
func NewKVStore(kv jetstream.KeyValue, log logger.Logger) *KVStore {
	return &KVStore{kv: kv, logger: log}
}

// KeyValue exposes the bucket for watchers.
func (s *KVStore) KeyValue() jetstream.KeyValue {
	return s.kv
}

func (s *KVStore) UpsertRecords(ctx context.Context, records []*models.ResourceRecord) error {
	for _, rec := range records {
		if err := validate(rec); err != nil {
			return err
		}

		value, err := json.Marshal(sourceOnly(rec))
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", rec.SourceKey(), err)
		}

		key := KVKey(rec)
		if _, err := s.kv.Put(ctx, key, value); err != nil {
			return fmt.Errorf("failed to put key %s: %w", key, err)
		}
	}

	return nil
}

func (s *KVStore) PruneStale(ctx context.Context, provider string, rt models.ResourceType, before time.Time) (int, error) {
	records, err := s.load(ctx, KVPrefix(rt)+provider+".>")
	if err != nil {
		return 0, err
	}

	removed := 0

	for _, rec := range records {
		if !rec.LastSyncedAt.Before(before) {
			continue
		}

		key := KVKey(rec)
		if err := s.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
			return removed, fmt.Errorf("failed to delete key %s: %w", key, err)
		}

		removed++
	}

	return removed, nil
}

func (s *KVStore) ListRecords(ctx context.Context, rt models.ResourceType) ([]*models.ResourceRecord, error) {
	records, err := s.load(ctx, KVPrefix(rt)+">")
	if err != nil {
		return nil, err
	}

	sortRecords(records)

	return records, nil
}

// load reads the current values under a subject filter. The watcher delivers
// every live key followed by a nil marker.
func (s *KVStore) load(ctx context.Context, filter string) ([]*models.ResourceRecord, error) {
	w, err := s.kv.Watch(ctx, filter, jetstream.IgnoreDeletes())
	if err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", filter, err)
	}

	defer func() {
		if err := w.Stop(); err != nil {
			s.logger.Debug().Err(err).Str("filter", filter).Msg("Failed to stop KV watcher")
		}
	}()

	var out []*models.ResourceRecord

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case entry, ok := <-w.Updates():
			if !ok || entry == nil {
				return out, nil
			}

			rec, err := DecodeEntry(entry.Value())
			if err != nil {
				s.logger.Warn().Err(err).Str("key", entry.Key()).Msg("Skipping undecodable record")
				continue
			}

			out = append(out, rec)
		}
	}
}

// DecodeEntry parses a stored record value.
func DecodeEntry(value []byte) (*models.ResourceRecord, error) {
	var rec models.ResourceRecord
	if err := json.Unmarshal(value, &rec); err != nil {
		return nil, err
	}

	if err := validate(&rec); err != nil {
		return nil, err
	}

	return &rec, nil
}

func (s *KVStore) Close() error {
	if s.nc != nil {
		s.nc.Close()
	}

	return nil
}
