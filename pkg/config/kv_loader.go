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

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/nats-io/nats.go/jetstream"
)

var errKVKeyNotFound = errors.New("key not found in KV bucket")

// KVLoader reads config documents stored under "config.<file name>".
type KVLoader struct {
	kv jetstream.KeyValue
}

func NewKVLoader(kv jetstream.KeyValue) *KVLoader {
	return &KVLoader{kv: kv}
}

// KVKey maps a config path to its bucket key, so
// "/etc/stackdock/stackdock.json" is stored as "config.stackdock.json".
func KVKey(path string) string {
	return "config." + filepath.Base(path)
}

func (k *KVLoader) Load(ctx context.Context, path string, dst interface{}) error {
	key := KVKey(path)

	entry, err := k.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("%w: '%s'", errKVKeyNotFound, key)
	}

	if err != nil {
		return fmt.Errorf("failed to get key '%s' from KV bucket: %w", key, err)
	}

	if err := json.Unmarshal(entry.Value(), dst); err != nil {
		return fmt.Errorf("failed to unmarshal JSON from key '%s': %w", key, err)
	}

	return nil
}
