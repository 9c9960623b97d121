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
	"crypto/sha256"
	"time"

	"github.com/carverauto/stackdock/pkg/clock"
	"github.com/carverauto/stackdock/pkg/logger"
	"github.com/carverauto/stackdock/pkg/models"
	"github.com/carverauto/stackdock/pkg/store"
)

const defaultPollInterval = 15 * time.Second

// PollSource re-reads a record store on a ticker and emits a snapshot
// whenever the content changes.
type PollSource struct {
	reader   store.RecordReader
	clock    clock.Clock
	interval time.Duration
	logger   logger.Logger
}

func NewPollSource(reader store.RecordReader, interval time.Duration, clk clock.Clock, log logger.Logger) *PollSource {
	if interval <= 0 {
		interval = defaultPollInterval
	}

	if clk == nil {
		clk = clock.Real()
	}

	return &PollSource{reader: reader, clock: clk, interval: interval, logger: log}
}

func (p *PollSource) Subscribe(ctx context.Context, rt models.ResourceType) (<-chan models.Snapshot, error) {
	if rt == "" {
		return nil, ErrNoResourceType
	}

	ch := make(chan models.Snapshot, 1)

	go p.run(ctx, rt, ch)

	return ch, nil
}

func (p *PollSource) run(ctx context.Context, rt models.ResourceType, ch chan<- models.Snapshot) {
	defer close(ch)

	ticker := p.clock.Ticker(p.interval)
	defer ticker.Stop()

	var (
		revision uint64
		last     [sha256.Size]byte
		loaded   bool
	)

	if !send(ctx, ch, models.Snapshot{ResourceType: rt, Loading: true, TakenAt: p.clock.Now()}) {
		return
	}

	poll := func() bool {
		records, err := p.reader.ListRecords(ctx, rt)
		if err != nil {
			if ctx.Err() == nil {
				p.logger.Warn().Err(err).Str("resource_type", string(rt)).Msg("Snapshot poll failed")
			}

			return true
		}

		sum := contentHash(records)
		if loaded && sum == last {
			return true
		}

		loaded, last = true, sum
		revision++

		return send(ctx, ch, models.Snapshot{
			ResourceType: rt,
			Records:      records,
			Revision:     revision,
			TakenAt:      p.clock.Now(),
		})
	}

	if !poll() {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if !poll() {
				return
			}
		}
	}
}
