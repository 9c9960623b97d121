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
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/stackdock/pkg/logger"
	"github.com/carverauto/stackdock/pkg/models"
	"github.com/carverauto/stackdock/pkg/reconcile"
)

// Watcher reconciles every loaded snapshot of its resource types and
// publishes the result. Loading snapshots are never reconciled.
type Watcher struct {
	source     DataSource
	reconciler *reconcile.Reconciler
	views      *Views
	logger     logger.Logger
}

func NewWatcher(source DataSource, r *reconcile.Reconciler, views *Views, log logger.Logger) *Watcher {
	if r == nil {
		r = reconcile.New()
	}

	return &Watcher{source: source, reconciler: r, views: views, logger: log}
}

// Run blocks until ctx is done or a subscription fails.
func (w *Watcher) Run(ctx context.Context, types ...models.ResourceType) error {
	if len(types) == 0 {
		types = models.AllResourceTypes
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	for _, rt := range types {
		snaps, err := w.source.Subscribe(ctx, rt)
		if err != nil {
			cancel()
			_ = g.Wait()

			return fmt.Errorf("subscribe %s: %w", rt, err)
		}

		g.Go(func() error {
			for snap := range snaps {
				w.handle(ctx, snap)
			}

			return nil
		})
	}

	return g.Wait()
}

func (w *Watcher) handle(ctx context.Context, snap models.Snapshot) {
	if snap.Loading {
		w.logger.Debug().Str("resource_type", string(snap.ResourceType)).Msg("Snapshot still loading")
		return
	}

	start := time.Now()
	rows := w.reconciler.Reconcile(snap.Records)
	took := time.Since(start)

	summary := reconcile.Summarize(snap.Records, rows)
	recordReconcile(ctx, snap.ResourceType, summary, took)

	w.views.Publish(&models.View{
		ResourceType: snap.ResourceType,
		Rows:         rows,
		SourceCount:  summary.Input,
		Revision:     snap.Revision,
		UpdatedAt:    snap.TakenAt,
	})

	w.logger.Debug().
		Str("resource_type", string(snap.ResourceType)).
		Uint64("revision", snap.Revision).
		Int("sources", summary.Input).
		Int("rows", summary.Output).
		Int("merged", summary.MergedGroups).
		Dur("took", took).
		Msg("Published reconciled view")
}
