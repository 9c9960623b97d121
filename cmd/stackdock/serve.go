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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/carverauto/stackdock/pkg/api"
	"github.com/carverauto/stackdock/pkg/clock"
	"github.com/carverauto/stackdock/pkg/lifecycle"
	"github.com/carverauto/stackdock/pkg/logger"
	"github.com/carverauto/stackdock/pkg/reconcile"
	"github.com/carverauto/stackdock/pkg/snapshot"
	"github.com/carverauto/stackdock/pkg/store"
	"github.com/carverauto/stackdock/pkg/sync"
	"github.com/carverauto/stackdock/pkg/version"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Sync the docks and serve the reconciled tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, log, err := opts.loadConfig(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = lifecycle.ShutdownLogger() }()

			initTelemetry(ctx, cfg, log)

			b, err := openBackends(ctx, cfg, log)
			if err != nil {
				return err
			}

			defer b.close()

			svc, err := sync.NewService(cfg, sync.DefaultRegistry(), b.writers, log,
				sync.WithMetrics(sync.NewOTelMetrics()))
			if err != nil {
				return err
			}

			views := snapshot.NewViews()
			watcher := snapshot.NewWatcher(b.source,
				reconcile.New(reconcile.WithProviderPriority(cfg.ProviderPriority)), views, log)

			server := api.NewServer(cfg.ListenAddr, views, log,
				api.WithCORS(cfg.CORS),
				api.WithAPIKey(cfg.APIKey),
				api.WithStatus(svc))

			return lifecycle.RunServices(ctx, log,
				lifecycle.NewFuncService("watcher", log, func(ctx context.Context) error {
					return watcher.Run(ctx)
				}),
				svc,
				server,
			)
		},
	}
}

func initTelemetry(ctx context.Context, cfg *sync.Config, log logger.Logger) {
	otelCfg := cfg.Logging.OTel

	if _, err := logger.InitializeTracing(ctx, logger.TracingConfig{
		ServiceName:    "stackdock",
		ServiceVersion: version.GetVersion(),
		Logger:         log,
		OTel:           &otelCfg,
	}); err != nil {
		log.Warn().Err(err).Msg("Tracing disabled")
	}

	_, err := logger.InitializeMetrics(ctx, logger.MetricsConfig{
		ServiceName:    "stackdock",
		ServiceVersion: version.GetVersion(),
		OTel:           &otelCfg,
	})
	if err != nil && !errors.Is(err, logger.ErrOTelMetricsDisabled) {
		log.Warn().Err(err).Msg("Metrics export disabled")
	}
}

// backends holds the record stores and the snapshot source fed by them.
type backends struct {
	writers []store.RecordWriter
	source  snapshot.DataSource
	closers []io.Closer
}

// openBackends writes to every configured store. The NATS bucket is watched
// when present; otherwise the first readable store is polled. Without any
// store the records live in memory.
func openBackends(ctx context.Context, cfg *sync.Config, log logger.Logger) (*backends, error) {
	b := &backends{}

	var reader store.RecordReader

	if cfg.Postgres != nil {
		pg, err := store.NewPostgresStore(ctx, cfg.Postgres, log)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}

		b.writers = append(b.writers, pg)
		b.closers = append(b.closers, pg)
		reader = pg
	}

	if cfg.NATS != nil && cfg.NATS.URL != "" {
		kv, err := store.ConnectKV(ctx, cfg.NATS, log)
		if err != nil {
			b.close()
			return nil, fmt.Errorf("nats: %w", err)
		}

		b.writers = append(b.writers, kv)
		b.closers = append(b.closers, kv)
		b.source = snapshot.NewKVSource(kv.KeyValue(), log)
	}

	if len(b.writers) == 0 {
		mem := store.NewMemoryStore()
		b.writers = append(b.writers, mem)
		reader = mem

		log.Warn().Msg("No record store configured, keeping records in memory")
	}

	if b.source == nil {
		b.source = snapshot.NewPollSource(reader, time.Duration(cfg.SnapshotInterval), clock.Real(), log)
	}

	return b, nil
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i].Close()
	}
}
