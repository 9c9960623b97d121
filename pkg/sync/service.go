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

// Package sync polls the configured docks and writes their records to the
// record stores, pruning records a provider no longer reports.
package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	stdsync "sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/carverauto/stackdock/pkg/clock"
	"github.com/carverauto/stackdock/pkg/docks"
	"github.com/carverauto/stackdock/pkg/logger"
	"github.com/carverauto/stackdock/pkg/models"
	"github.com/carverauto/stackdock/pkg/store"
)

const maxConcurrentFetches = 4

var (
	errAlreadyStarted = errors.New("sync service already started")
	errNoWriters      = errors.New("at least one record writer is required")
)

type dockRunner struct {
	name    string
	cfg     *models.DockConfig
	dock    docks.Dock
	breaker *docks.CircuitBreaker
}

type fetchResult struct {
	runner  *dockRunner
	records []*models.ResourceRecord
	started time.Time
	err     error
}

// Service fetches every dock on a ticker.
type Service struct {
	cfg     Config
	runners []*dockRunner
	writers []store.RecordWriter
	clock   clock.Clock
	metrics Metrics
	breaker docks.BreakerConfig
	tracer  trace.Tracer
	logger  logger.Logger

	mu     stdsync.RWMutex
	status map[string]*models.DockStatus
	cancel context.CancelFunc
	done   chan struct{}
}

// Option customises a Service.
type Option func(*Service)

func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithBreakerConfig(c docks.BreakerConfig) Option {
	return func(s *Service) {
		s.breaker = c
	}
}

// NewService validates cfg and builds one dock per entry through registry.
func NewService(cfg *Config, registry *docks.Registry, writers []store.RecordWriter, log logger.Logger, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if len(writers) == 0 {
		return nil, errNoWriters
	}

	s := &Service{
		cfg:     *cfg,
		writers: writers,
		clock:   clock.Real(),
		metrics: NoOpMetrics{},
		breaker: docks.DefaultBreakerConfig(),
		tracer:  logger.GetTracer("stackdock/sync"),
		logger:  log,
		status:  make(map[string]*models.DockStatus),
	}

	for _, opt := range opts {
		opt(s)
	}

	names := make([]string, 0, len(cfg.Docks))
	for name := range cfg.Docks {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		dockCfg := cfg.Docks[name]

		dock, err := registry.New(dockCfg, log)
		if err != nil {
			return nil, fmt.Errorf("dock %s: %w", name, err)
		}

		s.runners = append(s.runners, &dockRunner{
			name:    name,
			cfg:     dockCfg,
			dock:    dock,
			breaker: docks.NewCircuitBreaker(name, s.breaker, s.clock, log),
		})

		s.status[name] = &models.DockStatus{
			Name:         name,
			Type:         dockCfg.Type,
			CircuitState: docks.StateClosed.String(),
		}
	}

	return s, nil
}

// Start runs a sync immediately and then on every poll interval.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return errAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	ticker := s.clock.Ticker(time.Duration(s.cfg.PollInterval))

	go func() {
		defer close(s.done)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				s.runOnce(ctx)
			}
		}
	}()

	s.logger.Info().
		Int("docks", len(s.runners)).
		Dur("poll_interval", time.Duration(s.cfg.PollInterval)).
		Msg("Sync service started")

	return nil
}

// Stop cancels the poll loop and waits for an in-flight sync to return.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()

	select {
	case <-done:
		s.logger.Info().Msg("Sync service stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) runOnce(ctx context.Context) {
	if err := s.Sync(ctx); err != nil && ctx.Err() == nil {
		s.logger.Warn().Err(err).Msg("Sync finished with errors")
	}
}

// Sync fetches all docks concurrently. A failing dock does not stop the
// others; its error is recorded in Status and joined into the result.
func (s *Service) Sync(ctx context.Context) error {
	results := make([]fetchResult, len(s.runners))

	var g errgroup.Group

	g.SetLimit(maxConcurrentFetches)

	for i, r := range s.runners {
		g.Go(func() error {
			results[i] = s.fetch(ctx, r)
			return nil
		})
	}

	_ = g.Wait()

	var errs []error

	// providers whose records cannot be pruned this round
	unsafe := make(map[string]bool)
	cutoff := make(map[string]time.Time)

	for i := range results {
		res := &results[i]
		provider := res.runner.dock.Name()

		if res.err != nil {
			unsafe[provider] = true

			errs = append(errs, fmt.Errorf("dock %s: %w", res.runner.name, res.err))

			continue
		}

		if err := s.write(ctx, res.records); err != nil {
			unsafe[provider] = true

			errs = append(errs, fmt.Errorf("dock %s: %w", res.runner.name, err))
			s.setError(res.runner, err)

			continue
		}

		if c, ok := cutoff[provider]; !ok || res.started.Before(c) {
			cutoff[provider] = res.started
		}
	}

	for provider, before := range cutoff {
		if unsafe[provider] {
			s.logger.Info().Str("provider", provider).Msg("Skipping prune, a dock of this provider failed")
			continue
		}

		if err := s.prune(ctx, provider, before); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (s *Service) fetch(ctx context.Context, r *dockRunner) fetchResult {
	started := s.clock.Now()

	ctx, span := s.tracer.Start(ctx, "sync.fetch", trace.WithAttributes(
		attribute.String("dock.name", r.name),
		attribute.String("dock.type", r.cfg.Type),
	))
	defer span.End()

	var records []*models.ResourceRecord

	err := r.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error

		records, err = r.dock.Fetch(ctx)

		return err
	})

	finished := s.clock.Now()
	took := finished.Sub(started)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		s.metrics.RecordFetchFailure(r.name, err, took)
		s.setError(r, err)

		s.logger.Error().Err(err).Str("dock", r.name).Dur("took", took).Msg("Dock fetch failed")

		return fetchResult{runner: r, started: started, err: err}
	}

	stamped := stamp(r, records, finished)

	span.SetAttributes(attribute.Int("dock.records", len(stamped)))
	s.metrics.RecordFetchSuccess(r.name, len(stamped), took)
	s.setSuccess(r, finished, len(stamped))

	s.logger.Info().
		Str("dock", r.name).
		Int("records", len(stamped)).
		Dur("took", took).
		Msg("Dock fetch complete")

	return fetchResult{runner: r, records: stamped, started: started}
}

// stamp drops records the dock is not configured to feed and marks the rest
// with the dock's provider name and sync time.
func stamp(r *dockRunner, records []*models.ResourceRecord, at time.Time) []*models.ResourceRecord {
	provider := r.dock.Name()
	out := make([]*models.ResourceRecord, 0, len(records))

	for _, rec := range records {
		if rec == nil || rec.ID == "" || !r.cfg.Wants(rec.ResourceType) {
			continue
		}

		cp := *rec
		cp.ProviderName = provider
		cp.ProviderData.Provider = provider
		cp.LastSyncedAt = at
		cp.Sources = nil

		out = append(out, &cp)
	}

	return out
}

func (s *Service) write(ctx context.Context, records []*models.ResourceRecord) error {
	for _, w := range s.writers {
		if err := w.UpsertRecords(ctx, records); err != nil {
			return fmt.Errorf("write records: %w", err)
		}
	}

	return nil
}

func (s *Service) prune(ctx context.Context, provider string, before time.Time) error {
	var errs []error

	for _, rt := range s.prunableTypes(provider) {
		for _, w := range s.writers {
			removed, err := w.PruneStale(ctx, provider, rt, before)
			if err != nil {
				errs = append(errs, fmt.Errorf("prune %s %s: %w", provider, rt, err))
				continue
			}

			if removed > 0 {
				s.metrics.RecordPruned(provider, removed)
				s.logger.Info().
					Str("provider", provider).
					Str("resource_type", string(rt)).
					Int("removed", removed).
					Msg("Pruned stale records")
			}
		}
	}

	return errors.Join(errs...)
}

// prunableTypes lists the types any dock of the provider is configured to feed.
func (s *Service) prunableTypes(provider string) []models.ResourceType {
	var out []models.ResourceType

	for _, rt := range models.AllResourceTypes {
		for _, r := range s.runners {
			if r.dock.Name() == provider && r.cfg.Wants(rt) {
				out = append(out, rt)
				break
			}
		}
	}

	return out
}

func (s *Service) setSuccess(r *dockRunner, at time.Time, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.status[r.name]
	st.LastSyncAt = at
	st.LastError = ""
	st.RecordCount = count
}

func (s *Service) setError(r *dockRunner, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status[r.name].LastError = err.Error()
}

// Status reports every dock ordered by name.
func (s *Service) Status() []models.DockStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.DockStatus, 0, len(s.runners))

	for _, r := range s.runners {
		st := *s.status[r.name]
		st.CircuitState = r.breaker.State().String()
		out = append(out, st)
	}

	return out
}
