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

package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/stackdock/pkg/clock"
	"github.com/carverauto/stackdock/pkg/docks"
	"github.com/carverauto/stackdock/pkg/logger"
	"github.com/carverauto/stackdock/pkg/models"
	"github.com/carverauto/stackdock/pkg/store"
)

var errProviderDown = errors.New("provider down")

//nolint:gochecknoglobals // fixed test clock
var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// steppingClock advances one second on every Now call.
func steppingClock(ctrl *gomock.Controller) *clock.MockClock {
	var mu stdsync.Mutex

	now := t0
	c := clock.NewMockClock(ctrl)
	c.EXPECT().Now().DoAndReturn(func() time.Time {
		mu.Lock()
		defer mu.Unlock()

		now = now.Add(time.Second)

		return now
	}).AnyTimes()

	return c
}

func rec(rt models.ResourceType, id string) *models.ResourceRecord {
	return &models.ResourceRecord{ID: id, ResourceType: rt, ProviderName: "ignored"}
}

type fixture struct {
	ctrl     *gomock.Controller
	docks    map[string]*docks.MockDock
	registry *docks.Registry
	cfg      *Config
}

func newFixture(t *testing.T, names ...string) *fixture {
	t.Helper()

	f := &fixture{
		ctrl:     gomock.NewController(t),
		docks:    make(map[string]*docks.MockDock),
		registry: docks.NewRegistry(),
		cfg:      &Config{Docks: make(map[string]*models.DockConfig)},
	}

	for _, name := range names {
		d := docks.NewMockDock(f.ctrl)
		d.EXPECT().Name().Return(name).AnyTimes()
		f.docks[name] = d

		require.NoError(t, f.registry.Register(name, func(*models.DockConfig, logger.Logger) (docks.Dock, error) {
			return d, nil
		}))

		f.cfg.Docks[name] = &models.DockConfig{Credentials: map[string]string{"api_token": "t"}}
	}

	return f
}

func (f *fixture) service(t *testing.T, writers ...store.RecordWriter) *Service {
	t.Helper()

	s, err := NewService(f.cfg, f.registry, writers, logger.NewTestLogger(),
		WithClock(steppingClock(f.ctrl)),
		WithBreakerConfig(docks.BreakerConfig{
			FailureThreshold: 2,
			SuccessThreshold: 1,
			Timeout:          time.Hour,
			ResetTimeout:     time.Hour,
		}))
	require.NoError(t, err)

	return s
}

func TestSyncWritesStampedRecords(t *testing.T) {
	f := newFixture(t, "digitalocean", "vercel")
	mem := store.NewMemoryStore()
	s := f.service(t, mem)

	f.docks["digitalocean"].EXPECT().Fetch(gomock.Any()).Return([]*models.ResourceRecord{
		rec(models.ResourceTypeServer, "1"),
		nil,
		rec(models.ResourceTypeServer, ""),
	}, nil)
	f.docks["vercel"].EXPECT().Fetch(gomock.Any()).Return([]*models.ResourceRecord{
		rec(models.ResourceTypeDomain, "dom_1"),
	}, nil)

	ctx := context.Background()
	require.NoError(t, s.Sync(ctx))

	servers, err := mem.ListRecords(ctx, models.ResourceTypeServer)
	require.NoError(t, err)
	require.Len(t, servers, 1)
	assert.Equal(t, "digitalocean", servers[0].ProviderName)
	assert.Equal(t, "digitalocean", servers[0].ProviderData.Provider)
	assert.True(t, servers[0].LastSyncedAt.After(t0))

	domains, err := mem.ListRecords(ctx, models.ResourceTypeDomain)
	require.NoError(t, err)
	require.Len(t, domains, 1)
	assert.Equal(t, "vercel", domains[0].ProviderName)

	status := s.Status()
	require.Len(t, status, 2)
	assert.Equal(t, "digitalocean", status[0].Name)
	assert.Equal(t, 1, status[0].RecordCount)
	assert.Empty(t, status[0].LastError)
	assert.Equal(t, "closed", status[0].CircuitState)
}

func TestSyncPrunesVanishedRecords(t *testing.T) {
	f := newFixture(t, "gridpane")
	mem := store.NewMemoryStore()
	s := f.service(t, mem)

	gomock.InOrder(
		f.docks["gridpane"].EXPECT().Fetch(gomock.Any()).Return([]*models.ResourceRecord{
			rec(models.ResourceTypeServer, "1"),
			rec(models.ResourceTypeServer, "2"),
		}, nil),
		f.docks["gridpane"].EXPECT().Fetch(gomock.Any()).Return([]*models.ResourceRecord{
			rec(models.ResourceTypeServer, "1"),
		}, nil),
	)

	ctx := context.Background()
	require.NoError(t, s.Sync(ctx))
	require.NoError(t, s.Sync(ctx))

	servers, err := mem.ListRecords(ctx, models.ResourceTypeServer)
	require.NoError(t, err)
	require.Len(t, servers, 1)
	assert.Equal(t, "1", servers[0].ID)
}

func TestSyncFailingDockKeepsOthersAndSkipsPrune(t *testing.T) {
	f := newFixture(t, "digitalocean", "vercel")
	mem := store.NewMemoryStore()
	s := f.service(t, mem)

	ctx := context.Background()

	stale := rec(models.ResourceTypeServer, "old")
	stale.ProviderName = "digitalocean"
	stale.LastSyncedAt = t0.Add(-time.Hour)
	require.NoError(t, mem.UpsertRecords(ctx, []*models.ResourceRecord{stale}))

	f.docks["digitalocean"].EXPECT().Fetch(gomock.Any()).Return(nil, errProviderDown)
	f.docks["vercel"].EXPECT().Fetch(gomock.Any()).Return([]*models.ResourceRecord{
		rec(models.ResourceTypeDomain, "dom_1"),
	}, nil)

	err := s.Sync(ctx)
	require.ErrorIs(t, err, errProviderDown)
	assert.Contains(t, err.Error(), "dock digitalocean")

	servers, err := mem.ListRecords(ctx, models.ResourceTypeServer)
	require.NoError(t, err)
	assert.Len(t, servers, 1, "records of a failed provider are not pruned")

	domains, err := mem.ListRecords(ctx, models.ResourceTypeDomain)
	require.NoError(t, err)
	assert.Len(t, domains, 1)

	status := s.Status()
	assert.Equal(t, errProviderDown.Error(), status[0].LastError)
	assert.Empty(t, status[1].LastError)
}

func TestSyncCircuitOpensAfterRepeatedFailures(t *testing.T) {
	f := newFixture(t, "vercel")
	s := f.service(t, store.NewMemoryStore())

	f.docks["vercel"].EXPECT().Fetch(gomock.Any()).Return(nil, errProviderDown).Times(2)

	ctx := context.Background()

	require.ErrorIs(t, s.Sync(ctx), errProviderDown)
	require.ErrorIs(t, s.Sync(ctx), errProviderDown)

	err := s.Sync(ctx)
	require.ErrorIs(t, err, docks.ErrCircuitOpen)
	assert.Equal(t, "open", s.Status()[0].CircuitState)
}

func TestSyncWriteFailure(t *testing.T) {
	f := newFixture(t, "gridpane")

	writer := store.NewMockRecordWriter(f.ctrl)
	writer.EXPECT().UpsertRecords(gomock.Any(), gomock.Len(1)).Return(errors.New("disk full"))

	s := f.service(t, writer)

	f.docks["gridpane"].EXPECT().Fetch(gomock.Any()).Return([]*models.ResourceRecord{
		rec(models.ResourceTypeBackup, "b1"),
	}, nil)

	err := s.Sync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, s.Status()[0].LastError, "disk full")
}

func TestSyncDropsUnwantedTypes(t *testing.T) {
	f := newFixture(t, "digitalocean")
	f.cfg.Docks["digitalocean"].ResourceTypes = []models.ResourceType{models.ResourceTypeServer}

	writer := store.NewMockRecordWriter(f.ctrl)
	writer.EXPECT().UpsertRecords(gomock.Any(), gomock.Len(1)).Return(nil)
	writer.EXPECT().PruneStale(gomock.Any(), "digitalocean", models.ResourceTypeServer, gomock.Any()).Return(0, nil)

	s := f.service(t, writer)

	f.docks["digitalocean"].EXPECT().Fetch(gomock.Any()).Return([]*models.ResourceRecord{
		rec(models.ResourceTypeServer, "1"),
		rec(models.ResourceTypeDomain, "example.com"),
	}, nil)

	require.NoError(t, s.Sync(context.Background()))
}

func TestNewServiceErrors(t *testing.T) {
	f := newFixture(t, "vercel")

	_, err := NewService(f.cfg, f.registry, nil, logger.NewTestLogger())
	require.ErrorIs(t, err, errNoWriters)

	f.cfg.Docks["heroku"] = &models.DockConfig{Credentials: map[string]string{"api_token": "t"}}

	_, err = NewService(f.cfg, f.registry, []store.RecordWriter{store.NewMemoryStore()}, logger.NewTestLogger())
	require.ErrorIs(t, err, docks.ErrUnknownDockType)
}

func TestStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, "vercel")

	ticks := make(chan time.Time)
	ticker := clock.NewMockTicker(f.ctrl)
	ticker.EXPECT().Chan().Return((<-chan time.Time)(ticks)).AnyTimes()
	ticker.EXPECT().Stop()

	clk := steppingClock(f.ctrl)
	clk.EXPECT().Ticker(5 * time.Minute).Return(ticker)

	s, err := NewService(f.cfg, f.registry, []store.RecordWriter{store.NewMemoryStore()}, logger.NewTestLogger(),
		WithClock(clk))
	require.NoError(t, err)

	fetched := make(chan struct{}, 2)

	f.docks["vercel"].EXPECT().Fetch(gomock.Any()).DoAndReturn(func(context.Context) ([]*models.ResourceRecord, error) {
		fetched <- struct{}{}
		return nil, nil
	}).Times(2)

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	require.ErrorIs(t, s.Start(ctx), errAlreadyStarted)

	<-fetched

	ticks <- t0

	<-fetched

	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
}
