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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/carverauto/stackdock/pkg/lifecycle"
	"github.com/carverauto/stackdock/pkg/logger"
	"github.com/carverauto/stackdock/pkg/models"
	"github.com/carverauto/stackdock/pkg/reconcile"
)

var errTestRead = errors.New("read failed")

// chanSource hands out pre-made channels per resource type.
type chanSource struct {
	chans map[models.ResourceType]chan models.Snapshot
	err   error
}

func (c *chanSource) Subscribe(_ context.Context, rt models.ResourceType) (<-chan models.Snapshot, error) {
	if c.err != nil {
		return nil, c.err
	}

	return c.chans[rt], nil
}

func TestWatcherPublishesOnlyLoadedSnapshots(t *testing.T) {
	defer goleak.VerifyNone(t)

	servers := make(chan models.Snapshot)
	src := &chanSource{chans: map[models.ResourceType]chan models.Snapshot{models.ResourceTypeServer: servers}}

	views := NewViews()
	sub, stop := views.Subscribe(models.ResourceTypeServer)
	defer stop()

	w := NewWatcher(src, nil, views, logger.NewTestLogger())

	done := make(chan error, 1)

	go func() { done <- w.Run(context.Background(), models.ResourceTypeServer) }()

	servers <- models.Snapshot{ResourceType: models.ResourceTypeServer, Loading: true}

	servers <- models.Snapshot{
		ResourceType: models.ResourceTypeServer,
		Records: []*models.ResourceRecord{
			server("digitalocean", "1", "203.0.113.5", t0),
			server("gridpane", "11", "203.0.113.5", t0.Add(time.Minute)),
			server("vercel", "v", "198.51.100.1", t0),
		},
		Revision: 1,
		TakenAt:  t0,
	}

	var view *models.View

	select {
	case view = <-sub:
	case <-time.After(5 * time.Second):
		t.Fatal("no view published")
	}

	assert.Equal(t, uint64(1), view.Revision)
	assert.Equal(t, 3, view.SourceCount)
	require.Len(t, view.Rows, 2)
	assert.Equal(t, "gridpane", view.Rows[0].ProviderName)
	assert.Equal(t, 2, view.Rows[0].MergedCount())

	got, ok := views.Get(models.ResourceTypeServer)
	require.True(t, ok)
	assert.Same(t, view, got)

	close(servers)
	require.NoError(t, <-done)
}

func TestWatcherLoadingLeavesTypeLoading(t *testing.T) {
	defer goleak.VerifyNone(t)

	domains := make(chan models.Snapshot, 1)
	src := &chanSource{chans: map[models.ResourceType]chan models.Snapshot{models.ResourceTypeDomain: domains}}

	views := NewViews()
	w := NewWatcher(src, reconcile.New(), views, logger.NewTestLogger())

	domains <- models.Snapshot{ResourceType: models.ResourceTypeDomain, Loading: true}
	close(domains)

	require.NoError(t, w.Run(context.Background(), models.ResourceTypeDomain))

	_, ok := views.Get(models.ResourceTypeDomain)
	assert.False(t, ok)
}

func TestWatcherSubscribeError(t *testing.T) {
	w := NewWatcher(&chanSource{err: errTestRead}, nil, NewViews(), logger.NewTestLogger())

	err := w.Run(context.Background(), models.ResourceTypeAlert)
	require.ErrorIs(t, err, errTestRead)
}

func TestWatcherSubscribeErrorStopsServices(t *testing.T) {
	defer goleak.VerifyNone(t)

	log := logger.NewTestLogger()
	w := NewWatcher(&chanSource{err: errTestRead}, nil, NewViews(), log)

	err := lifecycle.RunServices(context.Background(), log,
		lifecycle.NewFuncService("watcher", log, func(ctx context.Context) error {
			return w.Run(ctx)
		}),
	)

	require.ErrorIs(t, err, lifecycle.ErrServiceExited)
	require.ErrorIs(t, err, errTestRead)
}
