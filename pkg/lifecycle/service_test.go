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

package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/carverauto/stackdock/pkg/logger"
)

type recordingService struct {
	name     string
	startErr error
	events   *[]string
}

func (r *recordingService) Start(context.Context) error {
	*r.events = append(*r.events, "start:"+r.name)
	return r.startErr
}

func (r *recordingService) Stop(context.Context) error {
	*r.events = append(*r.events, "stop:"+r.name)
	return nil
}

func TestRunServicesStopsInReverseOrder(t *testing.T) {
	var events []string

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunServices(ctx, logger.NewTestLogger(),
		&recordingService{name: "a", events: &events},
		&recordingService{name: "b", events: &events},
	)

	require.NoError(t, err)
	assert.Equal(t, []string{"start:a", "start:b", "stop:b", "stop:a"}, events)
}

func TestRunServicesStartFailure(t *testing.T) {
	var events []string

	errBoom := errors.New("boom")

	err := RunServices(context.Background(), logger.NewTestLogger(),
		&recordingService{name: "a", events: &events},
		&recordingService{name: "b", startErr: errBoom, events: &events},
		&recordingService{name: "c", events: &events},
	)

	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, []string{"start:a", "start:b", "stop:a"}, events)
}

func TestCreateComponentLogger(t *testing.T) {
	l, err := CreateComponentLogger(context.Background(), "sync", &logger.Config{Level: "error"})
	require.NoError(t, err)
	require.NotNil(t, l)

	_, err = CreateLogger(context.Background(), &logger.Config{Level: "nope"})
	require.Error(t, err)
}

func TestRunServicesStopsWhenAServiceExits(t *testing.T) {
	defer goleak.VerifyNone(t)

	var events []string

	errSubscribe := errors.New("subscribe failed")

	err := RunServices(context.Background(), logger.NewTestLogger(),
		&recordingService{name: "api", events: &events},
		NewFuncService("watcher", logger.NewTestLogger(), func(context.Context) error {
			return errSubscribe
		}),
	)

	require.ErrorIs(t, err, ErrServiceExited)
	require.ErrorIs(t, err, errSubscribe)
	assert.Contains(t, err.Error(), "watcher")
	assert.Equal(t, []string{"start:api", "stop:api"}, events)
}

func TestRunServicesCleanExitStillShutsDown(t *testing.T) {
	defer goleak.VerifyNone(t)

	err := RunServices(context.Background(), logger.NewTestLogger(),
		NewFuncService("watcher", logger.NewTestLogger(), func(context.Context) error {
			return nil
		}),
	)

	require.ErrorIs(t, err, ErrServiceExited)
}
