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

package docks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/stackdock/pkg/clock"
	"github.com/carverauto/stackdock/pkg/logger"
)

var errTestError = errors.New("test error")

func fakeClock(ctrl *gomock.Controller, now *time.Time) *clock.MockClock {
	c := clock.NewMockClock(ctrl)
	c.EXPECT().Now().DoAndReturn(func() time.Time { return *now }).AnyTimes()

	return c
}

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	ctrl := gomock.NewController(t)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	cb := NewCircuitBreaker("vercel", BreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
		ResetTimeout:     time.Hour,
	}, fakeClock(ctrl, &now), logger.NewTestLogger())

	ctx := context.Background()
	ok := func(context.Context) error { return nil }
	fail := func(context.Context) error { return errTestError }

	require.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, StateClosed, cb.State())

	require.ErrorIs(t, cb.Execute(ctx, fail), errTestError)
	assert.Equal(t, StateClosed, cb.State())

	require.ErrorIs(t, cb.Execute(ctx, fail), errTestError)
	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(ctx, ok)
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Contains(t, err.Error(), "vercel")

	now = now.Add(time.Minute)

	require.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, StateClosed, cb.State())
	assert.Zero(t, cb.FailureCount())
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	ctrl := gomock.NewController(t)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	cb := NewCircuitBreaker("gridpane", BreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          time.Minute,
		ResetTimeout:     time.Hour,
	}, fakeClock(ctrl, &now), logger.NewTestLogger())

	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, func(context.Context) error { return errTestError }))
	assert.Equal(t, StateOpen, cb.State())

	now = now.Add(2 * time.Minute)

	require.Error(t, cb.Execute(ctx, func(context.Context) error { return errTestError }))
	assert.Equal(t, StateOpen, cb.State())

	require.ErrorIs(t, cb.Execute(ctx, func(context.Context) error { return nil }), ErrCircuitOpen)
}

func TestCircuitBreaker_CancellationIsNotAFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	now := time.Now()

	cb := NewCircuitBreaker("digitalocean", BreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
		ResetTimeout:     time.Hour,
	}, fakeClock(ctrl, &now), logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Execute(ctx, func(ctx context.Context) error { return ctx.Err() })

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", BreakerState(9).String())
}
