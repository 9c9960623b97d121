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
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/stackdock/pkg/clock"
	"github.com/carverauto/stackdock/pkg/logger"
)

// BreakerState is the state of a CircuitBreaker.
type BreakerState int

const (
	// StateClosed lets calls through.
	StateClosed BreakerState = iota
	// StateOpen rejects calls until the cool-down passes.
	StateOpen
	// StateHalfOpen lets probe calls through to test recovery.
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a CircuitBreaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int
	// SuccessThreshold is the number of half-open successes that closes it again.
	SuccessThreshold int
	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration
	// ResetTimeout clears the failure count after a quiet period while closed.
	ResetTimeout time.Duration
}

// DefaultBreakerConfig suits a dock polled every few minutes.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		Timeout:          5 * time.Minute,
		ResetTimeout:     30 * time.Minute,
	}
}

// CircuitBreaker stops hammering a provider that keeps failing.
type CircuitBreaker struct {
	name   string
	config BreakerConfig
	clock  clock.Clock
	logger logger.Logger

	mu            sync.RWMutex
	state         BreakerState
	failureCount  int
	successCount  int
	lastFailTime  time.Time
	lastResetTime time.Time
}

func NewCircuitBreaker(name string, config BreakerConfig, clk clock.Clock, log logger.Logger) *CircuitBreaker {
	if clk == nil {
		clk = clock.Real()
	}

	return &CircuitBreaker{
		name:          name,
		config:        config,
		clock:         clk,
		logger:        log,
		state:         StateClosed,
		lastResetTime: clk.Now(),
	}
}

// Execute runs fn unless the circuit is open. Context cancellation is not
// counted as a provider failure.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !cb.allowRequest() {
		return fmt.Errorf("%w: %s", ErrCircuitOpen, cb.name)
	}

	err := fn(ctx)
	if err != nil && ctx.Err() != nil {
		return err
	}

	cb.recordResult(err)

	return err
}

func (cb *CircuitBreaker) allowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.clock.Now()

	switch cb.state {
	case StateClosed:
		if now.Sub(cb.lastResetTime) >= cb.config.ResetTimeout {
			cb.failureCount = 0
			cb.lastResetTime = now
		}

		return true
	case StateOpen:
		if now.Sub(cb.lastFailTime) < cb.config.Timeout {
			return false
		}

		cb.state = StateHalfOpen
		cb.successCount = 0
		cb.logger.Info().Str("dock", cb.name).Msg("Circuit breaker half-open, probing provider")

		return true
	case StateHalfOpen:
		return true
	default:
		return false
	}
}

func (cb *CircuitBreaker) recordResult(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.onFailure()
		return
	}

	cb.onSuccess()
}

func (cb *CircuitBreaker) onFailure() {
	cb.failureCount++
	cb.lastFailTime = cb.clock.Now()

	switch cb.state {
	case StateClosed:
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.state = StateOpen
			cb.logger.Warn().
				Str("dock", cb.name).
				Int("failure_count", cb.failureCount).
				Msg("Circuit breaker opened")
		}
	case StateHalfOpen:
		cb.state = StateOpen
		cb.logger.Warn().Str("dock", cb.name).Msg("Circuit breaker reopened after failed probe")
	case StateOpen:
	}
}

func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.state = StateClosed
			cb.failureCount = 0
			cb.lastResetTime = cb.clock.Now()
			cb.logger.Info().Str("dock", cb.name).Msg("Circuit breaker closed")
		}
	case StateClosed:
		cb.failureCount = 0
		cb.lastResetTime = cb.clock.Now()
	case StateOpen:
	}
}

func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return cb.state
}

// FailureCount returns the failures seen since the last reset.
func (cb *CircuitBreaker) FailureCount() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return cb.failureCount
}
