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
	"sync"

	"github.com/carverauto/stackdock/pkg/logger"
)

var errFuncServiceStarted = errors.New("service already started")

// FuncService runs a blocking function as a Service. Stop cancels the
// function's context and waits for it to return.
type FuncService struct {
	name   string
	run    func(ctx context.Context) error
	logger logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	exited chan struct{}
	err    error
}

func NewFuncService(name string, log logger.Logger, run func(ctx context.Context) error) *FuncService {
	return &FuncService{name: name, run: run, logger: log}
}

func (f *FuncService) Name() string {
	return f.name
}

func (f *FuncService) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancel != nil {
		return errFuncServiceStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.exited = make(chan struct{})
	f.err = nil

	exited := f.exited

	go func() {
		err := f.run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			f.logger.Error().Err(err).Str("service", f.name).Msg("Service exited")
		}

		f.mu.Lock()
		f.err = err
		f.mu.Unlock()

		close(exited)
	}()

	return nil
}

// Exited is closed once the function returns. It is nil before Start.
func (f *FuncService) Exited() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.exited
}

// Err returns the function's result once Exited is closed.
func (f *FuncService) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if errors.Is(f.err, context.Canceled) {
		return nil
	}

	return f.err
}

func (f *FuncService) Stop(ctx context.Context) error {
	f.mu.Lock()
	cancel, exited := f.cancel, f.exited
	f.cancel = nil
	f.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()

	select {
	case <-exited:
		return f.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
