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
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/stackdock/pkg/logger"
)

const defaultShutdownTimeout = 10 * time.Second

// ErrServiceExited is returned by RunServices when a service stops on its own.
var ErrServiceExited = errors.New("service exited unexpectedly")

// Service is a long-running component with explicit start and stop.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Exiter is implemented by services that can end without being stopped.
type Exiter interface {
	Name() string
	Exited() <-chan struct{}
	Err() error
}

// RunServices starts every service, waits for SIGINT/SIGTERM, for ctx to end
// or for an Exiter to return, then stops them in reverse order.
func RunServices(ctx context.Context, log logger.Logger, services ...Service) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	started := make([]Service, 0, len(services))

	var runErr error

	for _, svc := range services {
		if err := svc.Start(ctx); err != nil {
			runErr = err
			break
		}

		started = append(started, svc)
	}

	if runErr == nil {
		runErr = wait(ctx, log, started)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	var stopErrs []error

	for i := len(started) - 1; i >= 0; i-- {
		err := started[i].Stop(shutdownCtx)
		if err == nil || errors.Is(runErr, err) {
			continue
		}

		log.Error().Err(err).Msg("Error stopping service")
		stopErrs = append(stopErrs, err)
	}

	return errors.Join(append([]error{runErr}, stopErrs...)...)
}

// wait blocks until ctx is done or a started Exiter returns early.
func wait(ctx context.Context, log logger.Logger, started []Service) error {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	exits := make(chan Exiter, len(started))

	for _, svc := range started {
		e, ok := svc.(Exiter)
		if !ok {
			continue
		}

		go func() {
			select {
			case <-e.Exited():
				exits <- e
			case <-waitCtx.Done():
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")

		return nil
	case e := <-exits:
		if ctx.Err() != nil {
			log.Info().Msg("Shutdown signal received")

			return nil
		}

		log.Error().Err(e.Err()).Str("service", e.Name()).Msg("Service exited, shutting down")

		if err := e.Err(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrServiceExited, e.Name(), err)
		}

		return fmt.Errorf("%w: %s", ErrServiceExited, e.Name())
	}
}
