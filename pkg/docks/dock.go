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

// Package docks holds the provider adapters that pull resource records from
// third-party accounts, plus the HTTP and circuit breaker plumbing they share.
package docks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/carverauto/stackdock/pkg/logger"
	"github.com/carverauto/stackdock/pkg/models"
)

//go:generate mockgen -destination=mock_docks.go -package=docks github.com/carverauto/stackdock/pkg/docks Dock,HTTPClient

var (
	ErrUnexpectedStatus  = errors.New("unexpected status code")
	ErrCircuitOpen       = errors.New("circuit breaker is open")
	ErrUnknownDockType   = errors.New("unknown dock type")
	ErrMissingCredential = errors.New("missing credential")
	ErrDuplicateFactory  = errors.New("dock factory already registered")
)

// Dock fetches every resource a provider account exposes.
type Dock interface {
	// Name is the provider name stamped on every record the dock returns.
	Name() string
	Fetch(ctx context.Context) ([]*models.ResourceRecord, error)
}

// Factory builds a dock from its configuration.
type Factory func(cfg *models.DockConfig, log logger.Logger) (Dock, error)

// Registry maps dock types ("digitalocean", "vercel", ...) to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory. Registering the same type twice is an error.
func (r *Registry) Register(dockType string, f Factory) error {
	key := strings.ToLower(dockType)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFactory, key)
	}

	r.factories[key] = f

	return nil
}

// New builds a dock for cfg.Type.
func (r *Registry) New(cfg *models.DockConfig, log logger.Logger) (Dock, error) {
	r.mu.RLock()
	f, ok := r.factories[strings.ToLower(cfg.Type)]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDockType, cfg.Type)
	}

	return f(cfg, log)
}

// Types lists the registered dock types in lexical order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}

// Credential returns a required credential from the dock config.
func Credential(cfg *models.DockConfig, key string) (string, error) {
	v := strings.TrimSpace(cfg.Credentials[key])
	if v == "" {
		return "", fmt.Errorf("%w: %s dock needs %q", ErrMissingCredential, cfg.Type, key)
	}

	return v, nil
}
