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
	"fmt"
	"os"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/carverauto/stackdock/pkg/config"
	"github.com/carverauto/stackdock/pkg/lifecycle"
	"github.com/carverauto/stackdock/pkg/logger"
	"github.com/carverauto/stackdock/pkg/store"
	"github.com/carverauto/stackdock/pkg/sync"
	"github.com/carverauto/stackdock/pkg/version"
)

const (
	defaultConfigPath   = "/etc/stackdock/stackdock.json"
	defaultConfigBucket = "stackdock-config"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "stackdock",
		Short:        "Unified infrastructure tables across GridPane, Vercel and DigitalOcean",
		Version:      version.GetFullVersion(),
		SilenceUsage: true,
	}

	cmd.SetVersionTemplate(`{{printf "stackdock %s\n" .Version}}`)
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath,
		"path to the JSON config (see CONFIG_SOURCE for env and kv sources)")

	cmd.AddCommand(newServeCmd(opts), newSyncCmd(opts), newReconcileCmd())

	return cmd
}

// loadConfig reads and validates the service config, then builds the
// component logger it asks for.
func (o *rootOptions) loadConfig(ctx context.Context) (*sync.Config, logger.Logger, error) {
	var cfg sync.Config

	loader := config.NewConfig(nil)

	if strings.EqualFold(os.Getenv("CONFIG_SOURCE"), "kv") {
		nc, err := configBucket(ctx, loader)
		if err != nil {
			return nil, nil, err
		}

		defer nc.Close()
	}

	if err := loader.LoadAndValidate(ctx, o.configPath, &cfg); err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.Logging == nil {
		cfg.Logging = logger.DefaultConfig()
	}

	if err := lifecycle.InitializeLogger(ctx, cfg.Logging); err != nil {
		return nil, nil, err
	}

	log, err := lifecycle.CreateComponentLogger(ctx, "stackdock", cfg.Logging)
	if err != nil {
		return nil, nil, err
	}

	return &cfg, log, nil
}

// configBucket points loader at CONFIG_KV_BUCKET on CONFIG_NATS_URL.
func configBucket(ctx context.Context, loader *config.Config) (*nats.Conn, error) {
	url := os.Getenv("CONFIG_NATS_URL")
	if url == "" {
		url = nats.DefaultURL
	}

	bucket := os.Getenv("CONFIG_KV_BUCKET")
	if bucket == "" {
		bucket = defaultConfigBucket
	}

	nc, err := nats.Connect(url, nats.Name("stackdock-config"))
	if err != nil {
		return nil, fmt.Errorf("connect config NATS: %w", err)
	}

	kv, err := store.OpenBucket(ctx, nc, bucket)
	if err != nil {
		nc.Close()
		return nil, err
	}

	loader.SetKeyValue(kv)

	return nc, nil
}
