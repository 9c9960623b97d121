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
	"github.com/spf13/cobra"

	"github.com/carverauto/stackdock/pkg/lifecycle"
	"github.com/carverauto/stackdock/pkg/sync"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch every dock into the record stores",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, log, err := opts.loadConfig(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = lifecycle.ShutdownLogger() }()

			b, err := openBackends(ctx, cfg, log)
			if err != nil {
				return err
			}

			defer b.close()

			svc, err := sync.NewService(cfg, sync.DefaultRegistry(), b.writers, log)
			if err != nil {
				return err
			}

			if once {
				syncErr := svc.Sync(ctx)
				printStatus(cmd.OutOrStdout(), svc.Status())

				return syncErr
			}

			return lifecycle.RunServices(ctx, log, svc)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run a single sync and print dock status")

	return cmd
}
