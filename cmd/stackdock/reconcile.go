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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/carverauto/stackdock/pkg/api"
	"github.com/carverauto/stackdock/pkg/models"
	"github.com/carverauto/stackdock/pkg/reconcile"
)

var errUnknownOutput = errors.New("unknown output format")

type reconcileOptions struct {
	file       string
	types      []string
	priority   []string
	provenance bool
	output     string
}

func newReconcileCmd() *cobra.Command {
	opts := &reconcileOptions{}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile a JSON array of resource records and print the unified tables",
		Example: `  stackdock reconcile -f records.json
  stackdock reconcile -f - --type servers --provenance -o json < records.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := cmd.InOrStdin()

			if opts.file != "-" {
				f, err := os.Open(opts.file)
				if err != nil {
					return err
				}

				defer func() { _ = f.Close() }()

				in = f
			}

			return runReconcile(in, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "-", "records file, - for stdin")
	cmd.Flags().StringSliceVarP(&opts.types, "type", "t", nil, "resource types to print (default all present)")
	cmd.Flags().StringSliceVar(&opts.priority, "provider-priority", nil, "provider tie-break order")
	cmd.Flags().BoolVar(&opts.provenance, "provenance", false, "include merged source records")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "output format: table or json")

	return cmd
}

func runReconcile(in io.Reader, out io.Writer, opts *reconcileOptions) error {
	var records []*models.ResourceRecord

	if err := json.NewDecoder(in).Decode(&records); err != nil {
		return fmt.Errorf("decode records: %w", err)
	}

	types, err := selectedTypes(opts.types)
	if err != nil {
		return err
	}

	r := reconcile.New(reconcile.WithProviderPriority(opts.priority))
	byType := groupByType(records)

	tables := make([]models.ResourceTable, 0, len(types))

	for _, rt := range types {
		input, ok := byType[rt]
		if !ok && len(opts.types) == 0 {
			continue
		}

		view := &models.View{ResourceType: rt, Rows: r.Reconcile(input), SourceCount: len(input)}
		tables = append(tables, api.Table(rt, view, opts.provenance))
	}

	switch opts.output {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(tables)
	case "table":
		for _, t := range tables {
			printTable(out, t)
		}

		return nil
	default:
		return fmt.Errorf("%w: %s", errUnknownOutput, opts.output)
	}
}

func selectedTypes(names []string) ([]models.ResourceType, error) {
	if len(names) == 0 {
		return models.AllResourceTypes, nil
	}

	out := make([]models.ResourceType, 0, len(names))

	for _, n := range names {
		rt, err := models.ParseResourceType(n)
		if err != nil {
			return nil, err
		}

		out = append(out, rt)
	}

	return out, nil
}

func groupByType(records []*models.ResourceRecord) map[models.ResourceType][]*models.ResourceRecord {
	out := make(map[models.ResourceType][]*models.ResourceRecord)

	for _, rec := range records {
		if rec == nil {
			continue
		}

		out[rec.ResourceType] = append(out[rec.ResourceType], rec)
	}

	return out
}
