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
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/carverauto/stackdock/pkg/models"
)

const shortIDLen = 8

func printTable(out io.Writer, t models.ResourceTable) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("%s (%d rows from %d records)", strings.ToUpper(string(t.ResourceType)), len(t.Rows), t.SourceCount)
	tw.AppendHeader(table.Row{"ID", "NAME", "STATUS", "PROVIDERS", "MERGED", "FINGERPRINT", "SYNCED"})

	for _, row := range t.Rows {
		rep := row.Representative

		tw.AppendRow(table.Row{
			shortID(row.LogicalID),
			rep.Name,
			rep.Status,
			strings.Join(row.Providers, ", "),
			merged(row.MergedCount),
			row.FingerprintKey,
			synced(rep.LastSyncedAt),
		})

		for _, src := range row.Sources {
			tw.AppendRow(table.Row{
				"",
				text.FgHiBlack.Sprint("  " + src.Name),
				text.FgHiBlack.Sprint(src.Status),
				text.FgHiBlack.Sprint(src.ProviderName + "/" + src.ID),
				"",
				"",
				text.FgHiBlack.Sprint(synced(src.LastSyncedAt)),
			})
		}
	}

	tw.Render()
}

func printStatus(out io.Writer, status []models.DockStatus) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"DOCK", "TYPE", "RECORDS", "CIRCUIT", "LAST SYNC", "ERROR"})

	for _, st := range status {
		errText := ""
		if st.LastError != "" {
			errText = text.FgRed.Sprint(st.LastError)
		}

		tw.AppendRow(table.Row{st.Name, st.Type, st.RecordCount, st.CircuitState, synced(st.LastSyncAt), errText})
	}

	tw.Render()
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}

	return id
}

func merged(n int) string {
	if n <= 1 {
		return "-"
	}

	return text.FgGreen.Sprint(fmt.Sprintf("x%d", n))
}

func synced(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	return t.UTC().Format(time.RFC3339)
}
