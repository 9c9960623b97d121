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

package snapshot

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/carverauto/stackdock/pkg/models"
	"github.com/carverauto/stackdock/pkg/reconcile"
)

const (
	meterName = "stackdock/reconcile"

	metricRunsName     = "stackdock_reconcile_runs_total"
	metricMergedName   = "stackdock_reconcile_merged_total"
	metricDurationName = "stackdock_reconcile_duration_ms"
	metricRowsName     = "stackdock_reconcile_rows"
)

var (
	//nolint:gochecknoglobals // metric instruments are shared singletons
	reconcileMetricsOnce sync.Once
	//nolint:gochecknoglobals // metric instruments are shared singletons
	reconcileMetrics struct {
		runs     metric.Int64Counter
		merged   metric.Int64Counter
		duration metric.Float64Histogram
		rows     metric.Int64Gauge
	}
)

func initReconcileMetrics() {
	meter := otel.Meter(meterName)

	var err error

	reconcileMetrics.runs, err = meter.Int64Counter(metricRunsName,
		metric.WithDescription("Reconciliation passes over loaded snapshots"))
	if err != nil {
		otel.Handle(err)
		return
	}

	reconcileMetrics.merged, err = meter.Int64Counter(metricMergedName,
		metric.WithDescription("Logical resources assembled from more than one source record"))
	if err != nil {
		otel.Handle(err)
		return
	}

	reconcileMetrics.duration, err = meter.Float64Histogram(metricDurationName,
		metric.WithDescription("Time spent reconciling one snapshot"),
		metric.WithUnit("ms"))
	if err != nil {
		otel.Handle(err)
		return
	}

	reconcileMetrics.rows, err = meter.Int64Gauge(metricRowsName,
		metric.WithDescription("Rows in the latest view of a resource type"))
	if err != nil {
		otel.Handle(err)
	}
}

func recordReconcile(ctx context.Context, rt models.ResourceType, s reconcile.Summary, took time.Duration) {
	reconcileMetricsOnce.Do(initReconcileMetrics)

	attrs := metric.WithAttributes(attribute.String("resource_type", string(rt)))

	if reconcileMetrics.runs != nil {
		reconcileMetrics.runs.Add(ctx, 1, attrs)
	}

	if reconcileMetrics.merged != nil {
		reconcileMetrics.merged.Add(ctx, int64(s.MergedGroups), attrs)
	}

	if reconcileMetrics.duration != nil {
		reconcileMetrics.duration.Record(ctx, float64(took)/float64(time.Millisecond), attrs)
	}

	if reconcileMetrics.rows != nil {
		reconcileMetrics.rows.Record(ctx, int64(s.Output), attrs)
	}
}
