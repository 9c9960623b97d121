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

package sync

import (
	"context"
	stdsync "sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics collects sync service measurements.
type Metrics interface {
	RecordFetchSuccess(dock string, records int, duration time.Duration)
	RecordFetchFailure(dock string, err error, duration time.Duration)
	RecordPruned(dock string, removed int)
}

// NoOpMetrics discards everything.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordFetchSuccess(string, int, time.Duration)   {}
func (NoOpMetrics) RecordFetchFailure(string, error, time.Duration) {}
func (NoOpMetrics) RecordPruned(string, int)                        {}

const (
	syncMeterName = "stackdock/sync"

	metricFetchName    = "stackdock_sync_fetch_total"
	metricRecordsName  = "stackdock_sync_records_total"
	metricPrunedName   = "stackdock_sync_pruned_total"
	metricFetchMsName  = "stackdock_sync_fetch_duration_ms"
	resultAttributeKey = "result"
	dockAttributeKey   = "dock"
)

// OTelMetrics reports through the global OpenTelemetry meter provider.
type OTelMetrics struct {
	once     stdsync.Once
	fetches  metric.Int64Counter
	records  metric.Int64Counter
	pruned   metric.Int64Counter
	duration metric.Float64Histogram
}

func NewOTelMetrics() *OTelMetrics {
	return &OTelMetrics{}
}

func (m *OTelMetrics) init() {
	meter := otel.Meter(syncMeterName)

	var err error

	if m.fetches, err = meter.Int64Counter(metricFetchName,
		metric.WithDescription("Dock fetch attempts by result")); err != nil {
		otel.Handle(err)
	}

	if m.records, err = meter.Int64Counter(metricRecordsName,
		metric.WithDescription("Records received from docks")); err != nil {
		otel.Handle(err)
	}

	if m.pruned, err = meter.Int64Counter(metricPrunedName,
		metric.WithDescription("Stale records removed after a successful sync")); err != nil {
		otel.Handle(err)
	}

	if m.duration, err = meter.Float64Histogram(metricFetchMsName,
		metric.WithDescription("Dock fetch latency"), metric.WithUnit("ms")); err != nil {
		otel.Handle(err)
	}
}

func (m *OTelMetrics) RecordFetchSuccess(dock string, records int, duration time.Duration) {
	m.once.Do(m.init)
	m.recordFetch(dock, "success", duration)

	if m.records != nil {
		m.records.Add(context.Background(), int64(records),
			metric.WithAttributes(attribute.String(dockAttributeKey, dock)))
	}
}

func (m *OTelMetrics) RecordFetchFailure(dock string, _ error, duration time.Duration) {
	m.once.Do(m.init)
	m.recordFetch(dock, "failure", duration)
}

func (m *OTelMetrics) recordFetch(dock, result string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(dockAttributeKey, dock),
		attribute.String(resultAttributeKey, result),
	)

	if m.fetches != nil {
		m.fetches.Add(context.Background(), 1, attrs)
	}

	if m.duration != nil {
		m.duration.Record(context.Background(), float64(duration)/float64(time.Millisecond), attrs)
	}
}

func (m *OTelMetrics) RecordPruned(dock string, removed int) {
	m.once.Do(m.init)

	if m.pruned != nil {
		m.pruned.Add(context.Background(), int64(removed),
			metric.WithAttributes(attribute.String(dockAttributeKey, dock)))
	}
}
