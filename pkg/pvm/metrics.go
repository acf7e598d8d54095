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

package pvm

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the engine's counters. A nil *Metrics is valid and every
// method on it is a no-op, so wiring a meter provider is optional.
type Metrics struct {
	nodesCreated    metric.Int64Counter
	relsCreated     metric.Int64Counter
	relsDeduplicated metric.Int64Counter
	eventsDropped   metric.Int64Counter
}

// NewMetrics registers the engine's counters against meter. Returns an error
// if instrument creation fails.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	nodesCreated, err := meter.Int64Counter("pvm.nodes.created",
		metric.WithDescription("nodes created by the provenance engine"))
	if err != nil {
		return nil, err
	}

	relsCreated, err := meter.Int64Counter("pvm.rels.created",
		metric.WithDescription("relations created by the provenance engine"))
	if err != nil {
		return nil, err
	}

	relsDeduplicated, err := meter.Int64Counter("pvm.rels.deduplicated",
		metric.WithDescription("relation-creation requests collapsed into an existing relation"))
	if err != nil {
		return nil, err
	}

	eventsDropped, err := meter.Int64Counter("pvm.events.dropped",
		metric.WithDescription("ingest events that could not be dispatched"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		nodesCreated:     nodesCreated,
		relsCreated:      relsCreated,
		relsDeduplicated: relsDeduplicated,
		eventsDropped:    eventsDropped,
	}, nil
}

func (m *Metrics) incNodesCreated(ctx context.Context) {
	if m == nil {
		return
	}

	m.nodesCreated.Add(ctx, 1)
}

func (m *Metrics) incRelsCreated(ctx context.Context) {
	if m == nil {
		return
	}

	m.relsCreated.Add(ctx, 1)
}

func (m *Metrics) incRelsDeduplicated(ctx context.Context) {
	if m == nil {
		return
	}

	m.relsDeduplicated.Add(ctx, 1)
}

func (m *Metrics) incEventsDropped(ctx context.Context) {
	if m == nil {
		return
	}

	m.eventsDropped.Add(ctx, 1)
}

// RecordEventDropped increments the dropped-event counter. Called by the
// ingest driver for every line it could not parse or dispatch; a nil
// receiver (no meter wired) is a no-op.
func (m *Metrics) RecordEventDropped(ctx context.Context) {
	m.incEventsDropped(ctx)
}
