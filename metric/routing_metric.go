// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package metric

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	probeCounterName      = "shardroute_site_probes"
	probeLatencyName      = "shardroute_site_probe_latency"
	allocationCounterName = "shardroute_id_allocations"
	procedureCounterName  = "shardroute_procedure_calls"
	sagaCounterName       = "shardroute_cross_shard_writes"

	siteKey      = attribute.Key("site")
	entityKey    = attribute.Key("entity")
	outcomeKey   = attribute.Key("outcome")
	procedureKey = attribute.Key("procedure")
	remoteKey    = attribute.Key("remote")
)

// Outcome values recorded on the counters
const (
	OutcomeOK          = "ok"
	OutcomeFailed      = "failed"
	OutcomeExhausted   = "exhausted"
	OutcomePartial     = "partial"
	OutcomeCompensated = "compensated"
)

// RoutingMetric holds the instruments of the routing layer.
// A nil *RoutingMetric is valid and records nothing.
type RoutingMetric struct {
	probes       metric.Int64Counter
	probeLatency metric.Float64Histogram
	allocations  metric.Int64Counter
	procedures   metric.Int64Counter
	sagas        metric.Int64Counter
}

// NewRoutingMetric creates the instruments on the given meter
func NewRoutingMetric(meter metric.Meter) (*RoutingMetric, error) {
	routingMetric := new(RoutingMetric)
	var err error

	if routingMetric.probes, err = meter.Int64Counter(
		probeCounterName,
		metric.WithDescription("The total number of site probes"),
	); err != nil {
		return nil, fmt.Errorf("failed to create probes instrument, %v", err)
	}

	if routingMetric.probeLatency, err = meter.Float64Histogram(
		probeLatencyName,
		metric.WithDescription("The latency of site probes in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create probe latency instrument, %v", err)
	}

	if routingMetric.allocations, err = meter.Int64Counter(
		allocationCounterName,
		metric.WithDescription("The total number of identifier allocations"),
	); err != nil {
		return nil, fmt.Errorf("failed to create allocations instrument, %v", err)
	}

	if routingMetric.procedures, err = meter.Int64Counter(
		procedureCounterName,
		metric.WithDescription("The total number of stored procedure calls"),
	); err != nil {
		return nil, fmt.Errorf("failed to create procedures instrument, %v", err)
	}

	if routingMetric.sagas, err = meter.Int64Counter(
		sagaCounterName,
		metric.WithDescription("The total number of staff and contract writes"),
	); err != nil {
		return nil, fmt.Errorf("failed to create cross shard writes instrument, %v", err)
	}

	return routingMetric, nil
}

// NewNoopRoutingMetric returns instruments bound to a no-op meter
func NewNoopRoutingMetric() *RoutingMetric {
	routingMetric, _ := NewRoutingMetric(noop.NewMeterProvider().Meter(""))
	return routingMetric
}

// RecordProbe records the outcome and latency of a site probe
func (x *RoutingMetric) RecordProbe(ctx context.Context, site string, err error, latency time.Duration) {
	if x == nil {
		return
	}
	attrs := metric.WithAttributes(siteKey.String(site), outcomeKey.String(outcomeOf(err)))
	x.probes.Add(ctx, 1, attrs)
	x.probeLatency.Record(ctx, float64(latency.Microseconds())/1000, attrs)
}

// RecordAllocation records an identifier allocation attempt
func (x *RoutingMetric) RecordAllocation(ctx context.Context, entity, site, outcome string) {
	if x == nil {
		return
	}
	x.allocations.Add(ctx, 1, metric.WithAttributes(
		entityKey.String(entity),
		siteKey.String(site),
		outcomeKey.String(outcome)))
}

// RecordProcedure records a stored procedure call
func (x *RoutingMetric) RecordProcedure(ctx context.Context, procedure, site string, remote bool, err error) {
	if x == nil {
		return
	}
	x.procedures.Add(ctx, 1, metric.WithAttributes(
		procedureKey.String(procedure),
		siteKey.String(site),
		remoteKey.Bool(remote),
		outcomeKey.String(outcomeOf(err))))
}

// RecordCrossShardWrite records the final state of a staff and contract write
func (x *RoutingMetric) RecordCrossShardWrite(ctx context.Context, site, outcome string) {
	if x == nil {
		return
	}
	x.sagas.Add(ctx, 1, metric.WithAttributes(siteKey.String(site), outcomeKey.String(outcome)))
}

func outcomeOf(err error) string {
	if err != nil {
		return OutcomeFailed
	}
	return OutcomeOK
}
