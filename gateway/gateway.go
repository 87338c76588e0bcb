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

package gateway

import (
	"context"

	"github.com/pkg/errors"

	"github.com/clinicnet/shardroute/entity"
	gerrors "github.com/clinicnet/shardroute/errors"
	"github.com/clinicnet/shardroute/internal/telemetry"
	"github.com/clinicnet/shardroute/log"
	"github.com/clinicnet/shardroute/metric"
	"github.com/clinicnet/shardroute/site"
)

// Gateway invokes write procedures at the site owning the written row.
// A remote owner is reached by qualifying the procedure name with the owner's
// cross-site reference; the call still runs on the current site's connection.
// There is no retry and no rollback beyond the single call.
type Gateway struct {
	topology *site.Topology
	catalog  *entity.Catalog
	port     Port
	logger   log.Logger
	metrics  *metric.RoutingMetric
}

// New creates an instance of Gateway
func New(topology *site.Topology, catalog *entity.Catalog, port Port, opts ...Option) (*Gateway, error) {
	if topology == nil || catalog == nil || port == nil {
		return nil, errors.New("topology, catalog and port are required")
	}

	gateway := &Gateway{
		topology: topology,
		catalog:  catalog,
		port:     port,
		logger:   log.DiscardLogger,
	}

	for _, opt := range opts {
		opt.Apply(gateway)
	}
	return gateway, nil
}

// Resolve returns the owner site of the procedure and the name to call from current
func (g *Gateway) Resolve(current site.ID, proc Procedure) (*site.Site, string, error) {
	descriptor, err := g.catalog.Lookup(proc.Entity)
	if err != nil {
		return nil, "", err
	}

	name := proc.Name
	if name == "" {
		if name, err = descriptor.Procedures.Name(proc.Op); err != nil {
			return nil, "", errors.Wrapf(err, "%s", proc.Entity)
		}
	}

	var owner *site.Site
	if descriptor.Partitioning == entity.Sharded {
		owner, err = g.topology.ByCode(proc.OwnerCode)
	} else {
		owner, err = g.topology.Site(g.topology.Master())
	}
	if err != nil {
		return nil, "", err
	}

	if owner.ID == current {
		return owner, name, nil
	}
	return owner, owner.Qualify(name), nil
}

// Call executes the procedure from the current site and returns the affected rows
func (g *Gateway) Call(ctx context.Context, current site.ID, proc Procedure) (int64, error) {
	ctx, span := telemetry.SpanContext(ctx, "Gateway.Call", telemetry.SiteKey.String(current.String()))
	defer span.End()

	at, err := g.topology.Site(current)
	if err != nil {
		return 0, err
	}

	owner, name, err := g.Resolve(current, proc)
	if err != nil {
		return 0, err
	}

	remote := owner.ID != current
	g.logger.Debugf("calling %s at site %s (owner %s)", name, current, owner.ID)

	affected, err := g.port.Exec(ctx, at, name, proc.Params...)
	g.metrics.RecordProcedure(ctx, name, current.String(), remote, err)
	if err != nil {
		span.RecordError(err)
		g.logger.Errorf("procedure %s at site %s failed: %v", name, current, err)
		return 0, gerrors.NewRemoteProcedureError(name, current.String(), err)
	}
	return affected, nil
}
