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

package reader

import (
	"context"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"

	"github.com/clinicnet/shardroute/entity"
	"github.com/clinicnet/shardroute/internal/telemetry"
	"github.com/clinicnet/shardroute/log"
	"github.com/clinicnet/shardroute/site"
)

// Reader reads entities at the current site. Reads of sharded entities are
// restricted to rows owned by the current site. Centralized tables are read
// locally without owner filter and master-hosted tables through the master's
// cross-site reference.
type Reader struct {
	topology   *site.Topology
	catalog    *entity.Catalog
	querier    Querier
	unfiltered mapset.Set[entity.Type]
	logger     log.Logger
}

// New creates an instance of Reader
func New(topology *site.Topology, catalog *entity.Catalog, querier Querier, opts ...Option) (*Reader, error) {
	if topology == nil || catalog == nil || querier == nil {
		return nil, errors.New("topology, catalog and querier are required")
	}

	reader := &Reader{
		topology:   topology,
		catalog:    catalog,
		querier:    querier,
		unfiltered: mapset.NewSet[entity.Type](),
		logger:     log.DiscardLogger,
	}

	for _, opt := range opts {
		opt.Apply(reader)
	}
	return reader, nil
}

// List reads every visible row of entityType at the current site into dst
func (r *Reader) List(ctx context.Context, entityType entity.Type, current site.ID, dst any) error {
	ctx, span := telemetry.SpanContext(ctx, "Reader.List", telemetry.SiteKey.String(current.String()))
	defer span.End()

	at, query, err := r.plan(entityType, current)
	if err != nil {
		return err
	}

	if r.unfiltered.Contains(entityType) {
		query.Owner = nil
	}

	return r.querier.SelectAll(ctx, at, query, dst)
}

// Search reads the rows of entityType at the current site whose search columns
// contain term. An empty term behaves like List without the unfiltered opt-out.
func (r *Reader) Search(ctx context.Context, entityType entity.Type, current site.ID, term string, dst any) error {
	ctx, span := telemetry.SpanContext(ctx, "Reader.Search", telemetry.SiteKey.String(current.String()))
	defer span.End()

	at, query, err := r.plan(entityType, current)
	if err != nil {
		return err
	}

	query.Term = strings.TrimSpace(term)
	return r.querier.SelectAll(ctx, at, query, dst)
}

// Get reads the row with the given key into dst.
// Centralized entities only use the key's LocalID.
func (r *Reader) Get(ctx context.Context, entityType entity.Type, current site.ID, key entity.Key, dst any) error {
	ctx, span := telemetry.SpanContext(ctx, "Reader.Get", telemetry.SiteKey.String(current.String()))
	defer span.End()

	at, query, err := r.plan(entityType, current)
	if err != nil {
		return err
	}

	query.Owner = nil
	if query.OwnerColumn != "" {
		owner := key.Site
		query.Owner = &owner
	}

	localID := key.LocalID
	query.ID = &localID
	query.Limit = 1
	return r.querier.Select(ctx, at, query, dst)
}

// Plan returns the site and query List would run
func (r *Reader) Plan(entityType entity.Type, current site.ID) (*site.Site, Query, error) {
	return r.plan(entityType, current)
}

func (r *Reader) plan(entityType entity.Type, current site.ID) (*site.Site, Query, error) {
	descriptor, err := r.catalog.Lookup(entityType)
	if err != nil {
		return nil, Query{}, err
	}

	at, err := r.topology.Site(current)
	if err != nil {
		return nil, Query{}, err
	}

	query := Query{
		Entity:          entityType,
		Relation:        descriptor.View,
		Columns:         descriptor.Columns,
		OwnerColumn:     descriptor.OwnerColumn,
		IDColumn:        descriptor.IDColumn,
		SearchColumns:   descriptor.SearchColumns,
		SearchIDColumns: descriptor.SearchIDColumns,
		OrderBy:         descriptor.OrderBy,
	}

	switch descriptor.Partitioning {
	case entity.Sharded:
		code := at.Code
		query.Owner = &code
	case entity.MasterHosted:
		if !r.topology.IsMaster(current) {
			master, err := r.topology.Site(r.topology.Master())
			if err != nil {
				return nil, Query{}, err
			}
			query.Relation = master.Qualify(descriptor.View)
		}
	}

	r.logger.Debugf("reading %s at site %s from %s", entityType, current, query.Relation)
	return at, query, nil
}
