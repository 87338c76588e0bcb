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

package allocator

import (
	"context"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"

	"github.com/clinicnet/shardroute/entity"
	gerrors "github.com/clinicnet/shardroute/errors"
	"github.com/clinicnet/shardroute/internal/telemetry"
	"github.com/clinicnet/shardroute/log"
	"github.com/clinicnet/shardroute/metric"
	"github.com/clinicnet/shardroute/site"
)

type scope struct {
	entity entity.Type
	site   site.ID
}

// Allocator issues local identifiers from the range of the site a row is created at.
// Identifiers claimed but not yet committed or released are kept in flight so that
// concurrent creators at the same site never obtain the same value.
type Allocator struct {
	topology *site.Topology
	catalog  *entity.Catalog
	table    Table
	source   OccupiedSource
	claimer  Claimer
	logger   log.Logger
	metrics  *metric.RoutingMetric

	mu       sync.Mutex
	locks    map[scope]*sync.Mutex
	inflight map[scope]mapset.Set[int64]
}

// New creates an instance of Allocator
func New(topology *site.Topology, catalog *entity.Catalog, table Table, source OccupiedSource, opts ...Option) (*Allocator, error) {
	if topology == nil || catalog == nil || source == nil {
		return nil, errors.New("topology, catalog and occupied source are required")
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}

	allocator := &Allocator{
		topology: topology,
		catalog:  catalog,
		table:    table,
		source:   source,
		logger:   log.DiscardLogger,
		locks:    make(map[scope]*sync.Mutex),
		inflight: make(map[scope]mapset.Set[int64]),
	}

	for _, opt := range opts {
		opt.Apply(allocator)
	}

	return allocator, nil
}

// Range returns the range of entityType at the given site
func (a *Allocator) Range(entityType entity.Type, id site.ID) (Range, error) {
	return a.table.Lookup(entityType, id)
}

// ValidateID reports whether id lies within the range of entityType at the given site
func (a *Allocator) ValidateID(entityType entity.Type, id site.ID, localID int64) bool {
	r, err := a.table.Lookup(entityType, id)
	if err != nil {
		return false
	}
	return r.Contains(localID)
}

// NextAvailableID returns the lowest id of the site's range that no row owned by
// the site uses yet. It reserves nothing; use Claim when the id feeds an insert.
func (a *Allocator) NextAvailableID(ctx context.Context, entityType entity.Type, id site.ID) (int64, error) {
	ctx, span := telemetry.SpanContext(ctx, "Allocator.NextAvailableID")
	defer span.End()

	descriptor, owner, r, err := a.ranged(entityType, id)
	if err != nil {
		return 0, err
	}

	occupied, err := a.occupied(ctx, descriptor, owner, r)
	if err != nil {
		return 0, err
	}

	localID, ok := firstFree(r, occupied)
	if !ok {
		a.metrics.RecordAllocation(ctx, entityType.String(), id.String(), metric.OutcomeExhausted)
		return 0, gerrors.NewRangeExhaustedError(entityType.String(), id.String(), r.Min, r.Max)
	}
	return localID, nil
}

// Claim reserves an identifier for a row about to be created at the given site.
// Ranged entities take the lowest free id of the site's range. Centralized entities
// take the master's highest id plus one. The caller must Commit the lease after a
// successful insert or Release it after a failed one.
func (a *Allocator) Claim(ctx context.Context, entityType entity.Type, id site.ID) (*Lease, error) {
	ctx, span := telemetry.SpanContext(ctx, "Allocator.Claim")
	defer span.End()

	descriptor, err := a.catalog.Lookup(entityType)
	if err != nil {
		return nil, err
	}

	var lease *Lease
	switch {
	case descriptor.Allocated:
		lease, err = a.claimRanged(ctx, descriptor, id)
	case descriptor.Partitioning == entity.Centralized:
		lease, err = a.claimSequential(ctx, descriptor)
	default:
		err = errors.Wrapf(gerrors.ErrInvalidInput, "%s identifiers are not allocated", entityType)
	}

	if err != nil {
		span.RecordError(err)
		outcome := metric.OutcomeFailed
		if errors.Is(err, gerrors.ErrRangeExhausted) {
			outcome = metric.OutcomeExhausted
		}
		a.metrics.RecordAllocation(ctx, entityType.String(), id.String(), outcome)
		return nil, err
	}

	a.metrics.RecordAllocation(ctx, entityType.String(), id.String(), metric.OutcomeOK)
	a.logger.Debugf("claimed %s id %d at site %s", entityType, lease.ID, lease.scope.site)
	return lease, nil
}

func (a *Allocator) claimRanged(ctx context.Context, descriptor *entity.Descriptor, id site.ID) (*Lease, error) {
	descriptor, owner, r, err := a.ranged(descriptor.Type, id)
	if err != nil {
		return nil, err
	}

	key := scope{entity: descriptor.Type, site: id}
	if a.claimer != nil {
		localID, ok, err := a.claimer.Claim(ctx, descriptor, owner, r)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to claim %s id at site %s", descriptor.Type, id)
		}
		if !ok {
			return nil, gerrors.NewRangeExhaustedError(descriptor.Type.String(), id.String(), r.Min, r.Max)
		}
		return newLease(a, key, descriptor, owner, localID, true), nil
	}

	lock := a.lock(key)
	lock.Lock()
	defer lock.Unlock()

	occupied, err := a.occupied(ctx, descriptor, owner, r)
	if err != nil {
		return nil, err
	}

	inflight := a.inflightSet(key)
	localID, ok := firstFree(r, occupied, inflight)
	if !ok {
		return nil, gerrors.NewRangeExhaustedError(descriptor.Type.String(), id.String(), r.Min, r.Max)
	}

	inflight.Add(localID)
	return newLease(a, key, descriptor, owner, localID, false), nil
}

func (a *Allocator) claimSequential(ctx context.Context, descriptor *entity.Descriptor) (*Lease, error) {
	master, err := a.topology.Site(a.topology.Master())
	if err != nil {
		return nil, err
	}

	key := scope{entity: descriptor.Type, site: master.ID}
	lock := a.lock(key)
	lock.Lock()
	defer lock.Unlock()

	highest, err := a.source.MaxID(ctx, descriptor, master)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read the highest %s id", descriptor.Type)
	}

	inflight := a.inflightSet(key)
	inflight.Each(func(localID int64) bool {
		if localID > highest {
			highest = localID
		}
		return false
	})

	localID := highest + 1
	inflight.Add(localID)
	return newLease(a, key, descriptor, master, localID, false), nil
}

func (a *Allocator) ranged(entityType entity.Type, id site.ID) (*entity.Descriptor, *site.Site, Range, error) {
	descriptor, err := a.catalog.Lookup(entityType)
	if err != nil {
		return nil, nil, Range{}, err
	}

	if !descriptor.Allocated {
		return nil, nil, Range{}, errors.Wrapf(gerrors.ErrInvalidInput, "%s identifiers are not issued from site ranges", entityType)
	}

	owner, err := a.topology.Site(id)
	if err != nil {
		return nil, nil, Range{}, err
	}

	r, err := a.table.Lookup(entityType, id)
	if err != nil {
		return nil, nil, Range{}, err
	}
	return descriptor, owner, r, nil
}

func (a *Allocator) occupied(ctx context.Context, descriptor *entity.Descriptor, owner *site.Site, r Range) (mapset.Set[int64], error) {
	ids, err := a.source.Occupied(ctx, descriptor, owner, r)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read occupied %s ids at site %s", descriptor.Type, owner.ID)
	}
	return mapset.NewThreadUnsafeSet(ids...), nil
}

func (a *Allocator) lock(key scope) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	lock, ok := a.locks[key]
	if !ok {
		lock = new(sync.Mutex)
		a.locks[key] = lock
	}
	return lock
}

func (a *Allocator) inflightSet(key scope) mapset.Set[int64] {
	a.mu.Lock()
	defer a.mu.Unlock()
	set, ok := a.inflight[key]
	if !ok {
		set = mapset.NewSet[int64]()
		a.inflight[key] = set
	}
	return set
}

// inflightCount is used by tests
func (a *Allocator) inflightCount(entityType entity.Type, id site.ID) int {
	return a.inflightSet(scope{entity: entityType, site: id}).Cardinality()
}

// firstFree scans r upward from Min and returns the first id in none of the taken sets
func firstFree(r Range, taken ...mapset.Set[int64]) (int64, bool) {
next:
	for candidate := r.Min; candidate <= r.Max; candidate++ {
		for _, set := range taken {
			if set.Contains(candidate) {
				continue next
			}
		}
		return candidate, true
	}
	return 0, false
}
