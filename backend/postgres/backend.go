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

package postgres

import (
	"context"
	"database/sql"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/clinicnet/shardroute/allocator"
	"github.com/clinicnet/shardroute/entity"
	gerrors "github.com/clinicnet/shardroute/errors"
	"github.com/clinicnet/shardroute/gateway"
	"github.com/clinicnet/shardroute/internal/postgres"
	"github.com/clinicnet/shardroute/internal/telemetry"
	"github.com/clinicnet/shardroute/log"
	"github.com/clinicnet/shardroute/reader"
	"github.com/clinicnet/shardroute/site"
)

// handle is the connection pool of one site, opened on first use
type handle struct {
	mu        sync.Mutex
	db        *postgres.Postgres
	connected *atomic.Bool
}

// Backend routes every port to the Postgres database of the site it is
// addressed to. Each site's pool is opened lazily and is never shared.
type Backend struct {
	topology    *site.Topology
	logger      log.Logger
	leaseTable  string
	leaseTTL    time.Duration
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
	handles     map[site.ID]*handle
}

var (
	_ site.Prober              = (*Backend)(nil)
	_ allocator.OccupiedSource = (*Backend)(nil)
	_ allocator.Claimer        = (*Backend)(nil)
	_ gateway.Port             = (*Backend)(nil)
	_ reader.Querier           = (*Backend)(nil)
)

// New creates an instance of Backend for every site of the topology
func New(topology *site.Topology, opts ...Option) (*Backend, error) {
	if topology == nil {
		return nil, errors.New("topology is required")
	}

	backend := &Backend{
		topology:    topology,
		logger:      log.DiscardLogger,
		leaseTable:  DefaultLeaseTable,
		leaseTTL:    DefaultLeaseTTL,
		maxOpen:     10,
		maxIdle:     2,
		maxLifetime: 5 * time.Minute,
		handles:     make(map[site.ID]*handle),
	}

	for _, opt := range opts {
		opt.Apply(backend)
	}

	for _, s := range topology.Sites() {
		config := backend.config(s)
		if err := config.Validate(); err != nil {
			return nil, errors.Wrapf(err, "site %s", s.ID)
		}
		backend.handles[s.ID] = &handle{db: postgres.New(config), connected: atomic.NewBool(false)}
	}
	return backend, nil
}

func (b *Backend) config(s *site.Site) *postgres.Config {
	return &postgres.Config{
		DBHost:                s.DB.Host,
		DBPort:                s.DB.Port,
		DBName:                s.DB.Database,
		DBUser:                s.DB.User,
		DBPassword:            s.DB.Password,
		DBSchema:              s.DB.Schema,
		MaxOpenConnections:    b.maxOpen,
		MaxIdleConnections:    b.maxIdle,
		ConnectionMaxLifetime: b.maxLifetime,
	}
}

// Probe implements site.Prober with a short-lived connection running SELECT 1
func (b *Backend) Probe(ctx context.Context, at *site.Site) error {
	h, err := b.handle(at.ID)
	if err != nil {
		return err
	}
	return h.db.Ping(ctx)
}

// Connected reports whether the pool of a site is open
func (b *Backend) Connected(id site.ID) bool {
	h, err := b.handle(id)
	return err == nil && h.connected.Load()
}

// EnsureLeaseTable creates the claim table at every site
func (b *Backend) EnsureLeaseTable(ctx context.Context) error {
	var err error
	for _, s := range b.topology.Sites() {
		db, cerr := b.connect(ctx, s.ID)
		if cerr != nil {
			err = multierr.Append(err, cerr)
			continue
		}
		if _, xerr := db.Exec(ctx, createLeaseTableStatement(b.leaseTable)); xerr != nil {
			err = multierr.Append(err, errors.Wrapf(xerr, "failed to create the lease table at site %s", s.ID))
		}
	}
	return err
}

// Close closes every opened pool
func (b *Backend) Close(ctx context.Context) error {
	var err error
	for id, h := range b.handles {
		h.mu.Lock()
		if h.connected.Load() {
			err = multierr.Append(err, errors.Wrapf(h.db.Disconnect(ctx), "site %s", id))
			h.connected.Store(false)
		}
		h.mu.Unlock()
	}
	return err
}

// Occupied implements allocator.OccupiedSource
func (b *Backend) Occupied(ctx context.Context, descriptor *entity.Descriptor, owner *site.Site, r allocator.Range) ([]int64, error) {
	ctx, span := telemetry.SpanContext(ctx, "Backend.Occupied", telemetry.SiteKey.String(owner.ID.String()))
	defer span.End()

	query, args, err := occupiedQuery(descriptor, owner.Code, r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build the occupied ids query")
	}

	db, err := b.connect(ctx, owner.ID)
	if err != nil {
		return nil, err
	}

	var ids []int64
	if err := db.SelectAll(ctx, &ids, query, args...); err != nil {
		return nil, errors.Wrapf(err, "failed to read %s ids", descriptor.Type)
	}
	return ids, nil
}

// MaxID implements allocator.OccupiedSource
func (b *Backend) MaxID(ctx context.Context, descriptor *entity.Descriptor, at *site.Site) (int64, error) {
	ctx, span := telemetry.SpanContext(ctx, "Backend.MaxID", telemetry.SiteKey.String(at.ID.String()))
	defer span.End()

	query, args, err := maxIDQuery(descriptor)
	if err != nil {
		return 0, errors.Wrap(err, "failed to build the max id query")
	}

	db, err := b.connect(ctx, at.ID)
	if err != nil {
		return 0, err
	}

	var highest int64
	if err := db.Select(ctx, &highest, query, args...); err != nil {
		return 0, errors.Wrapf(err, "failed to read the highest %s id", descriptor.Type)
	}
	return highest, nil
}

// Claim implements allocator.Claimer. The claim runs in one transaction
// holding an advisory lock scoped to the relation and owner. Leases older
// than the lease TTL are dropped before the free identifier is chosen.
func (b *Backend) Claim(ctx context.Context, descriptor *entity.Descriptor, owner *site.Site, r allocator.Range) (int64, bool, error) {
	ctx, span := telemetry.SpanContext(ctx, "Backend.Claim", telemetry.SiteKey.String(owner.ID.String()))
	defer span.End()

	db, err := b.connect(ctx, owner.ID)
	if err != nil {
		return 0, false, err
	}

	var (
		claimed int64
		found   bool
	)
	err = db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", lockKey(descriptor.View, owner.Code)); err != nil {
			return errors.Wrap(err, "failed to take the claim lock")
		}

		if b.leaseTTL > 0 {
			statement, args, err := expireLeasesStatement(b.leaseTable, descriptor.View, owner.Code, b.leaseTTL)
			if err != nil {
				return err
			}
			expired, err := tx.ExecContext(ctx, statement, args...)
			if err != nil {
				return errors.Wrap(err, "failed to drop expired leases")
			}
			if count, _ := expired.RowsAffected(); count > 0 {
				b.logger.Warnf("dropped %d expired %s leases at site %s", count, descriptor.Type, owner.ID)
			}
		}

		taken := mapset.NewThreadUnsafeSet[int64]()
		for _, build := range []func() (string, []any, error){
			func() (string, []any, error) { return occupiedQuery(descriptor, owner.Code, r) },
			func() (string, []any, error) { return leasedQuery(b.leaseTable, descriptor.View, owner.Code, r, b.leaseTTL) },
		} {
			query, args, err := build()
			if err != nil {
				return err
			}
			var ids []int64
			if err := sqlscan.Select(ctx, tx, &ids, query, args...); err != nil {
				return errors.Wrap(err, "failed to read taken ids")
			}
			taken.Append(ids...)
		}

		for candidate := r.Min; candidate <= r.Max; candidate++ {
			if !taken.Contains(candidate) {
				claimed, found = candidate, true
				break
			}
		}
		if !found {
			return nil
		}

		statement, args, err := insertLeaseStatement(b.leaseTable, descriptor.View, owner.Code, claimed)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, statement, args...)
		return errors.Wrap(err, "failed to record the claim")
	})
	if err != nil {
		return 0, false, err
	}

	if found {
		b.logger.Debugf("claimed %s id %d at site %s", descriptor.Type, claimed, owner.ID)
	}
	return claimed, found, nil
}

// Release implements allocator.Claimer
func (b *Backend) Release(ctx context.Context, descriptor *entity.Descriptor, owner *site.Site, id int64) error {
	ctx, span := telemetry.SpanContext(ctx, "Backend.Release", telemetry.SiteKey.String(owner.ID.String()))
	defer span.End()

	statement, args, err := deleteLeaseStatement(b.leaseTable, descriptor.View, owner.Code, id)
	if err != nil {
		return err
	}

	db, err := b.connect(ctx, owner.ID)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, statement, args...)
	return errors.Wrapf(err, "failed to release %s id %d", descriptor.Type, id)
}

// Exec implements gateway.Port. Procedures are invoked with CALL on the
// connection of the given site; the affected rows are what the driver reports.
func (b *Backend) Exec(ctx context.Context, at *site.Site, name string, params ...any) (int64, error) {
	ctx, span := telemetry.SpanContext(ctx, "Backend.Exec", telemetry.SiteKey.String(at.ID.String()))
	defer span.End()

	db, err := b.connect(ctx, at.ID)
	if err != nil {
		return 0, err
	}

	res, err := db.Exec(ctx, callStatement(name, len(params)), params...)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// SelectAll implements reader.Querier
func (b *Backend) SelectAll(ctx context.Context, at *site.Site, query reader.Query, dst any) error {
	ctx, span := telemetry.SpanContext(ctx, "Backend.SelectAll", telemetry.SiteKey.String(at.ID.String()))
	defer span.End()

	statement, args, err := query.ToSQL()
	if err != nil {
		return errors.Wrapf(err, "failed to build the %s query", query.Entity)
	}

	db, err := b.connect(ctx, at.ID)
	if err != nil {
		return err
	}
	return db.SelectAll(ctx, dst, statement, args...)
}

// Select implements reader.Querier
func (b *Backend) Select(ctx context.Context, at *site.Site, query reader.Query, dst any) error {
	ctx, span := telemetry.SpanContext(ctx, "Backend.Select", telemetry.SiteKey.String(at.ID.String()))
	defer span.End()

	statement, args, err := query.ToSQL()
	if err != nil {
		return errors.Wrapf(err, "failed to build the %s query", query.Entity)
	}

	db, err := b.connect(ctx, at.ID)
	if err != nil {
		return err
	}

	if err := db.Select(ctx, dst, statement, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errors.Wrapf(gerrors.ErrNotFound, "%s", query.Entity)
		}
		return err
	}
	return nil
}

func (b *Backend) handle(id site.ID) (*handle, error) {
	h, ok := b.handles[id]
	if !ok {
		return nil, errors.Wrapf(gerrors.ErrUnknownSite, "%s", id)
	}
	return h, nil
}

func (b *Backend) connect(ctx context.Context, id site.ID) (*postgres.Postgres, error) {
	h, err := b.handle(id)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.connected.Load() {
		return h.db, nil
	}

	if err := h.db.Connect(ctx); err != nil {
		return nil, errors.Wrapf(err, "failed to connect to site %s", id)
	}
	h.connected.Store(true)
	b.logger.Debugf("connected to site %s", id)
	return h.db, nil
}
