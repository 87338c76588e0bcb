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

package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/clinicnet/shardroute/allocator"
	"github.com/clinicnet/shardroute/entity"
	"github.com/clinicnet/shardroute/gateway"
	"github.com/clinicnet/shardroute/internal/telemetry"
	"github.com/clinicnet/shardroute/reader"
	"github.com/clinicnet/shardroute/site"
)

// ErrUnreachable is returned for any access to a site switched off
var ErrUnreachable = errors.New("site unreachable")

// Call is a procedure call received by the store
type Call struct {
	// Site is the site whose connection issued the call
	Site site.ID
	// Name is the called name, qualified when remote
	Name string
	// Params are the positional arguments
	Params []any
}

// Store is an in-memory multi-site database. Sharded and centralized
// relations read as the union of every site's rows, master-hosted relations
// only show the rows held by the site they are read at.
type Store struct {
	topology *site.Topology
	catalog  *entity.Catalog
	db       *memdb.MemDB

	reachable  map[site.ID]*atomic.Bool
	links      map[string]site.ID
	procedures map[string]procedure

	mu       sync.Mutex
	failures map[string]error
	calls    []Call

	// claimMu serializes claims the way an advisory lock would
	claimMu sync.Mutex
}

var (
	_ site.Prober              = (*Store)(nil)
	_ allocator.OccupiedSource = (*Store)(nil)
	_ allocator.Claimer        = (*Store)(nil)
	_ gateway.Port             = (*Store)(nil)
	_ reader.Querier           = (*Store)(nil)
)

// New creates an instance of Store with every site reachable and one
// create, update and delete procedure per catalogued entity
func New(topology *site.Topology, catalog *entity.Catalog) (*Store, error) {
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create the in-memory database")
	}

	store := &Store{
		topology:   topology,
		catalog:    catalog,
		db:         db,
		reachable:  make(map[site.ID]*atomic.Bool),
		links:      make(map[string]site.ID),
		procedures: make(map[string]procedure),
		failures:   make(map[string]error),
	}

	for _, s := range topology.Sites() {
		store.reachable[s.ID] = atomic.NewBool(true)
		store.links[strings.ToLower(s.Link)] = s.ID
	}

	for _, entityType := range catalog.Types() {
		descriptor, _ := catalog.Lookup(entityType)
		store.register(descriptor)
	}
	return store, nil
}

// SetReachable switches a site on or off
func (s *Store) SetReachable(id site.ID, up bool) {
	if flag, ok := s.reachable[id]; ok {
		flag.Store(up)
	}
}

// FailProcedure makes every call of the named procedure fail with err.
// A nil err clears the failure.
func (s *Store) FailProcedure(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name = strings.ToLower(name)
	if err == nil {
		delete(s.failures, name)
		return
	}
	s.failures[name] = err
}

// Calls returns the procedure calls received so far
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := make([]Call, len(s.calls))
	copy(calls, s.calls)
	return calls
}

// Stored returns the keys of the rows of entityType physically held by a site
func (s *Store) Stored(id site.ID, entityType entity.Type) ([]entity.Key, error) {
	descriptor, err := s.catalog.Lookup(entityType)
	if err != nil {
		return nil, err
	}

	rows, err := s.rows(descriptor.View)
	if err != nil {
		return nil, err
	}

	var keys []entity.Key
	for _, row := range rows {
		if row.Home == id.String() {
			keys = append(keys, entity.Key{Site: row.Owner, LocalID: row.ID})
		}
	}
	return keys, nil
}

// Probe implements site.Prober
func (s *Store) Probe(ctx context.Context, at *site.Site) error {
	_, span := telemetry.SpanContext(ctx, "Store.Probe")
	defer span.End()
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.checkReachable(at.ID)
}

func (s *Store) checkReachable(id site.ID) error {
	flag, ok := s.reachable[id]
	if !ok {
		return fmt.Errorf("unknown site %s", id)
	}
	if !flag.Load() {
		return errors.Wrapf(ErrUnreachable, "site %s", id)
	}
	return nil
}

// resolve splits an optionally qualified name into the target site and the bare name.
// Reaching a remote site requires both sites to be up.
func (s *Store) resolve(at *site.Site, name string) (site.ID, string, error) {
	if err := s.checkReachable(at.ID); err != nil {
		return "", "", err
	}

	name = strings.ToLower(name)
	link, bare, qualified := strings.Cut(name, ".")
	if !qualified {
		return at.ID, name, nil
	}

	target, ok := s.links[link]
	if !ok {
		return "", "", fmt.Errorf("unknown cross-site reference %q", link)
	}

	if err := s.checkReachable(target); err != nil {
		return "", "", err
	}
	return target, bare, nil
}

func (s *Store) rows(relation string) ([]*tableRow, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(rowsTableName, relationIndex, relation)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read relation %s", relation)
	}

	var rows []*tableRow
	for raw := it.Next(); raw != nil; raw = it.Next() {
		if row, ok := raw.(*tableRow); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func rowPK(home site.ID, relation string, owner int, id int64) string {
	return fmt.Sprintf("%s/%s/%d/%d", home, relation, owner, id)
}
