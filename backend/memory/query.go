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
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/dbscan"
	"github.com/pkg/errors"

	"github.com/clinicnet/shardroute/allocator"
	"github.com/clinicnet/shardroute/entity"
	gerrors "github.com/clinicnet/shardroute/errors"
	"github.com/clinicnet/shardroute/internal/telemetry"
	"github.com/clinicnet/shardroute/reader"
	"github.com/clinicnet/shardroute/site"
)

var scanAPI = mustScanAPI()

func mustScanAPI() *dbscan.API {
	api, err := dbscan.NewAPI(dbscan.WithAllowUnknownColumns(true))
	if err != nil {
		panic(err)
	}
	return api
}

// SelectAll implements reader.Querier
func (s *Store) SelectAll(ctx context.Context, at *site.Site, query reader.Query, dst any) error {
	_, span := telemetry.SpanContext(ctx, "Store.SelectAll")
	defer span.End()

	result, err := s.evaluate(at, query)
	if err != nil {
		return err
	}
	return scanAPI.ScanAll(dst, result)
}

// Select implements reader.Querier
func (s *Store) Select(ctx context.Context, at *site.Site, query reader.Query, dst any) error {
	_, span := telemetry.SpanContext(ctx, "Store.Select")
	defer span.End()

	query.Limit = 1
	result, err := s.evaluate(at, query)
	if err != nil {
		return err
	}

	if err := scanAPI.ScanOne(dst, result); err != nil {
		if dbscan.NotFound(err) {
			return errors.Wrapf(gerrors.ErrNotFound, "%s", query.Entity)
		}
		return err
	}
	return nil
}

// Occupied implements allocator.OccupiedSource
func (s *Store) Occupied(ctx context.Context, descriptor *entity.Descriptor, owner *site.Site, r allocator.Range) ([]int64, error) {
	_, span := telemetry.SpanContext(ctx, "Store.Occupied")
	defer span.End()

	if err := s.checkReachable(owner.ID); err != nil {
		return nil, err
	}
	return s.occupied(descriptor, owner.Code, r)
}

// MaxID implements allocator.OccupiedSource
func (s *Store) MaxID(ctx context.Context, descriptor *entity.Descriptor, at *site.Site) (int64, error) {
	_, span := telemetry.SpanContext(ctx, "Store.MaxID")
	defer span.End()

	if err := s.checkReachable(at.ID); err != nil {
		return 0, err
	}

	rows, err := s.rows(descriptor.View)
	if err != nil {
		return 0, err
	}

	var highest int64
	for _, row := range rows {
		if row.ID > highest {
			highest = row.ID
		}
	}
	return highest, nil
}

// Claim implements allocator.Claimer
func (s *Store) Claim(ctx context.Context, descriptor *entity.Descriptor, owner *site.Site, r allocator.Range) (int64, bool, error) {
	_, span := telemetry.SpanContext(ctx, "Store.Claim")
	defer span.End()

	if err := s.checkReachable(owner.ID); err != nil {
		return 0, false, err
	}

	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	occupied, err := s.occupied(descriptor, owner.Code, r)
	if err != nil {
		return 0, false, err
	}

	taken := make(map[int64]bool, len(occupied))
	for _, id := range occupied {
		taken[id] = true
	}

	txn := s.db.Txn(true)
	it, err := txn.Get(leasesTableName, relationIndex, descriptor.View, owner.Code)
	if err != nil {
		txn.Abort()
		return 0, false, errors.Wrap(err, "failed to read leases")
	}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		taken[raw.(*leaseRow).ID] = true
	}

	for candidate := r.Min; candidate <= r.Max; candidate++ {
		if taken[candidate] {
			continue
		}

		lease := &leaseRow{PK: leasePK(descriptor.View, owner.Code, candidate), Relation: descriptor.View, Owner: owner.Code, ID: candidate}
		if err := txn.Insert(leasesTableName, lease); err != nil {
			txn.Abort()
			return 0, false, errors.Wrap(err, "failed to persist lease")
		}
		txn.Commit()
		return candidate, true, nil
	}

	txn.Abort()
	return 0, false, nil
}

// Release implements allocator.Claimer
func (s *Store) Release(ctx context.Context, descriptor *entity.Descriptor, owner *site.Site, id int64) error {
	_, span := telemetry.SpanContext(ctx, "Store.Release")
	defer span.End()

	txn := s.db.Txn(true)
	if _, err := txn.DeleteAll(leasesTableName, pkIndex, leasePK(descriptor.View, owner.Code, id)); err != nil {
		txn.Abort()
		return errors.Wrap(err, "failed to release lease")
	}
	txn.Commit()
	return nil
}

func leasePK(relation string, owner int, id int64) string {
	return fmt.Sprintf("%s/%d/%d", relation, owner, id)
}

func (s *Store) occupied(descriptor *entity.Descriptor, owner int, r allocator.Range) ([]int64, error) {
	rows, err := s.rows(descriptor.View)
	if err != nil {
		return nil, err
	}

	var ids []int64
	for _, row := range rows {
		if row.Owner == owner && r.Contains(row.ID) {
			ids = append(ids, row.ID)
		}
	}
	return ids, nil
}

func (s *Store) evaluate(at *site.Site, query reader.Query) (*resultRows, error) {
	descriptor, err := s.catalog.Lookup(query.Entity)
	if err != nil {
		return nil, err
	}

	target, relation, err := s.resolve(at, query.Relation)
	if err != nil {
		return nil, err
	}

	rows, err := s.rows(relation)
	if err != nil {
		return nil, err
	}

	matched := make([]*tableRow, 0, len(rows))
	for _, row := range rows {
		if descriptor.Partitioning == entity.MasterHosted && row.Home != target.String() {
			continue
		}
		if query.Owner != nil && row.Owner != *query.Owner {
			continue
		}
		if query.ID != nil && row.ID != *query.ID {
			continue
		}
		if query.Term != "" && !matches(row, query) {
			continue
		}
		matched = append(matched, row)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		for _, column := range query.OrderBy {
			if c := compare(matched[i].Values[column], matched[j].Values[column]); c != 0 {
				return c < 0
			}
		}
		return false
	})

	if query.Limit > 0 && uint64(len(matched)) > query.Limit {
		matched = matched[:query.Limit]
	}

	result := &resultRows{columns: query.Columns, values: make([][]any, 0, len(matched))}
	for _, row := range matched {
		values := make([]any, len(query.Columns))
		for index, column := range query.Columns {
			values[index] = row.Values[column]
		}
		result.values = append(result.values, values)
	}
	return result, nil
}

func matches(row *tableRow, query reader.Query) bool {
	term := strings.ToLower(query.Term)
	for _, column := range query.SearchColumns {
		if text, ok := row.Values[column].(string); ok && strings.Contains(strings.ToLower(text), term) {
			return true
		}
	}
	for _, column := range query.SearchIDColumns {
		if value, ok := row.Values[column]; ok && strings.Contains(fmt.Sprint(value), query.Term) {
			return true
		}
	}
	return false
}

// resultRows feeds evaluated rows to dbscan
type resultRows struct {
	columns []string
	values  [][]any
	cursor  int
}

var _ dbscan.Rows = (*resultRows)(nil)

func (r *resultRows) Close() error        { return nil }
func (r *resultRows) Err() error          { return nil }
func (r *resultRows) NextResultSet() bool { return false }

func (r *resultRows) Columns() ([]string, error) {
	return r.columns, nil
}

func (r *resultRows) Next() bool {
	if r.cursor >= len(r.values) {
		return false
	}
	r.cursor++
	return true
}

func (r *resultRows) Scan(dest ...any) error {
	if r.cursor == 0 || r.cursor > len(r.values) {
		return errors.New("scan called without a current row")
	}

	row := r.values[r.cursor-1]
	if len(dest) != len(row) {
		return fmt.Errorf("expected %d destinations, got %d", len(row), len(dest))
	}

	for index, target := range dest {
		if err := assign(target, row[index]); err != nil {
			return errors.Wrapf(err, "column %s", r.columns[index])
		}
	}
	return nil
}

func assign(dest, value any) error {
	if value == nil {
		return nil
	}

	switch d := dest.(type) {
	case *any:
		*d = value
	case *int:
		v, err := toInt64(value)
		if err != nil {
			return err
		}
		*d = int(v)
	case *int64:
		v, err := toInt64(value)
		if err != nil {
			return err
		}
		*d = v
	case *float64:
		switch v := value.(type) {
		case float64:
			*d = v
		default:
			i, err := toInt64(value)
			if err != nil {
				return err
			}
			*d = float64(i)
		}
	case *string:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected a string, got %T", value)
		}
		*d = v
	case *time.Time:
		v, ok := value.(time.Time)
		if !ok {
			return fmt.Errorf("expected a time, got %T", value)
		}
		*d = v
	case sql.Scanner:
		return d.Scan(value)
	default:
		return fmt.Errorf("unsupported destination %T", dest)
	}
	return nil
}
