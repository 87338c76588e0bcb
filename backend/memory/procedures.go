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
	"time"

	"github.com/pkg/errors"

	"github.com/clinicnet/shardroute/entity"
	"github.com/clinicnet/shardroute/internal/telemetry"
	"github.com/clinicnet/shardroute/site"
)

type procedure struct {
	descriptor *entity.Descriptor
	op         entity.Operation
}

func (s *Store) register(descriptor *entity.Descriptor) {
	for _, op := range []entity.Operation{entity.Create, entity.Update, entity.Delete} {
		name, err := descriptor.Procedures.Name(op)
		if err != nil {
			continue
		}
		s.procedures[strings.ToLower(name)] = procedure{descriptor: descriptor, op: op}
	}
}

// Exec implements gateway.Port
func (s *Store) Exec(ctx context.Context, at *site.Site, name string, params ...any) (int64, error) {
	_, span := telemetry.SpanContext(ctx, "Store.Exec")
	defer span.End()

	s.mu.Lock()
	s.calls = append(s.calls, Call{Site: at.ID, Name: name, Params: params})
	s.mu.Unlock()

	target, bare, err := s.resolve(at, name)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	failure := s.failures[bare]
	s.mu.Unlock()
	if failure != nil {
		return 0, failure
	}

	proc, ok := s.procedures[bare]
	if !ok {
		return 0, fmt.Errorf("procedure %s does not exist", bare)
	}

	switch proc.op {
	case entity.Create, entity.Update:
		return s.upsert(target, proc, params)
	default:
		return s.remove(target, proc.descriptor, params)
	}
}

func (s *Store) upsert(target site.ID, proc procedure, params []any) (int64, error) {
	descriptor := proc.descriptor
	if len(params) != len(descriptor.Columns) {
		return 0, fmt.Errorf("%s expects %d arguments, got %d", descriptor.Type, len(descriptor.Columns), len(params))
	}

	values := make(map[string]any, len(params))
	for index, column := range descriptor.Columns {
		values[column] = params[index]
	}

	var owner int
	if descriptor.Keyed() {
		code, err := toInt64(values[descriptor.OwnerColumn])
		if err != nil {
			return 0, err
		}
		owner = int(code)
	}

	id, err := toInt64(values[descriptor.IDColumn])
	if err != nil {
		return 0, err
	}

	if descriptor.Partitioning == entity.Sharded {
		home, _ := s.topology.Site(target)
		if home.Code != owner {
			return 0, fmt.Errorf("%s owner %d does not belong to site %s", descriptor.Type, owner, target)
		}
	}

	pk := rowPK(target, descriptor.View, owner, id)
	txn := s.db.Txn(true)
	existing, err := txn.First(rowsTableName, pkIndex, pk)
	if err != nil {
		txn.Abort()
		return 0, errors.Wrap(err, "failed to read row")
	}

	switch {
	case proc.op == entity.Create && existing != nil:
		txn.Abort()
		return 0, fmt.Errorf("duplicate key %s (%d, %d)", descriptor.View, owner, id)
	case proc.op == entity.Update && existing == nil:
		txn.Abort()
		return 0, nil
	}

	row := &tableRow{PK: pk, Home: target.String(), Relation: descriptor.View, Owner: owner, ID: id, Values: values}
	if err := txn.Insert(rowsTableName, row); err != nil {
		txn.Abort()
		return 0, errors.Wrap(err, "failed to persist row")
	}
	txn.Commit()
	return 1, nil
}

func (s *Store) remove(target site.ID, descriptor *entity.Descriptor, params []any) (int64, error) {
	var (
		owner int
		idArg any
	)

	if descriptor.Keyed() {
		if len(params) != 2 {
			return 0, fmt.Errorf("%s delete expects 2 arguments, got %d", descriptor.Type, len(params))
		}
		code, err := toInt64(params[0])
		if err != nil {
			return 0, err
		}
		owner, idArg = int(code), params[1]
	} else {
		if len(params) != 1 {
			return 0, fmt.Errorf("%s delete expects 1 argument, got %d", descriptor.Type, len(params))
		}
		idArg = params[0]
	}

	id, err := toInt64(idArg)
	if err != nil {
		return 0, err
	}

	txn := s.db.Txn(true)
	existing, err := txn.First(rowsTableName, pkIndex, rowPK(target, descriptor.View, owner, id))
	if err != nil {
		txn.Abort()
		return 0, errors.Wrap(err, "failed to read row")
	}

	if existing == nil {
		txn.Abort()
		return 0, nil
	}

	if err := txn.Delete(rowsTableName, existing); err != nil {
		txn.Abort()
		return 0, errors.Wrap(err, "failed to delete row")
	}
	txn.Commit()
	return 1, nil
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", value)
	}
}

func compare(left, right any) int {
	switch l := left.(type) {
	case string:
		if r, ok := right.(string); ok {
			return strings.Compare(l, r)
		}
	case time.Time:
		if r, ok := right.(time.Time); ok {
			return l.Compare(r)
		}
	case float64:
		if r, ok := right.(float64); ok {
			switch {
			case l < r:
				return -1
			case l > r:
				return 1
			}
			return 0
		}
	}

	l, lerr := toInt64(left)
	r, rerr := toInt64(right)
	if lerr != nil || rerr != nil {
		return strings.Compare(fmt.Sprint(left), fmt.Sprint(right))
	}

	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	}
	return 0
}
