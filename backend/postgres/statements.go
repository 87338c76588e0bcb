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
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/clinicnet/shardroute/allocator"
	"github.com/clinicnet/shardroute/entity"
)

const (
	// DefaultLeaseTable records identifiers claimed but not yet inserted
	DefaultLeaseTable = "shardroute_id_leases"
	// DefaultLeaseTTL is how long a lease holds its identifier when the claiming
	// process neither commits nor releases it
	DefaultLeaseTTL = 5 * time.Minute
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// callStatement renders a procedure call with positional placeholders.
// Every dotted part of the name is quoted as an identifier.
func callStatement(name string, arity int) string {
	parts := strings.Split(name, ".")
	for index, part := range parts {
		parts[index] = pq.QuoteIdentifier(part)
	}

	placeholders := make([]string, arity)
	for index := range placeholders {
		placeholders[index] = fmt.Sprintf("$%d", index+1)
	}
	return fmt.Sprintf("CALL %s(%s)", strings.Join(parts, "."), strings.Join(placeholders, ", "))
}

func occupiedQuery(descriptor *entity.Descriptor, owner int, r allocator.Range) (string, []any, error) {
	return psql.
		Select(descriptor.IDColumn).
		From(descriptor.View).
		Where(sq.Eq{descriptor.OwnerColumn: owner}).
		Where(sq.GtOrEq{descriptor.IDColumn: r.Min}).
		Where(sq.LtOrEq{descriptor.IDColumn: r.Max}).
		OrderBy(descriptor.IDColumn).
		ToSql()
}

func maxIDQuery(descriptor *entity.Descriptor) (string, []any, error) {
	return psql.
		Select(fmt.Sprintf("COALESCE(MAX(%s), 0)", descriptor.IDColumn)).
		From(descriptor.View).
		ToSql()
}

// leasedQuery selects the live leases of the range. A non-positive ttl keeps every lease live.
func leasedQuery(table, relation string, owner int, r allocator.Range, ttl time.Duration) (string, []any, error) {
	builder := psql.
		Select("id").
		From(table).
		Where(sq.Eq{"relation": relation, "owner": owner}).
		Where(sq.GtOrEq{"id": r.Min}).
		Where(sq.LtOrEq{"id": r.Max})

	if ttl > 0 {
		builder = builder.Where(sq.Expr("claimed_at > now() - make_interval(secs => ?)", ttl.Seconds()))
	}
	return builder.ToSql()
}

// expireLeasesStatement deletes the leases of relation and owner older than ttl
func expireLeasesStatement(table, relation string, owner int, ttl time.Duration) (string, []any, error) {
	return psql.
		Delete(table).
		Where(sq.Eq{"relation": relation, "owner": owner}).
		Where(sq.Expr("claimed_at <= now() - make_interval(secs => ?)", ttl.Seconds())).
		ToSql()
}

func insertLeaseStatement(table, relation string, owner int, id int64) (string, []any, error) {
	return psql.
		Insert(table).
		Columns("relation", "owner", "id").
		Values(relation, owner, id).
		ToSql()
}

func deleteLeaseStatement(table, relation string, owner int, id int64) (string, []any, error) {
	return psql.
		Delete(table).
		Where(sq.Eq{"relation": relation, "owner": owner, "id": id}).
		ToSql()
}

func createLeaseTableStatement(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	relation TEXT NOT NULL,
	owner INTEGER NOT NULL,
	id BIGINT NOT NULL,
	claimed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (relation, owner, id)
)`, pq.QuoteIdentifier(table))
}

// lockKey names the advisory lock serializing claims of one relation and owner
func lockKey(relation string, owner int) string {
	return fmt.Sprintf("%s/%d", relation, owner)
}
