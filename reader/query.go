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
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/clinicnet/shardroute/entity"
)

// Query is a read against one relation of a site.
// Backends either render it to SQL with ToSQL or evaluate it natively.
type Query struct {
	// Entity is the entity read
	Entity entity.Type
	// Relation is the view or table, qualified with a cross-site reference when read remotely
	Relation string
	// Columns are the selected columns
	Columns []string
	// OwnerColumn holds the owner-site code
	OwnerColumn string
	// Owner restricts rows to the given owner-site code when not nil
	Owner *int
	// IDColumn holds the local identifier
	IDColumn string
	// ID restricts rows to the given local identifier when not nil
	ID *int64
	// Term is the search term; empty means no search
	Term string
	// SearchColumns are matched with a case-insensitive LIKE
	SearchColumns []string
	// SearchIDColumns are matched through a text cast
	SearchIDColumns []string
	// OrderBy orders the result
	OrderBy []string
	// Limit caps the number of rows; zero means no cap
	Limit uint64
}

// Pattern returns the LIKE pattern of the search term
func (q Query) Pattern() string {
	return "%" + q.Term + "%"
}

// ToSQL renders the query with $n placeholders
func (q Query) ToSQL() (string, []any, error) {
	builder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select(q.Columns...).
		From(q.Relation)

	if q.Owner != nil {
		builder = builder.Where(sq.Eq{q.OwnerColumn: *q.Owner})
	}

	if q.ID != nil {
		builder = builder.Where(sq.Eq{q.IDColumn: *q.ID})
	}

	if q.Term != "" {
		pattern := q.Pattern()
		match := sq.Or{}
		for _, column := range q.SearchColumns {
			match = append(match, sq.ILike{column: pattern})
		}
		for _, column := range q.SearchIDColumns {
			match = append(match, sq.Expr(fmt.Sprintf("CAST(%s AS TEXT) LIKE ?", column), pattern))
		}
		if len(match) > 0 {
			builder = builder.Where(match)
		}
	}

	if len(q.OrderBy) > 0 {
		builder = builder.OrderBy(q.OrderBy...)
	}

	if q.Limit > 0 {
		builder = builder.Limit(q.Limit)
	}

	return builder.ToSql()
}
