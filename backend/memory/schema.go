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

import "github.com/hashicorp/go-memdb"

// tableRow is a stored row of any relation
type tableRow struct {
	// PK is home/relation/owner/id
	PK string
	// Home is the site physically holding the row
	Home string
	// Relation is the view or table name
	Relation string
	// Owner is the owner-site code, 0 for centralized rows
	Owner int
	// ID is the local identifier
	ID int64
	// Values maps column names to values
	Values map[string]any
}

// leaseRow is an identifier reserved by the claimer
type leaseRow struct {
	PK       string
	Relation string
	Owner    int
	ID       int64
}

const (
	rowsTableName   = "rows"
	leasesTableName = "leases"
	pkIndex         = "id"
	relationIndex   = "relation"
)

var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		rowsTableName: {
			Name: rowsTableName,
			Indexes: map[string]*memdb.IndexSchema{
				pkIndex: {
					Name:         pkIndex,
					AllowMissing: false,
					Unique:       true,
					Indexer:      &memdb.StringFieldIndex{Field: "PK"},
				},
				relationIndex: {
					Name:         relationIndex,
					AllowMissing: false,
					Unique:       false,
					Indexer:      &memdb.StringFieldIndex{Field: "Relation"},
				},
			},
		},
		leasesTableName: {
			Name: leasesTableName,
			Indexes: map[string]*memdb.IndexSchema{
				pkIndex: {
					Name:         pkIndex,
					AllowMissing: false,
					Unique:       true,
					Indexer:      &memdb.StringFieldIndex{Field: "PK"},
				},
				relationIndex: {
					Name:         relationIndex,
					AllowMissing: false,
					Unique:       false,
					Indexer: &memdb.CompoundIndex{
						Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "Relation"},
							&memdb.IntFieldIndex{Field: "Owner"},
						},
						AllowMissing: false,
					},
				},
			},
		},
	},
}
