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

package entity

import (
	"fmt"

	"github.com/pkg/errors"

	gerrors "github.com/clinicnet/shardroute/errors"
	"github.com/clinicnet/shardroute/internal/validation"
)

// Procedures names the stored procedures writing an entity
type Procedures struct {
	Create string
	Update string
	Delete string
}

// Name returns the procedure matching the write operation
func (p Procedures) Name(op Operation) (string, error) {
	var name string
	switch op {
	case Create:
		name = p.Create
	case Update:
		name = p.Update
	case Delete:
		name = p.Delete
	}

	if name == "" {
		return "", errors.Wrapf(gerrors.ErrInvalidInput, "no procedure for %s", op)
	}
	return name, nil
}

// Descriptor holds the storage metadata of an entity type
type Descriptor struct {
	// Type is the described entity
	Type Type
	// Partitioning states where rows live
	Partitioning Partitioning
	// View is the relation read at the local site
	View string
	// OwnerColumn holds the owner-site code; empty for centralized entities
	OwnerColumn string
	// IDColumn holds the local identifier
	IDColumn string
	// Columns are the selected columns
	Columns []string
	// SearchColumns are text columns matched with LIKE
	SearchColumns []string
	// SearchIDColumns are numeric columns matched through a text cast
	SearchIDColumns []string
	// OrderBy orders list and search results
	OrderBy []string
	// Procedures names the write procedures
	Procedures Procedures
	// Allocated states whether local ids come from a site range
	Allocated bool
}

var _ validation.Validator = (*Descriptor)(nil)

// Validate implements validation.Validator
func (d *Descriptor) Validate() error {
	chain := validation.New(validation.FailFast()).
		AddValidator(validation.NewEmptyStringValidator("Type", string(d.Type))).
		AddValidator(validation.NewEmptyStringValidator("View", d.View)).
		AddValidator(validation.NewEmptyStringValidator("IDColumn", d.IDColumn)).
		AddAssertion(len(d.Columns) > 0, fmt.Sprintf("%s: Columns must not be empty", d.Type))

	if d.Partitioning != Centralized {
		chain = chain.AddValidator(validation.NewEmptyStringValidator("OwnerColumn", d.OwnerColumn))
	}

	return chain.Validate()
}

// Keyed reports whether rows carry an owner-site code
func (d *Descriptor) Keyed() bool {
	return d.Partitioning != Centralized
}

// clone returns a deep copy of the descriptor
func (d *Descriptor) clone() *Descriptor {
	out := *d
	out.Columns = append([]string(nil), d.Columns...)
	out.SearchColumns = append([]string(nil), d.SearchColumns...)
	out.SearchIDColumns = append([]string(nil), d.SearchIDColumns...)
	out.OrderBy = append([]string(nil), d.OrderBy...)
	return &out
}
