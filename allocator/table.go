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
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/clinicnet/shardroute/entity"
	gerrors "github.com/clinicnet/shardroute/errors"
	"github.com/clinicnet/shardroute/site"
)

// Table maps an entity type to the range each site issues local ids from
type Table map[entity.Type]map[site.ID]Range

// DefaultTable returns the ranges of the two-site hospital deployment
func DefaultTable() Table {
	perSite := func() map[site.ID]Range {
		return map[site.ID]Range{
			"quito":     {Min: 1, Max: 20},
			"guayaquil": {Min: 21, Max: 40},
		}
	}

	return Table{
		entity.Patient:      perSite(),
		entity.MedicalStaff: perSite(),
		entity.Encounter:    perSite(),
	}
}

// Set records the range of an entity type at a site
func (t Table) Set(entityType entity.Type, id site.ID, r Range) {
	ranges, ok := t[entityType]
	if !ok {
		ranges = make(map[site.ID]Range)
		t[entityType] = ranges
	}
	ranges[id] = r
}

// Lookup returns the range of an entity type at a site
func (t Table) Lookup(entityType entity.Type, id site.ID) (Range, error) {
	r, ok := t[entityType][id]
	if !ok {
		return Range{}, errors.Wrapf(gerrors.ErrInvalidInput, "no %s range configured for site %s", entityType, id)
	}
	return r, nil
}

// Validate checks every range and that the ranges of an entity type are pairwise disjoint
func (t Table) Validate() error {
	var err error
	for _, entityType := range t.types() {
		ranges := t[entityType]
		ids := make([]site.ID, 0, len(ranges))
		for id := range ranges {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		for i, id := range ids {
			if verr := ranges[id].Validate(); verr != nil {
				err = multierr.Append(err, errors.Wrapf(verr, "%s at site %s", entityType, id))
				continue
			}

			for _, other := range ids[i+1:] {
				if ranges[id].Overlaps(ranges[other]) {
					err = multierr.Append(err, errors.Wrapf(gerrors.ErrInvalidInput,
						"%s ranges of sites %s (%s) and %s (%s) overlap",
						entityType, id, ranges[id], other, ranges[other]))
				}
			}
		}
	}
	return err
}

func (t Table) types() []entity.Type {
	types := make([]entity.Type, 0, len(t))
	for entityType := range t {
		types = append(types, entityType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
