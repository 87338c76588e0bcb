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

	"github.com/clinicnet/shardroute/entity"
	"github.com/clinicnet/shardroute/site"
)

// OccupiedSource reads the identifiers already taken at a site
type OccupiedSource interface {
	// Occupied returns the local ids within r owned by the given site,
	// read through that site's local view
	Occupied(ctx context.Context, descriptor *entity.Descriptor, owner *site.Site, r Range) ([]int64, error)
	// MaxID returns the highest id of a centralized table read at the given site, 0 when empty
	MaxID(ctx context.Context, descriptor *entity.Descriptor, at *site.Site) (int64, error)
}

// Claimer reserves identifiers inside the database so that concurrent
// creators running in different processes never obtain the same id
type Claimer interface {
	// Claim reserves the lowest id within r that is neither occupied nor reserved.
	// ok is false when the range is exhausted.
	Claim(ctx context.Context, descriptor *entity.Descriptor, owner *site.Site, r Range) (id int64, ok bool, err error)
	// Release drops the reservation of id
	Release(ctx context.Context, descriptor *entity.Descriptor, owner *site.Site, id int64) error
}
