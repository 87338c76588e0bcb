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

	"go.uber.org/atomic"

	"github.com/clinicnet/shardroute/entity"
	"github.com/clinicnet/shardroute/site"
)

// Lease is a claimed identifier waiting for its insert to finish
type Lease struct {
	// ID is the claimed local identifier
	ID int64

	allocator  *Allocator
	scope      scope
	descriptor *entity.Descriptor
	owner      *site.Site
	remote     bool
	done       *atomic.Bool
}

func newLease(allocator *Allocator, key scope, descriptor *entity.Descriptor, owner *site.Site, id int64, remote bool) *Lease {
	return &Lease{
		ID:         id,
		allocator:  allocator,
		scope:      key,
		descriptor: descriptor,
		owner:      owner,
		remote:     remote,
		done:       atomic.NewBool(false),
	}
}

// Key returns the composite key the claimed id forms with its owner site.
// Centralized leases carry the master's code.
func (l *Lease) Key() entity.Key {
	return entity.Key{Site: l.owner.Code, LocalID: l.ID}
}

// Site returns the site the id was claimed at
func (l *Lease) Site() site.ID {
	return l.scope.site
}

// Commit ends the lease after the row has been inserted.
// From then on the row itself marks the id as occupied.
func (l *Lease) Commit(ctx context.Context) error {
	return l.end(ctx)
}

// Release gives the id back after a failed insert
func (l *Lease) Release(ctx context.Context) error {
	return l.end(ctx)
}

func (l *Lease) end(ctx context.Context) error {
	if !l.done.CompareAndSwap(false, true) {
		return nil
	}

	if l.remote {
		return l.allocator.claimer.Release(ctx, l.descriptor, l.owner, l.ID)
	}

	l.allocator.inflightSet(l.scope).Remove(l.ID)
	return nil
}
