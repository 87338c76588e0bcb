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
	"time"

	"github.com/clinicnet/shardroute/log"
)

// Option is the interface that applies a Backend option.
type Option interface {
	// Apply sets the Option value of a Backend.
	Apply(*Backend)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Backend)

func (f OptionFunc) Apply(b *Backend) {
	f(b)
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(b *Backend) {
		b.logger = logger
	})
}

// WithLeaseTable sets the table claimed identifiers are recorded in
func WithLeaseTable(name string) Option {
	return OptionFunc(func(b *Backend) {
		b.leaseTable = name
	})
}

// WithLeaseTTL sets how long an uncommitted claim holds its identifier.
// A non-positive ttl keeps leases until they are released.
func WithLeaseTTL(ttl time.Duration) Option {
	return OptionFunc(func(b *Backend) {
		b.leaseTTL = ttl
	})
}

// WithPool sets the connection pool settings of every site
func WithPool(maxOpen, maxIdle int, maxLifetime time.Duration) Option {
	return OptionFunc(func(b *Backend) {
		b.maxOpen = maxOpen
		b.maxIdle = maxIdle
		b.maxLifetime = maxLifetime
	})
}
