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
	"github.com/clinicnet/shardroute/log"
	"github.com/clinicnet/shardroute/metric"
)

// Option is the interface that applies an Allocator option.
type Option interface {
	// Apply sets the Option value of an Allocator.
	Apply(*Allocator)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Allocator)

func (f OptionFunc) Apply(a *Allocator) {
	f(a)
}

// WithClaimer delegates ranged reservations to the database
func WithClaimer(claimer Claimer) Option {
	return OptionFunc(func(a *Allocator) {
		a.claimer = claimer
	})
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(a *Allocator) {
		a.logger = logger
	})
}

// WithMetrics sets the metrics recorder
func WithMetrics(metrics *metric.RoutingMetric) Option {
	return OptionFunc(func(a *Allocator) {
		a.metrics = metrics
	})
}
