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

package coordinator

import (
	"github.com/clinicnet/shardroute/log"
	"github.com/clinicnet/shardroute/metric"
)

// Option is the interface that applies a Coordinator option.
type Option interface {
	// Apply sets the Option value of a Coordinator.
	Apply(*Coordinator)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Coordinator)

func (f OptionFunc) Apply(c *Coordinator) {
	f(c)
}

// WithCompensation sets the policy applied when the contract write fails
func WithCompensation(policy Policy) Option {
	return OptionFunc(func(c *Coordinator) {
		c.policy = policy
	})
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(c *Coordinator) {
		c.logger = logger
	})
}

// WithMetrics sets the metrics recorder
func WithMetrics(metrics *metric.RoutingMetric) Option {
	return OptionFunc(func(c *Coordinator) {
		c.metrics = metrics
	})
}

// WithIDGenerator overrides the correlation id generator
func WithIDGenerator(next func() string) Option {
	return OptionFunc(func(c *Coordinator) {
		c.nextID = next
	})
}
