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

package hospital

import (
	"time"

	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/clinicnet/shardroute/allocator"
	"github.com/clinicnet/shardroute/coordinator"
	"github.com/clinicnet/shardroute/entity"
	"github.com/clinicnet/shardroute/log"
	"github.com/clinicnet/shardroute/site"
)

// Option is the interface that applies a Service option.
type Option interface {
	// Apply sets the Option value of a Service.
	Apply(*Service)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Service)

func (f OptionFunc) Apply(s *Service) {
	f(s)
}

// WithCatalog overrides the entity catalog
func WithCatalog(catalog *entity.Catalog) Option {
	return OptionFunc(func(s *Service) {
		s.catalog = catalog
	})
}

// WithRanges overrides the identifier ranges
func WithRanges(table allocator.Table) Option {
	return OptionFunc(func(s *Service) {
		s.ranges = table
	})
}

// WithClaimer delegates identifier reservation to the storage backend
func WithClaimer(claimer allocator.Claimer) Option {
	return OptionFunc(func(s *Service) {
		s.claimer = claimer
	})
}

// WithLogger sets the logger shared by every component
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(s *Service) {
		s.logger = logger
	})
}

// WithMeterProvider records the routing metrics on the given provider
func WithMeterProvider(provider otelmetric.MeterProvider) Option {
	return OptionFunc(func(s *Service) {
		s.meterProvider = provider
	})
}

// WithPreference sets the site probe order
func WithPreference(ids ...site.ID) Option {
	return OptionFunc(func(s *Service) {
		s.preference = ids
	})
}

// WithProbeTimeout bounds every site probe
func WithProbeTimeout(timeout time.Duration) Option {
	return OptionFunc(func(s *Service) {
		s.probeTimeout = timeout
	})
}

// WithCacheTTL keeps the detected site for the given duration
func WithCacheTTL(ttl time.Duration) Option {
	return OptionFunc(func(s *Service) {
		s.cacheTTL = ttl
	})
}

// WithCompensation sets the policy applied when a contract write fails after its staff row
func WithCompensation(policy coordinator.Policy) Option {
	return OptionFunc(func(s *Service) {
		s.compensation = policy
	})
}

// WithUnfilteredList lists the given sharded entities across every owner
func WithUnfilteredList(types ...entity.Type) Option {
	return OptionFunc(func(s *Service) {
		s.unfiltered = types
	})
}
