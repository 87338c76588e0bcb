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
	"context"
	"time"

	"github.com/pkg/errors"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/clinicnet/shardroute/allocator"
	"github.com/clinicnet/shardroute/config"
	"github.com/clinicnet/shardroute/coordinator"
	"github.com/clinicnet/shardroute/entity"
	"github.com/clinicnet/shardroute/gateway"
	"github.com/clinicnet/shardroute/guard"
	"github.com/clinicnet/shardroute/internal/telemetry"
	"github.com/clinicnet/shardroute/log"
	"github.com/clinicnet/shardroute/metric"
	"github.com/clinicnet/shardroute/reader"
	"github.com/clinicnet/shardroute/result"
	"github.com/clinicnet/shardroute/site"
)

const meterName = "github.com/clinicnet/shardroute"

// Backend is the storage a Service routes to
type Backend interface {
	site.Prober
	allocator.OccupiedSource
	gateway.Port
	reader.Querier
}

// Service is the hospital model layer. Every operation resolves the current
// site first and reports its outcome as a result.Result.
type Service struct {
	topology *site.Topology
	backend  Backend

	catalog       *entity.Catalog
	ranges        allocator.Table
	claimer       allocator.Claimer
	logger        log.Logger
	meterProvider otelmetric.MeterProvider
	preference    []site.ID
	probeTimeout  time.Duration
	cacheTTL      time.Duration
	compensation  coordinator.Policy
	unfiltered    []entity.Type

	metrics     *metric.RoutingMetric
	locator     *site.Locator
	allocator   *allocator.Allocator
	reader      *reader.Reader
	guard       *guard.Guard
	gateway     *gateway.Gateway
	coordinator *coordinator.Coordinator
}

// New creates an instance of Service
func New(topology *site.Topology, backend Backend, opts ...Option) (*Service, error) {
	if topology == nil || backend == nil {
		return nil, errors.New("topology and backend are required")
	}

	service := &Service{
		topology:     topology,
		backend:      backend,
		catalog:      entity.DefaultCatalog(),
		ranges:       allocator.DefaultTable(),
		logger:       log.DiscardLogger,
		probeTimeout: site.DefaultProbeTimeout,
		compensation: coordinator.Compensate,
	}

	for _, opt := range opts {
		opt.Apply(service)
	}

	if err := service.build(); err != nil {
		return nil, err
	}
	return service, nil
}

// NewFromConfig creates a Service from a validated configuration.
// Options are applied after the configuration.
func NewFromConfig(cfg *config.Config, backend Backend, opts ...Option) (*Service, error) {
	cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	topology, err := cfg.Topology()
	if err != nil {
		return nil, err
	}

	options := []Option{
		WithRanges(cfg.Ranges),
		WithLogger(cfg.Logger),
		WithPreference(cfg.ProbeOrder()...),
		WithProbeTimeout(cfg.ProbeTimeout),
		WithCacheTTL(cfg.CacheTTL),
		WithCompensation(cfg.Compensation),
		WithUnfilteredList(cfg.UnfilteredList...),
	}
	return New(topology, backend, append(options, opts...)...)
}

func (s *Service) build() error {
	var err error
	if s.meterProvider != nil {
		if s.metrics, err = metric.NewRoutingMetric(s.meterProvider.Meter(meterName)); err != nil {
			return err
		}
	}

	locatorOpts := []site.Option{
		site.WithProbeTimeout(s.probeTimeout),
		site.WithCacheTTL(s.cacheTTL),
		site.WithLogger(s.logger),
		site.WithMetrics(s.metrics),
	}
	if len(s.preference) > 0 {
		locatorOpts = append(locatorOpts, site.WithPreference(s.preference...))
	}
	if s.locator, err = site.NewLocator(s.topology, s.backend, locatorOpts...); err != nil {
		return err
	}

	allocatorOpts := []allocator.Option{allocator.WithLogger(s.logger), allocator.WithMetrics(s.metrics)}
	if s.claimer != nil {
		allocatorOpts = append(allocatorOpts, allocator.WithClaimer(s.claimer))
	}
	if s.allocator, err = allocator.New(s.topology, s.catalog, s.ranges, s.backend, allocatorOpts...); err != nil {
		return err
	}

	if s.reader, err = reader.New(s.topology, s.catalog, s.backend,
		reader.WithLogger(s.logger),
		reader.WithUnfilteredList(s.unfiltered...)); err != nil {
		return err
	}

	if s.guard, err = guard.New(s.topology, s.catalog); err != nil {
		return err
	}

	if s.gateway, err = gateway.New(s.topology, s.catalog, s.backend,
		gateway.WithLogger(s.logger),
		gateway.WithMetrics(s.metrics)); err != nil {
		return err
	}

	s.coordinator, err = coordinator.New(s.allocator, s.gateway,
		coordinator.WithCompensation(s.compensation),
		coordinator.WithLogger(s.logger),
		coordinator.WithMetrics(s.metrics))
	return err
}

// Topology returns the configured sites
func (s *Service) Topology() *site.Topology {
	return s.topology
}

// CurrentSite returns the first reachable site of the preference order
func (s *Service) CurrentSite(ctx context.Context) result.Result[site.ID] {
	current, err := s.locator.Detect(ctx)
	return result.From(current, current, err)
}

// Status probes every site and reports its reachability
func (s *Service) Status(ctx context.Context) []site.Reachability {
	return s.locator.Status(ctx)
}

// Invalidate drops the cached current site
func (s *Service) Invalidate() {
	s.locator.Invalidate()
}

// NextID returns the next identifier a create of entityType would use at the current site
func (s *Service) NextID(ctx context.Context, entityType entity.Type) result.Result[int64] {
	ctx, span := telemetry.SpanContext(ctx, "Service.NextID")
	defer span.End()

	current, err := s.locator.Detect(ctx)
	if err != nil {
		return result.Fail[int64]("", 0, err)
	}

	localID, err := s.allocator.NextAvailableID(ctx, entityType, current)
	return result.From(current, localID, err)
}

// Patients returns the patient operations
func (s *Service) Patients() Patients {
	return Patients{records[entity.PatientRecord]{service: s, entityType: entity.Patient}}
}

// Staff returns the medical staff operations
func (s *Service) Staff() Staff {
	return Staff{records[entity.StaffRecord]{service: s, entityType: entity.MedicalStaff}}
}

// Encounters returns the medical attention operations
func (s *Service) Encounters() Encounters {
	return Encounters{records[entity.EncounterRecord]{service: s, entityType: entity.Encounter}}
}

// Experience returns the experience record operations
func (s *Service) Experience() Experience {
	return Experience{records[entity.ExperienceRecord]{service: s, entityType: entity.Experience}}
}

// Specialties returns the specialty operations
func (s *Service) Specialties() Specialties {
	return Specialties{records[entity.SpecialtyRecord]{service: s, entityType: entity.Specialty}}
}

// AttentionTypes returns the attention type operations
func (s *Service) AttentionTypes() AttentionTypes {
	return AttentionTypes{records[entity.AttentionTypeRecord]{service: s, entityType: entity.AttentionType}}
}

// Contracts returns the contract operations
func (s *Service) Contracts() Contracts {
	return Contracts{records[entity.ContractRecord]{service: s, entityType: entity.Contract}}
}

// create claims an identifier at the current site, writes the row through
// the procedure built from the claimed key and then settles the claim
func (s *Service) create(ctx context.Context, entityType entity.Type, build func(key entity.Key) gateway.Procedure) result.Result[entity.Key] {
	ctx, span := telemetry.SpanContext(ctx, "Service.Create")
	defer span.End()

	current, err := s.locator.Detect(ctx)
	if err != nil {
		return result.Fail("", entity.Key{}, err)
	}

	if err := s.guard.Authorize(entityType, entity.Create, current); err != nil {
		return result.Fail(current, entity.Key{}, err)
	}

	lease, err := s.allocator.Claim(ctx, entityType, current)
	if err != nil {
		return result.Fail(current, entity.Key{}, err)
	}

	key := lease.Key()
	if _, err := s.gateway.Call(ctx, current, build(key)); err != nil {
		if rerr := lease.Release(ctx); rerr != nil {
			s.logger.Warnf("failed to release %s id %d: %v", entityType, key.LocalID, rerr)
		}
		return result.Fail(current, entity.Key{}, err)
	}

	if err := lease.Commit(ctx); err != nil {
		s.logger.Warnf("failed to commit %s id %d: %v", entityType, key.LocalID, err)
	}
	s.logger.Debugf("created %s %s at site %s", entityType, key, current)
	return result.Ok(current, key)
}

// write runs a single procedure write after the master guard and returns the affected rows
func (s *Service) write(ctx context.Context, proc gateway.Procedure) result.Result[int64] {
	ctx, span := telemetry.SpanContext(ctx, "Service.Write")
	defer span.End()

	current, err := s.locator.Detect(ctx)
	if err != nil {
		return result.Fail[int64]("", 0, err)
	}

	if err := s.guard.Authorize(proc.Entity, proc.Op, current); err != nil {
		return result.Fail[int64](current, 0, err)
	}

	affected, err := s.gateway.Call(ctx, current, proc)
	return result.From(current, affected, err)
}
