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

package site

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	gerrors "github.com/clinicnet/shardroute/errors"
	"github.com/clinicnet/shardroute/internal/telemetry"
	"github.com/clinicnet/shardroute/log"
	"github.com/clinicnet/shardroute/metric"
)

// DefaultProbeTimeout bounds a single probe when no timeout is configured
const DefaultProbeTimeout = 3 * time.Second

// Locator determines which site the process is currently connected to.
// Sites are probed in preference order and the first one answering wins.
type Locator struct {
	topology     *Topology
	prober       Prober
	preference   []ID
	probeTimeout time.Duration
	cacheTTL     time.Duration
	logger       log.Logger
	metrics      *metric.RoutingMetric
	now          func() time.Time

	group   singleflight.Group
	probing *atomic.String

	mu         sync.RWMutex
	detected   ID
	detectedAt time.Time
}

// NewLocator creates an instance of Locator
func NewLocator(topology *Topology, prober Prober, opts ...Option) (*Locator, error) {
	if topology == nil {
		return nil, errors.New("topology is required")
	}

	if prober == nil {
		return nil, errors.New("prober is required")
	}

	locator := &Locator{
		topology:     topology,
		prober:       prober,
		preference:   topology.IDs(),
		probeTimeout: DefaultProbeTimeout,
		logger:       log.DiscardLogger,
		now:          time.Now,
		probing:      atomic.NewString(""),
	}

	for _, opt := range opts {
		opt.Apply(locator)
	}

	if len(locator.preference) == 0 {
		return nil, errors.New("preference list must not be empty")
	}

	for _, id := range locator.preference {
		if _, err := topology.Site(id); err != nil {
			return nil, err
		}
	}

	if locator.probeTimeout <= 0 {
		locator.probeTimeout = DefaultProbeTimeout
	}

	return locator, nil
}

// Topology returns the sites the locator probes
func (l *Locator) Topology() *Topology {
	return l.topology
}

// Detect returns the first site in preference order whose probe succeeds.
// When no site answers it returns a ConnectivityError naming every attempted site.
// A caller whose context ends first gets its context error back while the
// detection keeps running for the other callers sharing it.
func (l *Locator) Detect(ctx context.Context) (ID, error) {
	ctx, span := telemetry.SpanContext(ctx, "Locator.Detect")
	defer span.End()

	if id, ok := l.cachedSite(); ok {
		return id, nil
	}

	// the flight ignores caller cancellation, each probe is bounded by probeTimeout
	flight := l.group.DoChan("detect", func() (any, error) {
		return l.detect(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		err := l.interrupted(ctx)
		span.RecordError(err)
		return "", err
	case res := <-flight:
		if res.Err != nil {
			span.RecordError(res.Err)
			return "", res.Err
		}

		id := res.Val.(ID)
		span.SetAttributes(telemetry.SiteKey.String(id.String()))
		return id, nil
	}
}

// Invalidate drops the cached site, if any
func (l *Locator) Invalidate() {
	l.mu.Lock()
	l.detected = ""
	l.detectedAt = time.Time{}
	l.mu.Unlock()
}

// Status probes every configured site concurrently and reports each one's
// reachability in configuration order.
func (l *Locator) Status(ctx context.Context) []Reachability {
	ctx, span := telemetry.SpanContext(ctx, "Locator.Status")
	defer span.End()

	sites := l.topology.Sites()
	reports := make([]Reachability, len(sites))

	eg, ctx := errgroup.WithContext(ctx)
	for index, site := range sites {
		eg.Go(func() error {
			latency, err := l.probe(ctx, site)
			state := Reachable
			if err != nil {
				state = Unreachable
			}

			reports[index] = Reachability{
				Site:    site.ID,
				State:   state,
				Latency: latency,
				Err:     err,
			}
			return nil
		})
	}

	// probes never fail the group
	_ = eg.Wait()
	return reports
}

func (l *Locator) detect(ctx context.Context) (ID, error) {
	attempted := make([]string, 0, len(l.preference))
	defer l.probing.Store("")
	for _, id := range l.preference {
		site, _ := l.topology.Site(id)
		attempted = append(attempted, id.String())
		l.probing.Store(id.String())

		if _, err := l.probe(ctx, site); err != nil {
			l.logger.Debugf("site %s unreachable: %v", id, err)
			continue
		}

		l.logger.Debugf("connected to site %s", id)
		l.remember(id)
		return id, nil
	}

	return "", gerrors.NewConnectivityError(attempted...)
}

// interrupted wraps the caller's context error with the site being probed
func (l *Locator) interrupted(ctx context.Context) error {
	if id := l.probing.Load(); id != "" {
		return errors.Wrapf(ctx.Err(), "site detection interrupted while probing %s", id)
	}
	return errors.Wrap(ctx.Err(), "site detection interrupted")
}

func (l *Locator) probe(ctx context.Context, site *Site) (time.Duration, error) {
	probeCtx, cancel := context.WithTimeout(ctx, l.probeTimeout)
	defer cancel()

	start := time.Now()
	err := l.prober.Probe(probeCtx, site)
	latency := time.Since(start)
	l.metrics.RecordProbe(ctx, site.ID.String(), err, latency)
	return latency, err
}

func (l *Locator) cachedSite() (ID, bool) {
	if l.cacheTTL <= 0 {
		return "", false
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.detected == "" || l.now().Sub(l.detectedAt) >= l.cacheTTL {
		return "", false
	}
	return l.detected, true
}

func (l *Locator) remember(id ID) {
	if l.cacheTTL <= 0 {
		return
	}

	l.mu.Lock()
	l.detected = id
	l.detectedAt = l.now()
	l.mu.Unlock()
}
