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

package config

import (
	"time"

	"github.com/pkg/errors"

	"github.com/clinicnet/shardroute/allocator"
	"github.com/clinicnet/shardroute/coordinator"
	"github.com/clinicnet/shardroute/entity"
	"github.com/clinicnet/shardroute/internal/validation"
	"github.com/clinicnet/shardroute/log"
	"github.com/clinicnet/shardroute/site"
)

const (
	// DefaultProbeTimeout bounds a single site probe
	DefaultProbeTimeout = site.DefaultProbeTimeout
	// DefaultMaster is the master site of the hospital deployment
	DefaultMaster site.ID = "quito"
)

// Config holds the routing configuration. It is read-only once the service is built.
type Config struct {
	// Logger receives the routing logs. Defaults to log.DefaultLogger.
	Logger log.Logger
	// Master is the site holding centralized tables and contracts
	Master site.ID
	// Preference is the site probe order. Empty means the order of Sites.
	Preference []site.ID
	// Sites are the configured database sites
	Sites []*site.Site
	// Ranges maps entity types to the id range of every site
	Ranges allocator.Table
	// ProbeTimeout bounds every site probe
	ProbeTimeout time.Duration
	// CacheTTL keeps the detected site for the given duration; zero disables caching
	CacheTTL time.Duration
	// Compensation decides what happens to a staff row whose contract failed
	Compensation coordinator.Policy
	// UnfilteredList lists the sharded entities listed across every owner
	UnfilteredList []entity.Type
}

var _ validation.Validator = (*Config)(nil)

// NewConfig returns a Config populated with the two-site hospital deployment
func NewConfig() *Config {
	return &Config{
		Logger: log.DefaultLogger,
		Master: DefaultMaster,
		Sites: []*site.Site{
			{
				ID:   "quito",
				Code: 1,
				Link: "quito_link",
				DB:   site.Connection{Host: "localhost", Port: 5432, Database: "hospital_quito", User: "postgres", Schema: "public"},
			},
			{
				ID:   "guayaquil",
				Code: 2,
				Link: "guayaquil_link",
				DB:   site.Connection{Host: "localhost", Port: 5433, Database: "hospital_guayaquil", User: "postgres", Schema: "public"},
			},
		},
		Ranges:       allocator.DefaultTable(),
		ProbeTimeout: DefaultProbeTimeout,
		Compensation: coordinator.Compensate,
	}
}

// Validate implements validation.Validator.
func (c *Config) Validate() error {
	chain := validation.New(validation.FailFast()).
		AddValidator(validation.NewEmptyStringValidator("Master", string(c.Master))).
		AddAssertion(len(c.Sites) > 0, "Sites must not be empty").
		AddAssertion(c.ProbeTimeout > 0, "ProbeTimeout must be greater than 0").
		AddAssertion(c.CacheTTL >= 0, "CacheTTL must not be negative")

	for _, s := range c.Sites {
		if s == nil {
			return errors.New("nil site")
		}
		chain = chain.AddValidator(s)
	}

	if err := chain.Validate(); err != nil {
		return err
	}

	topology, err := c.Topology()
	if err != nil {
		return err
	}

	for _, id := range c.Preference {
		if _, err := topology.Site(id); err != nil {
			return err
		}
	}

	for entityType, ranges := range c.Ranges {
		for id := range ranges {
			if _, err := topology.Site(id); err != nil {
				return errors.Wrapf(err, "%s range", entityType)
			}
		}
	}

	return c.Ranges.Validate()
}

// Sanitize fills zero-value fields with defaults
func (c *Config) Sanitize() {
	if c.Logger == nil {
		c.Logger = log.DefaultLogger
	}

	if c.Master == "" {
		c.Master = DefaultMaster
	}

	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}

	if c.Ranges == nil {
		c.Ranges = allocator.DefaultTable()
	}
}

// Topology builds the site topology
func (c *Config) Topology() (*site.Topology, error) {
	return site.NewTopology(c.Master, c.Sites...)
}

// ProbeOrder returns the preference, or the order of Sites when none is set
func (c *Config) ProbeOrder() []site.ID {
	if len(c.Preference) > 0 {
		return c.Preference
	}
	order := make([]site.ID, 0, len(c.Sites))
	for _, s := range c.Sites {
		order = append(order, s.ID)
	}
	return order
}
