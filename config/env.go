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
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/clinicnet/shardroute/allocator"
	"github.com/clinicnet/shardroute/coordinator"
	"github.com/clinicnet/shardroute/entity"
	"github.com/clinicnet/shardroute/log"
	"github.com/clinicnet/shardroute/site"
)

const (
	envPrefix     = "SHARDROUTE_"
	siteEnvPrefix = "SHARDROUTE_SITE_"
)

type environment struct {
	Sites          []string           `env:"SITES" envDefault:"quito,guayaquil" envSeparator:","`
	Master         string             `env:"MASTER" envDefault:"quito"`
	Preference     []string           `env:"PREFERENCE" envSeparator:","`
	ProbeTimeout   time.Duration      `env:"PROBE_TIMEOUT" envDefault:"3s"`
	CacheTTL       time.Duration      `env:"CACHE_TTL" envDefault:"0s"`
	Compensation   coordinator.Policy `env:"COMPENSATION" envDefault:"compensate"`
	LogLevel       string             `env:"LOG_LEVEL" envDefault:"info"`
	UnfilteredList []string           `env:"UNFILTERED_LIST" envSeparator:","`
}

type siteEnvironment struct {
	Code           int    `env:"CODE,required"`
	Host           string `env:"HOST" envDefault:"localhost"`
	Port           int    `env:"PORT" envDefault:"5432"`
	Database       string `env:"DATABASE"`
	User           string `env:"USERNAME" envDefault:"postgres"`
	Password       string `env:"PASSWORD"`
	Schema         string `env:"SCHEMA" envDefault:"public"`
	Link           string `env:"LINK"`
	RangePatient   string `env:"RANGE_PATIENT"`
	RangeStaff     string `env:"RANGE_STAFF"`
	RangeEncounter string `env:"RANGE_ENCOUNTER"`
}

// FromEnv loads a .env file when present and builds the Config from the
// process environment
func FromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to load the .env file")
	}
	return FromEnvironment(environMap(os.Environ()))
}

// FromEnvironment builds the Config from the given variables.
// Ranges not set for a site keep their default when the site is part of the
// default deployment.
func FromEnvironment(environ map[string]string) (*Config, error) {
	var global environment
	if err := env.ParseWithOptions(&global, env.Options{Prefix: envPrefix, Environment: environ}); err != nil {
		return nil, errors.Wrap(err, "failed to parse the routing environment")
	}

	config := NewConfig()
	config.Master = site.ID(global.Master)
	config.ProbeTimeout = global.ProbeTimeout
	config.CacheTTL = global.CacheTTL
	config.Compensation = global.Compensation

	level := log.ParseLevel(global.LogLevel)
	if level == log.InvalidLevel {
		return nil, errors.Errorf("invalid log level %q", global.LogLevel)
	}
	config.Logger = log.NewZap(level, os.Stdout)

	for _, id := range global.Preference {
		if id = strings.TrimSpace(id); id != "" {
			config.Preference = append(config.Preference, site.ID(id))
		}
	}

	for _, name := range global.UnfilteredList {
		if name = strings.TrimSpace(name); name != "" {
			config.UnfilteredList = append(config.UnfilteredList, entity.Type(name))
		}
	}

	defaults := config.Ranges
	config.Sites = nil
	config.Ranges = allocator.Table{}

	for _, name := range global.Sites {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		var local siteEnvironment
		prefix := siteEnvPrefix + strings.ToUpper(name) + "_"
		if err := env.ParseWithOptions(&local, env.Options{Prefix: prefix, Environment: environ}); err != nil {
			return nil, errors.Wrapf(err, "failed to parse the environment of site %s", name)
		}

		id := site.ID(name)
		if local.Link == "" {
			local.Link = name + "_link"
		}
		if local.Database == "" {
			local.Database = "hospital_" + name
		}

		config.Sites = append(config.Sites, &site.Site{
			ID:   id,
			Code: local.Code,
			Link: local.Link,
			DB: site.Connection{
				Host:     local.Host,
				Port:     local.Port,
				Database: local.Database,
				User:     local.User,
				Password: local.Password,
				Schema:   local.Schema,
			},
		})

		ranges := map[entity.Type]string{
			entity.Patient:      local.RangePatient,
			entity.MedicalStaff: local.RangeStaff,
			entity.Encounter:    local.RangeEncounter,
		}

		for entityType, text := range ranges {
			if text == "" {
				if r, ok := defaults[entityType][id]; ok {
					config.Ranges.Set(entityType, id, r)
				}
				continue
			}

			r, err := allocator.ParseRange(text)
			if err != nil {
				return nil, errors.Wrapf(err, "site %s", name)
			}
			config.Ranges.Set(entityType, id, r)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func environMap(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, pair := range environ {
		if key, value, ok := strings.Cut(pair, "="); ok {
			out[key] = value
		}
	}
	return out
}
