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

package cmd

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/clinicnet/shardroute/backend/memory"
	"github.com/clinicnet/shardroute/backend/postgres"
	"github.com/clinicnet/shardroute/config"
	"github.com/clinicnet/shardroute/entity"
	"github.com/clinicnet/shardroute/hospital"
	"github.com/clinicnet/shardroute/log"
	"github.com/clinicnet/shardroute/result"
	"github.com/clinicnet/shardroute/site"
)

type closer func(ctx context.Context) error

// open builds the service the commands run against
func open(ctx context.Context, opts *flags) (*hospital.Service, closer, error) {
	if opts.memory {
		return openMemory(ctx, opts.down)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return nil, nil, err
	}

	topology, err := cfg.Topology()
	if err != nil {
		return nil, nil, err
	}

	backend, err := postgres.New(topology, postgres.WithLogger(cfg.Logger))
	if err != nil {
		return nil, nil, err
	}

	service, err := hospital.NewFromConfig(cfg, backend, hospital.WithClaimer(backend))
	if err != nil {
		return nil, nil, multierr.Append(err, backend.Close(ctx))
	}
	return service, backend.Close, nil
}

// openMemory seeds a two-site in-memory database with a few rows per site
func openMemory(ctx context.Context, down []string) (*hospital.Service, closer, error) {
	cfg := config.NewConfig()
	cfg.Logger = log.DiscardLogger

	topology, err := cfg.Topology()
	if err != nil {
		return nil, nil, err
	}

	store, err := memory.New(topology, entity.DefaultCatalog())
	if err != nil {
		return nil, nil, err
	}

	if err := seed(ctx, cfg, store); err != nil {
		return nil, nil, err
	}

	for _, id := range down {
		if _, err := topology.Site(site.ID(id)); err != nil {
			return nil, nil, err
		}
		store.SetReachable(site.ID(id), false)
	}

	service, err := hospital.NewFromConfig(cfg, store)
	if err != nil {
		return nil, nil, err
	}
	return service, func(context.Context) error { return nil }, nil
}

func seed(ctx context.Context, cfg *config.Config, store *memory.Store) error {
	birthDate := time.Date(1988, 3, 12, 0, 0, 0, 0, time.UTC)
	patients := map[site.ID][]string{
		"quito":     {"Ana", "Luis"},
		"guayaquil": {"Maria", "Jorge", "Carmen"},
	}

	master, err := hospital.NewFromConfig(cfg, store)
	if err != nil {
		return err
	}
	for _, area := range []string{"Cardiologia", "Pediatria"} {
		if res := master.Specialties().Create(ctx, entity.SpecialtyRecord{Area: area}); !res.OK {
			return res.Err
		}
	}

	for _, id := range cfg.ProbeOrder() {
		local := *cfg
		local.Preference = []site.ID{id}
		service, err := hospital.NewFromConfig(&local, store)
		if err != nil {
			return err
		}

		for _, name := range patients[id] {
			res := service.Patients().Create(ctx, entity.PatientRecord{
				FirstName: name,
				LastName:  "Paredes",
				Address:   "Centro",
				BirthDate: birthDate,
				Sex:       "F",
				Phone:     "0990000000",
			})
			if !res.OK {
				return errors.Wrapf(res.Err, "failed to seed patient %s", name)
			}
		}

		res := service.Staff().CreateWithContract(ctx, entity.StaffRecord{SpecialtyID: 1, FirstName: "Dr. " + string(id), LastName: "Vera", Phone: "0980000000"}, 1800, birthDate)
		if !res.OK {
			return errors.Wrapf(res.Err, "failed to seed staff at %s", id)
		}
	}
	return nil
}

// rows runs a list or a search of the named entity
func rows(ctx context.Context, service *hospital.Service, name, term string, search bool) (any, site.ID, error) {
	switch entity.Type(name) {
	case entity.Patient:
		return collect(ctx, term, search, service.Patients().List, service.Patients().Search)
	case entity.MedicalStaff:
		return collect(ctx, term, search, service.Staff().List, service.Staff().Search)
	case entity.Encounter:
		return collect(ctx, term, search, service.Encounters().List, service.Encounters().Search)
	case entity.Experience:
		return collect(ctx, term, search, service.Experience().List, service.Experience().Search)
	case entity.Specialty:
		return collect(ctx, term, search, service.Specialties().List, service.Specialties().Search)
	case entity.AttentionType:
		return collect(ctx, term, search, service.AttentionTypes().List, service.AttentionTypes().Search)
	case entity.Contract:
		return collect(ctx, term, search, service.Contracts().List, service.Contracts().Search)
	default:
		return nil, "", errors.Errorf("unknown entity %q", name)
	}
}

func collect[T any](
	ctx context.Context, term string, search bool,
	list func(context.Context) result.Result[[]T],
	find func(context.Context, string) result.Result[[]T],
) (any, site.ID, error) {
	var outcome result.Result[[]T]
	if search {
		outcome = find(ctx, term)
	} else {
		outcome = list(ctx)
	}
	return outcome.Value, outcome.Site, outcome.Err
}

func write(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
