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
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/clinicnet/shardroute/allocator"
	"github.com/clinicnet/shardroute/config"
	"github.com/clinicnet/shardroute/coordinator"
	"github.com/clinicnet/shardroute/entity"
	gerrors "github.com/clinicnet/shardroute/errors"
	"github.com/clinicnet/shardroute/log"
	"github.com/clinicnet/shardroute/site"
)

func TestService(t *testing.T) {
	ctx := context.Background()

	t.Run("New requires a backend", func(t *testing.T) {
		_, err := New(newTopology(t), nil)
		assert.Error(t, err)
	})
	t.Run("CurrentSite follows the preference", func(t *testing.T) {
		topology := newTopology(t)
		store := newStore(t, topology)

		res := atSite(t, store, topology, "guayaquil").CurrentSite(ctx)
		require.True(t, res.OK)
		assert.Equal(t, site.ID("guayaquil"), res.Value)

		store.SetReachable("quito", false)
		service, err := New(topology, store)
		require.NoError(t, err)
		res = service.CurrentSite(ctx)
		require.True(t, res.OK)
		assert.Equal(t, site.ID("guayaquil"), res.Site)
	})
	t.Run("Create patient at the current site", func(t *testing.T) {
		topology := newTopology(t)
		store := newStore(t, topology)
		quito := atSite(t, store, topology, "quito")
		guayaquil := atSite(t, store, topology, "guayaquil")

		first := quito.Patients().Create(ctx, newPatient("Ana"))
		require.True(t, first.OK, first.Message())
		assert.Equal(t, entity.Key{Site: 1, LocalID: 1}, first.Value)
		assert.Equal(t, site.ID("quito"), first.Site)

		second := quito.Patients().Create(ctx, newPatient("Luis"))
		require.True(t, second.OK, second.Message())
		assert.Equal(t, entity.Key{Site: 1, LocalID: 2}, second.Value)

		remote := guayaquil.Patients().Create(ctx, newPatient("Maria"))
		require.True(t, remote.OK, remote.Message())
		assert.Equal(t, entity.Key{Site: 2, LocalID: 21}, remote.Value)

		got := quito.Patients().Get(ctx, first.Value)
		require.True(t, got.OK, got.Message())
		assert.Equal(t, "Ana", got.Value.FirstName)
		assert.Equal(t, 1, got.Value.Site)
		assert.True(t, birthDate.Equal(got.Value.BirthDate))

		next := quito.NextID(ctx, entity.Patient)
		require.True(t, next.OK)
		assert.EqualValues(t, 3, next.Value)
	})
	t.Run("List and search only show rows of the current site", func(t *testing.T) {
		topology := newTopology(t)
		store := newStore(t, topology)
		quito := atSite(t, store, topology, "quito")
		guayaquil := atSite(t, store, topology, "guayaquil")

		require.True(t, quito.Patients().Create(ctx, newPatient("Ana")).OK)
		require.True(t, quito.Patients().Create(ctx, newPatient("Andres")).OK)
		require.True(t, guayaquil.Patients().Create(ctx, newPatient("Angela")).OK)

		listed := quito.Patients().List(ctx)
		require.True(t, listed.OK, listed.Message())
		require.Len(t, listed.Value, 2)
		for _, patient := range listed.Value {
			assert.Equal(t, 1, patient.Site)
		}

		found := guayaquil.Patients().Search(ctx, "ang")
		require.True(t, found.OK, found.Message())
		require.Len(t, found.Value, 1)
		assert.Equal(t, "Angela", found.Value[0].FirstName)

		byID := guayaquil.Patients().Search(ctx, "21")
		require.True(t, byID.OK)
		assert.Len(t, byID.Value, 1)

		none := guayaquil.Patients().Search(ctx, "andres")
		require.True(t, none.OK)
		assert.Empty(t, none.Value)
	})
	t.Run("Unfiltered list shows every owner", func(t *testing.T) {
		topology := newTopology(t)
		store := newStore(t, topology)
		quito := atSite(t, store, topology, "quito", WithUnfilteredList(entity.Patient))
		guayaquil := atSite(t, store, topology, "guayaquil")

		require.True(t, quito.Patients().Create(ctx, newPatient("Ana")).OK)
		require.True(t, guayaquil.Patients().Create(ctx, newPatient("Angela")).OK)

		listed := quito.Patients().List(ctx)
		require.True(t, listed.OK)
		assert.Len(t, listed.Value, 2)

		searched := quito.Patients().Search(ctx, "an")
		require.True(t, searched.OK)
		assert.Len(t, searched.Value, 1)
	})
	t.Run("Get of a missing row", func(t *testing.T) {
		topology := newTopology(t)
		service := atSite(t, newStore(t, topology), topology, "quito")

		res := service.Patients().Get(ctx, entity.Key{Site: 1, LocalID: 5})
		assert.False(t, res.OK)
		assert.Equal(t, gerrors.KindNotFound, res.Kind)
	})
	t.Run("Update and delete route to the owner site", func(t *testing.T) {
		topology := newTopology(t)
		store := newStore(t, topology)
		quito := atSite(t, store, topology, "quito")
		guayaquil := atSite(t, store, topology, "guayaquil")

		created := guayaquil.Patients().Create(ctx, newPatient("Maria"))
		require.True(t, created.OK)

		patient := newPatient("Maria Jose")
		patient.Site, patient.ID = created.Value.Site, created.Value.LocalID
		updated := quito.Patients().Update(ctx, patient)
		require.True(t, updated.OK, updated.Message())
		assert.EqualValues(t, 1, updated.Value)

		calls := store.Calls()
		assert.Equal(t, "guayaquil_link.sp_update_paciente", calls[len(calls)-1].Name)
		assert.Equal(t, site.ID("quito"), calls[len(calls)-1].Site)

		got := guayaquil.Patients().Get(ctx, created.Value)
		require.True(t, got.OK)
		assert.Equal(t, "Maria Jose", got.Value.FirstName)

		deleted := quito.Patients().Delete(ctx, created.Value)
		require.True(t, deleted.OK, deleted.Message())
		assert.EqualValues(t, 1, deleted.Value)
		assert.Empty(t, guayaquil.Patients().List(ctx).Value)
	})
	t.Run("Procedure failure", func(t *testing.T) {
		topology := newTopology(t)
		store := newStore(t, topology)
		service := atSite(t, store, topology, "quito")
		store.FailProcedure("sp_create_paciente", errors.New("constraint violated"))

		res := service.Patients().Create(ctx, newPatient("Ana"))
		assert.False(t, res.OK)
		assert.Equal(t, gerrors.KindRemoteProcedure, res.Kind)
		assert.Contains(t, res.Message(), "constraint violated")

		store.FailProcedure("sp_create_paciente", nil)
		res = service.Patients().Create(ctx, newPatient("Ana"))
		require.True(t, res.OK)
		assert.EqualValues(t, 1, res.Value.LocalID)
	})
}

func TestExhaustedRange(t *testing.T) {
	ctx := context.Background()
	topology := newTopology(t)
	store := newStore(t, topology)

	ranges := allocator.DefaultTable()
	ranges.Set(entity.Encounter, "quito", allocator.MustParseRange("1-2"))
	service := atSite(t, store, topology, "quito", WithRanges(ranges))

	for range 2 {
		require.True(t, service.Encounters().Create(ctx, entity.EncounterRecord{PatientID: 1, StaffID: 1, TypeID: 1}).OK)
	}
	issued := len(store.Calls())

	res := service.Encounters().Create(ctx, entity.EncounterRecord{PatientID: 1, StaffID: 1, TypeID: 1})
	assert.False(t, res.OK)
	assert.Equal(t, gerrors.KindRangeExhausted, res.Kind)
	assert.Len(t, store.Calls(), issued)

	next := service.NextID(ctx, entity.Encounter)
	assert.False(t, next.OK)
	assert.Equal(t, gerrors.KindRangeExhausted, next.Kind)
}

func TestConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	topology := newTopology(t)
	store := newStore(t, topology)

	ranges := allocator.DefaultTable()
	ranges.Set(entity.Patient, "quito", allocator.MustParseRange("1-1"))
	service := atSite(t, store, topology, "quito", WithRanges(ranges))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created []entity.Key
		kinds   []gerrors.Kind
	)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := service.Patients().Create(ctx, newPatient("Ana"))
			mu.Lock()
			defer mu.Unlock()
			if res.OK {
				created = append(created, res.Value)
				return
			}
			kinds = append(kinds, res.Kind)
		}()
	}
	wg.Wait()

	require.Len(t, created, 1)
	assert.Equal(t, entity.Key{Site: 1, LocalID: 1}, created[0])
	assert.Equal(t, []gerrors.Kind{gerrors.KindRangeExhausted}, kinds)
}

func TestConcurrentCreatesWithClaimer(t *testing.T) {
	ctx := context.Background()
	topology := newTopology(t)
	store := newStore(t, topology)

	ranges := allocator.DefaultTable()
	ranges.Set(entity.Patient, "quito", allocator.MustParseRange("1-2"))

	// two clients of the same site only share the store's claims
	services := []*Service{
		atSite(t, store, topology, "quito", WithRanges(ranges), WithClaimer(store)),
		atSite(t, store, topology, "quito", WithRanges(ranges), WithClaimer(store)),
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created []int64
		kinds   []gerrors.Kind
	)
	for index := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := services[index%2].Patients().Create(ctx, newPatient("Ana"))
			mu.Lock()
			defer mu.Unlock()
			if res.OK {
				created = append(created, res.Value.LocalID)
				return
			}
			kinds = append(kinds, res.Kind)
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, []int64{1, 2}, created)
	assert.Equal(t, []gerrors.Kind{gerrors.KindRangeExhausted, gerrors.KindRangeExhausted}, kinds)

	rows := services[0].Patients().List(ctx)
	require.True(t, rows.OK)
	assert.Len(t, rows.Value, 2)
}

func TestMasterOnlyWrites(t *testing.T) {
	ctx := context.Background()
	topology := newTopology(t)
	store := newStore(t, topology)
	quito := atSite(t, store, topology, "quito")
	guayaquil := atSite(t, store, topology, "guayaquil")

	denied := guayaquil.Specialties().Create(ctx, entity.SpecialtyRecord{Area: "Cardiologia"})
	assert.False(t, denied.OK)
	assert.Equal(t, gerrors.KindPermissionDenied, denied.Kind)
	assert.Equal(t, site.ID("guayaquil"), denied.Site)
	assert.Empty(t, store.Calls())

	deniedDelete := guayaquil.AttentionTypes().Delete(ctx, 1)
	assert.Equal(t, gerrors.KindPermissionDenied, deniedDelete.Kind)
	assert.Empty(t, store.Calls())

	for index, area := range []string{"Cardiologia", "Pediatria"} {
		res := quito.Specialties().Create(ctx, entity.SpecialtyRecord{Area: area})
		require.True(t, res.OK, res.Message())
		assert.EqualValues(t, index+1, res.Value)
	}

	attentionType := quito.AttentionTypes().Create(ctx, entity.AttentionTypeRecord{Name: "Emergencia"})
	require.True(t, attentionType.OK, attentionType.Message())
	assert.EqualValues(t, 1, attentionType.Value)

	listed := guayaquil.Specialties().List(ctx)
	require.True(t, listed.OK, listed.Message())
	assert.Len(t, listed.Value, 2)

	got := guayaquil.Specialties().Get(ctx, 2)
	require.True(t, got.OK, got.Message())
	assert.Equal(t, "Pediatria", got.Value.Area)

	updated := quito.Specialties().Update(ctx, entity.SpecialtyRecord{ID: 2, Area: "Neonatologia"})
	require.True(t, updated.OK)
	assert.Equal(t, "Neonatologia", guayaquil.Specialties().Get(ctx, 2).Value.Area)

	searched := guayaquil.AttentionTypes().Search(ctx, "emerg")
	require.True(t, searched.OK)
	assert.Len(t, searched.Value, 1)
}

func TestStaffWithContract(t *testing.T) {
	ctx := context.Background()
	staff := entity.StaffRecord{SpecialtyID: 1, FirstName: "Rosa", LastName: "Cedeno", Phone: "0987"}

	t.Run("Contract stored at the master", func(t *testing.T) {
		topology := newTopology(t)
		store := newStore(t, topology)
		quito := atSite(t, store, topology, "quito")
		guayaquil := atSite(t, store, topology, "guayaquil")

		res := guayaquil.Staff().CreateWithContract(ctx, staff, 1500, contractDate)
		require.True(t, res.OK, res.Message())
		assert.Equal(t, entity.Key{Site: 2, LocalID: 21}, res.Value)

		listed := guayaquil.Staff().List(ctx)
		require.True(t, listed.OK)
		require.Len(t, listed.Value, 1)
		assert.Equal(t, 2, listed.Value[0].Site)

		for _, service := range []*Service{quito, guayaquil} {
			contract := service.Contracts().Get(ctx, res.Value)
			require.True(t, contract.OK, contract.Message())
			assert.EqualValues(t, 1500, contract.Value.Salary)
		}

		stored, err := store.Stored("quito", entity.Contract)
		require.NoError(t, err)
		assert.Equal(t, []entity.Key{res.Value}, stored)

		stored, err = store.Stored("guayaquil", entity.Contract)
		require.NoError(t, err)
		assert.Empty(t, stored)
	})
	t.Run("Contract failure leaves the staff row", func(t *testing.T) {
		topology := newTopology(t)
		store := newStore(t, topology)
		guayaquil := atSite(t, store, topology, "guayaquil", WithCompensation(coordinator.LeavePartial))
		store.FailProcedure("crearcontrato", errors.New("linked server timeout"))

		res := guayaquil.Staff().CreateWithContract(ctx, staff, 1500, contractDate)
		assert.False(t, res.OK)
		assert.Equal(t, gerrors.KindPartialWrite, res.Kind)
		assert.Equal(t, entity.Key{Site: 2, LocalID: 21}, res.Value)

		remaining := guayaquil.Staff().Get(ctx, res.Value)
		require.True(t, remaining.OK)

		deleted := guayaquil.Staff().Delete(ctx, res.Value)
		require.True(t, deleted.OK)
		assert.Empty(t, guayaquil.Staff().List(ctx).Value)
	})
	t.Run("Contract failure compensates", func(t *testing.T) {
		topology := newTopology(t)
		store := newStore(t, topology)
		guayaquil := atSite(t, store, topology, "guayaquil")
		store.FailProcedure("crearcontrato", errors.New("linked server timeout"))

		res := guayaquil.Staff().CreateWithContract(ctx, staff, 1500, contractDate)
		assert.Equal(t, gerrors.KindPartialWrite, res.Kind)
		assert.Contains(t, res.Message(), "compensated")
		assert.Empty(t, guayaquil.Staff().List(ctx).Value)
	})
	t.Run("Contract for an existing staff member", func(t *testing.T) {
		topology := newTopology(t)
		store := newStore(t, topology)
		guayaquil := atSite(t, store, topology, "guayaquil")

		created := guayaquil.Staff().Create(ctx, staff)
		require.True(t, created.OK)

		contract := entity.ContractRecord{Site: created.Value.Site, StaffID: created.Value.LocalID, Salary: 900, Date: contractDate}
		res := guayaquil.Contracts().Create(ctx, contract)
		require.True(t, res.OK, res.Message())
		assert.Equal(t, created.Value, res.Value)

		calls := store.Calls()
		assert.Equal(t, "quito_link.crearcontrato", calls[len(calls)-1].Name)

		experience := guayaquil.Experience().Create(ctx, entity.ExperienceRecord{
			Site:     created.Value.Site,
			StaffID:  created.Value.LocalID,
			Position: "Residente",
			Years:    3,
		})
		require.True(t, experience.OK, experience.Message())
		assert.Equal(t, created.Value, experience.Value)

		listed := guayaquil.Contracts().List(ctx)
		require.True(t, listed.OK)
		assert.Len(t, listed.Value, 1)
	})
}

func TestNoReachableSite(t *testing.T) {
	ctx := context.Background()
	topology := newTopology(t)
	store := newStore(t, topology)
	store.SetReachable("quito", false)
	store.SetReachable("guayaquil", false)
	service := atSite(t, store, topology, "quito")

	assert.Equal(t, gerrors.KindConnectivity, service.CurrentSite(ctx).Kind)
	assert.Equal(t, gerrors.KindConnectivity, service.NextID(ctx, entity.Patient).Kind)
	assert.Equal(t, gerrors.KindConnectivity, service.Patients().List(ctx).Kind)
	assert.Equal(t, gerrors.KindConnectivity, service.Patients().Search(ctx, "a").Kind)
	assert.Equal(t, gerrors.KindConnectivity, service.Patients().Get(ctx, entity.Key{Site: 1, LocalID: 1}).Kind)
	assert.Equal(t, gerrors.KindConnectivity, service.Patients().Create(ctx, newPatient("Ana")).Kind)
	assert.Equal(t, gerrors.KindConnectivity, service.Staff().CreateWithContract(ctx, entity.StaffRecord{}, 1, contractDate).Kind)
	assert.Equal(t, gerrors.KindConnectivity, service.Specialties().Create(ctx, entity.SpecialtyRecord{}).Kind)
	assert.Equal(t, gerrors.KindConnectivity, service.Contracts().Delete(ctx, entity.Key{Site: 1, LocalID: 1}).Kind)

	res := service.Encounters().List(ctx)
	assert.Empty(t, res.Site)
	assert.ErrorIs(t, res.Err, gerrors.ErrConnectivity)
	assert.Empty(t, store.Calls())

	for _, reachability := range service.Status(ctx) {
		assert.Equal(t, site.Unreachable, reachability.State)
	}
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()
	cfg := config.NewConfig()
	cfg.Logger = log.DiscardLogger
	cfg.Preference = []site.ID{"guayaquil", "quito"}
	cfg.Ranges.Set(entity.Patient, "guayaquil", allocator.MustParseRange("100-110"))

	topology, err := cfg.Topology()
	require.NoError(t, err)
	store := newStore(t, topology)

	service, err := NewFromConfig(cfg, store)
	require.NoError(t, err)

	res := service.Patients().Create(ctx, newPatient("Ana"))
	require.True(t, res.OK, res.Message())
	assert.Equal(t, entity.Key{Site: 2, LocalID: 100}, res.Value)

	cfg.Master = "cuenca"
	_, err = NewFromConfig(cfg, store)
	assert.Error(t, err)
}

func TestMetricsAndLogs(t *testing.T) {
	ctx := context.Background()
	topology := newTopology(t)
	store := newStore(t, topology)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	buffer := new(bytes.Buffer)

	service := atSite(t, store, topology, "quito",
		WithMeterProvider(provider),
		WithLogger(log.NewZap(log.DebugLevel, buffer)))

	require.True(t, service.Patients().Create(ctx, newPatient("Ana")).OK)

	var data metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &data))
	require.Len(t, data.ScopeMetrics, 1)

	names := make([]string, 0)
	for _, m := range data.ScopeMetrics[0].Metrics {
		names = append(names, m.Name)
	}
	assert.Contains(t, names, "shardroute_site_probes")
	assert.Contains(t, names, "shardroute_id_allocations")
	assert.Contains(t, names, "shardroute_procedure_calls")
	assert.Contains(t, buffer.String(), "created patient (1, 1) at site quito")
	require.NoError(t, provider.Shutdown(ctx))
}
