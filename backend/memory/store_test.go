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

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/clinicnet/shardroute/allocator"
	"github.com/clinicnet/shardroute/entity"
	gerrors "github.com/clinicnet/shardroute/errors"
	"github.com/clinicnet/shardroute/gateway"
	"github.com/clinicnet/shardroute/reader"
	"github.com/clinicnet/shardroute/site"
)

type storeTestSuite struct {
	suite.Suite
	topology *site.Topology
	catalog  *entity.Catalog
	store    *Store
	quito    *site.Site
	gye      *site.Site
}

func TestStore(t *testing.T) {
	suite.Run(t, new(storeTestSuite))
}

func (s *storeTestSuite) SetupTest() {
	topology, err := site.NewTopology("quito",
		&site.Site{ID: "quito", Code: 1, Link: "quito_link"},
		&site.Site{ID: "guayaquil", Code: 2, Link: "guayaquil_link"},
	)
	s.Require().NoError(err)

	s.topology = topology
	s.catalog = entity.DefaultCatalog()
	s.store, err = New(topology, s.catalog)
	s.Require().NoError(err)
	s.quito, _ = topology.Site("quito")
	s.gye, _ = topology.Site("guayaquil")
}

func (s *storeTestSuite) exec(at *site.Site, name string, proc gateway.Procedure) {
	affected, err := s.store.Exec(context.Background(), at, name, proc.Params...)
	s.Require().NoError(err)
	s.Require().EqualValues(1, affected)
}

func (s *storeTestSuite) query(entityType entity.Type, at *site.Site) reader.Query {
	r, err := reader.New(s.topology, s.catalog, s.store)
	s.Require().NoError(err)
	_, query, err := r.Plan(entityType, at.ID)
	s.Require().NoError(err)
	return query
}

func (s *storeTestSuite) TestProbe() {
	ctx := context.Background()
	s.Assert().NoError(s.store.Probe(ctx, s.quito))

	s.store.SetReachable("quito", false)
	s.Assert().ErrorIs(s.store.Probe(ctx, s.quito), ErrUnreachable)
	s.Assert().NoError(s.store.Probe(ctx, s.gye))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	s.Assert().Error(s.store.Probe(canceled, s.gye))
}

func (s *storeTestSuite) TestProcedures() {
	ctx := context.Background()
	birth := time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC)
	patient := entity.PatientRecord{Site: 2, ID: 21, FirstName: "Maria", LastName: "Lopez", BirthDate: birth, Sex: "F"}

	s.Run("create, update and delete", func() {
		s.exec(s.gye, "sp_create_paciente", gateway.CreatePatient(patient))

		_, err := s.store.Exec(ctx, s.gye, "sp_create_paciente", gateway.CreatePatient(patient).Params...)
		s.Assert().ErrorContains(err, "duplicate key")

		updated := patient
		updated.Phone = "0999"
		s.exec(s.gye, "SP_Update_Paciente", gateway.UpdatePatient(updated))

		var row entity.PatientRecord
		s.Require().NoError(s.store.Select(ctx, s.gye, s.query(entity.Patient, s.gye), &row))
		s.Assert().Equal(updated, row)

		s.exec(s.gye, "sp_delete_paciente", gateway.DeletePatient(patient.Key()))
		affected, err := s.store.Exec(ctx, s.gye, "sp_delete_paciente", gateway.DeletePatient(patient.Key()).Params...)
		s.Require().NoError(err)
		s.Assert().Zero(affected)
	})
	s.Run("rows must belong to the executing site", func() {
		_, err := s.store.Exec(ctx, s.quito, "sp_create_paciente", gateway.CreatePatient(patient).Params...)
		s.Assert().ErrorContains(err, "does not belong")
	})
	s.Run("qualified names run at the referenced site", func() {
		s.exec(s.quito, "guayaquil_link.sp_create_paciente", gateway.CreatePatient(patient))
		keys, err := s.store.Stored("guayaquil", entity.Patient)
		s.Require().NoError(err)
		s.Assert().Equal([]entity.Key{{Site: 2, LocalID: 21}}, keys)
	})
	s.Run("remote calls need both sites", func() {
		s.store.SetReachable("guayaquil", false)
		defer s.store.SetReachable("guayaquil", true)

		_, err := s.store.Exec(ctx, s.quito, "guayaquil_link.sp_delete_paciente", 2, int64(21))
		s.Assert().ErrorIs(err, ErrUnreachable)
	})
	s.Run("failure injection and unknown procedures", func() {
		boom := errors.New("boom")
		s.store.FailProcedure("CrearContrato", boom)
		_, err := s.store.Exec(ctx, s.gye, "quito_link.crearcontrato", 2, int64(21), 10.0, birth)
		s.Assert().ErrorIs(err, boom)
		s.store.FailProcedure("crearcontrato", nil)

		_, err = s.store.Exec(ctx, s.gye, "sp_nope")
		s.Assert().ErrorContains(err, "does not exist")

		_, err = s.store.Exec(ctx, s.gye, "nowhere.sp_create_paciente")
		s.Assert().ErrorContains(err, "unknown cross-site reference")

		_, err = s.store.Exec(ctx, s.gye, "sp_delete_paciente", 2)
		s.Assert().ErrorContains(err, "expects 2 arguments")
	})
	s.Run("calls are recorded", func() {
		s.Assert().NotEmpty(s.store.Calls())
		s.Assert().Equal(site.ID("guayaquil"), s.store.Calls()[0].Site)
	})
}

func (s *storeTestSuite) TestQueries() {
	ctx := context.Background()
	s.exec(s.quito, "sp_create_personalmedico", gateway.CreateStaff(entity.StaffRecord{Site: 1, ID: 2, FirstName: "Ana", LastName: "Ruiz"}))
	s.exec(s.quito, "sp_create_personalmedico", gateway.CreateStaff(entity.StaffRecord{Site: 1, ID: 1, FirstName: "Luis", LastName: "Anaya"}))
	s.exec(s.gye, "sp_create_personalmedico", gateway.CreateStaff(entity.StaffRecord{Site: 2, ID: 21, FirstName: "Juana", LastName: "Mora"}))
	s.exec(s.quito, "sp_create_especialidad", gateway.CreateSpecialty(entity.SpecialtyRecord{ID: 1, Area: "Pediatria"}))
	s.exec(s.gye, "quito_link.crearcontrato", gateway.CreateContract(entity.ContractRecord{Site: 2, StaffID: 21, Salary: 900}))

	s.Run("owner filter", func() {
		var rows []entity.StaffRecord
		s.Require().NoError(s.store.SelectAll(ctx, s.quito, s.query(entity.MedicalStaff, s.quito), &rows))
		s.Require().Len(rows, 2)
		s.Assert().EqualValues(1, rows[0].ID)
		s.Assert().EqualValues(2, rows[1].ID)
	})
	s.Run("unfiltered view sees every site", func() {
		query := s.query(entity.MedicalStaff, s.quito)
		query.Owner = nil
		var rows []entity.StaffRecord
		s.Require().NoError(s.store.SelectAll(ctx, s.quito, query, &rows))
		s.Assert().Len(rows, 3)
	})
	s.Run("search is case-insensitive and covers ids", func() {
		query := s.query(entity.MedicalStaff, s.quito)
		query.Term = "ana"
		var rows []entity.StaffRecord
		s.Require().NoError(s.store.SelectAll(ctx, s.quito, query, &rows))
		s.Assert().Len(rows, 2)

		query.Term = "2"
		rows = nil
		s.Require().NoError(s.store.SelectAll(ctx, s.quito, query, &rows))
		s.Require().Len(rows, 1)
		s.Assert().Equal("Ana", rows[0].FirstName)
	})
	s.Run("centralized rows are visible everywhere", func() {
		var rows []entity.SpecialtyRecord
		s.Require().NoError(s.store.SelectAll(ctx, s.gye, s.query(entity.Specialty, s.gye), &rows))
		s.Assert().Equal([]entity.SpecialtyRecord{{ID: 1, Area: "Pediatria"}}, rows)
	})
	s.Run("contracts live at the master", func() {
		var rows []entity.ContractRecord
		s.Require().NoError(s.store.SelectAll(ctx, s.gye, s.query(entity.Contract, s.gye), &rows))
		s.Require().Len(rows, 1)
		s.Assert().EqualValues(900, rows[0].Salary)

		search := s.query(entity.Contract, s.gye)
		search.Term = "900"
		rows = nil
		s.Require().NoError(s.store.SelectAll(ctx, s.gye, search, &rows))
		s.Require().Len(rows, 1)
		s.Assert().EqualValues(21, rows[0].StaffID)

		query := s.query(entity.Contract, s.gye)
		query.Relation = "contratos"
		rows = nil
		s.Require().NoError(s.store.SelectAll(ctx, s.gye, query, &rows))
		s.Assert().Empty(rows)
	})
	s.Run("select reports missing rows", func() {
		query := s.query(entity.MedicalStaff, s.quito)
		id := int64(99)
		query.ID = &id
		var row entity.StaffRecord
		s.Assert().ErrorIs(s.store.Select(ctx, s.quito, query, &row), gerrors.ErrNotFound)
	})
	s.Run("unreachable site", func() {
		s.store.SetReachable("quito", false)
		defer s.store.SetReachable("quito", true)
		var rows []entity.StaffRecord
		s.Assert().ErrorIs(s.store.SelectAll(ctx, s.quito, s.query(entity.MedicalStaff, s.quito), &rows), ErrUnreachable)
	})
	s.Run("occupied and max ids", func() {
		staff, _ := s.catalog.Lookup(entity.MedicalStaff)
		ids, err := s.store.Occupied(ctx, staff, s.quito, allocator.Range{Min: 1, Max: 20})
		s.Require().NoError(err)
		s.Assert().ElementsMatch([]int64{1, 2}, ids)

		specialty, _ := s.catalog.Lookup(entity.Specialty)
		highest, err := s.store.MaxID(ctx, specialty, s.quito)
		s.Require().NoError(err)
		s.Assert().EqualValues(1, highest)
	})
}

func (s *storeTestSuite) TestClaimer() {
	ctx := context.Background()
	staff, _ := s.catalog.Lookup(entity.MedicalStaff)
	s.exec(s.quito, "sp_create_personalmedico", gateway.CreateStaff(entity.StaffRecord{Site: 1, ID: 1}))

	r := allocator.Range{Min: 1, Max: 3}
	first, ok, err := s.store.Claim(ctx, staff, s.quito, r)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Assert().EqualValues(2, first)

	second, ok, err := s.store.Claim(ctx, staff, s.quito, r)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Assert().EqualValues(3, second)

	_, ok, err = s.store.Claim(ctx, staff, s.quito, r)
	s.Require().NoError(err)
	s.Assert().False(ok)

	s.Require().NoError(s.store.Release(ctx, staff, s.quito, first))
	again, ok, err := s.store.Claim(ctx, staff, s.quito, r)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Assert().EqualValues(2, again)
}
