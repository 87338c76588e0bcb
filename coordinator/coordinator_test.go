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
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"

	"github.com/clinicnet/shardroute/allocator"
	"github.com/clinicnet/shardroute/backend/memory"
	"github.com/clinicnet/shardroute/entity"
	gerrors "github.com/clinicnet/shardroute/errors"
	"github.com/clinicnet/shardroute/gateway"
	"github.com/clinicnet/shardroute/log"
	"github.com/clinicnet/shardroute/reader"
	"github.com/clinicnet/shardroute/site"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type coordinatorTestSuite struct {
	suite.Suite
	topology  *site.Topology
	catalog   *entity.Catalog
	store     *memory.Store
	allocator *allocator.Allocator
	gateway   *gateway.Gateway
	reader    *reader.Reader
}

func TestCoordinator(t *testing.T) {
	suite.Run(t, new(coordinatorTestSuite))
}

func (s *coordinatorTestSuite) SetupTest() {
	var err error
	s.topology, err = site.NewTopology("quito",
		&site.Site{ID: "quito", Code: 1, Link: "quito_link"},
		&site.Site{ID: "guayaquil", Code: 2, Link: "guayaquil_link"},
	)
	s.Require().NoError(err)

	s.catalog = entity.DefaultCatalog()
	s.store, err = memory.New(s.topology, s.catalog)
	s.Require().NoError(err)

	s.allocator, err = allocator.New(s.topology, s.catalog, allocator.DefaultTable(), s.store)
	s.Require().NoError(err)

	s.gateway, err = gateway.New(s.topology, s.catalog, s.store)
	s.Require().NoError(err)

	s.reader, err = reader.New(s.topology, s.catalog, s.store)
	s.Require().NoError(err)
}

func (s *coordinatorTestSuite) newCoordinator(opts ...Option) *Coordinator {
	coordinator, err := New(s.allocator, s.gateway, opts...)
	s.Require().NoError(err)
	return coordinator
}

func (s *coordinatorTestSuite) staffAt(id site.ID) []entity.StaffRecord {
	var rows []entity.StaffRecord
	s.Require().NoError(s.reader.List(context.Background(), entity.MedicalStaff, id, &rows))
	return rows
}

var (
	contractDate = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	newStaff     = entity.StaffRecord{SpecialtyID: 1, FirstName: "Rosa", LastName: "Cedeno", Phone: "0987"}
)

func (s *coordinatorTestSuite) TestCreateStaffWithContract() {
	ctx := context.Background()
	coordinator := s.newCoordinator()

	key, err := coordinator.CreateStaffWithContract(ctx, "guayaquil", newStaff, 1200, contractDate)
	s.Require().NoError(err)
	s.Assert().Equal(entity.Key{Site: 2, LocalID: 21}, key)

	staff := s.staffAt("guayaquil")
	s.Require().Len(staff, 1)
	s.Assert().Equal("Rosa", staff[0].FirstName)
	s.Assert().Equal(2, staff[0].Site)

	for _, id := range []site.ID{"quito", "guayaquil"} {
		var contract entity.ContractRecord
		s.Require().NoError(s.reader.Get(ctx, entity.Contract, id, key, &contract))
		s.Assert().EqualValues(1200, contract.Salary)
		s.Assert().True(contractDate.Equal(contract.Date))
	}

	stored, err := s.store.Stored("quito", entity.Contract)
	s.Require().NoError(err)
	s.Assert().Equal([]entity.Key{key}, stored)
}

func (s *coordinatorTestSuite) TestExhaustedRange() {
	ctx := context.Background()
	for id := int64(21); id <= 40; id++ {
		_, err := s.gateway.Call(ctx, "guayaquil", gateway.CreateStaff(entity.StaffRecord{Site: 2, ID: id}))
		s.Require().NoError(err)
	}
	issued := len(s.store.Calls())

	_, err := s.newCoordinator().CreateStaffWithContract(ctx, "guayaquil", newStaff, 1200, contractDate)
	s.Require().Error(err)
	s.Assert().ErrorIs(err, gerrors.ErrRangeExhausted)
	s.Assert().Len(s.store.Calls(), issued)
}

func (s *coordinatorTestSuite) TestStaffInsertFailure() {
	ctx := context.Background()
	s.store.FailProcedure("sp_create_personalmedico", errors.New("check constraint"))

	_, err := s.newCoordinator().CreateStaffWithContract(ctx, "quito", newStaff, 1200, contractDate)
	s.Require().Error(err)
	s.Assert().ErrorIs(err, gerrors.ErrRemoteProcedure)
	s.Assert().NotErrorIs(err, gerrors.ErrPartialWrite)

	calls := s.store.Calls()
	s.Require().Len(calls, 1)
	s.Assert().Equal("sp_create_personalmedico", calls[0].Name)

	s.store.FailProcedure("sp_create_personalmedico", nil)
	key, err := s.newCoordinator().CreateStaffWithContract(ctx, "quito", newStaff, 1200, contractDate)
	s.Require().NoError(err)
	s.Assert().EqualValues(1, key.LocalID)
}

func (s *coordinatorTestSuite) TestContractFailureLeavesPartial() {
	ctx := context.Background()
	cause := errors.New("linked server timeout")
	s.store.FailProcedure("crearcontrato", cause)

	key, err := s.newCoordinator(WithCompensation(LeavePartial)).CreateStaffWithContract(ctx, "guayaquil", newStaff, 1200, contractDate)
	s.Require().Error(err)
	s.Assert().Equal(entity.Key{Site: 2, LocalID: 21}, key)
	s.Assert().ErrorIs(err, gerrors.ErrPartialWrite)
	s.Assert().ErrorIs(err, cause)
	s.Assert().Equal(gerrors.KindPartialWrite, gerrors.KindOf(err))

	var partial *gerrors.PartialWriteError
	s.Require().ErrorAs(err, &partial)
	s.Assert().Equal(2, partial.Site)
	s.Assert().EqualValues(21, partial.LocalID)
	s.Assert().False(partial.Compensated)
	s.Assert().Contains(err.Error(), "left in place")

	s.Assert().Len(s.staffAt("guayaquil"), 1)
}

func (s *coordinatorTestSuite) TestContractFailureCompensates() {
	ctx := context.Background()
	s.store.FailProcedure("crearcontrato", errors.New("linked server timeout"))

	coordinator := s.newCoordinator()
	s.Assert().Equal(Compensate, coordinator.Policy())

	key, err := coordinator.CreateStaffWithContract(ctx, "guayaquil", newStaff, 1200, contractDate)
	s.Require().Error(err)

	var partial *gerrors.PartialWriteError
	s.Require().ErrorAs(err, &partial)
	s.Assert().True(partial.Compensated)
	s.Assert().NoError(partial.CompensationErr)
	s.Assert().Contains(err.Error(), "compensated")
	s.Assert().Equal(entity.Key{Site: 2, LocalID: 21}, key)
	s.Assert().Empty(s.staffAt("guayaquil"))

	calls := s.store.Calls()
	s.Require().Len(calls, 3)
	s.Assert().Equal("sp_delete_personalmedico", calls[2].Name)
	s.Assert().Equal([]any{2, int64(21)}, calls[2].Params)
}

func (s *coordinatorTestSuite) TestCompensationFailure() {
	ctx := context.Background()
	s.store.FailProcedure("crearcontrato", errors.New("linked server timeout"))
	s.store.FailProcedure("sp_delete_personalmedico", errors.New("locked"))

	_, err := s.newCoordinator().CreateStaffWithContract(ctx, "guayaquil", newStaff, 1200, contractDate)
	var partial *gerrors.PartialWriteError
	s.Require().ErrorAs(err, &partial)
	s.Assert().False(partial.Compensated)
	s.Assert().ErrorContains(partial.CompensationErr, "locked")
	s.Assert().Contains(err.Error(), "compensation failed")
	s.Assert().Len(s.staffAt("guayaquil"), 1)
}

func (s *coordinatorTestSuite) TestCorrelationID() {
	buffer := new(bytes.Buffer)
	logger := log.NewZap(log.InfoLevel, buffer)
	coordinator := s.newCoordinator(WithLogger(logger), WithIDGenerator(func() string { return "run-42" }))

	_, err := coordinator.CreateStaffWithContract(context.Background(), "quito", newStaff, 1000, contractDate)
	s.Require().NoError(err)
	s.Assert().Contains(buffer.String(), `"correlation_id":"run-42"`)
	s.Assert().Contains(buffer.String(), string(StepDone))
}

func TestPolicy(t *testing.T) {
	for text, expected := range map[string]Policy{
		"":              Compensate,
		"compensate":    Compensate,
		"LEAVE_PARTIAL": LeavePartial,
		"leave-partial": LeavePartial,
	} {
		policy, err := ParsePolicy(text)
		require.NoError(t, err)
		assert.Equal(t, expected, policy)
	}

	_, err := ParsePolicy("retry")
	assert.ErrorIs(t, err, gerrors.ErrInvalidInput)

	var policy Policy
	require.NoError(t, policy.UnmarshalText([]byte("leave_partial")))
	assert.Equal(t, "leave_partial", policy.String())
	assert.Equal(t, "compensate", Compensate.String())
}
