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

package allocator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/clinicnet/shardroute/entity"
	gerrors "github.com/clinicnet/shardroute/errors"
)

type allocatorTestSuite struct {
	suite.Suite
	source    *fakeSource
	allocator *Allocator
}

func TestAllocator(t *testing.T) {
	suite.Run(t, new(allocatorTestSuite))
}

func (s *allocatorTestSuite) SetupTest() {
	s.source = newFakeSource()
	allocator, err := New(testTopology(s.T()), entity.DefaultCatalog(), DefaultTable(), s.source)
	s.Require().NoError(err)
	s.allocator = allocator
}

func (s *allocatorTestSuite) TestNextAvailableID() {
	ctx := context.Background()
	s.Run("empty range starts at min", func() {
		id, err := s.allocator.NextAvailableID(ctx, entity.Patient, "guayaquil")
		s.Require().NoError(err)
		s.Assert().EqualValues(21, id)
	})
	s.Run("skips occupied ids", func() {
		s.source.add(entity.MedicalStaff, 1, 1, 2, 4)
		id, err := s.allocator.NextAvailableID(ctx, entity.MedicalStaff, "quito")
		s.Require().NoError(err)
		s.Assert().EqualValues(3, id)
	})
	s.Run("ignores rows owned by other sites", func() {
		s.source.add(entity.Encounter, 2, 1, 2, 3)
		id, err := s.allocator.NextAvailableID(ctx, entity.Encounter, "quito")
		s.Require().NoError(err)
		s.Assert().EqualValues(1, id)
	})
	s.Run("stays within the range while filling it", func() {
		r, err := s.allocator.Range(entity.Patient, "quito")
		s.Require().NoError(err)
		for i := int64(0); i < r.Size(); i++ {
			id, err := s.allocator.NextAvailableID(ctx, entity.Patient, "quito")
			s.Require().NoError(err)
			s.Assert().True(r.Contains(id))
			s.source.add(entity.Patient, 1, id)
		}

		_, err = s.allocator.NextAvailableID(ctx, entity.Patient, "quito")
		s.Require().Error(err)
		s.Assert().ErrorIs(err, gerrors.ErrRangeExhausted)

		var exhausted *gerrors.RangeExhaustedError
		s.Require().ErrorAs(err, &exhausted)
		s.Assert().EqualValues(1, exhausted.Min)
		s.Assert().EqualValues(20, exhausted.Max)
	})
	s.Run("rejects entities without ranges", func() {
		_, err := s.allocator.NextAvailableID(ctx, entity.Experience, "quito")
		s.Assert().ErrorIs(err, gerrors.ErrInvalidInput)

		_, err = s.allocator.NextAvailableID(ctx, "ward", "quito")
		s.Assert().ErrorIs(err, gerrors.ErrUnknownEntity)

		_, err = s.allocator.NextAvailableID(ctx, entity.Patient, "cuenca")
		s.Assert().ErrorIs(err, gerrors.ErrUnknownSite)
	})
	s.Run("propagates source failures", func() {
		s.source.err = errors.New("view unavailable")
		defer func() { s.source.err = nil }()
		_, err := s.allocator.NextAvailableID(ctx, entity.Patient, "guayaquil")
		s.Assert().ErrorContains(err, "view unavailable")
	})
}

func (s *allocatorTestSuite) TestClaim() {
	ctx := context.Background()
	s.Run("release gives the id back", func() {
		lease, err := s.allocator.Claim(ctx, entity.Patient, "guayaquil")
		s.Require().NoError(err)
		s.Assert().EqualValues(21, lease.ID)
		s.Assert().Equal(entity.Key{Site: 2, LocalID: 21}, lease.Key())

		next, err := s.allocator.Claim(ctx, entity.Patient, "guayaquil")
		s.Require().NoError(err)
		s.Assert().EqualValues(22, next.ID)

		s.Require().NoError(lease.Release(ctx))
		s.Require().NoError(next.Release(ctx))
		s.Assert().Zero(s.allocator.inflightCount(entity.Patient, "guayaquil"))

		again, err := s.allocator.Claim(ctx, entity.Patient, "guayaquil")
		s.Require().NoError(err)
		s.Assert().EqualValues(21, again.ID)
		s.Require().NoError(again.Release(ctx))
	})
	s.Run("commit hands the id over to the stored row", func() {
		lease, err := s.allocator.Claim(ctx, entity.MedicalStaff, "guayaquil")
		s.Require().NoError(err)
		s.source.add(entity.MedicalStaff, 2, lease.ID)
		s.Require().NoError(lease.Commit(ctx))
		s.Require().NoError(lease.Release(ctx))

		next, err := s.allocator.Claim(ctx, entity.MedicalStaff, "guayaquil")
		s.Require().NoError(err)
		s.Assert().NotEqual(lease.ID, next.ID)
		s.Require().NoError(next.Release(ctx))
	})
	s.Run("centralized ids follow the master maximum", func() {
		s.source.add(entity.AttentionType, 1, 1, 2, 5)
		first, err := s.allocator.Claim(ctx, entity.AttentionType, "guayaquil")
		s.Require().NoError(err)
		second, err := s.allocator.Claim(ctx, entity.AttentionType, "quito")
		s.Require().NoError(err)

		s.Assert().EqualValues(6, first.ID)
		s.Assert().EqualValues(7, second.ID)
		s.Assert().Equal("quito", first.Site().String())
		s.Require().NoError(first.Release(ctx))
		s.Require().NoError(second.Release(ctx))
	})
	s.Run("experience ids are not allocated", func() {
		_, err := s.allocator.Claim(ctx, entity.Experience, "quito")
		s.Assert().ErrorIs(err, gerrors.ErrInvalidInput)
	})
}

func (s *allocatorTestSuite) TestValidateID() {
	s.Assert().True(s.allocator.ValidateID(entity.Patient, "quito", 1))
	s.Assert().True(s.allocator.ValidateID(entity.Patient, "quito", 20))
	s.Assert().False(s.allocator.ValidateID(entity.Patient, "quito", 25))
	s.Assert().True(s.allocator.ValidateID(entity.Patient, "guayaquil", 25))
	s.Assert().False(s.allocator.ValidateID(entity.Experience, "quito", 1))
}

func TestConcurrentClaims(t *testing.T) {
	ctx := context.Background()

	t.Run("one free id and two creators", func(t *testing.T) {
		source := newFakeSource()
		source.add(entity.Patient, 1, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19)

		allocator, err := New(testTopology(t), entity.DefaultCatalog(), DefaultTable(), source)
		require.NoError(t, err)

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			granted []int64
			failed  []error
		)

		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				lease, err := allocator.Claim(ctx, entity.Patient, "quito")
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failed = append(failed, err)
					return
				}
				granted = append(granted, lease.ID)
			}()
		}
		wg.Wait()

		require.Len(t, granted, 1)
		assert.EqualValues(t, 20, granted[0])
		require.Len(t, failed, 1)
		assert.ErrorIs(t, failed[0], gerrors.ErrRangeExhausted)
	})
	t.Run("every creator gets a distinct id", func(t *testing.T) {
		allocator, err := New(testTopology(t), entity.DefaultCatalog(), DefaultTable(), newFakeSource())
		require.NoError(t, err)

		ids := make(chan int64, 20)
		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				lease, err := allocator.Claim(ctx, entity.Encounter, "guayaquil")
				if err == nil {
					ids <- lease.ID
				}
			}()
		}
		wg.Wait()
		close(ids)

		seen := make(map[int64]bool)
		for id := range ids {
			assert.False(t, seen[id], "duplicate id %d", id)
			assert.True(t, id >= 21 && id <= 40)
			seen[id] = true
		}
		assert.Len(t, seen, 20)
	})
}

func TestClaimerMode(t *testing.T) {
	ctx := context.Background()
	source := newFakeSource()
	source.add(entity.Patient, 2, 21)
	claimer := &fakeClaimer{source: source, reserved: make(map[int64]bool)}

	allocator, err := New(testTopology(t), entity.DefaultCatalog(), DefaultTable(), source, WithClaimer(claimer))
	require.NoError(t, err)

	first, err := allocator.Claim(ctx, entity.Patient, "guayaquil")
	require.NoError(t, err)
	assert.EqualValues(t, 22, first.ID)

	second, err := allocator.Claim(ctx, entity.Patient, "guayaquil")
	require.NoError(t, err)
	assert.EqualValues(t, 23, second.ID)
	assert.Zero(t, allocator.inflightCount(entity.Patient, "guayaquil"))

	require.NoError(t, first.Release(ctx))
	require.NoError(t, second.Commit(ctx))
	assert.Equal(t, []int64{22, 23}, claimer.released)
}

func TestNew(t *testing.T) {
	table := DefaultTable()
	table.Set(entity.Patient, "guayaquil", MustParseRange("10-30"))
	_, err := New(testTopology(t), entity.DefaultCatalog(), table, newFakeSource())
	assert.Error(t, err)

	_, err = New(nil, entity.DefaultCatalog(), DefaultTable(), newFakeSource())
	assert.Error(t, err)
}
