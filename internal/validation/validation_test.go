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

package validation

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/multierr"
)

type validationTestSuite struct {
	suite.Suite
}

func TestValidation(t *testing.T) {
	suite.Run(t, new(validationTestSuite))
}

func (s *validationTestSuite) TestNewChain() {
	s.Run("new chain without option", func() {
		chain := New()
		s.Assert().NotNil(chain)
		s.Assert().False(chain.failFast)
	})
	s.Run("new chain with options", func() {
		s.Assert().True(New(FailFast()).failFast)
		s.Assert().False(New(AllErrors()).failFast)
	})
}

func (s *validationTestSuite) TestValidate() {
	s.Run("no violation", func() {
		err := New().
			AddAssertion(true, "never").
			AddValidator(NewEmptyStringValidator("master", "quito")).
			Validate()
		s.Assert().NoError(err)
	})
	s.Run("all errors", func() {
		err := New(AllErrors()).
			AddAssertion(false, "probe timeout must be positive").
			AddValidator(NewEmptyStringValidator("master", "  ")).
			Validate()
		s.Require().Error(err)
		s.Assert().Len(multierr.Errors(err), 2)
		s.Assert().Contains(err.Error(), "the [master] is required")
	})
	s.Run("fail fast", func() {
		err := New(FailFast()).
			AddAssertion(false, "first").
			AddAssertion(false, "second").
			Validate()
		s.Require().Error(err)
		s.Assert().EqualError(err, "first")
	})
	s.Run("chain can be validated twice", func() {
		chain := New().AddAssertion(false, "once")
		s.Assert().Len(multierr.Errors(chain.Validate()), 1)
		s.Assert().Len(multierr.Errors(chain.Validate()), 1)
	})
}
