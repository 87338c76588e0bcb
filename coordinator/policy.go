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
	"strings"

	"github.com/pkg/errors"

	gerrors "github.com/clinicnet/shardroute/errors"
)

// Policy decides what happens to the staff row when its contract cannot be written
type Policy int

const (
	// Compensate deletes the staff row through its delete procedure
	Compensate Policy = iota
	// LeavePartial keeps the staff row until someone deletes it
	LeavePartial
)

// String returns the policy name
func (p Policy) String() string {
	if p == LeavePartial {
		return "leave_partial"
	}
	return "compensate"
}

// ParsePolicy parses "compensate" or "leave_partial". Empty means Compensate.
func ParsePolicy(text string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "", "compensate":
		return Compensate, nil
	case "leave_partial", "leave-partial", "leavepartial":
		return LeavePartial, nil
	default:
		return Compensate, errors.Wrapf(gerrors.ErrInvalidInput, "unknown compensation policy %q", text)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Policy) UnmarshalText(text []byte) error {
	policy, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = policy
	return nil
}
