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
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	gerrors "github.com/clinicnet/shardroute/errors"
)

// Range is an inclusive interval of local identifiers owned by one site
type Range struct {
	Min int64
	Max int64
}

// ParseRange parses the text form "min-max", e.g. "1-20"
func ParseRange(text string) (Range, error) {
	lower, upper, found := strings.Cut(strings.TrimSpace(text), "-")
	if !found {
		return Range{}, errors.Wrapf(gerrors.ErrInvalidInput, "range %q: expected min-max", text)
	}

	minimum, err := strconv.ParseInt(strings.TrimSpace(lower), 10, 64)
	if err != nil {
		return Range{}, errors.Wrapf(gerrors.ErrInvalidInput, "range %q: %v", text, err)
	}

	maximum, err := strconv.ParseInt(strings.TrimSpace(upper), 10, 64)
	if err != nil {
		return Range{}, errors.Wrapf(gerrors.ErrInvalidInput, "range %q: %v", text, err)
	}

	r := Range{Min: minimum, Max: maximum}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// MustParseRange is like ParseRange but panics on malformed input
func MustParseRange(text string) Range {
	r, err := ParseRange(text)
	if err != nil {
		panic(err)
	}
	return r
}

// Validate checks that Min <= Max and both are positive
func (r Range) Validate() error {
	if r.Min <= 0 {
		return errors.Wrapf(gerrors.ErrInvalidInput, "range %s: min must be greater than 0", r)
	}
	if r.Min > r.Max {
		return errors.Wrapf(gerrors.ErrInvalidInput, "range %s: min is greater than max", r)
	}
	return nil
}

// Contains reports whether id lies within the range
func (r Range) Contains(id int64) bool {
	return id >= r.Min && id <= r.Max
}

// Overlaps reports whether both ranges share at least one identifier
func (r Range) Overlaps(other Range) bool {
	return r.Min <= other.Max && other.Min <= r.Max
}

// Size returns the number of identifiers in the range
func (r Range) Size() int64 {
	return r.Max - r.Min + 1
}

// String returns the text form of the range
func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}

// MarshalText implements encoding.TextMarshaler
func (r Range) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *Range) UnmarshalText(text []byte) error {
	parsed, err := ParseRange(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
