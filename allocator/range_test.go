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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicnet/shardroute/entity"
	gerrors "github.com/clinicnet/shardroute/errors"
)

func TestRange(t *testing.T) {
	t.Run("ParseRange", func(t *testing.T) {
		r, err := ParseRange(" 21 - 40 ")
		require.NoError(t, err)
		assert.Equal(t, Range{Min: 21, Max: 40}, r)
		assert.EqualValues(t, 20, r.Size())
		assert.Equal(t, "21-40", r.String())

		for _, text := range []string{"", "20", "a-b", "1-x", "20-1", "0-5"} {
			_, err := ParseRange(text)
			assert.ErrorIs(t, err, gerrors.ErrInvalidInput, text)
		}
	})
	t.Run("Text round trip", func(t *testing.T) {
		var r Range
		require.NoError(t, r.UnmarshalText([]byte("1-20")))
		text, err := r.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, "1-20", string(text))
		assert.Error(t, r.UnmarshalText([]byte("nope")))
	})
	t.Run("Contains and Overlaps", func(t *testing.T) {
		r := MustParseRange("1-20")
		assert.True(t, r.Contains(1))
		assert.True(t, r.Contains(20))
		assert.False(t, r.Contains(0))
		assert.False(t, r.Contains(21))
		assert.False(t, r.Overlaps(MustParseRange("21-40")))
		assert.True(t, r.Overlaps(MustParseRange("20-40")))
		assert.Panics(t, func() { MustParseRange("x") })
	})
}

func TestTable(t *testing.T) {
	t.Run("Default table is valid", func(t *testing.T) {
		table := DefaultTable()
		require.NoError(t, table.Validate())

		r, err := table.Lookup(entity.Patient, "guayaquil")
		require.NoError(t, err)
		assert.Equal(t, Range{Min: 21, Max: 40}, r)

		_, err = table.Lookup(entity.Experience, "quito")
		assert.ErrorIs(t, err, gerrors.ErrInvalidInput)
	})
	t.Run("Overlapping ranges are rejected", func(t *testing.T) {
		table := DefaultTable()
		table.Set(entity.Patient, "guayaquil", MustParseRange("15-40"))
		err := table.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "overlap")
	})
	t.Run("Invalid ranges are rejected", func(t *testing.T) {
		table := Table{}
		table.Set(entity.Patient, "quito", Range{Min: 10, Max: 1})
		assert.Error(t, table.Validate())
	})
}
